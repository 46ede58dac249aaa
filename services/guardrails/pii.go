// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package guardrails

import (
	"regexp"
	"strings"
)

var (
	emailRE = regexp.MustCompile(`([\w._%+-]+)@([\w.-]+)`)
	phoneRE = regexp.MustCompile(`\+?\d[\d\s-]{7,}\b`)
	cardRE  = regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)
	ssnRE   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)

	nonDigit = regexp.MustCompile(`\D`)
)

// Masker redacts emails, phone numbers, card numbers, and SSNs. Masked copies
// are for logs and outbound text; the routed message itself is never masked.
type Masker struct {
	enabled        bool
	maskEmail      bool
	maskPhone      bool
	ticketPrefixes []string
}

// NewMasker builds a Masker. ticketPrefixes lists identifiers such as
// "TICKET-" whose trailing digit runs must not be mistaken for phone numbers.
func NewMasker(cfg Config, ticketPrefixes []string) *Masker {
	prefixes := cfg.TicketPrefixes
	if len(prefixes) == 0 {
		prefixes = ticketPrefixes
	}
	return &Masker{
		enabled:        cfg.PIIMaskingEnabled,
		maskEmail:      cfg.MaskEmail,
		maskPhone:      cfg.MaskPhone,
		ticketPrefixes: prefixes,
	}
}

// Mask returns the masked text, whether anything was masked, and a reason
// list in "category:trigger" form.
func (m *Masker) Mask(text string) (string, bool, []string) {
	if text == "" || !m.enabled {
		return text, false, nil
	}

	masked := text
	flagged := false
	var reasons []string

	if m.maskEmail && emailRE.MatchString(masked) {
		flagged = true
		masked = emailRE.ReplaceAllStringFunc(masked, maskEmail)
		reasons = append(reasons, "personal_identifiers:email")
	}

	if m.maskPhone {
		replaced, hit := m.maskPhones(masked)
		if hit {
			flagged = true
			masked = replaced
			reasons = append(reasons, "personal_identifiers:phone")
		}
	}

	if cardRE.MatchString(masked) {
		flagged = true
		masked = cardRE.ReplaceAllStringFunc(masked, maskCard)
		reasons = append(reasons, "payment_data:card_number")
	}

	if ssnRE.MatchString(masked) {
		flagged = true
		masked = ssnRE.ReplaceAllStringFunc(masked, maskSSN)
		reasons = append(reasons, "personal_identifiers:ssn")
	}

	return masked, flagged, reasons
}

// maskPhones masks phone-like digit runs, skipping any run that directly
// follows a configured ticket prefix. RE2 has no lookbehind, so the prefix
// check inspects the text preceding each match.
func (m *Masker) maskPhones(text string) (string, bool) {
	matches := phoneRE.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text, false
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	hit := false
	for _, span := range matches {
		b.WriteString(text[last:span[0]])
		segment := text[span[0]:span[1]]
		if m.afterTicketPrefix(text[:span[0]]) {
			b.WriteString(segment)
		} else {
			b.WriteString(maskPhone(segment))
			hit = true
		}
		last = span[1]
	}
	b.WriteString(text[last:])
	return b.String(), hit
}

func (m *Masker) afterTicketPrefix(before string) bool {
	for _, prefix := range m.ticketPrefixes {
		if strings.HasSuffix(before, prefix) {
			return true
		}
	}
	return false
}

func maskEmail(match string) string {
	groups := emailRE.FindStringSubmatch(match)
	local, domain := groups[1], groups[2]
	visible := "*"
	if len(local) > 2 {
		visible = local[:2]
	}
	hidden := len(local) - len(visible)
	if hidden < 1 {
		hidden = 1
	}
	return visible + strings.Repeat("*", hidden) + "@" + domain
}

func maskPhone(match string) string {
	digits := nonDigit.ReplaceAllString(match, "")
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	return strings.Repeat("*", len(digits)-2) + digits[len(digits)-2:]
}

func maskCard(match string) string {
	digits := nonDigit.ReplaceAllString(match, "")
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	masked := strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
	var groups []string
	for i := 0; i < len(masked); i += 4 {
		end := i + 4
		if end > len(masked) {
			end = len(masked)
		}
		groups = append(groups, masked[i:end])
	}
	return strings.Join(groups, " ")
}

func maskSSN(match string) string {
	return "***-**-" + match[7:]
}
