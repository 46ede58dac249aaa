// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package slack

import (
	"regexp"
	"strings"
)

// Character budgets for the rendered message sections.
const (
	SummaryMaxChars = 280
	DetailsMaxChars = 1200
	titleMaxChars   = 120
)

// maxLinks bounds how many reference links a message carries.
const maxLinks = 3

var (
	payloadEmailRE   = regexp.MustCompile(`([\w._%+-]+)@([\w.-]+)`)
	payloadPhoneRE   = regexp.MustCompile(`\+?\d[\d\-\s]{7,}\b`)
	payloadLongNumRE = regexp.MustCompile(`\b\d{11,}\b`)
	htmlTagRE        = regexp.MustCompile(`<[^>]+>`)
	urlRE            = regexp.MustCompile(`https?://\S+`)
)

// Context carries everything a handoff notification needs to render.
type Context struct {
	Channel       string
	Title         string
	Summary       string
	Details       string
	TicketID      string
	Category      string
	Priority      string
	CorrelationID string
	Links         []string
	RequestedBy   string
}

// BuildMessage renders a Context into a deliverable payload: PII masked,
// HTML and raw URLs stripped, sections truncated to budget, and a Block Kit
// layout alongside the plain fallback text.
//
// Masking is unconditional here. Everything in the payload leaves the
// system, so there is no unmasked variant.
func BuildMessage(ctx Context) Payload {
	summary := truncate(sanitize(maskPayloadPII(ctx.Summary)), SummaryMaxChars)
	details := truncate(sanitize(maskPayloadPII(ctx.Details)), DetailsMaxChars)
	title := truncate(sanitize(maskPayloadPII(ctx.Title)), titleMaxChars)

	links := ctx.Links
	if len(links) > maxLinks {
		links = links[:maxLinks]
	}

	lines := []string{"*" + title + "*", summary}
	if details != "" {
		lines = append(lines, details)
	}
	if ctx.TicketID != "" {
		lines = append(lines, "Ticket: `"+ctx.TicketID+"`")
	}
	if ctx.Category != "" || ctx.Priority != "" {
		lines = append(lines, "Clas.: "+orDash(ctx.Category)+"/"+orDash(ctx.Priority))
	}
	if ctx.RequestedBy != "" {
		lines = append(lines, "Solicitado por: "+ctx.RequestedBy)
	}
	for _, link := range links {
		lines = append(lines, "Link: "+link)
	}
	lines = append(lines, "Correlation: "+ctx.CorrelationID)

	blocks := []map[string]any{
		{
			"type": "section",
			"text": mrkdwn("*" + title + "*"),
		},
		{
			"type": "section",
			"fields": []map[string]any{
				mrkdwn("*Resumo*\n" + summary),
				mrkdwn("*Prioridade*\n" + orDash(ctx.Priority)),
				mrkdwn("*Categoria*\n" + orDash(ctx.Category)),
			},
		},
	}
	if details != "" {
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": mrkdwn("*Detalhes*\n" + details),
		})
	}
	if ctx.TicketID != "" {
		blocks = append(blocks, contextBlock(mrkdwn("Ticket `"+ctx.TicketID+"`")))
	}
	if len(links) > 0 {
		blocks = append(blocks, contextBlock(mrkdwn("Links: "+strings.Join(links, " | "))))
	}
	requestedBy := ctx.RequestedBy
	if requestedBy == "" {
		requestedBy = "n/d"
	}
	blocks = append(blocks, contextBlock(
		mrkdwn("Correlation: "+ctx.CorrelationID),
		mrkdwn("Solicitado por: "+requestedBy),
	))

	return Payload{
		Channel: ctx.Channel,
		Text:    strings.Join(lines, "\n"),
		Blocks:  blocks,
	}
}

func mrkdwn(text string) map[string]any {
	return map[string]any{"type": "mrkdwn", "text": text}
}

func contextBlock(elements ...map[string]any) map[string]any {
	return map[string]any{"type": "context", "elements": elements}
}

// maskPayloadPII blanks emails to their domain, phone-shaped digit runs,
// and any remaining 11-plus digit number.
func maskPayloadPII(text string) string {
	if text == "" {
		return ""
	}
	masked := payloadEmailRE.ReplaceAllString(text, "***@$2")
	masked = payloadPhoneRE.ReplaceAllString(masked, "***")
	masked = payloadLongNumRE.ReplaceAllString(masked, "***")
	return masked
}

// sanitize strips HTML tags, replaces raw URLs with a placeholder, and
// collapses whitespace.
func sanitize(text string) string {
	if text == "" {
		return ""
	}
	clean := htmlTagRE.ReplaceAllString(text, " ")
	clean = urlRE.ReplaceAllString(clean, "[link]")
	return strings.Join(strings.Fields(clean), " ")
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	return strings.TrimRight(string(runes[:limit-3]), " ") + "..."
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
