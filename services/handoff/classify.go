// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handoff

import (
	"strings"

	"github.com/AleutianAI/Switchboard/pkg/textutil"
)

// Confirmation is the outcome of classifying a free-text reply against a
// pending escalation.
type Confirmation string

const (
	ConfirmationConfirm   Confirmation = "confirm"
	ConfirmationDeny      Confirmation = "deny"
	ConfirmationAmbiguous Confirmation = "ambiguous"
)

// Phrase lists are checked as substrings of the normalized message; term sets
// are checked against its bag of words. Deny always outranks confirm so a
// "nao precisa" is never misread through its embedded politeness.
var (
	denyPhrases = []string{
		"nao precisa",
		"nao agora",
		"pode deixar",
		"no need",
		"not now",
		"never mind",
	}
	confirmPhrases = []string{
		"pode escalar",
		"pode chamar",
		"pode acionar",
		"quero falar com humano",
		"quero um humano",
		"me chama no slack",
		"atendimento humano",
		"yes please",
		"go ahead",
		"talk to a human",
		"connect me to a human",
	}
	denyTerms = map[string]struct{}{
		"nao":      {},
		"negativo": {},
		"dispensa": {},
		"depois":   {},
		"no":       {},
		"nope":     {},
		"cancel":   {},
	}
	confirmTerms = map[string]struct{}{
		"sim":      {},
		"claro":    {},
		"pode":     {},
		"positivo": {},
		"confirmo": {},
		"yes":      {},
		"yeah":     {},
		"sure":     {},
		"ok":       {},
		"okay":     {},
		"please":   {},
	}
	humanTerms = []string{
		"humano",
		"atendente",
		"pessoa",
		"human",
		"agent",
		"person",
	}
	intentVerbs = []string{
		"quero",
		"preciso",
		"falar",
		"fala",
		"want",
		"need",
		"speak",
		"talk",
	}
)

// normalizeReply lowercases, folds accents, and collapses whitespace.
func normalizeReply(message string) string {
	return textutil.FoldAccents(strings.ToLower(textutil.Collapse(message)))
}

// wordsOf splits the normalized text into its word bag, trimming trailing
// punctuation so that "nao," reads as "nao".
func wordsOf(text string) []string {
	fields := strings.Fields(text)
	words := fields[:0]
	for _, field := range fields {
		word := strings.Trim(field, ".,!?;:")
		if word != "" {
			words = append(words, word)
		}
	}
	return words
}

// ClassifyConfirmation decides whether a reply confirms or denies a pending
// escalation. Rules run in a fixed order and the first match wins: deny
// phrases, confirm phrases, deny terms, confirm terms, then the explicit
// human-request heuristic. Anything unmatched is ambiguous and costs the user
// one more round trip.
func ClassifyConfirmation(message string) Confirmation {
	text := normalizeReply(message)
	if text == "" {
		return ConfirmationAmbiguous
	}

	for _, phrase := range denyPhrases {
		if strings.Contains(text, phrase) {
			return ConfirmationDeny
		}
	}
	for _, phrase := range confirmPhrases {
		if strings.Contains(text, phrase) {
			return ConfirmationConfirm
		}
	}

	words := wordsOf(text)
	for _, word := range words {
		if _, ok := denyTerms[word]; ok {
			return ConfirmationDeny
		}
	}
	for _, word := range words {
		if _, ok := confirmTerms[word]; ok {
			return ConfirmationConfirm
		}
	}

	if mentionsHuman(text) && mentionsIntent(text) {
		return ConfirmationConfirm
	}
	return ConfirmationAmbiguous
}

// IsDirectRequest detects an unprompted "connect me to a human" message,
// independent of any pending record. A deny term anywhere suppresses the
// match.
func IsDirectRequest(message string) bool {
	text := normalizeReply(message)
	if text == "" {
		return false
	}
	for _, word := range wordsOf(text) {
		if _, ok := denyTerms[word]; ok {
			return false
		}
	}
	if mentionsHuman(text) && mentionsIntent(text) {
		return true
	}
	for _, phrase := range confirmPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func mentionsHuman(text string) bool {
	for _, term := range humanTerms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func mentionsIntent(text string) bool {
	for _, verb := range intentVerbs {
		if strings.Contains(text, verb) {
			return true
		}
	}
	return false
}
