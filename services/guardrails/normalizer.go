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

	"github.com/AleutianAI/Switchboard/pkg/textutil"
)

var whitespaceRun = regexp.MustCompile(`\s{2,}`)

// portugueseAccents maps accented characters common in Portuguese support
// traffic to their ASCII equivalents. Unicode decomposition below catches the
// long tail; this explicit table keeps the hot path cheap and predictable.
var portugueseAccents = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
	"Á", "A", "À", "A", "Â", "A", "Ã", "A", "Ä", "A",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"É", "E", "È", "E", "Ê", "E", "Ë", "E",
	"í", "i", "ì", "i", "î", "i", "ï", "i",
	"Í", "I", "Ì", "I", "Î", "I", "Ï", "I",
	"ó", "o", "ò", "o", "ô", "o", "õ", "o", "ö", "o",
	"Ó", "O", "Ò", "O", "Ô", "O", "Õ", "O", "Ö", "O",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"Ú", "U", "Ù", "U", "Û", "U", "Ü", "U",
	"ç", "c", "Ç", "C",
	"ñ", "n", "Ñ", "N",
)

// Normalizer folds accents, strips configured symbols, and collapses
// whitespace. Normalization is idempotent: running it over already-normalized
// text yields the same string with changed == false.
type Normalizer struct {
	removeAccents bool
	symbolTable   map[rune]struct{}
}

// NewNormalizer builds a Normalizer from the flat configuration. The symbol
// list is comma-delimited; each token contributes every rune it contains.
func NewNormalizer(cfg Config) *Normalizer {
	table := make(map[rune]struct{})
	for _, token := range strings.Split(cfg.StripSymbols, ",") {
		for _, r := range strings.TrimSpace(token) {
			table[r] = struct{}{}
		}
	}
	return &Normalizer{
		removeAccents: cfg.RemoveAccents,
		symbolTable:   table,
	}
}

// Normalize returns the normalized text and whether anything changed.
func (n *Normalizer) Normalize(text string) (string, bool) {
	if text == "" {
		return "", false
	}

	normalized := text
	if n.removeAccents {
		normalized = portugueseAccents.Replace(normalized)
		normalized = textutil.FoldAccents(normalized)
	}
	normalized = n.stripSymbols(normalized)
	normalized = whitespaceRun.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)

	return normalized, normalized != text
}

func (n *Normalizer) stripSymbols(text string) string {
	if len(n.symbolTable) == 0 {
		return text
	}
	return strings.Map(func(r rune) rune {
		if _, ok := n.symbolTable[r]; ok {
			return ' '
		}
		return r
	}, text)
}
