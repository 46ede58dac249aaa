// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retrieval

import (
	"regexp"
	"strings"
)

// chunkInjectionPatterns guard against document poisoning: a crawled page
// that embeds instruction-override text must never become model context.
var chunkInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore (all )?previous instructions`),
	regexp.MustCompile(`(?i)disregard the earlier context`),
	regexp.MustCompile(`(?i)act as (system|administrator)`),
	regexp.MustCompile(`(?i)reset the conversation`),
}

// navigationMarkers flag boilerplate that carries no answerable content.
var navigationMarkers = []string{"menu", "cookies", "copyright", "termos de uso"}

// FilterChunks drops chunks that trip an injection pattern or look like
// navigation boilerplate. Runs after reranking and before context assembly.
func FilterChunks(chunks []Chunk) []Chunk {
	filtered := chunks[:0]
	for _, chunk := range chunks {
		if matchesInjection(chunk.Text) {
			continue
		}
		if looksLikeNavigation(chunk.Text) {
			continue
		}
		filtered = append(filtered, chunk)
	}
	return filtered
}

func matchesInjection(text string) bool {
	for _, pattern := range chunkInjectionPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

func looksLikeNavigation(text string) bool {
	lowered := strings.ToLower(text)
	if len(strings.Fields(lowered)) <= 3 {
		return true
	}
	for _, marker := range navigationMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
