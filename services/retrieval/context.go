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
	"fmt"
	"strings"
)

// contextSeparator joins context blocks and counts against the budget.
const contextSeparator = "\n\n"

// BuildContext greedily assembles model context from chunks in the given
// order, stopping before the chunk whose block plus separator would overflow
// maxChars; the result is never longer than maxChars. At most one chunk per
// source URL makes it in, so callers must pass chunks pre-sorted by
// relevance: iteration order decides what survives the budget.
func BuildContext(chunks []Chunk, maxChars int) (string, []Chunk) {
	var (
		selected []Chunk
		parts    []string
	)
	usedURLs := make(map[string]struct{})
	total := 0

	for _, chunk := range chunks {
		if _, used := usedURLs[chunk.URL]; used {
			continue
		}
		snippet := strings.TrimSpace(chunk.Text)
		if snippet == "" {
			continue
		}
		block := fmt.Sprintf("URL: %s\nExcerpt: %s", chunk.URL, snippet)
		cost := len(block)
		if len(parts) > 0 {
			cost += len(contextSeparator)
		}
		if total+cost > maxChars {
			break
		}
		parts = append(parts, block)
		selected = append(selected, chunk)
		usedURLs[chunk.URL] = struct{}{}
		total += cost
	}

	return strings.Join(parts, contextSeparator), selected
}
