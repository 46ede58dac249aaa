// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retrieval implements lexical retrieval over a pre-built
// document-chunk index, heuristic re-ranking, context assembly under a
// character budget, citation building, and a TTL query cache.
//
// Scoring is token-overlap counting, not semantic similarity. That is a
// feature: every ranking decision is deterministic and unit-testable.
package retrieval

import "strings"

// Chunk is a bounded excerpt of a source document, the unit of retrieval and
// citation.
//
// RawScore is set by the index scorer. RankScore is set only by the reranker;
// a nil RankScore means the chunk has not been reranked. A chunk is immutable
// once scored except for that single RankScore assignment.
type Chunk struct {
	ID              string   `json:"id"`
	URL             string   `json:"url"`
	Title           string   `json:"title,omitempty"`
	Order           int      `json:"order"`
	Text            string   `json:"text"`
	RawScore        float64  `json:"raw_score"`
	ContentHash     string   `json:"content_hash"`
	IngestTimestamp string   `json:"ingest_timestamp,omitempty"`
	RankScore       *float64 `json:"rank_score,omitempty"`
}

// Score returns the rank score when present, falling back to the raw score.
func (c *Chunk) Score() float64 {
	if c.RankScore != nil {
		return *c.RankScore
	}
	return c.RawScore
}

// queryTokens lowercases, collapses whitespace, and drops single-character
// tokens.
func queryTokens(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := fields[:0]
	for _, field := range fields {
		if len(field) > 1 {
			tokens = append(tokens, field)
		}
	}
	return tokens
}
