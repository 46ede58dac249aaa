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
	"math"
	"sort"
	"strings"
)

// preferredChunkLen is the excerpt length the reranker treats as ideal. The
// length penalty grows with distance from it in either direction.
const preferredChunkLen = 800

// RerankerConfig holds the heuristic boosts and penalties.
type RerankerConfig struct {
	TitleBoost     float64
	ExactTermBoost float64
	LengthPenalty  float64
}

// DefaultRerankerConfig returns the production defaults.
func DefaultRerankerConfig() RerankerConfig {
	return RerankerConfig{
		TitleBoost:     0.1,
		ExactTermBoost: 0.2,
		LengthPenalty:  0.1,
	}
}

// Reranker adjusts raw retrieval scores with cheap lexical signals: title
// token hits, whole-word body hits, and a length penalty.
type Reranker struct {
	cfg RerankerConfig
}

// NewReranker creates a Reranker.
func NewReranker(cfg RerankerConfig) *Reranker {
	return &Reranker{cfg: cfg}
}

// Rerank assigns a rank score to every chunk and re-sorts descending by it.
// The input slice is returned; RankScore is the only field touched.
func (r *Reranker) Rerank(query string, chunks []Chunk) []Chunk {
	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return chunks
	}

	for i := range chunks {
		chunk := &chunks[i]
		score := chunk.RawScore

		if chunk.Title != "" {
			loweredTitle := strings.ToLower(chunk.Title)
			for _, token := range tokens {
				if strings.Contains(loweredTitle, token) {
					score += r.cfg.TitleBoost
				}
			}
		}

		loweredText := strings.ToLower(chunk.Text)
		for _, token := range tokens {
			if strings.Contains(loweredText, " "+token+" ") {
				score += r.cfg.ExactTermBoost
			}
		}

		score -= r.cfg.LengthPenalty * math.Abs(float64(len(chunk.Text))-preferredChunkLen) / preferredChunkLen
		rank := score
		chunk.RankScore = &rank
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score() > chunks[j].Score()
	})
	return chunks
}
