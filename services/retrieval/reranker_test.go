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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReranker_Rerank_BoostsOvertakeRawScore(t *testing.T) {
	r := NewReranker(DefaultRerankerConfig())

	// Both bodies sit exactly at the preferred length so the length
	// penalty contributes nothing and the boosts decide the order.
	plain := Chunk{
		ID:       "plain",
		RawScore: 1.0,
		Text:     strings.Repeat("x", preferredChunkLen),
	}
	boosted := Chunk{
		ID:       "boosted",
		RawScore: 0.95,
		Title:    "Refund Policy",
		Text:     " refund " + strings.Repeat("y", preferredChunkLen-8),
	}

	chunks := r.Rerank("refund", []Chunk{plain, boosted})
	require.Len(t, chunks, 2)
	assert.Equal(t, "boosted", chunks[0].ID)
	require.NotNil(t, chunks[0].RankScore)
	assert.InDelta(t, 0.95+0.1+0.2, *chunks[0].RankScore, 1e-9)
	require.NotNil(t, chunks[1].RankScore)
	assert.InDelta(t, 1.0, *chunks[1].RankScore, 1e-9)
}

func TestReranker_Rerank_LengthPenalty(t *testing.T) {
	r := NewReranker(DefaultRerankerConfig())

	tiny := Chunk{ID: "tiny", RawScore: 1.0, Text: "fees"}
	ideal := Chunk{ID: "ideal", RawScore: 1.0, Text: strings.Repeat("z", preferredChunkLen)}

	chunks := r.Rerank("unmatched", []Chunk{tiny, ideal})
	require.Len(t, chunks, 2)
	assert.Equal(t, "ideal", chunks[0].ID, "the off-length chunk should be penalized")
	assert.Less(t, *chunks[1].RankScore, *chunks[0].RankScore)
}

func TestReranker_Rerank_ExactTermRequiresWordBoundary(t *testing.T) {
	r := NewReranker(DefaultRerankerConfig())

	embedded := Chunk{ID: "embedded", RawScore: 1.0, Text: strings.Repeat("a", 100) + "prefeesish" + strings.Repeat("a", 100)}
	chunks := r.Rerank("fees", []Chunk{embedded})

	// "fees" occurs only inside a larger word, so no exact-term boost.
	penalty := DefaultRerankerConfig().LengthPenalty * float64(preferredChunkLen-210) / preferredChunkLen
	assert.InDelta(t, 1.0-penalty, *chunks[0].RankScore, 1e-9)
}

func TestReranker_Rerank_EmptyQueryLeavesChunksAlone(t *testing.T) {
	r := NewReranker(DefaultRerankerConfig())

	chunks := r.Rerank("", []Chunk{{ID: "a", RawScore: 0.3}})
	require.Len(t, chunks, 1)
	assert.Nil(t, chunks[0].RankScore)
}
