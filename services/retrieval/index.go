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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/AleutianAI/Switchboard/pkg/textutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("switchboard.retrieval")

// IndexConfig holds the retrieval knobs.
type IndexConfig struct {
	// Dir contains the persisted index batches (index_*.jsonl).
	Dir string

	// TopK is the default result cut when the caller passes topK <= 0.
	TopK int

	// MinScore discards chunks scoring below the floor.
	MinScore float64

	// TitleBoost is added per query token found in a chunk title.
	TitleBoost float64
}

// DefaultIndexConfig returns the production defaults.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		Dir:        filepath.Join("data", "index"),
		TopK:       5,
		MinScore:   0.5,
		TitleBoost: 0.1,
	}
}

// indexRecord is the persisted per-chunk schema. Batches are append-only; one
// file per ingestion run.
type indexRecord struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Order       int    `json:"order"`
	Text        string `json:"text"`
	ContentHash string `json:"content_hash"`
	CapturedAt  string `json:"captured_at,omitempty"`
}

// Index loads the chunk records into memory on first use and serves scored
// lookups. The record cache is read-mostly: queries take the read lock,
// Reload swaps the slice under the write lock so an admin re-index never
// races in-flight reads.
type Index struct {
	cfg IndexConfig

	mu      sync.RWMutex
	entries []indexRecord
	loaded  bool
}

// NewIndex creates an Index. Records are loaded lazily on the first query.
func NewIndex(cfg IndexConfig) *Index {
	return &Index{cfg: cfg}
}

// Retrieve scores every indexed chunk against the query and returns at most
// topK chunks ordered by descending raw score (ties keep index order).
// Chunks scoring below the configured floor are discarded.
func (ix *Index) Retrieve(ctx context.Context, query string, topK int) ([]Chunk, error) {
	_, span := tracer.Start(ctx, "Index.Retrieve")
	defer span.End()

	entries, err := ix.loadOnce()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		slog.Warn("Retrieval index is empty", "dir", ix.cfg.Dir)
		return nil, nil
	}

	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	var scored []Chunk
	for _, entry := range entries {
		base := scoreText(tokens, entry.Text)
		title := scoreTitle(tokens, entry.Title, ix.cfg.TitleBoost)
		total := base + title
		if total <= 0 {
			continue
		}
		scored = append(scored, Chunk{
			ID:              entry.ID,
			URL:             canonicalTrailingSlash(entry.URL),
			Title:           entry.Title,
			Order:           entry.Order,
			Text:            entry.Text,
			RawScore:        total,
			ContentHash:     entry.ContentHash,
			IngestTimestamp: entry.CapturedAt,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RawScore > scored[j].RawScore
	})

	limit := topK
	if limit <= 0 {
		limit = ix.cfg.TopK
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}
	results := scored[:0]
	for _, chunk := range scored {
		if chunk.RawScore >= ix.cfg.MinScore {
			results = append(results, chunk)
		}
	}

	topScore := 0.0
	if len(results) > 0 {
		topScore = results[0].RawScore
	}
	span.SetAttributes(
		attribute.Int("retrieval.results", len(results)),
		attribute.Float64("retrieval.top_score", topScore),
	)
	slog.Info("Retrieval query scored", "count", len(results), "top_score", topScore)
	return results, nil
}

// Reload discards the cached records and re-reads the batches from disk.
func (ix *Index) Reload() (int, error) {
	entries, err := ix.readBatches()
	if err != nil {
		return 0, err
	}
	ix.mu.Lock()
	ix.entries = entries
	ix.loaded = true
	ix.mu.Unlock()
	return len(entries), nil
}

// Size returns the number of cached records, loading them if needed.
func (ix *Index) Size() (int, error) {
	entries, err := ix.loadOnce()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (ix *Index) loadOnce() ([]indexRecord, error) {
	ix.mu.RLock()
	if ix.loaded {
		entries := ix.entries
		ix.mu.RUnlock()
		return entries, nil
	}
	ix.mu.RUnlock()

	entries, err := ix.readBatches()
	if err != nil {
		return nil, err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if !ix.loaded {
		ix.entries = entries
		ix.loaded = true
	}
	return ix.entries, nil
}

// readBatches reads every index_*.jsonl batch, newest file first. Unreadable
// lines are skipped; an unreadable file aborts the load.
func (ix *Index) readBatches() ([]indexRecord, error) {
	if _, err := os.Stat(ix.cfg.Dir); os.IsNotExist(err) {
		slog.Warn("Retrieval index directory missing", "dir", ix.cfg.Dir)
		return nil, nil
	}

	paths, err := filepath.Glob(filepath.Join(ix.cfg.Dir, "index_*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("globbing index batches: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))

	var entries []indexRecord
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening index batch %s: %w", path, err)
		}
		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var record indexRecord
			if err := json.Unmarshal([]byte(line), &record); err != nil {
				slog.Debug("Skipping malformed index line", "file", path)
				continue
			}
			entries = append(entries, record)
		}
		scanErr := scanner.Err()
		file.Close()
		if scanErr != nil {
			return nil, fmt.Errorf("reading index batch %s: %w", path, scanErr)
		}
	}
	return entries, nil
}

// scoreText counts token occurrences in the chunk body with an
// accent-insensitive fallback, then applies the length-normalizing penalty
// score / log10(len+10) so long chunks do not win on volume alone.
func scoreText(tokens []string, text string) float64 {
	lowered := strings.ToLower(text)
	var folded string

	score := 0.0
	for _, token := range tokens {
		occurrences := strings.Count(lowered, token)
		if occurrences == 0 {
			if folded == "" {
				folded = textutil.FoldAccents(lowered)
			}
			occurrences = strings.Count(folded, textutil.FoldAccents(token))
		}
		score += float64(occurrences)
	}
	if score == 0 {
		return 0
	}
	return score / math.Log10(float64(len(lowered))+10)
}

// scoreTitle adds the title boost for every query token found in the title.
func scoreTitle(tokens []string, title string, boost float64) float64 {
	if title == "" {
		return 0
	}
	lowered := strings.ToLower(title)
	score := 0.0
	for _, token := range tokens {
		if strings.Contains(lowered, token) {
			score += boost
		}
	}
	return score
}

// canonicalTrailingSlash trims a trailing slash unless the URL is a bare
// origin.
func canonicalTrailingSlash(url string) string {
	url = strings.TrimSpace(url)
	if strings.HasSuffix(url, "/") && len(url) > len("https://")+1 {
		url = strings.TrimRight(url, "/")
	}
	return url
}
