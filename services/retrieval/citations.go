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

// Citation source types.
const (
	SourceOfficial = "official"
	SourceExternal = "external"
)

// Citation points a response at the material it drew from. URL is
// canonicalized; SourceType distinguishes the operator's own domain from
// external references.
type Citation struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	SourceType string `json:"source_type"`
}

var queryOrFragment = regexp.MustCompile(`[?#].*`)

// CitationConfig holds the official-domain allowlist and the site used when a
// chunk carries no URL at all.
type CitationConfig struct {
	// OfficialPrefixes classifies a canonical URL as official when it
	// prefix-matches any entry.
	OfficialPrefixes []string

	// DefaultSite substitutes for an empty chunk URL.
	DefaultSite string

	// DefaultTitle is used when no path segment yields a better one.
	DefaultTitle string
}

// CitationBuilder canonicalizes and deduplicates citations.
type CitationBuilder struct {
	cfg CitationConfig
}

// NewCitationBuilder creates a CitationBuilder.
func NewCitationBuilder(cfg CitationConfig) *CitationBuilder {
	return &CitationBuilder{cfg: cfg}
}

// Build produces the citation list for a response.
//
// Chunks are deduplicated by canonical URL, first occurrence wins. Supplied
// external sources are appended when not already present. Fallback URLs are
// used only when the list would otherwise be empty.
func (b *CitationBuilder) Build(chunks []Chunk, fallbackURLs []string, external []Citation) []Citation {
	var citations []Citation
	seen := make(map[string]struct{})

	for _, chunk := range chunks {
		url := chunk.URL
		if url == "" {
			url = b.cfg.DefaultSite
		}
		url = CanonicalURL(url, b.cfg.DefaultSite)
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}

		title := chunk.Title
		if title == "" {
			title = b.titleFromURL(url)
		}
		citations = append(citations, Citation{
			Title:      title,
			URL:        url,
			SourceType: b.classify(url),
		})
	}

	for _, citation := range external {
		if _, dup := seen[citation.URL]; dup {
			continue
		}
		seen[citation.URL] = struct{}{}
		citations = append(citations, citation)
	}

	if len(citations) == 0 {
		for _, url := range fallbackURLs {
			canonical := CanonicalURL(url, b.cfg.DefaultSite)
			if _, dup := seen[canonical]; dup {
				continue
			}
			seen[canonical] = struct{}{}
			citations = append(citations, Citation{
				Title:      b.titleFromURL(canonical),
				URL:        canonical,
				SourceType: SourceOfficial,
			})
		}
	}

	return citations
}

// CanonicalURL strips the query string, the fragment, and any trailing slash
// except on a bare origin.
func CanonicalURL(url, fallback string) string {
	if url == "" {
		return fallback
	}
	url = strings.TrimSpace(url)
	url = queryOrFragment.ReplaceAllString(url, "")
	return canonicalTrailingSlash(url)
}

func (b *CitationBuilder) classify(url string) string {
	for _, prefix := range b.cfg.OfficialPrefixes {
		if strings.HasPrefix(url, prefix) {
			return SourceOfficial
		}
	}
	return SourceExternal
}

// titleFromURL derives a display title from the first path segment,
// "gestao-de-cobranca" becoming "Gestao De Cobranca".
func (b *CitationBuilder) titleFromURL(url string) string {
	path := url
	if idx := strings.Index(path, "//"); idx >= 0 {
		path = path[idx+2:]
	}
	if path == "" {
		return b.cfg.DefaultTitle
	}
	parts := strings.Split(path, "/")
	if len(parts) > 1 && parts[1] != "" {
		return titleCase(strings.ReplaceAll(parts[1], "-", " "))
	}
	return b.cfg.DefaultTitle
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
