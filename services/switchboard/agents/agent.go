// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agents implements the downstream response strategies the gateway
// dispatches to: knowledge (document retrieval), support (FAQ and tickets),
// slack (human escalation), and custom (generic persona fallback). The
// router agent that selects between them also lives here.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/Switchboard/services/switchboard/datatypes"
)

// Request is the normalized unit of work handed to an agent. Message has
// already been through guardrail preprocessing; OriginalMessage is the raw
// text for the few places that need it verbatim.
type Request struct {
	Message         string
	OriginalMessage string
	UserID          string
	CorrelationID   string
	Metadata        map[string]any

	// Handoff fields, set by the gateway when dispatching to the slack
	// agent. Action is one of "request", "cancel", or "confirm".
	HandoffAction  string
	HandoffToken   string
	HandoffSummary string
	HandoffDetails string
	HandoffSource  string
}

// MetadataString returns the string stored under key, or "".
func (r *Request) MetadataString(key string) string {
	if r.Metadata == nil {
		return ""
	}
	if v, ok := r.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// Agent produces one response for one request.
type Agent interface {
	Name() string
	Run(ctx context.Context, req Request) (datatypes.AgentResponse, error)
}

// ControlledError is a predictable agent failure that maps to a specific
// HTTP status instead of a blanket 500. Agents return it when a dependency
// is down or input is unusable.
type ControlledError struct {
	Code       string
	StatusCode int
	Details    string
	Agent      string
	Err        error
}

func (e *ControlledError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *ControlledError) Unwrap() error {
	return e.Err
}

// collapseWhitespace folds runs of whitespace into single spaces and trims.
func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// truncateRunes cuts text to at most limit runes, replacing the tail with
// an ellipsis marker.
func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	cut := limit - 3
	if cut < 0 {
		cut = 0
	}
	return strings.TrimRight(string(runes[:cut]), " ") + "..."
}
