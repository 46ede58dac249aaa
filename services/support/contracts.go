// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package support resolves support-routed messages without a human in the
// loop where it can: canned account-status answers first, then a lexical FAQ
// match, and as a last resort a persisted ticket classified by keyword
// policy.
package support

import (
	"time"
)

// FAQItem is one entry of the FAQ dataset. The JSON keys mirror the dataset
// files, which are authored in Portuguese.
type FAQItem struct {
	ID        string   `json:"id"`
	Question  string   `json:"pergunta"`
	Answer    string   `json:"resposta"`
	Tags      []string `json:"tags"`
	Category  string   `json:"categoria"`
	UpdatedAt string   `json:"atualizado_em"`
}

// FAQQuery is a search request against the FAQ dataset.
type FAQQuery struct {
	Message string
}

// FAQResult is the best-scoring FAQ entry for a query, with a short
// matched-token explanation for the logs.
type FAQResult struct {
	Item        FAQItem `json:"item"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// AccountStatusRecord maps trigger phrases to a canned account-state answer.
type AccountStatusRecord struct {
	ID        string   `json:"id"`
	Triggers  []string `json:"triggers"`
	Status    string   `json:"status"`
	Reason    string   `json:"reason"`
	Limit     *string  `json:"limit"`
	NextSteps string   `json:"next_steps"`
	URL       string   `json:"url"`
}

// AccountStatusResult is a matched record plus the trigger that matched it.
type AccountStatusResult struct {
	Record         AccountStatusRecord `json:"record"`
	MatchedTrigger string              `json:"trigger"`
}

// UserProfile is the lightweight per-user state the support flow extracts
// from messages. It never stores more than contact and plan hints.
type UserProfile struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email,omitempty"`
	Plan        string    `json:"plan,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// ProfileSnapshot is the PII-masked view of a profile that is safe to attach
// to tickets and logs.
type ProfileSnapshot struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email,omitempty"`
	Plan        string `json:"plan,omitempty"`
	LastUpdated string `json:"last_updated"`
}

// Ticket is a persisted support ticket. UserID and Description hold raw
// values; anything leaving the service goes through TicketPublicView.
type Ticket struct {
	ID              string           `json:"id"`
	Status          string           `json:"status"`
	Summary         string           `json:"summary"`
	Description     string           `json:"description"`
	UserID          string           `json:"user_id,omitempty"`
	Category        string           `json:"category"`
	Priority        string           `json:"priority"`
	Escalation      bool             `json:"escalation"`
	ProfileSnapshot *ProfileSnapshot `json:"profile_snapshot,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TicketCreateRequest carries the fields for a new ticket.
type TicketCreateRequest struct {
	Summary         string
	Description     string
	UserID          string
	Category        string
	Priority        string
	Escalation      bool
	ProfileSnapshot *ProfileSnapshot
}

// TicketPublicView is the caller-facing projection of a ticket: timestamps
// flattened to RFC 3339 strings, the user reference masked, the raw
// description withheld.
type TicketPublicView struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Priority  string `json:"priority"`
	Category  string `json:"category"`
	Summary   string `json:"summary"`
	UserRef   string `json:"user_ref,omitempty"`
}
