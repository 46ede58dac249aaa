// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handoff tracks pending escalate-to-human confirmations and decides
// routing short-circuits when a conversation should skip the agents entirely.
//
// A pending handoff lives until the user confirms, denies, or its TTL lapses.
// Expired records are swept lazily at the start of every store operation;
// there is no background reaper, so no operation can observe a half-expired
// state.
package handoff

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// PendingHandoff is one awaiting-confirmation escalation.
//
// The record is always addressable by its opaque token; correlation id and
// user id indexes are optional. Exactly one record is addressable per user id
// or correlation id at a time: registering over an existing index pointer
// silently replaces it (last registered wins) and the superseded record stays
// until the next cleanup pass collects it.
type PendingHandoff struct {
	Token         string
	CorrelationID string
	UserID        string
	Channel       string
	TicketID      string
	Category      string
	Priority      string
	Summary       string
	Details       string
	CreatedAt     time.Time
	Source        string

	expiresAt time.Time
}

// ExpiresAt reports when the record becomes unconfirmable.
func (p *PendingHandoff) ExpiresAt() time.Time {
	return p.expiresAt
}

// RegisterRequest carries the fields for a new pending handoff.
type RegisterRequest struct {
	CorrelationID string
	UserID        string
	TicketID      string
	Category      string
	Priority      string
	Summary       string
	Details       string
	Source        string
}

// LookupKeys identifies a pending record by any of its three keys. Priority
// order is token, then correlation id, then user id; the first match wins.
type LookupKeys struct {
	Token         string
	CorrelationID string
	UserID        string
}

// Store is the TTL-indexed pending-escalation registry.
//
// One mutex guards the token map and both index maps. Every public operation
// holds the lock for its full duration and runs the lazy expiry sweep before
// doing anything else.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	pending map[string]*PendingHandoff
	byCorr  map[string]string
	byUser  map[string]string
}

// NewStore creates a Store with the given confirmation TTL.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:     ttl,
		now:     time.Now,
		pending: make(map[string]*PendingHandoff),
		byCorr:  make(map[string]string),
		byUser:  make(map[string]string),
	}
}

// Register creates a pending record and indexes it by token plus whichever of
// correlation id and user id are supplied.
func (s *Store) Register(req RegisterRequest) *PendingHandoff {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()

	now := s.now()
	item := &PendingHandoff{
		Token:         uuid.NewString(),
		CorrelationID: req.CorrelationID,
		UserID:        req.UserID,
		Channel:       "slack",
		TicketID:      req.TicketID,
		Category:      req.Category,
		Priority:      req.Priority,
		Summary:       req.Summary,
		Details:       req.Details,
		CreatedAt:     now,
		Source:        req.Source,
		expiresAt:     now.Add(s.ttl),
	}
	s.pending[item.Token] = item
	if req.CorrelationID != "" {
		s.byCorr[req.CorrelationID] = item.Token
	}
	if req.UserID != "" {
		s.byUser[req.UserID] = item.Token
	}
	return item
}

// Fetch is the read-only lookup. Returns nil when nothing matches or the
// match already expired.
func (s *Store) Fetch(keys LookupKeys) *PendingHandoff {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()

	if token := s.resolveLocked(keys); token != "" {
		return s.pending[token]
	}
	return nil
}

// Pop behaves like Fetch but also removes the record. Used on confirm and
// deny.
func (s *Store) Pop(keys LookupKeys) *PendingHandoff {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()

	token := s.resolveLocked(keys)
	if token == "" {
		return nil
	}
	item := s.pending[token]
	s.removeLocked(token)
	return item
}

// Clear removes the record without returning it.
func (s *Store) Clear(keys LookupKeys) {
	s.Pop(keys)
}

// Len reports the number of live records. Test helper.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	return len(s.pending)
}

func (s *Store) resolveLocked(keys LookupKeys) string {
	if keys.Token != "" {
		if _, ok := s.pending[keys.Token]; ok {
			return keys.Token
		}
	}
	if keys.CorrelationID != "" {
		if token, ok := s.byCorr[keys.CorrelationID]; ok {
			return token
		}
	}
	if keys.UserID != "" {
		if token, ok := s.byUser[keys.UserID]; ok {
			return token
		}
	}
	return ""
}

func (s *Store) cleanupLocked() {
	now := s.now()
	for token, item := range s.pending {
		if item.expiresAt.Before(now) {
			s.removeLocked(token)
		}
	}
}

func (s *Store) removeLocked(token string) {
	item, ok := s.pending[token]
	if !ok {
		return
	}
	delete(s.pending, token)
	if item.CorrelationID != "" && s.byCorr[item.CorrelationID] == token {
		delete(s.byCorr, item.CorrelationID)
	}
	if item.UserID != "" && s.byUser[item.UserID] == token {
		delete(s.byUser, item.UserID)
	}
}
