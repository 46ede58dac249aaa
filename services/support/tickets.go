// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package support

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// TicketStatusOpen is the status every new ticket starts in.
const TicketStatusOpen = "open"

// Key prefixes inside the badger keyspace. Tickets live under their id; a
// second index maps user ids to ticket ids so list-by-user is a prefix scan.
const (
	ticketKeyPrefix     = "ticket/"
	ticketUserKeyPrefix = "ticketuser/"
)

// ErrTicketNotFound is returned by Get for unknown ticket ids.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketStore persists tickets in BadgerDB.
//
// The store does not own the database handle; the caller opens it via the
// storage package and closes it on shutdown, since profiles share the same
// instance.
type TicketStore struct {
	db  *badger.DB
	now func() time.Time
}

// NewTicketStore wraps an open database.
func NewTicketStore(db *badger.DB) *TicketStore {
	return &TicketStore{db: db, now: time.Now}
}

// Create assigns an id and timestamps, persists the ticket and its user
// index entry in one transaction, and returns the stored ticket.
func (s *TicketStore) Create(req TicketCreateRequest) (Ticket, error) {
	now := s.now().UTC()
	ticket := Ticket{
		ID:              newTicketID(),
		Status:          TicketStatusOpen,
		Summary:         req.Summary,
		Description:     req.Description,
		UserID:          req.UserID,
		Category:        req.Category,
		Priority:        req.Priority,
		Escalation:      req.Escalation,
		ProfileSnapshot: req.ProfileSnapshot,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	data, err := json.Marshal(ticket)
	if err != nil {
		return Ticket{}, fmt.Errorf("encode ticket: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(ticketKeyPrefix+ticket.ID), data); err != nil {
			return err
		}
		if ticket.UserID != "" {
			indexKey := []byte(ticketUserKeyPrefix + ticket.UserID + "/" + ticket.ID)
			if err := txn.Set(indexKey, []byte(ticket.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Ticket{}, fmt.Errorf("write ticket: %w", err)
	}
	return ticket, nil
}

// Get fetches one ticket by id.
func (s *TicketStore) Get(id string) (Ticket, error) {
	var ticket Ticket
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ticketKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTicketNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &ticket)
		})
	})
	if err != nil {
		return Ticket{}, err
	}
	return ticket, nil
}

// ListByUser returns the user's tickets ordered oldest first. Index entries
// whose ticket record is missing are skipped.
func (s *TicketStore) ListByUser(userID string) ([]Ticket, error) {
	if userID == "" {
		return nil, nil
	}

	var ids []string
	prefix := []byte(ticketUserKeyPrefix + userID + "/")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			ids = append(ids, string(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan user tickets: %w", err)
	}

	tickets := make([]Ticket, 0, len(ids))
	for _, id := range ids {
		ticket, err := s.Get(id)
		if errors.Is(err, ErrTicketNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})
	return tickets, nil
}

// Count reports how many tickets are stored, for diagnostics.
func (s *TicketStore) Count() (int, error) {
	count := 0
	prefix := []byte(ticketKeyPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// newTicketID issues an id with the TICKET- prefix the PII masker exempts,
// so ticket references survive masked logs intact.
func newTicketID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TICKET-" + strings.ToUpper(raw[:8])
}
