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
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/Switchboard/pkg/textutil"
)

const profileKeyPrefix = "profile/"

var profileEmailRE = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// planPattern maps a phrase in the message to a plan label. Order matters:
// the first matching phrase wins.
type planPattern struct {
	phrase string
	label  string
}

var planPatterns = []planPattern{
	{"plano pro", "pro"},
	{"pro plan", "pro"},
	{"sou pro", "pro"},
	{"plano start", "start"},
	{"plano smart", "smart"},
	{"plano completo", "completo"},
	{"plano gratuito", "gratis"},
	{"plano gratis", "gratis"},
	{"free plan", "gratis"},
	{"enterprise", "enterprise"},
}

// ProfileTool extracts lightweight profile hints (email, plan) from support
// messages and persists them per user, sharing the ticket store's database.
type ProfileTool struct {
	db      *badger.DB
	masking bool
	now     func() time.Time
}

// NewProfileTool wraps an open database. masking controls whether snapshots
// mask email addresses.
func NewProfileTool(db *badger.DB, masking bool) *ProfileTool {
	return &ProfileTool{db: db, masking: masking, now: time.Now}
}

// Get fetches a stored profile, or nil when the user has none.
func (t *ProfileTool) Get(userID string) (*UserProfile, error) {
	if userID == "" {
		return nil, nil
	}
	var profile UserProfile
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(profileKeyPrefix + userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &profile)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return &profile, nil
}

// ExtractAndStore scans the message for an email address and a plan phrase,
// merges any finding into the user's profile, and persists it. It returns
// the profile and the sorted names of the fields that changed.
//
// A user with no prior profile gets one persisted even when the message
// carries nothing, so later requests know the user has been seen.
func (t *ProfileTool) ExtractAndStore(userID, message string) (*UserProfile, []string, error) {
	if userID == "" {
		return nil, nil, nil
	}

	profile, err := t.Get(userID)
	if err != nil {
		return nil, nil, err
	}
	isNew := profile == nil
	if isNew {
		profile = &UserProfile{UserID: userID, LastUpdated: t.now().UTC()}
	}

	var updated []string
	if email := findEmail(message); email != "" && email != profile.Email {
		profile.Email = email
		updated = append(updated, "email")
	}
	if plan := findPlan(message); plan != "" && plan != profile.Plan {
		profile.Plan = plan
		updated = append(updated, "plan")
	}

	if len(updated) > 0 {
		profile.LastUpdated = t.now().UTC()
	}
	if len(updated) > 0 || isNew {
		if err := t.put(profile); err != nil {
			return nil, nil, err
		}
	}
	sort.Strings(updated)
	return profile, updated, nil
}

// Snapshot returns the PII-masked view of a profile, or nil for nil.
func (t *ProfileTool) Snapshot(profile *UserProfile) *ProfileSnapshot {
	if profile == nil {
		return nil
	}
	return &ProfileSnapshot{
		UserID:      t.maskEmail(profile.UserID),
		Email:       t.maskEmail(profile.Email),
		Plan:        profile.Plan,
		LastUpdated: profile.LastUpdated.Format(time.RFC3339),
	}
}

func (t *ProfileTool) put(profile *UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	err = t.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(profileKeyPrefix+profile.UserID), data)
	})
	if err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

// maskEmail keeps the first two characters of the local part. Values with
// no @ pass through untouched, so plain user ids are not mangled.
func (t *ProfileTool) maskEmail(value string) string {
	if value == "" || !t.masking {
		return value
	}
	local, domain, ok := strings.Cut(value, "@")
	if !ok || local == "" || domain == "" {
		return value
	}
	if len(local) <= 2 {
		return "**@" + domain
	}
	return local[:2] + "***@" + domain
}

func findEmail(message string) string {
	return strings.ToLower(profileEmailRE.FindString(message))
}

func findPlan(message string) string {
	if message == "" {
		return ""
	}
	normalized := textutil.FoldAccents(strings.ToLower(message))
	for _, p := range planPatterns {
		if strings.Contains(normalized, p.phrase) {
			return p.label
		}
	}
	return ""
}
