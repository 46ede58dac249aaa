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
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/AleutianAI/Switchboard/services/support/datasets"
)

// DefaultAccountStatusURL backs records whose dataset entry omits a help
// link.
const DefaultAccountStatusURL = "https://www.infinitepay.io/conta-digital"

// AccountStatusTool answers account-state questions from trigger phrases.
// It checks before the FAQ because its answers are state-specific and a
// generic FAQ hit would shadow them.
type AccountStatusTool struct {
	records []AccountStatusRecord
}

// NewAccountStatusTool loads the account-status dataset. An empty path uses
// the embedded default; a missing or invalid file leaves the tool empty.
func NewAccountStatusTool(path string, logger *slog.Logger) *AccountStatusTool {
	if logger == nil {
		logger = slog.Default()
	}

	raw := datasets.AccountStatus
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			raw = data
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("account status dataset missing, using embedded default", slog.String("path", path))
		default:
			logger.Error("account status dataset unreadable, using embedded default",
				slog.String("path", path), slog.String("error", err.Error()))
		}
	}

	var records []AccountStatusRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		logger.Error("account status dataset invalid", slog.String("error", err.Error()))
		return &AccountStatusTool{}
	}

	for i := range records {
		triggers := records[i].Triggers[:0]
		for _, trigger := range records[i].Triggers {
			trigger = normalizePolicy(strings.TrimSpace(trigger))
			if trigger != "" {
				triggers = append(triggers, trigger)
			}
		}
		records[i].Triggers = triggers
		if records[i].Status == "" {
			records[i].Status = "unknown"
		}
		if records[i].URL == "" {
			records[i].URL = DefaultAccountStatusURL
		}
	}
	return &AccountStatusTool{records: records}
}

// Lookup returns the first record whose trigger phrase occurs in the
// message, or nil. Matching folds case and accents on both sides.
func (t *AccountStatusTool) Lookup(message string) *AccountStatusResult {
	if message == "" {
		return nil
	}
	normalized := normalizePolicy(message)
	for _, record := range t.records {
		for _, trigger := range record.Triggers {
			if strings.Contains(normalized, trigger) {
				return &AccountStatusResult{Record: record, MatchedTrigger: trigger}
			}
		}
	}
	return nil
}

// Records exposes the loaded dataset for diagnostics.
func (t *AccountStatusTool) Records() []AccountStatusRecord {
	out := make([]AccountStatusRecord, len(t.records))
	copy(out, t.records)
	return out
}
