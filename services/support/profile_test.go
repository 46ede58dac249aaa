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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileTool_ExtractAndStore(t *testing.T) {
	tool := NewProfileTool(testDB(t), true)

	profile, updated, err := tool.ExtractAndStore("user-1", "meu email e Joao.Silva@Example.com e tenho o plano pro")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, []string{"email", "plan"}, updated)
	assert.Equal(t, "joao.silva@example.com", profile.Email)
	assert.Equal(t, "pro", profile.Plan)

	// the same facts again change nothing
	_, updated, err = tool.ExtractAndStore("user-1", "sou do plano pro, email joao.silva@example.com")
	require.NoError(t, err)
	assert.Empty(t, updated)

	stored, err := tool.Get("user-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "joao.silva@example.com", stored.Email)
}

// A user with nothing extractable still gets a persisted profile, so later
// requests know the user has been seen.
func TestProfileTool_ExtractAndStore_NothingFound(t *testing.T) {
	tool := NewProfileTool(testDB(t), true)

	profile, updated, err := tool.ExtractAndStore("user-1", "a maquininha nao liga")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Empty(t, updated)

	stored, err := tool.Get("user-1")
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

// Plan phrases are matched accent-insensitively.
func TestProfileTool_PlanAccents(t *testing.T) {
	tool := NewProfileTool(testDB(t), true)

	profile, _, err := tool.ExtractAndStore("user-1", "assinei o plano grátis ontem")
	require.NoError(t, err)
	assert.Equal(t, "gratis", profile.Plan)
}

func TestProfileTool_ExtractAndStore_NoUserID(t *testing.T) {
	tool := NewProfileTool(testDB(t), true)

	profile, updated, err := tool.ExtractAndStore("", "email joao@example.com")
	require.NoError(t, err)
	assert.Nil(t, profile)
	assert.Nil(t, updated)
}

func TestProfileTool_Snapshot_MasksEmail(t *testing.T) {
	tool := NewProfileTool(testDB(t), true)

	snapshot := tool.Snapshot(&UserProfile{
		UserID: "user-1",
		Email:  "joao.silva@example.com",
		Plan:   "pro",
	})
	require.NotNil(t, snapshot)
	assert.Equal(t, "user-1", snapshot.UserID)
	assert.Equal(t, "jo***@example.com", snapshot.Email)
	assert.Equal(t, "pro", snapshot.Plan)

	short := tool.Snapshot(&UserProfile{UserID: "u", Email: "ab@example.com"})
	assert.Equal(t, "**@example.com", short.Email)

	assert.Nil(t, tool.Snapshot(nil))
}

func TestProfileTool_Snapshot_MaskingDisabled(t *testing.T) {
	tool := NewProfileTool(testDB(t), false)

	snapshot := tool.Snapshot(&UserProfile{UserID: "user-1", Email: "joao@example.com"})
	assert.Equal(t, "joao@example.com", snapshot.Email)
}
