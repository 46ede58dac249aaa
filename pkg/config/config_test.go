// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Guardrails.Enabled)
	assert.Equal(t, "balanced", cfg.Guardrails.Mode)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.5, cfg.Retrieval.MinScore, 1e-9)
	assert.Equal(t, 2*time.Minute, cfg.HandoffTTL())
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
	assert.InDelta(t, 0.3, cfg.Handoff.ConfidenceThreshold, 1e-9)
	assert.Equal(t, "mock", cfg.Slack.Mode)
	assert.True(t, cfg.Support.FAQEnabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Empty(t, cfg.Logging.Dir)
}

func TestCitationConfig_CarriesDefaultTitle(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cc := cfg.CitationConfig()
	assert.Equal(t, "InfinitePay", cc.DefaultTitle)
	assert.Equal(t, "https://www.infinitepay.io", cc.DefaultSite)
}

func TestLoggerConfig(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	lc := cfg.LoggerConfig("switchboard-gateway")
	assert.Equal(t, "info", lc.Level)
	assert.Equal(t, "json", lc.Format)
	assert.Equal(t, "switchboard-gateway", lc.Service)
	assert.True(t, lc.Stdout)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SWITCHBOARD_SERVER_PORT", "9999")
	t.Setenv("SWITCHBOARD_GUARDRAILS_MODE", "strict")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "strict", cfg.Guardrails.Mode)
}

func TestLoad_FileLayer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\nsupport:\n  faq_enabled: false\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.False(t, cfg.Support.FAQEnabled)
	// untouched keys keep defaults
	assert.Equal(t, "balanced", cfg.Guardrails.Mode)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

// Converters hand each subsystem its own config type with values carried
// through.
func TestConfig_Converters(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	g := cfg.GuardrailsConfig()
	assert.Equal(t, cfg.Guardrails.MaxInputChars, g.MaxInputChars)

	idx := cfg.IndexConfig()
	assert.Equal(t, cfg.Retrieval.IndexDir, idx.Dir)

	rd := cfg.RedirectConfig()
	assert.True(t, rd.Enabled)
	assert.Equal(t, "slack", rd.Channel)

	sl := cfg.SlackClientConfig()
	assert.Equal(t, 10*time.Second, sl.Timeout)
	assert.Equal(t, 2, sl.MaxRetries)
}
