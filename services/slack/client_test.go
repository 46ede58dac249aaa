// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package slack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTTPClient(serverURL string) *HTTPClient {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Mode = "real"
	cfg.WebhookURL = serverURL
	c := NewHTTPClient(cfg, nil)
	c.sleep = func(time.Duration) {}
	return c
}

func TestMockClient_SendMessage(t *testing.T) {
	c := NewMockClient(nil)
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }

	result := c.SendMessage(context.Background(), Payload{Channel: "#support"})
	assert.True(t, result.OK)
	assert.Equal(t, "mock-1700000000000", result.MessageID)
	assert.Equal(t, "#support", result.Channel)
}

// New returns the mock unless both Enabled and real mode are set.
func TestNew_ModeSelection(t *testing.T) {
	cfg := DefaultConfig()
	assert.IsType(t, &MockClient{}, New(cfg, nil))

	cfg.Enabled = true
	assert.IsType(t, &MockClient{}, New(cfg, nil))

	cfg.Mode = "real"
	assert.IsType(t, &HTTPClient{}, New(cfg, nil))
}

func TestHTTPClient_CredentialsMissing(t *testing.T) {
	cfg := DefaultConfig()
	c := NewHTTPClient(cfg, nil)

	result := c.SendMessage(context.Background(), Payload{Channel: "#support"})
	assert.False(t, result.OK)
	assert.Equal(t, ErrCredentialsMissing, result.Error)
}

// A webhook answers plain-text "ok"; the request id header becomes the
// message id.
func TestHTTPClient_WebhookSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("X-Slack-Req-Id", "req-123")
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	result := newTestHTTPClient(server.URL).SendMessage(context.Background(), Payload{Channel: "#support"})
	require.True(t, result.OK)
	assert.Equal(t, "req-123", result.MessageID)
}

// The bot API answers JSON; the message timestamp becomes the id.
func TestHTTPClient_BotAPISuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true, "ts": "1726000000.000100"}`))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BotToken = "xoxb-test"
	c := NewHTTPClient(cfg, nil)
	c.sleep = func(time.Duration) {}
	c.apiURL = server.URL

	result := c.SendMessage(context.Background(), Payload{Channel: "#support"})
	require.True(t, result.OK)
	assert.Equal(t, "1726000000.000100", result.MessageID)
}

// An API-level rejection is final: no retries, the API error code surfaces.
func TestHTTPClient_APIRejectionNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": false, "error": "channel_not_found"}`))
	}))
	defer server.Close()

	result := newTestHTTPClient(server.URL).SendMessage(context.Background(), Payload{Channel: "#nope"})
	assert.False(t, result.OK)
	assert.Equal(t, "channel_not_found", result.Error)
	assert.Equal(t, int32(1), calls.Load())
}

// Server errors burn the whole retry budget before giving up.
func TestHTTPClient_ServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	result := newTestHTTPClient(server.URL).SendMessage(context.Background(), Payload{Channel: "#support"})
	assert.False(t, result.OK)
	assert.Equal(t, "http_500", result.Error)
	assert.Equal(t, int32(3), calls.Load()) // 1 attempt + 2 retries
}

func TestHTTPClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.WebhookURL = server.URL
	cfg.Timeout = 20 * time.Millisecond
	cfg.MaxRetries = 0
	c := NewHTTPClient(cfg, nil)
	c.sleep = func(time.Duration) {}

	result := c.SendMessage(context.Background(), Payload{Channel: "#support"})
	assert.False(t, result.OK)
	assert.Equal(t, ErrTimeout, result.Error)
}
