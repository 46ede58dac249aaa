// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package slack delivers escalation notifications to a Slack channel, via an
// incoming webhook or the chat.postMessage bot API. A mock client stands in
// when no workspace is wired up, so the handoff flow works end to end in
// development.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const postMessageURL = "https://slack.com/api/chat.postMessage"

// Delivery error codes surfaced in Result.Error.
const (
	ErrCredentialsMissing = "slack_credentials_missing"
	ErrTimeout            = "timeout"
)

// Result reports one delivery attempt.
type Result struct {
	OK        bool
	MessageID string
	Channel   string
	Error     string
}

// Payload is the wire message: plain fallback text plus Block Kit blocks.
type Payload struct {
	Channel string           `json:"channel"`
	Text    string           `json:"text"`
	Blocks  []map[string]any `json:"blocks"`
}

// Client delivers one message to Slack.
type Client interface {
	SendMessage(ctx context.Context, payload Payload) Result
}

// Config selects and parameterizes the client.
type Config struct {
	// Enabled and Mode select the implementation: a real client only when
	// both Enabled and Mode == "real".
	Enabled bool
	Mode    string

	// WebhookURL takes precedence over BotToken when both are set.
	WebhookURL string
	BotToken   string

	// Timeout bounds each HTTP attempt.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
}

// DefaultConfig returns a disabled, mock-mode configuration.
func DefaultConfig() Config {
	return Config{
		Mode:       "mock",
		Timeout:    10 * time.Second,
		MaxRetries: 2,
	}
}

// New returns the client the config selects.
func New(cfg Config, logger *slog.Logger) Client {
	if cfg.Enabled && cfg.Mode == "real" {
		return NewHTTPClient(cfg, logger)
	}
	return NewMockClient(logger)
}

// MockClient pretends every delivery succeeded. Message ids are
// millisecond timestamps so logs stay distinguishable.
type MockClient struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewMockClient creates a MockClient.
func NewMockClient(logger *slog.Logger) *MockClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockClient{logger: logger, now: time.Now}
}

// SendMessage logs the payload and reports success.
func (c *MockClient) SendMessage(_ context.Context, payload Payload) Result {
	messageID := fmt.Sprintf("mock-%d", c.now().UnixMilli())
	c.logger.Info("slack mock send",
		slog.String("channel", payload.Channel),
		slog.String("message_id", messageID))
	return Result{OK: true, MessageID: messageID, Channel: payload.Channel}
}

// HTTPClient posts to a webhook URL or the bot API with a bounded retry
// budget. Attempts back off linearly (0.5s, 1s, ...).
type HTTPClient struct {
	webhookURL string
	botToken   string
	apiURL     string
	retries    int
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
	sleep      func(time.Duration)
}

// NewHTTPClient creates an HTTPClient from the config.
func NewHTTPClient(cfg Config, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		webhookURL: cfg.WebhookURL,
		botToken:   cfg.BotToken,
		apiURL:     postMessageURL,
		retries:    retries,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// SendMessage delivers the payload, retrying transient failures. The last
// error is reported when every attempt fails.
func (c *HTTPClient) SendMessage(ctx context.Context, payload Payload) Result {
	if c.webhookURL == "" && c.botToken == "" {
		return Result{Channel: payload.Channel, Error: ErrCredentialsMissing}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Channel: payload.Channel, Error: fmt.Sprintf("encode: %v", err)}
	}

	var lastErr string
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}
		result, retryable := c.post(ctx, payload.Channel, body)
		if result.OK {
			return result
		}
		lastErr = result.Error
		if !retryable {
			break
		}
	}

	c.logger.Error("slack send failed",
		slog.String("channel", payload.Channel),
		slog.String("error", lastErr))
	return Result{Channel: payload.Channel, Error: lastErr}
}

// post runs one attempt. The second return reports whether a retry could
// help: API-level rejections ("ok": false) are final, transport and HTTP
// errors are not.
func (c *HTTPClient) post(ctx context.Context, channel string, body []byte) (Result, bool) {
	url := c.webhookURL
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlOr(url, c.apiURL), bytes.NewReader(body))
	if err != nil {
		return Result{Channel: channel, Error: err.Error()}, false
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if url == "" {
		req.Header.Set("Authorization", "Bearer "+c.botToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return Result{Channel: channel, Error: ErrTimeout}, true
		}
		return Result{Channel: channel, Error: err.Error()}, true
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Result{Channel: channel, Error: fmt.Sprintf("http_%d", resp.StatusCode)}, true
	}

	// Webhooks answer plain "ok"; the bot API answers JSON with an "ok"
	// flag and a message timestamp used as the id.
	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return Result{OK: true, MessageID: c.fallbackMessageID(resp), Channel: channel}, false
	}

	var api struct {
		OK      *bool  `json:"ok"`
		Error   string `json:"error"`
		TS      string `json:"ts"`
		Message struct {
			TS string `json:"ts"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return Result{OK: true, MessageID: c.fallbackMessageID(resp), Channel: channel}, false
	}
	if api.OK != nil && !*api.OK {
		errCode := api.Error
		if errCode == "" {
			errCode = "unknown_error"
		}
		return Result{Channel: channel, Error: errCode}, false
	}

	messageID := api.TS
	if messageID == "" {
		messageID = api.Message.TS
	}
	if messageID == "" {
		messageID = c.fallbackMessageID(resp)
	}
	return Result{OK: true, MessageID: messageID, Channel: channel}, false
}

func (c *HTTPClient) fallbackMessageID(resp *http.Response) string {
	if id := resp.Header.Get("X-Slack-Req-Id"); id != "" {
		return id
	}
	return fmt.Sprintf("real-%d", c.now().UnixMilli())
}

func urlOr(url, fallback string) string {
	if url != "" {
		return url
	}
	return fallback
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}
