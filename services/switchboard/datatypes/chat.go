// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains request and response types for the POST /v1/chat and
// POST /v1/route endpoints. Agent and routing structures live in agent.go.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	// MaxMessageBytes is the maximum size of a single chat message body.
	// Checked in bytes, not runes, to bound payload memory before any
	// normalization runs.
	MaxMessageBytes = 32 * 1024 // 32KB

	// MaxMetadataEntries bounds the caller-supplied metadata map.
	MaxMetadataEntries = 32
)

// chatValidate is the shared validator instance for chat datatypes.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageBytes
}

// ChatRequest represents an inbound support-chat message.
//
// # Description
//
// ChatRequest carries one end-user message plus optional identity and
// metadata. It is the body of POST /v1/chat and POST /v1/route. Every
// request gets a RequestID and Timestamp for audit correlation; both are
// filled server-side when the client omits them.
//
// # Fields
//
//   - RequestID: Optional on input, UUID v4 once EnsureDefaults runs.
//   - Timestamp: Unix timestamp in milliseconds (UTC).
//   - Message: Required. The raw user message, at most 32KB.
//   - UserID: Optional stable end-user identifier, used for pending
//     handoff lookups and per-user history caching.
//   - Metadata: Optional caller hints. The key "redirect_reason" forces
//     a human handoff with the given reason.
//
// # Limitations
//
//   - Metadata values are free-form; only string values are honored by
//     the redirect engine.
type ChatRequest struct {
	RequestID string         `json:"request_id,omitempty" validate:"omitempty,uuid4"`
	Timestamp int64          `json:"timestamp,omitempty" validate:"gte=0"`
	Message   string         `json:"message" validate:"required,maxbytes"`
	UserID    string         `json:"user_id,omitempty" validate:"omitempty,max=128"`
	Metadata  map[string]any `json:"metadata,omitempty" validate:"omitempty,max=32"`
}

// Validate validates the ChatRequest fields using the shared validator.
func (r *ChatRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults populates RequestID and Timestamp when the client did
// not supply them.
func (r *ChatRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// MetadataString returns the string value stored under key, or "" when
// the key is absent or holds a non-string value.
func (r *ChatRequest) MetadataString(key string) string {
	if r.Metadata == nil {
		return ""
	}
	if v, ok := r.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// ChatResponse is the body returned by POST /v1/chat.
//
// # Description
//
// ChatResponse echoes request identity, carries the selected agent's
// answer with citations, and reports the typed guardrail and routing
// metadata for the request. ResponseID is generated server-side.
type ChatResponse struct {
	ResponseID    string          `json:"response_id"`
	RequestID     string          `json:"request_id"`
	CorrelationID string          `json:"correlation_id"`
	Timestamp     int64           `json:"timestamp"`
	Response      AgentResponse   `json:"response"`
	Routing       RoutingDecision `json:"routing"`
	Guardrails    GuardrailReport `json:"guardrails"`
}

// NewChatResponse creates a ChatResponse with generated ResponseID and
// Timestamp, echoing the request and correlation identifiers.
func NewChatResponse(requestID, correlationID string) *ChatResponse {
	return &ChatResponse{
		ResponseID:    uuid.NewString(),
		RequestID:     requestID,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UnixMilli(),
	}
}

// RouteResponse is the body returned by POST /v1/route. It exposes the
// routing decision without executing the selected agent.
type RouteResponse struct {
	RequestID     string          `json:"request_id"`
	CorrelationID string          `json:"correlation_id"`
	Routing       RoutingDecision `json:"routing"`
}

// ErrorResponse is the uniform error body for all gateway endpoints.
type ErrorResponse struct {
	Error         string `json:"error"`
	Detail        string `json:"detail,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
