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
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/Switchboard/pkg/textutil"
)

var tracer = otel.Tracer("switchboard.support")

// Config holds the flat support-service options.
type Config struct {
	// FAQEnabled gates the FAQ lookup stage.
	FAQEnabled bool

	// FAQScoreThreshold is the minimum normalized FAQ match score.
	FAQScoreThreshold float64

	// FAQDatasetPath and AccountStatusDatasetPath override the embedded
	// datasets. Empty keeps the embedded defaults.
	FAQDatasetPath           string
	AccountStatusDatasetPath string

	// PIIMaskingEnabled gates user-reference and profile masking.
	PIIMaskingEnabled bool

	// MaxDescriptionChars truncates ticket descriptions; 0 disables.
	MaxDescriptionChars int

	// EscalationAuto escalates every critical and high priority ticket.
	EscalationAuto bool

	// CategoryTermOverrides and SeverityTermOverrides extend the policy
	// term tables, in "key:term,term;key:term" form.
	CategoryTermOverrides string
	SeverityTermOverrides string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		FAQEnabled:          true,
		FAQScoreThreshold:   DefaultFAQScoreThreshold,
		PIIMaskingEnabled:   true,
		MaxDescriptionChars: 1200,
	}
}

// Outcome is the result of one support request. Exactly one of
// AccountStatus, FAQResult, or Ticket is set.
type Outcome struct {
	AccountStatus   *AccountStatusResult
	FAQResult       *FAQResult
	Ticket          *Ticket
	Policy          *PolicyDecision
	ProfileSnapshot *ProfileSnapshot
	ProfileFields   []string
	ToolsUsed       []string
	LatencyMS       float64
}

// Service orchestrates the support tools: profile extraction, then
// account-status lookup, then FAQ, then policy-classified ticket creation.
type Service struct {
	cfg      Config
	faq      *FAQTool
	accounts *AccountStatusTool
	profiles *ProfileTool
	tickets  *TicketStore
	policy   *Policy
	metrics  *Metrics
	logger   *slog.Logger
}

// NewService wires the support tools over one shared database handle.
func NewService(cfg Config, db *badger.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		faq:      NewFAQTool(cfg.FAQDatasetPath, cfg.FAQScoreThreshold, logger),
		accounts: NewAccountStatusTool(cfg.AccountStatusDatasetPath, logger),
		profiles: NewProfileTool(db, cfg.PIIMaskingEnabled),
		tickets:  NewTicketStore(db),
		policy:   NewPolicy(cfg.CategoryTermOverrides, cfg.SeverityTermOverrides, cfg.EscalationAuto),
		metrics:  NewMetrics(),
		logger:   logger,
	}
}

// Handle resolves one support message.
//
// Stage order is deliberate: account status first because its answers are
// user-state-specific, FAQ second because a good match avoids a ticket, and
// ticket creation last as the catch-all. Profile extraction runs before all
// three so a freshly mentioned email lands on the ticket snapshot.
func (s *Service) Handle(ctx context.Context, message, userID, correlationID string) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "support.handle")
	defer span.End()

	start := time.Now()
	s.metrics.requestStarted()
	maskedUser := s.maskPII(userID)

	profile, profileFields, err := s.profiles.ExtractAndStore(userID, message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile store failed")
		return Outcome{}, fmt.Errorf("extract profile: %w", err)
	}
	var toolsUsed []string
	if profile != nil {
		toolsUsed = append(toolsUsed, "user_profile")
	}
	snapshot := s.profiles.Snapshot(profile)
	if len(profileFields) > 0 {
		s.logger.Info("support profile updated",
			slog.String("correlation_id", correlationID),
			slog.String("user_id", maskedUser),
			slog.Any("fields", profileFields))
	}

	s.logger.Info("support request started",
		slog.String("correlation_id", correlationID),
		slog.String("user_id", maskedUser),
		slog.Int("message_chars", len(message)))

	outcome := Outcome{
		ProfileSnapshot: snapshot,
		ProfileFields:   profileFields,
	}

	if status := s.accounts.Lookup(message); status != nil {
		outcome.AccountStatus = status
		outcome.ToolsUsed = append(toolsUsed, "account_status")
		outcome.LatencyMS = s.finish(start, correlationID)
		span.SetAttributes(attribute.String("support.resolution", "account_status"))
		s.logger.Info("support account status matched",
			slog.String("correlation_id", correlationID),
			slog.String("trigger", status.MatchedTrigger),
			slog.String("status", status.Record.Status))
		return outcome, nil
	}

	if s.cfg.FAQEnabled {
		if result := s.faq.Search(FAQQuery{Message: message}); result != nil {
			s.metrics.faqHit()
			outcome.FAQResult = result
			outcome.ToolsUsed = append(toolsUsed, "faq")
			outcome.LatencyMS = s.finish(start, correlationID)
			span.SetAttributes(attribute.String("support.resolution", "faq"))
			s.logger.Info("support faq matched",
				slog.String("correlation_id", correlationID),
				slog.String("faq_id", result.Item.ID),
				slog.Float64("score", result.Score))
			return outcome, nil
		}
	}

	decision := s.policy.Decide(message)
	ticket, err := s.createTicket(message, userID, decision, snapshot)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ticket create failed")
		return Outcome{}, err
	}

	outcome.Ticket = &ticket
	outcome.Policy = &decision
	outcome.ToolsUsed = append(toolsUsed, "support_policy", "ticket")
	outcome.LatencyMS = s.finish(start, correlationID)
	span.SetAttributes(
		attribute.String("support.resolution", "ticket"),
		attribute.String("support.priority", ticket.Priority),
		attribute.Bool("support.escalation", ticket.Escalation),
	)
	s.logger.Info("support ticket created",
		slog.String("correlation_id", correlationID),
		slog.String("ticket_id", ticket.ID),
		slog.String("priority", ticket.Priority),
		slog.String("category", ticket.Category),
		slog.Bool("escalation", ticket.Escalation))
	return outcome, nil
}

// GetTicketPublic returns the masked caller-facing view of a ticket, or
// ErrTicketNotFound.
func (s *Service) GetTicketPublic(id string) (TicketPublicView, error) {
	ticket, err := s.tickets.Get(id)
	if err != nil {
		return TicketPublicView{}, err
	}
	return TicketPublicView{
		ID:        ticket.ID,
		Status:    ticket.Status,
		CreatedAt: ticket.CreatedAt.Format(time.RFC3339),
		UpdatedAt: ticket.UpdatedAt.Format(time.RFC3339),
		Priority:  ticket.Priority,
		Category:  ticket.Category,
		Summary:   ticket.Summary,
		UserRef:   s.maskPII(ticket.UserID),
	}, nil
}

// ListTicketsByUser returns the user's tickets, oldest first.
func (s *Service) ListTicketsByUser(userID string) ([]Ticket, error) {
	return s.tickets.ListByUser(userID)
}

// ReloadFAQ re-reads the FAQ dataset.
func (s *Service) ReloadFAQ() {
	s.faq.Reload()
}

// Metrics returns a point-in-time counter snapshot.
func (s *Service) Metrics() MetricsSnapshot {
	return s.metrics.Snapshot()
}

func (s *Service) createTicket(message, userID string, decision PolicyDecision, snapshot *ProfileSnapshot) (Ticket, error) {
	ticket, err := s.tickets.Create(TicketCreateRequest{
		Summary:         buildSummary(message),
		Description:     s.normalizeDescription(message),
		UserID:          userID,
		Category:        decision.Category,
		Priority:        decision.Priority,
		Escalation:      decision.Escalation,
		ProfileSnapshot: snapshot,
	})
	if err != nil {
		return Ticket{}, fmt.Errorf("create ticket: %w", err)
	}
	s.metrics.ticketCreated(ticket.Escalation)
	return ticket, nil
}

func (s *Service) finish(start time.Time, correlationID string) float64 {
	latency := float64(time.Since(start).Microseconds()) / 1000
	snap := s.metrics.requestFinished(latency)
	s.logger.Info("support request finished",
		slog.String("correlation_id", correlationID),
		slog.Float64("latency_ms", latency),
		slog.Int64("total_requests", snap.TotalRequests),
		slog.Int64("faq_hits", snap.FAQHits),
		slog.Int64("tickets_created", snap.TicketsCreated),
		slog.Int64("escalations", snap.Escalations),
		slog.Float64("avg_latency_ms", snap.AverageLatencyMS),
		slog.Float64("p95_latency_ms", snap.P95LatencyMS))
	return latency
}

var (
	maskEmailRE    = regexp.MustCompile(`([\w._%+-]+)@([\w.-]+)`)
	maskMidDigitRE = regexp.MustCompile(`\b(\d{2})\d{3}(\d{2,})\b`)
	maskLongNumRE  = regexp.MustCompile(`\b\d{5,}\b`)
)

// maskPII redacts user references for logs and public views: email local
// parts, the middle of long digit runs, and any remaining 5-plus digit
// number.
func (s *Service) maskPII(value string) string {
	if value == "" || !s.cfg.PIIMaskingEnabled {
		return value
	}
	masked := maskEmailRE.ReplaceAllString(value, "***@$2")
	masked = maskMidDigitRE.ReplaceAllString(masked, "$1***$2")
	masked = maskLongNumRE.ReplaceAllString(masked, "***")
	return masked
}

// buildSummary takes the first sentence, capped at 120 characters.
func buildSummary(message string) string {
	text, _, _ := strings.Cut(strings.TrimSpace(message), ".")
	if runes := []rune(text); len(runes) > 120 {
		text = string(runes[:117]) + "..."
	}
	if text == "" {
		return "Support"
	}
	return text
}

func (s *Service) normalizeDescription(message string) string {
	text := textutil.Collapse(message)
	if runes := []rune(text); s.cfg.MaxDescriptionChars > 0 && len(runes) > s.cfg.MaxDescriptionChars {
		text = string(runes[:s.cfg.MaxDescriptionChars])
	}
	return text
}
