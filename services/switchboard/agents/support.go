// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/Switchboard/services/retrieval"
	"github.com/AleutianAI/Switchboard/services/support"
	"github.com/AleutianAI/Switchboard/services/switchboard/datatypes"
)

var supportTracer = otel.Tracer("switchboard.agents.support")

// SupportAgent resolves support messages via the support service: account
// status first, then FAQ, then a ticket as the catch-all.
type SupportAgent struct {
	service          *support.Service
	maxResponseChars int
	logger           *slog.Logger
}

// NewSupportAgent wraps an already-constructed support service.
func NewSupportAgent(service *support.Service, maxResponseChars int, logger *slog.Logger) *SupportAgent {
	if logger == nil {
		logger = slog.Default()
	}
	if maxResponseChars <= 0 {
		maxResponseChars = 1200
	}
	return &SupportAgent{service: service, maxResponseChars: maxResponseChars, logger: logger}
}

func (a *SupportAgent) Name() string { return "support" }

// Run resolves one support message and composes the user-facing reply for
// whichever tool answered it.
func (a *SupportAgent) Run(ctx context.Context, req Request) (datatypes.AgentResponse, error) {
	ctx, span := supportTracer.Start(ctx, "support.Run")
	defer span.End()

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = "support"
	}

	outcome, err := a.service.Handle(ctx, req.Message, req.UserID, correlationID)
	if err != nil {
		span.RecordError(err)
		a.logger.Error("support agent failed", "correlation_id", correlationID, "error", err)
		return datatypes.AgentResponse{}, &ControlledError{
			Code:       "support_agent_unavailable",
			StatusCode: 503,
			Details:    "We could not process the support request at this time.",
			Agent:      a.Name(),
			Err:        err,
		}
	}

	meta := datatypes.ResponseMeta{
		FAQHit:           outcome.FAQResult != nil,
		SupportLatencyMS: outcome.LatencyMS,
		ToolsUsed:        outcome.ToolsUsed,
	}
	if outcome.Policy != nil {
		meta.Priority = outcome.Policy.Priority
		meta.Category = outcome.Policy.Category
		meta.EscalationSuggested = outcome.Policy.Escalation
	} else if outcome.FAQResult != nil {
		meta.Category = outcome.FAQResult.Item.Category
	}
	if outcome.FAQResult != nil {
		score := outcome.FAQResult.Score
		meta.FAQScore = &score
		meta.FAQExplanation = outcome.FAQResult.Explanation
	}
	if outcome.Ticket != nil {
		meta.TicketID = outcome.Ticket.ID
	}
	if outcome.ProfileSnapshot != nil {
		meta.UserProfile = profileMap(outcome.ProfileSnapshot)
		meta.UserProfileFields = outcome.ProfileFields
	}

	var content string
	var citations []retrieval.Citation
	switch {
	case outcome.AccountStatus != nil:
		content = composeAccountStatus(outcome.AccountStatus)
		citations = []retrieval.Citation{{
			Title:      "Status da conta",
			URL:        outcome.AccountStatus.Record.URL,
			SourceType: "infinitepay",
		}}
		meta.AccountStatus = outcome.AccountStatus.Record.Status
	case outcome.FAQResult != nil:
		content = outcome.FAQResult.Item.Answer
		citations = []retrieval.Citation{{
			Title:      outcome.FAQResult.Item.Question,
			URL:        "https://www.infinitepay.io",
			SourceType: "infinitepay",
		}}
	default:
		content = composeTicketReply(outcome.Ticket, &meta)
		citations = []retrieval.Citation{{
			Title:      "Support ticket",
			URL:        "https://www.infinitepay.io/support",
			SourceType: "infinitepay",
		}}
	}

	content = truncateRunes(collapseWhitespace(content), a.maxResponseChars)
	return datatypes.AgentResponse{
		Agent:     a.Name(),
		Content:   content,
		Citations: citations,
		Meta:      meta,
	}, nil
}

// composeTicketReply builds the ticket acknowledgement and, when the policy
// suggested escalation, seeds the pending-handoff fields the gateway picks
// up to register the confirmation.
func composeTicketReply(ticket *support.Ticket, meta *datatypes.ResponseMeta) string {
	parts := []string{
		fmt.Sprintf("I have registered your request with ticket number %s.", ticket.ID),
		fmt.Sprintf("Category: %s | Priority: %s.", titleWord(ticket.Category), titleWord(ticket.Priority)),
	}
	meta.TicketSummary = ticket.Summary
	meta.TicketDescription = ticket.Description
	if ticket.Escalation {
		parts = append(parts, "We identified a high impact. May I involve a human specialist on Slack to accelerate the follow-up? Reply 'yes' to confirm or 'no' to continue here.")
		meta.HandoffStatus = "pending"
		meta.HandoffChannel = "slack"
		meta.HandoffSource = "support"
	} else {
		parts = append(parts, "Our team will reach out soon with updates.")
	}
	return strings.Join(parts, " ")
}

func composeAccountStatus(status *support.AccountStatusResult) string {
	record := status.Record
	lines := []string{
		"Detectamos que suas transferências estão temporariamente bloqueadas por segurança.",
		record.Reason,
	}
	if record.Limit != nil && *record.Limit != "" {
		lines = append(lines, fmt.Sprintf("Limite atual: %s.", *record.Limit))
	}
	lines = append(lines, record.NextSteps, "Liberaremos as transferências assim que a validação for concluída.")
	kept := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, " ")
}

func profileMap(snapshot *support.ProfileSnapshot) map[string]string {
	m := map[string]string{"user_id": snapshot.UserID}
	if snapshot.Email != "" {
		m["email"] = snapshot.Email
	}
	if snapshot.Plan != "" {
		m["plan"] = snapshot.Plan
	}
	if snapshot.LastUpdated != "" {
		m["last_updated"] = snapshot.LastUpdated
	}
	return m
}

func titleWord(word string) string {
	if word == "" {
		return word
	}
	runes := []rune(word)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
