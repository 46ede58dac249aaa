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
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Switchboard/services/support"
	"github.com/AleutianAI/Switchboard/services/support/storage"
)

func newSupportAgentForTest(t *testing.T) *SupportAgent {
	t.Helper()
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := support.NewService(support.DefaultConfig(), db, slog.Default())
	return NewSupportAgent(svc, 1200, nil)
}

func TestSupportAgent_FAQAnswer(t *testing.T) {
	agent := newSupportAgentForTest(t)

	resp, err := agent.Run(context.Background(), Request{
		Message:       "redefinir senha login",
		UserID:        "user-1",
		CorrelationID: "corr-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "support", resp.Agent)
	assert.True(t, resp.Meta.FAQHit)
	require.NotNil(t, resp.Meta.FAQScore)
	assert.NotEmpty(t, resp.Content)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "infinitepay", resp.Citations[0].SourceType)
	assert.Contains(t, resp.Meta.ToolsUsed, "faq")
}

func TestSupportAgent_AccountStatus(t *testing.T) {
	agent := newSupportAgentForTest(t)

	resp, err := agent.Run(context.Background(), Request{
		Message: "minha conta está bloqueada, o que faço?",
		UserID:  "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "blocked", resp.Meta.AccountStatus)
	assert.Contains(t, resp.Content, "Detectamos que suas transferências estão temporariamente bloqueadas por segurança.")
	assert.Contains(t, resp.Content, "Liberaremos as transferências assim que a validação for concluída.")
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "Status da conta", resp.Citations[0].Title)
}

func TestSupportAgent_TicketWithEscalation(t *testing.T) {
	agent := newSupportAgentForTest(t)

	resp, err := agent.Run(context.Background(), Request{
		Message: "suspeita de fraude, quero falar com humano. Aconteceu ontem a noite.",
		UserID:  "user-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Meta.TicketID)
	assert.Contains(t, resp.Content, "I have registered your request with ticket number")
	assert.Contains(t, resp.Content, "Reply 'yes' to confirm or 'no' to continue here.")
	assert.True(t, resp.Meta.EscalationSuggested)
	assert.Equal(t, "pending", resp.Meta.HandoffStatus)
	assert.Equal(t, "slack", resp.Meta.HandoffChannel)
	assert.Equal(t, "support", resp.Meta.HandoffSource)
	assert.NotEmpty(t, resp.Meta.TicketSummary)
}

func TestSupportAgent_TicketWithoutEscalation(t *testing.T) {
	agent := newSupportAgentForTest(t)

	resp, err := agent.Run(context.Background(), Request{
		Message: "minha entrega chegou atrasada ontem",
		UserID:  "user-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Meta.TicketID)
	assert.Contains(t, resp.Content, "Our team will reach out soon with updates.")
	assert.False(t, resp.Meta.EscalationSuggested)
	assert.Empty(t, resp.Meta.HandoffStatus)
}

func TestSupportAgent_ProfileInMeta(t *testing.T) {
	agent := newSupportAgentForTest(t)

	resp, err := agent.Run(context.Background(), Request{
		Message: "meu pedido sumiu, meu email e maria@example.com",
		UserID:  "user-1",
	})
	require.NoError(t, err)

	require.NotNil(t, resp.Meta.UserProfile)
	assert.Equal(t, "user-1", resp.Meta.UserProfile["user_id"])
	assert.Equal(t, []string{"email"}, resp.Meta.UserProfileFields)
	assert.Equal(t, "ma***@example.com", resp.Meta.UserProfile["email"])
}

func TestTitleWord(t *testing.T) {
	assert.Equal(t, "Critical", titleWord("critical"))
	assert.Equal(t, "", titleWord(""))
}
