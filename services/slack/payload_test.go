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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() Context {
	return Context{
		Channel:       "#support-humans",
		Title:         "[SUPPORT ESCALATION] #TICKET-AB12CD34 pagamentos/high",
		Summary:       "Cliente nao recebeu o repasse",
		Details:       "Detalhes completos do caso",
		TicketID:      "TICKET-AB12CD34",
		Category:      "pagamentos",
		Priority:      "high",
		CorrelationID: "corr-1",
		RequestedBy:   "user-1",
	}
}

func TestBuildMessage_TextLayout(t *testing.T) {
	msg := BuildMessage(testContext())

	assert.Equal(t, "#support-humans", msg.Channel)
	lines := strings.Split(msg.Text, "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.Equal(t, "*[SUPPORT ESCALATION] #TICKET-AB12CD34 pagamentos/high*", lines[0])
	assert.Equal(t, "Cliente nao recebeu o repasse", lines[1])
	assert.Contains(t, msg.Text, "Ticket: `TICKET-AB12CD34`")
	assert.Contains(t, msg.Text, "Clas.: pagamentos/high")
	assert.Contains(t, msg.Text, "Solicitado por: user-1")
	assert.Equal(t, "Correlation: corr-1", lines[len(lines)-1])
}

func TestBuildMessage_Blocks(t *testing.T) {
	msg := BuildMessage(testContext())

	require.GreaterOrEqual(t, len(msg.Blocks), 4)
	assert.Equal(t, "section", msg.Blocks[0]["type"])

	fields, ok := msg.Blocks[1]["fields"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, fields, 3)
	assert.Equal(t, "*Resumo*\nCliente nao recebeu o repasse", fields[0]["text"])
	assert.Equal(t, "*Prioridade*\nhigh", fields[1]["text"])
	assert.Equal(t, "*Categoria*\npagamentos", fields[2]["text"])

	last := msg.Blocks[len(msg.Blocks)-1]
	assert.Equal(t, "context", last["type"])
}

// PII in summary and details is masked before anything leaves the system.
func TestBuildMessage_MasksPII(t *testing.T) {
	ctx := testContext()
	ctx.Summary = "contato joao@example.com telefone 11 99999-9999"
	msg := BuildMessage(ctx)

	assert.Contains(t, msg.Text, "***@example.com")
	assert.NotContains(t, msg.Text, "joao@example.com")
	assert.NotContains(t, msg.Text, "99999-9999")
}

// HTML and raw URLs are stripped; URLs become a placeholder.
func TestBuildMessage_Sanitizes(t *testing.T) {
	ctx := testContext()
	ctx.Details = "veja <b>isto</b> em https://example.com/page?q=1 agora"
	msg := BuildMessage(ctx)

	assert.Contains(t, msg.Text, "veja isto em [link] agora")
	assert.NotContains(t, msg.Text, "<b>")
	assert.NotContains(t, msg.Text, "https://example.com")
}

func TestBuildMessage_TruncatesSummary(t *testing.T) {
	ctx := testContext()
	ctx.Summary = strings.Repeat("x", SummaryMaxChars+50)
	msg := BuildMessage(ctx)

	lines := strings.Split(msg.Text, "\n")
	assert.Len(t, lines[1], SummaryMaxChars)
	assert.True(t, strings.HasSuffix(lines[1], "..."))
}

// At most three links are carried; empty optional fields render as dashes.
func TestBuildMessage_LinksAndDefaults(t *testing.T) {
	ctx := testContext()
	ctx.Links = []string{"a", "b", "c", "d"}
	ctx.Category = ""
	ctx.Priority = ""
	ctx.RequestedBy = ""
	msg := BuildMessage(ctx)

	assert.Contains(t, msg.Text, "Link: c")
	assert.NotContains(t, msg.Text, "Link: d")

	fields := msg.Blocks[1]["fields"].([]map[string]any)
	assert.Equal(t, "*Prioridade*\n-", fields[1]["text"])
	assert.Equal(t, "*Categoria*\n-", fields[2]["text"])

	last := msg.Blocks[len(msg.Blocks)-1]
	elements := last["elements"].([]map[string]any)
	assert.Equal(t, "Solicitado por: n/d", elements[len(elements)-1]["text"])
}
