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

	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/Switchboard/services/llm"
	"github.com/AleutianAI/Switchboard/services/switchboard/datatypes"
)

var customTracer = otel.Tracer("switchboard.agents.custom")

const customMaxResponseChars = 1500

const customSystemPrompt = "You are the generic assistant. Handle generic or out-of-scope messages with a professional" +
	" and succinct tone. Explain that the message nao se enquadra nas categorias atuais" +
	" (knowledge/support) e convide o usuario a reformular. Responda em PT-BR."

const customFallbackContent = "Ainda nao entendi como posso ajudar. Reformule a pergunta escolhendo" +
	" se deseja informacoes sobre o produto (knowledge) ou suporte tecnico."

// CustomAgent is the persona fallback for messages no specialized agent
// claims. Without a configured model it answers with a fixed redirection.
type CustomAgent struct {
	client llm.Client
	logger *slog.Logger
}

// NewCustomAgent creates a CustomAgent. client may be nil.
func NewCustomAgent(client llm.Client, logger *slog.Logger) *CustomAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &CustomAgent{client: client, logger: logger}
}

func (a *CustomAgent) Name() string { return "custom" }

// Run produces the generic reply.
func (a *CustomAgent) Run(ctx context.Context, req Request) (datatypes.AgentResponse, error) {
	ctx, span := customTracer.Start(ctx, "custom.Run")
	defer span.End()

	content := ""
	if a.client != nil {
		temp := float32(0.2)
		raw, err := a.client.Generate(ctx, customSystemPrompt, req.Message, llm.GenerationParams{Temperature: &temp})
		if err != nil {
			span.RecordError(err)
			return datatypes.AgentResponse{}, &ControlledError{
				Code:       "custom_agent_unavailable",
				StatusCode: 503,
				Details:    "Assistente generico indisponivel.",
				Agent:      a.Name(),
				Err:        err,
			}
		}
		content = truncateRunes(collapseWhitespace(raw), customMaxResponseChars)
	}
	if content == "" {
		content = customFallbackContent
	}

	return datatypes.AgentResponse{
		Agent:   a.Name(),
		Content: content,
		Meta:    datatypes.ResponseMeta{Notes: "custom_v1"},
	}, nil
}
