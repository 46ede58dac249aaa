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
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/Switchboard/pkg/textutil"
	"github.com/AleutianAI/Switchboard/services/guardrails"
	"github.com/AleutianAI/Switchboard/services/llm"
	"github.com/AleutianAI/Switchboard/services/retrieval"
	"github.com/AleutianAI/Switchboard/services/switchboard/datatypes"
)

var knowledgeTracer = otel.Tracer("switchboard.agents.knowledge")

// DefaultFallbackURLs are cited when the index contributed nothing to an
// answer and the config names no alternatives.
var DefaultFallbackURLs = []string{"https://www.infinitepay.io"}

const knowledgeSystemPrompt = "You are the knowledge assistant. Use only the provided context to answer. " +
	"Respond in English using 2 to 5 sentences and always cite the relevant sources. " +
	"If the context does not cover the request, be explicit about that."

// KnowledgeConfig bounds the retrieval work per request.
type KnowledgeConfig struct {
	Enabled         bool
	TopK            int
	MaxContextChars int

	// FallbackURLs override DefaultFallbackURLs when non-empty.
	FallbackURLs []string
}

// cachedRetrieval is the memoized product of one retrieval pass.
type cachedRetrieval struct {
	Context string
	Chunks  []retrieval.Chunk
}

// userHistory is the per-user memory entry.
type userHistory struct {
	LastMessage string
}

// KnowledgeAgent answers from the document index. Retrieval results are
// memoized per normalized query; a tiny per-user memory lets repeat visitors
// get a continuity nod in greetings and fallbacks.
type KnowledgeAgent struct {
	cfg        KnowledgeConfig
	client     llm.Client
	index      *retrieval.Index
	reranker   *retrieval.Reranker
	cache      *retrieval.TTLCache
	citations  *retrieval.CitationBuilder
	guardrails *guardrails.Pipeline
	logger     *slog.Logger
}

// NewKnowledgeAgent wires the retrieval components. The cache and guardrails
// pipeline are shared with the rest of the gateway.
func NewKnowledgeAgent(
	cfg KnowledgeConfig,
	client llm.Client,
	index *retrieval.Index,
	reranker *retrieval.Reranker,
	cache *retrieval.TTLCache,
	citations *retrieval.CitationBuilder,
	pipeline *guardrails.Pipeline,
	logger *slog.Logger,
) *KnowledgeAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &KnowledgeAgent{
		cfg:        cfg,
		client:     client,
		index:      index,
		reranker:   reranker,
		cache:      cache,
		citations:  citations,
		guardrails: pipeline,
		logger:     logger,
	}
}

func (a *KnowledgeAgent) Name() string { return "knowledge" }

func (a *KnowledgeAgent) fallbackURLs() []string {
	if len(a.cfg.FallbackURLs) > 0 {
		return a.cfg.FallbackURLs
	}
	return DefaultFallbackURLs
}

// Run answers one message from the index, falling back to a canned reply
// when retrieval yields nothing or the index is disabled.
func (a *KnowledgeAgent) Run(ctx context.Context, req Request) (datatypes.AgentResponse, error) {
	ctx, span := knowledgeTracer.Start(ctx, "knowledge.Run")
	defer span.End()

	start := time.Now()
	query := strings.TrimSpace(req.Message)
	normalized := strings.ToLower(query)

	previousMessage := a.lastUserMessage(req.UserID)
	remembered := previousMessage != ""

	if !a.cfg.Enabled {
		resp := a.fallbackResponse(query, false, remembered)
		resp.Meta.DurationMS = durationMS(start)
		a.recordUserMessage(req.UserID, query)
		return resp, nil
	}

	var (
		contextText string
		selected    []retrieval.Chunk
		cacheHit    bool
	)
	if cached, ok := a.cache.Get(retrieval.QueryKey(normalized)); ok {
		if entry, valid := cached.(cachedRetrieval); valid {
			contextText, selected, cacheHit = entry.Context, entry.Chunks, true
		}
	}
	if !cacheHit {
		retrieved, err := a.index.Retrieve(ctx, query, a.cfg.TopK)
		if err != nil {
			span.RecordError(err)
			return datatypes.AgentResponse{}, &ControlledError{
				Code:       "knowledge_agent_unavailable",
				StatusCode: 503,
				Details:    "The document index could not be read.",
				Agent:      a.Name(),
				Err:        err,
			}
		}
		reranked := a.reranker.Rerank(query, retrieved)
		filtered := retrieval.FilterChunks(reranked)
		filtered = a.guardrails.FilterContext(filtered)
		contextText, selected = retrieval.BuildContext(filtered, a.cfg.MaxContextChars)
		a.cache.Set(retrieval.QueryKey(normalized), cachedRetrieval{Context: contextText, Chunks: selected})
	}

	ragUsed := contextText != ""
	span.SetAttributes(
		attribute.Bool("knowledge.rag_used", ragUsed),
		attribute.Bool("knowledge.cache_hit", cacheHit),
		attribute.Int("knowledge.selected", len(selected)),
	)

	if !ragUsed {
		resp := a.fallbackResponse(query, cacheHit, remembered)
		resp.Meta.DurationMS = durationMS(start)
		a.recordUserMessage(req.UserID, query)
		return resp, nil
	}

	content, err := a.generateAnswer(ctx, query, previousMessage, contextText)
	if err != nil {
		span.RecordError(err)
		return datatypes.AgentResponse{}, &ControlledError{
			Code:       "knowledge_agent_unavailable",
			StatusCode: 503,
			Details:    "The language model could not be reached.",
			Agent:      a.Name(),
			Err:        err,
		}
	}

	resp := datatypes.AgentResponse{
		Agent:     a.Name(),
		Content:   collapseWhitespace(content),
		Citations: a.citations.Build(selected, a.fallbackURLs(), nil),
		Meta: datatypes.ResponseMeta{
			RAGUsed:                   true,
			TopKSelected:              len(selected),
			AvgScore:                  averageScore(selected),
			CacheHit:                  cacheHit,
			DurationMS:                durationMS(start),
			PreviousMessageRemembered: remembered,
		},
	}
	a.recordUserMessage(req.UserID, query)
	return resp, nil
}

// generateAnswer composes the context-grounded prompt. Without a configured
// model it degrades to quoting the strongest chunk.
func (a *KnowledgeAgent) generateAnswer(ctx context.Context, query, previousMessage, contextText string) (string, error) {
	if a.client == nil {
		first, _, _ := strings.Cut(contextText, "\n\n")
		return first, nil
	}

	conversationLines := []string{fmt.Sprintf("Latest user message: %s", query)}
	if previousMessage != "" {
		conversationLines = append([]string{fmt.Sprintf("Previous user message: %s", previousMessage)}, conversationLines...)
	}
	userPrompt := fmt.Sprintf(
		"Conversation snapshot:\n%s\n\nSupport context:\n%s\n\nInstruction: deliver a concise answer, in English, and cite the supporting sources by name.",
		strings.Join(conversationLines, "\n"),
		contextText,
	)
	temp := float32(0.2)
	return a.client.Generate(ctx, knowledgeSystemPrompt, userPrompt, llm.GenerationParams{Temperature: &temp})
}

func (a *KnowledgeAgent) fallbackResponse(query string, cacheHit, remembered bool) datatypes.AgentResponse {
	var content string
	switch {
	case isSimpleGreeting(query) && remembered:
		content = "Olá novamente! Como posso ajudar você desta vez?"
	case isSimpleGreeting(query):
		content = "Olá! Como posso ajudar você hoje?"
	case remembered:
		content = "Ainda não encontrei informações suficientes na base de conhecimento, " +
			"mas estou acompanhando sua solicitação. Pode me contar um pouco mais " +
			"sobre o que você precisa para que eu possa ajudar melhor?"
	default:
		content = "Ainda não encontrei informações suficientes na base de conhecimento para responder com precisão. " +
			"Pode compartilhar mais detalhes? Estou aqui para ajudar!"
	}
	return datatypes.AgentResponse{
		Agent:     a.Name(),
		Content:   content,
		Citations: a.citations.Build(nil, a.fallbackURLs(), nil),
		Meta: datatypes.ResponseMeta{
			CacheHit:                  cacheHit,
			FallbackUsed:              true,
			PreviousMessageRemembered: remembered,
		},
	}
}

func (a *KnowledgeAgent) lastUserMessage(userID string) string {
	if userID == "" {
		return ""
	}
	if stored, ok := a.cache.Get(retrieval.UserHistoryKey(userID)); ok {
		if history, valid := stored.(userHistory); valid {
			return history.LastMessage
		}
	}
	return ""
}

func (a *KnowledgeAgent) recordUserMessage(userID, message string) {
	if userID == "" {
		return
	}
	a.cache.Set(retrieval.UserHistoryKey(userID), userHistory{LastMessage: message})
}

func averageScore(chunks []retrieval.Chunk) float64 {
	var sum float64
	var n int
	for i := range chunks {
		if score := chunks[i].Score(); score > 0 {
			sum += score
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Round(sum/float64(n)*1000) / 1000
}

func durationMS(start time.Time) float64 {
	return math.Round(float64(time.Since(start).Microseconds())/1000*100) / 100
}

var greetingWords = map[string]struct{}{
	"oi": {}, "ola": {}, "hello": {}, "hi": {}, "hey": {}, "eai": {}, "eae": {},
}

var greetingPhrases = map[string]struct{}{
	"bom dia": {}, "boa tarde": {}, "boa noite": {},
	"ola bom dia": {}, "ola boa tarde": {}, "ola boa noite": {},
}

// isSimpleGreeting reports whether the message is nothing but a salutation.
func isSimpleGreeting(text string) bool {
	cleaned := textutil.FoldAccents(strings.ToLower(text))
	var b strings.Builder
	for _, r := range cleaned {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	cleaned = collapseWhitespace(b.String())
	if cleaned == "" {
		return false
	}
	if _, ok := greetingPhrases[cleaned]; ok {
		return true
	}
	if _, ok := greetingWords[cleaned]; ok {
		return true
	}
	words := strings.Fields(cleaned)
	if len(words) <= 3 {
		if _, ok := greetingWords[words[0]]; ok {
			return true
		}
		if len(words) >= 2 {
			if _, ok := greetingPhrases[words[0]+" "+words[1]]; ok {
				return true
			}
		}
	}
	return false
}
