// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/Switchboard/pkg/config"
	"github.com/AleutianAI/Switchboard/pkg/logging"
	"github.com/AleutianAI/Switchboard/services/guardrails"
	"github.com/AleutianAI/Switchboard/services/handoff"
	"github.com/AleutianAI/Switchboard/services/llm"
	"github.com/AleutianAI/Switchboard/services/retrieval"
	"github.com/AleutianAI/Switchboard/services/slack"
	"github.com/AleutianAI/Switchboard/services/support"
	"github.com/AleutianAI/Switchboard/services/support/storage"
	"github.com/AleutianAI/Switchboard/services/switchboard/agents"
	"github.com/AleutianAI/Switchboard/services/switchboard/datatypes"
	"github.com/AleutianAI/Switchboard/services/switchboard/handlers"
	"github.com/AleutianAI/Switchboard/services/switchboard/middleware"
	"github.com/AleutianAI/Switchboard/services/switchboard/observability"
	"github.com/AleutianAI/Switchboard/services/switchboard/routes"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if endpoint == "" {
		// No collector configured; spans stay in-process no-ops.
		return func(context.Context) {}, nil
	}

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("switchboard-gateway")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	cfg, err := config.Load(os.Getenv("SWITCHBOARD_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, closeLogs, err := logging.Setup(cfg.LoggerConfig("switchboard-gateway"))
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer func() {
		if err := closeLogs(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}()

	// --- Init the tracer ---
	cleanup, err := initTracer(cfg.Server.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	pipeline, err := guardrails.NewPipeline(cfg.GuardrailsConfig())
	if err != nil {
		log.Fatalf("failed to build guardrails pipeline: %v", err)
	}

	llmClient, err := llm.New(cfg.LLMConfig())
	if err != nil {
		log.Fatalf("failed to build llm client: %v", err)
	}
	if llmClient == nil {
		slog.Warn("no llm provider configured, agents run in template mode")
	}

	storageCfg := storage.DefaultConfig(cfg.Support.DBPath)
	storageCfg.Logger = logger
	db, err := storage.Open(storageCfg)
	if err != nil {
		log.Fatalf("failed to open support database: %v", err)
	}
	defer db.Close()

	index := retrieval.NewIndex(cfg.IndexConfig())
	reranker := retrieval.NewReranker(cfg.RerankerConfig())
	cache := retrieval.NewTTLCache(cfg.CacheTTL())
	citations := retrieval.NewCitationBuilder(cfg.CitationConfig())

	store := handoff.NewStore(cfg.HandoffTTL())
	redirect := handoff.NewRedirectEngine(cfg.RedirectConfig())
	slackClient := slack.New(cfg.SlackClientConfig(), logger)
	supportService := support.NewService(cfg.SupportConfig(), db, logger)

	knowledgeAgent := agents.NewKnowledgeAgent(
		agents.KnowledgeConfig{
			Enabled:         cfg.Retrieval.Enabled,
			TopK:            cfg.Retrieval.TopK,
			MaxContextChars: cfg.Retrieval.MaxContextChars,
			FallbackURLs:    cfg.Retrieval.FallbackURLs,
		},
		llmClient, index, reranker, cache, citations, pipeline, logger,
	)
	slackAgent := agents.NewSlackAgent(
		agents.SlackAgentConfig{
			AgentEnabled:     cfg.Slack.AgentEnabled,
			DeliveryEnabled:  cfg.Slack.Enabled,
			Channel:          cfg.Slack.DefaultChannel,
			PIIMasking:       cfg.Support.PIIMaskingEnabled,
			MaxResponseChars: cfg.Support.MaxDescriptionChars,
		},
		slackClient, store, logger,
	)

	deps := &handlers.Deps{
		Guardrails: pipeline,
		Router:     agents.NewRouter(llmClient, logger),
		Agents: map[datatypes.Route]agents.Agent{
			datatypes.RouteKnowledge: knowledgeAgent,
			datatypes.RouteSupport:   agents.NewSupportAgent(supportService, cfg.Support.MaxDescriptionChars, logger),
			datatypes.RouteCustom:    agents.NewCustomAgent(llmClient, logger),
			datatypes.RouteSlack:     slackAgent,
		},
		Redirect:         redirect,
		Handoffs:         store,
		Support:          supportService,
		Index:            index,
		Reranker:         reranker,
		Citations:        citations,
		RetrievalEnabled: cfg.Retrieval.Enabled,
		Metrics:          observability.InitMetrics(),
		Logger:           logger,
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("switchboard-gateway"))
	router.Use(middleware.Correlation())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst)))

	routes.SetupRoutes(router, deps, routes.Options{
		DiagnosticsEnabled: cfg.Server.DiagnosticsEnabled,
		TopK:               cfg.Retrieval.TopK,
		MaxContextChars:    cfg.Retrieval.MaxContextChars,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("switchboard gateway listening", "addr", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
