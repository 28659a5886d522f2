// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command nlq starts the Aleutian NLQ API server.
//
// Aleutian NLQ answers natural-language questions against a GraphQL API:
//   - Lazy schema introspection with an embedded fallback description
//   - LLM-generated GraphQL, executed and composed into a plain answer
//   - BadgerDB query history with a 30-day TTL
//
// Usage:
//
//	go run ./cmd/nlq
//	go run ./cmd/nlq -port 9090
//
// Required environment:
//
//	OPENAI_API_KEY, OPENAI_API_VERSION, OPENAI_API_ENDPOINT, GRAPHQL_API_URL
//
// Optional environment:
//
//	OPENAI_DEPLOYMENT (default gpt-4o), NLQ_HISTORY_DIR, NLQ_LLM_RPM,
//	OTEL_EXPORTER_OTLP_ENDPOINT
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/nlq/health
//
//	# Ask a question
//	curl -X POST http://localhost:8080/v1/nlq/query \
//	  -H "Content-Type: application/json" \
//	  -d '{"q": "show me the last 3 jobs"}'
//
//	# Inspect the schema description the agent prompts with
//	curl http://localhost:8080/v1/nlq/schema | jq
//
//	# Recent query history
//	curl http://localhost:8080/v1/nlq/history?limit=10 | jq
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/AleutianAI/AleutianNLQ/services/graphql"
	"github.com/AleutianAI/AleutianNLQ/services/llm"
	"github.com/AleutianAI/AleutianNLQ/services/nlq"
	"github.com/AleutianAI/AleutianNLQ/services/nlq/agent"
	"github.com/AleutianAI/AleutianNLQ/services/nlq/history"
	badgerstore "github.com/AleutianAI/AleutianNLQ/services/nlq/storage/badger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	// Set Gin mode
	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Set up W3C TraceContext propagation so trace context flows from
	// incoming HTTP headers through all handlers and the pipeline spans.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Load configuration. A missing required variable is fatal: the agent
	// cannot generate or execute anything without its model and data API.
	cfg, err := nlq.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Span export is optional. Serving must not block on a collector.
	ctx := context.Background()
	tracerProvider, err := setupTracing(ctx, cfg.OTLPEndpoint, *debug)
	if err != nil {
		slog.Warn("Tracing exporter unavailable, spans will not be exported",
			slog.String("error", err.Error()))
	}

	// Build the pipeline: Azure OpenAI chat client (rate-limited when
	// configured), GraphQL data API client, and the agent over both.
	azureClient, err := llm.NewAzureOpenAIClientWithConfig(llm.AzureOpenAIConfig{
		APIKey:     cfg.OpenAIAPIKey,
		Endpoint:   cfg.OpenAIEndpoint,
		APIVersion: cfg.OpenAIAPIVersion,
		Deployment: cfg.OpenAIDeployment,
	})
	if err != nil {
		slog.Error("Failed to create Azure OpenAI client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	chat := llm.WithRateLimit(azureClient, cfg.LLMRequestsPerMinute)

	apiClient := graphql.NewClient(cfg.GraphQLAPIURL)

	nlqAgent, err := agent.New(chat, apiClient)
	if err != nil {
		slog.Error("Failed to create agent", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Open the query history BadgerDB. Graceful degradation: if the store
	// is unavailable, the server answers questions without recording them.
	var historyStore history.Store
	historyDir := cfg.HistoryDir
	if historyDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			historyDir = filepath.Join(home, ".aleutian", "nlq", "history")
		}
	}
	var historyDB *badgerstore.DB
	if historyDir != "" {
		dbCfg := badgerstore.DefaultConfig()
		dbCfg.Path = historyDir
		db, err := badgerstore.OpenDB(dbCfg)
		if err != nil {
			slog.Warn("History BadgerDB unavailable, query history disabled",
				slog.String("path", historyDir),
				slog.String("error", err.Error()),
			)
		} else {
			historyDB = db
			historyStore = history.NewBadgerHistoryStore(db, 0, slog.Default())
			slog.Info("History BadgerDB opened", slog.String("path", historyDir))
		}
	}

	// Create service and handlers
	svc := nlq.NewService(nlqAgent, historyStore)
	handlers := nlq.NewHandlers(svc)

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("aleutian-nlq"))
	router.Use(nlq.RequestIDMiddleware())
	if *debug {
		router.Use(gin.Logger())
	}

	// Root welcome and Prometheus metrics live outside the /v1 group.
	router.GET("/", handlers.HandleWelcome)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Register routes under /v1/nlq
	v1 := router.Group("/v1")
	nlq.RegisterRoutes(v1, handlers)

	// Print startup banner
	printBanner(*port, cfg.OpenAIDeployment, historyStore != nil)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down Aleutian NLQ server")
		if historyDB != nil {
			if err := historyDB.Close(); err != nil {
				slog.Warn("Failed to close history BadgerDB", slog.String("error", err.Error()))
			}
		}
		if tracerProvider != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				slog.Warn("Failed to flush tracer provider", slog.String("error", err.Error()))
			}
		}
		os.Exit(0)
	}()

	// Start server
	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Starting Aleutian NLQ server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// setupTracing configures the global tracer provider.
//
// Description:
//
//	Exports spans over OTLP/gRPC when OTEL_EXPORTER_OTLP_ENDPOINT is set
//	(endpoint and TLS are read from the standard OTEL_EXPORTER_OTLP_*
//	variables by the exporter itself), or pretty-prints them to stdout in
//	debug mode. With neither, the default no-op provider stays in place
//	and span creation costs nothing.
//
// Outputs:
//   - *sdktrace.TracerProvider: The installed provider, or nil when no
//     exporter is configured.
//   - error: Non-nil if the exporter cannot be constructed.
func setupTracing(ctx context.Context, otlpEndpoint string, debug bool) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	var err error

	switch {
	case otlpEndpoint != "":
		exporter, err = otlptracegrpc.New(ctx)
	case debug:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating span exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("aleutian-nlq")),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

func printBanner(port int, deployment string, historyEnabled bool) {
	historyStatus := "DISABLED (store unavailable)"
	if historyEnabled {
		historyStatus = "ENABLED (30-day TTL)"
	}

	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                       ALEUTIAN NLQ SERVER                         ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Natural-language questions over your GraphQL API.                ║
║  Model:   %-50s ║
║  History: %-50s ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/v1/nlq/health                │  ║
║  │                                                             │  ║
║  │ # Ask a question                                            │  ║
║  │ curl -X POST http://localhost:%d/v1/nlq/query \       │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"q": "show me the last 3 jobs"}'                     │  ║
║  │                                                             │  ║
║  │ # Inspect the active schema description                     │  ║
║  │ curl http://localhost:%d/v1/nlq/schema | jq           │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── POST /v1/nlq/query    ask a question                        ║
║  ├── GET  /v1/nlq/schema   active schema description             ║
║  ├── GET  /v1/nlq/history  recent query records                  ║
║  ├── GET  /v1/nlq/health   liveness                              ║
║  ├── GET  /v1/nlq/ready    readiness                             ║
║  └── GET  /metrics         Prometheus metrics                    ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, deployment, historyStatus, port, port, port)
}
