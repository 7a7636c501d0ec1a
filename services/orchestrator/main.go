// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/factlens/factlens/pkg/logging"
	"github.com/factlens/factlens/services/llm"
	"github.com/factlens/factlens/services/orchestrator/cache"
	"github.com/factlens/factlens/services/orchestrator/executor"
	"github.com/factlens/factlens/services/orchestrator/feedback"
	"github.com/factlens/factlens/services/orchestrator/geocode"
	"github.com/factlens/factlens/services/orchestrator/observability"
	"github.com/factlens/factlens/services/orchestrator/pipeline"
	"github.com/factlens/factlens/services/orchestrator/planner"
	"github.com/factlens/factlens/services/orchestrator/prompt"
	"github.com/factlens/factlens/services/orchestrator/rank"
	"github.com/factlens/factlens/services/orchestrator/routes"
	"github.com/factlens/factlens/services/orchestrator/search"
	"github.com/factlens/factlens/services/orchestrator/synthesizer"
	"github.com/factlens/factlens/services/orchestrator/weather"

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

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		// Tracing is optional; without a collector we install a no-op
		// provider so span calls stay cheap.
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return func(context.Context) {}, nil
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("factlens-orchestrator")))
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
	port := os.Getenv("ORCHESTRATOR_PORT")
	if port == "" {
		port = "12210"
	}

	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		LogDir:  os.Getenv("FACTLENS_LOG_DIR"),
		Service: "orchestrator",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	dataDir := os.Getenv("FACTLENS_DATA_DIR")
	if dataDir == "" {
		dataDir = "/var/lib/factlens"
		slog.Info("FACTLENS_DATA_DIR not set, using default", "dir", dataDir)
	}

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	metrics := observability.InitMetrics()

	if path := os.Getenv("RANK_OVERRIDES_PATH"); path != "" {
		if err := rank.LoadOverrides(path); err != nil {
			log.Fatalf("Failed to load rank overrides from %s: %v", path, err)
		}
	}

	gateway, err := llm.NewGateway()
	if err != nil {
		log.Fatalf("Failed to initialize LLM gateway: %v", err)
	}

	promptDir := os.Getenv("PROMPT_OVERRIDE_DIR")
	prompts, err := prompt.NewRegistry(promptDir)
	if err != nil {
		log.Fatalf("Failed to load prompt templates: %v", err)
	}
	if promptDir != "" {
		if err := prompts.Watch(); err != nil {
			slog.Warn("Prompt hot-reload unavailable", "error", err)
		}
		defer prompts.Stop()
	}

	embedder := cache.NewHTTPEmbedder()

	semanticCache, err := cache.New(embedder, dataDir+"/cache")
	if err != nil {
		log.Fatalf("Failed to open semantic cache: %v", err)
	}
	defer semanticCache.Close()

	feedbackStore, err := feedback.Open(embedder, dataDir+"/feedback")
	if err != nil {
		log.Fatalf("Failed to open feedback store: %v", err)
	}
	defer feedbackStore.Close()

	resolver := geocode.NewResolver()

	weatherAPI, err := weather.NewProvider(resolver)
	if err != nil {
		slog.Warn("Weather provider unavailable, relying on CLI fallback", "error", err)
	}

	providers := search.Available()

	// Avoid wrapping typed nils in the interfaces when a backend is
	// disabled by its environment.
	var weatherIface executor.WeatherAPI
	if weatherAPI != nil {
		weatherIface = weatherAPI
	}
	var cliIface executor.WeatherFallback
	if cli := executor.NewCLIFallback(); cli != nil {
		cliIface = cli
	}
	exec := executor.New(providers, weatherIface, cliIface)

	plnr := planner.New(gateway, prompts, resolver, feedbackStore)
	synth := synthesizer.New(gateway, prompts, feedbackStore)
	pipe := pipeline.New(semanticCache, plnr, exec, synth, metrics)

	refresher := cache.NewRefresher(semanticCache, pipe.RefreshFunc(), cache.DefaultRefresherConfig())
	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	if err := refresher.Start(refreshCtx); err != nil {
		log.Fatalf("Failed to start cache refresher: %v", err)
	}
	defer func() {
		stopRefresh()
		refresher.Stop()
	}()

	router := gin.Default()
	router.Use(otelgin.Middleware("factlens-orchestrator"))
	routes.SetupRoutes(router, pipe, feedbackStore, metrics)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		slog.Info("Starting the orchestrator server", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Block until SIGINT/SIGTERM, then drain in-flight requests.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("Shutdown signal received, draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}
