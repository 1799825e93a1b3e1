package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/agent"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/api"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/azure"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/brevo"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/config"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/events"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/extractor"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/giphy"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/recommend"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/session"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("uchi starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.AzureOpenAIEndpoint == "" || cfg.AzureOpenAIAPIKey == "" {
		slog.Error("AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY are required")
		os.Exit(1)
	}
	llm := azure.NewClient(azure.Config{
		Endpoint:   cfg.AzureOpenAIEndpoint,
		APIKey:     cfg.AzureOpenAIAPIKey,
		APIVersion: cfg.AzureOpenAIAPIVersion,
		Deployment: cfg.ChatDeployment,
	}, azure.DefaultRetryPolicy(), slog.Default())
	slog.Info("chat client ready", "deployment", cfg.ChatDeployment)

	if cfg.FirestoreProject == "" {
		slog.Error("FIRESTORE_PROJECT is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.FirestoreProject, cfg.FirestoreCredentialsFile, slog.Default())
	if err != nil {
		slog.Error("failed to connect to firestore", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close firestore client", "error", err)
		}
	}()
	slog.Info("firestore connected", "project", cfg.FirestoreProject)

	payloadMode := recommend.PayloadSubmissionID
	if cfg.RecommendationPayload == string(recommend.PayloadRawData) {
		payloadMode = recommend.PayloadRawData
	}

	// Mailer is optional, registration works without the welcome email.
	var mailer *brevo.Client
	if cfg.BrevoAPIKey != "" {
		mailer = brevo.NewClient(cfg.BrevoAPIKey, cfg.BrevoTemplateID, slog.Default())
		slog.Info("brevo mailer ready", "template_id", cfg.BrevoTemplateID)
	} else {
		slog.Warn("brevo not configured, running without welcome emails")
	}

	// Event publisher is optional too.
	var publisher *events.Publisher
	if cfg.NatsURL != "" {
		publisher, err = events.NewPublisher(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured, running without submission events")
	}

	srv := api.NewServer(cfg.Port, api.Deps{
		Sessions:     session.NewManager(),
		Agent:        agent.New(llm, slog.Default()),
		Extractor:    extractor.New(llm, cfg.SignupBaseURL, slog.Default()),
		Store:        db,
		Recommender:  recommend.New(cfg.RecommendationURL, payloadMode, slog.Default()),
		Gifs:         giphy.NewService(cfg.GiphyAPIKey),
		Mailer:       mailer,
		Events:       publisher,
		DashboardURL: cfg.DashboardURL,
		Logger:       slog.Default(),
	})
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("uchi ready", "port", cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("uchi stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
