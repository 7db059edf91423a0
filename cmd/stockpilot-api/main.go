package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stockpilot/stockpilot/internal/api"
	"github.com/stockpilot/stockpilot/internal/auth"
	"github.com/stockpilot/stockpilot/internal/chart"
	"github.com/stockpilot/stockpilot/internal/config"
	"github.com/stockpilot/stockpilot/internal/insight"
	"github.com/stockpilot/stockpilot/internal/intent"
	"github.com/stockpilot/stockpilot/internal/nl2sql"
	"github.com/stockpilot/stockpilot/internal/observability"
	"github.com/stockpilot/stockpilot/internal/pipeline"
	"github.com/stockpilot/stockpilot/internal/reports"
	"github.com/stockpilot/stockpilot/internal/shape"
	"github.com/stockpilot/stockpilot/internal/snapshot"
	"github.com/stockpilot/stockpilot/internal/telephony"
	"github.com/stockpilot/stockpilot/internal/voice"
	"github.com/stockpilot/stockpilot/internal/voice/vapi"
)

func main() {
	cfg, err := config.LoadFromEnv("stockpilot-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	ctx := context.Background()

	objects, err := openObjectStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}
	inv, err := openBackend(ctx, cfg, objects, logger)
	if err != nil {
		logger.Error("failed to open inventory backend", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = inv.close() }()

	completer, err := openOracle(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize language model", slog.Any("error", err))
		os.Exit(1)
	}

	reportService := reports.NewService(inv.store)
	charts := chart.NewSynthesizer(chart.NewPlanner(completer, cfg.AI.ChartSampleRows, logger))
	translator := nl2sql.NewTranslator(completer)
	answerer := &pipeline.Service{
		Translator: translator,
		Executor:   shape.NewExecutor(inv.store, logger),
		Insight:    insight.NewGenerator(completer, cfg.AI.InsightMaxRows, logger),
		Logger:     logger,
	}
	if cfg.AI.ChartsEnabled {
		answerer.Charts = charts
	}

	deps := api.Dependencies{
		Logger:            logger,
		Answerer:          answerer,
		Translator:        translator,
		Store:             inv.store,
		Reports:           reportService,
		Charts:            charts,
		Snapshots:         snapshot.NewExporter(inv.store, objects),
		Readiness:         api.CombineReadinessChecks(api.CheckStore(inv.store), inv.health),
		DependencyTimeout: time.Second,
	}

	if cfg.Voice.Enabled {
		bridgeConfig := voice.Config{
			Answerer:   answerer,
			Classifier: intent.NewClassifier(completer, intent.Mode(cfg.AI.IntentMode), logger),
			Summarizer: reportService,
			Logger:     logger,
		}
		if cfg.Voice.APIKey != "" {
			sender, err := vapi.NewClient(vapi.Config{BaseURL: cfg.Voice.BaseURL, APIKey: cfg.Voice.APIKey}, nil)
			if err != nil {
				logger.Error("failed to initialize voice platform client", slog.Any("error", err))
				os.Exit(1)
			}
			bridgeConfig.Sender = sender
		} else {
			logger.Warn("voice api key not set; spoken answers are returned in webhook responses only")
		}
		bridge, err := voice.NewBridge(bridgeConfig)
		if err != nil {
			logger.Error("failed to initialize voice bridge", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Voice = bridge
	}

	if cfg.Telephony.Enabled {
		telephonyConfig := telephony.Config{
			AccountSID:    cfg.Telephony.AccountSID,
			AuthToken:     cfg.Telephony.AuthToken,
			FromNumber:    cfg.Telephony.FromNumber,
			SellerNumber:  cfg.Telephony.SellerNumber,
			PublicBaseURL: cfg.Telephony.PublicBaseURL,
		}
		caller, err := telephony.NewTwilioCaller(telephonyConfig)
		if err != nil {
			logger.Error("failed to initialize twilio client", slog.Any("error", err))
			os.Exit(1)
		}
		negotiator, err := telephony.NewNegotiator(telephonyConfig, caller, inv.store, logger)
		if err != nil {
			logger.Error("failed to initialize negotiator", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Negotiator = negotiator
		deps.TelephonyWebhookAuth = telephony.SignatureMiddleware(cfg.Telephony.AuthToken, cfg.Telephony.PublicBaseURL)
	}

	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Snapshot.Interval > 0 {
		scheduler := &snapshot.Scheduler{
			Refresher: inv.refresher,
			Interval:  cfg.Snapshot.Interval,
			Keep:      cfg.Snapshot.Keep,
			Logger:    logger,
		}
		if inv.refresher == nil {
			scheduler.Exporter = snapshot.NewExporter(inv.store, objects)
		}
		go func() {
			if err := scheduler.Run(ctx); err != nil {
				logger.Error("snapshot scheduler stopped", slog.Any("error", err))
			}
		}()
	}

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("backend", cfg.Backend.Driver),
			slog.String("ai_provider", cfg.AI.Provider),
			slog.Bool("voice", deps.Voice != nil),
			slog.Bool("telephony", deps.Negotiator != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
