package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voxlane/call-bridge-go/internal/bridge"
	"github.com/voxlane/call-bridge-go/internal/config"
	"github.com/voxlane/call-bridge-go/internal/database"
	"github.com/voxlane/call-bridge-go/internal/handler"
	"github.com/voxlane/call-bridge-go/internal/jobs"
	"github.com/voxlane/call-bridge-go/internal/middleware"
	"github.com/voxlane/call-bridge-go/internal/redis"
	"github.com/voxlane/call-bridge-go/internal/repository"
	"github.com/voxlane/call-bridge-go/internal/service"
	"github.com/voxlane/call-bridge-go/internal/telephony"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	callRepo := repository.NewCallRepository(db.DB)
	agentRepo := repository.NewAgentRepository(db.DB)
	campaignRepo := repository.NewCampaignRepository(db.DB)
	connectionRepo := repository.NewPhoneConnectionRepository(db.DB)
	flowRepo := repository.NewFlowExecutionRepository(db.DB)
	ledgerRepo := repository.NewLedgerRepository(db)

	telephonyClient := telephony.NewClient(
		cfg.TelephonyBaseURL, cfg.TelephonyAccountSID, cfg.TelephonyAuthToken,
	)
	engineClient := bridge.NewEngineClient(cfg.EngineBaseURL, cfg.EngineAPIKey)

	creditService := service.NewCreditService(ledgerRepo)
	matcher := service.NewMatcher(callRepo, agentRepo, campaignRepo, connectionRepo)
	webhookSender := service.NewWebhookSender(cfg.CustomerWebhookURL, cfg.CustomerWebhookSecret)
	completionProcessor := service.NewCompletionProcessor(
		matcher, callRepo, flowRepo, creditService, webhookSender, redisClient,
		cfg.DefaultPricePerMinute,
	)

	registry := bridge.NewRegistry()
	toolDispatcher := bridge.NewToolDispatcher(
		callRepo, agentRepo, campaignRepo, connectionRepo, telephonyClient,
	)
	bridgeManager := bridge.NewManager(
		registry, callRepo, agentRepo, telephonyClient, engineClient,
		nil, toolDispatcher, bridge.NewAssembler(callRepo), cfg.SilenceTimeout(),
	)

	mediaHandler := handler.NewMediaHandler(bridgeManager)
	completionHandler := handler.NewCompletionHandler(completionProcessor)
	statusHandler := handler.NewStatusHandler(callRepo)
	outboundHandler := handler.NewOutboundHandler(callRepo, agentRepo)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"sessions":  registry.Count(),
			"timestamp": time.Now().UnixMilli(),
		})
	})

	// Websocket upgrades must not sit behind the request timeout.
	r.Get("/telephony/media", mediaHandler.Stream)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(middleware.BodyLimit(2 << 20))

		r.Route("/engine", func(r chi.Router) {
			r.Use(middleware.SignatureVerifier(cfg.EngineWebhookSecret, cfg.WebhookVerifyDisabled))
			r.Post("/webhook", completionHandler.Webhook)
		})

		r.Post("/telephony/status", statusHandler.Callback)

		r.Route("/v1/calls", func(r chi.Router) {
			r.Use(middleware.DialRateLimiter(redisClient, config.DialRateLimitPerMin, "X-User-ID"))
			r.Post("/outbound", outboundHandler.Dial)
		})
	})

	sweeper := jobs.NewStaleCallSweeper(callRepo, cfg.StaleCallMaxAge(), config.StaleCallSweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		// WriteTimeout stays zero: media streams are long-lived.
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
