package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"github.com/wolfman30/easygopharm/cmd/mainconfig"
	"github.com/wolfman30/easygopharm/internal/api/router"
	"github.com/wolfman30/easygopharm/internal/app/bootstrap"
	appconfig "github.com/wolfman30/easygopharm/internal/config"
	"github.com/wolfman30/easygopharm/internal/http/handlers"
	"github.com/wolfman30/easygopharm/internal/lifecycle"
	"github.com/wolfman30/easygopharm/internal/notify"
	"github.com/wolfman30/easygopharm/internal/voice"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting easygopharm API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	app, cleanup := buildServer(ctx, cfg, logger)
	defer cleanup()

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Let detached notification fan-outs finish before exiting.
	app.lifecycle.Wait()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

type server struct {
	handler   http.Handler
	lifecycle *lifecycle.Service
}

// buildServer wires every component from configuration. Each optional
// provider degrades independently when its settings are absent.
func buildServer(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*server, func()) {
	m := bootstrap.BuildMetrics()

	var awsCfg *aws.Config
	if loaded, err := mainconfig.LoadAWSConfig(ctx, cfg); err != nil {
		logger.Warn("AWS config unavailable; SES, S3 and Bedrock disabled", "error", err)
	} else {
		awsCfg = &loaded
	}

	store, closeStore := bootstrap.BuildStore(ctx, cfg, logger)
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	sessions := bootstrap.BuildSessions(cfg, redisClient, logger)

	dispatcher := bootstrap.BuildDispatcher(cfg, awsCfg, m.Notify, logger)
	notifier := bootstrap.BuildNotifier(cfg, dispatcher, logger)
	svc := lifecycle.NewService(store, notifier, sessions, logger)

	analyzer := bootstrap.BuildAnalyzer(ctx, cfg, awsCfg, m.AI, logger)
	assistant, closeAssistant := bootstrap.BuildAssistant(ctx, cfg, awsCfg, m.AI, logger)
	connector := bootstrap.BuildVoiceConnector(ctx, cfg, logger)

	secureCookies := cfg.Env == "production"
	h := router.New(&router.Config{
		Logger:             logger,
		Intake:             handlers.NewIntakeHandler(svc, logger),
		Auth:               handlers.NewAuthHandler(svc, sessions, secureCookies, logger),
		Admin:              handlers.NewAdminHandler(svc, analyzer, logger),
		Assistant:          handlers.NewAssistantHandler(assistant, logger),
		Sessions:           sessions,
		Notify:             notify.NewHandler(dispatcher, logger).WithSecret(cfg.NotifySecret),
		Voice:              voice.NewHandler(connector, cfg.CORSAllowedOrigins, m.Voice, logger),
		MetricsHandler:     m.Handler,
		StorageLive:        store.Live,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
	})

	cleanup := func() {
		closeAssistant()
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed to close redis client", "error", err)
			}
		}
		closeStore()
	}
	return &server{handler: h, lifecycle: svc}, cleanup
}
