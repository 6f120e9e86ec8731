package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slotnik/internal/api"
	"slotnik/internal/config"
	"slotnik/internal/database"
	"slotnik/internal/domain"
	"slotnik/internal/events"
	"slotnik/internal/export"
	"slotnik/internal/logging"
	"slotnik/internal/metrics"
	"slotnik/internal/repository"
	"slotnik/internal/service"
	"slotnik/internal/verification"
	"slotnik/internal/worker"
	"slotnik/internal/workflow"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	codeStore, draftStore := initStores(redisClient, cfg, &logger)

	gate := verification.NewGate(
		codeStore,
		logSender{logger: &logger},
		cfg.Scheduling.CodeTTL(),
		cfg.Scheduling.ResendCooldown(),
		&logger,
	)

	bus := events.NewEventBus()
	sched := service.NewScheduleService(db, cfg.Scheduling.SlotStepMinutes, cfg.Scheduling.MaxAdvanceDays, &logger)
	bookings := service.NewBookingService(db, bus, sched, &logger)
	engine := workflow.NewEngine(db, sched, gate, bookings, &logger)
	exporter := export.NewExporter(db, cfg.Exports.Path, &logger)

	notifyWorker := worker.NewNotifyWorker(logNotifier{logger: &logger}, redisClient, worker.RetryPolicy{}, &logger)
	notifyWorker.BindBus(bus)

	httpServer := api.NewHTTPServer(cfg.API, db, sched, bookings, engine, draftStore, gate, exporter, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go notifyWorker.Start(ctx)
	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	db.SetBusinesses(cfg.Businesses)
	return db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)

	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initStores picks the backing stores. Drafts fail over to memory when redis
// drops; codes never do, their TTL and replacement semantics must live in one
// place.
func initStores(redisClient *redis.Client, cfg *config.Config, logger *zerolog.Logger) (domain.CodeStore, domain.DraftStore) {
	if redisClient == nil {
		return repository.NewMemoryCodeStore(), repository.NewMemoryDraftStore()
	}

	codeStore := repository.NewRedisCodeStore(redisClient)
	drafts := repository.NewFailoverDraftStore(
		repository.NewRedisDraftStore(redisClient, cfg.Scheduling.DraftTTL()),
		repository.NewMemoryDraftStore(),
		logger,
	)
	return codeStore, drafts
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

// logSender stands in for an SMS or voice provider integration; it writes the
// code to the log so local runs can complete the verification step.
type logSender struct {
	logger *zerolog.Logger
}

func (s logSender) SendCode(_ context.Context, phone, channel, code string) error {
	s.logger.Info().Str("phone", phone).Str("channel", channel).Str("code", code).Msg("verification code issued")
	return nil
}

// logNotifier is the default notification sink until a real channel is wired.
type logNotifier struct {
	logger *zerolog.Logger
}

func (n logNotifier) Notify(_ context.Context, payload []byte) error {
	n.logger.Info().RawJSON("payload", payload).Msg("booking notification")
	return nil
}
