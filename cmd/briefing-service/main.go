package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-market-briefing/internal/briefing/config"
	delivery "golang-market-briefing/internal/briefing/delivery/http"
	"golang-market-briefing/internal/briefing/repository"
	"golang-market-briefing/internal/briefing/service"
	"golang-market-briefing/internal/entity"
	"golang-market-briefing/pkg/logger"
	"golang-market-briefing/pkg/postgres"
	"golang-market-briefing/pkg/redis"
	"golang-market-briefing/pkg/telegram"

	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"google.golang.org/genai"
)

var (
	configPath string
	variant    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs one briefing for a schedule variant and exits",
	Run:   runOnce,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the briefing service with cron schedules and the HTTP API",
	Run:   runServe,
}

func runOnce(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, appLogger, briefingSvc, _, cleanup := mustBuild(ctx)
	defer cleanup()

	name := variant
	if name == "" && len(cfg.Variants) > 0 {
		name = cfg.Variants[0].Policy.Variant
	}

	summary, err := briefingSvc.RunVariant(ctx, name)
	if err != nil {
		appLogger.Fatal("Briefing run failed", logger.ErrorField(err))
	}
	appLogger.Info("Briefing run finished",
		logger.StringField("variant", summary.Variant),
		logger.IntField("items", summary.TotalItems),
		logger.Field("delivered", summary.Delivered),
	)
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, appLogger, briefingSvc, archiveRepo, cleanup := mustBuild(ctx)
	defer cleanup()

	// Register one cron entry per schedule variant.
	scheduler := cron.New()
	for _, v := range cfg.Variants {
		v := v
		if v.Cron == "" {
			continue
		}
		_, err := scheduler.AddFunc(v.Cron, func() {
			if _, err := briefingSvc.RunVariant(ctx, v.Policy.Variant); err != nil {
				appLogger.Error("Scheduled briefing run failed",
					logger.StringField("variant", v.Policy.Variant),
					logger.ErrorField(err),
				)
			}
		})
		if err != nil {
			appLogger.Fatal("Invalid cron expression",
				logger.StringField("variant", v.Policy.Variant),
				logger.StringField("cron", v.Cron),
				logger.ErrorField(err),
			)
		}
		appLogger.Info("Scheduled variant",
			logger.StringField("variant", v.Policy.Variant),
			logger.StringField("cron", v.Cron),
		)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	briefingHandler := delivery.NewBriefingHandler(briefingSvc, archiveRepo, appLogger)
	apiV1 := e.Group("/api/v1")
	briefingHandler.RegisterRoutes(apiV1.Group("/briefings"))

	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.StringField("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop()
		}
	}()

	<-ctx.Done()

	appLogger.Info("Shutting down briefing service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}
	appLogger.Info("Server exiting")
}

// mustBuild wires the whole service graph from configuration. The returned
// cleanup closes the logger and any open connections.
func mustBuild(ctx context.Context) (*config.Config, *logger.Logger, service.BriefingService, repository.DigestArchiveRepository, func()) {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger.Info("Starting Briefing Service", logger.StringField("name", cfg.App.Name))

	cleanups := []func(){func() { _ = appLogger.Sync() }}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Dedup store: durable file cache by default, Redis when configured.
	retention := 7 * 24 * time.Hour
	if len(cfg.Variants) > 0 && cfg.Variants[0].Policy.DedupRetention > 0 {
		retention = cfg.Variants[0].Policy.DedupRetention
	}
	var dedupStore repository.DedupStore
	switch cfg.Briefing.DedupBackend {
	case "redis":
		redisClient, err := redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
		}
		cleanups = append(cleanups, func() { _ = redisClient.Close() })
		dedupStore = repository.NewRedisDedupStore(redisClient, retention)
	default:
		dedupStore = repository.NewFileDedupStore(cfg.Briefing.CacheFile, retention, appLogger, nil)
	}

	// Archive: optional postgres-backed delivery log.
	var archiveRepo repository.DigestArchiveRepository
	if cfg.Briefing.ArchiveEnabled {
		db, err := postgres.NewDB(postgres.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			DBName:          cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
		}
		if sqlDB, err := db.DB.DB(); err == nil {
			cleanups = append(cleanups, func() { _ = sqlDB.Close() })
		}
		archiveRepo = repository.NewDigestArchiveRepository(db.DB)
	}

	// AI hints: optional and advisory.
	var hints repository.HintProvider
	if cfg.Briefing.HintsEnabled {
		genAiClient, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.Gemini.APIKey})
		if err != nil {
			appLogger.Fatal("Failed to initialize Gemini AI client", logger.ErrorField(err))
		}
		hints = repository.NewGeminiHintRepository(cfg.Gemini, appLogger, genAiClient)
	}

	telegramNotifier, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		appLogger.Fatal("Failed to initialize Telegram notifier", logger.ErrorField(err))
	}

	var collectors []repository.Collector
	for _, feed := range cfg.Briefing.Feeds {
		if !feed.Enabled {
			continue
		}
		collectors = append(collectors, repository.NewRSSCollector(
			feed.Name,
			feed.URL,
			entity.SourceCategory(feed.Category),
			feed.FetchExcerpt,
			appLogger,
		))
	}

	briefingSvc := service.NewBriefingService(cfg, appLogger, collectors, dedupStore, hints, telegramNotifier, archiveRepo, nil)

	return cfg, appLogger, briefingSvc, archiveRepo, cleanup
}

func main() {
	rootCmd := &cobra.Command{Use: "briefing-service"}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-briefing.yaml", "Path to the configuration file")
	runCmd.Flags().StringVarP(&variant, "variant", "v", "", "Schedule variant to run (defaults to the first configured variant)")

	rootCmd.AddCommand(runCmd, serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing briefing-service CLI: %s\n", err)
		os.Exit(1)
	}
}
