package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/emberwatch/internal/alerting"
	"github.com/good-yellow-bee/emberwatch/internal/api"
	"github.com/good-yellow-bee/emberwatch/internal/api/health"
	"github.com/good-yellow-bee/emberwatch/internal/cache"
	"github.com/good-yellow-bee/emberwatch/internal/dashboard"
	"github.com/good-yellow-bee/emberwatch/internal/ingest"
	"github.com/good-yellow-bee/emberwatch/internal/stats"
	"github.com/good-yellow-bee/emberwatch/internal/storage"
	"github.com/good-yellow-bee/emberwatch/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "emberwatch-server",
	Short: "Emberwatch Server - Log monitoring and alerting service",
	Long: `Emberwatch Server ingests structured log events, serves error
analytics, and evaluates alerting rules against recent log activity.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("emberwatch-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.Address = httpAddr
	}
	cfg.Verbose = verbose

	// Log store
	logStore := storage.NewClickHouseStore(&storage.ClickHouseConfig{
		Addresses:     cfg.ClickHouse.Addresses,
		Database:      cfg.ClickHouse.Database,
		Username:      cfg.ClickHouse.Username,
		Password:      cfg.ClickHouse.Password,
		MaxOpenConns:  cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns:  cfg.ClickHouse.MaxIdleConns,
		DialTimeout:   cfg.ClickHouse.DialTimeout,
		Compression:   cfg.ClickHouse.Compression,
		RetentionDays: cfg.ClickHouse.RetentionDays,
	})
	if err := logStore.Open(); err != nil {
		return fmt.Errorf("open clickhouse: %w", err)
	}
	defer logStore.Close()

	if err := logStore.Migrate(); err != nil {
		return fmt.Errorf("migrate clickhouse: %w", err)
	}

	// Alert store
	dbDir := filepath.Dir(cfg.SQLite.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	alertDB := storage.NewSQLiteStore(cfg.SQLite.Path)
	if err := alertDB.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer alertDB.Close()

	if err := alertDB.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	log.Printf("alert database initialized at %s", cfg.SQLite.Path)

	// Redis: recent-log cache and, in streaming mode, the ingest queue
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	recent := cache.New(rdb, cache.ParseVariant(cfg.Cache.Variant), cfg.Cache.MaxSize, cfg.Cache.TTL)

	mode := ingest.ParseMode(cfg.Ingest.Mode)
	ingestSvc := ingest.NewService(logStore, recent, rdb, mode, cfg.Ingest.QueueKey)

	statsEngine := stats.NewEngine(logStore)

	alertEngine, err := alerting.NewEngine(logStore, alertDB.Alerts(), cfg.Rules)
	if err != nil {
		return fmt.Errorf("create alert engine: %w", err)
	}

	aggregator := dashboard.NewAggregator(logStore, alertDB.Alerts())

	srv, err := api.New(&api.Config{
		Address:         cfg.Server.Address,
		IngestRatePerIP: cfg.Server.IngestRatePerIP,
		MetricsEnabled:  cfg.Server.MetricsEnabled,
		Verbose:         cfg.Verbose,
	}, ingestSvc, recent, statsEngine, alertEngine, aggregator)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	srv.RegisterHealthChecker(health.NewClickHouseChecker(logStore))
	srv.RegisterHealthChecker(health.NewSQLiteChecker(alertDB.DB()))
	srv.RegisterHealthChecker(health.NewRedisChecker(rdb))

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	log.Printf("starting emberwatch-server %s", config.Version)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(ctx)
	})

	if cfg.Scheduler.Disabled {
		log.Printf("alert scheduler disabled by config")
	} else {
		scheduler := alerting.NewScheduler(alertEngine, logStore, cfg.Scheduler.Period, cfg.Scheduler.InitialDelay)
		g.Go(func() error {
			scheduler.Run(ctx)
			return nil
		})
		log.Printf("alert scheduler running every %s", cfg.Scheduler.Period)
	}

	if mode == ingest.ModeStreaming {
		for i := 0; i < cfg.Ingest.Consumers; i++ {
			consumer := ingest.NewConsumer(logStore, recent, rdb, cfg.Ingest.QueueKey)
			g.Go(func() error {
				consumer.Run(ctx)
				return nil
			})
		}
		log.Printf("streaming ingest with %d consumer(s)", cfg.Ingest.Consumers)
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}
