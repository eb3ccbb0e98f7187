package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hc-tcg/hc-tcg-server-go/internal/config"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/cards"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/coinflip"
	"github.com/hc-tcg/hc-tcg-server-go/internal/repository"
	"github.com/hc-tcg/hc-tcg-server-go/internal/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting hc-tcg server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	registry, closeDB := loadCatalogue(ctx, cfg, logger)
	defer closeDB()

	drawPerTurn := cfg.Game.DrawPerTurn
	engine := game.NewEngine(logger, registry, game.Options{
		HandSize:    cfg.Game.HandSize,
		DrawPerTurn: &drawPerTurn,
		MaxMatches:  cfg.Game.MaxMatches,
		ReplayDir:   cfg.Game.ReplayDir,
		CoinSource:  coinSource(cfg.Game.CoinSeed),
	})
	logger.Info("game engine initialized",
		zap.Int("cards", registry.Len()),
		zap.Int("max_matches", cfg.Game.MaxMatches),
		zap.Int("draw_per_turn", drawPerTurn),
	)

	hub := server.NewHub(logger)
	go hub.Run(ctx)

	gin.SetMode(cfg.Server.HTTP.Mode)
	httpServer := &http.Server{
		Addr:         cfg.Server.HTTP.Address,
		Handler:      server.New(engine, hub, logger, server.Options{AllowedOrigins: cfg.Server.HTTP.AllowedOrigins}).Handler(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.HTTP.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(serveErr))
		}
	}()

	grpcServer := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.MaxConcurrentStreams(uint32(cfg.Server.GRPC.MaxConcurrentStreams)),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}
	go func() {
		logger.Info("starting gRPC health server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}

	for _, matchID := range engine.MatchIDs() {
		snapshot, err := engine.Snapshot(matchID)
		if err != nil || snapshot.Winner != "" || snapshot.Aborted {
			continue
		}
		if _, err := engine.Abort(matchID, "server shutdown"); err != nil {
			logger.Warn("failed to abort match", zap.String("match_id", matchID), zap.Error(err))
		}
	}

	cancel()
	grpcServer.GracefulStop()

	logger.Info("hc-tcg server stopped")
}

// loadCatalogue reads card stats from the database when it is enabled and
// falls back to the built-in catalogue otherwise.
func loadCatalogue(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*cards.Registry, func()) {
	if !cfg.Database.Enabled {
		return cards.Builtin(), func() {}
	}

	db, err := repository.NewDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	stats := db.Stats()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()),
	)

	defs, err := repository.NewCardRepository(db).List(ctx)
	if err != nil {
		logger.Fatal("failed to load card definitions", zap.Error(err))
	}
	if len(defs) == 0 {
		logger.Warn("no card definitions in database; using built-in catalogue")
		return cards.Builtin(), db.Close
	}
	registry, err := cards.FromDefinitions(defs)
	if err != nil {
		logger.Fatal("invalid card definitions in database", zap.Error(err))
	}
	return registry, db.Close
}

// coinSource returns nil for unseeded random flips. A non-zero seed gives each
// match its own deterministic stream derived from the seed.
func coinSource(seed uint64) func() coinflip.Source {
	if seed == 0 {
		return nil
	}
	var matches atomic.Uint64
	return func() coinflip.Source {
		return coinflip.NewRandomSource(seed + matches.Add(1))
	}
}

func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
