package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hc-tcg/hc-tcg-server-go/internal/config"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game/cards"
	"github.com/hc-tcg/hc-tcg-server-go/internal/repository"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	csvPath    = flag.String("csv", "", "card CSV to import; the built-in catalogue is imported when empty")
	replace    = flag.Bool("replace", false, "delete existing definitions before importing")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		fmt.Fprintln(os.Stderr, "database.url is not configured")
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	defs := cards.BuiltinDefinitions()
	source := "builtin"
	if *csvPath != "" {
		absPath, err := filepath.Abs(*csvPath)
		if err != nil {
			return fmt.Errorf("failed to resolve csv path: %w", err)
		}
		file, err := os.Open(absPath)
		if err != nil {
			return fmt.Errorf("failed to open csv: %w", err)
		}
		defer file.Close()
		if defs, err = repository.ParseCardsCSV(file); err != nil {
			return err
		}
		source = absPath
	}

	// Every definition must still build a catalogue the engine accepts.
	if _, err := cards.FromDefinitions(defs); err != nil {
		return fmt.Errorf("definitions rejected by catalogue: %w", err)
	}

	db, err := repository.NewDB(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	repo := repository.NewCardRepository(db)
	if *replace {
		if err := repo.DeleteAll(ctx); err != nil {
			return err
		}
	}

	start := time.Now()
	if err := repo.UpsertAll(ctx, defs); err != nil {
		return err
	}
	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}

	logger.Info("card import complete",
		zap.String("source", source),
		zap.Int("imported", len(defs)),
		zap.Int64("total_in_database", total),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
