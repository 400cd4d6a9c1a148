package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MediSynth-io/casetracker/internal/api"
	"github.com/MediSynth-io/casetracker/internal/auth"
	"github.com/MediSynth-io/casetracker/internal/config"
	"github.com/MediSynth-io/casetracker/internal/database"
	"github.com/MediSynth-io/casetracker/internal/logging"
	"github.com/MediSynth-io/casetracker/internal/s3"
	"github.com/MediSynth-io/casetracker/internal/store"
	"github.com/MediSynth-io/casetracker/internal/tracker"
)

const version = "0.1.0"

// initializeAPI wires the service from configuration. The returned close
// function releases the database connection.
func initializeAPI(ctx context.Context, configPath string) (*api.Api, func() error, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	db, err := database.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	hasher, err := auth.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	var opts []tracker.Option
	if cfg.S3Enabled() {
		client, err := s3.NewClient(ctx, cfg, logger)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to initialize export storage: %w", err)
		}
		opts = append(opts, tracker.WithExporter(client, cfg.S3.PresignTTL))
	} else {
		logger.Info("S3 bucket not configured, test case export disabled")
	}

	svc := tracker.New(store.New(db), hasher, tokens, cfg.Auth.TokenTTL, logger, opts...)
	a, err := api.NewApi(*cfg, svc, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return a, db.Close, nil
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	slog.Info("Starting casetracker API", "version", version, "config", *configPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, closeDB, err := initializeAPI(ctx, *configPath)
	if err != nil {
		slog.Error("failed to initialize API", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	if err := a.Serve(ctx); err != nil {
		slog.Error("server stopped with error", "error", err)
		closeDB()
		os.Exit(1)
	}
}
