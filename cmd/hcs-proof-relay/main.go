package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitvault/bitvault-hcs/internal/config"
	"github.com/bitvault/bitvault-hcs/internal/ledger"
	"github.com/bitvault/bitvault-hcs/internal/logging"
	"github.com/bitvault/bitvault-hcs/internal/service"
	"github.com/bitvault/bitvault-hcs/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/relay.yaml", "path to relay config")
	envFile := flag.String("env", ".env", "dotenv file with operator credentials and topic")
	flag.Parse()

	cfg, err := config.LoadRelay(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Hedera.RequireTopic(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.WithEnvironment(logging.NewJSONLoggerTo(os.Stdout, cfg.Logging.Level), logging.Environment{
		Service: cfg.Logging.Service,
		Version: cfg.Logging.Version,
		Commit:  cfg.Logging.Commit,
		Network: cfg.Hedera.Network,
		TopicID: cfg.Hedera.TopicID,
	})

	store, err := postgres.Open(context.Background(), cfg.Storage.PostgresDSN, cfg.Storage.MaxConns, cfg.Storage.MinConns)
	if err != nil {
		logger.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	client, err := ledger.Dial(cfg.Hedera)
	if err != nil {
		logger.Error("failed to build ledger client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer client.Close()

	submitter, err := service.NewSubmitter(client, cfg.Hedera.TopicID, logger)
	if err != nil {
		logger.Error("failed to build submitter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	relay, err := service.NewProofRelay(service.ProofRelayParams{
		Store:      store,
		Submitter:  submitter,
		BatchSize:  cfg.Relay.BatchSize,
		MaxBackoff: time.Duration(cfg.Relay.MaxBackoffSeconds) * time.Second,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to build proof relay", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("proof relay started",
		slog.Int("batch_size", cfg.Relay.BatchSize),
		slog.Int("poll_interval_seconds", cfg.Relay.PollIntervalSeconds),
	)
	if err := relay.Run(ctx, time.Duration(cfg.Relay.PollIntervalSeconds)*time.Second); err != nil {
		logger.Error("proof relay stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("proof relay stopped")
}
