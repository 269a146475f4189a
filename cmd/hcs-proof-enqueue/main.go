package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/bitvault/bitvault-hcs/internal/config"
	"github.com/bitvault/bitvault-hcs/internal/logging"
	"github.com/bitvault/bitvault-hcs/internal/protocol"
	"github.com/bitvault/bitvault-hcs/internal/service"
	"github.com/bitvault/bitvault-hcs/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/relay.yaml", "path to relay config")
	envFile := flag.String("env", ".env", "dotenv file")
	payloadPath := flag.String("payload", "", "path to proof json file")
	phaseRaw := flag.String("phase", "", "OPEN or CLOSE")
	key := flag.String("key", "", "idempotency key (random when empty)")
	flag.Parse()

	if *payloadPath == "" || *phaseRaw == "" {
		fmt.Fprintln(os.Stderr, "-payload and -phase are required")
		os.Exit(1)
	}
	phase, err := protocol.ParsePhase(*phaseRaw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "phase error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadRelay(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	raw, err := os.ReadFile(*payloadPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read payload error: %v\n", err)
		os.Exit(1)
	}

	store, err := postgres.Open(context.Background(), cfg.Storage.PostgresDSN, cfg.Storage.MaxConns, cfg.Storage.MinConns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	logger := logging.WithEnvironment(logging.NewJSONLoggerTo(os.Stderr, cfg.Logging.Level), logging.Environment{
		Service: "hcs-proof-enqueue",
		Version: cfg.Logging.Version,
		Commit:  cfg.Logging.Commit,
	})
	enqueuer, err := service.NewEnqueuer(store, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "service error: %v\n", err)
		os.Exit(1)
	}

	res, err := enqueuer.Enqueue(context.Background(), phase, json.RawMessage(raw), *key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "enqueue error: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(os.Stderr, "encode response error: %v\n", err)
		os.Exit(1)
	}
}
