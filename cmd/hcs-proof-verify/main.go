package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bitvault/bitvault-hcs/internal/config"
	"github.com/bitvault/bitvault-hcs/internal/ledger"
	"github.com/bitvault/bitvault-hcs/internal/logging"
	"github.com/bitvault/bitvault-hcs/internal/service"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file")
	messageID := flag.String("message-id", "", "anchored message id, topic@seconds.nanos")
	payloadPath := flag.String("payload", "", "path to the local copy of the proof")
	timeout := flag.Duration("timeout", 30*time.Second, "time to wait for the mirror node")
	flag.Parse()

	if *messageID == "" || *payloadPath == "" {
		fmt.Fprintln(os.Stderr, "-message-id and -payload are required")
		os.Exit(1)
	}

	cfg, err := config.LoadHedera(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	raw, err := os.ReadFile(*payloadPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read payload error: %v\n", err)
		os.Exit(1)
	}

	client, err := ledger.DialReadOnly(cfg.Network)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledger client error: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	logCfg := config.DefaultLogging("hcs-proof-verify")
	logger := logging.WithEnvironment(logging.NewJSONLoggerTo(os.Stderr, logCfg.Level), logging.Environment{
		Service: logCfg.Service,
		Version: logCfg.Version,
		Commit:  logCfg.Commit,
		Network: cfg.Network,
	})
	verifier, err := service.NewVerifier(client, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "service error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := verifier.Verify(ctx, *messageID, json.RawMessage(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify error: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(os.Stderr, "encode response error: %v\n", err)
		os.Exit(1)
	}
	if !res.Match {
		os.Exit(2)
	}
}
