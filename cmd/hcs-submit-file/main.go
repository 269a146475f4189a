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
	"github.com/bitvault/bitvault-hcs/internal/protocol"
	"github.com/bitvault/bitvault-hcs/internal/service"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file with operator credentials and topic")
	payloadPath := flag.String("payload", "", "path to the json payload to anchor")
	phase := flag.String("phase", "", "validate the payload as an OPEN or CLOSE proof first")
	timeout := flag.Duration("timeout", 2*time.Minute, "time to wait for receipt and record")
	flag.Parse()

	if *payloadPath == "" {
		fmt.Fprintln(os.Stderr, "-payload is required")
		os.Exit(1)
	}

	cfg, err := config.LoadHedera(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.RequireTopic(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	raw, err := os.ReadFile(*payloadPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read payload error: %v\n", err)
		os.Exit(1)
	}
	if !json.Valid(raw) {
		fmt.Fprintf(os.Stderr, "payload error: %s is not valid json\n", *payloadPath)
		os.Exit(1)
	}
	if *phase != "" {
		p, err := protocol.ParsePhase(*phase)
		if err != nil {
			fmt.Fprintf(os.Stderr, "phase error: %v\n", err)
			os.Exit(1)
		}
		if err := protocol.ValidateProof(p, json.RawMessage(raw)); err != nil {
			fmt.Fprintf(os.Stderr, "payload error: %v\n", err)
			os.Exit(1)
		}
	}

	logCfg := config.DefaultLogging("hcs-submit-file")
	logger := logging.WithEnvironment(logging.NewJSONLoggerTo(os.Stdout, logCfg.Level), logging.Environment{
		Service: logCfg.Service,
		Version: logCfg.Version,
		Commit:  logCfg.Commit,
		Network: cfg.Network,
		TopicID: cfg.TopicID,
	})

	client, err := ledger.Dial(*cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledger client error: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	submitter, err := service.NewSubmitter(client, cfg.TopicID, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "service error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := submitter.Submit(ctx, json.RawMessage(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "submit error: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(os.Stderr, "encode response error: %v\n", err)
		os.Exit(1)
	}
}
