package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bitvault/bitvault-hcs/internal/config"
	"github.com/bitvault/bitvault-hcs/internal/ledger"
	"github.com/bitvault/bitvault-hcs/internal/logging"
	"github.com/bitvault/bitvault-hcs/internal/service"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file with operator credentials")
	memo := flag.String("memo", "", "topic memo (defaults to HEDERA_TOPIC_MEMO)")
	timeout := flag.Duration("timeout", 2*time.Minute, "time to wait for the receipt")
	flag.Parse()

	cfg, err := config.LoadHedera(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.RequireOperator(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *memo != "" {
		cfg.TopicMemo = *memo
	}

	logCfg := config.DefaultLogging("hcs-create-topic")
	logger := logging.WithEnvironment(logging.NewJSONLoggerTo(os.Stdout, logCfg.Level), logging.Environment{
		Service: logCfg.Service,
		Version: logCfg.Version,
		Commit:  logCfg.Commit,
		Network: cfg.Network,
	})

	client, err := ledger.Dial(*cfg)
	if err != nil {
		logger.Error("failed to build ledger client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer client.Close()

	provisioner, err := service.NewTopicProvisioner(client, cfg.TopicMemo, logger)
	if err != nil {
		logger.Error("failed to build topic provisioner", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	topicID, err := provisioner.Provision(ctx)
	if err != nil {
		logger.Error("topic creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Printf("Topic Created: %s\n", topicID)
}
