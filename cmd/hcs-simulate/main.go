package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitvault/bitvault-hcs/internal/config"
	"github.com/bitvault/bitvault-hcs/internal/ledger"
	"github.com/bitvault/bitvault-hcs/internal/logging"
	"github.com/bitvault/bitvault-hcs/internal/service"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file with operator credentials and topic")
	fast := flag.Bool("fast", false, "skip the pauses between steps")
	flag.Parse()

	cfg, err := config.LoadHedera(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.RequireTopic(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logCfg := config.DefaultLogging("hcs-simulate")
	logger := logging.WithEnvironment(logging.NewJSONLoggerTo(os.Stdout, logCfg.Level), logging.Environment{
		Service: logCfg.Service,
		Version: logCfg.Version,
		Commit:  logCfg.Commit,
		Network: cfg.Network,
		TopicID: cfg.TopicID,
	})

	client, err := ledger.Dial(*cfg)
	if err != nil {
		logger.Error("failed to build ledger client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer client.Close()

	submitter, err := service.NewSubmitter(client, cfg.TopicID, logger)
	if err != nil {
		logger.Error("failed to build submitter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	params := service.SimulationParams{
		Submitter: submitter,
		Logger:    logger,
	}
	if *fast {
		params.Delays = &service.SimulationDelays{}
	}
	sim, err := service.NewSimulation(params)
	if err != nil {
		logger.Error("failed to build simulation", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := sim.Run(ctx)
	if err != nil {
		logger.Error("simulation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("simulation finished",
		slog.String("open_message_id", res.Open.ID),
		slog.String("close_message_id", res.Close.ID),
	)
}
