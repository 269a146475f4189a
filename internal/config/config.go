package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/bitvault/bitvault-hcs/internal/protocol"
)

const DefaultTopicMemo = "BitVault Transaction Proof"

var (
	ErrMissingOperator = errors.New("missing ACCOUNT_ID or HEDERA_PRIVATE_KEY")
	ErrMissingTopic    = errors.New("missing HEDERA_TOPIC_ID")
)

// HederaConfig holds the network credentials and topic shared by every binary.
type HederaConfig struct {
	Network    string `env:"HEDERA_NETWORK" envDefault:"testnet"`
	AccountID  string `env:"ACCOUNT_ID"`
	PrivateKey string `env:"HEDERA_PRIVATE_KEY"`
	TopicID    string `env:"HEDERA_TOPIC_ID"`
	TopicMemo  string `env:"HEDERA_TOPIC_MEMO" envDefault:"BitVault Transaction Proof"`
}

// LoadHedera reads dotenv files (".env" when none are given) into the process
// environment and parses the Hedera settings from it. Missing dotenv files are
// not an error; variables already set in the environment win.
func LoadHedera(dotenvFiles ...string) (*HederaConfig, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load dotenv: %w", err)
	}
	var cfg HederaConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse hedera env: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *HederaConfig) normalize() {
	c.Network = strings.ToLower(strings.TrimSpace(c.Network))
	c.AccountID = strings.TrimSpace(c.AccountID)
	c.PrivateKey = strings.TrimSpace(c.PrivateKey)
	c.TopicID = strings.TrimSpace(c.TopicID)
	if strings.TrimSpace(c.TopicMemo) == "" {
		c.TopicMemo = DefaultTopicMemo
	}
}

func (c *HederaConfig) validate() error {
	switch c.Network {
	case "mainnet", "testnet", "previewnet", "local-node":
	default:
		return fmt.Errorf("HEDERA_NETWORK must be one of mainnet|testnet|previewnet|local-node, got %q", c.Network)
	}
	if c.TopicID != "" {
		if err := protocol.ValidateTopicID(c.TopicID); err != nil {
			return fmt.Errorf("HEDERA_TOPIC_ID: %w", err)
		}
	}
	return nil
}

// RequireOperator fails unless both operator credentials are present.
func (c *HederaConfig) RequireOperator() error {
	if c.AccountID == "" || c.PrivateKey == "" {
		return ErrMissingOperator
	}
	return nil
}

// RequireTopic fails unless operator credentials and a topic id are present.
func (c *HederaConfig) RequireTopic() error {
	if err := c.RequireOperator(); err != nil {
		return err
	}
	if c.TopicID == "" {
		return ErrMissingTopic
	}
	return nil
}
