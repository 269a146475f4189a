package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

type TopicCreator interface {
	CreateTopic(ctx context.Context, memo string) (string, error)
}

// TopicProvisioner creates a fresh topic on every call; it keeps no record of
// topics it created before.
type TopicProvisioner struct {
	creator TopicCreator
	memo    string
	logger  *slog.Logger
}

func NewTopicProvisioner(creator TopicCreator, memo string, logger *slog.Logger) (*TopicProvisioner, error) {
	if creator == nil {
		return nil, errors.New("topic creator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TopicProvisioner{creator: creator, memo: memo, logger: logger}, nil
}

func (p *TopicProvisioner) Provision(ctx context.Context) (string, error) {
	topicID, err := p.creator.CreateTopic(ctx, p.memo)
	if err != nil {
		return "", ledgerError(fmt.Sprintf("create topic %q", p.memo), err)
	}
	p.logger.Info("topic created", slog.String("topic_id", topicID), slog.String("memo", p.memo))
	return topicID, nil
}
