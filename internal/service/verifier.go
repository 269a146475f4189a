package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bitvault/bitvault-hcs/internal/protocol"
)

type MessageFetcher interface {
	FetchMessage(ctx context.Context, topicID string, consensus time.Time) (protocol.TopicMessage, error)
}

type VerifyResult struct {
	MessageID      string `json:"message_id"`
	SequenceNumber uint64 `json:"sequence_number"`
	Match          bool   `json:"match"`
	AnchoredSHA256 string `json:"anchored_sha256"`
	LocalSHA256    string `json:"local_sha256"`
}

// Verifier reads an anchored proof back and compares it with a local copy.
type Verifier struct {
	fetcher MessageFetcher
	logger  *slog.Logger
}

func NewVerifier(fetcher MessageFetcher, logger *slog.Logger) (*Verifier, error) {
	if fetcher == nil {
		return nil, errors.New("message fetcher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{fetcher: fetcher, logger: logger}, nil
}

func (v *Verifier) Verify(ctx context.Context, messageID string, local json.RawMessage) (VerifyResult, error) {
	id, err := protocol.ParseMessageID(messageID)
	if err != nil {
		return VerifyResult{}, err
	}
	localCanonical, err := protocol.CanonicalJSON(local)
	if err != nil {
		return VerifyResult{}, invalidPayload(err)
	}
	msg, err := v.fetcher.FetchMessage(ctx, id.TopicID, id.ConsensusTime())
	if err != nil {
		return VerifyResult{}, fmt.Errorf("fetch %s: %w", id, err)
	}
	anchored := msg.Contents
	if json.Valid(anchored) {
		if canonical, err := protocol.CanonicalJSON(json.RawMessage(anchored)); err == nil {
			anchored = canonical
		}
	}
	res := VerifyResult{
		MessageID:      id.String(),
		SequenceNumber: msg.SequenceNumber,
		AnchoredSHA256: protocol.SHA256Hex(anchored),
		LocalSHA256:    protocol.SHA256Hex(localCanonical),
	}
	res.Match = res.AnchoredSHA256 == res.LocalSHA256
	v.logger.Info("proof verified",
		slog.String("message_id", res.MessageID),
		slog.Uint64("sequence_number", res.SequenceNumber),
		slog.Bool("match", res.Match),
	)
	return res, nil
}
