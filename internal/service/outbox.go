package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/bitvault/bitvault-hcs/internal/protocol"
	"github.com/bitvault/bitvault-hcs/internal/storage"
)

type Enqueuer struct {
	store  storage.ProofOutbox
	logger *slog.Logger
}

type EnqueueResult struct {
	OutboxID       int64  `json:"outbox_id"`
	IdempotencyKey string `json:"idempotency_key"`
	TransactionID  string `json:"transaction_id"`
	Phase          string `json:"phase"`
	Created        bool   `json:"created"`
}

func NewEnqueuer(store storage.ProofOutbox, logger *slog.Logger) (*Enqueuer, error) {
	if store == nil {
		return nil, errors.New("outbox store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enqueuer{store: store, logger: logger}, nil
}

// Enqueue stages a proof for the relay. An empty idempotency key gets a fresh
// random one, so only callers that pass a stable key get deduplication.
func (e *Enqueuer) Enqueue(ctx context.Context, phase protocol.Phase, payload json.RawMessage, idempotencyKey string) (EnqueueResult, error) {
	if err := protocol.ValidateProof(phase, payload); err != nil {
		return EnqueueResult{}, invalidPayload(err)
	}
	var head struct {
		TransactionID string `json:"transactionId"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return EnqueueResult{}, invalidPayload(err)
	}
	canonical, err := protocol.CanonicalJSON(payload)
	if err != nil {
		return EnqueueResult{}, invalidPayload(err)
	}
	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}
	id, created, err := e.store.EnqueueProof(ctx, storage.EnqueueProofInput{
		IdempotencyKey: key,
		TransactionID:  head.TransactionID,
		Phase:          phase,
		Payload:        canonical,
	})
	if err != nil {
		return EnqueueResult{}, err
	}
	e.logger.Info("proof enqueued",
		slog.Int64("outbox_id", id),
		slog.String("transaction_id", head.TransactionID),
		slog.String("phase", string(phase)),
		slog.Bool("created", created),
	)
	return EnqueueResult{
		OutboxID:       id,
		IdempotencyKey: key,
		TransactionID:  head.TransactionID,
		Phase:          string(phase),
		Created:        created,
	}, nil
}
