package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bitvault/bitvault-hcs/internal/protocol"
)

var ErrProofNotFound = errors.New("proof not found")

// A proof moves pending -> submitting -> sent. A row left in submitting was
// written to the ledger but its ack was lost; the relay never picks it up again.
const (
	StatusPending    = "pending"
	StatusSubmitting = "submitting"
	StatusSent       = "sent"
	StatusFailed     = "failed"
)

type EnqueueProofInput struct {
	IdempotencyKey string
	TransactionID  string
	Phase          protocol.Phase
	Payload        json.RawMessage
}

type ProofOutboxItem struct {
	ID             int64
	IdempotencyKey string
	TransactionID  string
	Phase          protocol.Phase
	Payload        json.RawMessage
	Status         string
	Attempts       int
	LastError      string
	NextAttemptAt  *time.Time
	MessageID      string
	SequenceNumber uint64
	CreatedAt      time.Time
	SentAt         *time.Time
}

// ProofOutbox is the durable queue between proof producers and the relay.
type ProofOutbox interface {
	EnqueueProof(ctx context.Context, in EnqueueProofInput) (id int64, created bool, err error)
	GetProof(ctx context.Context, id int64) (ProofOutboxItem, error)
	FetchPendingProofs(ctx context.Context, limit int) ([]ProofOutboxItem, error)
	OpenMessageID(ctx context.Context, transactionID string) (string, bool, error)
	ClaimProof(ctx context.Context, id int64) (bool, error)
	MarkProofSent(ctx context.Context, id int64, res protocol.SubmitResult, consensusAt time.Time) error
	MarkProofRetry(ctx context.Context, id int64, attempts int, nextAttempt time.Time, lastError string) error
	MarkProofFailed(ctx context.Context, id int64, lastError string) error
}
