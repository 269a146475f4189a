package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bitvault/bitvault-hcs/internal/protocol"
	"github.com/bitvault/bitvault-hcs/internal/storage"
)

// ProofRelay drains the proof outbox onto the consensus topic. CLOSE proofs
// wait until the OPEN proof of the same transaction has been anchored.
type ProofRelay struct {
	store      storage.ProofOutbox
	submitter  ProofSubmitter
	batchSize  int
	maxBackoff time.Duration
	ackDelay   time.Duration
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *slog.Logger
}

const (
	ackAttempts = 3
	ackTimeout  = 10 * time.Second
)

type ProofRelayParams struct {
	Store      storage.ProofOutbox
	Submitter  ProofSubmitter
	BatchSize  int
	MaxBackoff time.Duration
	Logger     *slog.Logger
}

func NewProofRelay(p ProofRelayParams) (*ProofRelay, error) {
	if p.Store == nil {
		return nil, errors.New("outbox store is required")
	}
	if p.Submitter == nil {
		return nil, errors.New("submitter is required")
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 50
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 10 * time.Minute
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return &ProofRelay{
		store:      p.Store,
		submitter:  p.Submitter,
		batchSize:  p.BatchSize,
		maxBackoff: p.MaxBackoff,
		ackDelay:   500 * time.Millisecond,
		now:        time.Now,
		sleep:      sleepContext,
		logger:     p.Logger,
	}, nil
}

func (r *ProofRelay) Run(ctx context.Context, pollInterval time.Duration) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	if err := r.ProcessBatch(ctx); err != nil {
		r.logger.Error("relay batch failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.ProcessBatch(ctx); err != nil {
				r.logger.Error("relay batch failed", slog.String("error", err.Error()))
			}
		}
	}
}

// ProcessBatch handles one page of due proofs. Per-item failures are recorded
// on the item and logged; only a failed fetch is returned.
func (r *ProofRelay) ProcessBatch(ctx context.Context) error {
	items, err := r.store.FetchPendingProofs(ctx, r.batchSize)
	if err != nil {
		return err
	}
	for _, item := range items {
		if ctx.Err() != nil {
			return nil
		}
		if err := r.processItem(ctx, item); err != nil {
			r.logger.Error("relay item failed",
				slog.Int64("outbox_id", item.ID),
				slog.String("transaction_id", item.TransactionID),
				slog.String("phase", string(item.Phase)),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

func (r *ProofRelay) processItem(ctx context.Context, item storage.ProofOutboxItem) error {
	payload := item.Payload
	if item.Phase == protocol.PhaseClose {
		linked, err := r.linkOpenProof(ctx, item)
		if err != nil {
			return r.fail(ctx, item, err)
		}
		payload = linked
	}
	if err := protocol.ValidateProof(item.Phase, payload); err != nil {
		return r.fail(ctx, item, invalidPayload(err))
	}

	claimed, err := r.store.ClaimProof(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("claim proof %d: %w", item.ID, err)
	}
	if !claimed {
		return nil
	}

	res, err := r.submitter.Submit(ctx, payload)
	if err != nil {
		return r.fail(ctx, item, err)
	}
	if err := r.ackSent(ctx, item.ID, res); err != nil {
		return fmt.Errorf("proof %d anchored as %s but left %s: %w", item.ID, res.ID, storage.StatusSubmitting, err)
	}
	r.logger.Info("relay item sent",
		slog.Int64("outbox_id", item.ID),
		slog.String("transaction_id", item.TransactionID),
		slog.String("phase", string(item.Phase)),
		slog.String("message_id", res.ID),
		slog.Uint64("sequence_number", res.SequenceNumber),
	)
	return nil
}

// linkOpenProof fills hcsProof from the anchored OPEN proof when the producer
// left it empty.
func (r *ProofRelay) linkOpenProof(ctx context.Context, item storage.ProofOutboxItem) (json.RawMessage, error) {
	doc := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(item.Payload))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, invalidPayload(err)
	}
	if ref, _ := doc["hcsProof"].(string); ref != "" {
		return item.Payload, nil
	}
	openID, ok, err := r.store.OpenMessageID(ctx, item.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("lookup open proof: %w", err)
	}
	if !ok {
		return nil, ErrOpenNotAnchored
	}
	doc["hcsProof"] = openID
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, invalidPayload(err)
	}
	return raw, nil
}

// ackSent records a ledger write that already happened. It outlives ctx so a
// shutdown between the write and the ack does not lose the message id.
func (r *ProofRelay) ackSent(ctx context.Context, id int64, res protocol.SubmitResult) error {
	base := context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= ackAttempts; attempt++ {
		ackCtx, cancel := context.WithTimeout(base, ackTimeout)
		err = r.store.MarkProofSent(ackCtx, id, res, res.MessageID.ConsensusTime())
		cancel()
		if err == nil {
			return nil
		}
		r.logger.Warn("relay ack failed",
			slog.Int64("outbox_id", id),
			slog.String("message_id", res.ID),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		if attempt < ackAttempts {
			_ = r.sleep(base, time.Duration(attempt)*r.ackDelay)
		}
	}
	return err
}

func (r *ProofRelay) fail(ctx context.Context, item storage.ProofOutboxItem, cause error) error {
	ctx = context.WithoutCancel(ctx)
	lastError := truncate(cause.Error(), 1500)
	if !IsRetryable(cause) {
		if err := r.store.MarkProofFailed(ctx, item.ID, lastError); err != nil {
			return errors.Join(cause, err)
		}
		return cause
	}
	attempts := item.Attempts + 1
	next := r.now().UTC().Add(computeBackoff(attempts, r.maxBackoff))
	if err := r.store.MarkProofRetry(ctx, item.ID, attempts, next, lastError); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func computeBackoff(attempts int, max time.Duration) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	backoff := time.Duration(1<<uint(min(attempts, 10))) * 5 * time.Second
	if backoff > max {
		return max
	}
	return backoff
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
