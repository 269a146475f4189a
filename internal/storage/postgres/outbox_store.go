package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bitvault/bitvault-hcs/internal/protocol"
	"github.com/bitvault/bitvault-hcs/internal/storage"
)

const proofColumns = `id, idempotency_key, transaction_id, phase, payload_json, status, attempts,
COALESCE(last_error,''), next_attempt_at, COALESCE(message_id,''), COALESCE(sequence_number,0), created_at, sent_at`

// EnqueueProof inserts a pending proof. A second call with the same
// idempotency key returns the existing row id with created=false.
func (s *Store) EnqueueProof(ctx context.Context, in storage.EnqueueProofInput) (int64, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO proof_outbox (idempotency_key, transaction_id, phase, payload_json, status, created_at, updated_at)
VALUES ($1, $2, $3, $4::jsonb, 'pending', NOW(), NOW())
ON CONFLICT (idempotency_key) DO NOTHING
RETURNING id
`, in.IdempotencyKey, in.TransactionID, string(in.Phase), []byte(in.Payload)).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return 0, false, fmt.Errorf("proof row rejected by %s: %w", pgErr.ConstraintName, err)
		}
		return 0, false, err
	}
	err = s.pool.QueryRow(ctx, `SELECT id FROM proof_outbox WHERE idempotency_key = $1`, in.IdempotencyKey).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("lookup existing proof: %w", err)
	}
	return id, false, nil
}

func (s *Store) GetProof(ctx context.Context, id int64) (storage.ProofOutboxItem, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+proofColumns+` FROM proof_outbox WHERE id = $1`, id)
	item, err := scanProof(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return item, storage.ErrProofNotFound
	}
	return item, err
}

func (s *Store) FetchPendingProofs(ctx context.Context, limit int) ([]storage.ProofOutboxItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
SELECT `+proofColumns+`
FROM proof_outbox
WHERE status = 'pending'
  AND (next_attempt_at IS NULL OR next_attempt_at <= NOW())
ORDER BY created_at ASC, id ASC
LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]storage.ProofOutboxItem, 0)
	for rows.Next() {
		item, err := scanProof(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// OpenMessageID returns the message id of the anchored OPEN proof for a transaction.
func (s *Store) OpenMessageID(ctx context.Context, transactionID string) (string, bool, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
SELECT message_id
FROM proof_outbox
WHERE transaction_id = $1 AND phase = 'OPEN' AND status = 'sent' AND message_id IS NOT NULL
ORDER BY sent_at ASC
LIMIT 1
`, transactionID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// ClaimProof moves a pending row to submitting. It reports false when another
// relay claimed the row first.
func (s *Store) ClaimProof(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
UPDATE proof_outbox
SET status = 'submitting',
    updated_at = NOW()
WHERE id = $1 AND status = 'pending'
`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkProofSent(ctx context.Context, id int64, res protocol.SubmitResult, consensusAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
UPDATE proof_outbox
SET status = 'sent',
    last_error = NULL,
    next_attempt_at = NULL,
    message_id = $2,
    sequence_number = $3,
    consensus_at = $4,
    sent_at = NOW(),
    updated_at = NOW()
WHERE id = $1
`, id, res.ID, int64(res.SequenceNumber), consensusAt.UTC())
	return err
}

func (s *Store) MarkProofRetry(ctx context.Context, id int64, attempts int, nextAttempt time.Time, lastError string) error {
	_, err := s.pool.Exec(ctx, `
UPDATE proof_outbox
SET status = 'pending',
    attempts = $2,
    last_error = $3,
    next_attempt_at = $4,
    updated_at = NOW()
WHERE id = $1
`, id, attempts, lastError, nextAttempt.UTC())
	return err
}

func (s *Store) MarkProofFailed(ctx context.Context, id int64, lastError string) error {
	_, err := s.pool.Exec(ctx, `
UPDATE proof_outbox
SET status = 'failed',
    last_error = $2,
    next_attempt_at = NULL,
    updated_at = NOW()
WHERE id = $1
`, id, lastError)
	return err
}

func scanProof(row pgx.Row) (storage.ProofOutboxItem, error) {
	var item storage.ProofOutboxItem
	var phase string
	var seq int64
	var next, sent *time.Time
	if err := row.Scan(&item.ID, &item.IdempotencyKey, &item.TransactionID, &phase, &item.Payload, &item.Status,
		&item.Attempts, &item.LastError, &next, &item.MessageID, &seq, &item.CreatedAt, &sent); err != nil {
		return item, err
	}
	item.Phase = protocol.Phase(phase)
	item.SequenceNumber = uint64(seq)
	item.CreatedAt = item.CreatedAt.UTC()
	if next != nil {
		t := next.UTC()
		item.NextAttemptAt = &t
	}
	if sent != nil {
		t := sent.UTC()
		item.SentAt = &t
	}
	return item, nil
}
