package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bitvault/bitvault-hcs/internal/ledger"
	"github.com/bitvault/bitvault-hcs/internal/protocol"
	"github.com/bitvault/bitvault-hcs/internal/storage"
)

type fakeSubmission struct {
	txID       string
	receipt    protocol.Receipt
	receiptErr error
	record     protocol.Record
	recordErr  error
	recordHits int
}

func (s *fakeSubmission) TransactionID() string { return s.txID }

func (s *fakeSubmission) Receipt(context.Context) (protocol.Receipt, error) {
	return s.receipt, s.receiptErr
}

func (s *fakeSubmission) Record(context.Context) (protocol.Record, error) {
	s.recordHits++
	return s.record, s.recordErr
}

type fakeLedger struct {
	submissions []*fakeSubmission
	submitErr   error
	topics      []string
	messages    [][]byte
}

func (l *fakeLedger) Submit(_ context.Context, topicID string, message []byte) (ledger.Submission, error) {
	if l.submitErr != nil {
		return nil, l.submitErr
	}
	l.topics = append(l.topics, topicID)
	l.messages = append(l.messages, append([]byte(nil), message...))
	if len(l.submissions) == 0 {
		return nil, errors.New("fake ledger has no submission queued")
	}
	next := l.submissions[0]
	l.submissions = l.submissions[1:]
	return next, nil
}

func okSubmission(seq uint64, consensus time.Time) *fakeSubmission {
	return &fakeSubmission{
		txID:    "0.0.1001@1700000000.000000001",
		receipt: protocol.Receipt{Status: "SUCCESS", TopicSequenceNumber: seq},
		record:  protocol.Record{ConsensusTimestamp: consensus},
	}
}

// fakeSubmitter accepts every payload and hands out increasing timestamps.
type fakeSubmitter struct {
	mu       sync.Mutex
	topicID  string
	next     int64
	payloads []json.RawMessage
	errs     []error
	onSubmit func()
}

func (s *fakeSubmitter) Submit(_ context.Context, payload any) (protocol.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := protocol.CanonicalJSON(payload)
	if err != nil {
		return protocol.SubmitResult{}, err
	}
	s.payloads = append(s.payloads, raw)
	if s.onSubmit != nil {
		s.onSubmit()
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return protocol.SubmitResult{}, err
		}
	}
	s.next++
	topic := s.topicID
	if topic == "" {
		topic = "0.0.123"
	}
	id := protocol.NewMessageID(topic, time.Unix(1000+s.next, 5))
	return protocol.SubmitResult{
		MessageID:      id,
		ID:             id.String(),
		TopicID:        topic,
		SequenceNumber: uint64(s.next),
	}, nil
}

type retryCall struct {
	attempts  int
	next      time.Time
	lastError string
}

type fakeStore struct {
	items    map[int64]*storage.ProofOutboxItem
	keys     map[string]int64
	nextID   int64
	retries  map[int64]retryCall
	fetchErr error
	sentErrs []error
	sentHits int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:   map[int64]*storage.ProofOutboxItem{},
		keys:    map[string]int64{},
		retries: map[int64]retryCall{},
	}
}

func (s *fakeStore) EnqueueProof(_ context.Context, in storage.EnqueueProofInput) (int64, bool, error) {
	if id, ok := s.keys[in.IdempotencyKey]; ok {
		return id, false, nil
	}
	s.nextID++
	s.items[s.nextID] = &storage.ProofOutboxItem{
		ID:             s.nextID,
		IdempotencyKey: in.IdempotencyKey,
		TransactionID:  in.TransactionID,
		Phase:          in.Phase,
		Payload:        in.Payload,
		Status:         storage.StatusPending,
		CreatedAt:      time.Unix(s.nextID, 0),
	}
	s.keys[in.IdempotencyKey] = s.nextID
	return s.nextID, true, nil
}

func (s *fakeStore) GetProof(_ context.Context, id int64) (storage.ProofOutboxItem, error) {
	item, ok := s.items[id]
	if !ok {
		return storage.ProofOutboxItem{}, storage.ErrProofNotFound
	}
	return *item, nil
}

func (s *fakeStore) FetchPendingProofs(_ context.Context, limit int) ([]storage.ProofOutboxItem, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	ids := make([]int64, 0, len(s.items))
	for id, item := range s.items {
		if item.Status == storage.StatusPending {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]storage.ProofOutboxItem, 0, len(ids))
	for _, id := range ids {
		if len(out) == limit {
			break
		}
		out = append(out, *s.items[id])
	}
	return out, nil
}

func (s *fakeStore) OpenMessageID(_ context.Context, transactionID string) (string, bool, error) {
	for id := int64(1); id <= s.nextID; id++ {
		item, ok := s.items[id]
		if !ok {
			continue
		}
		if item.TransactionID == transactionID && item.Phase == protocol.PhaseOpen && item.Status == storage.StatusSent {
			return item.MessageID, true, nil
		}
	}
	return "", false, nil
}

func (s *fakeStore) ClaimProof(_ context.Context, id int64) (bool, error) {
	item := s.items[id]
	if item.Status != storage.StatusPending {
		return false, nil
	}
	item.Status = storage.StatusSubmitting
	return true, nil
}

func (s *fakeStore) MarkProofSent(ctx context.Context, id int64, res protocol.SubmitResult, _ time.Time) error {
	s.sentHits++
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.sentErrs) > 0 {
		err := s.sentErrs[0]
		s.sentErrs = s.sentErrs[1:]
		return err
	}
	item := s.items[id]
	item.Status = storage.StatusSent
	item.MessageID = res.ID
	item.SequenceNumber = res.SequenceNumber
	item.LastError = ""
	return nil
}

func (s *fakeStore) MarkProofRetry(_ context.Context, id int64, attempts int, next time.Time, lastError string) error {
	item := s.items[id]
	item.Status = storage.StatusPending
	item.Attempts = attempts
	item.LastError = lastError
	item.NextAttemptAt = &next
	s.retries[id] = retryCall{attempts: attempts, next: next, lastError: lastError}
	return nil
}

func (s *fakeStore) MarkProofFailed(_ context.Context, id int64, lastError string) error {
	item := s.items[id]
	item.Status = storage.StatusFailed
	item.LastError = lastError
	return nil
}
