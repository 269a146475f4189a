package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bitvault/bitvault-hcs/internal/ledger"
	"github.com/bitvault/bitvault-hcs/internal/protocol"
)

// Ledger is the write side of the consensus network used by Submitter.
type Ledger interface {
	Submit(ctx context.Context, topicID string, message []byte) (ledger.Submission, error)
}

// Submitter anchors JSON payloads on one topic and returns the message id
// built from the consensus timestamp. Every call is a separate ledger write.
type Submitter struct {
	ledger  Ledger
	topicID string
	logger  *slog.Logger
}

func NewSubmitter(l Ledger, topicID string, logger *slog.Logger) (*Submitter, error) {
	if l == nil {
		return nil, errors.New("ledger client is required")
	}
	if topicID == "" {
		return nil, ErrMissingTopic
	}
	if err := protocol.ValidateTopicID(topicID); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{ledger: l, topicID: topicID, logger: logger}, nil
}

// SubmitMessageID submits payload and returns only topic@seconds.nanos.
func (s *Submitter) SubmitMessageID(ctx context.Context, payload any) (string, error) {
	res, err := s.Submit(ctx, payload)
	if err != nil {
		return "", err
	}
	return res.ID, nil
}

func (s *Submitter) Submit(ctx context.Context, payload any) (protocol.SubmitResult, error) {
	message, err := protocol.CanonicalJSON(payload)
	if err != nil {
		return protocol.SubmitResult{}, invalidPayload(err)
	}

	sub, err := s.ledger.Submit(ctx, s.topicID, message)
	if err != nil {
		return protocol.SubmitResult{}, ledgerError(fmt.Sprintf("submit message to topic %s", s.topicID), err)
	}

	receipt, err := sub.Receipt(ctx)
	if err != nil {
		return protocol.SubmitResult{}, ledgerError("fetch submission receipt", err)
	}
	if receipt.TopicSequenceNumber == 0 {
		return protocol.SubmitResult{}, NewAppError(CodeNoSequenceNumber, ErrNoSequenceNumber.Message, true, nil)
	}

	record, err := sub.Record(ctx)
	if err != nil {
		return protocol.SubmitResult{}, ledgerError("fetch submission record", err)
	}
	if record.ConsensusTimestamp.IsZero() {
		return protocol.SubmitResult{}, NewAppError(CodeNoConsensusTime, "record has no consensus timestamp", true, nil)
	}

	id := protocol.NewMessageID(s.topicID, record.ConsensusTimestamp)
	txID := record.TransactionID
	if txID == "" {
		txID = sub.TransactionID()
	}
	res := protocol.SubmitResult{
		MessageID:      id,
		ID:             id.String(),
		TopicID:        s.topicID,
		SequenceNumber: receipt.TopicSequenceNumber,
		TransactionID:  txID,
		PayloadSHA256:  protocol.SHA256Hex(message),
	}
	s.logger.Info("message submitted",
		slog.String("message_id", res.ID),
		slog.Uint64("sequence_number", res.SequenceNumber),
		slog.String("transaction_id", res.TransactionID),
		slog.Int("payload_bytes", len(message)),
	)
	return res, nil
}
