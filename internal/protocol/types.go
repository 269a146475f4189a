package protocol

import (
	"fmt"
	"strings"
)

type Phase string

const (
	PhaseOpen  Phase = "OPEN"
	PhaseClose Phase = "CLOSE"
)

func ParsePhase(raw string) (Phase, error) {
	switch Phase(strings.ToUpper(strings.TrimSpace(raw))) {
	case PhaseOpen:
		return PhaseOpen, nil
	case PhaseClose:
		return PhaseClose, nil
	default:
		return "", fmt.Errorf("phase must be one of OPEN|CLOSE, got %q", raw)
	}
}

const EventDeposit = "DEPOSIT"

const (
	StatusPaid      = "PAID"
	StatusCompleted = "COMPLETED"
)

// OpenProof is anchored once the fiat leg of a deposit is paid.
type OpenProof struct {
	TransactionID string `json:"transactionId"`
	Event         string `json:"event"`
	BTCAddress    string `json:"btcAddress"`
	Status        string `json:"status"`
	XenditTxID    string `json:"xenditTxId"`
	IDRAmount     int64  `json:"idrAmount"`
	ConfirmedAt   string `json:"confirmedAt"`
}

// CloseProof is anchored after the on-chain transfer confirms. HCSProof points
// back at the message id of the matching OpenProof.
type CloseProof struct {
	TransactionID string  `json:"transactionId"`
	Event         string  `json:"event"`
	Status        string  `json:"status"`
	BTCTxHash     string  `json:"btcTxHash"`
	BTCTxAmount   float64 `json:"btcTxAmount"`
	BTCAddress    string  `json:"btcAddress"`
	ConfirmedAt   string  `json:"confirmedAt"`
	HCSProof      string  `json:"hcsProof"`
}

type SubmitResult struct {
	MessageID      MessageID `json:"-"`
	ID             string    `json:"message_id"`
	TopicID        string    `json:"topic_id"`
	SequenceNumber uint64    `json:"sequence_number"`
	TransactionID  string    `json:"transaction_id"`
	PayloadSHA256  string    `json:"payload_sha256"`
}
