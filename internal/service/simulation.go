package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bitvault/bitvault-hcs/internal/protocol"
)

type ProofSubmitter interface {
	Submit(ctx context.Context, payload any) (protocol.SubmitResult, error)
}

// DepositFixture is the fabricated deposit narrated by the simulation.
type DepositFixture struct {
	TransactionID string
	BTCAddress    string
	XenditTxID    string
	IDRAmount     int64
	BTCTxHash     string
	BTCTxAmount   float64
}

func DefaultDepositFixture() DepositFixture {
	return DepositFixture{
		TransactionID: "transactionId_Dummy",
		BTCAddress:    "bc1_btcAddress_Dummy",
		XenditTxID:    "xenditTxId_Dummy",
		IDRAmount:     199000,
		BTCTxHash:     "0abcdef_Dummy",
		BTCTxAmount:   0.1,
	}
}

// SimulationDelays pace the narration between steps.
type SimulationDelays struct {
	AfterCreated   time.Duration
	AfterPaid      time.Duration
	AfterOpen      time.Duration
	AfterTransfer  time.Duration
	AfterWaiting   time.Duration
	AfterConfirmed time.Duration
}

func DefaultSimulationDelays() SimulationDelays {
	return SimulationDelays{
		AfterCreated:   1500 * time.Millisecond,
		AfterPaid:      1000 * time.Millisecond,
		AfterOpen:      3000 * time.Millisecond,
		AfterTransfer:  1000 * time.Millisecond,
		AfterWaiting:   2000 * time.Millisecond,
		AfterConfirmed: 1000 * time.Millisecond,
	}
}

// SimulationParams configures a run. A nil Delays paces the run with
// DefaultSimulationDelays; pass &SimulationDelays{} to skip the pauses.
type SimulationParams struct {
	Submitter ProofSubmitter
	Logger    *slog.Logger
	Fixture   DepositFixture
	Delays    *SimulationDelays
	Now       func() time.Time
	Sleep     func(ctx context.Context, d time.Duration) error
}

type SimulationResult struct {
	Open  protocol.SubmitResult
	Close protocol.SubmitResult
}

// PhaseError reports which proof of the lifecycle failed.
type PhaseError struct {
	Phase protocol.Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("submit %s proof: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

type Simulation struct {
	submitter ProofSubmitter
	logger    *slog.Logger
	fixture   DepositFixture
	delays    SimulationDelays
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewSimulation(p SimulationParams) (*Simulation, error) {
	if p.Submitter == nil {
		return nil, errors.New("submitter is required")
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Fixture == (DepositFixture{}) {
		p.Fixture = DefaultDepositFixture()
	}
	delays := DefaultSimulationDelays()
	if p.Delays != nil {
		delays = *p.Delays
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return &Simulation{
		submitter: p.Submitter,
		logger:    p.Logger,
		fixture:   p.Fixture,
		delays:    delays,
		now:       p.Now,
		sleep:     p.Sleep,
	}, nil
}

// Run narrates one deposit and anchors its OPEN then CLOSE proof. On a CLOSE
// failure the returned result still carries the anchored OPEN proof.
func (s *Simulation) Run(ctx context.Context) (SimulationResult, error) {
	var result SimulationResult

	if err := s.step(ctx, "deposit transaction created by user", s.delays.AfterCreated); err != nil {
		return result, err
	}
	if err := s.step(ctx, "deposit transaction paid by user", s.delays.AfterPaid); err != nil {
		return result, err
	}

	s.logger.Info("user opened proof of transaction")
	open := s.openProof()
	if err := protocol.ValidateProof(protocol.PhaseOpen, open); err != nil {
		return result, &PhaseError{Phase: protocol.PhaseOpen, Err: invalidPayload(err)}
	}
	openRes, err := s.submitter.Submit(ctx, open)
	if err != nil {
		return result, &PhaseError{Phase: protocol.PhaseOpen, Err: err}
	}
	result.Open = openRes
	s.logger.Info("OPEN proof submitted", slog.String("phase", string(protocol.PhaseOpen)), slog.String("message_id", openRes.ID))
	if err := s.sleep(ctx, s.delays.AfterOpen); err != nil {
		return result, err
	}

	if err := s.step(ctx, "token is being transferred on-chain to the user", s.delays.AfterTransfer); err != nil {
		return result, err
	}
	if err := s.step(ctx, "waiting for transaction confirmation", s.delays.AfterWaiting); err != nil {
		return result, err
	}
	if err := s.step(ctx, "transaction confirmed on-chain", s.delays.AfterConfirmed); err != nil {
		return result, err
	}

	s.logger.Info("closing proof of transaction")
	closeProof := s.closeProof(openRes.ID)
	if err := protocol.ValidateProof(protocol.PhaseClose, closeProof); err != nil {
		return result, &PhaseError{Phase: protocol.PhaseClose, Err: invalidPayload(err)}
	}
	closeRes, err := s.submitter.Submit(ctx, closeProof)
	if err != nil {
		return result, &PhaseError{Phase: protocol.PhaseClose, Err: err}
	}
	result.Close = closeRes
	s.logger.Info("CLOSE proof submitted", slog.String("phase", string(protocol.PhaseClose)), slog.String("message_id", closeRes.ID))
	return result, nil
}

func (s *Simulation) step(ctx context.Context, msg string, pause time.Duration) error {
	s.logger.Info(msg)
	return s.sleep(ctx, pause)
}

func (s *Simulation) openProof() protocol.OpenProof {
	return protocol.OpenProof{
		TransactionID: s.fixture.TransactionID,
		Event:         protocol.EventDeposit,
		BTCAddress:    s.fixture.BTCAddress,
		Status:        protocol.StatusPaid,
		XenditTxID:    s.fixture.XenditTxID,
		IDRAmount:     s.fixture.IDRAmount,
		ConfirmedAt:   s.now().UTC().Format(time.RFC3339Nano),
	}
}

func (s *Simulation) closeProof(openMessageID string) protocol.CloseProof {
	return protocol.CloseProof{
		TransactionID: s.fixture.TransactionID,
		Event:         protocol.EventDeposit,
		Status:        protocol.StatusCompleted,
		BTCTxHash:     s.fixture.BTCTxHash,
		BTCTxAmount:   s.fixture.BTCTxAmount,
		BTCAddress:    s.fixture.BTCAddress,
		ConfirmedAt:   s.now().UTC().Format(time.RFC3339Nano),
		HCSProof:      openMessageID,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
