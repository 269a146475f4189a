package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitvault/bitvault-hcs/internal/logging"
	"github.com/bitvault/bitvault-hcs/internal/protocol"
)

func TestEnqueueStoresCanonicalPayload(t *testing.T) {
	store := newFakeStore()
	e, err := NewEnqueuer(store, logging.Discard())
	require.NoError(t, err)

	raw := json.RawMessage(`{ "xenditTxId":"x-1", "transactionId":"tx-1","event":"DEPOSIT","btcAddress":"bc1q","status":"PAID","idrAmount":199000,"confirmedAt":"2026-10-19T08:00:00Z"}`)
	res, err := e.Enqueue(context.Background(), protocol.PhaseOpen, raw, "key-1")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "tx-1", res.TransactionID)
	assert.Equal(t, "OPEN", res.Phase)
	assert.Equal(t, "key-1", res.IdempotencyKey)

	item, err := store.GetProof(context.Background(), res.OutboxID)
	require.NoError(t, err)
	assert.Equal(t, `{"btcAddress":"bc1q","confirmedAt":"2026-10-19T08:00:00Z","event":"DEPOSIT","idrAmount":199000,"status":"PAID","transactionId":"tx-1","xenditTxId":"x-1"}`, string(item.Payload))
}

func TestEnqueueSameKeyIsNoop(t *testing.T) {
	store := newFakeStore()
	e, err := NewEnqueuer(store, logging.Discard())
	require.NoError(t, err)

	first, err := e.Enqueue(context.Background(), protocol.PhaseOpen, json.RawMessage(openPayload), "key-1")
	require.NoError(t, err)
	second, err := e.Enqueue(context.Background(), protocol.PhaseOpen, json.RawMessage(openPayload), "key-1")
	require.NoError(t, err)

	assert.Equal(t, first.OutboxID, second.OutboxID)
	assert.False(t, second.Created)
	assert.Len(t, store.items, 1)
}

func TestEnqueueGeneratesKey(t *testing.T) {
	store := newFakeStore()
	e, err := NewEnqueuer(store, logging.Discard())
	require.NoError(t, err)

	res, err := e.Enqueue(context.Background(), protocol.PhaseClose, json.RawMessage(closePayload), "  ")
	require.NoError(t, err)
	_, err = uuid.Parse(res.IdempotencyKey)
	require.NoError(t, err)
}

func TestEnqueueRejectsInvalidPayload(t *testing.T) {
	store := newFakeStore()
	e, err := NewEnqueuer(store, logging.Discard())
	require.NoError(t, err)

	_, err = e.Enqueue(context.Background(), protocol.PhaseOpen, json.RawMessage(closePayload), "key-1")
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeInvalidPayload))
	assert.False(t, IsRetryable(err))
	assert.Empty(t, store.items)
}
