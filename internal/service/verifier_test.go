package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitvault/bitvault-hcs/internal/logging"
	"github.com/bitvault/bitvault-hcs/internal/protocol"
)

type fakeFetcher struct {
	topicID   string
	consensus time.Time
	msg       protocol.TopicMessage
	err       error
}

func (f *fakeFetcher) FetchMessage(_ context.Context, topicID string, consensus time.Time) (protocol.TopicMessage, error) {
	f.topicID = topicID
	f.consensus = consensus
	return f.msg, f.err
}

func TestVerifyMatchesReorderedPayload(t *testing.T) {
	f := &fakeFetcher{msg: protocol.TopicMessage{
		SequenceNumber: 7,
		Contents:       []byte(`{"a":1,"b":[true,null]}`),
	}}
	v, err := NewVerifier(f, logging.Discard())
	require.NoError(t, err)

	res, err := v.Verify(context.Background(), "0.0.123@100.200", json.RawMessage(`{ "b": [true, null], "a": 1 }`))
	require.NoError(t, err)
	assert.True(t, res.Match)
	assert.Equal(t, uint64(7), res.SequenceNumber)
	assert.Equal(t, "0.0.123@100.200", res.MessageID)
	assert.Equal(t, "0.0.123", f.topicID)
	assert.True(t, f.consensus.Equal(time.Unix(100, 200)))
}

func TestVerifyReportsMismatch(t *testing.T) {
	f := &fakeFetcher{msg: protocol.TopicMessage{Contents: []byte(`{"a":1}`)}}
	v, err := NewVerifier(f, logging.Discard())
	require.NoError(t, err)

	res, err := v.Verify(context.Background(), "0.0.123@100.200", json.RawMessage(`{"a":2}`))
	require.NoError(t, err)
	assert.False(t, res.Match)
	assert.NotEqual(t, res.AnchoredSHA256, res.LocalSHA256)
}

func TestVerifyNonJSONContents(t *testing.T) {
	f := &fakeFetcher{msg: protocol.TopicMessage{Contents: []byte("plain text")}}
	v, err := NewVerifier(f, logging.Discard())
	require.NoError(t, err)

	res, err := v.Verify(context.Background(), "0.0.123@1.2", json.RawMessage(`"plain text"`))
	require.NoError(t, err)
	assert.False(t, res.Match)
}

func TestVerifyRejectsBadMessageID(t *testing.T) {
	v, err := NewVerifier(&fakeFetcher{}, logging.Discard())
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "0.0.123-100.200", json.RawMessage(`{}`))
	require.ErrorIs(t, err, protocol.ErrInvalidMessageID)
}

func TestVerifyPropagatesFetchError(t *testing.T) {
	boom := errors.New("mirror node unavailable")
	v, err := NewVerifier(&fakeFetcher{err: boom}, logging.Discard())
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "0.0.123@100.200", json.RawMessage(`{}`))
	require.ErrorIs(t, err, boom)
}
