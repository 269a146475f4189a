// Package ledger adapts the Hedera consensus service SDK to the small surface
// the proof services need: create a topic, submit a message, read it back.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	hiero "github.com/hiero-ledger/hiero-sdk-go/v2"

	"github.com/bitvault/bitvault-hcs/internal/config"
	"github.com/bitvault/bitvault-hcs/internal/protocol"
)

var ErrMessageNotFound = errors.New("topic message not found")

// Submission is a transaction the network has accepted but whose outcome has
// not been read yet.
type Submission interface {
	TransactionID() string
	Receipt(ctx context.Context) (protocol.Receipt, error)
	Record(ctx context.Context) (protocol.Record, error)
}

type Client struct {
	sdk       *hiero.Client
	subscribe subscribeFunc
}

func newClient(sdk *hiero.Client) *Client {
	c := &Client{sdk: sdk}
	c.subscribe = c.sdkSubscribe
	return c
}

// Dial builds an operator client. Credentials are checked before the SDK
// client is constructed, so a misconfigured process never touches the network.
func Dial(cfg config.HederaConfig) (*Client, error) {
	if err := cfg.RequireOperator(); err != nil {
		return nil, err
	}
	accountID, err := hiero.AccountIDFromString(cfg.AccountID)
	if err != nil {
		return nil, fmt.Errorf("invalid ACCOUNT_ID: %w", err)
	}
	privateKey, err := hiero.PrivateKeyFromString(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid HEDERA_PRIVATE_KEY: %w", err)
	}
	sdk, err := clientForNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}
	sdk.SetOperator(accountID, privateKey)
	return newClient(sdk), nil
}

// DialReadOnly builds a client without an operator, enough for mirror queries.
func DialReadOnly(network string) (*Client, error) {
	sdk, err := clientForNetwork(network)
	if err != nil {
		return nil, err
	}
	return newClient(sdk), nil
}

func clientForNetwork(network string) (*hiero.Client, error) {
	switch network {
	case "mainnet":
		return hiero.ClientForMainnet(), nil
	case "testnet", "":
		return hiero.ClientForTestnet(), nil
	case "previewnet":
		return hiero.ClientForPreviewnet(), nil
	case "local-node":
		c := hiero.ClientForNetwork(map[string]hiero.AccountID{
			"127.0.0.1:50211": {Account: 3},
		})
		c.SetMirrorNetwork([]string{"127.0.0.1:5600"})
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported hedera network %q", network)
	}
}

func (c *Client) Close() error {
	return c.sdk.Close()
}

// CreateTopic creates a topic with the given memo and blocks for its receipt.
func (c *Client) CreateTopic(ctx context.Context, memo string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp, err := hiero.NewTopicCreateTransaction().
		SetTopicMemo(memo).
		Execute(c.sdk)
	if err != nil {
		return "", fmt.Errorf("execute topic create: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	receipt, err := resp.GetReceipt(c.sdk)
	if err != nil {
		return "", fmt.Errorf("topic create receipt: %w", err)
	}
	if receipt.TopicID == nil {
		return "", errors.New("topic create receipt has no topic id")
	}
	return receipt.TopicID.String(), nil
}

// Submit sends message to topicID. The returned Submission reads the receipt
// and record on demand.
func (c *Client) Submit(ctx context.Context, topicID string, message []byte) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := hiero.TopicIDFromString(topicID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrInvalidTopicID, err)
	}
	resp, err := hiero.NewTopicMessageSubmitTransaction().
		SetTopicID(id).
		SetMessage(message).
		Execute(c.sdk)
	if err != nil {
		return nil, fmt.Errorf("execute topic message submit: %w", err)
	}
	return &submission{sdk: c.sdk, resp: resp}, nil
}

type submission struct {
	sdk  *hiero.Client
	resp hiero.TransactionResponse
}

func (s *submission) TransactionID() string {
	return s.resp.TransactionID.String()
}

func (s *submission) Receipt(ctx context.Context) (protocol.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return protocol.Receipt{}, err
	}
	receipt, err := s.resp.GetReceipt(s.sdk)
	if err != nil {
		return protocol.Receipt{}, fmt.Errorf("get receipt: %w", err)
	}
	return projectReceipt(receipt), nil
}

func projectReceipt(receipt hiero.TransactionReceipt) protocol.Receipt {
	out := protocol.Receipt{
		Status:              receipt.Status.String(),
		TopicSequenceNumber: receipt.TopicSequenceNumber,
		TopicRunningHash:    receipt.TopicRunningHash,
	}
	if receipt.TopicID != nil {
		out.TopicID = receipt.TopicID.String()
	}
	return out
}

func (s *submission) Record(ctx context.Context) (protocol.Record, error) {
	if err := ctx.Err(); err != nil {
		return protocol.Record{}, err
	}
	record, err := s.resp.GetRecord(s.sdk)
	if err != nil {
		return protocol.Record{}, fmt.Errorf("get record: %w", err)
	}
	return projectRecord(record), nil
}

func projectRecord(record hiero.TransactionRecord) protocol.Record {
	return protocol.Record{
		TransactionID:      record.TransactionID.String(),
		ConsensusTimestamp: record.ConsensusTimestamp,
		TransactionHash:    record.TransactionHash,
	}
}

// subscribeFunc streams the messages of a topic from start onwards until the
// returned stop func is called. onDone runs if the stream ends on its own.
type subscribeFunc func(topicID hiero.TopicID, start time.Time, onMessage func(protocol.TopicMessage), onDone func()) (stop func(), err error)

func (c *Client) sdkSubscribe(topicID hiero.TopicID, start time.Time, onMessage func(protocol.TopicMessage), onDone func()) (func(), error) {
	handle, err := hiero.NewTopicMessageQuery().
		SetTopicID(topicID).
		SetStartTime(start).
		SetCompletionHandler(onDone).
		Subscribe(c.sdk, func(msg hiero.TopicMessage) {
			onMessage(projectMessage(msg))
		})
	if err != nil {
		return nil, err
	}
	return handle.Unsubscribe, nil
}

// projectMessage keeps the first chunk's timestamp: the record of a chunked
// submission, and so its message id, carries the first chunk's time while the
// reassembled message carries the last one's.
func projectMessage(msg hiero.TopicMessage) protocol.TopicMessage {
	out := protocol.TopicMessage{
		ConsensusTimestamp: msg.ConsensusTimestamp,
		SequenceNumber:     msg.SequenceNumber,
		Contents:           msg.Contents,
		Chunks:             len(msg.Chunks),
	}
	if len(msg.Chunks) > 0 {
		out.FirstChunkTimestamp = msg.Chunks[0].ConsensusTimestamp
	}
	return out
}

// FetchMessage reads the message whose id timestamp is consensus from the
// mirror network. Chunks of other messages may interleave with the wanted
// one, so a later message does not end the search; a missing message is
// reported when the stream ends or ctx is done.
func (c *Client) FetchMessage(ctx context.Context, topicID string, consensus time.Time) (protocol.TopicMessage, error) {
	id, err := hiero.TopicIDFromString(topicID)
	if err != nil {
		return protocol.TopicMessage{}, fmt.Errorf("%w: %v", protocol.ErrInvalidTopicID, err)
	}

	found := make(chan protocol.TopicMessage, 1)
	done := make(chan struct{})
	var closeDone sync.Once

	stop, err := c.subscribe(id, consensus, func(msg protocol.TopicMessage) {
		if !msg.AddressedAt().Equal(consensus) {
			return
		}
		select {
		case found <- msg:
		default:
		}
	}, func() {
		closeDone.Do(func() { close(done) })
	})
	if err != nil {
		return protocol.TopicMessage{}, fmt.Errorf("subscribe topic %s: %w", topicID, err)
	}
	defer stop()

	select {
	case msg := <-found:
		return msg, nil
	case <-done:
	case <-ctx.Done():
		return protocol.TopicMessage{}, fmt.Errorf("%w: %v", ErrMessageNotFound, ctx.Err())
	}
	select {
	case msg := <-found:
		return msg, nil
	default:
		return protocol.TopicMessage{}, ErrMessageNotFound
	}
}
