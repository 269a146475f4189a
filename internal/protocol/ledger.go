package protocol

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidMessageID = errors.New("invalid message id")
	ErrInvalidTopicID   = errors.New("invalid topic id")
)

var topicIDPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-z]{5})?$`)

// MessageID addresses one consensus message: the topic it was written to and
// the consensus timestamp the network assigned it.
type MessageID struct {
	TopicID string
	Seconds int64
	Nanos   int32
}

func NewMessageID(topicID string, consensus time.Time) MessageID {
	return MessageID{
		TopicID: topicID,
		Seconds: consensus.Unix(),
		Nanos:   int32(consensus.Nanosecond()),
	}
}

// String renders topic@seconds.nanos. Nanos are not zero padded.
func (m MessageID) String() string {
	return m.TopicID + "@" + strconv.FormatInt(m.Seconds, 10) + "." + strconv.FormatInt(int64(m.Nanos), 10)
}

func (m MessageID) ConsensusTime() time.Time {
	return time.Unix(m.Seconds, int64(m.Nanos)).UTC()
}

func ParseMessageID(raw string) (MessageID, error) {
	topic, ts, ok := strings.Cut(strings.TrimSpace(raw), "@")
	if !ok {
		return MessageID{}, fmt.Errorf("%w: %q has no '@'", ErrInvalidMessageID, raw)
	}
	if err := ValidateTopicID(topic); err != nil {
		return MessageID{}, fmt.Errorf("%w: %v", ErrInvalidMessageID, err)
	}
	secRaw, nanoRaw, ok := strings.Cut(ts, ".")
	if !ok {
		return MessageID{}, fmt.Errorf("%w: timestamp %q must be seconds.nanos", ErrInvalidMessageID, ts)
	}
	sec, err := strconv.ParseInt(secRaw, 10, 64)
	if err != nil || sec < 0 {
		return MessageID{}, fmt.Errorf("%w: bad seconds %q", ErrInvalidMessageID, secRaw)
	}
	nanos, err := strconv.ParseInt(nanoRaw, 10, 32)
	if err != nil || nanos < 0 || nanos > 999_999_999 {
		return MessageID{}, fmt.Errorf("%w: bad nanos %q", ErrInvalidMessageID, nanoRaw)
	}
	return MessageID{TopicID: topic, Seconds: sec, Nanos: int32(nanos)}, nil
}

// ValidateTopicID checks the shard.realm.num form, with an optional checksum suffix.
func ValidateTopicID(topicID string) error {
	if !topicIDPattern.MatchString(topicID) {
		return fmt.Errorf("%w: %q", ErrInvalidTopicID, topicID)
	}
	return nil
}

// Receipt is the network's lightweight confirmation of a topic transaction.
type Receipt struct {
	Status              string
	TopicID             string
	TopicSequenceNumber uint64
	TopicRunningHash    []byte
}

// Record is the richer confirmation carrying the consensus timestamp.
type Record struct {
	TransactionID      string
	ConsensusTimestamp time.Time
	TransactionHash    []byte
}

// TopicMessage is a message read back from a mirror node. For a chunked
// message ConsensusTimestamp is the last chunk's and FirstChunkTimestamp the
// first one's.
type TopicMessage struct {
	ConsensusTimestamp  time.Time
	FirstChunkTimestamp time.Time
	SequenceNumber      uint64
	Chunks              int
	Contents            []byte
}

// AddressedAt is the timestamp a message id built from the submission record
// points at.
func (m TopicMessage) AddressedAt() time.Time {
	if !m.FirstChunkTimestamp.IsZero() {
		return m.FirstChunkTimestamp
	}
	return m.ConsensusTimestamp
}
