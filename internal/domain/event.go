package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// RequesterHeader carries the sender's handle on inbound messages.
const RequesterHeader = "requester"

// EmptyResultMessage is the user-facing text for messages without coordinates.
const EmptyResultMessage = "No valid coordinates found"

// RawEvent represents an unprocessed text message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// ReplyStatus is the outcome of one message.
type ReplyStatus string

const (
	StatusProcessed ReplyStatus = "processed"
	StatusEmpty     ReplyStatus = "empty"
	StatusError     ReplyStatus = "error"
)

// Reply is what the requester receives for one message: the KML document and
// a summary, or a user-facing message when nothing could be located.
type Reply struct {
	RequestID   string         `json:"request_id"`
	Requester   string         `json:"requester,omitempty"`
	Status      ReplyStatus    `json:"status"`
	Message     string         `json:"message,omitempty"`
	Points      []PointSummary `json:"points,omitempty"`
	Summary     []string       `json:"summary,omitempty"`
	FileName    string         `json:"file_name,omitempty"`
	Document    string         `json:"document,omitempty"`
	Rejected    int            `json:"rejected"`
	ProcessedAt time.Time      `json:"processed_at"`
}

// Notification is the admin-facing notice for one processed message.
type Notification struct {
	RequestID string      `json:"request_id"`
	Requester string      `json:"requester,omitempty"`
	Status    ReplyStatus `json:"status"`
	Points    int         `json:"points"`
	Rejected  int         `json:"rejected"`
	Error     string      `json:"error,omitempty"`
	At        time.Time   `json:"at"`
}

// Notifier delivers admin notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// RequestID returns the message key, or a deterministic hash of the message
// position when the key is empty, so replays produce the same ID.
func RequestID(raw RawEvent) string {
	if len(raw.Key) > 0 {
		return string(raw.Key)
	}
	input := raw.Topic + "|" + strconv.Itoa(raw.Partition) + "|" + strconv.FormatInt(raw.Offset, 10)
	hash := sha256.Sum256([]byte(input))
	return "msg-" + hex.EncodeToString(hash[:8])
}

// SerializeReply marshals a Reply into an OutputEvent keyed by request ID.
func SerializeReply(r Reply) (OutputEvent, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize reply: %w", err)
	}
	return OutputEvent{
		Key:   []byte(r.RequestID),
		Value: data,
		Headers: map[string]string{
			"status":       string(r.Status),
			"processed_at": r.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}
