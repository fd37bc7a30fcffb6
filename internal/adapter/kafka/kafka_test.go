package kafka

import (
	"testing"
	"time"

	"github.com/couchcryptid/coord-kml-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("msg-1"),
		Value:     []byte("meet at 36R 709997 3505054"),
		Topic:     "raw-messages",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: domain.RequesterHeader, Value: []byte("@dana")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("msg-1"), raw.Key)
	assert.Equal(t, "meet at 36R 709997 3505054", string(raw.Value))
	assert.Equal(t, "raw-messages", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "@dana", raw.Headers[domain.RequesterHeader])
	assert.Nil(t, raw.Commit)
}

func TestMapMessageToRawEvent_NoHeaders(t *testing.T) {
	raw := mapMessageToRawEvent(kafkago.Message{Value: []byte("x")})
	assert.NotNil(t, raw.Headers)
	assert.Empty(t, raw.Headers)
}

func TestReaderMapping_SetsCommit(t *testing.T) {
	r := &Reader{}
	raw := r.mapMessageToRawEvent(kafkago.Message{Key: []byte("k")})
	assert.NotNil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reply := domain.Reply{
		RequestID:   "msg-1",
		Status:      domain.StatusProcessed,
		ProcessedAt: now,
	}
	event, err := domain.SerializeReply(reply)
	require.NoError(t, err)

	msg := serializeToMessage(event)

	assert.Equal(t, []byte("msg-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"status":"processed"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "processed_at", msg.Headers[0].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[0].Value)
	assert.Equal(t, "status", msg.Headers[1].Key)
	assert.Equal(t, []byte("processed"), msg.Headers[1].Value)
}

func TestSerializeToMessage_NoHeaders(t *testing.T) {
	msg := serializeToMessage(domain.OutputEvent{Key: []byte("k"), Value: []byte("{}")})
	assert.Empty(t, msg.Headers)
	assert.Equal(t, []byte("{}"), msg.Value)
}
