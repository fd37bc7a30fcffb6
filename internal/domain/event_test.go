package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_UsesKey(t *testing.T) {
	assert.Equal(t, "req-42", RequestID(RawEvent{Key: []byte("req-42"), Topic: "t", Offset: 7}))
}

func TestRequestID_HashesPositionWithoutKey(t *testing.T) {
	a := RequestID(RawEvent{Topic: "raw-messages", Partition: 0, Offset: 7})
	b := RequestID(RawEvent{Topic: "raw-messages", Partition: 0, Offset: 7})
	c := RequestID(RawEvent{Topic: "raw-messages", Partition: 0, Offset: 8})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "msg-"))
	assert.Len(t, a, len("msg-")+16)
}

func TestSerializeReply(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := Reply{
		RequestID:   "req-1",
		Requester:   "@alice",
		Status:      StatusProcessed,
		Points:      []PointSummary{{Label: "Loc 1", Lat: 1, Lon: 2, Format: FormatGeodetic, MapURL: "https://maps.google.com/?q=1,2"}},
		FileName:    "locations_1.kml",
		Document:    "<kml/>",
		ProcessedAt: at,
	}

	out, err := SerializeReply(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("req-1"), out.Key)
	assert.Equal(t, "processed", out.Headers["status"])
	assert.Equal(t, "2026-03-01T12:00:00Z", out.Headers["processed_at"])

	var decoded Reply
	require.NoError(t, json.Unmarshal(out.Value, &decoded))
	assert.Equal(t, r, decoded)
}

func TestSerializeReply_EmptyOmitsDocument(t *testing.T) {
	out, err := SerializeReply(Reply{
		RequestID:   "req-2",
		Status:      StatusEmpty,
		Message:     EmptyResultMessage,
		ProcessedAt: time.Unix(0, 0).UTC(),
	})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(out.Value, &fields))
	assert.Equal(t, "empty", fields["status"])
	assert.Equal(t, EmptyResultMessage, fields["message"])
	assert.NotContains(t, fields, "document")
	assert.NotContains(t, fields, "points")
}
