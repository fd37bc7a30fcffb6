package natsnotify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/coord-kml-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(subj string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject: subj, data: data})
	return nil
}

func TestNotify_PublishesJSONOnStatusSubject(t *testing.T) {
	pub := &fakePublisher{}
	n := &Notifier{pub: pub, subject: "coordkml.notify"}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := n.Notify(context.Background(), domain.Notification{
		RequestID: "msg-1",
		Requester: "@dana",
		Status:    domain.StatusProcessed,
		Points:    2,
		At:        at,
	})
	require.NoError(t, err)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "coordkml.notify.processed", pub.msgs[0].subject)

	var got domain.Notification
	require.NoError(t, json.Unmarshal(pub.msgs[0].data, &got))
	assert.Equal(t, "msg-1", got.RequestID)
	assert.Equal(t, 2, got.Points)
	assert.True(t, at.Equal(got.At))
}

func TestNotify_PublishError(t *testing.T) {
	n := &Notifier{pub: &fakePublisher{err: errors.New("nats: connection closed")}, subject: "s"}
	err := n.Notify(context.Background(), domain.Notification{RequestID: "msg-2", Status: domain.StatusEmpty})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "msg-2")
}

func TestNotify_CancelledContext(t *testing.T) {
	pub := &fakePublisher{}
	n := &Notifier{pub: pub, subject: "s"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, n.Notify(ctx, domain.Notification{}), context.Canceled)
	assert.Empty(t, pub.msgs)
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "a.b.empty", subjectFor("a.b", domain.StatusEmpty))
	assert.Equal(t, "a.b.error", subjectFor("a.b", domain.StatusError))
}

func TestClose_WithoutConnection(t *testing.T) {
	assert.NoError(t, (&Notifier{}).Close())
}
