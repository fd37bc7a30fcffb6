// Package natsnotify publishes admin notifications to NATS.
package natsnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/coord-kml-etl/internal/domain"
	"github.com/nats-io/nats.go"
)

type publisher interface {
	Publish(subj string, data []byte) error
}

// Notifier publishes each Notification as JSON on <subject>.<status>.
// It implements domain.Notifier.
type Notifier struct {
	pub     publisher
	conn    *nats.Conn
	subject string
}

// Connect dials url and returns a Notifier publishing under subject.
func Connect(url, subject string) (*Notifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("coord-kml-etl"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Notifier{pub: conn, conn: conn, subject: subject}, nil
}

func (n *Notifier) Notify(ctx context.Context, note domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := n.pub.Publish(subjectFor(n.subject, note.Status), data); err != nil {
		return fmt.Errorf("publish notification %s: %w", note.RequestID, err)
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}

func subjectFor(base string, status domain.ReplyStatus) string {
	return base + "." + string(status)
}
