package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/coord-kml-etl/internal/domain"
	"github.com/couchcryptid/coord-kml-etl/internal/observability"
)

// MarkerTransformer turns a free-text message into a KML reply: locate,
// reverse geocode, render, then notify admins.
type MarkerTransformer struct {
	converter *domain.Converter
	geocoder  domain.Geocoder
	notifier  domain.Notifier
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewTransformer creates a MarkerTransformer. A nil geocoder disables place
// enrichment and a nil notifier disables admin notifications.
func NewTransformer(converter *domain.Converter, geocoder domain.Geocoder, notifier domain.Notifier, logger *slog.Logger, metrics *observability.Metrics) *MarkerTransformer {
	return &MarkerTransformer{
		converter: converter,
		geocoder:  geocoder,
		notifier:  notifier,
		logger:    logger,
		metrics:   metrics,
	}
}

// Transform builds the reply for raw and serializes it for the sink topic.
func (t *MarkerTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	reply, err := t.Reply(ctx, raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	return domain.SerializeReply(reply)
}

// Reply converts the message text. A message without usable coordinates
// yields a StatusEmpty reply, not an error; only rendering failures are
// returned as errors.
func (t *MarkerTransformer) Reply(ctx context.Context, raw domain.RawEvent) (domain.Reply, error) {
	reply := domain.Reply{
		RequestID:   domain.RequestID(raw),
		Requester:   raw.Headers[domain.RequesterHeader],
		ProcessedAt: domain.Now().UTC(),
	}

	located, err := t.converter.Locate(string(raw.Value))
	reply.Rejected = len(located.Rejected)
	t.metrics.ProjectionErrors.Add(float64(len(located.Rejected)))
	for _, r := range located.Rejected {
		t.logger.Debug("coordinate dropped", "request_id", reply.RequestID, "text", r.Text, "error", r.Err)
	}

	if errors.Is(err, domain.ErrEmptyResult) {
		t.metrics.EmptyResults.Inc()
		reply.Status = domain.StatusEmpty
		reply.Message = domain.EmptyResultMessage
		t.notify(ctx, reply, nil)
		return reply, nil
	}
	if err != nil {
		return domain.Reply{}, err
	}

	markers := domain.EnrichWithGeocoding(ctx, located.Markers, t.geocoder, t.logger)

	name := domain.DocumentName(reply.ProcessedAt)
	doc, err := t.converter.Render(name, markers)
	if err != nil {
		reply.Status = domain.StatusError
		t.notify(ctx, reply, err)
		return domain.Reply{}, fmt.Errorf("render %s: %w", reply.RequestID, err)
	}

	for _, m := range markers {
		t.metrics.PointsLocated.WithLabelValues(string(m.Format)).Inc()
	}

	reply.Status = domain.StatusProcessed
	reply.Points = t.converter.Points(markers)
	reply.Summary = t.converter.Summary(markers)
	reply.FileName = domain.FileName(name)
	reply.Document = string(doc)

	t.logger.Debug("message converted",
		"request_id", reply.RequestID,
		"points", len(markers),
		"rejected", reply.Rejected,
		"unmatched", located.Unmatched,
	)

	t.notify(ctx, reply, nil)
	return reply, nil
}

func (t *MarkerTransformer) notify(ctx context.Context, reply domain.Reply, cause error) {
	if t.notifier == nil {
		return
	}

	n := domain.Notification{
		RequestID: reply.RequestID,
		Requester: reply.Requester,
		Status:    reply.Status,
		Points:    len(reply.Points),
		Rejected:  reply.Rejected,
		At:        reply.ProcessedAt,
	}
	if cause != nil {
		n.Error = cause.Error()
	}

	if err := t.notifier.Notify(ctx, n); err != nil {
		t.metrics.Notifications.WithLabelValues("error").Inc()
		t.logger.Warn("admin notification failed", "request_id", reply.RequestID, "error", err)
		return
	}
	t.metrics.Notifications.WithLabelValues("sent").Inc()
}
