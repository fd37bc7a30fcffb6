package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/coord-kml-etl/internal/domain"
	"github.com/couchcryptid/coord-kml-etl/internal/observability"
	"github.com/couchcryptid/coord-kml-etl/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	errs    []error
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	i := int(m.index.Add(1) - 1)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	failKey string
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.failKey != "" && string(raw.Key) == m.failKey {
		return domain.OutputEvent{}, errors.New("bad data")
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu      sync.Mutex
	loaded  []domain.OutputEvent
	failFor int
	calls   int
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failFor {
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) Loaded() []domain.OutputEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OutputEvent(nil), m.loaded...)
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (m *mockNotifier) Notify(_ context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return m.err
}

type stubGeocoder struct{}

func (stubGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	return domain.GeocodingResult{FormattedAddress: "Somewhere, Israel", PlaceName: "Somewhere"}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConverter(t *testing.T) *domain.Converter {
	t.Helper()
	c, err := domain.NewConverter(domain.DefaultSettings())
	require.NoError(t, err)
	return c
}

func textEvent(key, text string) domain.RawEvent {
	return domain.RawEvent{
		Key:     []byte(key),
		Value:   []byte(text),
		Headers: map[string]string{domain.RequesterHeader: "@tester"},
		Topic:   "raw-messages",
	}
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- pipeline tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := textEvent("req-1", "32.0853,34.7818")

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	loaded := ldr.Loaded()
	require.Len(t, loaded, 1)
	assert.Equal(t, raw.Value, loaded[0].Value)
	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MessagesConsumed))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MessagesProduced))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.Loaded())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformErrorSkipsAndCommits(t *testing.T) {
	var committed []string
	var mu sync.Mutex
	commit := func(key string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			committed = append(committed, key)
			return nil
		}
	}

	bad := textEvent("bad", "x")
	bad.Commit = commit("bad")
	good := textEvent("good", "32.1,34.2")
	good.Commit = commit("good")

	ext := &mockExtractor{batches: [][]domain.RawEvent{{bad, good}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{failKey: "bad"}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	loaded := ldr.Loaded()
	require.Len(t, loaded, 1)
	assert.Equal(t, []byte("good"), loaded[0].Key)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TransformErrors))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"bad", "good"}, committed)
}

func TestPipeline_Run_AllTransformsFailNotReady(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawEvent{{textEvent("bad", "x")}}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{failKey: "bad"}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.Loaded())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	var commits atomic.Int64
	raw := textEvent("req-1", "32.1,34.2")
	raw.Commit = func(context.Context) error {
		commits.Add(1)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{failFor: 1}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 500*time.Millisecond)

	assert.Empty(t, ldr.Loaded())
	assert.Equal(t, int64(0), commits.Load())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoadFailureHoldsSkippedCommits(t *testing.T) {
	var commits atomic.Int64
	count := func(context.Context) error {
		commits.Add(1)
		return nil
	}

	good := textEvent("good", "32.1,34.2")
	good.Commit = count
	bad := textEvent("bad", "x")
	bad.Commit = count

	ext := &mockExtractor{batches: [][]domain.RawEvent{{good, bad}}}
	ldr := &mockLoader{failFor: 1}

	p := pipeline.New(ext, &mockTransformer{failKey: "bad"}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 500*time.Millisecond)

	assert.Empty(t, ldr.Loaded())
	assert.Equal(t, int64(0), commits.Load(), "a skipped message must not commit past an unloaded reply")
}

func TestPipeline_Run_RecoversAfterExtractError(t *testing.T) {
	ext := &mockExtractor{
		errs:    []error{errors.New("broker down")},
		batches: [][]domain.RawEvent{nil, {textEvent("req-1", "32.1,34.2")}},
	}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, time.Second)

	assert.Len(t, ldr.Loaded(), 1)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

// --- transformer tests ---

func TestMarkerTransformer_Processed(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	notifier := &mockNotifier{}
	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(newTestConverter(t), nil, notifier, discardLogger(), metrics)

	out, err := tfm.Transform(context.Background(), textEvent("req-1", "709997/3505054\n050000/3505054"))
	require.NoError(t, err)
	assert.Equal(t, []byte("req-1"), out.Key)
	assert.Equal(t, "processed", out.Headers["status"])
	assert.Equal(t, "2026-03-01T12:00:00Z", out.Headers["processed_at"])

	var reply domain.Reply
	require.NoError(t, json.Unmarshal(out.Value, &reply))
	assert.Equal(t, domain.StatusProcessed, reply.Status)
	assert.Equal(t, "@tester", reply.Requester)
	assert.Equal(t, 1, reply.Rejected)
	assert.Equal(t, "locations_1772366400.kml", reply.FileName)
	require.Len(t, reply.Points, 1)
	assert.Equal(t, "Loc 1", reply.Points[0].Label)
	assert.Equal(t, domain.FormatGrid, reply.Points[0].Format)
	require.Len(t, reply.Summary, 1)

	doc, err := domain.DecodeDocument([]byte(reply.Document))
	require.NoError(t, err)
	assert.Empty(t, doc.Problems())
	assert.Equal(t, "locations_1772366400", doc.Document.Name)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PointsLocated.WithLabelValues("grid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ProjectionErrors))

	want := []domain.Notification{{
		RequestID: "req-1",
		Requester: "@tester",
		Status:    domain.StatusProcessed,
		Points:    1,
		Rejected:  1,
		At:        time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
	}}
	if diff := cmp.Diff(want, notifier.sent); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestMarkerTransformer_EmptyIsAReply(t *testing.T) {
	notifier := &mockNotifier{}
	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(newTestConverter(t), nil, notifier, discardLogger(), metrics)

	reply, err := tfm.Reply(context.Background(), textEvent("req-2", "hello world"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEmpty, reply.Status)
	assert.Equal(t, domain.EmptyResultMessage, reply.Message)
	assert.Empty(t, reply.Document)
	assert.Empty(t, reply.FileName)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EmptyResults))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, domain.StatusEmpty, notifier.sent[0].Status)
}

func TestMarkerTransformer_GeocodingFillsPlaces(t *testing.T) {
	tfm := pipeline.NewTransformer(newTestConverter(t), stubGeocoder{}, nil, discardLogger(), observability.NewMetricsForTesting())

	reply, err := tfm.Reply(context.Background(), textEvent("req-3", "32.0853,34.7818"))
	require.NoError(t, err)
	require.Len(t, reply.Points, 1)
	assert.Equal(t, "Somewhere", reply.Points[0].Place)
	assert.Contains(t, reply.Summary[0], "(Somewhere)")
	assert.Contains(t, reply.Document, "<description>Somewhere, Israel</description>")
}

func TestMarkerTransformer_NotifierFailureIsNotFatal(t *testing.T) {
	notifier := &mockNotifier{err: errors.New("nats down")}
	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(newTestConverter(t), nil, notifier, discardLogger(), metrics)

	reply, err := tfm.Reply(context.Background(), textEvent("req-4", "32.0853,34.7818"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, reply.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Notifications.WithLabelValues("error")))
}

func TestMarkerTransformer_RequestIDWithoutKey(t *testing.T) {
	tfm := pipeline.NewTransformer(newTestConverter(t), nil, nil, discardLogger(), observability.NewMetricsForTesting())

	raw := domain.RawEvent{Value: []byte("32.1,34.2"), Topic: "raw-messages", Partition: 1, Offset: 9}
	reply, err := tfm.Reply(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestID(raw), reply.RequestID)
	assert.Empty(t, reply.Requester)
}
