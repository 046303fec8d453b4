package stats

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidshare/backend/internal/models"
)

// memStore records what the service asked it to persist.
type memStore struct {
	mu        sync.Mutex
	loaded    *models.StatsData
	pageViews []models.ViewDetail
	durations []models.ViewDurationRecord
	flushes   int
}

func (m *memStore) Load(context.Context) (*models.StatsData, error) {
	if m.loaded != nil {
		return m.loaded, nil
	}
	return &models.StatsData{}, nil
}

func (m *memStore) RecordPageView(_ context.Context, _ *models.StatsData, view models.ViewDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageViews = append(m.pageViews, view)
	return nil
}

func (m *memStore) RecordViewDuration(_ context.Context, _ *models.StatsData, rec models.ViewDurationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations = append(m.durations, rec)
	return nil
}

func (m *memStore) Flush(context.Context, *models.StatsData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return nil
}

func (m *memStore) Close() {}

type capturePublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *capturePublisher) Publish(event string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func newTestService(t *testing.T, store *memStore) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), store, "clip.mp4", 0, nil)
	require.NoError(t, err)
	return svc
}

func TestRecordPageView(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)

	svc.RecordPageView(context.Background(), "1.2.3.4", "agent", "")
	svc.RecordPageView(context.Background(), "1.2.3.4", "agent", "https://elsewhere")

	sum := svc.Summary()
	assert.Equal(t, "clip.mp4", sum.VideoName)
	assert.Equal(t, 2, sum.TotalViews)
	assert.Equal(t, 2, sum.ViewDetailsCount)
	require.NotNil(t, sum.FirstView)
	require.NotNil(t, sum.LastView)
	assert.False(t, sum.LastView.Before(*sum.FirstView))

	require.Len(t, store.pageViews, 2)
	assert.Equal(t, "direct", store.pageViews[0].Referrer)
	assert.Equal(t, "https://elsewhere", store.pageViews[1].Referrer)
	assert.NotEmpty(t, store.pageViews[0].ID)
}

func TestSessionLifecycle(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)

	svc.StartSession("abc", SessionMeta{UserAgent: "agent", IP: "1.2.3.4"})
	assert.Equal(t, 1, svc.Summary().ActiveSessionsCount)

	svc.UpdateSession("abc", 15, 0.3)
	svc.FinalizeSession(context.Background(), "abc", 42, 1.0, true)

	sum := svc.Summary()
	assert.Zero(t, sum.ActiveSessionsCount)
	assert.Equal(t, 1, sum.ViewDurationCount)

	require.Len(t, store.durations, 1)
	rec := store.durations[0]
	assert.Equal(t, "abc", rec.SessionID)
	assert.Equal(t, 42.0, rec.Duration)
	assert.Equal(t, 1.0, rec.Progress)
	assert.True(t, rec.Completed)
	assert.Equal(t, "agent", rec.Device)
	assert.Equal(t, "1.2.3.4", rec.IP)
}

func TestFinalizeIsIdempotent(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)

	svc.StartSession("abc", SessionMeta{})
	svc.FinalizeSession(context.Background(), "abc", 10, 0.5, false)
	svc.FinalizeSession(context.Background(), "abc", 10, 0.5, false)
	svc.FinalizeSession(context.Background(), "abc", 99, 1.0, true)

	assert.Len(t, store.durations, 1)
	assert.Equal(t, 1, svc.Summary().ViewDurationCount)
}

func TestDuplicateStartIsNoOp(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)

	first := time.Now().Add(-time.Minute)
	svc.StartSession("abc", SessionMeta{Timestamp: &first, UserAgent: "original"})
	svc.StartSession("abc", SessionMeta{UserAgent: "imposter"})

	assert.Equal(t, 1, svc.Summary().ActiveSessionsCount)

	svc.FinalizeSession(context.Background(), "abc", 5, 0.1, false)
	require.Len(t, store.durations, 1)
	assert.Equal(t, "original", store.durations[0].Device)
}

func TestUnknownSessionUpdatesAreNoOps(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)

	svc.UpdateSession("ghost", 10, 0.5)
	svc.FinalizeSession(context.Background(), "ghost", 10, 0.5, false)

	sum := svc.Summary()
	assert.Zero(t, sum.ActiveSessionsCount)
	assert.Zero(t, sum.ViewDurationCount)
	assert.Empty(t, store.durations)
}

func TestCompletionThreshold(t *testing.T) {
	tests := []struct {
		name      string
		progress  float64
		completed bool
		want      bool
	}{
		{"below threshold", 0.90, false, false},
		{"at threshold", DefaultCompleteThreshold, false, true},
		{"above threshold", 0.99, false, true},
		{"explicit complete wins regardless", 0.10, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			svc := newTestService(t, store)
			svc.StartSession("s", SessionMeta{})
			svc.FinalizeSession(context.Background(), "s", 30, tt.progress, tt.completed)
			require.Len(t, store.durations, 1)
			assert.Equal(t, tt.want, store.durations[0].Completed)
		})
	}
}

func TestCustomThreshold(t *testing.T) {
	store := &memStore{}
	svc, err := NewService(context.Background(), store, "clip.mp4", 0.5, nil)
	require.NoError(t, err)

	svc.StartSession("s", SessionMeta{})
	svc.FinalizeSession(context.Background(), "s", 30, 0.6, false)
	require.Len(t, store.durations, 1)
	assert.True(t, store.durations[0].Completed)
}

func TestValuesAreClamped(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)

	svc.StartSession("s", SessionMeta{})
	svc.FinalizeSession(context.Background(), "s", -10, 1.7, false)

	require.Len(t, store.durations, 1)
	assert.Zero(t, store.durations[0].Duration)
	assert.Equal(t, 1.0, store.durations[0].Progress)
	assert.True(t, store.durations[0].Completed)
}

func TestPublisherReceivesLifecycleEvents(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)
	pub := &capturePublisher{}
	svc.SetPublisher(pub)

	svc.RecordPageView(context.Background(), "1.2.3.4", "agent", "")
	svc.StartSession("s", SessionMeta{})
	svc.FinalizeSession(context.Background(), "s", 30, 1.0, true)
	svc.StartSession("s2", SessionMeta{})
	svc.FinalizeSession(context.Background(), "s2", 5, 0.1, false)
	svc.ReportError("s3", "4", "decode failed")

	assert.Equal(t, []string{
		EventPageView,
		EventSessionStart,
		EventSessionComplete,
		EventSessionStart,
		EventSessionExit,
		EventPlayerError,
	}, pub.events)
}

func TestServiceLoadsPersistedAggregate(t *testing.T) {
	seeded := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store := &memStore{loaded: &models.StatsData{
		TotalViews: 7,
		FirstView:  &seeded,
		LastView:   &seeded,
		ViewDuration: []models.ViewDurationRecord{
			{SessionID: "old", Duration: 12, Completed: true},
		},
	}}
	svc := newTestService(t, store)

	sum := svc.Summary()
	assert.Equal(t, 7, sum.TotalViews)
	assert.Equal(t, 1, sum.ViewDurationCount)
	assert.Zero(t, sum.ActiveSessionsCount)
	require.NotNil(t, sum.FirstView)
	assert.True(t, seeded.Equal(*sum.FirstView))
}

func TestFlush(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)
	svc.Flush(context.Background())
	assert.Equal(t, 1, store.flushes)
}
