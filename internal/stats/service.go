package stats

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidshare/backend/internal/models"
)

// DefaultCompleteThreshold is the watched fraction at which an exiting
// session still counts as a completed view.
const DefaultCompleteThreshold = 0.95

// Publisher receives live tracking events (page views, session
// lifecycle) for fan-out to subscribers.
type Publisher interface {
	Publish(event string, payload interface{})
}

// Event names emitted to the Publisher.
const (
	EventPageView        = "page_view"
	EventSessionStart    = "session_start"
	EventSessionComplete = "session_complete"
	EventSessionExit     = "session_exit"
	EventPlayerError     = "player_error"
)

// SessionMeta carries the optional client descriptors sent with a
// start event.
type SessionMeta struct {
	UserAgent  string
	Language   string
	ScreenSize string
	IP         string
	Timestamp  *time.Time // client-reported start time
}

// Service owns the in-memory session map and the stats aggregate.
// All mutation goes through one mutex: requests are handled on
// arbitrary goroutines and the aggregate needs at most one writer.
//
// Persistence is best-effort. Store failures are logged and the caller
// still observes success; analytics never fail a viewer's request.
type Service struct {
	mu        sync.Mutex
	sessions  map[string]*models.Session
	data      *models.StatsData
	store     Store
	threshold float64
	publisher Publisher
	logger    *zap.Logger
}

// NewService loads persisted stats and creates the service. Active
// sessions always start empty; only the aggregate survives restarts.
func NewService(ctx context.Context, store Store, videoName string, threshold float64, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultCompleteThreshold
	}
	data, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	data.VideoName = videoName
	return &Service{
		sessions:  make(map[string]*models.Session),
		data:      data,
		store:     store,
		threshold: threshold,
		logger:    logger,
	}, nil
}

// SetPublisher wires the live event feed. May be left unset.
func (s *Service) SetPublisher(p Publisher) {
	s.mu.Lock()
	s.publisher = p
	s.mu.Unlock()
}

// RecordPageView appends a ViewDetail, bumps the counters and persists.
func (s *Service) RecordPageView(ctx context.Context, ip, userAgent, referrer string) {
	if referrer == "" {
		referrer = "direct"
	}
	now := time.Now().UTC()
	view := models.ViewDetail{
		ID:        uuid.New().String(),
		Timestamp: now,
		IP:        ip,
		UserAgent: userAgent,
		Referrer:  referrer,
	}

	s.mu.Lock()
	if s.data.FirstView == nil {
		s.data.FirstView = &now
	}
	s.data.LastView = &now
	s.data.TotalViews++
	s.data.ViewDetails = append(s.data.ViewDetails, view)
	total := s.data.TotalViews
	if err := s.store.RecordPageView(ctx, s.data, view); err != nil {
		s.logger.Error("persist page view", zap.Error(err))
	}
	s.mu.Unlock()

	s.logger.Info("page view", zap.Int("total_views", total), zap.String("ip", ip))
	s.publish(EventPageView, view)
}

// StartSession registers a new playback session. Starting an already
// active session id is a logged no-op; sessions are not re-entrant.
func (s *Service) StartSession(sessionID string, meta SessionMeta) {
	started := time.Now()
	if meta.Timestamp != nil {
		started = *meta.Timestamp
	}

	s.mu.Lock()
	if _, exists := s.sessions[sessionID]; exists {
		s.mu.Unlock()
		s.logger.Warn("session already active", zap.String("session_id", sessionID))
		return
	}
	session := &models.Session{
		SessionID:    sessionID,
		StartedAt:    started,
		LastActiveAt: time.Now(),
		UserAgent:    meta.UserAgent,
		Language:     meta.Language,
		ScreenSize:   meta.ScreenSize,
		IP:           meta.IP,
	}
	s.sessions[sessionID] = session
	s.mu.Unlock()

	s.logger.Info("view started", zap.String("session_id", sessionID), zap.String("ip", meta.IP))
	s.publish(EventSessionStart, session)
}

// UpdateSession records a heartbeat or pause. Unknown sessions (late
// heartbeats after exit, duplicate deliveries) are benign no-ops.
func (s *Service) UpdateSession(sessionID string, duration, progress float64) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("update for unknown session", zap.String("session_id", sessionID))
		return
	}
	session.LastActiveAt = time.Now()
	session.Duration = clampDuration(duration)
	session.Progress = clampProgress(progress)
	s.mu.Unlock()
}

// FinalizeSession converts an active session into a durable
// ViewDurationRecord, persists it and removes the session. Finalizing
// an unknown or already finalized session is a no-op, which makes the
// operation idempotent per session.
func (s *Service) FinalizeSession(ctx context.Context, sessionID string, duration, progress float64, isCompleted bool) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		s.logger.Debug("finalize for unknown session", zap.String("session_id", sessionID))
		return
	}

	rec := models.ViewDurationRecord{
		SessionID: sessionID,
		Duration:  clampDuration(duration),
		Progress:  clampProgress(progress),
		Completed: isCompleted || clampProgress(progress) >= s.threshold,
		Timestamp: time.Now().UTC(),
		Device:    session.UserAgent,
		IP:        session.IP,
	}
	s.data.ViewDuration = append(s.data.ViewDuration, rec)
	delete(s.sessions, sessionID)
	if err := s.store.RecordViewDuration(ctx, s.data, rec); err != nil {
		s.logger.Error("persist view duration", zap.Error(err))
	}
	s.mu.Unlock()

	event := EventSessionExit
	if rec.Completed {
		event = EventSessionComplete
	}
	s.logger.Info("view finished",
		zap.String("session_id", sessionID),
		zap.Bool("completed", rec.Completed),
		zap.Float64("duration_sec", rec.Duration),
		zap.Float64("progress", rec.Progress),
	)
	s.publish(event, rec)
}

// ReportError logs a client-side player error. Best-effort diagnostics;
// no session state changes.
func (s *Service) ReportError(sessionID, code, message string) {
	s.logger.Warn("player error",
		zap.String("session_id", sessionID),
		zap.String("code", code),
		zap.String("message", message),
	)
	s.publish(EventPlayerError, map[string]string{
		"session_id": sessionID,
		"code":       code,
		"message":    message,
	})
}

// Summary returns the counters-only view of the aggregate.
func (s *Service) Summary() models.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Summary{
		VideoName:           s.data.VideoName,
		TotalViews:          s.data.TotalViews,
		FirstView:           s.data.FirstView,
		LastView:            s.data.LastView,
		ViewDurationCount:   len(s.data.ViewDuration),
		ViewDetailsCount:    len(s.data.ViewDetails),
		ActiveSessionsCount: len(s.sessions),
	}
}

// Flush persists the current aggregate, used during shutdown.
func (s *Service) Flush(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Flush(ctx, s.data); err != nil {
		s.logger.Error("flush stats", zap.Error(err))
	}
}

func (s *Service) publish(event string, payload interface{}) {
	s.mu.Lock()
	p := s.publisher
	s.mu.Unlock()
	if p != nil {
		p.Publish(event, payload)
	}
}

func clampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func clampDuration(d float64) float64 {
	if d < 0 {
		return 0
	}
	return d
}
