package models

import "time"

// Session is one in-flight playback attempt, keyed by a client-generated id.
// Sessions live only in memory; they are never persisted.
type Session struct {
	SessionID    string    `json:"session_id"`
	StartedAt    time.Time `json:"started_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	UserAgent    string    `json:"user_agent"`
	Language     string    `json:"language"`
	ScreenSize   string    `json:"screen_size"`
	IP           string    `json:"ip"`
	Duration     float64   `json:"duration"` // accumulated watched seconds
	Progress     float64   `json:"progress"` // fraction of media played, [0,1]
	Completed    bool      `json:"completed"`
}

// ViewDurationRecord is the durable outcome of a finished session.
type ViewDurationRecord struct {
	SessionID string    `json:"sessionId"`
	Duration  float64   `json:"duration"`
	Progress  float64   `json:"progress"`
	Completed bool      `json:"completed"`
	Timestamp time.Time `json:"timestamp"`
	Device    string    `json:"device"` // the session's user agent
	IP        string    `json:"ip,omitempty"`
}

// ViewDetail records one page load of the player.
type ViewDetail struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	Referrer  string    `json:"referrer"`
}

// StatsData is the durable aggregate. Active sessions are excluded from
// the persisted form by construction.
type StatsData struct {
	VideoName    string               `json:"videoName"`
	TotalViews   int                  `json:"totalViews"`
	FirstView    *time.Time           `json:"firstView"`
	LastView     *time.Time           `json:"lastView"`
	ViewDuration []ViewDurationRecord `json:"viewDuration"`
	ViewDetails  []ViewDetail         `json:"viewDetails"`
}

// Summary is the counters-only view returned by GET /stats. The raw
// record arrays are never exposed so the payload stays bounded.
type Summary struct {
	VideoName           string     `json:"videoName"`
	TotalViews          int        `json:"totalViews"`
	FirstView           *time.Time `json:"firstView"`
	LastView            *time.Time `json:"lastView"`
	ViewDurationCount   int        `json:"viewDurationCount"`
	ViewDetailsCount    int        `json:"viewDetailsCount"`
	ActiveSessionsCount int        `json:"activeSessionsCount"`
}
