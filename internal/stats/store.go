package stats

import (
	"context"

	"github.com/vidshare/backend/internal/models"
)

// Store persists the stats aggregate. Implementations receive both the
// full in-memory snapshot and the record that caused the mutation, so a
// rewrite-the-world backend (JSON file) and an append-style backend
// (PostgreSQL) can live behind the same contract.
type Store interface {
	// Load returns the persisted aggregate, or an empty one when nothing
	// usable is stored. Load must not fail on absent or corrupt data.
	Load(ctx context.Context) (*models.StatsData, error)

	// RecordPageView persists the state after a page view was appended.
	RecordPageView(ctx context.Context, snapshot *models.StatsData, view models.ViewDetail) error

	// RecordViewDuration persists the state after a session was finalized.
	RecordViewDuration(ctx context.Context, snapshot *models.StatsData, rec models.ViewDurationRecord) error

	// Flush writes the current snapshot out, used on shutdown.
	Flush(ctx context.Context, snapshot *models.StatsData) error

	Close()
}
