package stats

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vidshare/backend/internal/models"
)

// PostgresStore persists stats in PostgreSQL. Unlike FileStore it
// appends records per mutation instead of rewriting everything, but it
// honors the same Store contract.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a Postgres-backed stats store.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{pool: pool, logger: logger}
}

// Load reads the aggregate row and both record tables. Query failures
// degrade to an empty aggregate so analytics never block startup.
func (s *PostgresStore) Load(ctx context.Context) (*models.StatsData, error) {
	data := &models.StatsData{}

	err := s.pool.QueryRow(ctx,
		`SELECT video_name, total_views, first_view, last_view FROM stats_aggregate LIMIT 1`,
	).Scan(&data.VideoName, &data.TotalViews, &data.FirstView, &data.LastView)
	if err != nil {
		s.logger.Info("no persisted aggregate, starting empty", zap.Error(err))
		return &models.StatsData{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, viewed_at, ip, user_agent, referrer FROM view_details ORDER BY viewed_at`)
	if err != nil {
		s.logger.Error("load view details", zap.Error(err))
		return data, nil
	}
	for rows.Next() {
		var v models.ViewDetail
		if err := rows.Scan(&v.ID, &v.Timestamp, &v.IP, &v.UserAgent, &v.Referrer); err != nil {
			rows.Close()
			return data, nil
		}
		data.ViewDetails = append(data.ViewDetails, v)
	}
	rows.Close()

	rows, err = s.pool.Query(ctx,
		`SELECT session_id, duration, progress, completed, recorded_at, device, ip FROM view_durations ORDER BY recorded_at`)
	if err != nil {
		s.logger.Error("load view durations", zap.Error(err))
		return data, nil
	}
	defer rows.Close()
	for rows.Next() {
		var r models.ViewDurationRecord
		if err := rows.Scan(&r.SessionID, &r.Duration, &r.Progress, &r.Completed, &r.Timestamp, &r.Device, &r.IP); err != nil {
			return data, nil
		}
		data.ViewDuration = append(data.ViewDuration, r)
	}
	return data, nil
}

// RecordPageView inserts the view and upserts the aggregate counters.
func (s *PostgresStore) RecordPageView(ctx context.Context, snapshot *models.StatsData, view models.ViewDetail) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO view_details (id, viewed_at, ip, user_agent, referrer) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		view.ID, view.Timestamp, view.IP, view.UserAgent, view.Referrer); err != nil {
		return err
	}
	return s.upsertAggregate(ctx, snapshot)
}

// RecordViewDuration inserts the finalized session record. A repeated
// session id is a duplicate delivery and is dropped.
func (s *PostgresStore) RecordViewDuration(ctx context.Context, snapshot *models.StatsData, rec models.ViewDurationRecord) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO view_durations (session_id, duration, progress, completed, recorded_at, device, ip)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (session_id) DO NOTHING`,
		rec.SessionID, rec.Duration, rec.Progress, rec.Completed, rec.Timestamp, rec.Device, rec.IP); err != nil {
		return err
	}
	return s.upsertAggregate(ctx, snapshot)
}

// Flush upserts the aggregate row; records were already inserted.
func (s *PostgresStore) Flush(ctx context.Context, snapshot *models.StatsData) error {
	return s.upsertAggregate(ctx, snapshot)
}

func (s *PostgresStore) upsertAggregate(ctx context.Context, snapshot *models.StatsData) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO stats_aggregate (video_name, total_views, first_view, last_view)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (video_name) DO UPDATE
		 SET total_views = EXCLUDED.total_views, first_view = EXCLUDED.first_view, last_view = EXCLUDED.last_view`,
		snapshot.VideoName, snapshot.TotalViews, snapshot.FirstView, snapshot.LastView)
	return err
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
