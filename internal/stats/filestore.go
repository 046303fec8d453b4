package stats

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/vidshare/backend/internal/models"
)

// FileStore persists the aggregate as one JSON file, rewritten in full
// on every mutation. Fine for a single-user tool with low write volume.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a JSON file store at path, creating the parent
// directory if needed.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, err
		}
	}
	return &FileStore{path: path, logger: logger}, nil
}

// Load reads the stats file. A missing or unparseable file yields an
// empty aggregate; analytics never block startup.
func (s *FileStore) Load(_ context.Context) (*models.StatsData, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("stats file not found, starting empty", zap.String("path", s.path))
		} else {
			s.logger.Error("read stats file, starting empty", zap.Error(err))
		}
		return &models.StatsData{}, nil
	}
	var data models.StatsData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.Error("corrupt stats file, starting empty", zap.String("path", s.path), zap.Error(err))
		return &models.StatsData{}, nil
	}
	s.logger.Info("stats loaded", zap.String("path", s.path), zap.Int("total_views", data.TotalViews))
	return &data, nil
}

// RecordPageView rewrites the whole file; the appended view is already
// part of the snapshot.
func (s *FileStore) RecordPageView(ctx context.Context, snapshot *models.StatsData, _ models.ViewDetail) error {
	return s.Flush(ctx, snapshot)
}

// RecordViewDuration rewrites the whole file.
func (s *FileStore) RecordViewDuration(ctx context.Context, snapshot *models.StatsData, _ models.ViewDurationRecord) error {
	return s.Flush(ctx, snapshot)
}

// Flush writes the snapshot to disk.
func (s *FileStore) Flush(_ context.Context, snapshot *models.StatsData) error {
	raw, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0600)
}

// Close is a no-op for the file store.
func (s *FileStore) Close() {}
