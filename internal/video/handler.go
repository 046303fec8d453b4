package video

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vidshare/backend/pkg/response"
)

const defaultMimeType = "video/mp4"

// Handler streams the shared video file with byte-range support.
type Handler struct {
	path   string
	logger *zap.Logger
}

// NewHandler creates a video streaming handler for the given file path.
func NewHandler(path string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{path: path, logger: logger}
}

// Stream handles GET /video. The file is stat'ed per request: it may
// have moved since the server started, and that is a 404, not a crash.
func (h *Handler) Stream(c *gin.Context) {
	info, err := os.Stat(h.path)
	if err != nil {
		h.logger.Error("video file missing", zap.String("path", h.path), zap.Error(err))
		response.NotFound(c, "video file not found")
		return
	}
	size := info.Size()
	mimeType := mime.TypeByExtension(filepath.Ext(h.path))
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	rng := ResolveRange(c.GetHeader("Range"), size)
	switch rng.Kind {
	case NotSatisfiable:
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", size))
		response.RangeNotSatisfiable(c)
		return
	case Satisfiable:
		h.serveWindow(c, rng, size, mimeType)
	default:
		h.serveFull(c, size, mimeType)
	}
}

func (h *Handler) serveWindow(c *gin.Context, rng Range, size int64, mimeType string) {
	f, err := os.Open(h.path)
	if err != nil {
		h.logger.Error("open video", zap.Error(err))
		response.Internal(c, "failed to open video file")
		return
	}
	defer f.Close()

	if _, err := f.Seek(rng.Start, io.SeekStart); err != nil {
		h.logger.Error("seek video", zap.Int64("start", rng.Start), zap.Error(err))
		response.Internal(c, "failed to read video file")
		return
	}

	c.Header("Content-Range", rng.ContentRange(size))
	c.Header("Accept-Ranges", "bytes")
	c.Header("Content-Length", fmt.Sprintf("%d", rng.Length()))
	c.Header("Content-Type", mimeType)
	c.Status(http.StatusPartialContent)

	if _, err := io.CopyN(c.Writer, f, rng.Length()); err != nil {
		// Headers are out; a client disconnect mid-stream is normal.
		h.logCopyError(err, rng.Start, rng.End)
	}
}

func (h *Handler) serveFull(c *gin.Context, size int64, mimeType string) {
	f, err := os.Open(h.path)
	if err != nil {
		h.logger.Error("open video", zap.Error(err))
		response.Internal(c, "failed to open video file")
		return
	}
	defer f.Close()

	c.Header("Accept-Ranges", "bytes")
	c.Header("Content-Length", fmt.Sprintf("%d", size))
	c.Header("Content-Type", mimeType)
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, f); err != nil {
		h.logCopyError(err, 0, size-1)
	}
}

func (h *Handler) logCopyError(err error, start, end int64) {
	if errors.Is(err, io.ErrClosedPipe) {
		return
	}
	h.logger.Debug("video stream interrupted",
		zap.Int64("start", start),
		zap.Int64("end", end),
		zap.Error(err),
	)
}
