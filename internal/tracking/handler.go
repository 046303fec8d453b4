package tracking

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"github.com/vidshare/backend/internal/stats"
	"github.com/vidshare/backend/pkg/response"
)

// Handler handles the POST /track/* playback lifecycle endpoints.
type Handler struct {
	service *stats.Service
	logger  *zap.Logger
}

// NewHandler creates a tracking handler.
func NewHandler(service *stats.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// StartRequest is the body for POST /track/start.
type StartRequest struct {
	SessionID  string     `json:"sessionId"`
	UserAgent  string     `json:"userAgent"`
	Language   string     `json:"language"`
	ScreenSize string     `json:"screenSize"`
	Timestamp  *time.Time `json:"timestamp"`
}

// ProgressRequest is the body for heartbeat, pause and exit events.
type ProgressRequest struct {
	SessionID string  `json:"sessionId"`
	Duration  float64 `json:"duration"`
	Progress  float64 `json:"progress"`
}

// CompleteRequest is the body for POST /track/complete.
type CompleteRequest struct {
	SessionID string  `json:"sessionId"`
	Duration  float64 `json:"duration"`
}

// ErrorRequest is the body for POST /track/error. Everything optional.
type ErrorRequest struct {
	SessionID    string `json:"sessionId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Start handles POST /track/start.
func (h *Handler) Start(c *gin.Context) {
	var req StartRequest
	if err := bindJSON(c, &req); err != nil || req.SessionID == "" {
		response.BadRequest(c, "missing sessionId")
		return
	}
	h.service.StartSession(req.SessionID, stats.SessionMeta{
		UserAgent:  req.UserAgent,
		Language:   req.Language,
		ScreenSize: req.ScreenSize,
		IP:         c.ClientIP(),
		Timestamp:  req.Timestamp,
	})
	response.Accepted(c)
}

// Heartbeat handles POST /track/heartbeat. Unknown sessions still get
// 200: a heartbeat racing an exit is not the client's problem.
func (h *Handler) Heartbeat(c *gin.Context) {
	h.update(c)
}

// Pause handles POST /track/pause.
func (h *Handler) Pause(c *gin.Context) {
	h.update(c)
}

func (h *Handler) update(c *gin.Context) {
	var req ProgressRequest
	if err := bindJSON(c, &req); err != nil || req.SessionID == "" {
		response.BadRequest(c, "invalid body")
		return
	}
	h.service.UpdateSession(req.SessionID, req.Duration, req.Progress)
	response.Accepted(c)
}

// Complete handles POST /track/complete: natural end of media.
func (h *Handler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := bindJSON(c, &req); err != nil || req.SessionID == "" {
		response.BadRequest(c, "invalid body")
		return
	}
	h.service.FinalizeSession(c.Request.Context(), req.SessionID, req.Duration, 1.0, true)
	response.Accepted(c)
}

// Exit handles POST /track/exit, usually delivered by sendBeacon during
// page teardown.
func (h *Handler) Exit(c *gin.Context) {
	var req ProgressRequest
	if err := bindJSON(c, &req); err != nil || req.SessionID == "" {
		response.BadRequest(c, "invalid body or missing sessionId")
		return
	}
	h.service.FinalizeSession(c.Request.Context(), req.SessionID, req.Duration, req.Progress, false)
	response.Accepted(c)
}

// Error handles POST /track/error. Always 200; this is best-effort
// diagnostics and nothing here should make the player retry.
func (h *Handler) Error(c *gin.Context) {
	var req ErrorRequest
	_ = bindJSON(c, &req)
	h.service.ReportError(req.SessionID, req.ErrorCode, req.ErrorMessage)
	response.Accepted(c)
}

// bindJSON decodes the body as JSON regardless of Content-Type.
// sendBeacon payloads can arrive as text/plain.
func bindJSON(c *gin.Context, obj interface{}) error {
	return c.ShouldBindWith(obj, binding.JSON)
}
