package tracking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidshare/backend/internal/stats"
)

func newTrackingRouter(t *testing.T) (*gin.Engine, *stats.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := stats.NewFileStore(filepath.Join(t.TempDir(), "stats.json"), nil)
	require.NoError(t, err)
	svc, err := stats.NewService(context.Background(), store, "clip.mp4", 0, nil)
	require.NoError(t, err)

	h := NewHandler(svc, nil)
	r := gin.New()
	track := r.Group("/track")
	{
		track.POST("/start", h.Start)
		track.POST("/heartbeat", h.Heartbeat)
		track.POST("/pause", h.Pause)
		track.POST("/complete", h.Complete)
		track.POST("/exit", h.Exit)
		track.POST("/error", h.Error)
	}
	return r, svc
}

func post(t *testing.T, r *gin.Engine, path, body, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStartRequiresSessionID(t *testing.T) {
	r, svc := newTrackingRouter(t)

	w := post(t, r, "/track/start", `{"userAgent":"agent"}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(t, r, "/track/start", `not json`, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Zero(t, svc.Summary().ActiveSessionsCount)
}

func TestStartRegistersSession(t *testing.T) {
	r, svc := newTrackingRouter(t)

	w := post(t, r, "/track/start", `{"sessionId":"abc","userAgent":"agent","language":"en","screenSize":"1920x1080"}`, "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.Equal(t, 1, svc.Summary().ActiveSessionsCount)
}

func TestHeartbeatForUnknownSessionStillSucceeds(t *testing.T) {
	r, _ := newTrackingRouter(t)

	w := post(t, r, "/track/heartbeat", `{"sessionId":"ghost","duration":30,"progress":0.4}`, "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFullPlaybackFlow(t *testing.T) {
	r, svc := newTrackingRouter(t)

	require.Equal(t, http.StatusOK, post(t, r, "/track/start", `{"sessionId":"abc"}`, "application/json").Code)
	require.Equal(t, http.StatusOK, post(t, r, "/track/heartbeat", `{"sessionId":"abc","duration":30,"progress":0.4}`, "application/json").Code)
	require.Equal(t, http.StatusOK, post(t, r, "/track/pause", `{"sessionId":"abc","duration":45,"progress":0.6}`, "application/json").Code)
	require.Equal(t, http.StatusOK, post(t, r, "/track/complete", `{"sessionId":"abc","duration":90}`, "application/json").Code)

	sum := svc.Summary()
	assert.Zero(t, sum.ActiveSessionsCount)
	assert.Equal(t, 1, sum.ViewDurationCount)

	// A late heartbeat after finalize is accepted and ignored.
	w := post(t, r, "/track/heartbeat", `{"sessionId":"abc","duration":91,"progress":1}`, "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.Summary().ViewDurationCount)
}

func TestExitAcceptsBeaconContentType(t *testing.T) {
	r, svc := newTrackingRouter(t)

	require.Equal(t, http.StatusOK, post(t, r, "/track/start", `{"sessionId":"abc"}`, "application/json").Code)

	// sendBeacon can deliver JSON as text/plain; the body is still parsed.
	w := post(t, r, "/track/exit", `{"sessionId":"abc","duration":12,"progress":0.2}`, "text/plain")
	assert.Equal(t, http.StatusOK, w.Code)

	sum := svc.Summary()
	assert.Zero(t, sum.ActiveSessionsCount)
	assert.Equal(t, 1, sum.ViewDurationCount)
}

func TestExitIsIdempotentOverHTTP(t *testing.T) {
	r, svc := newTrackingRouter(t)

	require.Equal(t, http.StatusOK, post(t, r, "/track/start", `{"sessionId":"abc"}`, "application/json").Code)

	body := `{"sessionId":"abc","duration":12,"progress":0.2}`
	assert.Equal(t, http.StatusOK, post(t, r, "/track/exit", body, "application/json").Code)
	assert.Equal(t, http.StatusOK, post(t, r, "/track/exit", body, "application/json").Code)

	assert.Equal(t, 1, svc.Summary().ViewDurationCount)
}

func TestErrorAlwaysSucceeds(t *testing.T) {
	r, _ := newTrackingRouter(t)

	w := post(t, r, "/track/error", `{"sessionId":"abc","errorCode":"4","errorMessage":"decode failed"}`, "application/json")
	assert.Equal(t, http.StatusOK, w.Code)

	// Even an unparseable body is acknowledged.
	w = post(t, r, "/track/error", `garbage`, "text/plain")
	assert.Equal(t, http.StatusOK, w.Code)
}
