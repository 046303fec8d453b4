// Package web serves the embedded player frontend. Loading the page is
// what counts as a page view.
package web

import (
	"embed"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vidshare/backend/internal/stats"
)

//go:embed static
var staticFS embed.FS

// Handler serves the player page and its assets.
type Handler struct {
	service *stats.Service
	page    []byte
	logger  *zap.Logger
}

// NewHandler creates the frontend handler. message is rendered into the
// player page greeting.
func NewHandler(service *stats.Service, message string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	raw, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		// The asset is compiled in; a failure here is a build defect.
		panic(err)
	}
	page := strings.Replace(string(raw), "{{MESSAGE}}", htmlEscape(message), 1)
	return &Handler{service: service, page: []byte(page), logger: logger}
}

// Player handles GET /: records the page view and serves the player.
func (h *Handler) Player(c *gin.Context) {
	h.service.RecordPageView(
		c.Request.Context(),
		c.ClientIP(),
		c.GetHeader("User-Agent"),
		c.GetHeader("Referer"),
	)
	c.Data(http.StatusOK, "text/html; charset=utf-8", h.page)
}

// Asset serves static assets (player script, stylesheet).
func (h *Handler) Asset(c *gin.Context) {
	c.FileFromFS("static/"+c.Param("name"), http.FS(staticFS))
}

func htmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&#34;",
		"'", "&#39;",
	)
	return r.Replace(s)
}
