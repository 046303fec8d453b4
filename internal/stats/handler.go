package stats

import (
	"github.com/gin-gonic/gin"

	"github.com/vidshare/backend/pkg/response"
)

// Handler handles GET /stats.
type Handler struct {
	service *Service
}

// NewHandler creates a stats handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Summary handles GET /stats. Counters only; the raw record arrays stay
// server-side.
func (h *Handler) Summary(c *gin.Context) {
	response.OK(c, h.service.Summary())
}
