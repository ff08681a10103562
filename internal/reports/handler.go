// Package reports exposes the dashboard statistics endpoint and the
// report export stub.
package reports

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"edms-backend/internal/shared/server/respond"
	"edms-backend/internal/store"
)

// Handler wires HTTP handlers to the store.
type Handler struct {
	Store store.Store
}

// NewHandler constructs a Handler.
func NewHandler(st store.Store) *Handler {
	return &Handler{Store: st}
}

// RegisterRoutes attaches report routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.stats)
	rg.GET("/reports/export", h.export)
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.Store.GetStats(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to compute stats", nil)
		return
	}
	respond.OK(c, stats)
}

// export acknowledges the request without generating anything. Real report
// generation is a frontend concern for now. The requested kind arrives as
// the `type` query parameter and is echoed back as reportType.
func (h *Handler) export(c *gin.Context) {
	respond.OK(c, gin.H{
		"message":    "Report generation is not implemented yet",
		"reportType": c.DefaultQuery("type", "document"),
		"timeRange":  c.DefaultQuery("timeRange", "month"),
		"format":     c.DefaultQuery("format", "pdf"),
	})
}
