package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"edms-backend/internal/documents"
	"edms-backend/internal/projects"
	"edms-backend/internal/reports"
	"edms-backend/internal/shared/config"
	"edms-backend/internal/shared/server/middleware"
	"edms-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config           config.Config
	ProjectsHandler  *projects.Handler
	DocumentsHandler *documents.Handler
	ReportsHandler   *reports.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	deps.ProjectsHandler.RegisterRoutes(api)
	deps.DocumentsHandler.RegisterRoutes(api)
	deps.ReportsHandler.RegisterRoutes(api)

	return r
}

// Addr formats a listen address from the configured port.
func Addr(port string) string {
	if port == "" {
		port = "8080"
	}
	return ":" + port
}
