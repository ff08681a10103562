// Package respond centralizes the JSON shapes the document and project
// handlers emit, so success payloads and error envelopes stay uniform
// across the API surface.
package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes payload with the given status. Handlers use this for the
// 201-with-document upload response and other non-200 successes.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 response, the default for reads and patches.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}
