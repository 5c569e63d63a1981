package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"askbox/internal/auth"
)

// RequireAdmin admits requests whose X-TOKEN header matches the configured
// admin token. Anything else gets the same 404 as an unknown route.
func RequireAdmin(gate *auth.AdminGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := gate.Check(c.GetHeader(auth.AdminTokenHeader)); err != nil {
			slog.Warn("admin request denied",
				"path", c.Request.URL.Path,
				"request_id", RequestIDFromContext(c),
			)
			NotFound(c)
			return
		}
		c.Next()
	}
}
