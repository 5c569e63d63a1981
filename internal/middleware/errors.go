package middleware

import (
	"github.com/gin-gonic/gin"

	"askbox/internal/apierr"
)

// AbortWithError classifies err and writes {"err": message} with the
// matching status. Nothing after it in the chain runs.
func AbortWithError(c *gin.Context, err error) {
	apiErr := apierr.Classify(err)
	if apiErr == nil {
		apiErr = apierr.New(apierr.InvalidRequest)
	}
	_ = c.Error(apiErr)
	c.AbortWithStatusJSON(apiErr.Status(), apiErr.Body())
}

// NotFound answers unknown routes the same way as a denied admin request.
func NotFound(c *gin.Context) {
	AbortWithError(c, apierr.New(apierr.NotFound))
}
