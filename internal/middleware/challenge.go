package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"askbox/internal/captcha"
)

const verifiedContextKey = "captchaVerified"

type ChallengeVerifier interface {
	Verify(ctx context.Context, header http.Header, conn captcha.ConnInfo) (captcha.Verified, error)
}

// RequireChallenge runs the hCaptcha check before the handler. On success the
// captcha.Verified proof is stored on the context.
func RequireChallenge(v ChallengeVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		verified, err := v.Verify(c.Request.Context(), c.Request.Header, captcha.ConnInfo{RemoteAddr: c.Request.RemoteAddr})
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !verified.Valid() {
			AbortWithError(c, &captcha.Error{Cause: captcha.Invalid})
			return
		}
		c.Set(verifiedContextKey, verified)
		c.Next()
	}
}

func VerifiedFromContext(c *gin.Context) (captcha.Verified, bool) {
	value, ok := c.Get(verifiedContextKey)
	if !ok {
		return captcha.Verified{}, false
	}
	verified, ok := value.(captcha.Verified)
	return verified, ok && verified.Valid()
}
