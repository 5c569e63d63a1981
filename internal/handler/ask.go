package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"askbox/internal/captcha"
	"askbox/internal/middleware"
	"askbox/internal/model"
	"askbox/internal/store"
)

type AskPublisher interface {
	PublishAsk(ask model.Ask)
}

type AskHandler struct {
	Store store.Store
	// Feed is optional.
	Feed AskPublisher
}

// Create stores a new ask. It only runs behind RequireChallenge.
func (h *AskHandler) Create(c *gin.Context) {
	if _, ok := middleware.VerifiedFromContext(c); !ok {
		middleware.AbortWithError(c, &captcha.Error{Cause: captcha.Missing})
		return
	}

	var body model.Ask
	if !bindJSON(c, &body) {
		return
	}

	ctx := c.Request.Context()
	id, err := h.Store.CreateAsk(ctx, body)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ask, err := h.Store.LoadAsk(ctx, id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	slog.Info("ask created", "ask", ask.ID, "askee", ask.Askee, "request_id", middleware.RequestIDFromContext(c))
	if h.Feed != nil {
		h.Feed.PublishAsk(ask)
	}
	c.JSON(http.StatusOK, ask)
}

func (h *AskHandler) Load(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ask, err := h.Store.LoadAsk(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ask)
}
