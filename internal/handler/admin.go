package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"askbox/internal/middleware"
	"askbox/internal/model"
	"askbox/internal/store"
)

type AdminHandler struct {
	Store store.Store
	Now   func() time.Time
}

func (h *AdminHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// AddAskee registers a new askee. Only displayName is read from the body.
func (h *AdminHandler) AddAskee(c *gin.Context) {
	var body model.Askee
	if !bindJSON(c, &body) {
		return
	}

	ctx := c.Request.Context()
	id, err := h.Store.CreateAskee(ctx, body)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	askee, err := h.Store.LoadAskee(ctx, id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	slog.Info("askee added", "askee", askee.ID, "request_id", middleware.RequestIDFromContext(c))
	c.JSON(http.StatusOK, askee)
}

// Reload acknowledges a reload request. There is nothing to reload yet.
func (h *AdminHandler) Reload(c *gin.Context) {
	slog.Info("reload requested", "request_id", middleware.RequestIDFromContext(c))
	c.Status(http.StatusNoContent)
}

// AsksInRange lists an askee's asks with after < createdAt < before. before
// defaults to now and after to a day earlier.
func (h *AdminHandler) AsksInRange(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	r, err := timeRangeQuery(c)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	before, after := r.Resolve(h.now())

	asks, err := h.Store.ListAsksInRange(c.Request.Context(), id, before, after)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, asks)
}
