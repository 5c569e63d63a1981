package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"askbox/internal/middleware"
	"askbox/internal/store"
)

type AskeeHandler struct {
	Store store.Store
}

func (h *AskeeHandler) List(c *gin.Context) {
	askees, err := h.Store.ListAskees(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, askees)
}

func (h *AskeeHandler) Load(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	askee, err := h.Store.LoadAskee(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, askee)
}
