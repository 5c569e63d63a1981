package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"askbox/internal/apierr"
	"askbox/internal/model"
)

// pathID parses the :id segment. Ids are int4 columns, so anything that is
// not a 32-bit integer is reported as NotFound, the same as a route that
// does not exist.
func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return 0, apierr.New(apierr.NotFound)
	}
	return id, nil
}

// bindJSON decodes the body. Malformed JSON answers 400 {"error": ...} and
// returns false.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func timeRangeQuery(c *gin.Context) (model.TimeRange, error) {
	var r model.TimeRange
	if v, ok := c.GetQuery("before"); ok {
		ts, err := model.ParseTimestamp(v)
		if err != nil {
			return model.TimeRange{}, apierr.New(apierr.InvalidRequest)
		}
		r.Before = ts
	}
	if v, ok := c.GetQuery("after"); ok {
		ts, err := model.ParseTimestamp(v)
		if err != nil {
			return model.TimeRange{}, apierr.New(apierr.InvalidRequest)
		}
		r.After = ts
	}
	return r, nil
}
