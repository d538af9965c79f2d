package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/gin-gonic/gin"

	"github.com/bedrock-gateway/bedrock-assumerole/middleware"
	"github.com/bedrock-gateway/bedrock-assumerole/model"
)

var errInvocationLogDisabled = errors.New("invocation log is disabled")

// ListLogs returns recent invocation log entries, newest first.
//
// Query parameters: model, request_id, success (true/false), offset, limit.
func ListLogs(c *gin.Context) {
	if model.DB == nil {
		middleware.AbortWithError(c, http.StatusNotFound, errInvocationLogDisabled)
		return
	}

	q := model.InvocationLogQuery{
		ConfiguredModelId: c.Query("model"),
		RequestId:         c.Query("request_id"),
	}
	if v := c.Query("success"); v != "" {
		success, err := strconv.ParseBool(v)
		if err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, errors.Wrap(err, "invalid success"))
			return
		}
		q.Success = &success
	}

	var err error
	if q.Offset, err = queryInt(c, "offset"); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, err)
		return
	}
	if q.Limit, err = queryInt(c, "limit"); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, err)
		return
	}

	logs, err := model.ListInvocationLogs(gmw.Ctx(c), q)
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, err)
		return
	}
	if logs == nil {
		logs = []*model.InvocationLog{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    logs,
	})
}

// GetLogStats sums invocations per model over the last ?hours= (default 24).
func GetLogStats(c *gin.Context) {
	if model.DB == nil {
		middleware.AbortWithError(c, http.StatusNotFound, errInvocationLogDisabled)
		return
	}

	hours, err := queryInt(c, "hours")
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, err)
		return
	}
	if hours <= 0 {
		hours = 24
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour).UnixMilli()
	stats, err := model.SumInvocationStats(gmw.Ctx(c), since)
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, err)
		return
	}
	if stats == nil {
		stats = []model.InvocationStats{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    stats,
	})
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}
