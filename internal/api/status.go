package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridersettle/internal/store"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Initialized    bool               `json:"initialized"`    // 是否已有导入
	Periods        *store.PeriodStats `json:"periods"`        // 周期统计
	LastIngestTime string             `json:"lastIngestTime"` // 最后导入时间
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.store.GetPeriodStats(ctx, "")
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := StatusResponse{
		Initialized: stats.Processing+stats.Completed+stats.Error > 0,
		Periods:     stats,
	}
	if at, err := h.store.LastIngestAt(ctx); err == nil && !at.IsZero() {
		resp.LastIngestTime = at.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}
