package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridersettle/internal/model"
)

// RiderRequest 骑手新增/更新请求
type RiderRequest struct {
	ID        string `json:"id"`
	RiderCode string `json:"riderCode"`
	Name      string `json:"name" binding:"required"`
	Status    string `json:"status"`
}

// ListRiders 列出分店骑手
// GET /api/branches/:branchId/riders
func (h *Handler) ListRiders(c *gin.Context) {
	branchID := c.Param("branchId")
	if _, ok := h.authorizeBranch(c, branchID); !ok {
		return
	}
	riders, err := h.store.ListRiders(c.Request.Context(), branchID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if riders == nil {
		riders = []*model.Rider{}
	}
	c.JSON(http.StatusOK, gin.H{"riders": riders})
}

// UpsertRider 新增或更新骑手
// PUT /api/branches/:branchId/riders
func (h *Handler) UpsertRider(c *gin.Context) {
	branchID := c.Param("branchId")
	caller, ok := h.authorizeBranch(c, branchID)
	if !ok {
		return
	}

	var req RiderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	r := &model.Rider{
		ID:        req.ID,
		CompanyID: caller.CompanyID,
		BranchID:  branchID,
		RiderCode: req.RiderCode,
		Name:      req.Name,
		Status:    req.Status,
	}
	if err := h.store.UpsertRider(c.Request.Context(), r); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
