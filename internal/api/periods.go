package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridersettle/internal/model"
	"ridersettle/internal/store"
)

// ListPeriods 查询分店结算周期
// GET /api/settlements/periods?branchId=&platform=&status=&limit=&offset=
func (h *Handler) ListPeriods(c *gin.Context) {
	branchID := c.Query("branchId")
	if branchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 branchId"})
		return
	}
	if _, ok := h.authorizeBranch(c, branchID); !ok {
		return
	}

	opts := store.PeriodQueryOptions{BranchID: &branchID}
	if v := c.Query("platform"); v != "" {
		opts.Platform = &v
	}
	if v := c.Query("status"); v != "" {
		status := model.PeriodStatus(v)
		opts.Status = &status
	}
	opts.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	opts.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	periods, err := h.store.ListPeriods(c.Request.Context(), opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	if periods == nil {
		periods = []*model.SettlementPeriod{}
	}
	c.JSON(http.StatusOK, gin.H{"periods": periods})
}

// loadPeriod 读取周期并校验分店权限；失败时已写出响应
func (h *Handler) loadPeriod(c *gin.Context) (*model.SettlementPeriod, bool) {
	p, err := h.store.GetPeriod(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	if _, ok := h.authorizeBranch(c, p.BranchID); !ok {
		return nil, false
	}
	return p, true
}

// GetPeriod 获取结算周期及工作表摘要
// GET /api/settlements/periods/:id
func (h *Handler) GetPeriod(c *gin.Context) {
	p, ok := h.loadPeriod(c)
	if !ok {
		return
	}
	sheets, err := h.store.ListPeriodSheets(c.Request.Context(), p.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if sheets == nil {
		sheets = []model.SheetSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"period": p, "sheets": sheets})
}

// ListRecords 周期内结算记录
// GET /api/settlements/periods/:id/records
func (h *Handler) ListRecords(c *gin.Context) {
	p, ok := h.loadPeriod(c)
	if !ok {
		return
	}
	records, err := h.store.ListRecords(c.Request.Context(), p.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if records == nil {
		records = []*model.SettlementRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// DeletePeriod 删除结算周期（记录一并删除）
// DELETE /api/settlements/periods/:id
func (h *Handler) DeletePeriod(c *gin.Context) {
	p, ok := h.loadPeriod(c)
	if !ok {
		return
	}
	if err := h.store.DeletePeriod(c.Request.Context(), p.ID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
