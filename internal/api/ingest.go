package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridersettle/internal/importer"
)

// IngestRequest 导入请求
type IngestRequest struct {
	FilePath     string `json:"filePath" binding:"required"`
	FileName     string `json:"fileName"` // 原始文件名，用于推导结算周期
	BranchID     string `json:"branchId" binding:"required"`
	PlatformName string `json:"platformName" binding:"required"`
}

// bindIngest 解析请求并校验权限；失败时已写出响应
func (h *Handler) bindIngest(c *gin.Context) (importer.Request, bool) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filePath, branchId, platformName 为必填项"})
		return importer.Request{}, false
	}
	caller, ok := h.authorizeBranch(c, req.BranchID)
	if !ok {
		return importer.Request{}, false
	}
	return importer.Request{
		FilePath:  req.FilePath,
		FileName:  req.FileName,
		BranchID:  req.BranchID,
		CompanyID: caller.CompanyID,
		Platform:  req.PlatformName,
	}, true
}

func (h *Handler) runContext(parent context.Context) (context.Context, context.CancelFunc) {
	if h.runTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, h.runTimeout)
}

// Ingest 同步导入结算文件
// POST /api/settlements/ingest
func (h *Handler) Ingest(c *gin.Context) {
	req, ok := h.bindIngest(c)
	if !ok {
		return
	}

	ctx, cancel := h.runContext(c.Request.Context())
	defer cancel()

	res, err := h.coordinator.Run(ctx, req)
	if err != nil {
		c.JSON(statusFor(err), res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// IngestStream 导入结算文件 (SSE 流式响应)
// POST /api/settlements/ingest/stream
func (h *Handler) IngestStream(c *gin.Context) {
	req, ok := h.bindIngest(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx, cancel := h.runContext(c.Request.Context())
	defer cancel()

	for event := range h.coordinator.Import(ctx, req) {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}

		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}
