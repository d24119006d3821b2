package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridersettle/internal/blob"
)

// UploadResponse 上传结果；filePath 用于后续导入
type UploadResponse struct {
	FilePath string `json:"filePath"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
}

// Upload 上传结算文件
// POST /api/uploads (multipart: file, branchId)
func (h *Handler) Upload(c *gin.Context) {
	branchID := c.PostForm("branchId")
	if branchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 branchId"})
		return
	}
	if _, ok := h.authorizeBranch(c, branchID); !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无法读取上传文件"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无法读取上传文件"})
		return
	}

	path := blob.SettlementPath(branchID, header.Filename, time.Now())
	if err := h.blobs.PutBytes(c.Request.Context(), path, data); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, UploadResponse{
		FilePath: path,
		FileName: header.Filename,
		Size:     int64(len(data)),
	})
}
