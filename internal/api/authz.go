package api

import (
	"github.com/gin-gonic/gin"

	"ridersettle/internal/auth"
	"ridersettle/internal/model"
)

// authorizeBranch 校验当前调用方可操作该分店；失败时已写出响应
func (h *Handler) authorizeBranch(c *gin.Context, branchID string) (*model.Caller, bool) {
	caller := auth.CallerFrom(c)
	if err := auth.Authorize(caller, branchID); err != nil {
		h.fail(c, err)
		return nil, false
	}
	return caller, true
}
