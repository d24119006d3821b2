package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridersettle/internal/model"
)

// statusFor 错误分类 → HTTP 状态码；导入错误按其分类映射，不看底层原因
func statusFor(err error) int {
	var ie *model.IngestError
	if errors.As(err, &ie) {
		return statusForKind(ie.Kind)
	}
	return statusForKind(err)
}

func statusForKind(err error) int {
	switch {
	case errors.Is(err, model.ErrBadRequest), errors.Is(err, model.ErrInvalidRule):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrRuleNotFound), errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail 统一错误响应
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
