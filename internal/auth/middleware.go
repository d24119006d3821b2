package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ridersettle/internal/model"
)

const callerKey = "ridersettle.caller"

// Middleware 从 Authorization: Bearer <token> 识别调用方并放入上下文
func Middleware(id *Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		caller, err := id.CurrentCaller(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, model.ErrUnauthenticated) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "未登录或令牌无效"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "身份校验失败"})
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// CallerFrom 取出中间件识别的调用方
func CallerFrom(c *gin.Context) *model.Caller {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	caller, _ := v.(*model.Caller)
	return caller
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
