package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridersettle/internal/rule"
)

// ListRuleTemplates 内置规则模板
// GET /api/rule-templates
func (h *Handler) ListRuleTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": rule.Templates()})
}

// ValidateRule 校验规则但不保存
// POST /api/rules/validate
func (h *Handler) ValidateRule(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "读取请求失败"})
		return
	}
	r, err := rule.Parse(body)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "rule": r})
}

// ListPlatforms 分店已配置规则的平台
// GET /api/branches/:branchId/platforms
func (h *Handler) ListPlatforms(c *gin.Context) {
	branchID := c.Param("branchId")
	if _, ok := h.authorizeBranch(c, branchID); !ok {
		return
	}
	platforms, err := h.store.ListPlatforms(c.Request.Context(), branchID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if platforms == nil {
		platforms = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"platforms": platforms})
}

// GetRule 获取解析规则
// GET /api/branches/:branchId/platforms/:platform/rule
func (h *Handler) GetRule(c *gin.Context) {
	branchID := c.Param("branchId")
	if _, ok := h.authorizeBranch(c, branchID); !ok {
		return
	}
	r, err := h.store.GetRule(c.Request.Context(), branchID, c.Param("platform"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// PutRule 保存解析规则（存在则更新）
// PUT /api/branches/:branchId/platforms/:platform/rule
func (h *Handler) PutRule(c *gin.Context) {
	branchID := c.Param("branchId")
	caller, ok := h.authorizeBranch(c, branchID)
	if !ok {
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "读取请求失败"})
		return
	}
	r, err := rule.Parse(body)
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.store.PutRule(c.Request.Context(), caller.CompanyID, branchID, c.Param("platform"), r); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// DeleteRule 删除解析规则
// DELETE /api/branches/:branchId/platforms/:platform/rule
func (h *Handler) DeleteRule(c *gin.Context) {
	branchID := c.Param("branchId")
	if _, ok := h.authorizeBranch(c, branchID); !ok {
		return
	}
	if err := h.store.DeleteRule(c.Request.Context(), branchID, c.Param("platform")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
