package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"ridersettle/internal/model"
)

// TokenStore 令牌 → 调用方身份
type TokenStore interface {
	LookupToken(ctx context.Context, token string) (*model.Caller, error)
}

// Identity 身份服务
type Identity struct {
	tokens TokenStore
}

// NewIdentity 创建身份服务
func NewIdentity(tokens TokenStore) *Identity {
	return &Identity{tokens: tokens}
}

// CurrentCaller 根据令牌识别调用方；令牌为空或未知时返回 model.ErrUnauthenticated
func (i *Identity) CurrentCaller(ctx context.Context, token string) (*model.Caller, error) {
	if token == "" {
		return nil, model.ErrUnauthenticated
	}
	return i.tokens.LookupToken(ctx, token)
}

// CanManageSettlements 调用方是否可以导入结算与维护解析规则
func CanManageSettlements(c *model.Caller) bool {
	if c == nil {
		return false
	}
	switch c.Role {
	case model.RoleSuperAdmin, model.RoleCompanyAdmin, model.RoleBranchManager:
		return true
	}
	return false
}

// Authorize 校验调用方对分店的操作权限。分店经理只能操作自己的分店
func Authorize(c *model.Caller, branchID string) error {
	if c == nil {
		return model.ErrUnauthenticated
	}
	if !CanManageSettlements(c) {
		return fmt.Errorf("role %s: %w", c.Role, model.ErrForbidden)
	}
	if c.Role == model.RoleBranchManager && c.BranchID != branchID {
		return fmt.Errorf("branch %s is not managed by caller: %w", branchID, model.ErrForbidden)
	}
	return nil
}

// NewToken 生成随机访问令牌
func NewToken() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
