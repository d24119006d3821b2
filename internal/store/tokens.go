package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ridersettle/internal/model"
)

// PutToken 写入访问令牌（已存在则覆盖身份）
func (s *Store) PutToken(ctx context.Context, token string, c model.Caller) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_tokens (token, role, company_id, branch_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET
			role = excluded.role,
			company_id = excluded.company_id,
			branch_id = excluded.branch_id
	`, token, string(c.Role), c.CompanyID, c.BranchID, time.Now().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to save api token: %w", err)
	}
	return nil
}

// LookupToken 令牌 → 调用方；不存在时返回 model.ErrUnauthenticated
func (s *Store) LookupToken(ctx context.Context, token string) (*model.Caller, error) {
	var (
		c    model.Caller
		role string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT role, company_id, branch_id FROM api_tokens WHERE token = ?", token,
	).Scan(&role, &c.CompanyID, &c.BranchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to query api token: %w", err)
	}
	c.Role = model.Role(role)
	return &c, nil
}
