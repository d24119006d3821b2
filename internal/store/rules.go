package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ridersettle/internal/model"
)

// GetRule 获取 (branch, platform) 的生效解析规则；不存在时返回 model.ErrRuleNotFound
func (s *Store) GetRule(ctx context.Context, branchID, platform string) (*model.ParsingRule, error) {
	var settings string
	err := s.db.QueryRowContext(ctx, `
		SELECT settings FROM platform_settings
		WHERE branch_id = ? AND platform_name = ? AND is_active = 1
	`, branchID, platform).Scan(&settings)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("branch %s platform %s: %w", branchID, platform, model.ErrRuleNotFound)
		}
		return nil, fmt.Errorf("failed to query platform settings: %w", err)
	}

	var r model.ParsingRule
	if err := json.Unmarshal([]byte(settings), &r); err != nil {
		return nil, &model.InvalidRuleError{Reason: fmt.Sprintf("stored settings are not valid json: %v", err)}
	}
	return &r, nil
}

// PutRule 保存解析规则：已存在则更新，否则插入
func (s *Store) PutRule(ctx context.Context, companyID, branchID, platform string, r *model.ParsingRule) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal parsing rule: %w", err)
	}

	now := time.Now().Format(timeLayout)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO platform_settings (id, company_id, branch_id, platform_name, settings, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(branch_id, platform_name) DO UPDATE SET
			settings = excluded.settings,
			is_active = 1,
			updated_at = excluded.updated_at
	`, uuid.New().String(), companyID, branchID, platform, string(data), now, now)
	if err != nil {
		return fmt.Errorf("failed to save platform settings: %w", err)
	}
	return nil
}

// DeleteRule 删除解析规则；不存在时返回 model.ErrRuleNotFound
func (s *Store) DeleteRule(ctx context.Context, branchID, platform string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM platform_settings WHERE branch_id = ? AND platform_name = ?",
		branchID, platform,
	)
	if err != nil {
		return fmt.Errorf("failed to delete platform settings: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("branch %s platform %s: %w", branchID, platform, model.ErrRuleNotFound)
	}
	return nil
}

// ListPlatforms 列出分店已配置规则的平台
func (s *Store) ListPlatforms(ctx context.Context, branchID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT platform_name FROM platform_settings WHERE branch_id = ? AND is_active = 1 ORDER BY platform_name",
		branchID,
	)
	if err != nil {
		return nil, fmt.Errorf("query platforms failed: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
