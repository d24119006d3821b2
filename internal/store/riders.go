package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ridersettle/internal/model"
)

// UpsertRider 新增或更新骑手
func (s *Store) UpsertRider(ctx context.Context, r *model.Rider) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = "active"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO riders (id, company_id, branch_id, rider_code, name, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			company_id = excluded.company_id,
			branch_id = excluded.branch_id,
			rider_code = excluded.rider_code,
			name = excluded.name,
			status = excluded.status
	`, r.ID, r.CompanyID, r.BranchID, r.RiderCode, r.Name, r.Status, time.Now().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to upsert rider: %w", err)
	}
	return nil
}

// FindRider 在分店范围内查找骑手。编号与 ID 都匹配 rider_code，姓名匹配 name。
// 未找到或匹配到多条（无法确定是谁）时返回 model.ErrNotFound
func (s *Store) FindRider(ctx context.Context, branchID string, lookup model.RiderLookup) (*model.RiderRef, error) {
	var column string
	switch lookup.By {
	case model.LookupCode, model.LookupID:
		column = "rider_code"
	case model.LookupName:
		column = "name"
	default:
		return nil, fmt.Errorf("unsupported rider lookup %q", lookup.By)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name FROM riders WHERE branch_id = ? AND "+column+" = ? LIMIT 2",
		branchID, lookup.Value,
	)
	if err != nil {
		return nil, fmt.Errorf("query riders failed: %w", err)
	}
	defer rows.Close()

	var found []model.RiderRef
	for rows.Next() {
		var ref model.RiderRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("scan rider failed: %w", err)
		}
		found = append(found, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate riders failed: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("rider %s=%s: %w", lookup.By, lookup.Value, model.ErrNotFound)
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("rider %s=%s is ambiguous: %w", lookup.By, lookup.Value, model.ErrNotFound)
	}
}

// ListRiders 列出分店骑手
func (s *Store) ListRiders(ctx context.Context, branchID string) ([]*model.Rider, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, branch_id, rider_code, name, status
		FROM riders WHERE branch_id = ? ORDER BY name
	`, branchID)
	if err != nil {
		return nil, fmt.Errorf("query riders failed: %w", err)
	}
	defer rows.Close()

	var out []*model.Rider
	for rows.Next() {
		var r model.Rider
		if err := rows.Scan(&r.ID, &r.CompanyID, &r.BranchID, &r.RiderCode, &r.Name, &r.Status); err != nil {
			return nil, fmt.Errorf("scan rider failed: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
