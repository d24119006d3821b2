package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ridersettle/internal/model"
)

const timeLayout = time.RFC3339Nano

// CreatePeriod 创建结算周期（状态 processing）
func (s *Store) CreatePeriod(ctx context.Context, p *model.SettlementPeriod) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt
	if p.Status == "" {
		p.Status = model.PeriodProcessing
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settlement_periods (
			id, company_id, branch_id, platform_name, period_name,
			start_date, end_date, file_path, status, records_count,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.CompanyID, p.BranchID, p.Platform, p.PeriodName,
		p.StartDate.Format(timeLayout), p.EndDate.Format(timeLayout), p.FilePath, string(p.Status), p.RecordsCount,
		p.CreatedAt.Format(timeLayout), p.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlement period: %w", err)
	}
	return nil
}

// CompletePeriod processing → completed，同时写入记录数
func (s *Store) CompletePeriod(ctx context.Context, id string, recordsCount int) error {
	return s.finishPeriod(ctx, id, model.PeriodCompleted, recordsCount, "")
}

// FailPeriod processing → error
func (s *Store) FailPeriod(ctx context.Context, id string, reason string) error {
	return s.finishPeriod(ctx, id, model.PeriodError, 0, reason)
}

// finishPeriod 终态迁移；只允许从 processing 出发
func (s *Store) finishPeriod(ctx context.Context, id string, status model.PeriodStatus, recordsCount int, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE settlement_periods SET
			status = ?,
			records_count = ?,
			error_message = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`, string(status), recordsCount, reason, time.Now().Format(timeLayout), id, string(model.PeriodProcessing))
	if err != nil {
		return fmt.Errorf("failed to update settlement period: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("settlement period %s is not processing: %w", id, model.ErrNotFound)
	}
	return nil
}

// GetPeriod 按 ID 获取结算周期
func (s *Store) GetPeriod(ctx context.Context, id string) (*model.SettlementPeriod, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, branch_id, platform_name, period_name,
			start_date, end_date, file_path, status, records_count,
			error_message, created_at, updated_at
		FROM settlement_periods WHERE id = ?
	`, id)
	p, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("settlement period %s: %w", id, model.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

// PeriodQueryOptions 结算周期查询选项
type PeriodQueryOptions struct {
	BranchID *string
	Platform *string
	Status   *model.PeriodStatus
	Limit    int
	Offset   int
}

// ListPeriods 查询结算周期（按创建时间倒序）
func (s *Store) ListPeriods(ctx context.Context, opts PeriodQueryOptions) ([]*model.SettlementPeriod, error) {
	query := `
		SELECT id, company_id, branch_id, platform_name, period_name,
			start_date, end_date, file_path, status, records_count,
			error_message, created_at, updated_at
		FROM settlement_periods WHERE 1=1`
	args := []interface{}{}

	if opts.BranchID != nil {
		query += " AND branch_id = ?"
		args = append(args, *opts.BranchID)
	}
	if opts.Platform != nil {
		query += " AND platform_name = ?"
		args = append(args, *opts.Platform)
	}
	if opts.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*opts.Status))
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query settlement periods failed: %w", err)
	}
	defer rows.Close()

	var out []*model.SettlementPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlement periods failed: %w", err)
	}
	return out, nil
}

// DeletePeriod 删除结算周期（记录随外键级联删除）
func (s *Store) DeletePeriod(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM settlement_periods WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete settlement period: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("settlement period %s: %w", id, model.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPeriod(row rowScanner) (*model.SettlementPeriod, error) {
	var (
		p                                    model.SettlementPeriod
		status                               string
		startDate, endDate, created, updated string
	)
	if err := row.Scan(
		&p.ID, &p.CompanyID, &p.BranchID, &p.Platform, &p.PeriodName,
		&startDate, &endDate, &p.FilePath, &status, &p.RecordsCount,
		&p.ErrorMessage, &created, &updated,
	); err != nil {
		return nil, err
	}
	p.Status = model.PeriodStatus(status)
	p.StartDate = parseTime(startDate)
	p.EndDate = parseTime(endDate)
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
