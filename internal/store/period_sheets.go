package store

import (
	"context"
	"database/sql"
	"fmt"

	"ridersettle/internal/model"
)

// insertPeriodSheets 写入工作表处理摘要（用于追溯）
func insertPeriodSheets(ctx context.Context, tx *sql.Tx, periodID string, sheets []model.SheetSummary) error {
	for _, sh := range sheets {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO period_sheets (period_id, sheet_name, data_type, row_count, status)
			VALUES (?, ?, ?, ?, ?)
		`, periodID, sh.SheetName, string(sh.DataKind), sh.RowCount, sh.Status)
		if err != nil {
			return fmt.Errorf("failed to insert period sheet %s: %w", sh.SheetName, err)
		}
	}
	return nil
}

// ListPeriodSheets 查询周期的工作表摘要（按写入顺序，即规则声明顺序）
func (s *Store) ListPeriodSheets(ctx context.Context, periodID string) ([]model.SheetSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sheet_name, data_type, row_count, status
		FROM period_sheets WHERE period_id = ? ORDER BY id
	`, periodID)
	if err != nil {
		return nil, fmt.Errorf("query period sheets failed: %w", err)
	}
	defer rows.Close()

	var out []model.SheetSummary
	for rows.Next() {
		var (
			sh   model.SheetSummary
			kind string
		)
		if err := rows.Scan(&sh.SheetName, &kind, &sh.RowCount, &sh.Status); err != nil {
			return nil, fmt.Errorf("scan period sheet failed: %w", err)
		}
		sh.DataKind = model.DataKind(kind)
		out = append(out, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate period sheets failed: %w", err)
	}
	return out, nil
}
