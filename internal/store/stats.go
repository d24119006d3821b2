package store

import (
	"context"
	"fmt"
)

// PeriodStats 结算周期统计
type PeriodStats struct {
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Error      int `json:"error"`
	Records    int `json:"records"`
	Unresolved int `json:"unresolvedRecords"`
}

// GetPeriodStats 统计周期状态分布与记录数，branchID 为空时统计全部
func (s *Store) GetPeriodStats(ctx context.Context, branchID string) (*PeriodStats, error) {
	var st PeriodStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'processing' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0)
		FROM settlement_periods
		WHERE (? = '' OR branch_id = ?)
	`, branchID, branchID).Scan(&st.Processing, &st.Completed, &st.Error)
	if err != nil {
		return nil, fmt.Errorf("query period stats failed: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(1),
			COALESCE(SUM(CASE WHEN r.rider_id IS NULL THEN 1 ELSE 0 END), 0)
		FROM settlement_records r
		JOIN settlement_periods p ON p.id = r.settlement_period_id
		WHERE (? = '' OR p.branch_id = ?)
	`, branchID, branchID).Scan(&st.Records, &st.Unresolved)
	if err != nil {
		return nil, fmt.Errorf("query record stats failed: %w", err)
	}
	return &st, nil
}
