package store

import (
	"context"
	"database/sql"
	"fmt"

	"ridersettle/internal/model"
)

// InsertRecords 在单个事务中批量写入结算记录与工作表摘要：要么全部成功，要么全部回滚
func (s *Store) InsertRecords(ctx context.Context, periodID string, records []model.SettlementRecord, sheets []model.SheetSummary) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertPeriodSheets(ctx, tx, periodID, sheets); err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO settlement_records (
				id, settlement_period_id, rider_id, rider_identifier,
				sheet_name, data_type, row_number, raw_data, amount,
				commission, rebate,
				total_delivery_fee, total_deductions, settlement_amount,
				withholding_tax, final_payment
			) VALUES (
				?, ?, ?, ?,
				?, ?, ?, ?, ?,
				?, ?,
				?, ?, ?,
				?, ?
			)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i := range records {
			r := &records[i]

			var riderID interface{}
			if r.RiderID != nil {
				riderID = *r.RiderID
			}

			computed := make([]interface{}, 7)
			if c := r.Computed; c != nil {
				computed = []interface{}{
					c.Commission, c.Rebate,
					c.TotalDeliveryFee, c.TotalDeductions, c.SettlementAmount,
					c.WithholdingTax, c.FinalPayment,
				}
			}

			args := []interface{}{
				r.ID, periodID, riderID, r.RiderIdentifier,
				r.SheetName, string(r.DataKind), r.RowNumber, string(r.RawData), r.Amount,
			}
			args = append(args, computed...)

			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to insert record %d (sheet %s row %d): %w", i, r.SheetName, r.RowNumber, err)
			}
		}
		return nil
	})
}

// ListRecords 查询周期内全部记录（按写入顺序）
func (s *Store) ListRecords(ctx context.Context, periodID string) ([]*model.SettlementRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, settlement_period_id, rider_id, rider_identifier,
			sheet_name, data_type, row_number, raw_data, amount,
			commission, rebate,
			total_delivery_fee, total_deductions, settlement_amount,
			withholding_tax, final_payment
		FROM settlement_records
		WHERE settlement_period_id = ?
		ORDER BY rowid
	`, periodID)
	if err != nil {
		return nil, fmt.Errorf("query settlement records failed: %w", err)
	}
	defer rows.Close()

	var out []*model.SettlementRecord
	for rows.Next() {
		var (
			r        model.SettlementRecord
			riderID  sql.NullString
			kind     string
			raw      string
			computed [7]sql.NullFloat64
		)
		if err := rows.Scan(
			&r.ID, &r.PeriodID, &riderID, &r.RiderIdentifier,
			&r.SheetName, &kind, &r.RowNumber, &raw, &r.Amount,
			&computed[0], &computed[1],
			&computed[2], &computed[3], &computed[4],
			&computed[5], &computed[6],
		); err != nil {
			return nil, fmt.Errorf("scan settlement record failed: %w", err)
		}
		if riderID.Valid {
			id := riderID.String
			r.RiderID = &id
		}
		r.DataKind = model.DataKind(kind)
		r.RawData = []byte(raw)
		if computed[6].Valid {
			r.Computed = &model.ComputedFields{
				Commission:       computed[0].Float64,
				Rebate:           computed[1].Float64,
				TotalDeliveryFee: computed[2].Float64,
				TotalDeductions:  computed[3].Float64,
				SettlementAmount: computed[4].Float64,
				WithholdingTax:   computed[5].Float64,
				FinalPayment:     computed[6].Float64,
			}
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlement records failed: %w", err)
	}
	return out, nil
}

// CountRecords 统计周期内记录数
func (s *Store) CountRecords(ctx context.Context, periodID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM settlement_records WHERE settlement_period_id = ?", periodID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count settlement records failed: %w", err)
	}
	return n, nil
}
