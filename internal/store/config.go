package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ridersettle/internal/model"
)

const keyLastIngestAt = "last_ingest_at"

// GetConfig 获取配置项；不存在时返回 model.ErrNotFound
func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("config key %s: %w", key, model.ErrNotFound)
		}
		return "", err
	}
	return value, nil
}

// SetConfig 设置配置项
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP
	`, key, value, value)
	return err
}

// TouchLastIngest 记录最近一次导入完成时间
func (s *Store) TouchLastIngest(ctx context.Context, t time.Time) error {
	return s.SetConfig(ctx, keyLastIngestAt, t.Format(timeLayout))
}

// LastIngestAt 最近一次导入完成时间；从未导入时返回零值
func (s *Store) LastIngestAt(ctx context.Context) (time.Time, error) {
	v, err := s.GetConfig(ctx, keyLastIngestAt)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return parseTime(v), nil
}
