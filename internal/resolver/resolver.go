package resolver

import (
	"context"
	"errors"
	"log/slog"

	"ridersettle/internal/model"
)

// UnknownIdentifier 行中没有任何骑手标识时记录的占位值
const UnknownIdentifier = "unknown"

// RiderDirectory 骑手目录（按分店范围查找）
type RiderDirectory interface {
	FindRider(ctx context.Context, branchID string, lookup model.RiderLookup) (*model.RiderRef, error)
}

// strategy 行字段 → 查找方式
type strategy struct {
	field string
	by    model.LookupBy
}

// strategies 严格按顺序尝试：平台骑手编号、通用骑手 ID、骑手姓名
var strategies = []strategy{
	{field: model.FieldRiderCode, by: model.LookupCode},
	{field: model.FieldRiderID, by: model.LookupID},
	{field: model.FieldRiderName, by: model.LookupName},
}

// Resolution 匹配结果；Rider 为 nil 表示未匹配
type Resolution struct {
	Rider      *model.RiderRef
	Identifier string
	MatchedBy  model.LookupBy
}

// Resolved 是否匹配到骑手
func (r Resolution) Resolved() bool {
	return r.Rider != nil
}

// Resolver 骑手匹配器
type Resolver struct {
	dir    RiderDirectory
	logger *slog.Logger
}

// New 创建骑手匹配器
func New(dir RiderDirectory, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{dir: dir, logger: logger}
}

// Resolve 为一行数据匹配骑手。目录查询失败只记日志并继续下一种方式，永不返回错误中断导入
func (r *Resolver) Resolve(ctx context.Context, branchID string, row model.RawRow) Resolution {
	res := Resolution{Identifier: Identifier(row)}

	for _, s := range strategies {
		value := row.Identifier(s.field)
		if value == "" {
			continue
		}

		ref, err := r.dir.FindRider(ctx, branchID, model.RiderLookup{By: s.by, Value: value})
		if err != nil {
			if !errors.Is(err, model.ErrNotFound) {
				r.logger.Warn("rider lookup failed",
					"branch_id", branchID,
					"lookup", string(s.by),
					"value", value,
					"row", row.RowNumber,
					"error", err,
				)
			}
			continue
		}
		if ref != nil {
			res.Rider = ref
			res.MatchedBy = s.by
			return res
		}
	}

	return res
}

// Identifier 记录用的骑手标识：编号、ID、姓名依次取第一个非空值，否则为 "unknown"
func Identifier(row model.RawRow) string {
	for _, s := range strategies {
		if v := row.Identifier(s.field); v != "" {
			return v
		}
	}
	return UnknownIdentifier
}
