package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ridersettle/internal/model"
)

// MemoryStore 内存数据存储：规则、文件、骑手、结算周期与记录
type MemoryStore struct {
	mu sync.RWMutex

	rules   map[string]*model.ParsingRule // key: branch|platform
	blobs   map[string][]byte
	riders  map[string]*model.Rider
	periods map[string]*model.SettlementPeriod
	records map[string][]model.SettlementRecord
	sheets  map[string][]model.SheetSummary
	config  map[string]string

	// InsertErr 非 nil 时 InsertRecords 直接返回该错误（用于模拟写入失败）
	InsertErr error
	// CompleteErr 非 nil 时 CompletePeriod 直接返回该错误
	CompleteErr error
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules:   make(map[string]*model.ParsingRule),
		blobs:   make(map[string][]byte),
		riders:  make(map[string]*model.Rider),
		periods: make(map[string]*model.SettlementPeriod),
		records: make(map[string][]model.SettlementRecord),
		sheets:  make(map[string][]model.SheetSummary),
		config:  make(map[string]string),
	}
}

func ruleKey(branchID, platform string) string {
	return branchID + "|" + platform
}

// GetRule 获取解析规则
func (s *MemoryStore) GetRule(_ context.Context, branchID, platform string) (*model.ParsingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[ruleKey(branchID, platform)]
	if !ok {
		return nil, fmt.Errorf("branch %s platform %s: %w", branchID, platform, model.ErrRuleNotFound)
	}
	cp := *r
	return &cp, nil
}

// PutRule 保存解析规则
func (s *MemoryStore) PutRule(_ context.Context, _, branchID, platform string, r *model.ParsingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rules[ruleKey(branchID, platform)] = &cp
	return nil
}

// DeleteRule 删除解析规则
func (s *MemoryStore) DeleteRule(_ context.Context, branchID, platform string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ruleKey(branchID, platform)
	if _, ok := s.rules[key]; !ok {
		return fmt.Errorf("branch %s platform %s: %w", branchID, platform, model.ErrRuleNotFound)
	}
	delete(s.rules, key)
	return nil
}

// FetchBytes 读取文件
func (s *MemoryStore) FetchBytes(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[path]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", path, model.ErrNotFound)
	}
	return data, nil
}

// PutBytes 写入文件
func (s *MemoryStore) PutBytes(_ context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path] = append([]byte(nil), data...)
	return nil
}

// UpsertRider 新增或更新骑手
func (s *MemoryStore) UpsertRider(_ context.Context, r *model.Rider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	cp := *r
	s.riders[r.ID] = &cp
	return nil
}

// FindRider 在分店范围内查找骑手，规则与 SQLite 实现一致：多条匹配视为未找到
func (s *MemoryStore) FindRider(_ context.Context, branchID string, lookup model.RiderLookup) (*model.RiderRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []*model.Rider
	for _, r := range s.riders {
		if r.BranchID != branchID {
			continue
		}
		var v string
		switch lookup.By {
		case model.LookupCode, model.LookupID:
			v = r.RiderCode
		case model.LookupName:
			v = r.Name
		}
		if v == lookup.Value {
			found = append(found, r)
		}
	}
	if len(found) != 1 {
		return nil, fmt.Errorf("rider %s=%s: %w", lookup.By, lookup.Value, model.ErrNotFound)
	}
	return &model.RiderRef{ID: found[0].ID, Name: found[0].Name}, nil
}

// CreatePeriod 创建结算周期
func (s *MemoryStore) CreatePeriod(_ context.Context, p *model.SettlementPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.periods[p.ID]; ok {
		return fmt.Errorf("settlement period %s already exists", p.ID)
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt
	if p.Status == "" {
		p.Status = model.PeriodProcessing
	}
	cp := *p
	s.periods[p.ID] = &cp
	return nil
}

// InsertRecords 写入记录与工作表摘要（整体成功或整体失败）
func (s *MemoryStore) InsertRecords(_ context.Context, periodID string, records []model.SettlementRecord, sheets []model.SheetSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.InsertErr != nil {
		return s.InsertErr
	}
	if _, ok := s.periods[periodID]; !ok {
		return fmt.Errorf("settlement period %s: %w", periodID, model.ErrNotFound)
	}
	for i := range records {
		records[i].PeriodID = periodID
	}
	s.records[periodID] = append(s.records[periodID], records...)
	s.sheets[periodID] = append(s.sheets[periodID], sheets...)
	return nil
}

// CompletePeriod processing → completed
func (s *MemoryStore) CompletePeriod(_ context.Context, id string, recordsCount int) error {
	if s.CompleteErr != nil {
		return s.CompleteErr
	}
	return s.finish(id, model.PeriodCompleted, recordsCount, "")
}

// FailPeriod processing → error
func (s *MemoryStore) FailPeriod(_ context.Context, id string, reason string) error {
	return s.finish(id, model.PeriodError, 0, reason)
}

func (s *MemoryStore) finish(id string, status model.PeriodStatus, n int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.periods[id]
	if !ok || p.Status != model.PeriodProcessing {
		return fmt.Errorf("settlement period %s is not processing: %w", id, model.ErrNotFound)
	}
	p.Status = status
	p.RecordsCount = n
	p.ErrorMessage = reason
	p.UpdatedAt = time.Now()
	return nil
}

// TouchLastIngest 记录最近一次导入时间
func (s *MemoryStore) TouchLastIngest(_ context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config["last_ingest_at"] = t.Format(time.RFC3339Nano)
	return nil
}

// GetPeriod 获取结算周期
func (s *MemoryStore) GetPeriod(_ context.Context, id string) (*model.SettlementPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.periods[id]
	if !ok {
		return nil, fmt.Errorf("settlement period %s: %w", id, model.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

// Periods 全部结算周期（按创建时间排序）
func (s *MemoryStore) Periods() []*model.SettlementPeriod {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.SettlementPeriod, 0, len(s.periods))
	for _, p := range s.periods {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return strings.Compare(out[i].ID, out[j].ID) < 0
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Records 周期内记录（写入顺序）
func (s *MemoryStore) Records(periodID string) []model.SettlementRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.SettlementRecord(nil), s.records[periodID]...)
}

// Sheets 周期的工作表摘要
func (s *MemoryStore) Sheets(periodID string) []model.SheetSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.SheetSummary(nil), s.sheets[periodID]...)
}

// LastIngest 最近一次导入时间（未导入时为空串）
func (s *MemoryStore) LastIngest() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config["last_ingest_at"]
}

