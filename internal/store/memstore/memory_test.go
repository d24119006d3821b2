package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ridersettle/internal/model"
)

// TestNewMemoryStore 测试创建存储
func TestNewMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	if s == nil {
		t.Fatal("NewMemoryStore() returned nil")
	}
	if len(s.Periods()) != 0 {
		t.Errorf("new store should be empty, got %d periods", len(s.Periods()))
	}
}

// TestRuleRoundTrip 测试规则读写
func TestRuleRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.GetRule(ctx, "b1", "p"); !errors.Is(err, model.ErrRuleNotFound) {
		t.Fatalf("got %v, want ErrRuleNotFound", err)
	}
	if err := s.PutRule(ctx, "c1", "b1", "p", &model.ParsingRule{FileNamePattern: "x"}); err != nil {
		t.Fatalf("PutRule: %v", err)
	}
	r, err := s.GetRule(ctx, "b1", "p")
	if err != nil || r.FileNamePattern != "x" {
		t.Fatalf("GetRule = %+v, %v", r, err)
	}
	if err := s.DeleteRule(ctx, "b1", "p"); err != nil {
		t.Fatalf("DeleteRule: %v", err)
	}
}

// TestFindRiderAmbiguous 测试重名骑手视为未找到
func TestFindRiderAmbiguous(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.UpsertRider(ctx, &model.Rider{ID: "r1", BranchID: "b1", RiderCode: "1", Name: "김"})
	_ = s.UpsertRider(ctx, &model.Rider{ID: "r2", BranchID: "b1", RiderCode: "2", Name: "김"})

	if _, err := s.FindRider(ctx, "b1", model.RiderLookup{By: model.LookupName, Value: "김"}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	ref, err := s.FindRider(ctx, "b1", model.RiderLookup{By: model.LookupCode, Value: "2"})
	if err != nil || ref.ID != "r2" {
		t.Fatalf("by code: %+v %v", ref, err)
	}
}

// TestPeriodTransitions 测试周期状态只能从 processing 迁移一次
func TestPeriodTransitions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.CreatePeriod(ctx, &model.SettlementPeriod{ID: "p1"}); err != nil {
		t.Fatalf("CreatePeriod: %v", err)
	}
	if err := s.CompletePeriod(ctx, "p1", 3); err != nil {
		t.Fatalf("CompletePeriod: %v", err)
	}
	if err := s.FailPeriod(ctx, "p1", "late"); err == nil {
		t.Fatal("FailPeriod after completion should fail")
	}
	p, _ := s.GetPeriod(ctx, "p1")
	if p.Status != model.PeriodCompleted || p.RecordsCount != 3 {
		t.Fatalf("unexpected period: %+v", p)
	}
}

// TestInsertErr 测试写入失败注入
func TestInsertErr(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.CreatePeriod(ctx, &model.SettlementPeriod{ID: "p1"})
	s.InsertErr = errors.New("disk full")

	if err := s.InsertRecords(ctx, "p1", []model.SettlementRecord{{ID: "r"}}, nil); err == nil {
		t.Fatal("expected injected error")
	}
	if len(s.Records("p1")) != 0 {
		t.Fatal("records written despite failure")
	}
}

// TestConcurrentAccess 测试并发访问
func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.UpsertRider(ctx, &model.Rider{BranchID: "b1", RiderCode: string(rune('a' + i)), Name: "n"})
			_, _ = s.FindRider(ctx, "b1", model.RiderLookup{By: model.LookupCode, Value: "a"})
		}(i)
	}
	wg.Wait()
}
