package model

import (
	"encoding/json"
	"time"
)

// PeriodStatus 结算周期状态；只会 processing → completed / error
type PeriodStatus string

const (
	PeriodProcessing PeriodStatus = "processing"
	PeriodCompleted  PeriodStatus = "completed"
	PeriodError      PeriodStatus = "error"
)

// SettlementPeriod 一次导入对应一个结算周期
type SettlementPeriod struct {
	ID           string       `json:"id"`
	CompanyID    string       `json:"companyId"`
	BranchID     string       `json:"branchId"`
	Platform     string       `json:"platform"`
	PeriodName   string       `json:"periodName"` // "2024-01-01 ~ 2024-01-31"
	StartDate    time.Time    `json:"startDate"`
	EndDate      time.Time    `json:"endDate"`
	FilePath     string       `json:"filePath"`
	Status       PeriodStatus `json:"status"`
	RecordsCount int          `json:"recordsCount"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// ComputedFields 结算计算结果（仅 settlement 类型的行）
type ComputedFields struct {
	Commission       float64 `json:"commission"`
	Rebate           float64 `json:"rebate"`
	TotalDeliveryFee float64 `json:"total_delivery_fee"`
	TotalDeductions  float64 `json:"total_deductions"`
	SettlementAmount float64 `json:"settlement_amount"`
	WithholdingTax   float64 `json:"withholding_tax"`
	FinalPayment     float64 `json:"final_payment"`
}

// SettlementRecord 结算记录，批量写入后不再修改
type SettlementRecord struct {
	ID              string          `json:"id"`
	PeriodID        string          `json:"periodId"`
	RiderID         *string         `json:"riderId"` // 未匹配到骑手时为 nil
	RiderIdentifier string          `json:"riderIdentifier"`
	SheetName       string          `json:"sheetName"`
	DataKind        DataKind        `json:"dataType"`
	RowNumber       int             `json:"rowNumber"`
	RawData         json.RawMessage `json:"rawData"`
	Amount          float64         `json:"amount"`
	Computed        *ComputedFields `json:"computed,omitempty"`
}

// Resolved 是否已关联到骑手
func (r *SettlementRecord) Resolved() bool {
	return r.RiderID != nil
}

// 工作表处理状态
const (
	SheetImported = "imported" // 有数据行
	SheetEmpty    = "empty"    // 工作表存在但起始行之后没有数据
	SheetSkipped  = "skipped"  // 工作簿中没有该工作表
)

// SheetSummary 单个工作表的处理摘要
type SheetSummary struct {
	SheetName string   `json:"sheetName"`
	DataKind  DataKind `json:"dataType"`
	RowCount  int      `json:"rowCount"`
	Status    string   `json:"status,omitempty"`
}

// RunResult 一次导入的结果
type RunResult struct {
	Success          bool           `json:"success"`
	PeriodID         string         `json:"settlementPeriodId,omitempty"`
	RecordsProcessed int            `json:"recordsProcessed"`
	SheetsProcessed  int            `json:"sheetsProcessed"`
	Sheets           []SheetSummary `json:"parsedData"`
	SkippedSheets    []string       `json:"skippedSheets,omitempty"`
	UnresolvedRiders int            `json:"unresolvedRiders"`
	PeriodStart      time.Time      `json:"periodStart"`
	PeriodEnd        time.Time      `json:"periodEnd"`
	Error            string         `json:"error,omitempty"`
}
