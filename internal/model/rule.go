package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DataKind 工作表数据种类
type DataKind string

const (
	DataKindSettlement DataKind = "settlement" // 정산 데이터（触发结算计算）
	DataKindFee        DataKind = "fee"        // 배달료
	DataKindDeduction  DataKind = "deduction"  // 공제
	DataKindInsurance  DataKind = "insurance"  // 보험료
	DataKindPromotion  DataKind = "promotion"  // 프로모션
	DataKindBonus      DataKind = "bonus"      // 보너스
	DataKindPenalty    DataKind = "penalty"    // 패널티
)

// DataKinds 全部合法的数据种类（按设置页面的顺序）
var DataKinds = []DataKind{
	DataKindSettlement,
	DataKindFee,
	DataKindDeduction,
	DataKindInsurance,
	DataKindPromotion,
	DataKindBonus,
	DataKindPenalty,
}

// Valid 是否为已知数据种类
func (k DataKind) Valid() bool {
	for _, v := range DataKinds {
		if v == k {
			return true
		}
	}
	return false
}

// 字段词表：列映射只能指向这些语义字段
const (
	FieldRiderCode             = "rider_code"
	FieldRiderID               = "rider_id"
	FieldRiderName             = "rider_name"
	FieldProcessCount          = "process_count"
	FieldDeliveryFee           = "delivery_fee"
	FieldAdditionalPayment     = "additional_payment"
	FieldBranchPromotion       = "branch_promotion"
	FieldPlatformPromotion     = "platform_promotion"
	FieldHourlyInsurance       = "hourly_insurance"
	FieldEmploymentInsurance   = "employment_insurance"
	FieldAccidentInsurance     = "accident_insurance"
	FieldEmploymentRetroactive = "employment_retroactive"
	FieldAccidentRetroactive   = "accident_retroactive"
	FieldCommission            = "commission"
	FieldRebate                = "rebate"
	FieldTotalDeliveryFee      = "total_delivery_fee"
	FieldTotalDeductions       = "total_deductions"
	FieldSettlementAmount      = "settlement_amount"
	FieldWithholdingTax        = "withholding_tax"
	FieldFinalPayment          = "final_payment"
	FieldAmount                = "amount"

	// FieldRowNumber 原始行号，写入 raw_data 供追溯
	FieldRowNumber = "row_number"
)

// KnownFields 可被列映射引用的字段
var KnownFields = map[string]bool{
	FieldRiderCode:             true,
	FieldRiderID:               true,
	FieldRiderName:             true,
	FieldProcessCount:          true,
	FieldDeliveryFee:           true,
	FieldAdditionalPayment:     true,
	FieldBranchPromotion:       true,
	FieldPlatformPromotion:     true,
	FieldHourlyInsurance:       true,
	FieldEmploymentInsurance:   true,
	FieldAccidentInsurance:     true,
	FieldEmploymentRetroactive: true,
	FieldAccidentRetroactive:   true,
	FieldCommission:            true,
	FieldRebate:                true,
	FieldTotalDeliveryFee:      true,
	FieldSettlementAmount:      true,
	FieldWithholdingTax:        true,
	FieldFinalPayment:          true,
	FieldAmount:                true,
}

// ColumnMapping Excel 列 → 语义字段
type ColumnMapping struct {
	Column string `json:"column"` // 列标签，如 "B"
	Field  string `json:"field"`  // 字段名，见 KnownFields
}

// SheetRule 单个工作表的解析规则
type SheetRule struct {
	SheetName     string          `json:"sheetName"`
	StartRow      int             `json:"startRow"` // 1-based
	DataKind      DataKind        `json:"dataType"`
	ColumnMapping []ColumnMapping `json:"columnMapping"`
}

// UnmarshalJSON 列映射兼容两种写法：数组 [{"column":"B","field":"rider_id"}]
// 与对象 {"B":"rider_id"}；对象按出现顺序展开，重复的列保留全部条目，由读取器按后者优先处理
func (s *SheetRule) UnmarshalJSON(data []byte) error {
	type plain SheetRule
	var aux struct {
		plain
		ColumnMapping json.RawMessage `json:"columnMapping"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = SheetRule(aux.plain)

	mapping, err := decodeColumnMapping(aux.ColumnMapping)
	if err != nil {
		return fmt.Errorf("columnMapping: %w", err)
	}
	s.ColumnMapping = mapping
	return nil
}

func decodeColumnMapping(raw json.RawMessage) ([]ColumnMapping, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var list []ColumnMapping
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected array or object, got %v", tok)
	}

	var list []ColumnMapping
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		column, _ := keyTok.(string)
		var field string
		if err := dec.Decode(&field); err != nil {
			return nil, fmt.Errorf("column %s: %w", column, err)
		}
		list = append(list, ColumnMapping{Column: column, Field: field})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return list, nil
}

// ParsingRule 平台解析规则，一个 (branch, platform) 对应一条
type ParsingRule struct {
	FileNamePattern string      `json:"fileNamePattern"`
	Sheets          []SheetRule `json:"sheets"`
}
