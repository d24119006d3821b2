package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CellKind 单元格值类型
type CellKind int

const (
	CellEmpty CellKind = iota
	CellNumber
	CellText
)

// CellValue 单元格值（Empty / Number / Text 三选一）
type CellValue struct {
	Kind CellKind
	Num  float64
	Text string
}

// NumberCell 构造数值单元格
func NumberCell(v float64) CellValue {
	return CellValue{Kind: CellNumber, Num: v}
}

// TextCell 构造文本单元格；空串视为空单元格
func TextCell(s string) CellValue {
	if s == "" {
		return CellValue{}
	}
	return CellValue{Kind: CellText, Text: s}
}

// IsEmpty 是否为空
func (v CellValue) IsEmpty() bool {
	return v.Kind == CellEmpty
}

// String 文本形式（数值按最短表示输出）
func (v CellValue) String() string {
	switch v.Kind {
	case CellNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case CellText:
		return v.Text
	default:
		return ""
	}
}

// Float 统一的数值转换：数值直接返回，文本去掉千分位后尝试解析，
// 空值或无法解析时返回 (0, false)
func (v CellValue) Float() (float64, bool) {
	switch v.Kind {
	case CellNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return 0, false
		}
		return v.Num, true
	case CellText:
		return ParseNumber(strings.ReplaceAll(v.Text, ",", ""))
	default:
		return 0, false
	}
}

// ParseNumber 解析十进制数字文本（可带符号、小数点与指数）；
// NaN、Inf、十六进制等写法以及溢出均视为非数值
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '+', r == '-', r == '.', r == 'e', r == 'E':
		default:
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FloatOrZero 缺失或非数值按 0 处理
func (v CellValue) FloatOrZero() float64 {
	f, _ := v.Float()
	return f
}

// MarshalJSON 数值输出为 number，文本为 string，空为 null
func (v CellValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case CellNumber:
		return json.Marshal(v.Num)
	case CellText:
		return json.Marshal(v.Text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON 反序列化（用于读取 raw_data）
func (v *CellValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case float64:
		*v = NumberCell(t)
	case string:
		*v = TextCell(t)
	case nil:
		*v = CellValue{}
	default:
		*v = TextCell(string(data))
	}
	return nil
}

// RawRow 读取器产出的一行：字段名 → 单元格值
type RawRow struct {
	RowNumber int                  `json:"rowNumber"` // 1-based 源行号
	Fields    map[string]CellValue `json:"fields"`
}

// Get 取字段值，不存在时返回空单元格
func (r RawRow) Get(field string) CellValue {
	if r.Fields == nil {
		return CellValue{}
	}
	return r.Fields[field]
}

// Identifier 取非空字段的文本形式
func (r RawRow) Identifier(field string) string {
	return strings.TrimSpace(r.Get(field).String())
}
