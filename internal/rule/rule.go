package rule

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"ridersettle/internal/model"
)

// Validate 校验解析规则，失败时返回 *model.InvalidRuleError
func Validate(r *model.ParsingRule) error {
	if r == nil {
		return &model.InvalidRuleError{Reason: "rule is nil"}
	}

	if strings.TrimSpace(r.FileNamePattern) == "" {
		return &model.InvalidRuleError{Path: "fileNamePattern", Reason: "pattern is empty"}
	}
	if _, err := regexp.Compile(r.FileNamePattern); err != nil {
		return &model.InvalidRuleError{Path: "fileNamePattern", Reason: err.Error()}
	}

	if len(r.Sheets) == 0 {
		return &model.InvalidRuleError{Path: "sheets", Reason: "at least one sheet rule is required"}
	}

	for i, s := range r.Sheets {
		path := fmt.Sprintf("sheets[%d]", i)
		if strings.TrimSpace(s.SheetName) == "" {
			return &model.InvalidRuleError{Path: path + ".sheetName", Reason: "sheet name is empty"}
		}
		if s.StartRow < 1 {
			return &model.InvalidRuleError{Path: path + ".startRow", Reason: fmt.Sprintf("start row must be >= 1, got %d", s.StartRow)}
		}
		if !s.DataKind.Valid() {
			return &model.InvalidRuleError{Path: path + ".dataType", Reason: fmt.Sprintf("unknown data type %q", s.DataKind)}
		}
		if len(s.ColumnMapping) == 0 {
			return &model.InvalidRuleError{Path: path + ".columnMapping", Reason: "at least one column mapping is required"}
		}
		for j, m := range s.ColumnMapping {
			mpath := fmt.Sprintf("%s.columnMapping[%d]", path, j)
			if _, err := excelize.ColumnNameToNumber(strings.TrimSpace(m.Column)); err != nil {
				return &model.InvalidRuleError{Path: mpath + ".column", Reason: fmt.Sprintf("invalid column %q", m.Column)}
			}
			if !model.KnownFields[strings.TrimSpace(m.Field)] {
				return &model.InvalidRuleError{Path: mpath + ".field", Reason: fmt.Sprintf("unknown field %q", m.Field)}
			}
		}
	}

	return nil
}

// Normalize 去除首尾空白并将列标签转为大写，返回新规则
func Normalize(r model.ParsingRule) model.ParsingRule {
	out := model.ParsingRule{
		FileNamePattern: strings.TrimSpace(r.FileNamePattern),
		Sheets:          make([]model.SheetRule, 0, len(r.Sheets)),
	}
	for _, s := range r.Sheets {
		ns := model.SheetRule{
			SheetName:     strings.TrimSpace(s.SheetName),
			StartRow:      s.StartRow,
			DataKind:      model.DataKind(strings.TrimSpace(string(s.DataKind))),
			ColumnMapping: make([]model.ColumnMapping, 0, len(s.ColumnMapping)),
		}
		for _, m := range s.ColumnMapping {
			ns.ColumnMapping = append(ns.ColumnMapping, model.ColumnMapping{
				Column: strings.ToUpper(strings.TrimSpace(m.Column)),
				Field:  strings.TrimSpace(m.Field),
			})
		}
		out.Sheets = append(out.Sheets, ns)
	}
	return out
}

// Parse 从 JSON 解析规则并规范化、校验
func Parse(data []byte) (*model.ParsingRule, error) {
	var r model.ParsingRule
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, &model.InvalidRuleError{Reason: fmt.Sprintf("malformed json: %v", err)}
	}
	r = Normalize(r)
	if err := Validate(&r); err != nil {
		return nil, err
	}
	return &r, nil
}
