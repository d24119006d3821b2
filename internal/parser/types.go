package parser

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"ridersettle/internal/model"
)

// Workbook 解码后的工作簿（只读）
type Workbook struct {
	file *excelize.File
}

// OpenWorkbook 从字节解码工作簿，失败时返回的错误包裹 model.ErrDecode
func OpenWorkbook(data []byte) (*Workbook, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", model.ErrDecode)
	}
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDecode, err)
	}
	return &Workbook{file: file}, nil
}

// Close 释放工作簿
func (w *Workbook) Close() error {
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

// SheetNames 工作表名列表
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// HasSheet 工作表是否存在（名称精确匹配）
func (w *Workbook) HasSheet(name string) bool {
	for _, s := range w.file.GetSheetList() {
		if s == name {
			return true
		}
	}
	return false
}

// columnRef 列映射中已解析的列号
type columnRef struct {
	index int // 1-based
	label string
	field string
}

// effectiveMapping 将有序列映射折叠为生效映射：
// 同一列出现多次时后者覆盖前者（保留首次出现的位置）
func effectiveMapping(mapping []model.ColumnMapping) ([]columnRef, error) {
	out := make([]columnRef, 0, len(mapping))
	pos := make(map[int]int, len(mapping))

	for _, m := range mapping {
		idx, err := excelize.ColumnNameToNumber(m.Column)
		if err != nil {
			return nil, fmt.Errorf("invalid column %q: %w", m.Column, err)
		}
		ref := columnRef{index: idx, label: m.Column, field: m.Field}
		if p, ok := pos[idx]; ok {
			out[p] = ref
			continue
		}
		pos[idx] = len(out)
		out = append(out, ref)
	}

	return out, nil
}

// ReadSheet 按起始行与列映射读取工作表
// 工作表不存在时返回 (nil, false, nil)，由调用方记为跳过
func (w *Workbook) ReadSheet(sheetName string, startRow int, mapping []model.ColumnMapping) ([]model.RawRow, bool, error) {
	if !w.HasSheet(sheetName) {
		return nil, false, nil
	}
	if startRow < 1 {
		startRow = 1
	}

	refs, err := effectiveMapping(mapping)
	if err != nil {
		return nil, true, err
	}

	// 读取所有行（原始值），行数即为最后一个有内容的行
	rows, err := w.file.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, true, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}

	var out []model.RawRow
	for rowNo := startRow; rowNo <= len(rows); rowNo++ {
		row := rows[rowNo-1]
		fields := make(map[string]model.CellValue, len(refs))

		// 按声明顺序折叠：同一字段多列映射时，后声明且非空者生效
		for _, ref := range refs {
			if ref.index > len(row) {
				continue
			}
			raw := row[ref.index-1]
			if raw == "" {
				continue
			}
			fields[ref.field] = w.cellValue(sheetName, ref.label, rowNo, raw)
		}

		if len(fields) == 0 {
			continue
		}
		out = append(out, model.RawRow{
			RowNumber: rowNo,
			Fields:    fields,
		})
	}

	return out, true, nil
}

// cellValue 根据单元格类型构造值：字符串类型保持文本（如 "00123"），
// 数值或未标注类型的单元格尝试解析为数字
func (w *Workbook) cellValue(sheetName, column string, rowNo int, raw string) model.CellValue {
	axis := column + strconv.Itoa(rowNo)
	typ, err := w.file.GetCellType(sheetName, axis)
	if err != nil {
		typ = excelize.CellTypeUnset
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError, excelize.CellTypeBool,
		excelize.CellTypeDate:
		return model.TextCell(raw)
	default:
		if f, ok := model.ParseNumber(raw); ok {
			return model.NumberCell(f)
		}
		return model.TextCell(raw)
	}
}
