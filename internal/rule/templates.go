package rule

import "ridersettle/internal/model"

// 平台名称
const (
	PlatformBaeminConnectBiz = "배민커넥트비즈"
	PlatformCoupangEatsPlus  = "쿠팡이츠플러스"
)

// Template 内置快速配置模板
type Template struct {
	Platform string            `json:"platform"`
	Rule     model.ParsingRule `json:"rule"`
}

// Templates 返回内置模板（每次返回新副本）
func Templates() []Template {
	return []Template{
		{
			Platform: PlatformBaeminConnectBiz,
			Rule: model.ParsingRule{
				FileNamePattern: `(\d{8})~(\d{8})_(.+)_(.+)_(.+)\.xlsx`,
				Sheets: []model.SheetRule{
					{
						SheetName: "을지_협력사 소속 라이더 정산 확인용",
						StartRow:  20,
						DataKind:  model.DataKindSettlement,
						ColumnMapping: []model.ColumnMapping{
							{Column: "B", Field: model.FieldRiderID},
							{Column: "C", Field: model.FieldRiderName},
							{Column: "D", Field: model.FieldProcessCount},
							{Column: "E", Field: model.FieldDeliveryFee},
							{Column: "F", Field: model.FieldAdditionalPayment},
							{Column: "H", Field: model.FieldHourlyInsurance},
							{Column: "L", Field: model.FieldEmploymentInsurance},
							{Column: "N", Field: model.FieldAccidentInsurance},
							{Column: "Q", Field: model.FieldEmploymentRetroactive},
							{Column: "T", Field: model.FieldAccidentRetroactive},
						},
					},
				},
			},
		},
		{
			Platform: PlatformCoupangEatsPlus,
			Rule: model.ParsingRule{
				FileNamePattern: `COUPANG_(\d{6})\.xlsx`,
				Sheets: []model.SheetRule{
					{
						SheetName: "배달료",
						StartRow:  3,
						DataKind:  model.DataKindFee,
						ColumnMapping: []model.ColumnMapping{
							{Column: "A", Field: model.FieldRiderCode},
							{Column: "B", Field: model.FieldRiderName},
							{Column: "D", Field: model.FieldDeliveryFee},
						},
					},
				},
			},
		},
	}
}

// TemplateFor 按平台名查找模板
func TemplateFor(platform string) (model.ParsingRule, bool) {
	for _, t := range Templates() {
		if t.Platform == platform {
			return t.Rule, true
		}
	}
	return model.ParsingRule{}, false
}
