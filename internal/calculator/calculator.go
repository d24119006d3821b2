package calculator

import (
	"github.com/shopspring/decimal"

	"ridersettle/internal/model"
)

// WithholdingRate 원천징수 세율 3.3%
var WithholdingRate = decimal.RequireFromString("0.033")

// amountFields 非结算类数据累加金额时参与的字段
var amountFields = []string{
	model.FieldDeliveryFee,
	model.FieldEmploymentInsurance,
	model.FieldAccidentInsurance,
	model.FieldBranchPromotion,
	model.FieldPlatformPromotion,
	model.FieldAmount,
}

// field 取字段数值，缺失或非数值按 0
func field(fields map[string]model.CellValue, name string) decimal.Decimal {
	v, ok := fields[name]
	if !ok {
		return decimal.Zero
	}
	f, ok := v.Float()
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// ComputeSettlement 计算结算金额（仅 settlement 类型的行）
//
//	총 배달료   = 배달료 + 추가할증 + 지점프로모션 - 수수료
//	총 공제     = 시급보험 + 고용보험 + 산재보험 + 고용보험 소급 + 산재보험 소급
//	정산금액    = 총 배달료 - 총 공제
//	원천징수세액 = 총 배달료 × 3.3%
//	최종 지급액 = 정산금액 - 원천징수세액 - 리스비
//
// 不做货币取整，最终支付额可以为负
func ComputeSettlement(fields map[string]model.CellValue) model.ComputedFields {
	deliveryFee := field(fields, model.FieldDeliveryFee)
	additionalPayment := field(fields, model.FieldAdditionalPayment)
	branchPromotion := field(fields, model.FieldBranchPromotion)
	commission := field(fields, model.FieldCommission)

	hourlyInsurance := field(fields, model.FieldHourlyInsurance)
	employmentInsurance := field(fields, model.FieldEmploymentInsurance)
	accidentInsurance := field(fields, model.FieldAccidentInsurance)
	employmentRetroactive := field(fields, model.FieldEmploymentRetroactive)
	accidentRetroactive := field(fields, model.FieldAccidentRetroactive)

	rebate := field(fields, model.FieldRebate)

	totalDeliveryFee := deliveryFee.Add(additionalPayment).Add(branchPromotion).Sub(commission)
	totalDeductions := hourlyInsurance.Add(employmentInsurance).Add(accidentInsurance).
		Add(employmentRetroactive).Add(accidentRetroactive)
	settlementAmount := totalDeliveryFee.Sub(totalDeductions)
	withholdingTax := totalDeliveryFee.Mul(WithholdingRate)
	finalPayment := settlementAmount.Sub(withholdingTax).Sub(rebate)

	return model.ComputedFields{
		Commission:       commission.InexactFloat64(),
		Rebate:           rebate.InexactFloat64(),
		TotalDeliveryFee: totalDeliveryFee.InexactFloat64(),
		TotalDeductions:  totalDeductions.InexactFloat64(),
		SettlementAmount: settlementAmount.InexactFloat64(),
		WithholdingTax:   withholdingTax.InexactFloat64(),
		FinalPayment:     finalPayment.InexactFloat64(),
	}
}

// RecordAmount 记录金额：结算行取最终支付额；其他类型累加数值型金额字段
func RecordAmount(kind model.DataKind, fields map[string]model.CellValue, computed *model.ComputedFields) float64 {
	if kind == model.DataKindSettlement {
		if computed == nil {
			return 0
		}
		return computed.FinalPayment
	}

	total := decimal.Zero
	for _, name := range amountFields {
		v, ok := fields[name]
		if !ok || v.Kind != model.CellNumber {
			continue
		}
		f, ok := v.Float()
		if !ok {
			continue
		}
		total = total.Add(decimal.NewFromFloat(f))
	}
	return total.InexactFloat64()
}
