package calculator

import (
	"math"
	"testing"

	"ridersettle/internal/model"
)

func nums(m map[string]float64) map[string]model.CellValue {
	out := make(map[string]model.CellValue, len(m))
	for k, v := range m {
		out[k] = model.NumberCell(v)
	}
	return out
}

func TestComputeSettlement_DocumentedExample(t *testing.T) {
	t.Parallel()

	got := ComputeSettlement(nums(map[string]float64{
		model.FieldDeliveryFee:           10000,
		model.FieldAdditionalPayment:     500,
		model.FieldBranchPromotion:       0,
		model.FieldCommission:            200,
		model.FieldHourlyInsurance:       100,
		model.FieldEmploymentInsurance:   50,
		model.FieldAccidentInsurance:     50,
		model.FieldEmploymentRetroactive: 0,
		model.FieldAccidentRetroactive:   0,
		model.FieldRebate:                100,
	}))

	if got.TotalDeliveryFee != 10300 {
		t.Fatalf("total_delivery_fee want=10300 got=%v", got.TotalDeliveryFee)
	}
	if got.TotalDeductions != 200 {
		t.Fatalf("total_deductions want=200 got=%v", got.TotalDeductions)
	}
	if got.SettlementAmount != 10100 {
		t.Fatalf("settlement_amount want=10100 got=%v", got.SettlementAmount)
	}
	if got.WithholdingTax != 339.9 {
		t.Fatalf("withholding_tax want=339.9 got=%v", got.WithholdingTax)
	}
	if got.FinalPayment != 9660.1 {
		t.Fatalf("final_payment want=9660.1 got=%v", got.FinalPayment)
	}
	if got.Commission != 200 || got.Rebate != 100 {
		t.Fatalf("inputs not carried: commission=%v rebate=%v", got.Commission, got.Rebate)
	}
}

func TestComputeSettlement_EmptyInputIsAllZero(t *testing.T) {
	t.Parallel()

	got := ComputeSettlement(map[string]model.CellValue{})
	if got != (model.ComputedFields{}) {
		t.Fatalf("expected all zero, got %+v", got)
	}

	got = ComputeSettlement(nil)
	if got.FinalPayment != 0 {
		t.Fatalf("nil input should yield zero final payment, got %v", got.FinalPayment)
	}
}

func TestComputeSettlement_NonNumericTreatedAsZero(t *testing.T) {
	t.Parallel()

	got := ComputeSettlement(map[string]model.CellValue{
		model.FieldDeliveryFee:       model.TextCell("1,000"),
		model.FieldAdditionalPayment: model.TextCell("n/a"),
		model.FieldRiderName:         model.TextCell("홍길동"),
	})
	if got.TotalDeliveryFee != 1000 {
		t.Fatalf("thousands separator should be accepted, got %v", got.TotalDeliveryFee)
	}
	if got.WithholdingTax != 33 {
		t.Fatalf("withholding want=33 got=%v", got.WithholdingTax)
	}
}

func TestComputeSettlement_NonFiniteTextTreatedAsZero(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"NaN", "nan", "Inf", "-Inf", "+Infinity", "Infinity", "0x1p3", "1e400"} {
		got := ComputeSettlement(map[string]model.CellValue{
			model.FieldDeliveryFee:       model.TextCell(text),
			model.FieldAdditionalPayment: model.NumberCell(1000),
		})
		if got.TotalDeliveryFee != 1000 || got.FinalPayment != 967 {
			t.Fatalf("%q: want delivery fee ignored, got %+v", text, got)
		}
	}
}

func TestRecordAmount_NonFiniteNumberIgnored(t *testing.T) {
	t.Parallel()

	got := RecordAmount(model.DataKindFee, map[string]model.CellValue{
		model.FieldDeliveryFee: model.NumberCell(math.Inf(1)),
		model.FieldAmount:      model.NumberCell(250),
	}, nil)
	if got != 250 {
		t.Fatalf("amount = %v, want 250", got)
	}
}

func TestComputeSettlement_NegativeFinalPaymentNotClamped(t *testing.T) {
	t.Parallel()

	got := ComputeSettlement(nums(map[string]float64{
		model.FieldDeliveryFee:         1000,
		model.FieldEmploymentInsurance: 800,
		model.FieldRebate:              500,
	}))
	// 1000 - 800 - 33 - 500
	if got.FinalPayment != -333 {
		t.Fatalf("final_payment want=-333 got=%v", got.FinalPayment)
	}
}

func TestRecordAmount(t *testing.T) {
	t.Parallel()

	computed := &model.ComputedFields{FinalPayment: 9660.1}
	if got := RecordAmount(model.DataKindSettlement, nil, computed); got != 9660.1 {
		t.Fatalf("settlement amount should be final payment, got %v", got)
	}
	if got := RecordAmount(model.DataKindSettlement, nil, nil); got != 0 {
		t.Fatalf("missing computed should be 0, got %v", got)
	}

	fields := map[string]model.CellValue{
		model.FieldDeliveryFee:       model.NumberCell(3000),
		model.FieldPlatformPromotion: model.NumberCell(500),
		model.FieldAmount:            model.TextCell("700"), // 文本不参与累加
		model.FieldProcessCount:      model.NumberCell(9),   // 非金额字段
	}
	if got := RecordAmount(model.DataKindFee, fields, nil); got != 3500 {
		t.Fatalf("fee amount want=3500 got=%v", got)
	}
}
