package evaluator

import (
	"fmt"
	"testing"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

func newBenchEvaluator(b *testing.B, builder *spreadsheet.Builder) (*spreadsheet.Workbook, *FormulaEvaluator) {
	b.Helper()
	wb, err := builder.Build()
	if err != nil {
		b.Fatal(err)
	}
	fe, err := New(wb)
	if err != nil {
		b.Fatal(err)
	}
	return wb, fe
}

// recalculate evaluates the whole workbook from scratch
func recalculate(b *testing.B, fe *FormulaEvaluator) {
	fe.ClearAllCachedResultValues()
	if err := fe.EvaluateAll(); err != nil {
		b.Fatal(err)
	}
}

// update changes a number and evaluates what depends on it
func update(b *testing.B, wb *spreadsheet.Workbook, fe *FormulaEvaluator, ref string, value float64) {
	cell, err := wb.Cell(ref)
	if err != nil {
		b.Fatal(err)
	}
	cell.SetNumericValue(value)
	fe.NotifyUpdateCell(cell)
	if err := fe.EvaluateAll(); err != nil {
		b.Fatal(err)
	}
}

func BenchmarkLargeCellPopulation(b *testing.B) {
	for i := 0; i < b.N; i++ {
		builder := spreadsheet.NewBuilder().Sheet("Sheet1")
		for row := 0; row < 100; row++ {
			for col := 0; col < 26; col++ {
				builder.Set(spreadsheet.CellName(uint32(row), uint32(col)), float64((row+1)*(col+1)))
			}
		}
		_, fe := newBenchEvaluator(b, builder)
		recalculate(b, fe)
	}
}

func BenchmarkFormulaDependencyChain(b *testing.B) {
	builder := spreadsheet.NewBuilder().Sheet("Sheet1").Set("A1", 1.0)
	for i := 2; i <= 100; i++ {
		builder.Set(fmt.Sprintf("A%d", i), fmt.Sprintf("=A%d+1", i-1))
	}
	_, fe := newBenchEvaluator(b, builder)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		recalculate(b, fe)
	}
}

func BenchmarkWideDependencyFanOut(b *testing.B) {
	builder := spreadsheet.NewBuilder().Sheet("Sheet1").Set("A1", 100.0)
	for i := 2; i <= 500; i++ {
		builder.Set(fmt.Sprintf("B%d", i), "=A1*2")
	}
	wb, fe := newBenchEvaluator(b, builder)
	recalculate(b, fe)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		update(b, wb, fe, "Sheet1!A1", float64(i))
	}
}

func BenchmarkLargeRangeSUM(b *testing.B) {
	builder := spreadsheet.NewBuilder().Sheet("Sheet1")
	for i := 1; i <= 1000; i++ {
		builder.Set(fmt.Sprintf("A%d", i), float64(i))
	}
	builder.Set("B1", "=SUM(A1:A1000)")
	_, fe := newBenchEvaluator(b, builder)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		recalculate(b, fe)
	}
}

func BenchmarkComplexNestedFormulas(b *testing.B) {
	builder := spreadsheet.NewBuilder().Sheet("Sheet1")
	for i := 1; i <= 20; i++ {
		builder.Set(fmt.Sprintf("A%d", i), float64(i))
		builder.Set(fmt.Sprintf("B%d", i), float64(i*2))
	}
	builder.
		Set("C1", "=IF(AVERAGE(A1:A20)>10, SUM(B1:B20), MAX(A1:A20))").
		Set("D1", "=ROUND(SQRT(C1)*PI(), 2)").
		Set("E1", "=IF(D1>100, MEDIAN(A1:A20), MIN(B1:B20))")
	_, fe := newBenchEvaluator(b, builder)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		recalculate(b, fe)
	}
}

func BenchmarkVolatileFunctions(b *testing.B) {
	builder := spreadsheet.NewBuilder().Sheet("Sheet1")
	for i := 1; i <= 50; i++ {
		builder.Set(fmt.Sprintf("A%d", i), "=RAND()")
		builder.Set(fmt.Sprintf("B%d", i), fmt.Sprintf("=A%d*100", i))
	}
	_, fe := newBenchEvaluator(b, builder)
	recalculate(b, fe)

	// no invalidation needed, volatile cells recalculate on their own
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := fe.EvaluateAll(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMultiWorksheetReferences(b *testing.B) {
	builder := spreadsheet.NewBuilder().Sheet("Sheet1").Sheet("Data")
	for i := 1; i <= 100; i++ {
		builder.Set(fmt.Sprintf("A%d", i), float64(i))
	}
	builder.Sheet("Summary").
		Set("A1", "=SUM(Data!A1:A100)").
		Set("B1", "=AVERAGE(Data!A1:A100)").
		Set("C1", "=MAX(Data!A1:A100)").
		Set("D1", "=MIN(Data!A1:A100)")
	_, fe := newBenchEvaluator(b, builder)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		recalculate(b, fe)
	}
}

func BenchmarkCascadingUpdates(b *testing.B) {
	builder := spreadsheet.NewBuilder().Sheet("Sheet1")
	for row := 0; row < 50; row++ {
		builder.Set(spreadsheet.CellName(uint32(row), 0), float64(row+1))
		for col := uint32(1); col < 10; col++ {
			builder.Set(spreadsheet.CellName(uint32(row), col),
				fmt.Sprintf("=%s*2", spreadsheet.CellName(uint32(row), col-1)))
		}
	}
	wb, fe := newBenchEvaluator(b, builder)
	recalculate(b, fe)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		update(b, wb, fe, "Sheet1!A1", float64(i%100))
	}
}

func BenchmarkSparseMatrix(b *testing.B) {
	builder := spreadsheet.NewBuilder().Sheet("Sheet1")
	for row := uint32(0); row < 1000; row += 10 {
		for col := uint32(0); col < 1000; col += 10 {
			builder.Set(spreadsheet.CellName(row, col), float64(row+col+2))
		}
	}
	builder.Set("ZZ1", "=SUM(A2:ALL1000)")
	_, fe := newBenchEvaluator(b, builder)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		recalculate(b, fe)
	}
}

func BenchmarkCircularReferenceDetection(b *testing.B) {
	builder := spreadsheet.NewBuilder().
		Sheet("Sheet1").
		Set("A1", "=B1+C1").
		Set("B1", "=C1+D1").
		Set("C1", "=D1+E1").
		Set("D1", "=E1+F1").
		Set("E1", "=F1+G1").
		Set("F1", "=G1+H1").
		Set("G1", "=H1+A1").
		Set("H1", "=A1")
	_, fe := newBenchEvaluator(b, builder)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		recalculate(b, fe)
	}
}

func BenchmarkManySmallFormulas(b *testing.B) {
	builder := spreadsheet.NewBuilder().Sheet("Sheet1")
	for row := 1; row <= 100; row++ {
		builder.
			Set(fmt.Sprintf("A%d", row), float64(row)).
			Set(fmt.Sprintf("B%d", row), fmt.Sprintf("=A%d*2", row)).
			Set(fmt.Sprintf("C%d", row), fmt.Sprintf("=B%d+A%d", row, row)).
			Set(fmt.Sprintf("D%d", row), fmt.Sprintf("=C%d/2", row))
	}
	_, fe := newBenchEvaluator(b, builder)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		recalculate(b, fe)
	}
}

func BenchmarkStringConcatenation(b *testing.B) {
	builder := spreadsheet.NewBuilder().Sheet("Sheet1")
	for i := 1; i <= 100; i++ {
		builder.
			Set(fmt.Sprintf("A%d", i), fmt.Sprintf("text%d", i)).
			Set(fmt.Sprintf("B%d", i), fmt.Sprintf(`=A%d&"-suffix"`, i))
	}
	_, fe := newBenchEvaluator(b, builder)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		recalculate(b, fe)
	}
}

func BenchmarkAggregationFunctions(b *testing.B) {
	builder := spreadsheet.NewBuilder().Sheet("Sheet1")
	for i := 1; i <= 500; i++ {
		builder.Set(fmt.Sprintf("A%d", i), float64(i))
	}
	builder.
		Set("B1", "=SUM(A1:A500)").
		Set("B2", "=AVERAGE(A1:A500)").
		Set("B3", "=COUNT(A1:A500)").
		Set("B4", "=MAX(A1:A500)").
		Set("B5", "=MIN(A1:A500)").
		Set("B6", "=MEDIAN(A1:A500)")
	_, fe := newBenchEvaluator(b, builder)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		recalculate(b, fe)
	}
}

func BenchmarkConditionalLogic(b *testing.B) {
	builder := spreadsheet.NewBuilder().Sheet("Sheet1")
	for i := 1; i <= 200; i++ {
		builder.
			Set(fmt.Sprintf("A%d", i), float64(i)).
			Set(fmt.Sprintf("B%d", i), fmt.Sprintf(`=IF(A%d>100, A%d*2, A%d/2)`, i, i, i)).
			Set(fmt.Sprintf("C%d", i), fmt.Sprintf(`=AND(A%d>50, A%d<150)`, i, i)).
			Set(fmt.Sprintf("D%d", i), fmt.Sprintf(`=OR(A%d<25, A%d>175)`, i, i))
	}
	_, fe := newBenchEvaluator(b, builder)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		recalculate(b, fe)
	}
}

func BenchmarkDirtyPropagation(b *testing.B) {
	const grid = 20
	builder := spreadsheet.NewBuilder().Sheet("Sheet1")
	for row := uint32(0); row < grid; row++ {
		for col := uint32(0); col < grid; col++ {
			ref := spreadsheet.CellName(row, col)
			switch {
			case row == 0 && col == 0:
				builder.Set(ref, 1.0)
			case row == 0:
				builder.Set(ref, fmt.Sprintf("=%s+1", spreadsheet.CellName(row, col-1)))
			case col == 0:
				builder.Set(ref, fmt.Sprintf("=%s+1", spreadsheet.CellName(row-1, col)))
			default:
				builder.Set(ref, fmt.Sprintf("=%s+%s",
					spreadsheet.CellName(row, col-1), spreadsheet.CellName(row-1, col)))
			}
		}
	}
	wb, fe := newBenchEvaluator(b, builder)
	recalculate(b, fe)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		update(b, wb, fe, "Sheet1!A1", float64(i%100))
	}
}
