package formula

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

func evaluate(t *testing.T, e *Engine, c *memCell) Value {
	t.Helper()
	v, err := e.Evaluate(c)
	require.NoError(t, err)
	return v
}

func TestEngineEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		formula string
		want    Value
	}{
		{"arithmetic", "=1+2*3", NumberValue(7)},
		{"references", "=A1+A2", NumberValue(3)},
		{"empty reference", "=Z99", NumberValue(0)},
		{"empty reference in arithmetic", "=Z99+1", NumberValue(1)},
		{"text", `="a"&A3`, StringValue("ahello")},
		{"text reference", "=A3", StringValue("hello")},
		{"boolean reference", "=A4", BoolValue(true)},
		{"error reference", "=A5", ErrorValue{Code: spreadsheet.ErrorCodeNA}},
		{"comparison", "=A1<A2", BoolValue(true)},
		{"text compares case-insensitively", `="ABC"="abc"`, BoolValue(true)},
		{"number before text", `=1<"a"`, BoolValue(true)},
		{"division by zero", "=1/0", ErrorValue{Code: spreadsheet.ErrorCodeDiv0}},
		{"text in arithmetic", "=A3+1", ErrorValue{Code: spreadsheet.ErrorCodeValue}},
		{"numeric text in arithmetic", `="2"*3`, NumberValue(6)},
		{"percent", "=50%", NumberValue(0.5)},
		{"power", "=2^10", NumberValue(1024)},
		{"unary minus binds tighter than power", "=-2^2", NumberValue(4)},
		{"error literal", "=#N/A", ErrorValue{Code: spreadsheet.ErrorCodeNA}},
		{"error propagates", "=A5+1", ErrorValue{Code: spreadsheet.ErrorCodeNA}},
		{"function", "=SUM(A1:A2,10)", NumberValue(13)},
		{"range in arithmetic", "=A1:A2+1", ErrorValue{Code: spreadsheet.ErrorCodeValue}},
		{"single cell range", "=A1:A1+1", NumberValue(2)},
		{"whole column", "=SUM(B:B)", NumberValue(3)},
		{"nested formulas", "=B1*2", NumberValue(6)},
		{"other sheet", "=Sheet2!A1", NumberValue(100)},
		{"unknown sheet", "=Nope!A1", ErrorValue{Code: spreadsheet.ErrorCodeRef}},
		{"beyond the grid", "=A1048577", ErrorValue{Code: spreadsheet.ErrorCodeRef}},
		{"unknown function", "=NOSUCH(1)", ErrorValue{Code: spreadsheet.ErrorCodeName}},
		{"unknown name", "=nothing", ErrorValue{Code: spreadsheet.ErrorCodeName}},
		{"malformed", "=SUM(", ErrorValue{Code: spreadsheet.ErrorCodeValue}},
		{"iferror", "=IFERROR(1/0,-1)", NumberValue(-1)},
		{"if with omitted argument", "=IF(FALSE,1,)", NumberValue(0)},
		{"intersection", "=A1 A2", ErrorValue{Code: spreadsheet.ErrorCodeNull}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := newMemWorkbook(t, "Sheet1", "Sheet2")
			wb.set("A1", 1)
			wb.set("A2", 2)
			wb.set("A3", "hello")
			wb.set("A4", true)
			wb.set("A5", spreadsheet.ErrorCodeNA)
			wb.set("B1", "=A1+A2")
			wb.set("Sheet2!A1", 100)
			cell := wb.set("C1", tt.formula)

			got := evaluate(t, NewEngine(wb), cell)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngineNonFormulaCell(t *testing.T) {
	wb := newMemWorkbook(t, "Sheet1")
	e := NewEngine(wb)
	assert.Equal(t, NumberValue(5), evaluate(t, e, wb.set("A1", 5)))
	assert.Equal(t, StringValue("x"), evaluate(t, e, wb.set("A2", "x")))
	assert.Equal(t, 0, e.CachedResultCount())
}

func TestEngineMemoizesAndInvalidates(t *testing.T) {
	wb := newMemWorkbook(t, "Sheet1")
	a1 := wb.set("A1", 1)
	wb.set("A2", 2)
	b1 := wb.set("B1", "=A1+A2")
	c1 := wb.set("C1", "=B1*10")
	e := NewEngine(wb)

	assert.Equal(t, NumberValue(30), evaluate(t, e, c1))
	assert.Equal(t, 2, e.CachedResultCount())

	// the memo is used until the engine is told about the change
	a1.number = 5
	assert.Equal(t, NumberValue(30), evaluate(t, e, c1))

	e.NotifyUpdateCell(a1)
	assert.Equal(t, 0, e.CachedResultCount(), "B1 and C1 depend on A1")
	assert.Equal(t, NumberValue(70), evaluate(t, e, c1))

	// changing a formula invalidates its dependents too
	b1.formula = "=A1-A2"
	e.NotifySetFormula(b1)
	assert.Equal(t, NumberValue(30), evaluate(t, e, c1))
}

func TestEngineRangeInvalidation(t *testing.T) {
	wb := newMemWorkbook(t, "Sheet1")
	wb.set("A1", 1)
	wb.set("A2", 2)
	sum := wb.set("B1", "=SUM(A1:A3)")
	column := wb.set("B2", "=SUM(A:A)")
	e := NewEngine(wb)

	assert.Equal(t, NumberValue(3), evaluate(t, e, sum))
	assert.Equal(t, NumberValue(3), evaluate(t, e, column))

	// a cell created inside both ranges after they were read
	a3 := wb.set("A3", 4)
	e.NotifyUpdateCell(a3)
	assert.Equal(t, NumberValue(7), evaluate(t, e, sum))

	a10 := wb.set("A10", 10)
	e.NotifyUpdateCell(a10)
	assert.Equal(t, NumberValue(7), evaluate(t, e, sum))
	assert.Equal(t, NumberValue(17), evaluate(t, e, column))
}

func TestEngineDeleteCell(t *testing.T) {
	wb := newMemWorkbook(t, "Sheet1")
	a1 := wb.set("A1", 1)
	b1 := wb.set("B1", "=A1+1")
	e := NewEngine(wb)
	assert.Equal(t, NumberValue(2), evaluate(t, e, b1))

	e.NotifyDeleteCell(a1)
	delete(wb.sheets[0].cells, [2]int{0, 0})
	assert.Equal(t, NumberValue(1), evaluate(t, e, b1))
}

func TestEngineCircularReferences(t *testing.T) {
	t.Run("two cells", func(t *testing.T) {
		wb := newMemWorkbook(t, "Sheet1")
		a1 := wb.set("A1", "=B1")
		b1 := wb.set("B1", "=A1")
		e := NewEngine(wb)
		assert.Equal(t, ErrorValue{Code: spreadsheet.ErrorCodeRef}, evaluate(t, e, a1))
		assert.Equal(t, ErrorValue{Code: spreadsheet.ErrorCodeRef}, evaluate(t, e, b1))
	})

	t.Run("self", func(t *testing.T) {
		wb := newMemWorkbook(t, "Sheet1")
		a1 := wb.set("A1", "=A1+1")
		assert.Equal(t, ErrorValue{Code: spreadsheet.ErrorCodeRef}, evaluate(t, NewEngine(wb), a1))
	})

	t.Run("through a range", func(t *testing.T) {
		wb := newMemWorkbook(t, "Sheet1")
		wb.set("A1", 1)
		a3 := wb.set("A3", "=SUM(A1:A3)")
		assert.Equal(t, ErrorValue{Code: spreadsheet.ErrorCodeRef}, evaluate(t, NewEngine(wb), a3))
	})

	t.Run("caught by IFERROR", func(t *testing.T) {
		wb := newMemWorkbook(t, "Sheet1")
		a1 := wb.set("A1", "=IFERROR(B1,0)")
		wb.set("B1", "=A1")
		assert.Equal(t, NumberValue(0), evaluate(t, NewEngine(wb), a1))
	})
}

func TestEngineDefinedNames(t *testing.T) {
	wb := newMemWorkbook(t, "Sheet1", "Sheet2")
	wb.set("A1", 10)
	wb.set("Sheet2!A1", 20)
	wb.define("Rate", "=0.5", -1)
	wb.define("Rate", "=0.25", 1)
	wb.define("Local", "=A1*2", -1)
	wb.define("Loop", "=Loop+1", -1)
	wb.define("Data", "=Sheet1!A1:A2", -1)
	e := NewEngine(wb)

	assert.Equal(t, NumberValue(5), evaluate(t, e, wb.set("B1", "=A1*Rate")))
	assert.Equal(t, NumberValue(5), evaluate(t, e, wb.set("Sheet2!B1", "=Sheet2!A1*Rate")), "sheet scope shadows")
	assert.Equal(t, NumberValue(20), evaluate(t, e, wb.set("B2", "=Local")))
	assert.Equal(t, NumberValue(40), evaluate(t, e, wb.set("Sheet2!B2", "=Local")), "global names resolve against the evaluating sheet")
	assert.Equal(t, ErrorValue{Code: spreadsheet.ErrorCodeName}, evaluate(t, e, wb.set("B3", "=Loop")))
	assert.Equal(t, NumberValue(10), evaluate(t, e, wb.set("B4", "=SUM(Data)")))
}

func TestEngineVolatileFunctions(t *testing.T) {
	rng := &sequenceRandom{values: []float64{0.1, 0.2, 0.3}}
	wb := newMemWorkbook(t, "Sheet1").withFunctions(NewBuiltInFunctions(nil, rng), nil)
	rand := wb.set("A1", "=RAND()")
	reader := wb.set("B1", "=A1*10")
	stable := wb.set("C1", "=1+1")
	e := NewEngine(wb)

	assert.Equal(t, NumberValue(0.1), evaluate(t, e, rand))
	assert.True(t, e.GetDependencyGraph().IsVolatile(rand.IdentityKey()))
	assert.Equal(t, NumberValue(2), evaluate(t, e, stable))

	// every top-level evaluation recalculates volatile cells and their readers
	assert.InDelta(t, 2.0, float64(evaluate(t, e, reader).(NumberValue)), 1e-9)
	assert.InDelta(t, 3.0, float64(evaluate(t, e, reader).(NumberValue)), 1e-9)
	assert.False(t, e.GetDependencyGraph().IsVolatile(stable.IdentityKey()))
}

func TestEngineVolatileToday(t *testing.T) {
	clock := &fixedClock{now: time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)}
	wb := newMemWorkbook(t, "Sheet1").withFunctions(NewBuiltInFunctions(clock, nil), nil)
	today := wb.set("A1", "=TODAY()")
	e := NewEngine(wb)

	first := evaluate(t, e, today)
	clock.now = clock.now.Add(24 * time.Hour)
	second := evaluate(t, e, today)
	assert.Equal(t, float64(first.(NumberValue))+1, float64(second.(NumberValue)))
}

func TestEngineUserDefinedFunctions(t *testing.T) {
	failing := func(args ...Primitive) (Primitive, error) {
		return nil, errors.New("service unavailable")
	}
	wb := newMemWorkbook(t, "Sheet1").withFunctions(NewDefaultBuiltInFunctions(), map[string]UserDefinedFunction{
		"DOUBLE":  double,
		"FAILING": failing,
	})
	e := NewEngine(wb)

	assert.Equal(t, NumberValue(42), evaluate(t, e, wb.set("A1", "=double(21)")))
	assert.Equal(t, ErrorValue{Code: spreadsheet.ErrorCodeValue}, evaluate(t, e, wb.set("A2", "=FAILING()")))
}

func TestEngineMissingWorkbook(t *testing.T) {
	setup := func(t *testing.T) (*memWorkbook, *memCell, *memCell) {
		wb := newMemWorkbook(t, "Sheet1")
		external := wb.set("A1", "=[Prices.xlsx]Sheet1!B2*2")
		external.cachedType = spreadsheet.CellTypeNumeric
		external.number = 42
		reader := wb.set("A2", "=A1+1")
		return wb, external, reader
	}

	t.Run("fails by default", func(t *testing.T) {
		wb, external, reader := setup(t)
		e := NewEngine(wb)

		_, err := e.Evaluate(external)
		require.Error(t, err)
		assert.True(t, errors.Is(err, &spreadsheet.AppError{Code: spreadsheet.NotFound}), "got %v", err)

		_, err = e.Evaluate(reader)
		assert.True(t, errors.Is(err, &spreadsheet.AppError{Code: spreadsheet.NotFound}), "got %v", err)
		assert.Equal(t, 0, e.CachedResultCount())
	})

	t.Run("cached result when ignored", func(t *testing.T) {
		wb, external, reader := setup(t)
		e := NewEngine(wb, WithIgnoreMissingWorkbooks(true))
		assert.Equal(t, NumberValue(42), evaluate(t, e, external))
		assert.Equal(t, NumberValue(43), evaluate(t, e, reader))
	})

	t.Run("toggled at runtime", func(t *testing.T) {
		wb, external, _ := setup(t)
		e := NewEngine(wb)
		e.SetIgnoreMissingWorkbooks(true)
		assert.Equal(t, NumberValue(42), evaluate(t, e, external))
	})
}

func TestEngineDebugOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	wb := newMemWorkbook(t, "Sheet1")
	wb.set("A1", 1)
	b1 := wb.set("B1", "=A1+1")
	c1 := wb.set("C1", "=B1*2")
	e := NewEngine(wb, WithLogger(logger))

	e.SetDebugEvaluationOutputForNextEval(true)
	assert.Equal(t, NumberValue(4), evaluate(t, e, c1))
	out := buf.String()
	assert.Contains(t, out, "cell=B1")
	assert.Contains(t, out, "cell=C1")
	assert.Contains(t, out, "result=4")

	// only the next evaluation is traced
	buf.Reset()
	e.NotifyUpdateCell(b1)
	evaluate(t, e, c1)
	assert.Empty(t, buf.String())
}

func TestEngineClearAllCachedResultValues(t *testing.T) {
	wb := newMemWorkbook(t, "Sheet1")
	wb.set("A1", 1)
	b1 := wb.set("B1", "=A1+1")
	e := NewEngine(wb)
	evaluate(t, e, b1)
	require.Equal(t, 1, e.CachedResultCount())

	e.ClearAllCachedResultValues()
	assert.Equal(t, 0, e.CachedResultCount())
	assert.Equal(t, 0, e.GetDependencyGraph().NodeCount())
	assert.Equal(t, 1, wb.clears)
}
