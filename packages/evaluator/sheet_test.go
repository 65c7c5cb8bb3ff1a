package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

func newTestSheet(t *testing.T) (*spreadsheet.Workbook, *spreadsheet.Worksheet) {
	t.Helper()
	wb := spreadsheet.NewBuilder().
		Sheet("Sheet1").
		Set("A1", 1).
		Set("B2", "two").
		Set("C3", "=A1*3").
		MustBuild()
	return wb, wb.Sheet("Sheet1")
}

func TestCellKey(t *testing.T) {
	tests := []struct {
		key   CellKey
		name  string
		valid bool
	}{
		{CellKey{Row: 0, Column: 0}, "A1", true},
		{CellKey{Row: 2, Column: 1}, "B3", true},
		{CellKey{Row: spreadsheet.MaxRows - 1, Column: spreadsheet.MaxColumns - 1}, "XFD1048576", true},
		{CellKey{Row: -1, Column: 0}, "", false},
		{CellKey{Row: 0, Column: -1}, "", false},
		{CellKey{Row: spreadsheet.MaxRows, Column: 0}, "", false},
		{CellKey{Row: 0, Column: spreadsheet.MaxColumns}, "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, tt.key.valid(), "%+v", tt.key)
		if tt.valid {
			assert.Equal(t, tt.name, tt.key.String())
		}
	}

	seen := map[CellKey]int{{Row: 1, Column: 2}: 1}
	seen[CellKey{Row: 1, Column: 2}]++
	assert.Len(t, seen, 1)
	assert.Equal(t, 2, seen[CellKey{Row: 1, Column: 2}])
}

func TestSheetCacheGetCell(t *testing.T) {
	_, ws := newTestSheet(t)
	cache := NewSheetCache(ws)
	assert.Equal(t, 0, cache.Len(), "nothing is read before the first lookup")

	adapter, ok := cache.GetCell(1, 1)
	require.True(t, ok)
	assert.Equal(t, "two", adapter.StringValue())
	assert.Equal(t, 3, cache.Len(), "first lookup adapts every cell")

	again, ok := cache.GetCell(1, 1)
	require.True(t, ok)
	assert.Same(t, adapter, again)

	_, ok = cache.GetCell(5, 5)
	assert.False(t, ok)
	assert.Nil(t, cache.Cell(5, 5))

	for _, key := range []CellKey{{-1, 0}, {0, -1}, {spreadsheet.MaxRows, 0}, {0, spreadsheet.MaxColumns}} {
		_, ok := cache.GetCell(key.Row, key.Column)
		assert.False(t, ok, "%+v", key)
	}
}

func TestSheetCacheFindsCellsAddedAfterBuild(t *testing.T) {
	_, ws := newTestSheet(t)
	cache := NewSheetCache(ws)
	_, ok := cache.GetCell(0, 0)
	require.True(t, ok)

	ws.CreateCell(9, 3).SetNumericValue(7)

	adapter, ok := cache.GetCell(9, 3)
	require.True(t, ok)
	assert.Equal(t, 7.0, adapter.NumberValue())
	assert.Equal(t, 4, cache.Len())
}

func TestSheetCacheClearAllCachedResultValues(t *testing.T) {
	_, ws := newTestSheet(t)
	cache := NewSheetCache(ws)
	before, ok := cache.GetCell(0, 0)
	require.True(t, ok)

	ws.RemoveCell(1, 1)
	cache.ClearAllCachedResultValues()
	assert.Equal(t, 0, cache.Len())

	_, ok = cache.GetCell(1, 1)
	assert.False(t, ok, "removed cell must not survive a rebuild")

	after, ok := cache.GetCell(0, 0)
	require.True(t, ok)
	assert.NotSame(t, before, after)
	assert.Equal(t, before.IdentityKey(), after.IdentityKey())
}

func TestSheetCacheEvict(t *testing.T) {
	_, ws := newTestSheet(t)
	cache := NewSheetCache(ws)
	_, ok := cache.GetCell(1, 1)
	require.True(t, ok)

	ws.RemoveCell(1, 1)
	cache.evict(1, 1)
	_, ok = cache.GetCell(1, 1)
	assert.False(t, ok)
	assert.Equal(t, 2, cache.Len())
}

func TestSheetCacheSheetInfo(t *testing.T) {
	_, ws := newTestSheet(t)
	cache := NewSheetCache(ws)
	assert.Same(t, ws, cache.Worksheet())
	assert.Equal(t, ws.ID(), cache.WorksheetID())
	assert.Equal(t, 2, cache.LastRowNum())
}

func TestCellAdapter(t *testing.T) {
	wb, ws := newTestSheet(t)
	cache := NewSheetCache(ws)

	number, _ := cache.GetCell(0, 0)
	assert.Equal(t, spreadsheet.CellTypeNumeric, number.Type())
	assert.Equal(t, 1.0, number.NumberValue())
	assert.Equal(t, 0, number.RowIndex())
	assert.Equal(t, 0, number.ColumnIndex())
	assert.Same(t, cache, number.Sheet())

	cell, err := wb.Cell("Sheet1!A1")
	require.NoError(t, err)
	assert.Equal(t, cell.Address(), number.IdentityKey())
	assert.Same(t, cell.Worksheet(), number.Unwrap().Worksheet())

	text, _ := cache.GetCell(1, 1)
	assert.Equal(t, 1, text.RowIndex())
	assert.Equal(t, 1, text.ColumnIndex())
	assert.PanicsWithError(t, spreadsheet.NewTypeMismatchError("numeric", spreadsheet.CellTypeString).Error(),
		func() { text.NumberValue() })

	formulaCell, _ := cache.GetCell(2, 2)
	assert.Equal(t, spreadsheet.CellTypeFormula, formulaCell.Type())
	assert.Equal(t, "A1*3", formulaCell.CellFormula())
	assert.Equal(t, spreadsheet.CellTypeNone, formulaCell.CachedFormulaResultType())
	assert.Panics(t, func() { formulaCell.NumberValue() }, "no cached result yet")

	formulaCell.Unwrap().SetNumericValue(3)
	assert.Equal(t, spreadsheet.CellTypeNumeric, formulaCell.CachedFormulaResultType())
	assert.Equal(t, 3.0, formulaCell.NumberValue())
	assert.Panics(t, func() { formulaCell.BooleanValue() })
}

func TestCellAdapterReadsLiveCell(t *testing.T) {
	_, ws := newTestSheet(t)
	cache := NewSheetCache(ws)
	adapter, _ := cache.GetCell(0, 0)

	ws.Cell(0, 0).SetBooleanValue(true)
	assert.Equal(t, spreadsheet.CellTypeBoolean, adapter.Type())
	assert.True(t, adapter.BooleanValue())

	ws.Cell(0, 0).SetErrorValue(spreadsheet.ErrorCodeNA)
	assert.Equal(t, spreadsheet.ErrorCodeNA, adapter.ErrorCode())

	ws.Cell(0, 0).SetBlank()
	assert.Panics(t, func() { adapter.StringValue() }, "blank is not an empty string")
}
