package formula

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// memory-backed EvaluationWorkbook for engine tests

type memCell struct {
	sheet      *memSheet
	row, col   int
	cellType   spreadsheet.CellType
	number     float64
	text       string
	boolean    bool
	code       spreadsheet.ErrorCode
	formula    string
	cachedType spreadsheet.CellType
}

func (c *memCell) IdentityKey() spreadsheet.CellAddress {
	return spreadsheet.CellAddress{WorksheetID: c.sheet.id, Row: uint32(c.row), Column: uint32(c.col)}
}
func (c *memCell) Sheet() EvaluationSheet                        { return c.sheet }
func (c *memCell) RowIndex() int                                 { return c.row }
func (c *memCell) ColumnIndex() int                              { return c.col }
func (c *memCell) Type() spreadsheet.CellType                    { return c.cellType }
func (c *memCell) NumberValue() float64                          { return c.number }
func (c *memCell) BooleanValue() bool                            { return c.boolean }
func (c *memCell) StringValue() string                           { return c.text }
func (c *memCell) ErrorCode() spreadsheet.ErrorCode              { return c.code }
func (c *memCell) CachedFormulaResultType() spreadsheet.CellType { return c.cachedType }

type memSheet struct {
	id    uint32
	name  string
	cells map[[2]int]*memCell
}

func (s *memSheet) Cell(row, col int) EvaluationCell {
	if c, ok := s.cells[[2]int{row, col}]; ok {
		return c
	}
	return nil
}

func (s *memSheet) LastRowNum() int {
	last := -1
	for key := range s.cells {
		last = max(last, key[0])
	}
	return last
}

func (s *memSheet) WorksheetID() uint32          { return s.id }
func (s *memSheet) ClearAllCachedResultValues() {}

type memName struct {
	name     string
	sheet    int
	refersTo string
}

func (n *memName) NameText() string        { return n.name }
func (n *memName) SheetIndex() int         { return n.sheet }
func (n *memName) RefersToFormula() string { return n.refersTo }

type memWorkbook struct {
	t         *testing.T
	sheets    []*memSheet
	names     []*memName
	functions *FunctionTable
	clears    int
}

func newMemWorkbook(t *testing.T, sheetNames ...string) *memWorkbook {
	t.Helper()
	functions, err := NewFunctionTable(NewDefaultBuiltInFunctions(), nil)
	require.NoError(t, err)
	wb := &memWorkbook{t: t, functions: functions}
	for i, name := range sheetNames {
		wb.sheets = append(wb.sheets, &memSheet{id: uint32(i + 1), name: name, cells: map[[2]int]*memCell{}})
	}
	return wb
}

func (wb *memWorkbook) withFunctions(builtins *BuiltInFunctions, udfs map[string]UserDefinedFunction) *memWorkbook {
	functions, err := NewFunctionTable(builtins, udfs)
	require.NoError(wb.t, err)
	wb.functions = functions
	return wb
}

// set stores a value at "Sheet!A1" (or "A1" on the first sheet). strings
// starting with '=' are formulas.
func (wb *memWorkbook) set(ref string, value any) *memCell {
	wb.t.Helper()
	sheetName, cellRef, err := spreadsheet.SplitSheetReference(ref)
	require.NoError(wb.t, err)
	sheet := wb.sheets[0]
	if sheetName != "" {
		sheet = wb.sheets[wb.SheetIndex(sheetName)]
	}
	row, col, err := spreadsheet.ParseCellName(cellRef)
	require.NoError(wb.t, err)

	c := &memCell{sheet: sheet, row: int(row), col: int(col)}
	switch v := value.(type) {
	case float64:
		c.cellType, c.number = spreadsheet.CellTypeNumeric, v
	case int:
		c.cellType, c.number = spreadsheet.CellTypeNumeric, float64(v)
	case bool:
		c.cellType, c.boolean = spreadsheet.CellTypeBoolean, v
	case spreadsheet.ErrorCode:
		c.cellType, c.code = spreadsheet.CellTypeError, v
	case string:
		if strings.HasPrefix(v, "=") {
			c.cellType, c.formula = spreadsheet.CellTypeFormula, v
		} else {
			c.cellType, c.text = spreadsheet.CellTypeString, v
		}
	case nil:
		c.cellType = spreadsheet.CellTypeBlank
	default:
		wb.t.Fatalf("unsupported value %T", value)
	}
	sheet.cells[[2]int{c.row, c.col}] = c
	return c
}

func (wb *memWorkbook) cell(ref string) *memCell {
	wb.t.Helper()
	sheetName, cellRef, err := spreadsheet.SplitSheetReference(ref)
	require.NoError(wb.t, err)
	sheet := wb.sheets[0]
	if sheetName != "" {
		sheet = wb.sheets[wb.SheetIndex(sheetName)]
	}
	row, col, err := spreadsheet.ParseCellName(cellRef)
	require.NoError(wb.t, err)
	c, ok := sheet.cells[[2]int{int(row), int(col)}]
	require.True(wb.t, ok, "no cell at %s", ref)
	return c
}

func (wb *memWorkbook) define(name, refersTo string, sheet int) {
	wb.names = append(wb.names, &memName{name: name, sheet: sheet, refersTo: refersTo})
}

func (wb *memWorkbook) SheetIndex(name string) int {
	for i, s := range wb.sheets {
		if strings.EqualFold(s.name, name) {
			return i
		}
	}
	return -1
}

func (wb *memWorkbook) ExternalSheetIndex(workbook, sheet string) (int, bool) {
	if workbook != "" {
		return -1, false
	}
	index := wb.SheetIndex(sheet)
	return index, index >= 0
}

func (wb *memWorkbook) ResolveName(name string, sheetIndex int) EvaluationName {
	if n := wb.lookupName(name, sheetIndex); n != nil {
		return n
	}
	if n := wb.lookupName(name, -1); n != nil {
		return n
	}
	return nil
}

func (wb *memWorkbook) lookupName(name string, scope int) *memName {
	for _, n := range wb.names {
		if n.sheet == scope && strings.EqualFold(n.name, name) {
			return n
		}
	}
	return nil
}

func (wb *memWorkbook) Functions() *FunctionTable { return wb.functions }
func (wb *memWorkbook) NumberOfSheets() int       { return len(wb.sheets) }
func (wb *memWorkbook) SheetName(index int) string {
	if index < 0 || index >= len(wb.sheets) {
		return ""
	}
	return wb.sheets[index].name
}

func (wb *memWorkbook) Sheet(index int) EvaluationSheet {
	if index < 0 || index >= len(wb.sheets) {
		return nil
	}
	return wb.sheets[index]
}

func (wb *memWorkbook) SheetIndexOf(sheet EvaluationSheet) int {
	for i, s := range wb.sheets {
		if s.WorksheetID() == sheet.WorksheetID() {
			return i
		}
	}
	return -1
}

func (wb *memWorkbook) FormulaTokens(cell EvaluationCell) ([]Token, error) {
	c := cell.(*memCell)
	return Tokenize(c.formula, ParseContext{SheetIndex: wb.SheetIndexOf(c.sheet), Workbook: wb})
}

func (wb *memWorkbook) NameTokens(name EvaluationName) ([]Token, error) {
	scope := name.SheetIndex()
	if scope < 0 {
		scope = CurrentSheet
	}
	return Tokenize(name.RefersToFormula(), ParseContext{SheetIndex: scope, Workbook: wb})
}

func (wb *memWorkbook) ClearAllCachedResultValues() {
	wb.clears++
}
