package evaluator

import (
	"github.com/vogtb/go-spreadsheet/packages/formula"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// Cell is the document cell the evaluator reads and writes back to.
// *spreadsheet.Cell implements it.
type Cell interface {
	Address() spreadsheet.CellAddress
	Worksheet() *spreadsheet.Worksheet
	Row() uint32
	Column() uint32
	Type() spreadsheet.CellType
	CachedFormulaResultType() spreadsheet.CellType
	CellFormula() string

	NumericCellValue() float64
	BooleanCellValue() bool
	StringCellValue() string
	ErrorCellValue() spreadsheet.ErrorCode

	SetNumericValue(v float64)
	SetBooleanValue(v bool)
	SetRichStringValue(v spreadsheet.RichText)
	SetErrorValue(code spreadsheet.ErrorCode)
	SetCellType(t spreadsheet.CellType) error
}

var _ Cell = (*spreadsheet.Cell)(nil)

// isNil catches both a nil interface and a nil *spreadsheet.Cell, which is
// what Workbook.Cell returns for an unoccupied position.
func isNil(cell Cell) bool {
	if cell == nil {
		return true
	}
	c, ok := cell.(*spreadsheet.Cell)
	return ok && c == nil
}

// isRemoved reports a document cell handle whose position no longer holds
// a cell.
func isRemoved(cell Cell) bool {
	c, ok := cell.(*spreadsheet.Cell)
	return ok && c.Worksheet().Cell(c.Row(), c.Column()) == nil
}

// CellAdapter is the read-only view of a document cell handed to the
// formula engine. it holds no values, every accessor reads the live cell.
type CellAdapter struct {
	cell  Cell
	sheet *SheetCache
}

var _ formula.EvaluationCell = (*CellAdapter)(nil)

func newCellAdapter(cell Cell, sheet *SheetCache) *CellAdapter {
	return &CellAdapter{cell: cell, sheet: sheet}
}

// IdentityKey is the wrapped cell's address. adapters of the same document
// cell have equal keys.
func (a *CellAdapter) IdentityKey() spreadsheet.CellAddress {
	return a.cell.Address()
}

func (a *CellAdapter) Sheet() formula.EvaluationSheet {
	return a.sheet
}

func (a *CellAdapter) RowIndex() int {
	return int(a.cell.Row())
}

func (a *CellAdapter) ColumnIndex() int {
	return int(a.cell.Column())
}

func (a *CellAdapter) Type() spreadsheet.CellType {
	return a.cell.Type()
}

func (a *CellAdapter) CachedFormulaResultType() spreadsheet.CellType {
	return a.cell.CachedFormulaResultType()
}

// CellFormula returns the formula text of a formula cell.
func (a *CellAdapter) CellFormula() string {
	return a.cell.CellFormula()
}

func (a *CellAdapter) NumberValue() float64 {
	a.expect(spreadsheet.CellTypeNumeric, "numeric")
	return a.cell.NumericCellValue()
}

func (a *CellAdapter) BooleanValue() bool {
	a.expect(spreadsheet.CellTypeBoolean, "boolean")
	return a.cell.BooleanCellValue()
}

func (a *CellAdapter) StringValue() string {
	a.expect(spreadsheet.CellTypeString, "string")
	return a.cell.StringCellValue()
}

func (a *CellAdapter) ErrorCode() spreadsheet.ErrorCode {
	a.expect(spreadsheet.CellTypeError, "error")
	return a.cell.ErrorCellValue()
}

// Unwrap returns the document cell.
func (a *CellAdapter) Unwrap() Cell {
	return a.cell
}

// expect panics unless the cell, or the cached result of a formula cell,
// holds a value of type t. blank cells do not qualify.
func (a *CellAdapter) expect(t spreadsheet.CellType, want string) {
	got := a.cell.Type()
	if got == spreadsheet.CellTypeFormula {
		got = a.cell.CachedFormulaResultType()
	}
	if got != t {
		panic(spreadsheet.NewTypeMismatchError(want, got))
	}
}
