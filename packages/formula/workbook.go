package formula

import "github.com/vogtb/go-spreadsheet/packages/spreadsheet"

// EvaluationCell is the read-only view of a document cell the engine
// evaluates against. typed accessors are only valid for the matching type.
type EvaluationCell interface {
	// IdentityKey is equal for two cells iff they are the same document cell.
	IdentityKey() spreadsheet.CellAddress
	Sheet() EvaluationSheet
	RowIndex() int
	ColumnIndex() int
	Type() spreadsheet.CellType
	NumberValue() float64
	BooleanValue() bool
	StringValue() string
	ErrorCode() spreadsheet.ErrorCode
	CachedFormulaResultType() spreadsheet.CellType
}

// EvaluationSheet is one worksheet as seen by the engine.
type EvaluationSheet interface {
	// Cell returns nil when no cell exists at the position.
	Cell(row, col int) EvaluationCell
	LastRowNum() int
	WorksheetID() uint32
	ClearAllCachedResultValues()
}

// EvaluationName is a defined name.
type EvaluationName interface {
	NameText() string
	// SheetIndex is the scoping sheet, or -1 for a workbook-scoped name.
	SheetIndex() int
	RefersToFormula() string
}

// ParsingWorkbook is what Tokenize needs to resolve sheet names, defined
// names and functions.
type ParsingWorkbook interface {
	// SheetIndex returns -1 for an unknown sheet.
	SheetIndex(name string) int
	// ExternalSheetIndex resolves a sheet of another workbook.
	ExternalSheetIndex(workbook, sheet string) (int, bool)
	// ResolveName returns nil when the name is not defined.
	ResolveName(name string, sheetIndex int) EvaluationName
	Functions() *FunctionTable
}

// EvaluationWorkbook is the resolution context the engine evaluates in.
type EvaluationWorkbook interface {
	ParsingWorkbook
	NumberOfSheets() int
	SheetName(index int) string
	// Sheet returns nil for an index out of range.
	Sheet(index int) EvaluationSheet
	SheetIndexOf(sheet EvaluationSheet) int
	FormulaTokens(cell EvaluationCell) ([]Token, error)
	NameTokens(name EvaluationName) ([]Token, error)
	ClearAllCachedResultValues()
}
