package evaluator

import (
	"fmt"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/formula"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// WorkbookAdapter resolves sheets, defined names and functions of a
// workbook for the formula engine. sheet indices and names are always read
// from the live workbook; only the per-sheet cell caches are kept.
type WorkbookAdapter struct {
	workbook  *spreadsheet.Workbook
	functions *formula.FunctionTable
	sheets    map[uint32]*SheetCache // by worksheet ID, created on first use
}

var _ formula.EvaluationWorkbook = (*WorkbookAdapter)(nil)

// NewWorkbookAdapter creates an adapter over a workbook
func NewWorkbookAdapter(workbook *spreadsheet.Workbook, functions *formula.FunctionTable) *WorkbookAdapter {
	return &WorkbookAdapter{
		workbook:  workbook,
		functions: functions,
		sheets:    make(map[uint32]*SheetCache),
	}
}

// Workbook returns the adapted workbook
func (a *WorkbookAdapter) Workbook() *spreadsheet.Workbook {
	return a.workbook
}

func (a *WorkbookAdapter) SheetIndex(name string) int {
	return a.workbook.SheetIndex(name)
}

func (a *WorkbookAdapter) SheetName(index int) string {
	return a.workbook.SheetName(index)
}

func (a *WorkbookAdapter) NumberOfSheets() int {
	return a.workbook.NumberOfSheets()
}

// ExternalSheetIndex resolves the sheet of a possibly external reference.
// only the adapted workbook is known, so a workbook qualifier never
// resolves.
func (a *WorkbookAdapter) ExternalSheetIndex(workbook, sheet string) (int, bool) {
	if workbook != "" {
		return -1, false
	}
	index := a.workbook.SheetIndex(sheet)
	return index, index >= 0
}

// Sheet returns the cache of the sheet at an index, or nil.
func (a *WorkbookAdapter) Sheet(index int) formula.EvaluationSheet {
	worksheet := a.workbook.SheetAt(index)
	if worksheet == nil {
		return nil
	}
	return a.sheetCache(worksheet)
}

func (a *WorkbookAdapter) SheetIndexOf(sheet formula.EvaluationSheet) int {
	return a.workbook.SheetIndexByID(sheet.WorksheetID())
}

// sheetCache returns the cache of a worksheet, creating it on first use.
func (a *WorkbookAdapter) sheetCache(worksheet *spreadsheet.Worksheet) *SheetCache {
	cache, exists := a.sheets[worksheet.ID()]
	if !exists {
		cache = NewSheetCache(worksheet)
		a.sheets[worksheet.ID()] = cache
	}
	return cache
}

// ResolveName looks a name up in the scope of a sheet, then in workbook
// scope. a sheet-scoped name shadows a workbook-scoped one. returns nil
// when neither scope defines it.
func (a *WorkbookAdapter) ResolveName(name string, sheetIndex int) formula.EvaluationName {
	if sheetIndex >= 0 {
		if dn := a.workbook.Name(name, sheetIndex); dn != nil {
			return definedName{dn}
		}
	}
	if dn := a.workbook.Name(name, -1); dn != nil {
		return definedName{dn}
	}
	return nil
}

func (a *WorkbookAdapter) Functions() *formula.FunctionTable {
	return a.functions
}

// UserDefinedFunctionIndex returns the function table index of a
// user-defined function.
func (a *WorkbookAdapter) UserDefinedFunctionIndex(name string) (int, bool) {
	return a.functions.UserDefinedFunctionIndex(name)
}

// UserDefinedFunctionName is the inverse of UserDefinedFunctionIndex.
func (a *WorkbookAdapter) UserDefinedFunctionName(index int) (string, bool) {
	return a.functions.UserDefinedFunctionName(index)
}

// formulaArtifacts are line breaks the file format allows inside formula
// text, escaped or not. they carry no meaning to the tokenizer.
var formulaArtifacts = strings.NewReplacer(
	"\n", "",
	"\r", "",
	"_x000D_", "",
	"_x000A_", "",
)

// FormulaTokens tokenizes the formula of a cell against its own sheet.
func (a *WorkbookAdapter) FormulaTokens(cell formula.EvaluationCell) ([]formula.Token, error) {
	source, ok := cell.(interface{ CellFormula() string })
	if !ok {
		return nil, spreadsheet.NewApplicationError(spreadsheet.Internal,
			fmt.Sprintf("cell %T has no formula text", cell))
	}
	text := formulaArtifacts.Replace(source.CellFormula())
	return formula.Tokenize(text, formula.ParseContext{
		SheetIndex: a.SheetIndexOf(cell.Sheet()),
		Workbook:   a,
	})
}

// NameTokens tokenizes the formula a defined name refers to. unqualified
// references in a workbook-scoped name follow the cell being evaluated.
func (a *WorkbookAdapter) NameTokens(name formula.EvaluationName) ([]formula.Token, error) {
	scope := name.SheetIndex()
	if scope < 0 {
		scope = formula.CurrentSheet
	}
	text := formulaArtifacts.Replace(name.RefersToFormula())
	return formula.Tokenize(text, formula.ParseContext{SheetIndex: scope, Workbook: a})
}

// ClearAllCachedResultValues empties every sheet cache and forgets the
// caches of removed sheets.
func (a *WorkbookAdapter) ClearAllCachedResultValues() {
	for id, cache := range a.sheets {
		if a.workbook.SheetByID(id) == nil {
			delete(a.sheets, id)
			continue
		}
		cache.ClearAllCachedResultValues()
	}
}

// definedName adapts a workbook name to formula.EvaluationName
type definedName struct {
	*spreadsheet.DefinedName
}

func (n definedName) NameText() string {
	return n.Name()
}

func (n definedName) RefersToFormula() string {
	return n.RefersTo()
}
