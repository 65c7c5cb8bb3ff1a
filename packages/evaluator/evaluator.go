// Package evaluator evaluates the formula cells of a workbook and writes
// the results back into the cells.
//
//	wb := spreadsheet.NewBuilder().
//		Sheet("Sheet1").
//		Set("A1", 2).
//		Set("A2", 3).
//		Set("B3", "=A1+A2").
//		MustBuild()
//	fe, _ := evaluator.New(wb)
//	cell, _ := wb.Cell("Sheet1!B3")
//	v, _ := fe.Evaluate(cell) // formula.NumberValue(5)
package evaluator

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/vogtb/go-spreadsheet/packages/formula"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// evaluationEngine is the part of formula.Engine the evaluator drives
type evaluationEngine interface {
	Evaluate(cell formula.EvaluationCell) (formula.Value, error)
	NotifySetFormula(cell formula.EvaluationCell)
	NotifyUpdateCell(cell formula.EvaluationCell)
	NotifyDeleteCell(cell formula.EvaluationCell)
	ClearAllCachedResultValues()
	BeginRecalculation()
	EndRecalculation()
	EvaluateName(name formula.EvaluationName, sheetIndex int) (formula.Value, error)
	SetIgnoreMissingWorkbooks(ignore bool)
	SetDebugEvaluationOutputForNextEval(debug bool)
}

// FormulaEvaluator evaluates cells of one workbook. it is safe for
// concurrent use; changes made to the workbook outside the evaluator must
// be reported through the Notify methods or ClearAllCachedResultValues,
// or later results may be stale.
type FormulaEvaluator struct {
	mu       sync.Mutex
	workbook *WorkbookAdapter
	engine   evaluationEngine
	logger   *slog.Logger
}

// New creates an evaluator over a workbook. it fails when a user-defined
// function is rejected by the function table.
func New(workbook *spreadsheet.Workbook, opts ...Option) (*FormulaEvaluator, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	functions, err := formula.NewFunctionTable(formula.NewBuiltInFunctions(o.clock, o.random), o.udfs)
	if err != nil {
		return nil, err
	}

	adapter := NewWorkbookAdapter(workbook, functions)
	engine := formula.NewEngine(adapter,
		formula.WithLogger(o.logger),
		formula.WithIgnoreMissingWorkbooks(o.ignoreMissingWorkbooks))
	engine.SetDebugEvaluationOutputForNextEval(o.debug)

	return &FormulaEvaluator{
		workbook: adapter,
		engine:   engine,
		logger:   o.logger,
	}, nil
}

// Workbook returns the evaluated workbook
func (fe *FormulaEvaluator) Workbook() *spreadsheet.Workbook {
	return fe.workbook.Workbook()
}

// Evaluate returns the value of a cell without changing it. value cells
// are returned as they are; formula cells are evaluated. a missing or
// blank cell has no value and returns nil, as does a handle whose position
// has since been removed from the worksheet.
func (fe *FormulaEvaluator) Evaluate(cell Cell) (formula.Value, error) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.evaluate(cell)
}

func (fe *FormulaEvaluator) evaluate(cell Cell) (formula.Value, error) {
	if isNil(cell) || isRemoved(cell) {
		return nil, nil
	}
	switch t := cell.Type(); t {
	case spreadsheet.CellTypeNumeric:
		return formula.NumberValue(cell.NumericCellValue()), nil
	case spreadsheet.CellTypeBoolean:
		return formula.BoolValue(cell.BooleanCellValue()), nil
	case spreadsheet.CellTypeString:
		return formula.StringValue(cell.StringCellValue()), nil
	case spreadsheet.CellTypeError:
		return formula.ErrorValue{Code: cell.ErrorCellValue()}, nil
	case spreadsheet.CellTypeFormula:
		return fe.engine.Evaluate(fe.adapt(cell))
	case spreadsheet.CellTypeBlank:
		return nil, nil
	default:
		return nil, spreadsheet.NewApplicationError(spreadsheet.Internal,
			fmt.Sprintf("bad cell type %s", t))
	}
}

// EvaluateFormulaCell evaluates a formula cell and stores the result as its
// cached value; the cell keeps its formula. returns the type of the result,
// or CellTypeNone when the cell is missing or not a formula.
func (fe *FormulaEvaluator) EvaluateFormulaCell(cell Cell) (spreadsheet.CellType, error) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.evaluateFormulaCell(cell)
}

func (fe *FormulaEvaluator) evaluateFormulaCell(cell Cell) (spreadsheet.CellType, error) {
	if isNil(cell) || cell.Type() != spreadsheet.CellTypeFormula {
		return spreadsheet.CellTypeNone, nil
	}
	v, err := fe.engine.Evaluate(fe.adapt(cell))
	if err != nil {
		return spreadsheet.CellTypeNone, err
	}
	if err := writeBack(cell, v); err != nil {
		return spreadsheet.CellTypeNone, err
	}
	return v.CellType(), nil
}

// EvaluateInCell evaluates a formula cell and replaces the formula with its
// result. the same cell is returned; any other cell is returned unchanged.
func (fe *FormulaEvaluator) EvaluateInCell(cell Cell) (Cell, error) {
	fe.mu.Lock()
	defer fe.mu.Unlock()

	if isNil(cell) || cell.Type() != spreadsheet.CellTypeFormula {
		return cell, nil
	}
	v, err := fe.engine.Evaluate(fe.adapt(cell))
	if err != nil {
		return cell, err
	}
	// written as the cached result first, so the conversion below starts
	// from a value of the target type
	if err := writeBack(cell, v); err != nil {
		return cell, err
	}
	if err := cell.SetCellType(v.CellType()); err != nil {
		return cell, err
	}
	return cell, nil
}

// EvaluateAll evaluates every formula cell of the workbook in sheet, row
// and column order, storing each result as the cell's cached value. it
// stops at the first failure.
func (fe *FormulaEvaluator) EvaluateAll() error {
	fe.mu.Lock()
	defer fe.mu.Unlock()

	// one pass sees one value of every volatile cell
	fe.engine.BeginRecalculation()
	defer fe.engine.EndRecalculation()

	wb := fe.workbook.Workbook()
	evaluated := 0
	for _, worksheet := range wb.Sheets() {
		for row := range worksheet.Rows() {
			for cell := range row.Cells() {
				if cell.Type() != spreadsheet.CellTypeFormula {
					continue
				}
				if _, err := fe.evaluateFormulaCell(cell); err != nil {
					return fmt.Errorf("evaluating %s: %w", cell, err)
				}
				evaluated++
			}
		}
	}
	fe.logger.Debug("evaluated workbook", "workbook", wb.ID(), "cells", evaluated)
	return nil
}

// EvaluateName returns the value of a defined name as a formula on the
// sheet at sheetIndex would see it: a name scoped to that sheet shadows a
// workbook-scoped one. use -1 to look up only workbook-scoped names. the
// workbook is not changed.
func (fe *FormulaEvaluator) EvaluateName(name string, sheetIndex int) (formula.Value, error) {
	fe.mu.Lock()
	defer fe.mu.Unlock()

	def := fe.workbook.ResolveName(name, sheetIndex)
	if def == nil {
		return nil, spreadsheet.NewApplicationError(spreadsheet.NotFound,
			fmt.Sprintf("defined name %q not found", name))
	}
	// references without a sheet name resolve against the first sheet
	return fe.engine.EvaluateName(def, max(sheetIndex, 0))
}

// NotifySetFormula reports that the formula of a cell changed.
func (fe *FormulaEvaluator) NotifySetFormula(cell Cell) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	if isNil(cell) {
		return
	}
	fe.engine.NotifySetFormula(fe.adapt(cell))
}

// NotifyUpdateCell reports that the value of a cell changed, so results
// depending on it are recalculated.
func (fe *FormulaEvaluator) NotifyUpdateCell(cell Cell) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	if isNil(cell) {
		return
	}
	fe.engine.NotifyUpdateCell(fe.adapt(cell))
}

// NotifyDeleteCell reports that a cell is about to be removed. call it
// before removing the cell from its worksheet.
func (fe *FormulaEvaluator) NotifyDeleteCell(cell Cell) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	if isNil(cell) {
		return
	}
	adapter := fe.adapt(cell)
	fe.engine.NotifyDeleteCell(adapter)
	adapter.sheet.evict(adapter.RowIndex(), adapter.ColumnIndex())
}

// ClearAllCachedResultValues forgets every computed result and cell
// adapter. use it after structural changes such as removing or reordering
// sheets.
func (fe *FormulaEvaluator) ClearAllCachedResultValues() {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.engine.ClearAllCachedResultValues()
}

// SetIgnoreMissingWorkbooks makes references to unavailable workbooks use
// the cached result of the referring cell instead of failing.
func (fe *FormulaEvaluator) SetIgnoreMissingWorkbooks(ignore bool) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.engine.SetIgnoreMissingWorkbooks(ignore)
}

// SetDebugEvaluationOutputForNextEval logs every cell visited by the next
// evaluation.
func (fe *FormulaEvaluator) SetDebugEvaluationOutputForNextEval(debug bool) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.engine.SetDebugEvaluationOutputForNextEval(debug)
}

// adapt wraps a document cell for the engine, using its sheet's cache.
func (fe *FormulaEvaluator) adapt(cell Cell) *CellAdapter {
	cache := fe.workbook.sheetCache(cell.Worksheet())
	if adapter, ok := cache.GetCell(int(cell.Row()), int(cell.Column())); ok {
		return adapter
	}
	return newCellAdapter(cell, cache)
}

// writeBack stores a result in a cell. a formula cell keeps its formula.
func writeBack(cell Cell, v formula.Value) error {
	switch v := v.(type) {
	case formula.NumberValue:
		cell.SetNumericValue(float64(v))
	case formula.BoolValue:
		cell.SetBooleanValue(bool(v))
	case formula.StringValue:
		cell.SetRichStringValue(spreadsheet.NewRichText(string(v)))
	case formula.ErrorValue:
		cell.SetErrorValue(v.Code)
	default:
		return spreadsheet.NewApplicationError(spreadsheet.Internal,
			fmt.Sprintf("unexpected result %T for %v", v, cell))
	}
	return nil
}
