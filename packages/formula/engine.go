package formula

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// Engine evaluates formula cells of an EvaluationWorkbook. results are
// memoized per cell; the dependency graph discovered while evaluating tells
// which memoized results go stale when a cell changes.
//
// an Engine is not safe for concurrent use.
type Engine struct {
	workbook         EvaluationWorkbook
	graph            *DependencyGraph
	results          map[spreadsheet.CellAddress]Primitive
	calculationStack *CalculationStack
	logger           *slog.Logger

	ignoreMissingWorkbooks bool
	debugNextEval          bool
	debugActive            bool
	// set between BeginRecalculation and EndRecalculation
	recalculating bool
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithLogger sets the logger debug evaluation output is written to.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithIgnoreMissingWorkbooks makes references to unavailable workbooks fall
// back to the cached result of the referring cell.
func WithIgnoreMissingWorkbooks(ignore bool) EngineOption {
	return func(e *Engine) {
		e.ignoreMissingWorkbooks = ignore
	}
}

// NewEngine creates an engine over a workbook
func NewEngine(workbook EvaluationWorkbook, opts ...EngineOption) *Engine {
	e := &Engine{
		workbook:         workbook,
		graph:            NewDependencyGraph(),
		results:          make(map[spreadsheet.CellAddress]Primitive),
		calculationStack: NewCalculationStack(),
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetIgnoreMissingWorkbooks toggles the missing-workbook fallback.
func (e *Engine) SetIgnoreMissingWorkbooks(ignore bool) {
	e.ignoreMissingWorkbooks = ignore
}

// SetDebugEvaluationOutputForNextEval logs every cell visited by the next
// top-level Evaluate. the flag resets once that evaluation starts.
func (e *Engine) SetDebugEvaluationOutputForNextEval(debug bool) {
	e.debugNextEval = debug
}

// GetDependencyGraph returns the dependency graph built so far
func (e *Engine) GetDependencyGraph() *DependencyGraph {
	return e.graph
}

// CachedResultCount returns the number of memoized formula results
func (e *Engine) CachedResultCount() int {
	return len(e.results)
}

// Evaluate returns the value of a cell. a non-formula cell evaluates to its
// own value. the returned error is a program-level failure, such as a
// reference to a missing workbook; cell-level failures are ErrorValues.
func (e *Engine) Evaluate(cell EvaluationCell) (Value, error) {
	e.debugActive = e.debugNextEval
	e.debugNextEval = false
	defer func() { e.debugActive = false }()

	// volatile cells and everything reading them are recalculated once per
	// top-level call, or once per recalculation pass
	if !e.recalculating {
		e.invalidateVolatile()
	}
	e.calculationStack.reset()

	if cell.Type() != spreadsheet.CellTypeFormula {
		return valueOf(literalValue(cell)), nil
	}

	result, err := e.evaluateCell(cell)
	if err != nil {
		return nil, err
	}
	if e.debugActive {
		e.logger.Info("evaluation finished", "cells", e.calculationStack.completedCount())
	}
	return valueOf(result), nil
}

// BeginRecalculation starts a pass over many cells. volatile cells are
// recalculated once here, and every Evaluate until EndRecalculation sees
// the same volatile results.
func (e *Engine) BeginRecalculation() {
	e.invalidateVolatile()
	e.recalculating = true
}

func (e *Engine) EndRecalculation() {
	e.recalculating = false
}

// EvaluateName evaluates a defined name as a formula on the sheet at
// sheetIndex would see it. the name gets no memoized result and no entry in
// the dependency graph.
func (e *Engine) EvaluateName(def EvaluationName, sheetIndex int) (Value, error) {
	if !e.recalculating {
		e.invalidateVolatile()
	}
	e.calculationStack.reset()

	ctx := &evalContext{
		engine:     e,
		sheetIndex: sheetIndex,
		names:      make(map[string]struct{}),
		detached:   true,
	}
	result, err := ctx.evalName(def)
	if err != nil {
		result = asValueError(err)
	}
	if ctx.fault != nil && !e.ignoreMissingWorkbooks {
		return nil, ctx.fault
	}
	result = scalar(result)
	if result == nil {
		result = 0.0
	}
	return valueOf(result), nil
}

func (e *Engine) invalidateVolatile() {
	for _, addr := range e.graph.GetVolatileCells() {
		e.invalidate(addr)
	}
}

// NotifyUpdateCell drops memoized results that depend on a cell whose value
// changed.
func (e *Engine) NotifyUpdateCell(cell EvaluationCell) {
	e.invalidate(cell.IdentityKey())
}

// NotifySetFormula drops memoized results of a cell whose formula changed,
// and of its dependents.
func (e *Engine) NotifySetFormula(cell EvaluationCell) {
	e.invalidate(cell.IdentityKey())
}

// NotifyDeleteCell drops memoized results depending on a cell that is about
// to be removed, then forgets the cell.
func (e *Engine) NotifyDeleteCell(cell EvaluationCell) {
	addr := cell.IdentityKey()
	e.invalidate(addr)
	e.graph.RemoveNode(addr)
}

// ClearAllCachedResultValues forgets every memoized result and dependency,
// and clears the workbook's caches.
func (e *Engine) ClearAllCachedResultValues() {
	e.results = make(map[spreadsheet.CellAddress]Primitive)
	e.graph.Clear()
	e.calculationStack.reset()
	e.workbook.ClearAllCachedResultValues()
}

func (e *Engine) invalidate(addr spreadsheet.CellAddress) {
	delete(e.results, addr)
	affected := e.graph.GetAffectedCells(addr)
	for _, dep := range affected {
		delete(e.results, dep)
	}
	if len(affected) > 0 {
		e.logger.Debug("invalidated dependents", "worksheet", addr.WorksheetID,
			"cell", spreadsheet.CellName(addr.Row, addr.Column), "count", len(affected))
	}
}

// evaluateCell evaluates one formula cell, or returns its memoized result
func (e *Engine) evaluateCell(cell EvaluationCell) (Primitive, error) {
	addr := cell.IdentityKey()
	if result, exists := e.results[addr]; exists {
		return result, nil
	}

	if e.calculationStack.isProcessing(addr) {
		// cell is already being calculated, we have a circular reference
		return NewSpreadsheetError(spreadsheet.ErrorCodeRef, "Circular reference detected"), nil
	}

	e.calculationStack.push(addr)
	defer e.calculationStack.pop()

	// dependencies are re-discovered on every evaluation
	e.graph.ClearDependencies(addr)

	ctx := &evalContext{
		engine:     e,
		sheetIndex: e.workbook.SheetIndexOf(cell.Sheet()),
		addr:       addr,
		names:      make(map[string]struct{}),
	}

	var result Primitive
	node, err := e.parse(cell)
	switch {
	case err == nil:
		if result, err = node.Eval(ctx); err != nil {
			result = asValueError(err)
		}
	case checkForError(err) != nil:
		// a formula that does not parse evaluates to its error
		result = err
	default:
		return nil, err
	}

	if ctx.fault != nil {
		if !e.ignoreMissingWorkbooks {
			return nil, ctx.fault
		}
		result = cachedResult(cell)
		e.logger.Debug("using cached result", "cell", spreadsheet.CellName(addr.Row, addr.Column), "reason", ctx.fault)
	}

	result = scalar(result)
	if result == nil {
		result = 0.0
	}

	if ctx.volatile {
		e.graph.MarkVolatile(addr)
	}

	if e.debugActive {
		ast := ""
		if node != nil {
			ast = node.ToString()
		}
		e.logger.Info("evaluated cell",
			"sheet", e.workbook.SheetName(ctx.sheetIndex),
			"cell", spreadsheet.CellName(addr.Row, addr.Column),
			"depth", e.calculationStack.depth(),
			"ast", ast,
			"result", valueOf(result).String())
	}

	e.results[addr] = result
	e.calculationStack.markCompleted(addr)
	return result, nil
}

func (e *Engine) parse(cell EvaluationCell) (ASTNode, error) {
	tokens, err := e.workbook.FormulaTokens(cell)
	if err != nil {
		return nil, err
	}
	return NewParser(tokens).Parse()
}

// literalValue reads a non-formula cell
func literalValue(cell EvaluationCell) Primitive {
	switch cell.Type() {
	case spreadsheet.CellTypeNumeric:
		return cell.NumberValue()
	case spreadsheet.CellTypeString:
		return cell.StringValue()
	case spreadsheet.CellTypeBoolean:
		return cell.BooleanValue()
	case spreadsheet.CellTypeError:
		return NewSpreadsheetError(cell.ErrorCode(), "")
	}
	return nil
}

// cachedResult reads the last result stored in a formula cell
func cachedResult(cell EvaluationCell) Primitive {
	switch cell.CachedFormulaResultType() {
	case spreadsheet.CellTypeNumeric:
		return cell.NumberValue()
	case spreadsheet.CellTypeString:
		return cell.StringValue()
	case spreadsheet.CellTypeBoolean:
		return cell.BooleanValue()
	case spreadsheet.CellTypeError:
		return NewSpreadsheetError(cell.ErrorCode(), "")
	}
	return nil
}

// evalContext is the state of evaluating one formula cell. nested formula
// cells get their own context.
type evalContext struct {
	engine     *Engine
	sheetIndex int
	addr       spreadsheet.CellAddress
	names      map[string]struct{} // defined names being expanded
	volatile   bool
	fault      error // program-level failure, reported instead of the result
	detached   bool  // no owning cell, so reads are not recorded
}

// sheetFor resolves the sheet a reference points to
func (ctx *evalContext) sheetFor(ref Reference) (int, error) {
	switch {
	case ref.IsExternal() && ref.Sheet < 0:
		ctx.fault = spreadsheet.NewApplicationError(spreadsheet.NotFound,
			fmt.Sprintf("workbook %q not found", ref.Workbook))
		return 0, NewSpreadsheetError(spreadsheet.ErrorCodeRef, "External workbook not available")
	case ref.Sheet == CurrentSheet:
		return ctx.sheetIndex, nil
	case ref.Sheet < 0:
		return 0, NewSpreadsheetError(spreadsheet.ErrorCodeRef, "Invalid reference")
	}
	return ref.Sheet, nil
}

// cellValue reads one cell, evaluating it first when it holds a formula.
// track records the read in the dependency graph.
func (ctx *evalContext) cellValue(sheetIndex int, row, col uint32, track bool) Primitive {
	wb := ctx.engine.workbook
	sheet := wb.Sheet(sheetIndex)
	if sheet == nil {
		return NewSpreadsheetError(spreadsheet.ErrorCodeRef, "Invalid reference")
	}

	if track && !ctx.detached {
		ctx.engine.graph.AddCellDependency(ctx.addr, spreadsheet.CellAddress{
			WorksheetID: sheet.WorksheetID(),
			Row:         row,
			Column:      col,
		})
	}

	cell := sheet.Cell(int(row), int(col))
	if cell == nil {
		return nil
	}
	if cell.Type() != spreadsheet.CellTypeFormula {
		return literalValue(cell)
	}

	result, err := ctx.engine.evaluateCell(cell)
	if err != nil {
		ctx.fault = err
		return NewSpreadsheetError(spreadsheet.ErrorCodeRef, err.Error())
	}
	return result
}

// rangeOf builds a lazy range over a reference
func (ctx *evalContext) rangeOf(sheetIndex int, ref Reference) (Primitive, error) {
	sheet := ctx.engine.workbook.Sheet(sheetIndex)
	if sheet == nil {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeRef, "Invalid reference")
	}

	bounds := RangeAddress{
		WorksheetID: sheet.WorksheetID(),
		StartRow:    ref.StartRow,
		StartColumn: ref.StartColumn,
		EndRow:      ref.EndRow,
		EndColumn:   ref.EndColumn,
	}
	// the unclamped bounds, so cells added later still invalidate
	if !ctx.detached {
		ctx.engine.graph.AddRangeDependency(ctx.addr, bounds)
	}

	if ref.WholeColumn {
		bounds.EndRow = ref.StartRow
		if last := sheet.LastRowNum(); last >= 0 {
			bounds.EndRow = max(uint32(last), ref.StartRow)
		}
	}

	return &CellRange{bounds: bounds, sheetIndex: sheetIndex, ctx: ctx}, nil
}

// evalName evaluates the formula a defined name refers to
func (ctx *evalContext) evalName(def EvaluationName) (Primitive, error) {
	key := fmt.Sprintf("%d!%s", def.SheetIndex(), strings.ToUpper(def.NameText()))
	if _, expanding := ctx.names[key]; expanding {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeName,
			fmt.Sprintf("Named range '%s' refers to itself", def.NameText()))
	}
	ctx.names[key] = struct{}{}
	defer delete(ctx.names, key)

	tokens, err := ctx.engine.workbook.NameTokens(def)
	if err != nil {
		return nil, err
	}
	node, err := NewParser(tokens).Parse()
	if err != nil {
		return nil, err
	}
	return node.Eval(ctx)
}

// call invokes a function from the workbook's function table
func (ctx *evalContext) call(index int, args []Primitive) (Primitive, error) {
	functions := ctx.engine.workbook.Functions()
	if functions.IsVolatile(index) {
		ctx.volatile = true
	}
	return functions.Call(index, args...)
}

// CalculationStack tracks the cells being evaluated, for cycle detection
type CalculationStack struct {
	items      []spreadsheet.CellAddress            // stack of cells to process
	processing map[spreadsheet.CellAddress]struct{} // currently being processed (cycle detection)
	completed  map[spreadsheet.CellAddress]struct{} // already calculated in this pass
}

// NewCalculationStack creates a new calculation stack
func NewCalculationStack() *CalculationStack {
	return &CalculationStack{
		items:      make([]spreadsheet.CellAddress, 0),
		processing: make(map[spreadsheet.CellAddress]struct{}),
		completed:  make(map[spreadsheet.CellAddress]struct{}),
	}
}

// push adds a cell to the stack
func (cs *CalculationStack) push(addr spreadsheet.CellAddress) {
	cs.items = append(cs.items, addr)
	cs.processing[addr] = struct{}{}
}

// pop removes and returns the top cell from the stack
func (cs *CalculationStack) pop() (spreadsheet.CellAddress, bool) {
	if len(cs.items) == 0 {
		return spreadsheet.CellAddress{}, false
	}
	addr := cs.items[len(cs.items)-1]
	cs.items = cs.items[:len(cs.items)-1]
	delete(cs.processing, addr)
	return addr, true
}

// isProcessing checks if a cell is currently being processed
func (cs *CalculationStack) isProcessing(addr spreadsheet.CellAddress) bool {
	_, exists := cs.processing[addr]
	return exists
}

// markCompleted marks a cell as calculated
func (cs *CalculationStack) markCompleted(addr spreadsheet.CellAddress) {
	cs.completed[addr] = struct{}{}
}

// completedCount returns the number of cells calculated in this pass
func (cs *CalculationStack) completedCount() int {
	return len(cs.completed)
}

// depth returns the number of cells being evaluated
func (cs *CalculationStack) depth() int {
	return len(cs.items)
}

// reset clears the stack
func (cs *CalculationStack) reset() {
	cs.items = cs.items[:0]
	cs.processing = make(map[spreadsheet.CellAddress]struct{})
	cs.completed = make(map[spreadsheet.CellAddress]struct{})
}
