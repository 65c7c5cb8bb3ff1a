package spreadsheet

import (
	"fmt"
	"strings"
)

// Builder provides a chainable interface for populating a workbook. it
// tracks the first error internally; every later step is a no-op and the
// error is reported by Build.
//
//	wb, err := NewBuilder().
//		Sheet("Sheet1").
//		Set("A1", 2).
//		Set("A2", 3).
//		Set("B3", "=A1+A2").
//		Build()
type Builder struct {
	workbook *Workbook
	current  *Worksheet
	err      error
}

// NewBuilder starts a builder over a new, empty workbook.
func NewBuilder() *Builder {
	return &Builder{workbook: NewWorkbook()}
}

// Sheet makes the named sheet current, creating it if needed (chainable)
func (b *Builder) Sheet(name string) *Builder {
	if b.err != nil {
		return b // no-op if there's already an error
	}
	if worksheet := b.workbook.Sheet(name); worksheet != nil {
		b.current = worksheet
		return b
	}
	b.current, b.err = b.workbook.CreateSheet(name)
	return b
}

// Set writes a value to a cell (chainable). a reference without a sheet
// name targets the current sheet. strings starting with '=' are formulas;
// nil leaves a blank cell. any other value replaces a formula the cell held.
func (b *Builder) Set(ref string, value any) *Builder {
	if b.err != nil {
		return b // no-op if there's already an error
	}

	cell, err := b.cell(ref)
	if err != nil {
		b.err = err
		return b
	}
	if s, ok := value.(string); !ok || !isFormulaText(s) {
		if cell.Type() == CellTypeFormula {
			cell.SetBlank()
		}
	}

	switch v := value.(type) {
	case nil:
		cell.SetBlank()
	case float64:
		cell.SetNumericValue(v)
	case float32:
		cell.SetNumericValue(float64(v))
	case int:
		cell.SetNumericValue(float64(v))
	case int64:
		cell.SetNumericValue(float64(v))
	case bool:
		cell.SetBooleanValue(v)
	case ErrorCode:
		cell.SetErrorValue(v)
	case RichText:
		cell.SetRichStringValue(v)
	case string:
		if isFormulaText(v) {
			b.err = cell.SetCellFormula(v)
		} else {
			cell.SetStringValue(v)
		}
	default:
		b.err = NewApplicationError(InvalidArgument,
			fmt.Sprintf("unsupported value type %T for %s", value, ref))
	}
	return b
}

func isFormulaText(s string) bool {
	return strings.HasPrefix(s, "=") && len(s) > 1
}

// SetBatch sets multiple cells at once, in reference order (chainable)
func (b *Builder) SetBatch(cells map[string]any) *Builder {
	if b.err != nil {
		return b // no-op if there's already an error
	}
	b.err = enumerate(cells, func(ref string, value any) error {
		return b.Set(ref, value).err
	})
	return b
}

// Remove removes a cell (chainable)
func (b *Builder) Remove(ref string) *Builder {
	if b.err != nil {
		return b // no-op if there's already an error
	}
	cell, err := b.cell(ref)
	if err != nil {
		b.err = err
		return b
	}
	cell.Worksheet().RemoveCell(cell.Row(), cell.Column())
	return b
}

// Name defines a workbook-scoped name (chainable)
func (b *Builder) Name(name, refersTo string) *Builder {
	if b.err != nil {
		return b // no-op if there's already an error
	}
	_, b.err = b.workbook.DefineName(name, refersTo, -1)
	return b
}

// LocalName defines a name scoped to the current sheet (chainable)
func (b *Builder) LocalName(name, refersTo string) *Builder {
	if b.err != nil {
		return b // no-op if there's already an error
	}
	if b.current == nil {
		b.err = NewApplicationError(FailedPrecondition, "no current sheet for a sheet-scoped name")
		return b
	}
	_, b.err = b.workbook.DefineName(name, refersTo, b.workbook.SheetIndexByID(b.current.ID()))
	return b
}

// Then allows conditional execution based on current error state
func (b *Builder) Then(fn func(*Builder) *Builder) *Builder {
	if b.err != nil {
		return b // skip if there's an error
	}
	return fn(b)
}

// If allows conditional operations in the chain
func (b *Builder) If(condition bool, fn func(*Builder) *Builder) *Builder {
	if b.err != nil || !condition {
		return b // skip if there's an error or condition is false
	}
	return fn(b)
}

// Err returns the current error state
func (b *Builder) Err() error {
	return b.err
}

// Build returns the workbook, or the first error hit along the chain.
func (b *Builder) Build() (*Workbook, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.workbook, nil
}

// MustBuild panics if there's an error. useful for examples and tests where
// you want to fail fast
func (b *Builder) MustBuild() *Workbook {
	workbook, err := b.Build()
	if err != nil {
		panic(err)
	}
	return workbook
}

func (b *Builder) cell(ref string) (*Cell, error) {
	sheetName, cellName, err := SplitSheetReference(ref)
	if err != nil {
		return nil, err
	}
	worksheet := b.current
	if sheetName != "" {
		worksheet = b.workbook.Sheet(sheetName)
	}
	if worksheet == nil {
		return nil, NewApplicationError(NotFound, fmt.Sprintf("no sheet for %q", ref))
	}
	row, col, err := ParseCellName(cellName)
	if err != nil {
		return nil, err
	}
	return worksheet.CreateCell(row, col), nil
}
