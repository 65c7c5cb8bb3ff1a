package formula

import (
	"iter"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// RangeAddress represents a range of cells within a single worksheet
type RangeAddress struct {
	WorksheetID uint32
	StartRow    uint32
	StartColumn uint32
	EndRow      uint32
	EndColumn   uint32
}

// Contains checks if a cell lies within the range
func (r RangeAddress) Contains(addr spreadsheet.CellAddress) bool {
	return r.WorksheetID == addr.WorksheetID &&
		addr.Row >= r.StartRow && addr.Row <= r.EndRow &&
		addr.Column >= r.StartColumn && addr.Column <= r.EndColumn
}

// Range represents a lazy range type for memory-efficient formula evaluation
type Range interface {
	GetBounds() RangeAddress
	IterateValues() iter.Seq[Primitive]
}

// CellRange implements Range for lazy cell iteration. formula cells inside
// the range are evaluated as they are reached.
type CellRange struct {
	bounds     RangeAddress
	sheetIndex int
	ctx        *evalContext
}

// GetBounds returns the range boundaries
func (r *CellRange) GetBounds() RangeAddress {
	return r.bounds
}

// IterateValues returns an iterator over cell values in the range, row by
// row. empty cells yield nil.
func (r *CellRange) IterateValues() iter.Seq[Primitive] {
	return func(yield func(Primitive) bool) {
		for row := r.bounds.StartRow; row <= r.bounds.EndRow; row++ {
			for col := r.bounds.StartColumn; col <= r.bounds.EndColumn; col++ {
				if !yield(r.ctx.cellValue(r.sheetIndex, row, col, false)) {
					return
				}
			}
		}
	}
}

// singleValue returns the only value of a one-cell range.
func singleValue(r Range) (Primitive, bool) {
	b := r.GetBounds()
	if b.StartRow != b.EndRow || b.StartColumn != b.EndColumn {
		return nil, false
	}
	for v := range r.IterateValues() {
		return v, true
	}
	return nil, true
}
