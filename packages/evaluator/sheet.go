package evaluator

import (
	"github.com/vogtb/go-spreadsheet/packages/formula"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// SheetCache maps positions of one worksheet to cell adapters. the map is
// built by a single pass over the sheet on first use. after that a miss
// falls back to a point lookup in the live sheet, so cells created since
// the pass are still found without a rebuild.
type SheetCache struct {
	worksheet *spreadsheet.Worksheet
	cells     map[CellKey]*CellAdapter // nil until built
}

var _ formula.EvaluationSheet = (*SheetCache)(nil)

// NewSheetCache creates an empty cache over a worksheet
func NewSheetCache(worksheet *spreadsheet.Worksheet) *SheetCache {
	return &SheetCache{worksheet: worksheet}
}

// Worksheet returns the cached worksheet
func (s *SheetCache) Worksheet() *spreadsheet.Worksheet {
	return s.worksheet
}

// GetCell returns the adapter at a position. positions outside the grid
// and positions without a cell report false.
func (s *SheetCache) GetCell(row, col int) (*CellAdapter, bool) {
	key := CellKey{Row: row, Column: col}
	if !key.valid() {
		return nil, false
	}
	if s.cells == nil {
		s.build()
	}
	if adapter, ok := s.cells[key]; ok {
		return adapter, true
	}

	// the sheet may have gained a cell since the map was built
	cell := s.worksheet.Cell(uint32(row), uint32(col))
	if cell == nil {
		return nil, false
	}
	adapter := newCellAdapter(cell, s)
	s.cells[key] = adapter
	return adapter, true
}

// Cell implements formula.EvaluationSheet. absent cells are a nil interface.
func (s *SheetCache) Cell(row, col int) formula.EvaluationCell {
	adapter, ok := s.GetCell(row, col)
	if !ok {
		return nil
	}
	return adapter
}

func (s *SheetCache) LastRowNum() int {
	return s.worksheet.LastRowNum()
}

func (s *SheetCache) WorksheetID() uint32 {
	return s.worksheet.ID()
}

// ClearAllCachedResultValues drops every adapter. the next GetCell walks
// the sheet again.
func (s *SheetCache) ClearAllCachedResultValues() {
	s.cells = nil
}

// Len returns the number of adapters held, 0 before the first lookup.
func (s *SheetCache) Len() int {
	return len(s.cells)
}

// evict forgets the adapter at one position.
func (s *SheetCache) evict(row, col int) {
	delete(s.cells, CellKey{Row: row, Column: col})
}

func (s *SheetCache) build() {
	s.cells = make(map[CellKey]*CellAdapter, s.worksheet.CellCount())
	for row := range s.worksheet.Rows() {
		for cell := range row.Cells() {
			key := CellKey{Row: int(cell.Row()), Column: int(cell.Column())}
			s.cells[key] = newCellAdapter(cell, s)
		}
	}
}
