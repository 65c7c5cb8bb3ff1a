package spreadsheet

// FormulaTable stores formula text centrally. identical formulas typed into
// many cells (filled-down columns) share one entry, and the table tracks
// which cells use which formula.
type FormulaTable struct {
	// core formula storage

	textIndex map[string]uint32 // formula text -> formula ID
	texts     map[uint32]string // formula ID -> formula text
	refCounts map[uint32]int    // formula ID -> reference count

	// cell tracking

	cellsUsingFormula map[uint32]map[CellAddress]struct{} // formula ID -> cells using it
	formulaAtCell     map[CellAddress]uint32              // cell -> formula ID (reverse index)

	nextID uint32
}

// NewFormulaTable creates a new formula table
func NewFormulaTable() *FormulaTable {
	return &FormulaTable{
		textIndex:         make(map[string]uint32),
		texts:             make(map[uint32]string),
		refCounts:         make(map[uint32]int),
		cellsUsingFormula: make(map[uint32]map[CellAddress]struct{}),
		formulaAtCell:     make(map[CellAddress]uint32),
		nextID:            1, // start at 1, reserve 0 for no formula
	}
}

// Intern adds a formula or increments its reference count if it already
// exists, and records that cell uses it. a cell holds at most one formula;
// interning for a cell that already had a different one releases the old one.
func (ft *FormulaTable) Intern(text string, cell CellAddress) uint32 {
	if oldID, exists := ft.formulaAtCell[cell]; exists {
		if ft.texts[oldID] == text {
			return oldID
		}
		ft.Release(oldID, cell)
	}

	id, exists := ft.textIndex[text]
	if exists {
		ft.refCounts[id]++
	} else {
		id = ft.nextID
		ft.textIndex[text] = id
		ft.texts[id] = text
		ft.refCounts[id] = 1
		ft.nextID++
	}

	if ft.cellsUsingFormula[id] == nil {
		ft.cellsUsingFormula[id] = make(map[CellAddress]struct{})
	}
	ft.cellsUsingFormula[id][cell] = struct{}{}
	ft.formulaAtCell[cell] = id

	return id
}

// Text returns the formula text for an ID
func (ft *FormulaTable) Text(id uint32) (string, bool) {
	text, exists := ft.texts[id]
	return text, exists
}

// FormulaAt returns the formula ID used by a cell
func (ft *FormulaTable) FormulaAt(cell CellAddress) (uint32, bool) {
	id, exists := ft.formulaAtCell[cell]
	return id, exists
}

// Release removes a cell's use of a formula. returns true if the formula was
// removed due to zero references.
func (ft *FormulaTable) Release(id uint32, cell CellAddress) bool {
	if cells, exists := ft.cellsUsingFormula[id]; exists {
		if _, used := cells[cell]; !used {
			return false
		}
		delete(cells, cell)
		if len(cells) == 0 {
			delete(ft.cellsUsingFormula, id)
		}
	} else {
		return false
	}
	delete(ft.formulaAtCell, cell)

	ft.refCounts[id]--
	if ft.refCounts[id] <= 0 {
		delete(ft.textIndex, ft.texts[id])
		delete(ft.texts, id)
		delete(ft.refCounts, id)
		return true
	}
	return false
}

// ReleaseWorksheet drops every formula use belonging to a worksheet.
func (ft *FormulaTable) ReleaseWorksheet(worksheetID uint32) {
	for cell, id := range ft.formulaAtCell {
		if cell.WorksheetID == worksheetID {
			ft.Release(id, cell)
		}
	}
}

// Count returns the number of distinct formulas
func (ft *FormulaTable) Count() int {
	return len(ft.texts)
}

// CellCount returns the number of cells holding a formula
func (ft *FormulaTable) CellCount() int {
	return len(ft.formulaAtCell)
}
