package evaluator

import "github.com/vogtb/go-spreadsheet/packages/spreadsheet"

// CellKey indexes the cells of one sheet cache. it is comparable, so it
// works directly as a map key.
type CellKey struct {
	Row    int
	Column int
}

func (k CellKey) String() string {
	return spreadsheet.CellName(uint32(k.Row), uint32(k.Column))
}

// valid reports whether the key lies inside the grid.
func (k CellKey) valid() bool {
	return k.Row >= 0 && k.Column >= 0 && k.Row < spreadsheet.MaxRows && k.Column < spreadsheet.MaxColumns
}
