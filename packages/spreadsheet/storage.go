package spreadsheet

// Storage holds references to the tables shared by all worksheets of one
// workbook.
type Storage struct {
	strings  *StringTable
	formulas *FormulaTable
}

func newStorage() *Storage {
	return &Storage{
		strings:  NewStringTable(),
		formulas: NewFormulaTable(),
	}
}
