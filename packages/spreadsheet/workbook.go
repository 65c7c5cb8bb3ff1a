package spreadsheet

import (
	"fmt"
	"iter"

	"github.com/google/uuid"
)

// Workbook is the document: an ordered list of worksheets plus the defined
// names and shared string/formula tables. a Workbook is not safe for
// concurrent mutation.
type Workbook struct {
	id      uuid.UUID
	storage *Storage
	sheets  *WorksheetTable
	names   *DefinedNameTable
}

// NewWorkbook creates an empty workbook with a fresh identity.
func NewWorkbook() *Workbook {
	sheets := NewWorksheetTable()
	return &Workbook{
		id:      uuid.New(),
		storage: newStorage(),
		sheets:  sheets,
		names:   NewDefinedNameTable(sheets),
	}
}

// ID identifies the workbook in logs and reports.
func (wb *Workbook) ID() uuid.UUID {
	return wb.id
}

// CreateSheet appends a new, empty worksheet.
func (wb *Workbook) CreateSheet(name string) (*Worksheet, error) {
	return wb.sheets.Define(name, wb.storage)
}

// RemoveSheet deletes a worksheet together with the names scoped to it.
func (wb *Workbook) RemoveSheet(name string) error {
	id, exists := wb.sheets.ID(name)
	if !exists {
		return NewApplicationError(NotFound, fmt.Sprintf("sheet %q not found", name))
	}
	worksheet, _ := wb.sheets.Get(id)
	worksheet.release()
	wb.names.RemoveScope(id)
	wb.sheets.Remove(id)
	return nil
}

// RenameSheet renames a worksheet. formulas are stored as text, so ones
// naming the old sheet will resolve to #REF! afterwards.
func (wb *Workbook) RenameSheet(oldName, newName string) error {
	id, exists := wb.sheets.ID(oldName)
	if !exists {
		return NewApplicationError(NotFound, fmt.Sprintf("sheet %q not found", oldName))
	}
	return wb.sheets.Rename(id, newName)
}

// SetSheetOrder moves a worksheet to a new position.
func (wb *Workbook) SetSheetOrder(name string, pos int) error {
	id, exists := wb.sheets.ID(name)
	if !exists {
		return NewApplicationError(NotFound, fmt.Sprintf("sheet %q not found", name))
	}
	return wb.sheets.Move(id, pos)
}

func (wb *Workbook) NumberOfSheets() int {
	return wb.sheets.Count()
}

// SheetAt returns the worksheet at an index, or nil.
func (wb *Workbook) SheetAt(index int) *Worksheet {
	worksheet, _ := wb.sheets.At(index)
	return worksheet
}

// Sheet returns a worksheet by name, or nil.
func (wb *Workbook) Sheet(name string) *Worksheet {
	id, exists := wb.sheets.ID(name)
	if !exists {
		return nil
	}
	worksheet, _ := wb.sheets.Get(id)
	return worksheet
}

// SheetIndex returns the index of a sheet by name, or -1.
func (wb *Workbook) SheetIndex(name string) int {
	id, exists := wb.sheets.ID(name)
	if !exists {
		return -1
	}
	return wb.sheets.Index(id)
}

// SheetName returns the name of the sheet at an index, or "".
func (wb *Workbook) SheetName(index int) string {
	worksheet, exists := wb.sheets.At(index)
	if !exists {
		return ""
	}
	return worksheet.Name()
}

// SheetIndexByID returns the current index of a worksheet identity, or -1.
func (wb *Workbook) SheetIndexByID(id uint32) int {
	return wb.sheets.Index(id)
}

// SheetByID returns a worksheet by identity, or nil.
func (wb *Workbook) SheetByID(id uint32) *Worksheet {
	worksheet, _ := wb.sheets.Get(id)
	return worksheet
}

// Sheets yields the worksheets in sheet order.
func (wb *Workbook) Sheets() iter.Seq2[int, *Worksheet] {
	return func(yield func(int, *Worksheet) bool) {
		for i := 0; i < wb.sheets.Count(); i++ {
			worksheet, _ := wb.sheets.At(i)
			if !yield(i, worksheet) {
				return
			}
		}
	}
}

// scopeID maps a sheet index (-1 for workbook scope) to a worksheet ID.
func (wb *Workbook) scopeID(sheetIndex int) (uint32, error) {
	if sheetIndex < 0 {
		return 0, nil
	}
	worksheet, exists := wb.sheets.At(sheetIndex)
	if !exists {
		return 0, NewApplicationError(OutOfRange, fmt.Sprintf("sheet index %d out of range", sheetIndex))
	}
	return worksheet.ID(), nil
}

// DefineName defines (or redefines) a name. sheetIndex -1 defines a
// workbook-scoped name.
func (wb *Workbook) DefineName(name, refersTo string, sheetIndex int) (*DefinedName, error) {
	scope, err := wb.scopeID(sheetIndex)
	if err != nil {
		return nil, err
	}
	return wb.names.Define(name, refersTo, scope)
}

// RemoveName deletes a name from exactly the given scope.
func (wb *Workbook) RemoveName(name string, sheetIndex int) error {
	scope, err := wb.scopeID(sheetIndex)
	if err != nil {
		return err
	}
	if !wb.names.Remove(name, scope) {
		return NewApplicationError(NotFound, fmt.Sprintf("defined name %q not found", name))
	}
	return nil
}

// Name returns the definition of a name in exactly the given scope, or nil.
func (wb *Workbook) Name(name string, sheetIndex int) *DefinedName {
	scope, err := wb.scopeID(sheetIndex)
	if err != nil {
		return nil
	}
	dn, _ := wb.names.Lookup(name, scope)
	return dn
}

// Names returns every defined name in definition order.
func (wb *Workbook) Names() []*DefinedName {
	return wb.names.All()
}

// resolveRef splits "Sheet1!B3" into a worksheet and position. a reference
// without a sheet name refers to the first sheet.
func (wb *Workbook) resolveRef(ref string) (*Worksheet, uint32, uint32, error) {
	sheetName, cellName, err := SplitSheetReference(ref)
	if err != nil {
		return nil, 0, 0, err
	}
	var worksheet *Worksheet
	if sheetName == "" {
		worksheet = wb.SheetAt(0)
	} else {
		worksheet = wb.Sheet(sheetName)
	}
	if worksheet == nil {
		return nil, 0, 0, NewApplicationError(NotFound, fmt.Sprintf("sheet for %q not found", ref))
	}
	row, col, err := ParseCellName(cellName)
	if err != nil {
		return nil, 0, 0, err
	}
	return worksheet, row, col, nil
}

// Cell looks up a cell by reference. returns nil without error when the
// position is unoccupied.
func (wb *Workbook) Cell(ref string) (*Cell, error) {
	worksheet, row, col, err := wb.resolveRef(ref)
	if err != nil {
		return nil, err
	}
	return worksheet.Cell(row, col), nil
}

// CreateCell returns the cell at a reference, creating a blank one if needed.
func (wb *Workbook) CreateCell(ref string) (*Cell, error) {
	worksheet, row, col, err := wb.resolveRef(ref)
	if err != nil {
		return nil, err
	}
	return worksheet.CreateCell(row, col), nil
}

// FormulaCellCount returns the number of formula cells across all sheets.
func (wb *Workbook) FormulaCellCount() int {
	return wb.storage.formulas.CellCount()
}

// DistinctFormulaCount returns the number of distinct formula texts.
func (wb *Workbook) DistinctFormulaCount() int {
	return wb.storage.formulas.Count()
}

// StringCount returns the number of distinct strings held by the workbook.
func (wb *Workbook) StringCount() int {
	return wb.storage.strings.Count()
}
