package xlsx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
	"github.com/xuri/excelize/v2"
)

// workbookScope is how excelize reports the scope of a workbook-level name.
const workbookScope = "Workbook"

// Open reads an .xlsx file from disk.
func Open(path string) (*spreadsheet.Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read converts an open excelize file into a workbook. formula cells keep
// the results cached in the file, so a workbook can be inspected before it
// is evaluated.
func Read(f *excelize.File) (*spreadsheet.Workbook, error) {
	wb := spreadsheet.NewWorkbook()
	for _, name := range f.GetSheetList() {
		ws, err := wb.CreateSheet(name)
		if err != nil {
			return nil, err
		}
		if err := readSheet(f, name, ws); err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", name, err)
		}
	}

	for _, dn := range f.GetDefinedName() {
		sheetIndex := -1
		if dn.Scope != "" && dn.Scope != workbookScope {
			if sheetIndex = wb.SheetIndex(dn.Scope); sheetIndex < 0 {
				return nil, spreadsheet.NewApplicationError(spreadsheet.NotFound,
					fmt.Sprintf("defined name %q is scoped to missing sheet %q", dn.Name, dn.Scope))
			}
		}
		if _, err := wb.DefineName(dn.Name, dn.RefersTo, sheetIndex); err != nil {
			return nil, fmt.Errorf("reading defined name %q: %w", dn.Name, err)
		}
	}
	return wb, nil
}

// extent returns the number of rows and columns to scan. GetRows drops
// trailing empty cells, which would hide formulas without a cached value,
// so the recorded dimension is consulted too.
func extent(f *excelize.File, sheet string) (rows, cols int, err error) {
	values, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return 0, 0, err
	}
	rows = len(values)
	for _, row := range values {
		cols = max(cols, len(row))
	}

	dimension, err := f.GetSheetDimension(sheet)
	if err != nil || dimension == "" {
		return rows, cols, nil
	}
	last := dimension
	if i := strings.LastIndex(dimension, ":"); i >= 0 {
		last = dimension[i+1:]
	}
	col, row, err := excelize.CellNameToCoordinates(last)
	if err != nil {
		return rows, cols, nil
	}
	return max(rows, row), max(cols, col), nil
}

func readSheet(f *excelize.File, sheet string, ws *spreadsheet.Worksheet) error {
	rows, cols, err := extent(f, sheet)
	if err != nil {
		return err
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			ref := spreadsheet.CellName(uint32(row), uint32(col))
			if err := readCell(f, sheet, ref, ws, uint32(row), uint32(col)); err != nil {
				return fmt.Errorf("%s: %w", ref, err)
			}
		}
	}
	return nil
}

func readCell(f *excelize.File, sheet, ref string, ws *spreadsheet.Worksheet, row, col uint32) error {
	text, err := f.GetCellFormula(sheet, ref)
	if err != nil {
		return err
	}
	cellType, err := f.GetCellType(sheet, ref)
	if err != nil {
		return err
	}
	value, err := f.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
	if err != nil {
		return err
	}

	if text == "" {
		if value != "" {
			setValue(ws.CreateCell(row, col), cellType, value)
		}
		return nil
	}

	cell := ws.CreateCell(row, col)
	if err := cell.SetCellFormula(text); err != nil {
		return err
	}
	if value != "" {
		setValue(cell, cellType, value)
	}
	return nil
}

// setValue stores a raw excelize value. on a formula cell this writes the
// cached result.
func setValue(cell *spreadsheet.Cell, cellType excelize.CellType, value string) {
	switch cellType {
	case excelize.CellTypeBool:
		cell.SetBooleanValue(value == "1" || strings.EqualFold(value, "TRUE"))
	case excelize.CellTypeError:
		code, ok := spreadsheet.ParseErrorCode(value)
		if !ok {
			code = spreadsheet.ErrorCodeOther
		}
		cell.SetErrorValue(code)
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		// cached error results are written as their display text
		if code, ok := spreadsheet.ParseErrorCode(value); ok && cell.Type() == spreadsheet.CellTypeFormula {
			cell.SetErrorValue(code)
			return
		}
		cell.SetStringValue(value)
	default:
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			cell.SetNumericValue(n)
		} else {
			cell.SetStringValue(value)
		}
	}
}

// Save writes a workbook to an .xlsx file on disk.
func Save(wb *spreadsheet.Workbook, path string) error {
	f, err := Write(wb)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// Write converts a workbook into a new excelize file for saving. sheets
// are written with stream writers, so the file is only readable again
// after it has been saved. the caller closes it.
func Write(wb *spreadsheet.Workbook) (*excelize.File, error) {
	f := excelize.NewFile()
	for i, ws := range wb.Sheets() {
		var err error
		if i == 0 {
			err = f.SetSheetName(f.GetSheetName(0), ws.Name())
		} else {
			_, err = f.NewSheet(ws.Name())
		}
		if err == nil {
			err = writeSheet(f, ws)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("writing sheet %q: %w", ws.Name(), err)
		}
	}

	for _, dn := range wb.Names() {
		err := f.SetDefinedName(&excelize.DefinedName{
			Name:     dn.Name(),
			RefersTo: dn.RefersTo(),
			Scope:    dn.Scope(),
		})
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("writing defined name %q: %w", dn.Name(), err)
		}
	}
	return f, nil
}

// writeSheet streams a worksheet row by row. the stream writer keeps the
// type of every value, including the cached result next to a formula,
// which SetCellFormula would mark as text.
func writeSheet(f *excelize.File, ws *spreadsheet.Worksheet) error {
	sw, err := f.NewStreamWriter(ws.Name())
	if err != nil {
		return err
	}
	for row := range ws.Rows() {
		var (
			first  = -1
			values []any
		)
		for cell := range row.Cells() {
			value := cellValue(cell)
			if value == nil {
				continue
			}
			col := int(cell.Column())
			if first < 0 {
				first = col
			}
			for len(values) < col-first {
				values = append(values, nil)
			}
			values = append(values, value)
		}
		if first < 0 {
			continue
		}
		ref := spreadsheet.CellName(row.Index(), uint32(first))
		if err := sw.SetRow(ref, values); err != nil {
			return fmt.Errorf("row %d: %w", row.Index()+1, err)
		}
	}
	return sw.Flush()
}

// cellValue returns what the stream writer stores for a cell, or nil for a
// blank cell. excelize has no typed error cells, so an error constant is
// written as a formula of its literal with the literal cached.
func cellValue(cell *spreadsheet.Cell) any {
	switch cell.Type() {
	case spreadsheet.CellTypeNumeric:
		return cell.NumericCellValue()
	case spreadsheet.CellTypeBoolean:
		return cell.BooleanCellValue()
	case spreadsheet.CellTypeString:
		return cell.StringCellValue()
	case spreadsheet.CellTypeError:
		literal := cell.ErrorCellValue().String()
		return excelize.Cell{Formula: literal, Value: literal}
	case spreadsheet.CellTypeFormula:
		c := excelize.Cell{Formula: cell.CellFormula()}
		switch cell.CachedFormulaResultType() {
		case spreadsheet.CellTypeNumeric:
			c.Value = cell.NumericCellValue()
		case spreadsheet.CellTypeBoolean:
			c.Value = cell.BooleanCellValue()
		case spreadsheet.CellTypeString:
			c.Value = cell.StringCellValue()
		case spreadsheet.CellTypeError:
			c.Value = cell.ErrorCellValue().String()
		}
		return c
	}
	return nil
}
