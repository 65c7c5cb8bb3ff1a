package spreadsheet

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireAppError(t *testing.T, err error, code AppErrorCode) {
	t.Helper()
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

func TestWorkbookIdentity(t *testing.T) {
	first, second := NewWorkbook(), NewWorkbook()
	assert.NotEqual(t, uuid.Nil, first.ID())
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestCreateSheet(t *testing.T) {
	tests := []struct {
		name string
		code AppErrorCode
	}{
		{name: "Data"},
		{name: "My Data 2024"},
		{name: "Bob's"},
		{name: "Résumé"},
		{name: strings.Repeat("x", 31)},
		{name: "", code: InvalidArgument},
		{name: strings.Repeat("x", 32), code: InvalidArgument},
		{name: "a/b", code: InvalidArgument},
		{name: "a[1]", code: InvalidArgument},
		{name: "what?", code: InvalidArgument},
		{name: "'quoted", code: InvalidArgument},
		{name: "quoted'", code: InvalidArgument},
		{name: "sheet1", code: AlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWorkbook()
			_, err := wb.CreateSheet("Sheet1")
			require.NoError(t, err)

			ws, err := wb.CreateSheet(tt.name)
			if tt.code != OK {
				requireAppError(t, err, tt.code)
				assert.Equal(t, 1, wb.NumberOfSheets())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, ws.Name())
			assert.Equal(t, 1, wb.SheetIndex(tt.name))
			assert.Same(t, ws, wb.Sheet(strings.ToUpper(tt.name)))
		})
	}
}

func TestSheetOrder(t *testing.T) {
	wb := NewBuilder().Sheet("A").Sheet("B").Sheet("C").MustBuild()
	c := wb.Sheet("C")

	require.NoError(t, wb.SetSheetOrder("C", 0))
	var names []string
	for i, ws := range wb.Sheets() {
		assert.Equal(t, i, wb.SheetIndexByID(ws.ID()))
		names = append(names, ws.Name())
	}
	assert.Equal(t, []string{"C", "A", "B"}, names)
	assert.Same(t, c, wb.SheetAt(0))
	assert.Same(t, c, wb.SheetByID(c.ID()))
	assert.Equal(t, "C", wb.SheetName(0))

	requireAppError(t, wb.SetSheetOrder("C", 3), OutOfRange)
	requireAppError(t, wb.SetSheetOrder("Z", 0), NotFound)
	assert.Nil(t, wb.SheetAt(3))
	assert.Equal(t, "", wb.SheetName(-1))
	assert.Equal(t, -1, wb.SheetIndex("Z"))
}

func TestRenameSheet(t *testing.T) {
	wb := NewBuilder().Sheet("Data").Sheet("Other").MustBuild()
	ws := wb.Sheet("Data")

	require.NoError(t, wb.RenameSheet("Data", "DATA"), "changing case only")
	assert.Equal(t, "DATA", ws.Name())

	require.NoError(t, wb.RenameSheet("data", "Inputs"))
	assert.Same(t, ws, wb.Sheet("Inputs"))
	assert.Nil(t, wb.Sheet("Data"))

	requireAppError(t, wb.RenameSheet("Inputs", "other"), AlreadyExists)
	requireAppError(t, wb.RenameSheet("Inputs", "in:puts"), InvalidArgument)
	requireAppError(t, wb.RenameSheet("Missing", "X"), NotFound)
}

func TestRemoveSheet(t *testing.T) {
	wb := NewBuilder().
		Sheet("Keep").Set("A1", "shared").Set("B1", "=A1").
		Sheet("Drop").Set("A1", "shared").Set("A2", "only here").Set("B1", "=A1").Set("B2", "=A2").
		LocalName("Local", "A1").
		Name("Global", "Keep!A1").
		MustBuild()
	drop := wb.Sheet("Drop")
	require.Equal(t, 2, wb.StringCount())
	require.Equal(t, 3, wb.FormulaCellCount())
	require.Equal(t, 2, wb.DistinctFormulaCount())

	require.NoError(t, wb.RemoveSheet("drop"))
	assert.Equal(t, 1, wb.NumberOfSheets())
	assert.Equal(t, "", drop.Name())
	assert.Equal(t, 1, wb.StringCount(), "strings only the removed sheet used are released")
	assert.Equal(t, 1, wb.FormulaCellCount())
	assert.Equal(t, 1, wb.DistinctFormulaCount())

	names := wb.Names()
	require.Len(t, names, 1, "names scoped to the removed sheet are dropped")
	assert.Equal(t, "Global", names[0].Name())

	requireAppError(t, wb.RemoveSheet("Drop"), NotFound)

	again, err := wb.CreateSheet("Drop")
	require.NoError(t, err)
	assert.NotEqual(t, drop.ID(), again.ID(), "worksheet IDs are never reused")
}

func TestWorkbookCellLookup(t *testing.T) {
	wb := NewBuilder().
		Sheet("First").Set("A1", 1).
		Sheet("My Data").Set("A1", 2).
		MustBuild()

	cell, err := wb.Cell("A1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, cell.NumericCellValue(), "unqualified references use the first sheet")

	cell, err = wb.Cell("'My Data'!A1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, cell.NumericCellValue())

	cell, err = wb.Cell("First!Z99")
	require.NoError(t, err)
	assert.Nil(t, cell)

	_, err = wb.Cell("Missing!A1")
	requireAppError(t, err, NotFound)
	_, err = wb.Cell("First!A0")
	requireAppError(t, err, InvalidArgument)

	created, err := wb.CreateCell("First!Z99")
	require.NoError(t, err)
	assert.Equal(t, CellTypeBlank, created.Type())
	assert.Equal(t, 2, wb.Sheet("First").CellCount())
}

func TestDefinedNameValidation(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"Rate", true},
		{"_total", true},
		{`\path`, true},
		{"tax.rate_2", true},
		{"ABCD", true},
		{"XFE1", true},
		{"A1", false},
		{"xfd1048576", false},
		{"TRUE", false},
		{"false", false},
		{"R", false},
		{"c", false},
		{"1abc", false},
		{"has space", false},
		{"dash-ed", false},
		{"", false},
	}
	for _, tt := range tests {
		err := validateDefinedName(tt.name)
		if tt.valid {
			assert.NoError(t, err, tt.name)
		} else {
			requireAppError(t, err, InvalidArgument)
		}
	}
}

func TestDefineName(t *testing.T) {
	wb := NewBuilder().Sheet("Sheet1").Sheet("Sheet2").MustBuild()

	global, err := wb.DefineName("Rate", "=0.5", -1)
	require.NoError(t, err)
	assert.Equal(t, "0.5", global.RefersTo())
	assert.Equal(t, -1, global.SheetIndex())
	assert.Equal(t, "", global.Scope())

	local, err := wb.DefineName("rate", "Sheet2!A1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, local.SheetIndex())
	assert.Equal(t, "Sheet2", local.Scope())

	redefined, err := wb.DefineName("RATE", "0.75", -1)
	require.NoError(t, err)
	assert.Same(t, global, redefined)
	assert.Equal(t, "RATE", redefined.Name())
	assert.Equal(t, "0.75", redefined.RefersTo())
	assert.Len(t, wb.Names(), 2)

	_, err = wb.DefineName("Empty", " = ", -1)
	requireAppError(t, err, InvalidArgument)
	_, err = wb.DefineName("Far", "1", 5)
	requireAppError(t, err, OutOfRange)
}

func TestNameLookupIsExactScope(t *testing.T) {
	wb := NewBuilder().
		Sheet("Sheet1").
		Sheet("Sheet2").LocalName("Local", "A1").
		Name("Global", "1").
		MustBuild()

	assert.NotNil(t, wb.Name("global", -1))
	assert.Nil(t, wb.Name("Global", 1), "no fallback to workbook scope")
	assert.Nil(t, wb.Name("Local", -1))
	assert.Nil(t, wb.Name("Local", 0))
	assert.NotNil(t, wb.Name("LOCAL", 1))
	assert.Nil(t, wb.Name("Local", 9))

	local := wb.Name("Local", 1)
	require.NoError(t, wb.SetSheetOrder("Sheet2", 0))
	assert.Equal(t, 0, local.SheetIndex(), "scope follows the sheet, not the position")
	assert.Same(t, local, wb.Name("Local", 0))

	require.NoError(t, wb.RenameSheet("Sheet2", "Inputs"))
	assert.Equal(t, "Inputs", local.Scope())
}

func TestRemoveName(t *testing.T) {
	wb := NewBuilder().
		Sheet("Sheet1").LocalName("X", "1").
		Name("X", "2").
		Name("Y", "3").
		MustBuild()

	require.NoError(t, wb.RemoveName("x", -1))
	assert.Nil(t, wb.Name("X", -1))
	assert.NotNil(t, wb.Name("X", 0), "other scopes are untouched")

	requireAppError(t, wb.RemoveName("X", -1), NotFound)
	requireAppError(t, wb.RemoveName("X", 4), OutOfRange)

	var names []string
	for _, dn := range wb.Names() {
		names = append(names, dn.Name())
	}
	assert.Equal(t, []string{"X", "Y"}, names, "definition order")
}
