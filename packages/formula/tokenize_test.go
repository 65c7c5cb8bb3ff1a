package formula

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

func TestTokenize(t *testing.T) {
	wb := newMemWorkbook(t, "Sheet1", "Sheet2", "My Sheet")
	ctx := ParseContext{SheetIndex: 0, Workbook: wb}
	sum := wb.Functions().Index("SUM")
	concat := wb.Functions().Index("CONCAT")

	equals := Token{Type: TokenEquals, Value: "="}
	eof := Token{Type: TokenEOF}

	tests := []struct {
		name    string
		formula string
		want    []Token
	}{
		{
			name:    "arithmetic with a cell",
			formula: "=1+A1",
			want: []Token{
				equals,
				{Type: TokenNumber, Value: "1"},
				{Type: TokenBinaryOp, Value: "+"},
				{Type: TokenCell, Value: "A1", Ref: Reference{}},
				eof,
			},
		},
		{
			name:    "without equals and with a reversed range",
			formula: "SUM(B2:A1)",
			want: []Token{
				equals,
				{Type: TokenFunction, Value: "SUM", Function: sum},
				{Type: TokenLeftParen, Value: "("},
				{Type: TokenRange, Value: "B2:A1", Ref: Reference{EndRow: 1, EndColumn: 1}},
				{Type: TokenRightParen, Value: ")"},
				eof,
			},
		},
		{
			name:    "absolute reference on another sheet",
			formula: "=Sheet2!$B$3",
			want: []Token{
				equals,
				{Type: TokenCell, Value: "Sheet2!$B$3", Ref: Reference{Sheet: 1, StartRow: 2, StartColumn: 1, EndRow: 2, EndColumn: 1}},
				eof,
			},
		},
		{
			name:    "quoted sheet name",
			formula: "='My Sheet'!C1",
			want: []Token{
				equals,
				{Type: TokenCell, Value: "'My Sheet'!C1", Ref: Reference{Sheet: 2, StartColumn: 2, EndColumn: 2}},
				eof,
			},
		},
		{
			name:    "escaped apostrophe in sheet name",
			formula: "='It''s'!A1:B2",
			want: []Token{
				equals,
				{Type: TokenRange, Value: "'It''s'!A1:B2", Ref: Reference{Sheet: InvalidSheet, EndRow: 1, EndColumn: 1}},
				eof,
			},
		},
		{
			name:    "unknown sheet",
			formula: "=Missing!A1",
			want: []Token{
				equals,
				{Type: TokenCell, Value: "Missing!A1", Ref: Reference{Sheet: InvalidSheet}},
				eof,
			},
		},
		{
			name:    "row beyond the grid",
			formula: "=A1048577",
			want: []Token{
				equals,
				{Type: TokenCell, Value: "A1048577", Ref: Reference{Sheet: InvalidSheet}},
				eof,
			},
		},
		{
			name:    "future function prefix",
			formula: `=_xlfn.CONCAT("a","b")`,
			want: []Token{
				equals,
				{Type: TokenFunction, Value: "CONCAT", Function: concat},
				{Type: TokenLeftParen, Value: "("},
				{Type: TokenString, Value: "a"},
				{Type: TokenComma, Value: ","},
				{Type: TokenString, Value: "b"},
				{Type: TokenRightParen, Value: ")"},
				eof,
			},
		},
		{
			name:    "whole column",
			formula: "=A:B",
			want: []Token{
				equals,
				{Type: TokenRange, Value: "A:B", Ref: Reference{EndColumn: 1, EndRow: spreadsheet.MaxRows - 1, WholeColumn: true}},
				eof,
			},
		},
		{
			name:    "prefix and postfix operators",
			formula: "=-A1%",
			want: []Token{
				equals,
				{Type: TokenUnaryPrefixOp, Value: "-"},
				{Type: TokenCell, Value: "A1", Ref: Reference{}},
				{Type: TokenUnaryPostfixOp, Value: "%"},
				eof,
			},
		},
		{
			name:    "error literal",
			formula: "=#DIV/0!",
			want: []Token{
				equals,
				{Type: TokenErrorLiteral, Value: "#DIV/0!"},
				eof,
			},
		},
		{
			name:    "boolean",
			formula: "=TRUE",
			want: []Token{
				equals,
				{Type: TokenBoolean, Value: "TRUE"},
				eof,
			},
		},
		{
			name:    "unknown function",
			formula: "=NOSUCH(1)",
			want: []Token{
				equals,
				{Type: TokenFunction, Value: "NOSUCH", Function: -1},
				{Type: TokenLeftParen, Value: "("},
				{Type: TokenNumber, Value: "1"},
				{Type: TokenRightParen, Value: ")"},
				eof,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.formula, ctx)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Tokenize(%q) mismatch (-want +got):\n%s", tt.formula, diff)
			}
		})
	}
}

func TestTokenizeErrors(t *testing.T) {
	wb := newMemWorkbook(t, "Sheet1")
	ctx := ParseContext{SheetIndex: 0, Workbook: wb}

	tests := []struct {
		formula string
		code    spreadsheet.ErrorCode
	}{
		{"", spreadsheet.ErrorCodeValue},
		{"=", spreadsheet.ErrorCodeValue},
		{"=   ", spreadsheet.ErrorCodeValue},
		{"=A1 B1", spreadsheet.ErrorCodeNull},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			_, err := Tokenize(tt.formula, ctx)
			require.Error(t, err)
			var spreadsheetErr *SpreadsheetError
			require.ErrorAs(t, err, &spreadsheetErr)
			assert.Equal(t, tt.code, spreadsheetErr.ErrorCode)
		})
	}
}

func TestTokenizeNames(t *testing.T) {
	wb := newMemWorkbook(t, "Sheet1", "Sheet2")
	wb.define("Rate", "=0.5", -1)
	wb.define("Rate", "=0.25", 1)

	t.Run("workbook scope", func(t *testing.T) {
		tokens, err := Tokenize("=Rate*2", ParseContext{SheetIndex: 0, Workbook: wb})
		require.NoError(t, err)
		require.Equal(t, TokenName, tokens[1].Type)
		assert.Equal(t, "Rate", tokens[1].Value)
		require.NotNil(t, tokens[1].Name)
		assert.Equal(t, -1, tokens[1].Name.SheetIndex())
	})

	t.Run("sheet scope shadows workbook scope", func(t *testing.T) {
		tokens, err := Tokenize("=rate*2", ParseContext{SheetIndex: 1, Workbook: wb})
		require.NoError(t, err)
		require.NotNil(t, tokens[1].Name)
		assert.Equal(t, 1, tokens[1].Name.SheetIndex())
		assert.Equal(t, "=0.25", tokens[1].Name.RefersToFormula())
	})

	t.Run("sheet qualified", func(t *testing.T) {
		tokens, err := Tokenize("=Sheet2!Rate", ParseContext{SheetIndex: 0, Workbook: wb})
		require.NoError(t, err)
		require.NotNil(t, tokens[1].Name)
		assert.Equal(t, 1, tokens[1].Name.SheetIndex())
	})

	t.Run("undefined", func(t *testing.T) {
		tokens, err := Tokenize("=Missing", ParseContext{SheetIndex: 0, Workbook: wb})
		require.NoError(t, err)
		assert.Equal(t, TokenName, tokens[1].Type)
		assert.Nil(t, tokens[1].Name)
	})

	t.Run("column beyond the grid reads as a name", func(t *testing.T) {
		tokens, err := Tokenize("=XFE1", ParseContext{SheetIndex: 0, Workbook: wb})
		require.NoError(t, err)
		assert.Equal(t, TokenName, tokens[1].Type)

		tokens, err = Tokenize("=XFD1", ParseContext{SheetIndex: 0, Workbook: wb})
		require.NoError(t, err)
		assert.Equal(t, TokenCell, tokens[1].Type)
		assert.Equal(t, uint32(spreadsheet.MaxColumns-1), tokens[1].Ref.StartColumn)
	})
}

func TestTokenizeCurrentSheet(t *testing.T) {
	wb := newMemWorkbook(t, "Sheet1")
	tokens, err := Tokenize("=A1", ParseContext{SheetIndex: CurrentSheet, Workbook: wb})
	require.NoError(t, err)
	assert.Equal(t, CurrentSheet, tokens[1].Ref.Sheet)
}

func TestTokenizeExternalWorkbook(t *testing.T) {
	wb := newMemWorkbook(t, "Sheet1")
	tokens, err := Tokenize("=[Other.xlsx]Sheet1!A1", ParseContext{SheetIndex: 0, Workbook: wb})
	require.NoError(t, err)
	require.Equal(t, TokenCell, tokens[1].Type)
	assert.True(t, tokens[1].Ref.IsExternal())
	assert.Equal(t, "Other.xlsx", tokens[1].Ref.Workbook)
	assert.Equal(t, InvalidSheet, tokens[1].Ref.Sheet)
}
