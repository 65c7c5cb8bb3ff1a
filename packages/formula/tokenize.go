package formula

import (
	"fmt"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
	"github.com/xuri/efp"
)

// ParseContext is the position a formula is tokenized for.
type ParseContext struct {
	// SheetIndex is the sheet unqualified references point to. CurrentSheet
	// defers that choice to evaluation time.
	SheetIndex int
	Workbook   ParsingWorkbook
}

// future-function prefixes the xlsx format writes in front of newer names.
var functionPrefixes = []string{"_xlfn._xlws.", "_xlfn.", "_xlws."}

// Tokenize splits formula text (with or without the leading '=') into
// tokens, resolving references, names and functions against the context.
// the stream starts with TokenEquals and ends with TokenEOF. a formula that
// cannot be tokenized returns a *SpreadsheetError.
func Tokenize(formula string, ctx ParseContext) ([]Token, error) {
	text := strings.TrimPrefix(strings.TrimSpace(formula), "=")
	if strings.TrimSpace(text) == "" {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue, "empty formula")
	}

	ps := efp.ExcelParser()
	parsed := ps.Parse(text)

	tokens := make([]Token, 0, len(parsed)+2)
	tokens = append(tokens, Token{Type: TokenEquals, Value: "="})

	for _, tok := range parsed {
		switch tok.TType {
		case efp.TokenTypeWhitespace, efp.TokenTypeNoop:
			continue

		case efp.TokenTypeOperand:
			operand, err := operandToken(tok, ctx)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, operand)

		case efp.TokenTypeFunction:
			if tok.TSubType == efp.TokenSubTypeStop {
				tokens = append(tokens, Token{Type: TokenRightParen, Value: ")"})
				continue
			}
			name := strings.ToUpper(tok.TValue)
			for _, prefix := range functionPrefixes {
				name = strings.TrimPrefix(name, strings.ToUpper(prefix))
			}
			index := -1
			if ctx.Workbook != nil {
				index = ctx.Workbook.Functions().Index(name)
			}
			tokens = append(tokens,
				Token{Type: TokenFunction, Value: name, Function: index},
				Token{Type: TokenLeftParen, Value: "("})

		case efp.TokenTypeSubexpression:
			if tok.TSubType == efp.TokenSubTypeStart {
				tokens = append(tokens, Token{Type: TokenLeftParen, Value: "("})
			} else {
				tokens = append(tokens, Token{Type: TokenRightParen, Value: ")"})
			}

		case efp.TokenTypeArgument:
			tokens = append(tokens, Token{Type: TokenComma, Value: ","})

		case efp.TokenTypeOperatorPrefix:
			tokens = append(tokens, Token{Type: TokenUnaryPrefixOp, Value: tok.TValue})

		case efp.TokenTypeOperatorPostfix:
			tokens = append(tokens, Token{Type: TokenUnaryPostfixOp, Value: tok.TValue})

		case efp.TokenTypeOperatorInfix:
			switch tok.TSubType {
			case efp.TokenSubTypeIntersection, efp.TokenSubTypeUnion:
				return nil, NewSpreadsheetError(spreadsheet.ErrorCodeNull,
					fmt.Sprintf("%s operator is not supported", strings.ToLower(tok.TSubType)))
			}
			tokens = append(tokens, Token{Type: TokenBinaryOp, Value: tok.TValue})

		default:
			return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue,
				fmt.Sprintf("unexpected %q in formula", tok.TValue))
		}
	}

	tokens = append(tokens, Token{Type: TokenEOF})
	return tokens, nil
}

func operandToken(tok efp.Token, ctx ParseContext) (Token, error) {
	switch tok.TSubType {
	case efp.TokenSubTypeNumber:
		return Token{Type: TokenNumber, Value: tok.TValue}, nil
	case efp.TokenSubTypeText:
		return Token{Type: TokenString, Value: tok.TValue}, nil
	case efp.TokenSubTypeLogical:
		return Token{Type: TokenBoolean, Value: strings.ToUpper(tok.TValue)}, nil
	case efp.TokenSubTypeError:
		return Token{Type: TokenErrorLiteral, Value: strings.ToUpper(tok.TValue)}, nil
	case efp.TokenSubTypeRange:
		return referenceToken(tok.TValue, ctx)
	}
	return Token{}, NewSpreadsheetError(spreadsheet.ErrorCodeValue, fmt.Sprintf("unexpected operand %q", tok.TValue))
}

// referenceToken classifies a range operand as a cell, a range or a name.
func referenceToken(text string, ctx ParseContext) (Token, error) {
	switch strings.ToUpper(text) {
	case "TRUE", "FALSE":
		return Token{Type: TokenBoolean, Value: strings.ToUpper(text)}, nil
	}

	sheetPart, rest, err := spreadsheet.SplitSheetReference(text)
	if err != nil {
		return Token{}, NewSpreadsheetError(spreadsheet.ErrorCodeRef, err.Error())
	}

	book := ""
	if strings.HasPrefix(sheetPart, "[") {
		end := strings.Index(sheetPart, "]")
		if end < 0 {
			return Token{}, NewSpreadsheetError(spreadsheet.ErrorCodeRef, fmt.Sprintf("unclosed workbook name in %s", text))
		}
		book, sheetPart = sheetPart[1:end], sheetPart[end+1:]
	}

	ref, ok := parseArea(rest)
	if !ok {
		return nameToken(text, sheetPart, rest, ctx), nil
	}

	switch {
	case ref.Sheet == InvalidSheet:
		// beyond the grid
	case book != "":
		ref.Workbook = book
		ref.Sheet = InvalidSheet
		if ctx.Workbook != nil {
			if index, found := ctx.Workbook.ExternalSheetIndex(book, sheetPart); found {
				ref.Sheet = index
			}
		}
	case sheetPart == "":
		ref.Sheet = ctx.SheetIndex
	default:
		ref.Sheet = InvalidSheet
		if ctx.Workbook != nil {
			if index := ctx.Workbook.SheetIndex(sheetPart); index >= 0 {
				ref.Sheet = index
			}
		}
	}

	tokenType := TokenRange
	if ref.StartRow == ref.EndRow && ref.StartColumn == ref.EndColumn && !ref.WholeColumn {
		tokenType = TokenCell
	}
	return Token{Type: tokenType, Value: referenceText(book, sheetPart, rest), Ref: ref}, nil
}

// referenceText puts back the sheet quotes the tokenizer drops.
func referenceText(book, sheet, area string) string {
	switch {
	case book != "":
		return spreadsheet.QuoteSheetName("["+book+"]"+sheet) + "!" + area
	case sheet != "":
		return spreadsheet.QuoteSheetName(sheet) + "!" + area
	}
	return area
}

// nameToken resolves a defined name, optionally qualified by a sheet.
func nameToken(text, sheetPart, name string, ctx ParseContext) Token {
	tok := Token{Type: TokenName, Value: name}
	if ctx.Workbook == nil {
		return tok
	}
	scope := ctx.SheetIndex
	if sheetPart != "" {
		if scope = ctx.Workbook.SheetIndex(sheetPart); scope < 0 {
			tok.Value = text
			return tok
		}
	}
	tok.Name = ctx.Workbook.ResolveName(name, scope)
	return tok
}

// parseArea parses "A1", "$A$1:B2", "A:C" or "1:3". a reference whose
// shape is valid but lies beyond the grid parses as #REF!; text that is
// not shaped like a reference is reported as not ok.
func parseArea(text string) (Reference, bool) {
	first, second, isArea := strings.Cut(text, ":")
	if !isArea {
		row, col, valid, ok := parseCellPart(first)
		if !ok {
			return Reference{}, false
		}
		if !valid {
			return Reference{Sheet: InvalidSheet}, true
		}
		return Reference{StartRow: row, StartColumn: col, EndRow: row, EndColumn: col}, true
	}

	// whole columns
	if startCol, err := spreadsheet.ParseColumnName(first); err == nil {
		if endCol, err := spreadsheet.ParseColumnName(second); err == nil {
			return Reference{
				StartColumn: min(startCol, endCol),
				EndColumn:   max(startCol, endCol),
				EndRow:      spreadsheet.MaxRows - 1,
				WholeColumn: true,
			}, true
		}
	}

	// whole rows
	if startRow, err := spreadsheet.ParseRowNumber(first); err == nil {
		if endRow, err := spreadsheet.ParseRowNumber(second); err == nil {
			return Reference{
				StartRow:  min(startRow, endRow),
				EndRow:    max(startRow, endRow),
				EndColumn: spreadsheet.MaxColumns - 1,
			}, true
		}
	}

	startRow, startCol, startValid, ok1 := parseCellPart(first)
	endRow, endCol, endValid, ok2 := parseCellPart(second)
	if !ok1 || !ok2 {
		return Reference{}, false
	}
	if !startValid || !endValid {
		return Reference{Sheet: InvalidSheet}, true
	}

	// normalize the range so start is always less than or equal to end
	return Reference{
		StartRow:    min(startRow, endRow),
		StartColumn: min(startCol, endCol),
		EndRow:      max(startRow, endRow),
		EndColumn:   max(startCol, endCol),
	}, true
}

// parseCellPart parses one A1 cell. ok is false when the text is not a cell
// name at all (a column beyond the grid reads as a defined name); valid is
// false when the row lies beyond the grid.
func parseCellPart(text string) (row, col uint32, valid, ok bool) {
	if !spreadsheet.IsCellName(text) {
		return 0, 0, false, false
	}
	row, col, err := spreadsheet.ParseCellName(text)
	if err == nil {
		return row, col, true, true
	}
	letters := strings.TrimRight(text, "0123456789$")
	if _, colErr := spreadsheet.ParseColumnName(letters); colErr != nil {
		return 0, 0, false, false
	}
	return 0, 0, false, true
}
