package formula

import (
	"fmt"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// TokenType represents different types of tokens in formulas
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenEquals
	TokenNumber
	TokenString
	TokenBoolean
	TokenErrorLiteral
	TokenCell
	TokenRange
	TokenName
	TokenFunction
	TokenUnaryPrefixOp
	TokenUnaryPostfixOp
	TokenBinaryOp
	TokenComma
	TokenLeftParen
	TokenRightParen
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenEquals:
		return "Equals"
	case TokenNumber:
		return "Number"
	case TokenString:
		return "String"
	case TokenBoolean:
		return "Boolean"
	case TokenErrorLiteral:
		return "Error"
	case TokenCell:
		return "Cell"
	case TokenRange:
		return "Range"
	case TokenName:
		return "Name"
	case TokenFunction:
		return "Function"
	case TokenUnaryPrefixOp:
		return "Prefix"
	case TokenUnaryPostfixOp:
		return "Postfix"
	case TokenBinaryOp:
		return "Binary"
	case TokenComma:
		return "Comma"
	case TokenLeftParen:
		return "LeftParen"
	case TokenRightParen:
		return "RightParen"
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// BinaryOp represents binary operators in AST nodes
type BinaryOp int

const (
	BinOpAdd BinaryOp = iota
	BinOpSubtract
	BinOpMultiply
	BinOpDivide
	BinOpPower
	BinOpConcat
	BinOpEqual
	BinOpNotEqual
	BinOpLess
	BinOpLessEqual
	BinOpGreater
	BinOpGreaterEqual
)

// UnaryOp represents unary operators in AST nodes
type UnaryOp int

const (
	UnaryOpPlus UnaryOp = iota
	UnaryOpMinus
	UnaryOpPercent
)

// sheet indices with a special meaning inside a Reference.
const (
	// CurrentSheet resolves to the sheet of the cell being evaluated. used
	// by workbook-scoped defined names.
	CurrentSheet = -1
	// InvalidSheet marks a reference that evaluates to #REF!.
	InvalidSheet = -2
)

// Reference is a resolved cell or range reference with absolute,
// zero-based coordinates.
type Reference struct {
	Sheet       int    // sheet index, CurrentSheet or InvalidSheet
	Workbook    string // external workbook name, "" for this workbook
	StartRow    uint32
	StartColumn uint32
	EndRow      uint32
	EndColumn   uint32
	WholeColumn bool // rows run to the sheet's last row
}

// IsExternal reports whether the reference points into another workbook.
func (r Reference) IsExternal() bool {
	return r.Workbook != ""
}

func (r Reference) String() string {
	prefix := ""
	switch {
	case r.IsExternal():
		prefix = fmt.Sprintf("[%s]%d!", r.Workbook, r.Sheet)
	case r.Sheet == InvalidSheet:
		return spreadsheet.ErrorCodeRef.String()
	case r.Sheet != CurrentSheet:
		prefix = fmt.Sprintf("%d!", r.Sheet)
	}
	start := spreadsheet.CellName(r.StartRow, r.StartColumn)
	if r.StartRow == r.EndRow && r.StartColumn == r.EndColumn {
		return prefix + start
	}
	if r.WholeColumn {
		return prefix + spreadsheet.ColumnName(r.StartColumn) + ":" + spreadsheet.ColumnName(r.EndColumn)
	}
	return prefix + start + ":" + spreadsheet.CellName(r.EndRow, r.EndColumn)
}

// Token is one element of a tokenized formula. references, names and
// functions are resolved while tokenizing.
type Token struct {
	Type     TokenType
	Value    string
	Ref      Reference      // TokenCell, TokenRange
	Name     EvaluationName // TokenName, nil if the name is undefined
	Function int            // TokenFunction, index into the FunctionTable or -1
}

func (t Token) String() string {
	switch t.Type {
	case TokenCell, TokenRange:
		return fmt.Sprintf("%s(%s)", t.Type, t.Ref)
	case TokenEOF, TokenEquals, TokenLeftParen, TokenRightParen, TokenComma:
		return t.Type.String()
	}
	return fmt.Sprintf("%s(%s)", t.Type, t.Value)
}
