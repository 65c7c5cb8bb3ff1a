package formula

import (
	"fmt"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// Primitive is an intermediate value while a formula is evaluated.
// types:
//   - float64: numeric values (integers are converted to float64)
//   - string: text values
//   - bool: boolean values (TRUE/FALSE)
//   - nil: empty/null cells
//   - *SpreadsheetError: error values (#DIV/0!, #VALUE!, etc.)
//   - Range: a rectangular block of cells, only as a function argument
type Primitive any

// SpreadsheetError preserves error code for display in cells
type SpreadsheetError struct {
	ErrorCode spreadsheet.ErrorCode
	Message   string
}

func (e *SpreadsheetError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorCode.String()
}

func NewSpreadsheetError(code spreadsheet.ErrorCode, message string) *SpreadsheetError {
	if message == "" {
		message = code.String()
	}
	return &SpreadsheetError{
		ErrorCode: code,
		Message:   message,
	}
}

// checkForError returns the error if value is a *SpreadsheetError, nil otherwise
func checkForError(value Primitive) *SpreadsheetError {
	if err, ok := value.(*SpreadsheetError); ok {
		return err
	}
	return nil
}

// asValueError turns an error returned while evaluating into an error value
// so it can flow through operators and function arguments.
func asValueError(err error) *SpreadsheetError {
	if spreadsheetErr, ok := err.(*SpreadsheetError); ok {
		return spreadsheetErr
	}
	return NewSpreadsheetError(spreadsheet.ErrorCodeValue, err.Error())
}

// Value is the result of evaluating a formula. it is exactly one of
// NumberValue, BoolValue, StringValue or ErrorValue.
type Value interface {
	// CellType is the declared type a cell takes to hold the value.
	CellType() spreadsheet.CellType
	String() string
	isValue()
}

type NumberValue float64

func (NumberValue) CellType() spreadsheet.CellType { return spreadsheet.CellTypeNumeric }
func (v NumberValue) String() string               { return spreadsheet.FormatNumber(float64(v)) }
func (NumberValue) isValue()                       {}

type BoolValue bool

func (BoolValue) CellType() spreadsheet.CellType { return spreadsheet.CellTypeBoolean }
func (BoolValue) isValue()                       {}

func (v BoolValue) String() string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

type StringValue string

func (StringValue) CellType() spreadsheet.CellType { return spreadsheet.CellTypeString }
func (v StringValue) String() string               { return string(v) }
func (StringValue) isValue()                       {}

type ErrorValue struct {
	Code spreadsheet.ErrorCode
}

func (ErrorValue) CellType() spreadsheet.CellType { return spreadsheet.CellTypeError }
func (v ErrorValue) String() string               { return v.Code.String() }
func (ErrorValue) isValue()                       {}

// valueOf collapses a final formula result into a Value. an empty result is
// zero, and a range result is only meaningful when it is a single cell.
func valueOf(p Primitive) Value {
	switch v := p.(type) {
	case nil:
		return NumberValue(0)
	case float64:
		return NumberValue(v)
	case string:
		return StringValue(v)
	case bool:
		return BoolValue(v)
	case *SpreadsheetError:
		return ErrorValue{Code: v.ErrorCode}
	case Range:
		if single, ok := singleValue(v); ok {
			return valueOf(single)
		}
		return ErrorValue{Code: spreadsheet.ErrorCodeValue}
	default:
		return ErrorValue{Code: spreadsheet.ErrorCodeValue}
	}
}

// primitiveOf is the inverse of valueOf.
func primitiveOf(v Value) Primitive {
	switch v := v.(type) {
	case NumberValue:
		return float64(v)
	case StringValue:
		return string(v)
	case BoolValue:
		return bool(v)
	case ErrorValue:
		return NewSpreadsheetError(v.Code, "")
	default:
		return NewSpreadsheetError(spreadsheet.ErrorCodeValue, fmt.Sprintf("unknown value %T", v))
	}
}
