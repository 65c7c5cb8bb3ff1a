package spreadsheet

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrorCode represents standard spreadsheet error codes following
// Excel conventions
type ErrorCode uint8

const (
	ErrorCodeNull  ErrorCode = 1 // #NULL! - no cells in common between ranges
	ErrorCodeDiv0  ErrorCode = 2 // #DIV/0! - division by zero
	ErrorCodeValue ErrorCode = 3 // #VALUE! - wrong type of argument or operand
	ErrorCodeRef   ErrorCode = 4 // #REF! - invalid cell reference
	ErrorCodeName  ErrorCode = 5 // #NAME? - unrecognized function name
	ErrorCodeNum   ErrorCode = 6 // #NUM! - number too large or small to be represented
	ErrorCodeNA    ErrorCode = 7 // #N/A - not enough arguments for function
	ErrorCodeOther ErrorCode = 8 // #ERROR! - all other errors
)

// errorCodeText is the display text of each error code, indexed by code.
var errorCodeText = [...]string{
	ErrorCodeNull:  "#NULL!",
	ErrorCodeDiv0:  "#DIV/0!",
	ErrorCodeValue: "#VALUE!",
	ErrorCodeRef:   "#REF!",
	ErrorCodeName:  "#NAME?",
	ErrorCodeNum:   "#NUM!",
	ErrorCodeNA:    "#N/A",
	ErrorCodeOther: "#ERROR!",
}

var errorCodesByText = func() map[string]ErrorCode {
	codes := make(map[string]ErrorCode, len(errorCodeText))
	for code, text := range errorCodeText {
		if text != "" {
			codes[text] = ErrorCode(code)
		}
	}
	return codes
}()

// String returns the text a cell displays for the error code.
func (c ErrorCode) String() string {
	if int(c) < len(errorCodeText) && errorCodeText[c] != "" {
		return errorCodeText[c]
	}
	return errorCodeText[ErrorCodeOther]
}

// ParseErrorCode is the inverse of ErrorCode.String. matching is case
// insensitive, the same way error literals are typed into formulas.
func ParseErrorCode(text string) (ErrorCode, bool) {
	code, ok := errorCodesByText[strings.ToUpper(strings.TrimSpace(text))]
	return code, ok
}

// CellType is the declared type of a cell. CellTypeNone is never stored; it
// is the sentinel for "no cell" and for a formula whose result is unknown.
type CellType uint8

const (
	CellTypeNone    CellType = 0
	CellTypeNumeric CellType = 1
	CellTypeString  CellType = 2
	CellTypeFormula CellType = 3
	CellTypeBlank   CellType = 4
	CellTypeBoolean CellType = 5
	CellTypeError   CellType = 6
)

func (t CellType) String() string {
	switch t {
	case CellTypeNone:
		return "none"
	case CellTypeNumeric:
		return "numeric"
	case CellTypeString:
		return "string"
	case CellTypeFormula:
		return "formula"
	case CellTypeBlank:
		return "blank"
	case CellTypeBoolean:
		return "boolean"
	case CellTypeError:
		return "error"
	}
	return fmt.Sprintf("celltype(%d)", uint8(t))
}

// CellAddress is the stable identity of a cell position across the whole
// workbook. worksheet IDs are never reused, so an address outlives sheet
// reordering and renaming.
type CellAddress struct {
	WorksheetID uint32
	Row         uint32
	Column      uint32
}

// RichText is the rich-text representation string values are written
// through. formatting runs are not modelled, only the text is persisted.
type RichText struct {
	text string
}

// NewRichText wraps plain text.
func NewRichText(text string) RichText {
	return RichText{text: text}
}

func (rt RichText) String() string {
	return rt.text
}

// Len returns the number of characters (not bytes) in the text.
func (rt RichText) Len() int {
	return utf8.RuneCountInString(rt.text)
}

// FormatNumber renders a number the way a general-format cell shows it.
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Cell is a live handle to one occupied position of a worksheet. handles are
// cheap to create and hold no values of their own: every accessor reads the
// worksheet's current state, so two handles for the same position always
// agree.
//
// typed getters panic with a FailedPrecondition *AppError when the declared
// type does not hold the requested kind of value. that is a programming
// error, values are never coerced.
type Cell struct {
	worksheet *Worksheet
	row       uint32
	col       uint32
}

func (c *Cell) Worksheet() *Worksheet {
	return c.worksheet
}

// Row returns the zero-based row index.
func (c *Cell) Row() uint32 {
	return c.row
}

// Column returns the zero-based column index.
func (c *Cell) Column() uint32 {
	return c.col
}

func (c *Cell) Address() CellAddress {
	return CellAddress{WorksheetID: c.worksheet.ID(), Row: c.row, Column: c.col}
}

// Reference returns the A1-style reference of the cell, without sheet name.
func (c *Cell) Reference() string {
	return CellName(c.row, c.col)
}

// Type returns the declared type. a handle whose position has since been
// removed reports CellTypeNone.
func (c *Cell) Type() CellType {
	return c.worksheet.typeAt(c.row, c.col)
}

// CachedFormulaResultType returns the type of the last result written to a
// formula cell, or CellTypeNone if it was never evaluated.
func (c *Cell) CachedFormulaResultType() CellType {
	if t := c.Type(); t != CellTypeFormula {
		panic(NewApplicationError(FailedPrecondition,
			fmt.Sprintf("only formula cells have cached results, cell is %s", t)))
	}
	return c.worksheet.resultTypeAt(c.row, c.col)
}

// CellFormula returns the formula text without the leading '='.
func (c *Cell) CellFormula() string {
	if t := c.Type(); t != CellTypeFormula {
		panic(NewTypeMismatchError("formula", t))
	}
	return c.worksheet.formulaAt(c.row, c.col)
}

func (c *Cell) NumericCellValue() float64 {
	switch t := c.Type(); t {
	case CellTypeNumeric:
		return c.worksheet.numberAt(c.row, c.col)
	case CellTypeBlank:
		return 0
	case CellTypeFormula:
		switch rt := c.worksheet.resultTypeAt(c.row, c.col); rt {
		case CellTypeNumeric:
			return c.worksheet.resultNumberAt(c.row, c.col)
		case CellTypeNone:
			return 0
		default:
			panic(NewTypeMismatchError("numeric", rt))
		}
	default:
		panic(NewTypeMismatchError("numeric", t))
	}
}

func (c *Cell) BooleanCellValue() bool {
	switch t := c.Type(); t {
	case CellTypeBoolean:
		return c.worksheet.numberAt(c.row, c.col) != 0
	case CellTypeBlank:
		return false
	case CellTypeFormula:
		switch rt := c.worksheet.resultTypeAt(c.row, c.col); rt {
		case CellTypeBoolean:
			return c.worksheet.resultNumberAt(c.row, c.col) != 0
		case CellTypeNone:
			return false
		default:
			panic(NewTypeMismatchError("boolean", rt))
		}
	default:
		panic(NewTypeMismatchError("boolean", t))
	}
}

func (c *Cell) StringCellValue() string {
	switch t := c.Type(); t {
	case CellTypeString:
		return c.worksheet.stringAt(c.row, c.col)
	case CellTypeBlank:
		return ""
	case CellTypeFormula:
		switch rt := c.worksheet.resultTypeAt(c.row, c.col); rt {
		case CellTypeString:
			return c.worksheet.resultStringAt(c.row, c.col)
		case CellTypeNone:
			return ""
		default:
			panic(NewTypeMismatchError("string", rt))
		}
	default:
		panic(NewTypeMismatchError("string", t))
	}
}

func (c *Cell) RichStringCellValue() RichText {
	return NewRichText(c.StringCellValue())
}

func (c *Cell) ErrorCellValue() ErrorCode {
	switch t := c.Type(); t {
	case CellTypeError:
		return ErrorCode(c.worksheet.numberAt(c.row, c.col))
	case CellTypeBlank:
		return 0
	case CellTypeFormula:
		if rt := c.worksheet.resultTypeAt(c.row, c.col); rt != CellTypeError {
			panic(NewTypeMismatchError("error", rt))
		}
		return ErrorCode(c.worksheet.resultNumberAt(c.row, c.col))
	default:
		panic(NewTypeMismatchError("error", t))
	}
}

// SetNumericValue stores a number. on a formula cell the formula is kept and
// only the cached result changes.
func (c *Cell) SetNumericValue(v float64) {
	if c.Type() == CellTypeFormula {
		c.worksheet.setResult(c.row, c.col, CellTypeNumeric, v, "")
		return
	}
	c.worksheet.setValue(c.row, c.col, CellTypeNumeric, v, "")
}

// SetBooleanValue stores a boolean. on a formula cell the formula is kept and
// only the cached result changes.
func (c *Cell) SetBooleanValue(v bool) {
	n := 0.0
	if v {
		n = 1
	}
	if c.Type() == CellTypeFormula {
		c.worksheet.setResult(c.row, c.col, CellTypeBoolean, n, "")
		return
	}
	c.worksheet.setValue(c.row, c.col, CellTypeBoolean, n, "")
}

func (c *Cell) SetStringValue(v string) {
	c.SetRichStringValue(NewRichText(v))
}

// SetRichStringValue stores text. on a formula cell the formula is kept and
// only the cached result changes.
func (c *Cell) SetRichStringValue(v RichText) {
	if c.Type() == CellTypeFormula {
		c.worksheet.setResult(c.row, c.col, CellTypeString, 0, v.String())
		return
	}
	c.worksheet.setValue(c.row, c.col, CellTypeString, 0, v.String())
}

// SetErrorValue stores an error code. on a formula cell the formula is kept
// and only the cached result changes.
func (c *Cell) SetErrorValue(code ErrorCode) {
	if c.Type() == CellTypeFormula {
		c.worksheet.setResult(c.row, c.col, CellTypeError, float64(code), "")
		return
	}
	c.worksheet.setValue(c.row, c.col, CellTypeError, float64(code), "")
}

// SetBlank clears the value (and formula) but keeps the cell occupied.
func (c *Cell) SetBlank() {
	c.worksheet.setValue(c.row, c.col, CellTypeBlank, 0, "")
}

// SetCellFormula turns the cell into a formula cell. a value the cell held
// before is kept as the cached result until the formula is evaluated.
func (c *Cell) SetCellFormula(text string) error {
	text = strings.TrimPrefix(strings.TrimSpace(text), "=")
	if text == "" {
		return NewApplicationError(InvalidArgument, "formula must not be empty")
	}

	cur := c.Type()
	resultType, num, str := CellTypeNone, 0.0, ""
	switch cur {
	case CellTypeNumeric, CellTypeBoolean, CellTypeError:
		resultType, num = cur, c.worksheet.numberAt(c.row, c.col)
	case CellTypeString:
		resultType, str = cur, c.worksheet.stringAt(c.row, c.col)
	case CellTypeFormula:
		resultType = c.worksheet.resultTypeAt(c.row, c.col)
		num = c.worksheet.resultNumberAt(c.row, c.col)
		str = c.worksheet.resultStringAt(c.row, c.col)
	}

	c.worksheet.setFormula(c.row, c.col, text)
	c.worksheet.setResult(c.row, c.col, resultType, num, str)
	return nil
}

// SetCellType changes the declared type of the cell, converting the current
// value where possible. converting a formula cell drops the formula and
// starts from its cached result. CellTypeFormula and CellTypeNone cannot be
// set this way; use SetCellFormula.
func (c *Cell) SetCellType(t CellType) error {
	switch t {
	case CellTypeNone, CellTypeFormula:
		return NewApplicationError(InvalidArgument, fmt.Sprintf("cannot set cell type to %s", t))
	}

	cur := c.Type()
	if cur == t {
		return nil
	}

	src, num, str := cur, 0.0, ""
	switch cur {
	case CellTypeNumeric, CellTypeBoolean, CellTypeError:
		num = c.worksheet.numberAt(c.row, c.col)
	case CellTypeString:
		str = c.worksheet.stringAt(c.row, c.col)
	case CellTypeFormula:
		src = c.worksheet.resultTypeAt(c.row, c.col)
		num = c.worksheet.resultNumberAt(c.row, c.col)
		str = c.worksheet.resultStringAt(c.row, c.col)
	}

	switch t {
	case CellTypeBlank:
		c.worksheet.setValue(c.row, c.col, CellTypeBlank, 0, "")

	case CellTypeNumeric:
		var n float64
		switch src {
		case CellTypeNumeric, CellTypeBoolean:
			n = num
		case CellTypeString:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
			if err != nil {
				return NewApplicationError(InvalidArgument,
					fmt.Sprintf("cannot convert %q to a number", str))
			}
			n = parsed
		case CellTypeError:
			return NewApplicationError(InvalidArgument, "cannot convert an error cell to a number")
		}
		c.worksheet.setValue(c.row, c.col, CellTypeNumeric, n, "")

	case CellTypeString:
		var s string
		switch src {
		case CellTypeNumeric:
			s = FormatNumber(num)
		case CellTypeBoolean:
			s = "FALSE"
			if num != 0 {
				s = "TRUE"
			}
		case CellTypeString:
			s = str
		case CellTypeError:
			s = ErrorCode(num).String()
		}
		c.worksheet.setValue(c.row, c.col, CellTypeString, 0, s)

	case CellTypeBoolean:
		var b float64
		switch src {
		case CellTypeNumeric, CellTypeBoolean:
			if num != 0 {
				b = 1
			}
		case CellTypeString:
			switch strings.ToUpper(strings.TrimSpace(str)) {
			case "TRUE":
				b = 1
			case "FALSE":
			default:
				return NewApplicationError(InvalidArgument,
					fmt.Sprintf("cannot convert %q to a boolean", str))
			}
		case CellTypeError:
			return NewApplicationError(InvalidArgument, "cannot convert an error cell to a boolean")
		}
		c.worksheet.setValue(c.row, c.col, CellTypeBoolean, b, "")

	case CellTypeError:
		code := ErrorCodeNA
		switch src {
		case CellTypeError:
			code = ErrorCode(num)
		case CellTypeString:
			parsed, ok := ParseErrorCode(str)
			if !ok {
				return NewApplicationError(InvalidArgument,
					fmt.Sprintf("cannot convert %q to an error", str))
			}
			code = parsed
		case CellTypeNumeric, CellTypeBoolean:
			return NewApplicationError(InvalidArgument,
				fmt.Sprintf("cannot convert a %s cell to an error", src))
		}
		c.worksheet.setValue(c.row, c.col, CellTypeError, float64(code), "")

	default:
		return NewApplicationError(InvalidArgument, fmt.Sprintf("unknown cell type %s", t))
	}
	return nil
}

func (c *Cell) String() string {
	return fmt.Sprintf("%s!%s", c.worksheet.Name(), c.Reference())
}
