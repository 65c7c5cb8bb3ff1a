package formula

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// ASTNode is one node of a parsed formula. evaluation errors are returned
// as *SpreadsheetError; operators and functions turn them into values.
type ASTNode interface {
	Eval(ctx *evalContext) (Primitive, error)
	ToString() string
}

// StringNode represents a string literal
type StringNode struct {
	Value string
}

func (n *StringNode) Eval(ctx *evalContext) (Primitive, error) {
	return n.Value, nil
}

func (n *StringNode) ToString() string {
	// escape quotes in string
	escaped := strings.ReplaceAll(n.Value, "\"", "\"\"")
	return fmt.Sprintf("\"%s\"", escaped)
}

// NumberNode represents a numeric literal
type NumberNode struct {
	Value float64
}

func (n *NumberNode) Eval(ctx *evalContext) (Primitive, error) {
	return n.Value, nil
}

func (n *NumberNode) ToString() string {
	return spreadsheet.FormatNumber(n.Value)
}

// BooleanNode represents a boolean literal
type BooleanNode struct {
	Value bool
}

func (n *BooleanNode) Eval(ctx *evalContext) (Primitive, error) {
	return n.Value, nil
}

func (n *BooleanNode) ToString() string {
	return BoolValue(n.Value).String()
}

// ErrorNode represents an error literal such as #N/A
type ErrorNode struct {
	Code spreadsheet.ErrorCode
}

func (n *ErrorNode) Eval(ctx *evalContext) (Primitive, error) {
	return NewSpreadsheetError(n.Code, ""), nil
}

func (n *ErrorNode) ToString() string {
	return n.Code.String()
}

// CellRefNode represents a single cell reference
type CellRefNode struct {
	Ref Reference
}

func (n *CellRefNode) Eval(ctx *evalContext) (Primitive, error) {
	sheetIndex, err := ctx.sheetFor(n.Ref)
	if err != nil {
		return nil, err
	}
	return ctx.cellValue(sheetIndex, n.Ref.StartRow, n.Ref.StartColumn, true), nil
}

func (n *CellRefNode) ToString() string {
	return "REF(" + n.Ref.String() + ")"
}

// RangeNode represents a range of cells
type RangeNode struct {
	Ref Reference
}

func (n *RangeNode) Eval(ctx *evalContext) (Primitive, error) {
	sheetIndex, err := ctx.sheetFor(n.Ref)
	if err != nil {
		return nil, err
	}
	return ctx.rangeOf(sheetIndex, n.Ref)
}

func (n *RangeNode) ToString() string {
	return "RANGE(" + n.Ref.String() + ")"
}

// NameNode represents a defined name
type NameNode struct {
	Name       string
	Definition EvaluationName // nil when the name is not defined
}

func (n *NameNode) Eval(ctx *evalContext) (Primitive, error) {
	if n.Definition == nil {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeName, fmt.Sprintf("Named range '%s' not found", n.Name))
	}
	return ctx.evalName(n.Definition)
}

func (n *NameNode) ToString() string {
	return n.Name
}

// BinaryOpNode represents a binary operation
type BinaryOpNode struct {
	Op    BinaryOp
	Left  ASTNode
	Right ASTNode
}

func (n *BinaryOpNode) Eval(ctx *evalContext) (Primitive, error) {
	// errors from evaluation are converted to error values
	leftVal, err := n.Left.Eval(ctx)
	if err != nil {
		leftVal = asValueError(err)
	}
	rightVal, err := n.Right.Eval(ctx)
	if err != nil {
		rightVal = asValueError(err)
	}

	leftVal, rightVal = scalar(leftVal), scalar(rightVal)

	// propagate errors
	if err, ok := leftVal.(*SpreadsheetError); ok {
		return err, nil
	}
	if err, ok := rightVal.(*SpreadsheetError); ok {
		return err, nil
	}

	switch n.Op {
	case BinOpConcat:
		return toString(leftVal) + toString(rightVal), nil
	case BinOpEqual:
		return comparePrimitives(leftVal, rightVal) == 0, nil
	case BinOpNotEqual:
		return comparePrimitives(leftVal, rightVal) != 0, nil
	case BinOpLess:
		return comparePrimitives(leftVal, rightVal) < 0, nil
	case BinOpLessEqual:
		return comparePrimitives(leftVal, rightVal) <= 0, nil
	case BinOpGreater:
		return comparePrimitives(leftVal, rightVal) > 0, nil
	case BinOpGreaterEqual:
		return comparePrimitives(leftVal, rightVal) >= 0, nil
	}

	leftNum, leftOk := toNumber(leftVal)
	rightNum, rightOk := toNumber(rightVal)
	if !leftOk || !rightOk {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue,
			fmt.Sprintf("%s requires numeric values", n.opName()))
	}

	var result float64
	switch n.Op {
	case BinOpAdd:
		result = leftNum + rightNum
	case BinOpSubtract:
		result = leftNum - rightNum
	case BinOpMultiply:
		result = leftNum * rightNum
	case BinOpDivide:
		if rightNum == 0 {
			return nil, NewSpreadsheetError(spreadsheet.ErrorCodeDiv0, "Division by zero")
		}
		result = leftNum / rightNum
	case BinOpPower:
		if leftNum == 0 && rightNum < 0 {
			return nil, NewSpreadsheetError(spreadsheet.ErrorCodeDiv0, "Division by zero")
		}
		result = math.Pow(leftNum, rightNum)
	default:
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue, "Unknown operator")
	}

	if math.IsNaN(result) || math.IsInf(result, 0) {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeNum, "Result is not a finite number")
	}
	return result, nil
}

func (n *BinaryOpNode) opName() string {
	switch n.Op {
	case BinOpAdd:
		return "Addition"
	case BinOpSubtract:
		return "Subtraction"
	case BinOpMultiply:
		return "Multiplication"
	case BinOpDivide:
		return "Division"
	case BinOpPower:
		return "Power"
	}
	return "Operator"
}

func (n *BinaryOpNode) ToString() string {
	opStr := ""
	switch n.Op {
	case BinOpAdd:
		opStr = "+"
	case BinOpSubtract:
		opStr = "-"
	case BinOpMultiply:
		opStr = "*"
	case BinOpDivide:
		opStr = "/"
	case BinOpPower:
		opStr = "^"
	case BinOpConcat:
		opStr = "&"
	case BinOpEqual:
		opStr = "="
	case BinOpNotEqual:
		opStr = "<>"
	case BinOpLess:
		opStr = "<"
	case BinOpLessEqual:
		opStr = "<="
	case BinOpGreater:
		opStr = ">"
	case BinOpGreaterEqual:
		opStr = ">="
	}
	return fmt.Sprintf("(%s%s%s)", n.Left.ToString(), opStr, n.Right.ToString())
}

// UnaryOpNode represents a unary operation
type UnaryOpNode struct {
	Op      UnaryOp
	Operand ASTNode
}

func (n *UnaryOpNode) Eval(ctx *evalContext) (Primitive, error) {
	val, err := n.Operand.Eval(ctx)
	if err != nil {
		val = asValueError(err)
	}
	val = scalar(val)

	// check for error in value and propagate it
	if err, ok := val.(*SpreadsheetError); ok {
		return err, nil
	}

	num, ok := toNumber(val)
	if !ok {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue, "Unary operator requires a numeric value")
	}

	switch n.Op {
	case UnaryOpPlus:
		return num, nil
	case UnaryOpMinus:
		return -num, nil
	case UnaryOpPercent:
		return num / 100.0, nil
	default:
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue, "Unknown unary operator")
	}
}

func (n *UnaryOpNode) ToString() string {
	switch n.Op {
	case UnaryOpPlus:
		return "+" + n.Operand.ToString()
	case UnaryOpMinus:
		return "-" + n.Operand.ToString()
	}
	return fmt.Sprintf("(%s%%)", n.Operand.ToString())
}

// FunctionCallNode represents a function call
type FunctionCallNode struct {
	Name  string
	Index int // index into the FunctionTable, -1 if unknown
	Args  []ASTNode
}

func (n *FunctionCallNode) Eval(ctx *evalContext) (Primitive, error) {
	if n.Index < 0 {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeName, fmt.Sprintf("Unknown function: %s", n.Name))
	}

	// functions decide how to handle error values
	args := make([]Primitive, len(n.Args))
	for i, argNode := range n.Args {
		argVal, err := argNode.Eval(ctx)
		if err != nil {
			argVal = asValueError(err)
		}
		args[i] = argVal
	}

	result, err := ctx.call(n.Index, args)
	if err != nil {
		return nil, asValueError(err)
	}
	return result, nil
}

func (n *FunctionCallNode) ToString() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.ToString()
	}
	return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ","))
}

// scalar collapses a range operand to its single value; a larger range is
// #VALUE! outside a function argument.
func scalar(value Primitive) Primitive {
	r, ok := value.(Range)
	if !ok {
		return value
	}
	if single, ok := singleValue(r); ok {
		return single
	}
	return NewSpreadsheetError(spreadsheet.ErrorCodeValue, "Range used where a single value is expected")
}

// typeRank orders values of different types: numbers sort before text,
// text before booleans.
func typeRank(value Primitive) int {
	switch value.(type) {
	case float64:
		return 0
	case string:
		return 1
	case bool:
		return 2
	}
	return 3
}

// comparePrimitives compares two primitive values. returns -1 if left < right,
// 0 if equal, 1 if left > right. an empty value compares as the zero value
// of the other side's type.
func comparePrimitives(left, right Primitive) int {
	if left == nil && right == nil {
		return 0
	}
	if left == nil {
		left = zeroLike(right)
	}
	if right == nil {
		right = zeroLike(left)
	}

	if lr, rr := typeRank(left), typeRank(right); lr != rr {
		if lr < rr {
			return -1
		}
		return 1
	}

	switch l := left.(type) {
	case float64:
		r := right.(float64)
		switch {
		case l < r:
			return -1
		case l > r:
			return 1
		}
		return 0
	case bool:
		r := right.(bool)
		switch {
		case l == r:
			return 0
		case !l:
			return -1
		}
		return 1
	}

	// text compares case-insensitively
	return strings.Compare(strings.ToUpper(toString(left)), strings.ToUpper(toString(right)))
}

func zeroLike(value Primitive) Primitive {
	switch value.(type) {
	case string:
		return ""
	case bool:
		return false
	}
	return 0.0
}

// parseNumberLiteral parses a number token; efp keeps exponents in the text.
func parseNumberLiteral(text string) (float64, error) {
	val, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, NewSpreadsheetError(spreadsheet.ErrorCodeValue, fmt.Sprintf("invalid number: %s", text))
	}
	return val, nil
}
