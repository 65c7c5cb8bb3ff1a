package formula

import (
	"fmt"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// Parser parses tokens into an AST
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a new parser over a token stream from Tokenize
func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens: tokens,
		pos:    0,
	}
}

// Parse parses the tokens into an AST
func (p *Parser) Parse() (ASTNode, error) {
	if len(p.tokens) == 0 {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue, "no tokens to parse")
	}

	// expect and skip the equals prefix
	if p.tokens[p.pos].Type != TokenEquals {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue, "formula must start with '='")
	}
	p.pos++

	node, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	// ensure we've consumed all tokens except EOF
	if p.pos < len(p.tokens) && p.tokens[p.pos].Type != TokenEOF {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue,
			fmt.Sprintf("unexpected token after expression: %s", p.tokens[p.pos]))
	}

	return node, nil
}

// parseComparison handles comparison operators (lowest precedence)
func (p *Parser) parseComparison() (ASTNode, error) {
	left, err := p.parseConcatenation()
	if err != nil {
		return nil, err
	}

	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		if tok.Type != TokenBinaryOp {
			break
		}

		var op BinaryOp
		switch tok.Value {
		case "=":
			op = BinOpEqual
		case "<>":
			op = BinOpNotEqual
		case "<":
			op = BinOpLess
		case "<=":
			op = BinOpLessEqual
		case ">":
			op = BinOpGreater
		case ">=":
			op = BinOpGreaterEqual
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parseConcatenation()
		if err != nil {
			return nil, err
		}

		left = &BinaryOpNode{Op: op, Left: left, Right: right}
	}

	return left, nil
}

// parseConcatenation handles string concatenation operator
func (p *Parser) parseConcatenation() (ASTNode, error) {
	left, err := p.parseAddition()
	if err != nil {
		return nil, err
	}

	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		if tok.Type != TokenBinaryOp || tok.Value != "&" {
			break
		}

		p.pos++
		right, err := p.parseAddition()
		if err != nil {
			return nil, err
		}

		left = &BinaryOpNode{Op: BinOpConcat, Left: left, Right: right}
	}

	return left, nil
}

// parseAddition handles addition and subtraction
func (p *Parser) parseAddition() (ASTNode, error) {
	left, err := p.parseMultiplication()
	if err != nil {
		return nil, err
	}

	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		if tok.Type != TokenBinaryOp {
			break
		}

		var op BinaryOp
		switch tok.Value {
		case "+":
			op = BinOpAdd
		case "-":
			op = BinOpSubtract
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parseMultiplication()
		if err != nil {
			return nil, err
		}

		left = &BinaryOpNode{Op: op, Left: left, Right: right}
	}

	return left, nil
}

// parseMultiplication handles multiplication and division
func (p *Parser) parseMultiplication() (ASTNode, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}

	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		if tok.Type != TokenBinaryOp {
			break
		}

		var op BinaryOp
		switch tok.Value {
		case "*":
			op = BinOpMultiply
		case "/":
			op = BinOpDivide
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}

		left = &BinaryOpNode{Op: op, Left: left, Right: right}
	}

	return left, nil
}

// parsePower handles exponentiation. spreadsheets evaluate 2^3^2 left to
// right, unlike most languages.
func (p *Parser) parsePower() (ASTNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.pos < len(p.tokens) && p.tokens[p.pos].Type == TokenBinaryOp && p.tokens[p.pos].Value == "^" {
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		left = &BinaryOpNode{Op: BinOpPower, Left: left, Right: right}
	}

	return left, nil
}

// parseUnary handles unary operators
func (p *Parser) parseUnary() (ASTNode, error) {
	if p.pos >= len(p.tokens) {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue, "unexpected end of expression")
	}

	tok := p.tokens[p.pos]
	if tok.Type != TokenUnaryPrefixOp {
		return p.parsePostfix()
	}

	var op UnaryOp
	switch tok.Value {
	case "+":
		op = UnaryOpPlus
	case "-":
		op = UnaryOpMinus
	default:
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue, fmt.Sprintf("unknown prefix operator: %s", tok.Value))
	}

	p.pos++
	operand, err := p.parseUnary() // recurse for chained unary operators
	if err != nil {
		return nil, err
	}

	return &UnaryOpNode{Op: op, Operand: operand}, nil
}

// parsePostfix handles postfix operators (percent)
func (p *Parser) parsePostfix() (ASTNode, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.pos < len(p.tokens) && p.tokens[p.pos].Type == TokenUnaryPostfixOp && p.tokens[p.pos].Value == "%" {
		p.pos++
		node = &UnaryOpNode{Op: UnaryOpPercent, Operand: node}
	}

	return node, nil
}

// parsePrimary handles primary expressions (literals, references,
// functions, parentheses)
func (p *Parser) parsePrimary() (ASTNode, error) {
	if p.pos >= len(p.tokens) {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue, "unexpected end of expression")
	}

	tok := p.tokens[p.pos]

	switch tok.Type {
	case TokenNumber:
		p.pos++
		val, err := parseNumberLiteral(tok.Value)
		if err != nil {
			return nil, err
		}
		return &NumberNode{Value: val}, nil

	case TokenString:
		p.pos++
		return &StringNode{Value: tok.Value}, nil

	case TokenBoolean:
		p.pos++
		return &BooleanNode{Value: tok.Value == "TRUE"}, nil

	case TokenErrorLiteral:
		p.pos++
		code, ok := spreadsheet.ParseErrorCode(tok.Value)
		if !ok {
			return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue, fmt.Sprintf("unknown error literal: %s", tok.Value))
		}
		return &ErrorNode{Code: code}, nil

	case TokenCell:
		p.pos++
		return &CellRefNode{Ref: tok.Ref}, nil

	case TokenRange:
		p.pos++
		return &RangeNode{Ref: tok.Ref}, nil

	case TokenName:
		p.pos++
		return &NameNode{Name: tok.Value, Definition: tok.Name}, nil

	case TokenFunction:
		return p.parseFunctionCall()

	case TokenLeftParen:
		p.pos++
		node, err := p.parseComparison()
		if err != nil {
			return nil, err
		}

		if p.pos >= len(p.tokens) || p.tokens[p.pos].Type != TokenRightParen {
			return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue, "expected closing parenthesis")
		}
		p.pos++

		return node, nil

	default:
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue, fmt.Sprintf("unexpected token: %s", tok))
	}
}

// parseFunctionCall parses a function call
func (p *Parser) parseFunctionCall() (ASTNode, error) {
	funcTok := p.tokens[p.pos]
	p.pos++

	// expect opening parenthesis
	if p.pos >= len(p.tokens) || p.tokens[p.pos].Type != TokenLeftParen {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue, "expected '(' after function name")
	}
	p.pos++

	node := &FunctionCallNode{Name: funcTok.Value, Index: funcTok.Function, Args: []ASTNode{}}

	// check for empty argument list
	if p.pos < len(p.tokens) && p.tokens[p.pos].Type == TokenRightParen {
		p.pos++
		return node, nil
	}

	for {
		arg, err := p.parseArgument()
		if err != nil {
			return nil, err
		}
		node.Args = append(node.Args, arg)

		if p.pos >= len(p.tokens) {
			return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue, "unexpected end in function arguments")
		}

		if p.tokens[p.pos].Type == TokenRightParen {
			p.pos++
			break
		}

		if p.tokens[p.pos].Type != TokenComma {
			return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue, "expected ',' or ')' in function arguments")
		}
		p.pos++
	}

	return node, nil
}

// parseArgument parses one function argument. an omitted argument, as in
// IF(A1,,2), is empty.
func (p *Parser) parseArgument() (ASTNode, error) {
	if p.pos < len(p.tokens) {
		switch p.tokens[p.pos].Type {
		case TokenComma, TokenRightParen:
			return &emptyNode{}, nil
		}
	}
	return p.parseComparison()
}

// emptyNode is an omitted function argument
type emptyNode struct{}

func (n *emptyNode) Eval(ctx *evalContext) (Primitive, error) {
	return nil, nil
}

func (n *emptyNode) ToString() string {
	return ""
}

// Parse tokenizes and parses formula text in one step.
func Parse(formula string, ctx ParseContext) (ASTNode, error) {
	tokens, err := Tokenize(formula, ctx)
	if err != nil {
		return nil, err
	}
	return NewParser(tokens).Parse()
}
