package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"loom/internal/domain"
)

// CalculatorTool evaluates arithmetic expressions deterministically.
// Supported: +, -, *, /, parentheses, unary minus, and sqrt(x).
// Everything else is rejected; the input is never handed to an interpreter.
type CalculatorTool struct{}

// NewCalculatorTool creates a calculator tool executor.
func NewCalculatorTool() *CalculatorTool {
	return &CalculatorTool{}
}

// Execute evaluates the 'expression' input parameter.
func (t *CalculatorTool) Execute(ctx context.Context, input map[string]any) (any, error) {
	raw, ok := input["expression"].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("expression is required: %w", domain.ErrInvalidExpression)
	}

	result, err := Evaluate(raw)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"expression": raw,
		"result":     result,
	}, nil
}

// Evaluate parses and evaluates an arithmetic expression.
// Returns domain.ErrInvalidExpression for malformed input, division by zero,
// and any evaluation that does not produce a finite number.
func Evaluate(expression string) (float64, error) {
	p := &exprParser{input: expression}
	result, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected %q at position %d: %w", p.input[p.pos], p.pos, domain.ErrInvalidExpression)
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("result is not a finite number: %w", domain.ErrInvalidExpression)
	}
	return result, nil
}

// exprParser is a recursive descent parser over the grammar
//
//	expr   = term   { ("+" | "-") term }
//	term   = unary  { ("*" | "/") unary }
//	unary  = "-" unary | primary
//	primary = number | "(" expr ")" | "sqrt" "(" expr ")"
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() (byte, bool) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		c, ok := p.peek()
		if !ok || (c != '+' && c != '-') {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if c == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		c, ok := p.peek()
		if !ok || (c != '*' && c != '/') {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if c == '*' {
			left *= right
		} else {
			if right == 0 {
				return 0, fmt.Errorf("division by zero: %w", domain.ErrInvalidExpression)
			}
			left /= right
		}
	}
}

func (p *exprParser) parseUnary() (float64, error) {
	c, ok := p.peek()
	if ok && c == '-' {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (float64, error) {
	c, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("unexpected end of expression: %w", domain.ErrInvalidExpression)
	}

	switch {
	case c == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if err := p.expect(')'); err != nil {
			return 0, err
		}
		return v, nil

	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()

	case unicode.IsLetter(rune(c)):
		return p.parseFunc()

	default:
		return 0, fmt.Errorf("unexpected %q at position %d: %w", c, p.pos, domain.ErrInvalidExpression)
	}
}

func (p *exprParser) expect(want byte) error {
	c, ok := p.peek()
	if !ok || c != want {
		return fmt.Errorf("expected %q at position %d: %w", want, p.pos, domain.ErrInvalidExpression)
	}
	p.pos++
	return nil
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
		p.pos++
	}
	lit := p.input[start:p.pos]
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", lit, domain.ErrInvalidExpression)
	}
	return v, nil
}

func (p *exprParser) parseFunc() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && unicode.IsLetter(rune(p.input[p.pos])) {
		p.pos++
	}
	name := p.input[start:p.pos]
	if name != "sqrt" {
		return 0, fmt.Errorf("unknown function %q: %w", name, domain.ErrInvalidExpression)
	}

	if err := p.expect('('); err != nil {
		return 0, err
	}
	arg, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if err := p.expect(')'); err != nil {
		return 0, err
	}

	if arg < 0 {
		return 0, fmt.Errorf("sqrt of negative number: %w", domain.ErrInvalidExpression)
	}
	return math.Sqrt(arg), nil
}
