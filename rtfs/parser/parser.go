package parser

import (
	"fmt"
	"strconv"

	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// allowedHintNamespace is the only metadata namespace accepted on
// expression metadata (spec.md §6, "Execution hints... keys under the
// runtime.learning.* namespace; unknown namespaces are rejected").
const allowedHintNamespace = "runtime.learning."

// Parse parses a single top-level RTFS expression from src. Trailing
// non-whitespace/non-comment content after the form is rejected (spec.md
// §4.2).
func Parse(src string) (value.Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		t := p.peek()
		return nil, &ParseError{Message: "trailing garbage after top-level form", Span: value.Span{Line: t.line, Col: t.col}}
	}
	return expr, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	t := p.peek()
	if t.kind != k {
		return token{}, p.errf(t, "expected %s", what)
	}
	return p.advance(), nil
}

func (p *parser) errf(t token, format string, args ...any) error {
	return &ParseError{Message: fmt.Sprintf(format, args...), Span: value.Span{Line: t.line, Col: t.col}}
}

func (p *parser) parseExpr() (value.Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokMeta:
		return p.parseMetaExpr()
	case tokLParen:
		return p.parseForm()
	case tokLBracket:
		return p.parseVectorLiteral()
	case tokLBrace:
		return p.parseMapLiteral(false)
	case tokString:
		p.advance()
		return value.NewLiteral(value.String(t.text), spanOf(t), nil), nil
	case tokInt:
		p.advance()
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.errf(t, "invalid integer literal %q", t.text)
		}
		return value.NewLiteral(value.Int(n), spanOf(t), nil), nil
	case tokFloat:
		p.advance()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errf(t, "invalid float literal %q", t.text)
		}
		return value.NewLiteral(value.Float(f), spanOf(t), nil), nil
	case tokKeyword:
		p.advance()
		return value.NewLiteral(value.Keyword(t.text), spanOf(t), nil), nil
	case tokSymbol:
		p.advance()
		switch t.text {
		case "nil":
			return value.NewLiteral(value.Null(), spanOf(t), nil), nil
		case "true":
			return value.NewLiteral(value.Bool(true), spanOf(t), nil), nil
		case "false":
			return value.NewLiteral(value.Bool(false), spanOf(t), nil), nil
		default:
			return value.NewSymbol(t.text, spanOf(t), nil), nil
		}
	default:
		return nil, p.errf(t, "unexpected token")
	}
}

func spanOf(t token) value.Span {
	return value.Span{Start: t.start, End: t.end, Line: t.line, Col: t.col}
}

// parseMetaExpr handles ^{...} metadata attached to the following
// expression (must currently be a call form, per spec.md §4.3).
func (p *parser) parseMetaExpr() (value.Expr, error) {
	p.advance() // consume '^'
	meta, err := p.parseMapLiteralValue(true)
	if err != nil {
		return nil, err
	}
	inner, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return attachMeta(inner, meta)
}

// attachMeta rebuilds inner with meta attached. Only Call carries metadata
// in this implementation since it is the only expression whose metadata
// is observable as execution hints (spec.md §4.3).
func attachMeta(inner value.Expr, meta *value.Map) (value.Expr, error) {
	call, ok := inner.(value.Call)
	if !ok {
		return nil, &ParseError{Message: "metadata is only permitted on call expressions", Span: inner.Span()}
	}
	call.Base = value.NewBase(call.Span(), meta)
	return call, nil
}

func (p *parser) parseVectorLiteral() (value.Expr, error) {
	open := p.advance() // '['
	var items []value.Expr
	for p.peek().kind != tokRBracket {
		if p.peek().kind == tokEOF {
			return nil, p.errf(p.peek(), "unterminated vector literal")
		}
		it, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	close := p.advance()
	vals := make([]value.Value, 0, len(items))
	for _, it := range items {
		lit, ok := it.(value.Literal)
		if !ok {
			return nil, p.errf(open, "vector literals must contain only literal values")
		}
		vals = append(vals, lit.Value)
	}
	return value.NewLiteral(value.Vector(vals...), value.Span{Start: open.start, End: close.end, Line: open.line, Col: open.col}, nil), nil
}

// parseMapLiteral parses a {...} form appearing as an expression (a literal
// map value). isMeta marks an execution-hint metadata map, whose keys must
// lie in the runtime.learning.* namespace. ';' comments inside any map
// literal are rejected by the lexer.
func (p *parser) parseMapLiteral(isMeta bool) (value.Expr, error) {
	m, span, err := p.parseRawMap(isMeta)
	if err != nil {
		return nil, err
	}
	return value.NewLiteral(value.MapValue(m), span, nil), nil
}

func (p *parser) parseMapLiteralValue(isMeta bool) (*value.Map, error) {
	m, _, err := p.parseRawMap(isMeta)
	return m, err
}

func (p *parser) parseRawMap(isMeta bool) (*value.Map, value.Span, error) {
	open, err := p.expect(tokLBrace, "'{'")
	if err != nil {
		return nil, value.Span{}, err
	}
	var pairs [][2]value.Value
	for p.peek().kind != tokRBrace {
		if p.peek().kind == tokEOF {
			return nil, value.Span{}, p.errf(p.peek(), "unterminated map literal")
		}
		kt := p.peek()
		if kt.kind != tokKeyword {
			return nil, value.Span{}, p.errf(kt, "map keys must be keywords")
		}
		if isMeta {
			if !hasAllowedHintNamespace(kt.text) {
				return nil, value.Span{}, p.errf(kt, "unrecognized execution-hint namespace %q", kt.text)
			}
		}
		p.advance()
		key := value.Keyword(kt.text)
		valExpr, err := p.parseExpr()
		if err != nil {
			return nil, value.Span{}, err
		}
		lit, ok := valExpr.(value.Literal)
		if !ok {
			return nil, value.Span{}, p.errf(kt, "map values must be literals")
		}
		pairs = append(pairs, [2]value.Value{key, lit.Value})
	}
	closeTok := p.advance()
	return value.NewMap(pairs...), value.Span{Start: open.start, End: closeTok.end, Line: open.line, Col: open.col}, nil
}

func hasAllowedHintNamespace(key string) bool {
	if len(key) <= len(allowedHintNamespace) {
		return false
	}
	return key[:len(allowedHintNamespace)] == allowedHintNamespace
}

// parseForm parses "(" head args... ")" dispatching on head symbol to the
// closed set of special forms in spec.md §4.3, or to a generic Application.
func (p *parser) parseForm() (value.Expr, error) {
	open := p.advance() // '('
	if p.peek().kind == tokRParen {
		close := p.advance()
		return value.Do{Base: value.NewBase(spanRange(open, close), nil)}, nil
	}

	headTok := p.peek()
	if headTok.kind == tokSymbol {
		switch headTok.text {
		case "do":
			p.advance()
			return p.parseDo(open)
		case "if":
			p.advance()
			return p.parseIf(open)
		case "let":
			p.advance()
			return p.parseLet(open)
		case "fn":
			p.advance()
			return p.parseFn(open)
		case "call":
			p.advance()
			return p.parseCall(open)
		case "step":
			p.advance()
			return p.parseStep(open)
		case "step-if":
			p.advance()
			return p.parseStepIf(open)
		case "step-loop":
			p.advance()
			return p.parseStepLoop(open)
		case "step-parallel":
			p.advance()
			return p.parseStepParallel(open)
		case "get":
			p.advance()
			return p.parseGet(open)
		case "set!":
			p.advance()
			return p.parseSet(open)
		}
	}
	return p.parseApplication(open)
}

func spanRange(open, close token) value.Span {
	return value.Span{Start: open.start, End: close.end, Line: open.line, Col: open.col}
}

func (p *parser) parseExprList() ([]value.Expr, token, error) {
	var out []value.Expr
	for p.peek().kind != tokRParen {
		if p.peek().kind == tokEOF {
			return nil, token{}, p.errf(p.peek(), "unterminated form")
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, token{}, err
		}
		out = append(out, e)
	}
	close := p.advance()
	return out, close, nil
}

func (p *parser) parseDo(open token) (value.Expr, error) {
	exprs, close, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	return value.Do{Base: value.NewBase(spanRange(open, close), nil), Exprs: exprs}, nil
}

func (p *parser) parseIf(open token) (value.Expr, error) {
	test, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	var els value.Expr = value.NewLiteral(value.Null(), value.Span{}, nil)
	if p.peek().kind != tokRParen {
		els, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	close, err := p.expect(tokRParen, "')'")
	if err != nil {
		return nil, err
	}
	return value.If{Base: value.NewBase(spanRange(open, close), nil), Test: test, Then: then, Else: els}, nil
}

func (p *parser) parseLet(open token) (value.Expr, error) {
	if _, err := p.expect(tokLBracket, "'[' binding vector"); err != nil {
		return nil, err
	}
	var bindings []value.Binding
	for p.peek().kind != tokRBracket {
		nameTok, err := p.expect(tokSymbol, "binding symbol")
		if err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, value.Binding{Name: nameTok.text, Expr: e})
	}
	p.advance() // ']'
	body, close, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	return value.Let{Base: value.NewBase(spanRange(open, close), nil), Bindings: bindings, Body: body}, nil
}

func (p *parser) parseFn(open token) (value.Expr, error) {
	if _, err := p.expect(tokLBracket, "'[' parameter vector"); err != nil {
		return nil, err
	}
	var params []string
	for p.peek().kind != tokRBracket {
		nameTok, err := p.expect(tokSymbol, "parameter symbol")
		if err != nil {
			return nil, err
		}
		params = append(params, nameTok.text)
	}
	p.advance() // ']'
	body, close, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	return value.Fn{Base: value.NewBase(spanRange(open, close), nil), Params: params, Body: body}, nil
}

func (p *parser) parseCall(open token) (value.Expr, error) {
	capExpr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	args, close, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	return value.Call{Base: value.NewBase(spanRange(open, close), nil), Capability: capExpr, Args: args}, nil
}

func (p *parser) parseStep(open token) (value.Expr, error) {
	nameTok, err := p.expect(tokString, "step name string")
	if err != nil {
		return nil, err
	}
	body, close, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	return value.Step{Base: value.NewBase(spanRange(open, close), nil), Name: nameTok.text, Body: body}, nil
}

func (p *parser) parseStepIf(open token) (value.Expr, error) {
	nameTok, err := p.expect(tokString, "step name string")
	if err != nil {
		return nil, err
	}
	test, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	var elseExprs []value.Expr
	if p.peek().kind != tokRParen {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elseExprs = []value.Expr{e}
	}
	close, err := p.expect(tokRParen, "')'")
	if err != nil {
		return nil, err
	}
	return value.StepIf{
		Base: value.NewBase(spanRange(open, close), nil),
		Name: nameTok.text, Test: test,
		Then: []value.Expr{then}, Else: elseExprs,
	}, nil
}

func (p *parser) parseStepLoop(open token) (value.Expr, error) {
	nameTok, err := p.expect(tokString, "step name string")
	if err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, close, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	return value.StepLoop{Base: value.NewBase(spanRange(open, close), nil), Name: nameTok.text, Cond: cond, Body: body}, nil
}

func (p *parser) parseStepParallel(open token) (value.Expr, error) {
	var branches []value.Step
	for p.peek().kind != tokRParen {
		if p.peek().kind == tokEOF {
			return nil, p.errf(p.peek(), "unterminated step-parallel")
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		step, ok := e.(value.Step)
		if !ok {
			return nil, p.errf(p.peek(), "step-parallel branches must be step forms")
		}
		branches = append(branches, step)
	}
	close := p.advance()
	return value.StepParallel{Base: value.NewBase(spanRange(open, close), nil), Branches: branches, Merge: value.MergeKeepExisting}, nil
}

func (p *parser) parseGet(open token) (value.Expr, error) {
	key, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	close, err := p.expect(tokRParen, "')'")
	if err != nil {
		return nil, err
	}
	return value.Get{Base: value.NewBase(spanRange(open, close), nil), Key: key}, nil
}

func (p *parser) parseSet(open token) (value.Expr, error) {
	key, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	close, err := p.expect(tokRParen, "')'")
	if err != nil {
		return nil, err
	}
	return value.SetBang{Base: value.NewBase(spanRange(open, close), nil), Key: key, Value: val}, nil
}

func (p *parser) parseApplication(open token) (value.Expr, error) {
	head, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	args, close, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	return value.Application{Base: value.NewBase(spanRange(open, close), nil), Head: head, Args: args}, nil
}
