// Copyright (c) 2024 The Tuplisp Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.
package ast

import (
	"strconv"

	"github.com/pkg/errors"
)

// Parser is a recursive-descent parser over the s-expression grammar of
// spec §6. It is an external collaborator to the compilation pipeline: the
// pipeline consumes whatever *Prog it produces and never looks back at
// tokens or source text (spec §1 "OUT OF SCOPE").
type Parser struct {
	toks []Token
	pos  int
}

func NewParser(src string) *Parser {
	return &Parser{toks: Tokenize(src)}
}

func (p *Parser) peek() Token  { return p.toks[p.pos] }
func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if t.Kind != TokEOF {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k TokenKind) (Token, error) {
	t := p.peek()
	if t.Kind != k {
		return t, errors.Errorf("parse error at %d: expected %s, got %s %q", t.Pos, k, t.Kind, t.Text)
	}
	return p.advance(), nil
}

// ParseProgram parses a full source file: zero or more (define ...) forms
// followed by one trailing program expression (spec §6).
func ParseProgram(src string) (*Prog, error) {
	p := NewParser(src)
	prog := &Prog{}

	var forms []Node
	for p.peek().Kind != TokEOF {
		form, err := p.parseForm()
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
	if len(forms) == 0 {
		return nil, errors.New("parse error: empty program")
	}

	for _, f := range forms[:len(forms)-1] {
		def, ok := f.(*Define)
		if !ok {
			return nil, errors.Errorf("parse error: only the last top-level form may be a non-define expression, found %s", String(f))
		}
		prog.Defines = append(prog.Defines, def)
	}
	prog.Body = forms[len(forms)-1]
	if def, ok := prog.Body.(*Define); ok {
		return nil, errors.Errorf("parse error: program must end in an expression, not a definition (%s)", def.Name)
	}
	return prog, nil
}

func (p *Parser) parseForm() (Node, error) {
	t := p.peek()
	switch t.Kind {
	case TokAtom:
		return p.parseAtom()
	case TokLParen:
		return p.parseList()
	default:
		return nil, errors.Errorf("parse error at %d: unexpected %s", t.Pos, t.Kind)
	}
}

func (p *Parser) parseAtom() (Node, error) {
	t, err := p.expect(TokAtom)
	if err != nil {
		return nil, err
	}
	switch t.Text {
	case "#t":
		return NewBool(t.Pos, true), nil
	case "#f":
		return NewBool(t.Pos, false), nil
	}
	if n, err := strconv.ParseInt(t.Text, 10, 64); err == nil {
		return NewNumber(t.Pos, n), nil
	}
	return NewSymbol(t.Pos, t.Text), nil
}

func (p *Parser) parseList() (Node, error) {
	open, err := p.expect(TokLParen)
	if err != nil {
		return nil, err
	}
	head := p.peek()
	if head.Kind == TokAtom {
		switch head.Text {
		case "let":
			return p.parseLet(open)
		case "if":
			return p.parseIf(open)
		case "define":
			return p.parseDefine(open)
		case "tuple":
			return p.parseTuple(open)
		case "=", "<", "<=", ">", ">=":
			return p.parseCmp(open, head.Text)
		}
	}
	return p.parseApp(open)
}

func (p *Parser) parseBody(open Token) (Node, error) {
	body, err := p.parseForm()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	_ = open
	return body, nil
}

func (p *Parser) parseLet(open Token) (Node, error) {
	p.advance() // "let"
	if _, err := p.expect(TokLParen); err != nil {
		return nil, err
	}
	var bindings []*Binding
	for p.peek().Kind == TokLParen {
		bindOpen := p.advance()
		nameTok, err := p.expect(TokAtom)
		if err != nil {
			return nil, err
		}
		valExpr, err := p.parseForm()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		bindings = append(bindings, &Binding{base{bindOpen.Pos}, nameTok.Text, valExpr})
	}
	if len(bindings) == 0 {
		return nil, errors.Errorf("parse error at %d: let requires at least one binding", open.Pos)
	}
	if _, err := p.expect(TokRParen); err != nil { // close binding list
		return nil, err
	}
	body, err := p.parseBody(open)
	if err != nil {
		return nil, err
	}
	return &Let{base{open.Pos}, bindings, body}, nil
}

func (p *Parser) parseIf(open Token) (Node, error) {
	p.advance() // "if"
	cond, err := p.parseForm()
	if err != nil {
		return nil, err
	}
	thn, err := p.parseForm()
	if err != nil {
		return nil, err
	}
	els, err := p.parseForm()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	return &If{base{open.Pos}, cond, thn, els}, nil
}

func (p *Parser) parseCmp(open Token, opText string) (Node, error) {
	p.advance() // operator
	left, err := p.parseForm()
	if err != nil {
		return nil, err
	}
	right, err := p.parseForm()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	var op CmpOp
	switch opText {
	case "=":
		op = CmpEq
	case "<":
		op = CmpLt
	case "<=":
		op = CmpLe
	case ">":
		op = CmpGt
	case ">=":
		op = CmpGe
	}
	return &Cmp{base{open.Pos}, op, left, right}, nil
}

func (p *Parser) parseTuple(open Token) (Node, error) {
	p.advance() // "tuple"
	var elems []Node
	for p.peek().Kind != TokRParen {
		e, err := p.parseForm()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	return &Tuple{base{open.Pos}, elems}, nil
}

func (p *Parser) parseDefine(open Token) (Node, error) {
	p.advance() // "define"
	if _, err := p.expect(TokLParen); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(TokAtom)
	if err != nil {
		return nil, err
	}
	var params []string
	for p.peek().Kind == TokAtom {
		params = append(params, p.advance().Text)
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	body, err := p.parseBody(open)
	if err != nil {
		return nil, err
	}
	return &Define{base{open.Pos}, nameTok.Text, params, body}, nil
}

func (p *Parser) parseApp(open Token) (Node, error) {
	fn, err := p.parseForm()
	if err != nil {
		return nil, err
	}
	var args []Node
	for p.peek().Kind != TokRParen {
		if p.peek().Kind == TokEOF {
			return nil, errors.Errorf("parse error at %d: unterminated application", open.Pos)
		}
		a, err := p.parseForm()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	return &App{base{open.Pos}, fn, args}, nil
}
