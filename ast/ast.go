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

// Package ast declares the tagged-variant source tree for the tuplisp
// surface language (integer/boolean literals, variables, let-bindings,
// arithmetic/comparison primitives, tuples, if, function references and
// top-level function definitions) and the lexer/parser that produce it.
//
// The lexer and parser are external collaborators to the compilation
// pipeline proper (spec §1 "OUT OF SCOPE"): the pipeline only depends on
// the Node interface below, never on how a Node was produced.
package ast

import "fmt"

// Node is implemented by every source-tree node. Pos is the byte offset of
// the node's first character in the source file, used only for diagnostics.
type Node interface {
	Pos() int
	node()
}

// CmpOp is the comparison operator carried by a Cmp node.
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

func (op CmpOp) String() string {
	switch op {
	case CmpEq:
		return "="
	case CmpLt:
		return "<"
	case CmpLe:
		return "<="
	case CmpGt:
		return ">"
	case CmpGe:
		return ">="
	default:
		return "?"
	}
}

type base struct {
	pos int
}

func (b base) Pos() int { return b.pos }
func (base) node()      {}

// Number is an integer literal.
type Number struct {
	base
	Value int64
}

// Bool is a boolean literal (#t / #f).
type Bool struct {
	base
	Value bool
}

// Symbol is a variable reference.
type Symbol struct {
	base
	Name string
}

// FuncName is a function reference that has survived closure conversion
// (spec §3): a symbol known, statically, to name a top-level Define.
type FuncName struct {
	base
	Name string
}

// Tuple constructs a fixed-size record from its elements, evaluated
// left-to-right.
type Tuple struct {
	base
	Elems []Node
}

// Binding is one (name expr) pair inside a Let.
type Binding struct {
	base
	Name string
	Expr Node
}

// Let binds each Binding's value in order, then evaluates Body in the
// extended scope.
type Let struct {
	base
	Bindings []*Binding
	Body     Node
}

// If evaluates Cond, then exactly one of Then or Else.
type If struct {
	base
	Cond Node
	Then Node
	Else Node
}

// Cmp is a binary comparison; Op is one of {=, <, <=, >, >=}.
type Cmp struct {
	base
	Op    CmpOp
	Left  Node
	Right Node
}

// App applies Fn to Args. Fn is either a Symbol naming a primitive
// ("+", "-", "tuple-ref") or a user function, or an arbitrary expression
// in a higher-order application.
type App struct {
	base
	Fn   Node
	Args []Node
}

// Define is a top-level function definition.
type Define struct {
	base
	Name   string
	Params []string
	Body   Node
}

// Prog is the whole program: zero or more Defines followed by the program
// expression.
type Prog struct {
	base
	Defines []*Define
	Body    Node
}

func NewNumber(pos int, v int64) *Number       { return &Number{base{pos}, v} }
func NewBool(pos int, v bool) *Bool            { return &Bool{base{pos}, v} }
func NewSymbol(pos int, n string) *Symbol      { return &Symbol{base{pos}, n} }
func NewFuncName(pos int, n string) *FuncName  { return &FuncName{base{pos}, n} }

// String renders a node back to (roughly) its surface syntax; used for
// error messages and debug dumps, not for re-parsing.
func String(n Node) string {
	switch x := n.(type) {
	case *Number:
		return fmt.Sprintf("%d", x.Value)
	case *Bool:
		if x.Value {
			return "#t"
		}
		return "#f"
	case *Symbol:
		return x.Name
	case *FuncName:
		return x.Name
	case *Tuple:
		s := "(tuple"
		for _, e := range x.Elems {
			s += " " + String(e)
		}
		return s + ")"
	case *Let:
		s := "(let ("
		for i, b := range x.Bindings {
			if i > 0 {
				s += " "
			}
			s += fmt.Sprintf("(%s %s)", b.Name, String(b.Expr))
		}
		return s + ") " + String(x.Body) + ")"
	case *If:
		return fmt.Sprintf("(if %s %s %s)", String(x.Cond), String(x.Then), String(x.Else))
	case *Cmp:
		return fmt.Sprintf("(%s %s %s)", x.Op, String(x.Left), String(x.Right))
	case *App:
		s := "(" + String(x.Fn)
		for _, a := range x.Args {
			s += " " + String(a)
		}
		return s + ")"
	case *Define:
		s := fmt.Sprintf("(define (%s", x.Name)
		for _, p := range x.Params {
			s += " " + p
		}
		return s + ") " + String(x.Body) + ")"
	case *Prog:
		s := ""
		for _, d := range x.Defines {
			s += String(d) + "\n"
		}
		return s + String(x.Body)
	default:
		return "<?>"
	}
}
