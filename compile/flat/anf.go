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

package flat

import (
	"github.com/pkg/errors"

	"tuplisp/ast"
	"tuplisp/utils"
)

var primitives = map[string]bool{
	"+":         true,
	"-":         true,
	"tuple-ref": true,
}

type flattener struct {
	fresh   *utils.Fresh
	funcs   map[string]bool // known top-level function names
}

// Flatten runs the administrative-normal-form (ANF) pass (spec §4.2): for
// every expression it produces a triple (atom, prefix statements, introduced
// vars), hoisting every nested compound into a fresh Assign so that every
// Prim/Cmp/App/Tuple argument ends up atomic.
func Flatten(fresh *utils.Fresh, prog *ast.Prog) (*Program, error) {
	fl := &flattener{fresh: fresh, funcs: map[string]bool{}}
	for _, d := range prog.Defines {
		fl.funcs[d.Name] = true
	}

	out := &Program{}
	for _, d := range prog.Defines {
		atom, stmts, vars, err := fl.expr(d.Body)
		if err != nil {
			return nil, errors.WithMessagef(err, "in definition of %q", d.Name)
		}
		stmts = append(stmts, Return{Value: atom})
		vars = withoutAny(vars, d.Params)
		out.Defines = append(out.Defines, &Define{
			Name:   d.Name,
			Params: d.Params,
			Body:   Body{Stmts: stmts, Return: atom, Vars: vars},
		})
	}

	atom, stmts, vars, err := fl.expr(prog.Body)
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, Return{Value: atom})
	out.Main = Body{Stmts: stmts, Return: atom, Vars: vars}
	return out, nil
}

func withoutAny(vars []string, drop []string) []string {
	dropped := make(map[string]bool, len(drop))
	for _, d := range drop {
		dropped[d] = true
	}
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		if !dropped[v] {
			out = append(out, v)
		}
	}
	return out
}

// expr flattens n, returning its atom, the statements that must run before
// the atom is valid, and the set of variable names it introduced or read.
func (fl *flattener) expr(n ast.Node) (Atom, []Stmt, []string, error) {
	switch x := n.(type) {
	case *ast.Number:
		return ANumber{Value: x.Value}, nil, nil, nil
	case *ast.Bool:
		return ABool{Value: x.Value}, nil, nil, nil
	case *ast.Symbol:
		return ASymbol{Name: x.Name}, nil, []string{x.Name}, nil
	case *ast.FuncName:
		return AFuncName{Name: x.Name}, nil, nil, nil

	case *ast.Tuple:
		elemAtoms := make([]Atom, len(x.Elems))
		var stmts []Stmt
		var vars []string
		for i, e := range x.Elems {
			a, s, v, err := fl.expr(e)
			if err != nil {
				return nil, nil, nil, err
			}
			elemAtoms[i] = a
			stmts = append(stmts, s...)
			vars = append(vars, v...)
		}
		tmp := fl.fresh.Next("tmp")
		stmts = append(stmts, Assign{Var: tmp, Value: Tuple{Elems: elemAtoms}})
		vars = append(vars, tmp)
		return ASymbol{Name: tmp}, stmts, vars, nil

	case *ast.Let:
		var stmts []Stmt
		var vars []string
		for _, b := range x.Bindings {
			a, s, v, err := fl.expr(b.Expr)
			if err != nil {
				return nil, nil, nil, err
			}
			stmts = append(stmts, s...)
			stmts = append(stmts, Assign{Var: b.Name, Value: a})
			vars = append(vars, v...)
			vars = append(vars, b.Name)
		}
		bodyAtom, bodyStmts, bodyVars, err := fl.expr(x.Body)
		if err != nil {
			return nil, nil, nil, err
		}
		stmts = append(stmts, bodyStmts...)
		vars = append(vars, bodyVars...)
		return bodyAtom, stmts, vars, nil

	case *ast.If:
		cond, condStmts, condVars, err := fl.flattenCond(x.Cond)
		if err != nil {
			return nil, nil, nil, err
		}
		thnAtom, thnStmts, thnVars, err := fl.expr(x.Then)
		if err != nil {
			return nil, nil, nil, err
		}
		elsAtom, elsStmts, elsVars, err := fl.expr(x.Else)
		if err != nil {
			return nil, nil, nil, err
		}
		ifk := fl.fresh.Next("if")
		thnStmts = append(thnStmts, Assign{Var: ifk, Value: thnAtom})
		elsStmts = append(elsStmts, Assign{Var: ifk, Value: elsAtom})

		stmts := append(append([]Stmt{}, condStmts...), If{Cond: cond, Then: thnStmts, Else: elsStmts})
		vars := append(append(append(condVars, thnVars...), elsVars...), ifk)
		return ASymbol{Name: ifk}, stmts, vars, nil

	case *ast.Cmp:
		return fl.flattenCmpValue(x)

	case *ast.App:
		return fl.flattenApp(x)

	default:
		return nil, nil, nil, errors.Errorf("flatten: unhandled expression %s", ast.String(n))
	}
}

// flattenCond flattens a boolean-producing expression into a Flat Cmp, the
// only shape legal as an If's condition (spec §4.3: "the condition must
// already be a Cmp/EqP form"). A bare boolean atom (literal or variable) is
// normalized to "atom = #t" so the invariant holds unconditionally.
func (fl *flattener) flattenCond(n ast.Node) (Cmp, []Stmt, []string, error) {
	// Only a direct equality test embeds as pseudo-x86's EqP further down
	// the pipeline (spec §4.6 hardcodes "cmp R, L; je" with no condition
	// code parameter). Any other comparison is first materialized into a
	// boolean temporary by the generic compound path below, then the If's
	// condition becomes "temporary = #t".
	if c, ok := n.(*ast.Cmp); ok && c.Op == ast.CmpEq {
		left, lstmts, lvars, err := fl.expr(c.Left)
		if err != nil {
			return Cmp{}, nil, nil, err
		}
		right, rstmts, rvars, err := fl.expr(c.Right)
		if err != nil {
			return Cmp{}, nil, nil, err
		}
		stmts := append(lstmts, rstmts...)
		vars := append(lvars, rvars...)
		return Cmp{Op: CmpEq, Left: left, Right: right}, stmts, vars, nil
	}
	// A non-equality comparison used as a condition still needs to become
	// a boolean value first (flattenCmpValue, same as any other Cmp in
	// value position) before it can be compared against #t — routing it
	// through fl.expr here would re-enter this function on the identical
	// node and never terminate.
	if c, ok := n.(*ast.Cmp); ok {
		atom, stmts, vars, err := fl.flattenCmpValue(c)
		if err != nil {
			return Cmp{}, nil, nil, err
		}
		return Cmp{Op: CmpEq, Left: atom, Right: ABool{Value: true}}, stmts, vars, nil
	}

	atom, stmts, vars, err := fl.expr(n)
	if err != nil {
		return Cmp{}, nil, nil, err
	}
	return Cmp{Op: CmpEq, Left: atom, Right: ABool{Value: true}}, stmts, vars, nil
}

// flattenCmpValue flattens a Cmp used in ordinary value position (not as
// an If's condition): its operands are hoisted to atoms, its original
// operator is preserved (select_instructions materializes anything but a
// direct equality into a 0/1 temporary — see codegen/select.go's
// assignCmp), and the result is bound to a fresh variable.
func (fl *flattener) flattenCmpValue(c *ast.Cmp) (Atom, []Stmt, []string, error) {
	left, lstmts, lvars, err := fl.expr(c.Left)
	if err != nil {
		return nil, nil, nil, err
	}
	right, rstmts, rvars, err := fl.expr(c.Right)
	if err != nil {
		return nil, nil, nil, err
	}
	stmts := append(lstmts, rstmts...)
	vars := append(lvars, rvars...)

	tmp := fl.fresh.Next("tmp")
	op, err := cmpOpOf(c.Op)
	if err != nil {
		return nil, nil, nil, err
	}
	stmts = append(stmts, Assign{Var: tmp, Value: Cmp{Op: op, Left: left, Right: right}})
	vars = append(vars, tmp)
	return ASymbol{Name: tmp}, stmts, vars, nil
}

func cmpOpOf(op ast.CmpOp) (CmpOp, error) {
	switch op {
	case ast.CmpEq:
		return CmpEq, nil
	case ast.CmpLt:
		return CmpLt, nil
	case ast.CmpLe:
		return CmpLe, nil
	case ast.CmpGt:
		return CmpGt, nil
	case ast.CmpGe:
		return CmpGe, nil
	default:
		return 0, errors.Errorf("flatten: unknown comparison operator %s", op)
	}
}

func (fl *flattener) flattenApp(x *ast.App) (Atom, []Stmt, []string, error) {
	if sym, ok := x.Fn.(*ast.Symbol); ok {
		switch {
		case primitives[sym.Name]:
			return fl.flattenPrim(sym.Name, x.Args)
		case fl.funcs[sym.Name]:
			return fl.flattenUserCall(sym.Name, x.Args)
		}
	}

	// Higher-order application: flatten the callee to an atom that must be
	// a symbol (spec §4.2); the pseudo-x86 instruction set has no indirect
	// call operand, so anything else is an unsupported construct and is
	// reported as such no later than select_instructions.
	calleeAtom, calleeStmts, calleeVars, err := fl.expr(x.Fn)
	if err != nil {
		return nil, nil, nil, err
	}
	var calleeName string
	switch c := calleeAtom.(type) {
	case ASymbol:
		calleeName = c.Name
	case AFuncName:
		calleeName = c.Name
	default:
		return nil, nil, nil, errors.Errorf("flatten: application callee %s does not flatten to a symbol", ast.String(x.Fn))
	}

	argAtoms, argStmts, argVars, err := fl.flattenArgs(x.Args)
	if err != nil {
		return nil, nil, nil, err
	}

	tmp := fl.fresh.Next("tmp")
	stmts := append(append(append([]Stmt{}, calleeStmts...), argStmts...), Assign{Var: tmp, Value: App{Fn: calleeName, Args: argAtoms}})
	vars := append(append(append([]string{}, calleeVars...), argVars...), tmp)
	return ASymbol{Name: tmp}, stmts, vars, nil
}

func (fl *flattener) flattenArgs(args []ast.Node) ([]Atom, []Stmt, []string, error) {
	atoms := make([]Atom, len(args))
	var stmts []Stmt
	var vars []string
	for i, a := range args {
		atom, s, v, err := fl.expr(a)
		if err != nil {
			return nil, nil, nil, err
		}
		atoms[i] = atom
		stmts = append(stmts, s...)
		vars = append(vars, v...)
	}
	return atoms, stmts, vars, nil
}

func (fl *flattener) flattenPrim(op string, args []ast.Node) (Atom, []Stmt, []string, error) {
	if op == "tuple-ref" {
		if len(args) != 2 {
			return nil, nil, nil, errors.Errorf("flatten: tuple-ref takes exactly 2 arguments, got %d", len(args))
		}
		idx, ok := args[1].(*ast.Number)
		if !ok {
			return nil, nil, nil, errors.Errorf("flatten: tuple-ref index must be a literal integer, got %s", ast.String(args[1]))
		}
		tupAtom, tupStmts, tupVars, err := fl.expr(args[0])
		if err != nil {
			return nil, nil, nil, err
		}
		tmp := fl.fresh.Next("tmp")
		stmts := append(tupStmts, Assign{Var: tmp, Value: Prim{Op: "tuple-ref", Args: []Atom{tupAtom, ANumber{Value: idx.Value}}}})
		vars := append(tupVars, tmp)
		return ASymbol{Name: tmp}, stmts, vars, nil
	}

	// "+" is binary, unary "-" takes exactly one argument (spec §1).
	wantArgs := 2
	if op == "-" {
		wantArgs = 1
	}
	if len(args) != wantArgs {
		return nil, nil, nil, errors.Errorf("flatten: primitive %q takes %d argument(s), got %d", op, wantArgs, len(args))
	}

	atoms, stmts, vars, err := fl.flattenArgs(args)
	if err != nil {
		return nil, nil, nil, err
	}
	tmp := fl.fresh.Next("tmp")
	stmts = append(stmts, Assign{Var: tmp, Value: Prim{Op: op, Args: atoms}})
	vars = append(vars, tmp)
	return ASymbol{Name: tmp}, stmts, vars, nil
}

// flattenUserCall implements the closure-calling-convention desugar of
// spec §4.2: "(f args...)" for a known top-level function f is rewritten
// as if the source had written "((tuple-ref (tuple f) 0) args...)". The
// resulting tuple/tuple-ref pair is recognized and folded back into a
// direct Call by select_instructions (see SPEC_FULL.md §4, the Open
// Question resolution): the pseudo-x86 instruction set has no indirect-call
// operand, so that fold is required for any user call to be compilable at
// all, not merely an optimization.
func (fl *flattener) flattenUserCall(name string, args []ast.Node) (Atom, []Stmt, []string, error) {
	tupTmp := fl.fresh.Next("tmp")
	refTmp := fl.fresh.Next("tmp")
	stmts := []Stmt{
		Assign{Var: tupTmp, Value: Tuple{Elems: []Atom{AFuncName{Name: name}}}},
		Assign{Var: refTmp, Value: Prim{Op: "tuple-ref", Args: []Atom{ASymbol{Name: tupTmp}, ANumber{Value: 0}}}},
	}
	vars := []string{tupTmp, refTmp}

	argAtoms, argStmts, argVars, err := fl.flattenArgs(args)
	if err != nil {
		return nil, nil, nil, err
	}
	stmts = append(stmts, argStmts...)
	vars = append(vars, argVars...)

	tmp := fl.fresh.Next("tmp")
	stmts = append(stmts, Assign{Var: tmp, Value: App{Fn: refTmp, Args: argAtoms}})
	vars = append(vars, tmp)
	return ASymbol{Name: tmp}, stmts, vars, nil
}
