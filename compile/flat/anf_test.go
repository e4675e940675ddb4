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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuplisp/ast"
	"tuplisp/utils"
)

func mustFlatten(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := ast.ParseProgram(src)
	require.NoError(t, err)
	fresh := utils.NewFresh()
	unique, err := Uniquify(fresh, prog)
	require.NoError(t, err)
	flat, err := Flatten(fresh, unique)
	require.NoError(t, err)
	return flat
}

func TestFlattenPrimArgsAreAtomic(t *testing.T) {
	prog := mustFlatten(t, `(+ (+ 1 2) 3)`)
	// every nested "+" must have been hoisted into its own Assign; the
	// outer Prim's arguments are therefore both atoms, never another Prim.
	var sawPrim int
	for _, s := range prog.Main.Stmts {
		if a, ok := s.(Assign); ok {
			if _, ok := a.Value.(Prim); ok {
				sawPrim++
			}
		}
	}
	// the inner "+" and the outer "+" each become their own Assign; Prim's
	// Args field is typed []Atom, so hoisting is enforced at compile time
	// once every argument reaching here is an Atom.
	assert.Equal(t, 2, sawPrim)
}

func TestFlattenDirectEqualityEmbedsAsCmp(t *testing.T) {
	prog := mustFlatten(t, `(if (= 1 2) 3 4)`)
	var found bool
	for _, s := range prog.Main.Stmts {
		if iff, ok := s.(If); ok {
			found = true
			assert.Equal(t, CmpEq, iff.Cond.Op)
			assert.Equal(t, ANumber{Value: 1}, iff.Cond.Left)
			assert.Equal(t, ANumber{Value: 2}, iff.Cond.Right)
		}
	}
	assert.True(t, found, "expected a flattened If statement")
}

func TestFlattenNonEqualityConditionIsMaterialized(t *testing.T) {
	prog := mustFlatten(t, `(if (< 1 2) 3 4)`)
	var iff If
	var found bool
	for _, s := range prog.Main.Stmts {
		if x, ok := s.(If); ok {
			iff = x
			found = true
		}
	}
	require.True(t, found)
	// the condition embedded in the If must be an equality test against
	// #t, never a raw "<" — only CmpEq survives into Flat's If.Cond.
	assert.Equal(t, CmpEq, iff.Cond.Op)
	assert.Equal(t, ABool{Value: true}, iff.Cond.Right)
}

func TestFlattenTupleHoistsElementsAndNamesVars(t *testing.T) {
	prog := mustFlatten(t, `(tuple-ref (tuple 10 20) 1)`)
	var tuples int
	for _, s := range prog.Main.Stmts {
		if a, ok := s.(Assign); ok {
			if tup, ok := a.Value.(Tuple); ok {
				tuples++
				require.Len(t, tup.Elems, 2)
			}
		}
	}
	assert.Equal(t, 1, tuples)
}

func TestFlattenUserCallDesugarsToTupleRefIdiom(t *testing.T) {
	prog := mustFlatten(t, `
		(define (f x) x)
		(f 1)
	`)
	var tupleOfFuncName, tupleRefAtZero, app bool
	for _, s := range prog.Main.Stmts {
		a, ok := s.(Assign)
		if !ok {
			continue
		}
		switch v := a.Value.(type) {
		case Tuple:
			if len(v.Elems) == 1 {
				if _, ok := v.Elems[0].(AFuncName); ok {
					tupleOfFuncName = true
				}
			}
		case Prim:
			if v.Op == "tuple-ref" {
				if idx, ok := v.Args[1].(ANumber); ok && idx.Value == 0 {
					tupleRefAtZero = true
				}
			}
		case App:
			app = true
		}
	}
	assert.True(t, tupleOfFuncName, "expected (tuple FuncName) desugar")
	assert.True(t, tupleRefAtZero, "expected tuple-ref at index 0")
	assert.True(t, app, "expected the final App over the resolved reference")
}

func TestFlattenUnaryMinusArity(t *testing.T) {
	_, err := ast.ParseProgram(`(- 1 2)`)
	require.NoError(t, err) // parses fine as an App; flatten rejects the arity

	prog, err := ast.ParseProgram(`(- 1 2)`)
	require.NoError(t, err)
	fresh := utils.NewFresh()
	unique, err := Uniquify(fresh, prog)
	require.NoError(t, err)
	_, err = Flatten(fresh, unique)
	assert.Error(t, err)
}
