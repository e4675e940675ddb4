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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiterals(t *testing.T) {
	prog, err := ParseProgram("42")
	require.NoError(t, err)
	num, ok := prog.Body.(*Number)
	require.True(t, ok)
	assert.EqualValues(t, 42, num.Value)

	prog, err = ParseProgram("#t")
	require.NoError(t, err)
	b, ok := prog.Body.(*Bool)
	require.True(t, ok)
	assert.True(t, b.Value)

	prog, err = ParseProgram("-7")
	require.NoError(t, err)
	num, ok = prog.Body.(*Number)
	require.True(t, ok)
	assert.EqualValues(t, -7, num.Value)
}

func TestParseLetAndIf(t *testing.T) {
	prog, err := ParseProgram(`(let ((x 1) (y 2)) (if (< x y) x y))`)
	require.NoError(t, err)
	let, ok := prog.Body.(*Let)
	require.True(t, ok)
	require.Len(t, let.Bindings, 2)
	assert.Equal(t, "x", let.Bindings[0].Name)
	assert.Equal(t, "y", let.Bindings[1].Name)

	iff, ok := let.Body.(*If)
	require.True(t, ok)
	cmp, ok := iff.Cond.(*Cmp)
	require.True(t, ok)
	assert.Equal(t, CmpLt, cmp.Op)
}

func TestParseTupleAndApp(t *testing.T) {
	prog, err := ParseProgram(`(tuple-ref (tuple 1 2 3) 1)`)
	require.NoError(t, err)
	app, ok := prog.Body.(*App)
	require.True(t, ok)
	fn, ok := app.Fn.(*Symbol)
	require.True(t, ok)
	assert.Equal(t, "tuple-ref", fn.Name)
	require.Len(t, app.Args, 2)
	tup, ok := app.Args[0].(*Tuple)
	require.True(t, ok)
	assert.Len(t, tup.Elems, 3)
}

func TestParseDefinesFollowedByExpr(t *testing.T) {
	prog, err := ParseProgram(`
		(define (double x) (+ x x))
		(double 21)
	`)
	require.NoError(t, err)
	require.Len(t, prog.Defines, 1)
	assert.Equal(t, "double", prog.Defines[0].Name)
	assert.Equal(t, []string{"x"}, prog.Defines[0].Params)

	app, ok := prog.Body.(*App)
	require.True(t, ok)
	fn, ok := app.Fn.(*Symbol)
	require.True(t, ok)
	assert.Equal(t, "double", fn.Name)
}

func TestParseRejectsDefineAfterTrailingExpr(t *testing.T) {
	_, err := ParseProgram(`
		(+ 1 2)
		(define (f x) x)
	`)
	require.Error(t, err)
}

func TestParseRejectsProgramEndingInDefine(t *testing.T) {
	_, err := ParseProgram(`(define (f x) x)`)
	require.Error(t, err)
}

func TestParseRejectsUnterminatedApp(t *testing.T) {
	_, err := ParseProgram(`(+ 1 2`)
	require.Error(t, err)
}

func TestParseRejectsEmptyProgram(t *testing.T) {
	_, err := ParseProgram("   ; only a comment\n")
	require.Error(t, err)
}

func TestStringRoundTripsSurfaceShape(t *testing.T) {
	prog, err := ParseProgram(`(define (f x) (+ x 1)) (f 2)`)
	require.NoError(t, err)
	s := String(prog)
	assert.Contains(t, s, "define")
	assert.Contains(t, s, "f")
}
