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

// Package compile wires together the eight passes of spec §2 into the
// single driver main.go calls: parse -> uniquify -> flatten ->
// select_instructions -> uncover_live -> assign_homes -> lower_conditionals
// -> patch_instructions -> print_x86.
package compile

import (
	"fmt"
	"io"

	"tuplisp/ast"
	"tuplisp/compile/codegen"
	"tuplisp/compile/flat"
	"tuplisp/utils"
)

// Debug dump toggles, one per pass, in the spirit of falcon's
// DebugPrintAst/DebugDumpAst/DebugDumpSSA constants: flip one to trace a
// single pass's intermediate output to a Dump writer without threading a
// flag through every call site.
const (
	DebugPrintAst       = false
	DebugPrintUnique    = false
	DebugPrintFlat      = false
	DebugPrintPseudo    = false
	DebugPrintAnnotated = false
	DebugPrintAssigned  = false
	DebugPrintLowered   = false
	DebugPrintPatched   = false
)

// CompileSource runs the whole pipeline over one source file's text and
// returns NASM-flavor assembly, or the first diagnostic raised by any
// pass (spec §7). dump, if non-nil, receives a labeled dump of each pass's
// output when that pass's Debug* toggle is on; pass nil when no tracing
// is wanted.
func CompileSource(src string, dump io.Writer) (string, error) {
	fresh := utils.NewFresh()

	prog, err := ast.ParseProgram(src)
	if err != nil {
		return "", err
	}
	traceAst(dump, DebugPrintAst, "parse", prog)

	unique, err := flat.Uniquify(fresh, prog)
	if err != nil {
		return "", err
	}
	traceAst(dump, DebugPrintUnique, "uniquify", unique)

	flattened, err := flat.Flatten(fresh, unique)
	if err != nil {
		return "", err
	}
	trace(dump, DebugPrintFlat, "flatten", flattened)

	pseudo, err := codegen.SelectProgram(fresh, flattened)
	if err != nil {
		return "", err
	}
	trace(dump, DebugPrintPseudo, "select_instructions", pseudo)

	annotated := codegen.UncoverLiveProgram(pseudo)
	trace(dump, DebugPrintAnnotated, "uncover_live", annotated)

	assigned, frames, err := codegen.AssignHomesProgram(annotated)
	if err != nil {
		return "", err
	}
	trace(dump, DebugPrintAssigned, "assign_homes", assigned)

	lowered := codegen.LowerConditionalsProgram(fresh, assigned)
	trace(dump, DebugPrintLowered, "lower_conditionals", lowered)

	patched := codegen.PatchInstructionsProgram(lowered)
	trace(dump, DebugPrintPatched, "patch_instructions", patched)

	return codegen.EmitProgram(patched, frames)
}

func traceAst(dump io.Writer, on bool, label string, prog *ast.Prog) {
	if !on || dump == nil {
		return
	}
	fmt.Fprintf(dump, "== %s ==\n%s\n", label, ast.String(prog))
}

func trace(dump io.Writer, on bool, label string, v interface{}) {
	if !on || dump == nil {
		return
	}
	fmt.Fprintf(dump, "== %s ==\n%+v\n", label, v)
}
