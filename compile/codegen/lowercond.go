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

package codegen

import "tuplisp/utils"

// LowerConditionals runs pass 6 (spec §4.6): every structured If(EqP(L,R),
// thn, els) becomes
//
//	cmp R, L
//	je  then_k
//	<els, recursively lowered>
//	jmp endif_k
//	then_k:
//	<thn, recursively lowered>
//	endif_k:
//
// Labels are freshly generated; after this pass no structured If or EqP
// remains anywhere in the program.
func LowerConditionals(fresh *utils.Fresh, instrs []Instr) []Instr {
	var out []Instr
	for _, instr := range instrs {
		iff, ok := instr.(If)
		if !ok {
			out = append(out, instr)
			continue
		}

		thenLabel := fresh.Next("then")
		endLabel := fresh.Next("endif")

		out = append(out, Cmp{Left: iff.Cond.Right, Right: iff.Cond.Left})
		out = append(out, JmpIf{Cc: "je", Label: thenLabel})
		out = append(out, LowerConditionals(fresh, iff.Else)...)
		out = append(out, Jmp{Label: endLabel})
		out = append(out, Label{Name: thenLabel})
		out = append(out, LowerConditionals(fresh, iff.Then)...)
		out = append(out, Label{Name: endLabel})
	}
	return out
}

func LowerConditionalsProgram(fresh *utils.Fresh, prog *Prog) *Prog {
	out := &Prog{MainVars: prog.MainVars, MainInstr: LowerConditionals(fresh, prog.MainInstr)}
	for _, d := range prog.Defines {
		out.Defines = append(out.Defines, &Define{Name: d.Name, Vars: d.Vars, Instrs: LowerConditionals(fresh, d.Instrs)})
	}
	return out
}
