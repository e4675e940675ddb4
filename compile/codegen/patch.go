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

// PatchInstructions runs pass 7 (spec §4.7), the peephole legalization
// applied after home assignment:
//
//	Mov(mem, mem) -> Mov(rax, src); Mov(dst, rax)
//	Add(mem, mem) -> Mov(rax, dst); Add(rax, src); Mov(dst, rax)
//	Cmp(Imm, R)   -> Mov(rax, Imm); Cmp(rax, R)
//
// Everything else passes through unchanged.
func PatchInstructions(instrs []Instr) []Instr {
	var out []Instr
	scratch := Reg{Name: ScratchReg}
	for _, instr := range instrs {
		switch x := instr.(type) {
		case Mov:
			if IsMem(x.Dst) && IsMem(x.Src) {
				out = append(out, Mov{Dst: scratch, Src: x.Src}, Mov{Dst: x.Dst, Src: scratch})
			} else {
				out = append(out, x)
			}
		case Add:
			if IsMem(x.Dst) && IsMem(x.Src) {
				out = append(out,
					Mov{Dst: scratch, Src: x.Dst},
					Add{Dst: scratch, Src: x.Src},
					Mov{Dst: x.Dst, Src: scratch},
				)
			} else {
				out = append(out, x)
			}
		case Cmp:
			if _, ok := x.Left.(Imm); ok {
				out = append(out, Mov{Dst: scratch, Src: x.Left}, Cmp{Left: scratch, Right: x.Right})
			} else {
				out = append(out, x)
			}
		default:
			out = append(out, instr)
		}
	}
	return out
}

func PatchInstructionsProgram(prog *Prog) *Prog {
	out := &Prog{MainVars: prog.MainVars, MainInstr: PatchInstructions(prog.MainInstr)}
	for _, d := range prog.Defines {
		out.Defines = append(out.Defines, &Define{Name: d.Name, Vars: d.Vars, Instrs: PatchInstructions(d.Instrs)})
	}
	return out
}
