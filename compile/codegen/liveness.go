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

// UncoverLive runs pass 4 (spec §4.4): a reverse traversal of the
// instruction list computing, for each instruction, the set of variables
// live immediately after it. A structured If recurses into both branches
// using the live set flowing out of the If as each branch's own starting
// point, then reports its own annotation as the union of that outer set,
// both branches' inflows, and whatever the condition reads.
func UncoverLive(instrs []Instr) []AnnotatedInstr {
	annotated, _ := uncoverBlock(instrs, NewLiveSet())
	return annotated
}

func UncoverLiveProgram(prog *Prog) *AnnotatedProg {
	out := &AnnotatedProg{MainVars: prog.MainVars, MainInstr: UncoverLive(prog.MainInstr)}
	for _, d := range prog.Defines {
		out.Defines = append(out.Defines, &AnnotatedDefine{
			Name:   d.Name,
			Vars:   d.Vars,
			Instrs: UncoverLive(d.Instrs),
		})
	}
	return out
}

func uncoverBlock(instrs []Instr, liveAfterBlock LiveSet) ([]AnnotatedInstr, LiveSet) {
	live := liveAfterBlock.Clone()
	out := make([]AnnotatedInstr, len(instrs))

	for i := len(instrs) - 1; i >= 0; i-- {
		switch x := instrs[i].(type) {
		case If:
			thenAnn, thenBefore := uncoverBlock(x.Then, live)
			elseAnn, elseBefore := uncoverBlock(x.Else, live)

			condRead := varsIn(x.Cond.Left).Union(varsIn(x.Cond.Right))
			union := live.Union(thenBefore).Union(elseBefore).Union(condRead)

			out[i] = AnnotatedInstr{IsIf: true, Cond: x.Cond, Then: thenAnn, Else: elseAnn, LiveAfter: union}
			live = union.Clone()

		default:
			read, written := readWritten(instrs[i])
			out[i] = AnnotatedInstr{Plain: instrs[i], LiveAfter: live.Clone()}
			live = subtract(live, written).Union(read)
		}
	}
	return out, live
}

func subtract(s LiveSet, remove LiveSet) LiveSet {
	out := LiveSet{}
	for k := range s {
		if !remove[k] {
			out[k] = true
		}
	}
	return out
}

func varsIn(o Operand) LiveSet {
	if v, ok := o.(Var); ok {
		return LiveSet{v.Name: true}
	}
	return LiveSet{}
}

// readWritten reports which Var operands an instruction reads and writes.
// Only Var operands participate in liveness (spec §4.4: "Reg operands are
// transparent to variable liveness"); Call clobbers argument/return
// registers but never a source-level Var directly, so it contributes
// nothing here.
func readWritten(instr Instr) (read, written LiveSet) {
	switch x := instr.(type) {
	case Mov:
		return varsIn(x.Src), varsIn(x.Dst)
	case Add:
		// x86's two-operand add reads its destination too (dst += src).
		return varsIn(x.Dst).Union(varsIn(x.Src)), varsIn(x.Dst)
	case Neg:
		return varsIn(x.Dst), varsIn(x.Dst)
	case Cmp:
		return varsIn(x.Left).Union(varsIn(x.Right)), LiveSet{}
	case EqP:
		return varsIn(x.Left).Union(varsIn(x.Right)), LiveSet{}
	default:
		return LiveSet{}, LiveSet{}
	}
}
