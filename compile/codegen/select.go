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

import (
	"fmt"

	"tuplisp/compile/diag"
	"tuplisp/compile/flat"
	"tuplisp/utils"
)

const passSelect = "select_instructions"

// selector carries the small amount of state select_instructions threads
// across statements within one function body: the recognized idioms for
// user-level tuples (spec's supplemented stack-resident tuple feature) and
// for the closure-calling-convention stub resolved in SPEC_FULL.md §4.
//
// tupleElems maps an ordinary tuple's variable name to the synthetic
// per-element variable names standing in for its slots; funcTuple and
// funcRef recognize the "(tuple-ref (tuple FuncName) 0)" desugar pattern
// flatten emits for every user-function call (see compile/flat/anf.go) so
// it can be folded back into a direct Call, since pseudo-x86 has no
// indirect-call operand.
type selector struct {
	fresh      *utils.Fresh
	tupleElems map[string][]string
	funcTuple  map[string]string
	funcRef    map[string]string
	extraVars  []string
}

// SelectProgram runs pass 3 over a whole flattened program.
func SelectProgram(fresh *utils.Fresh, prog *flat.Program) (*Prog, error) {
	out := &Prog{}
	for _, d := range prog.Defines {
		cd, err := selectDefine(fresh, d)
		if err != nil {
			return nil, err
		}
		out.Defines = append(out.Defines, cd)
	}

	sel := &selector{fresh: fresh, tupleElems: map[string][]string{}, funcTuple: map[string]string{}, funcRef: map[string]string{}}
	instrs, err := sel.stmts(prog.Main.Stmts)
	if err != nil {
		return nil, err
	}
	out.MainVars = append(append([]string{}, prog.Main.Vars...), sel.extraVars...)
	out.MainInstr = instrs
	return out, nil
}

func selectDefine(fresh *utils.Fresh, d *flat.Define) (*Define, error) {
	if len(d.Params) > len(ArgRegs) {
		return nil, diag.Unsupportedf(passSelect, "function %q takes %d parameters, more than the %d argument registers available", d.Name, len(d.Params), len(ArgRegs))
	}

	sel := &selector{fresh: fresh, tupleElems: map[string][]string{}, funcTuple: map[string]string{}, funcRef: map[string]string{}}

	var instrs []Instr
	for i, p := range d.Params {
		instrs = append(instrs, Mov{Dst: Var{Name: p}, Src: Reg{Name: ArgRegs[i]}})
	}
	body, err := sel.stmts(d.Body.Stmts)
	if err != nil {
		return nil, err
	}
	instrs = append(instrs, body...)

	vars := append(append([]string{}, d.Params...), d.Body.Vars...)
	vars = append(vars, sel.extraVars...)
	return &Define{Name: d.Name, Vars: vars, Instrs: instrs}, nil
}

func (s *selector) stmts(stmts []flat.Stmt) ([]Instr, error) {
	var out []Instr
	for _, stmt := range stmts {
		instrs, err := s.stmt(stmt)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
	}
	return out, nil
}

func (s *selector) stmt(stmt flat.Stmt) ([]Instr, error) {
	switch st := stmt.(type) {
	case flat.Return:
		op, err := s.translateAtom(st.Value)
		if err != nil {
			return nil, err
		}
		return []Instr{Mov{Dst: Reg{Name: "rax"}, Src: op}}, nil

	case flat.If:
		cond, condPre, err := s.translateCond(st.Cond)
		if err != nil {
			return nil, err
		}
		thn, err := s.stmts(st.Then)
		if err != nil {
			return nil, err
		}
		els, err := s.stmts(st.Else)
		if err != nil {
			return nil, err
		}
		return append(condPre, If{Cond: cond, Then: thn, Else: els}), nil

	case flat.Assign:
		return s.assign(st)

	default:
		return nil, diag.Internalf(passSelect, "unhandled statement %T", stmt)
	}
}

// translateCond lowers a Flat Cmp into pseudo-x86's EqP. Only equality
// ever reaches here directly from compile/flat/anf.go's flattenCond; any
// other comparator was already normalized to "tmp = #t" before this pass.
func (s *selector) translateCond(c flat.Cmp) (EqP, []Instr, error) {
	if c.Op != flat.CmpEq {
		return EqP{}, nil, diag.Internalf(passSelect, "if condition reached select_instructions as a non-equality comparison (%s)", c.Op)
	}
	left, err := s.translateAtom(c.Left)
	if err != nil {
		return EqP{}, nil, err
	}
	right, err := s.translateAtom(c.Right)
	if err != nil {
		return EqP{}, nil, err
	}
	return EqP{Left: left, Right: right}, nil, nil
}

func (s *selector) assign(st flat.Assign) ([]Instr, error) {
	d := st.Var
	switch v := st.Value.(type) {
	case flat.ASymbol, flat.AFuncName, flat.ANumber, flat.ABool:
		op, err := s.translateAtom(v.(flat.Atom))
		if err != nil {
			return nil, err
		}
		return []Instr{Mov{Dst: Var{Name: d}, Src: op}}, nil

	case flat.Prim:
		return s.assignPrim(d, v)

	case flat.Cmp:
		return s.assignCmp(d, v)

	case flat.App:
		return s.assignApp(d, v)

	case flat.Tuple:
		return s.assignTuple(d, v)

	default:
		return nil, diag.Internalf(passSelect, "unhandled assignment value %T for %q", st.Value, d)
	}
}

func (s *selector) assignPrim(d string, p flat.Prim) ([]Instr, error) {
	switch p.Op {
	case "+":
		if len(p.Args) != 2 {
			return nil, diag.Malformedf(passSelect, "\"+\" takes exactly 2 arguments, got %d", len(p.Args))
		}
		a, err := s.translateAtom(p.Args[0])
		if err != nil {
			return nil, err
		}
		b, err := s.translateAtom(p.Args[1])
		if err != nil {
			return nil, err
		}
		return []Instr{
			Mov{Dst: Var{Name: d}, Src: a},
			Add{Dst: Var{Name: d}, Src: b},
		}, nil

	case "-":
		if len(p.Args) != 1 {
			return nil, diag.Malformedf(passSelect, "unary \"-\" takes exactly 1 argument, got %d", len(p.Args))
		}
		a, err := s.translateAtom(p.Args[0])
		if err != nil {
			return nil, err
		}
		return []Instr{
			Mov{Dst: Var{Name: d}, Src: a},
			Neg{Dst: Var{Name: d}},
		}, nil

	case "tuple-ref":
		return s.assignTupleRef(d, p)

	default:
		return nil, diag.Unsupportedf(passSelect, "unknown primitive %q", p.Op)
	}
}

func (s *selector) assignTupleRef(d string, p flat.Prim) ([]Instr, error) {
	if len(p.Args) != 2 {
		return nil, diag.Malformedf(passSelect, "tuple-ref takes exactly 2 arguments, got %d", len(p.Args))
	}
	tupSym, ok := p.Args[0].(flat.ASymbol)
	if !ok {
		return nil, diag.Unsupportedf(passSelect, "tuple-ref target %v is not a variable", p.Args[0])
	}
	idxAtom, ok := p.Args[1].(flat.ANumber)
	if !ok {
		return nil, diag.Malformedf(passSelect, "tuple-ref index must be a literal integer")
	}
	idx := int(idxAtom.Value)

	if fn, ok := s.funcTuple[tupSym.Name]; ok {
		if idx != 0 {
			return nil, diag.Unsupportedf(passSelect, "tuple-ref on a function-reference tuple only supports index 0, got %d", idx)
		}
		s.funcRef[d] = fn
		return nil, nil
	}

	elems, ok := s.tupleElems[tupSym.Name]
	if !ok {
		return nil, diag.Unsupportedf(passSelect, "tuple-ref on %q, which was not constructed by a preceding tuple literal in this scope", tupSym.Name)
	}
	if idx < 0 || idx >= len(elems) {
		return nil, diag.Malformedf(passSelect, "tuple-ref index %d out of range for a %d-element tuple", idx, len(elems))
	}
	return []Instr{Mov{Dst: Var{Name: d}, Src: Var{Name: elems[idx]}}}, nil
}

// assignTuple lowers a Tuple literal. The closure-calling-convention stub
// flatten emits ("(tuple FuncName)") is recognized and elided here rather
// than materialized: a bare function label has no Operand representation
// (see pseudox86.go's Var/Reg/Imm/RegOffset set), so it can only ever be
// consumed through the matching tuple-ref + App idiom, never stored or
// observed as a value in its own right. Any other tuple is lowered into
// ordinary per-element variables that flow through the same allocator as
// everything else (spec's supplemented user-level tuple feature; see
// SPEC_FULL.md DOMAIN STACK §7) — a stack-resident record with no heap
// boxing, matching spec §1's non-goal.
func (s *selector) assignTuple(d string, t flat.Tuple) ([]Instr, error) {
	if len(t.Elems) == 1 {
		if fn, ok := t.Elems[0].(flat.AFuncName); ok {
			s.funcTuple[d] = fn.Name
			return nil, nil
		}
	}
	for _, e := range t.Elems {
		if _, ok := e.(flat.AFuncName); ok {
			return nil, diag.Unsupportedf(passSelect, "function references may only appear as the sole element of a single-element tuple (the closure-call stub)")
		}
	}

	elems := make([]string, len(t.Elems))
	var instrs []Instr
	for i, e := range t.Elems {
		op, err := s.translateAtom(e)
		if err != nil {
			return nil, err
		}
		ev := fmt.Sprintf("%s$%d", d, i)
		elems[i] = ev
		s.extraVars = append(s.extraVars, ev)
		instrs = append(instrs, Mov{Dst: Var{Name: ev}, Src: op})
	}
	s.tupleElems[d] = elems
	return instrs, nil
}

func (s *selector) assignApp(d string, a flat.App) ([]Instr, error) {
	label := a.Fn
	if fn, ok := s.funcRef[a.Fn]; ok {
		label = fn
	}
	if len(a.Args) > len(ArgRegs) {
		return nil, diag.Unsupportedf(passSelect, "call to %q passes %d arguments, more than the %d argument registers available", label, len(a.Args), len(ArgRegs))
	}

	var instrs []Instr
	for i, arg := range a.Args {
		op, err := s.translateAtom(arg)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, Mov{Dst: Reg{Name: ArgRegs[i]}, Src: op})
	}
	instrs = append(instrs, Call{Label: label})
	instrs = append(instrs, Mov{Dst: Var{Name: d}, Src: Reg{Name: "rax"}})
	return instrs, nil
}

// assignCmp materializes a non-equality (or otherwise value-position)
// comparison into a boolean variable. Only a direct top-level equality
// test embeds as If's EqP (spec §4.6); every other comparator used as an
// ordinary value reaches here and is lowered with the same jump/label
// vocabulary pass 6 uses for control flow, since the given pseudo-x86
// instruction set has no set-on-condition instruction.
//
// Unlike lower_conditionals' EqP handling, the operands are NOT swapped:
// ccFor's condition codes read left-relative-to-right ("jl" fires when
// Left < Right), whereas lower_conditionals' "cmp R, L" convention only
// works because equality is symmetric.
func (s *selector) assignCmp(d string, c flat.Cmp) ([]Instr, error) {
	left, err := s.translateAtom(c.Left)
	if err != nil {
		return nil, err
	}
	right, err := s.translateAtom(c.Right)
	if err != nil {
		return nil, err
	}
	cc, ok := ccFor(c.Op)
	if !ok {
		return nil, diag.Unsupportedf(passSelect, "unknown comparison operator %s", c.Op)
	}
	trueLabel := s.fresh.Next("cmptrue")
	endLabel := s.fresh.Next("cmpend")
	return []Instr{
		Cmp{Left: left, Right: right},
		JmpIf{Cc: cc, Label: trueLabel},
		Mov{Dst: Var{Name: d}, Src: Imm{Value: 0}},
		Jmp{Label: endLabel},
		Label{Name: trueLabel},
		Mov{Dst: Var{Name: d}, Src: Imm{Value: 1}},
		Label{Name: endLabel},
	}, nil
}

func ccFor(op flat.CmpOp) (string, bool) {
	switch op {
	case flat.CmpEq:
		return "je", true
	case flat.CmpLt:
		return "jl", true
	case flat.CmpLe:
		return "jle", true
	case flat.CmpGt:
		return "jg", true
	case flat.CmpGe:
		return "jge", true
	default:
		return "", false
	}
}

func (s *selector) translateAtom(a flat.Atom) (Operand, error) {
	switch v := a.(type) {
	case flat.ASymbol:
		return Var{Name: v.Name}, nil
	case flat.ANumber:
		return Imm{Value: int32(v.Value)}, nil
	case flat.ABool:
		if v.Value {
			return Imm{Value: 1}, nil
		}
		return Imm{Value: 0}, nil
	case flat.AFuncName:
		return nil, diag.Internalf(passSelect, "bare function reference %q reached instruction selection outside the closure-call stub", v.Name)
	default:
		return nil, diag.Internalf(passSelect, "unhandled atom %T", a)
	}
}
