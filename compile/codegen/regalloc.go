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
	"sort"

	"tuplisp/compile/diag"
)

const passAssignHomes = "assign_homes"

// interval is a variable's live range in the line numbering described by
// spec §4.5: "[first_seen-1, last_seen]", counting only straight-line
// instructions and restarting at the start line for both branches of an
// If. This is directly grounded on falcon/compile/codegen/lsra_interval.go's
// Interval/Range design, simplified to a single contiguous range per
// variable since this pipeline never splits or rematerializes intervals.
type interval struct {
	name     string
	from, to int
}

// FrameInfo is everything print_x86 needs to size a function's stack
// frame: the spill count, threaded through so the prologue/epilogue can
// reserve (and the epilogue release) exactly the right number of slots —
// spec §9 flags the original's "add rsp, 0" as a real bug for any program
// that actually spills.
type FrameInfo struct {
	SpillSlots int
}

// AssignHomesProgram runs pass 5 over an annotated program: computes live
// intervals, runs linear-scan allocation, and substitutes every Var
// operand with its assigned Reg or RegOffset home.
func AssignHomesProgram(ap *AnnotatedProg) (*Prog, map[string]*FrameInfo, error) {
	out := &Prog{}
	frames := map[string]*FrameInfo{}

	mainInstrs, mainFrame, err := assignHomesBody(ap.MainVars, ap.MainInstr)
	if err != nil {
		return nil, nil, err
	}
	out.MainVars = ap.MainVars
	out.MainInstr = mainInstrs
	frames["main"] = mainFrame

	for _, d := range ap.Defines {
		instrs, frame, err := assignHomesBody(d.Vars, d.Instrs)
		if err != nil {
			return nil, nil, err
		}
		out.Defines = append(out.Defines, &Define{Name: d.Name, Vars: d.Vars, Instrs: instrs})
		frames[d.Name] = frame
	}
	return out, frames, nil
}

func assignHomesBody(vars []string, annotated []AnnotatedInstr) ([]Instr, *FrameInfo, error) {
	ranges, order := computeIntervals(annotated)
	homes, spillSlots := allocate(ranges, order)
	instrs, err := substitute(annotated, homes)
	if err != nil {
		return nil, nil, err
	}
	return instrs, &FrameInfo{SpillSlots: spillSlots}, nil
}

func computeIntervals(instrs []AnnotatedInstr) (map[string]*interval, []string) {
	ranges := map[string]*interval{}
	var order []string
	walkIntervals(instrs, 1, ranges, &order)
	return ranges, order
}

func touch(ranges map[string]*interval, order *[]string, name string, line int) {
	iv, ok := ranges[name]
	if !ok {
		ranges[name] = &interval{name: name, from: line - 1, to: line}
		*order = append(*order, name)
		return
	}
	if line > iv.to {
		iv.to = line
	}
}

func walkIntervals(instrs []AnnotatedInstr, startLine int, ranges map[string]*interval, order *[]string) int {
	line := startLine
	for _, ai := range instrs {
		if ai.IsIf {
			for v := range varsIn(ai.Cond.Left).Union(varsIn(ai.Cond.Right)) {
				touch(ranges, order, v, line)
			}
			walkIntervals(ai.Then, line, ranges, order)
			walkIntervals(ai.Else, line, ranges, order)
			line += len(ai.Then) + len(ai.Else)
			continue
		}
		read, written := readWritten(ai.Plain)
		for v := range read.Union(written) {
			touch(ranges, order, v, line)
		}
		line++
	}
	return line
}

type activeEntry struct {
	name string
	to   int
	reg  string // "" if spilled
}

// allocate is the linear-scan algorithm of spec §4.5: sort by start,
// expire active intervals whose end precedes the new interval's start
// (returning their register to a LIFO free list), assign a free register
// if one exists, otherwise spill to the next stack slot.
func allocate(ranges map[string]*interval, order []string) (map[string]Operand, int) {
	sort.SliceStable(order, func(i, j int) bool {
		return ranges[order[i]].from < ranges[order[j]].from
	})

	free := freeRegList()
	var active []*activeEntry
	homes := map[string]Operand{}
	stackSlots := 0

	for _, name := range order {
		iv := ranges[name]

		kept := active[:0]
		for _, a := range active {
			if a.to < iv.from {
				if a.reg != "" {
					free = append(free, a.reg)
				}
			} else {
				kept = append(kept, a)
			}
		}
		active = kept

		if len(free) > 0 {
			reg := free[len(free)-1]
			free = free[:len(free)-1]
			homes[name] = Reg{Name: reg}
			active = append(active, &activeEntry{name: name, to: iv.to, reg: reg})
		} else {
			stackSlots++
			homes[name] = RegOffset{BaseReg: "rbp", Disp: -8 * stackSlots}
			active = append(active, &activeEntry{name: name, to: iv.to})
		}
	}
	return homes, stackSlots
}

func substitute(instrs []AnnotatedInstr, homes map[string]Operand) ([]Instr, error) {
	out := make([]Instr, 0, len(instrs))
	for _, ai := range instrs {
		if ai.IsIf {
			thn, err := substitute(ai.Then, homes)
			if err != nil {
				return nil, err
			}
			els, err := substitute(ai.Else, homes)
			if err != nil {
				return nil, err
			}
			left, err := homeOf(ai.Cond.Left, homes)
			if err != nil {
				return nil, err
			}
			right, err := homeOf(ai.Cond.Right, homes)
			if err != nil {
				return nil, err
			}
			out = append(out, If{Cond: EqP{Left: left, Right: right}, Then: thn, Else: els})
			continue
		}
		instr, err := substitutePlain(ai.Plain, homes)
		if err != nil {
			return nil, err
		}
		out = append(out, instr)
	}
	return out, nil
}

func homeOf(o Operand, homes map[string]Operand) (Operand, error) {
	v, ok := o.(Var)
	if !ok {
		return o, nil
	}
	h, ok := homes[v.Name]
	if !ok {
		return nil, diag.Internalf(passAssignHomes, "variable %q has no assigned home", v.Name)
	}
	return h, nil
}

func substitutePlain(instr Instr, homes map[string]Operand) (Instr, error) {
	switch x := instr.(type) {
	case Mov:
		dst, err := homeOf(x.Dst, homes)
		if err != nil {
			return nil, err
		}
		src, err := homeOf(x.Src, homes)
		if err != nil {
			return nil, err
		}
		return Mov{Dst: dst, Src: src}, nil
	case Add:
		dst, err := homeOf(x.Dst, homes)
		if err != nil {
			return nil, err
		}
		src, err := homeOf(x.Src, homes)
		if err != nil {
			return nil, err
		}
		return Add{Dst: dst, Src: src}, nil
	case Neg:
		dst, err := homeOf(x.Dst, homes)
		if err != nil {
			return nil, err
		}
		return Neg{Dst: dst}, nil
	case Cmp:
		left, err := homeOf(x.Left, homes)
		if err != nil {
			return nil, err
		}
		right, err := homeOf(x.Right, homes)
		if err != nil {
			return nil, err
		}
		return Cmp{Left: left, Right: right}, nil
	case Call, JmpIf, Jmp, Label:
		return x, nil
	default:
		return nil, diag.Internalf(passAssignHomes, "unhandled instruction %T in assign_homes", instr)
	}
}
