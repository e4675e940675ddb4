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
	"strings"

	"tuplisp/compile/diag"
)

const passEmit = "print_x86"

// EmitProgram runs pass 8: NASM-flavor text for the whole program,
// including the synthetic main function (spec §4.8). Unlike the teacher's
// stack frame handling, this thread's the allocator's spill count through
// to the prologue/epilogue of every function (spec §9 flags the original
// emitter's hardcoded "add rsp, 0" as a bug for any program that spills).
func EmitProgram(prog *Prog, frames map[string]*FrameInfo) (string, error) {
	var sb strings.Builder
	sb.WriteString("section .text\n")
	sb.WriteString("extern print_int\n")
	sb.WriteString("global main\n\n")

	for _, d := range prog.Defines {
		frame, ok := frames[d.Name]
		if !ok {
			return "", diag.Internalf(passEmit, "no frame info for function %q", d.Name)
		}
		if err := emitFunction(&sb, d.Name, d.Instrs, frame.SpillSlots, false); err != nil {
			return "", err
		}
	}

	frame, ok := frames["main"]
	if !ok {
		return "", diag.Internalf(passEmit, "no frame info for main")
	}
	if err := emitFunction(&sb, "main", prog.MainInstr, frame.SpillSlots, true); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func emitFunction(sb *strings.Builder, name string, instrs []Instr, spillSlots int, isMain bool) error {
	fmt.Fprintf(sb, "%s:\n", name)
	fmt.Fprintln(sb, "\tpush rbp")
	fmt.Fprintln(sb, "\tmov rbp, rsp")
	// Spill slots are addressed as [rbp-8k], directly below the saved rbp,
	// so they are reserved before the callee-saved registers are pushed.
	if spillSlots > 0 {
		fmt.Fprintf(sb, "\tsub rsp, %d\n", 8*spillSlots)
	}
	for _, r := range CalleeSaved {
		fmt.Fprintf(sb, "\tpush %s\n", r)
	}

	for _, instr := range instrs {
		line, err := instrText(instr)
		if err != nil {
			return err
		}
		if _, ok := instr.(Label); ok {
			fmt.Fprintf(sb, "%s\n", line)
		} else {
			fmt.Fprintf(sb, "\t%s\n", line)
		}
	}

	if isMain {
		fmt.Fprintln(sb, "\tmov rdi, rax")
		fmt.Fprintln(sb, "\tcall print_int")
	}

	for i := len(CalleeSaved) - 1; i >= 0; i-- {
		fmt.Fprintf(sb, "\tpop %s\n", CalleeSaved[i])
	}
	if spillSlots > 0 {
		fmt.Fprintf(sb, "\tadd rsp, %d\n", 8*spillSlots)
	}
	fmt.Fprintln(sb, "\tpop rbp")
	fmt.Fprintln(sb, "\tret")
	sb.WriteString("\n")
	return nil
}

func instrText(instr Instr) (string, error) {
	switch x := instr.(type) {
	case Mov:
		return fmt.Sprintf("mov %s, %s", x.Dst, x.Src), nil
	case Add:
		return fmt.Sprintf("add %s, %s", x.Dst, x.Src), nil
	case Neg:
		return fmt.Sprintf("neg %s", x.Dst), nil
	case Cmp:
		return fmt.Sprintf("cmp %s, %s", x.Left, x.Right), nil
	case Call:
		return fmt.Sprintf("call %s", x.Label), nil
	case JmpIf:
		return fmt.Sprintf("%s %s", x.Cc, x.Label), nil
	case Jmp:
		return fmt.Sprintf("jmp %s", x.Label), nil
	case Label:
		return fmt.Sprintf("%s:", x.Name), nil
	default:
		return "", diag.Internalf(passEmit, "instruction %T survived to emission (structured If/EqP must be eliminated by lower_conditionals)", instr)
	}
}
