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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitProgramHeaderAndMainShape(t *testing.T) {
	prog := &Prog{MainInstr: []Instr{Mov{Dst: Reg{Name: "rax"}, Src: Imm{Value: 42}}}}
	frames := map[string]*FrameInfo{"main": {SpillSlots: 0}}

	out, err := EmitProgram(prog, frames)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "section .text\n"))
	assert.Contains(t, out, "extern print_int\n")
	assert.Contains(t, out, "global main\n")
	assert.Contains(t, out, "main:\n")
	assert.Contains(t, out, "mov rdi, rax")
	assert.Contains(t, out, "call print_int")
	assert.Contains(t, out, "push rbp")
	assert.Contains(t, out, "pop rbp")
	assert.Contains(t, out, "ret")
}

func TestEmitProgramSizesStackFrameFromSpillSlots(t *testing.T) {
	prog := &Prog{MainInstr: []Instr{Mov{Dst: Reg{Name: "rax"}, Src: Imm{Value: 1}}}}
	frames := map[string]*FrameInfo{"main": {SpillSlots: 3}}

	out, err := EmitProgram(prog, frames)
	require.NoError(t, err)
	assert.Contains(t, out, "sub rsp, 24")
	assert.Contains(t, out, "add rsp, 24")
}

func TestEmitProgramOmitsStackAdjustmentWhenNoSpills(t *testing.T) {
	prog := &Prog{MainInstr: []Instr{Mov{Dst: Reg{Name: "rax"}, Src: Imm{Value: 1}}}}
	frames := map[string]*FrameInfo{"main": {SpillSlots: 0}}

	out, err := EmitProgram(prog, frames)
	require.NoError(t, err)
	assert.NotContains(t, out, "sub rsp")
	assert.NotContains(t, out, "add rsp")
}

func TestEmitProgramEmitsCalleeSavedPushPop(t *testing.T) {
	prog := &Prog{MainInstr: []Instr{}}
	frames := map[string]*FrameInfo{"main": {SpillSlots: 0}}
	out, err := EmitProgram(prog, frames)
	require.NoError(t, err)
	for _, r := range CalleeSaved {
		assert.Contains(t, out, "push "+r)
		assert.Contains(t, out, "pop "+r)
	}
}

func TestEmitProgramEmitsEveryFunction(t *testing.T) {
	prog := &Prog{
		Defines: []*Define{
			{Name: "double", Instrs: []Instr{
				Add{Dst: Reg{Name: "rdi"}, Src: Reg{Name: "rdi"}},
				Mov{Dst: Reg{Name: "rax"}, Src: Reg{Name: "rdi"}},
			}},
		},
		MainInstr: []Instr{Call{Label: "double"}},
	}
	frames := map[string]*FrameInfo{
		"main":   {SpillSlots: 0},
		"double": {SpillSlots: 0},
	}
	out, err := EmitProgram(prog, frames)
	require.NoError(t, err)
	assert.Contains(t, out, "double:\n")
	assert.Contains(t, out, "call double")
}

func TestEmitProgramRejectsSurvivingIf(t *testing.T) {
	prog := &Prog{MainInstr: []Instr{If{Cond: EqP{Left: Imm{Value: 1}, Right: Imm{Value: 1}}}}}
	frames := map[string]*FrameInfo{"main": {SpillSlots: 0}}
	_, err := EmitProgram(prog, frames)
	assert.Error(t, err)
}
