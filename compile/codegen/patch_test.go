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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchMovMemMemSplitsThroughScratch(t *testing.T) {
	mem1 := RegOffset{BaseReg: "rbp", Disp: -8}
	mem2 := RegOffset{BaseReg: "rbp", Disp: -16}
	out := PatchInstructions([]Instr{Mov{Dst: mem1, Src: mem2}})
	require.Len(t, out, 2)

	first := out[0].(Mov)
	assert.Equal(t, Reg{Name: ScratchReg}, first.Dst)
	assert.Equal(t, mem2, first.Src)

	second := out[1].(Mov)
	assert.Equal(t, mem1, second.Dst)
	assert.Equal(t, Reg{Name: ScratchReg}, second.Src)
}

func TestPatchAddMemMemSplitsThroughScratch(t *testing.T) {
	mem1 := RegOffset{BaseReg: "rbp", Disp: -8}
	mem2 := RegOffset{BaseReg: "rbp", Disp: -16}
	out := PatchInstructions([]Instr{Add{Dst: mem1, Src: mem2}})
	require.Len(t, out, 3)
	assert.IsType(t, Mov{}, out[0])
	assert.IsType(t, Add{}, out[1])
	assert.IsType(t, Mov{}, out[2])
}

func TestPatchCmpImmLeftGoesThroughScratch(t *testing.T) {
	out := PatchInstructions([]Instr{Cmp{Left: Imm{Value: 5}, Right: Reg{Name: "rbx"}}})
	require.Len(t, out, 2)
	mov := out[0].(Mov)
	assert.Equal(t, Reg{Name: ScratchReg}, mov.Dst)
	assert.Equal(t, Imm{Value: 5}, mov.Src)
	cmp := out[1].(Cmp)
	assert.Equal(t, Reg{Name: ScratchReg}, cmp.Left)
}

func TestPatchLeavesRegisterOperandsUntouched(t *testing.T) {
	instr := Mov{Dst: Reg{Name: "rbx"}, Src: Reg{Name: "rcx"}}
	out := PatchInstructions([]Instr{instr})
	require.Len(t, out, 1)
	assert.Equal(t, instr, out[0])
}
