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

func TestAllocateNonOverlappingIntervalsNeverSpill(t *testing.T) {
	ranges := map[string]*interval{
		"a": {name: "a", from: 0, to: 1},
		"b": {name: "b", from: 2, to: 3},
		"c": {name: "c", from: 4, to: 5},
	}
	homes, spillSlots := allocate(ranges, []string{"a", "b", "c"})
	assert.Equal(t, 0, spillSlots)
	for _, name := range []string{"a", "b", "c"} {
		_, isReg := homes[name].(Reg)
		assert.True(t, isReg, "%s should have landed in a register", name)
	}
}

func TestAllocateSpillsWhenMoreLiveThanRegisters(t *testing.T) {
	ranges := map[string]*interval{}
	var order []string
	// every interval spans the whole program, so all of them are
	// simultaneously active: one more than allocatablePool can hold.
	for i := 0; i < len(allocatablePool)+1; i++ {
		name := string(rune('a' + i))
		ranges[name] = &interval{name: name, from: 0, to: 100}
		order = append(order, name)
	}
	homes, spillSlots := allocate(ranges, order)
	assert.Equal(t, 1, spillSlots)

	var spilled int
	for _, name := range order {
		if _, isMem := homes[name].(RegOffset); isMem {
			spilled++
		}
	}
	assert.Equal(t, 1, spilled)
}

func TestAllocateReusesExpiredRegister(t *testing.T) {
	// b starts only after a's interval has strictly ended, so a's register
	// is back on the LIFO free list and is the one b receives.
	ranges := map[string]*interval{
		"a": {name: "a", from: 0, to: 1},
		"b": {name: "b", from: 5, to: 6},
	}
	homes, spillSlots := allocate(ranges, []string{"a", "b"})
	assert.Equal(t, 0, spillSlots)
	assert.IsType(t, Reg{}, homes["a"])
	assert.IsType(t, Reg{}, homes["b"])
	assert.Equal(t, homes["a"], homes["b"])
}

func TestSubstitutePlainReplacesVarWithHome(t *testing.T) {
	homes := map[string]Operand{"x": Reg{Name: "rbx"}, "y": RegOffset{BaseReg: "rbp", Disp: -8}}
	instr, err := substitutePlain(Mov{Dst: Var{Name: "x"}, Src: Var{Name: "y"}}, homes)
	require.NoError(t, err)
	mov := instr.(Mov)
	assert.Equal(t, Reg{Name: "rbx"}, mov.Dst)
	assert.Equal(t, RegOffset{BaseReg: "rbp", Disp: -8}, mov.Src)
}

func TestSubstitutePlainRejectsUnknownVariable(t *testing.T) {
	_, err := substitutePlain(Mov{Dst: Var{Name: "unbound"}, Src: Imm{Value: 1}}, map[string]Operand{})
	assert.Error(t, err)
}

func TestAssignHomesProgramThreadsFrameInfo(t *testing.T) {
	ap := &AnnotatedProg{
		MainVars: []string{"a"},
		MainInstr: []AnnotatedInstr{
			{Plain: Mov{Dst: Var{Name: "a"}, Src: Imm{Value: 1}}, LiveAfter: LiveSet{"a": true}},
			{Plain: Mov{Dst: Reg{Name: "rax"}, Src: Var{Name: "a"}}, LiveAfter: LiveSet{}},
		},
	}
	prog, frames, err := AssignHomesProgram(ap)
	require.NoError(t, err)
	require.Contains(t, frames, "main")
	assert.Equal(t, 0, frames["main"].SpillSlots)
	require.Len(t, prog.MainInstr, 2)
	for _, instr := range prog.MainInstr {
		if mov, ok := instr.(Mov); ok {
			assert.NotEqual(t, Var{Name: "a"}, mov.Dst)
			assert.NotEqual(t, Var{Name: "a"}, mov.Src)
		}
	}
}
