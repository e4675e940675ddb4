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

// ArgRegs is the System V AMD64 integer argument register order (spec §6).
var ArgRegs = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

// CalleeSaved is pushed in the prologue and popped (in reverse) in the
// epilogue of every function, including the synthetic main (spec §4.8).
var CalleeSaved = []string{"rbx", "r12", "r13", "r14"}

// ScratchReg is reserved for patch_instructions (spec §4.7); it is never a
// candidate for allocate-able register pool membership.
const ScratchReg = "rax"

// allocatablePool is the small fixed set of general-purpose registers the
// linear-scan allocator may hand out for ordinary variables (spec §4.5:
// "rbx, rdx, rcx in main code; the six argument registers are also free
// for reuse after their call"). falcon/compile/codegen/register_x86.go
// models the full x86-64 physical register file as indexed PhyReg values;
// here the pool is narrowed down to exactly what the allocator is allowed
// to hand out, since rax is the patch scratch register and rbp/rsp are the
// frame pointer and stack pointer.
var allocatablePool = []string{"rbx", "rdx", "rcx", "rdi", "rsi", "r8", "r9"}

// freeRegList returns a fresh copy of the allocatable pool, used as the
// initial free list for each function's allocation (spec §4.5: "a LIFO
// free list").
func freeRegList() []string {
	out := make([]string, len(allocatablePool))
	copy(out, allocatablePool)
	return out
}
