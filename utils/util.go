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
package utils

import "fmt"

// Assert panics with a formatted message when cond is false. No pass calls
// it; the passes report invariant violations (spec §7 kind 3) as
// diag.Internalf errors.
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// Unimplement marks a branch that a correct program never reaches because
// the construct is deliberately unsupported (spec §7 kind 2).
func Unimplement(what string) {
	panic(fmt.Sprintf("unimplemented: %s", what))
}

// ShouldNotReachHere marks dead code: a pass receiving an IR shape that an
// earlier pass's invariant should have ruled out (spec §7 kind 3).
func ShouldNotReachHere() {
	panic("should not reach here")
}

func Abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Align16 rounds n up to the next multiple of 16. The emitter does not call
// it: the spill area is sized at exactly 8 bytes per slot.
func Align16(n int) int {
	return (n + 15) &^ 15
}
