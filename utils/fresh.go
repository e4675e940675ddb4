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

// Fresh is a prefix-keyed monotonic name counter. CompileSource creates one
// per compilation and threads it through every pass; separate instances
// share no counters. uniquify
// draws binder names from it ("x" -> "x3"), flatten draws ANF temporaries
// ("tmp7"), If-merge temporaries ("if2"), and branch labels ("then4",
// "endif4") from it (spec §3 "Lifecycle", §9 "Fresh name counter"). It is
// deliberately the only piece of mutable state shared across an otherwise
// single-threaded, synchronous pipeline (spec §5).
type Fresh struct {
	counters map[string]int
}

func NewFresh() *Fresh {
	return &Fresh{counters: make(map[string]int)}
}

// Next returns "prefix<n>" and advances prefix's counter. Each prefix has
// its own independent sequence, starting at 0.
func (f *Fresh) Next(prefix string) string {
	n := f.counters[prefix]
	f.counters[prefix] = n + 1
	return fmt.Sprintf("%s%d", prefix, n)
}

// Reset zeroes every counter. Tests that compare emitted names literally
// (or the uniquify-idempotence property in spec §8) must reset between runs
// since a Fresh is otherwise monotonic for its whole lifetime.
func (f *Fresh) Reset() {
	f.counters = make(map[string]int)
}
