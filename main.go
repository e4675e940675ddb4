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
package main

import (
	"flag"
	"fmt"
	"os"

	"tuplisp/compile"
	"tuplisp/compile/diag"
)

// -o and -S are the only flags (spec §6: "compiler <input_file>" emits
// NASM to stdout by default). They're handled with the standard flag
// package rather than a third-party CLI framework: this compiler accepts
// exactly one positional argument and two trivial switches, not nested
// subcommands or a growing flag surface that would justify one.
func main() {
	out := flag.String("o", "", "write assembly to this file instead of stdout")
	trace := flag.Bool("S", false, "send pass dumps to stderr; a pass is dumped only when its Debug* constant in package compile is true")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: compiler [-o out.s] [-S] <input_file>")
		os.Exit(1)
	}

	source, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}

	var dump *os.File
	if *trace {
		dump = os.Stderr
	}

	var asm string
	if dump != nil {
		asm, err = compile.CompileSource(string(source), dump)
	} else {
		asm, err = compile.CompileSource(string(source), nil)
	}
	if err != nil {
		diag.Report(os.Stderr, err)
		os.Exit(1)
	}

	if *out == "" {
		fmt.Print(asm)
		return
	}
	if err := os.WriteFile(*out, []byte(asm), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
