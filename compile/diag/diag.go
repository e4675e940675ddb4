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

// Package diag implements the three-kind error taxonomy of spec §7 and a
// colorized reporter modeled on kanso-lang-kanso's internal/errors
// reporter, scaled down to this compiler's much smaller diagnostic needs:
// there is no local recovery anywhere in the pipeline, so a reporter only
// ever needs to format one terminal error, never accumulate many.
package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// Kind classifies a pipeline error (spec §7).
type Kind int

const (
	// Malformed covers parse failure, bad primitive arity, and a
	// non-literal tuple-ref index.
	Malformed Kind = iota
	// Unsupported covers constructs the pipeline recognizes but does not
	// implement: more than six call arguments, a higher-order call that
	// never resolves to a label, an unhandled expression shape.
	Unsupported
	// Internal covers invariant violations that should be dead code in a
	// correct implementation (a pass receiving malformed IR from an
	// earlier pass, a pseudo-operand surviving into the emitter).
	Internal
)

func (k Kind) String() string {
	switch k {
	case Malformed:
		return "malformed input"
	case Unsupported:
		return "unsupported construct"
	case Internal:
		return "internal invariant violation"
	default:
		return "error"
	}
}

// Error is a pipeline diagnostic. Pass is the name of the pass that raised
// it (e.g. "uniquify", "select_instructions"), used only for the report
// header; the pipeline never inspects it programmatically.
type Error struct {
	Kind Kind
	Pass string
	err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pass, e.Kind, e.err)
}

func (e *Error) Unwrap() error { return e.err }

func Malformedf(pass, format string, args ...interface{}) error {
	return &Error{Kind: Malformed, Pass: pass, err: errors.Errorf(format, args...)}
}

func Unsupportedf(pass, format string, args ...interface{}) error {
	return &Error{Kind: Unsupported, Pass: pass, err: errors.Errorf(format, args...)}
}

func Internalf(pass, format string, args ...interface{}) error {
	return &Error{Kind: Internal, Pass: pass, err: errors.Errorf(format, args...)}
}

// Report writes a one-line, colorized diagnostic to w: "<kind in color>: <pass>: <message>".
// Color is the only stylistic debt owed to kanso's much richer reporter;
// this compiler's errors never carry source spans because the pipeline
// proper (spec §1) never looks back at source positions after parsing.
func Report(w io.Writer, err error) {
	var pe *Error
	if !errors.As(err, &pe) {
		fmt.Fprintf(w, "%s: %s\n", color.New(color.FgRed, color.Bold).Sprint("error"), err)
		return
	}

	levelColor := color.New(color.FgRed, color.Bold)
	if pe.Kind == Internal {
		levelColor = color.New(color.FgMagenta, color.Bold)
	}
	fmt.Fprintf(w, "%s: %s: %s\n", levelColor.Sprint(pe.Kind), pe.Pass, pe.err)
}
