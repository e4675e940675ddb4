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

package flat

import (
	"github.com/pkg/errors"

	"tuplisp/ast"
	"tuplisp/utils"
)

// Uniquify renames every binder (let-bound name, function parameter) to a
// globally unique name and rewrites every use-site Symbol by lookup (spec
// §4.1). Function names are left untouched: they are global labels, not
// bindings that can shadow.
//
// The rename mapping is carried as mutable state threaded across sibling
// expressions in a single scan. A Let's bindings are visible in its later
// bindings and its body; once the body has been rewritten, the mapping each
// rebound name had before the Let is restored, so an inner Let never
// changes what a name means in the enclosing scope. Function parameters
// stay in the mapping after their definition has been rewritten.
//
// reserved names App.Fn symbols that are never variable references and
// so must pass through uniquifyExpr untouched: the three built-in operators,
// plus every top-level function name (populated from prog.Defines before any
// body is visited, since a function may call a sibling defined later).
func Uniquify(fresh *utils.Fresh, prog *ast.Prog) (*ast.Prog, error) {
	env := map[string]string{}
	reserved := map[string]bool{"+": true, "-": true, "tuple-ref": true}
	for _, def := range prog.Defines {
		reserved[def.Name] = true
	}
	out := &ast.Prog{}

	for _, def := range prog.Defines {
		newParams := make([]string, len(def.Params))
		for i, p := range def.Params {
			fr := fresh.Next(p)
			env[p] = fr
			newParams[i] = fr
		}
		body, err := uniquifyExpr(fresh, env, reserved, def.Body)
		if err != nil {
			return nil, err
		}
		out.Defines = append(out.Defines, &ast.Define{
			Name:   def.Name,
			Params: newParams,
			Body:   body,
		})
	}

	body, err := uniquifyExpr(fresh, env, reserved, prog.Body)
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}

func uniquifyExpr(fresh *utils.Fresh, env map[string]string, reserved map[string]bool, n ast.Node) (ast.Node, error) {
	switch x := n.(type) {
	case *ast.Number, *ast.Bool, *ast.FuncName:
		return n, nil
	case *ast.Symbol:
		renamed, ok := env[x.Name]
		if !ok {
			// An absent key here is a programmer bug in an earlier pass
			// (an unbound variable should have been caught by the parser
			// producing a well-formed binding), not user input: fail loudly.
			return nil, errors.Errorf("uniquify: unbound variable %q", x.Name)
		}
		return ast.NewSymbol(x.Pos(), renamed), nil
	case *ast.Tuple:
		elems := make([]ast.Node, len(x.Elems))
		for i, e := range x.Elems {
			ne, err := uniquifyExpr(fresh, env, reserved, e)
			if err != nil {
				return nil, err
			}
			elems[i] = ne
		}
		return &ast.Tuple{Elems: elems}, nil
	case *ast.Let:
		newBindings := make([]*ast.Binding, len(x.Bindings))
		prev := make([]string, len(x.Bindings))
		had := make([]bool, len(x.Bindings))
		for i, b := range x.Bindings {
			val, err := uniquifyExpr(fresh, env, reserved, b.Expr)
			if err != nil {
				return nil, err
			}
			prev[i], had[i] = env[b.Name]
			fr := fresh.Next(b.Name)
			env[b.Name] = fr
			newBindings[i] = &ast.Binding{Name: fr, Expr: val}
		}
		body, err := uniquifyExpr(fresh, env, reserved, x.Body)
		if err != nil {
			return nil, err
		}
		for i := len(x.Bindings) - 1; i >= 0; i-- {
			if had[i] {
				env[x.Bindings[i].Name] = prev[i]
			} else {
				delete(env, x.Bindings[i].Name)
			}
		}
		return &ast.Let{Bindings: newBindings, Body: body}, nil
	case *ast.If:
		cond, err := uniquifyExpr(fresh, env, reserved, x.Cond)
		if err != nil {
			return nil, err
		}
		thn, err := uniquifyExpr(fresh, env, reserved, x.Then)
		if err != nil {
			return nil, err
		}
		els, err := uniquifyExpr(fresh, env, reserved, x.Else)
		if err != nil {
			return nil, err
		}
		return &ast.If{Cond: cond, Then: thn, Else: els}, nil
	case *ast.Cmp:
		left, err := uniquifyExpr(fresh, env, reserved, x.Left)
		if err != nil {
			return nil, err
		}
		right, err := uniquifyExpr(fresh, env, reserved, x.Right)
		if err != nil {
			return nil, err
		}
		return &ast.Cmp{Op: x.Op, Left: left, Right: right}, nil
	case *ast.App:
		var fn ast.Node
		if sym, ok := x.Fn.(*ast.Symbol); ok && reserved[sym.Name] {
			fn = sym
		} else {
			renamed, err := uniquifyExpr(fresh, env, reserved, x.Fn)
			if err != nil {
				return nil, err
			}
			fn = renamed
		}
		args := make([]ast.Node, len(x.Args))
		for i, a := range x.Args {
			na, err := uniquifyExpr(fresh, env, reserved, a)
			if err != nil {
				return nil, err
			}
			args[i] = na
		}
		return &ast.App{Fn: fn, Args: args}, nil
	default:
		utils.ShouldNotReachHere()
		return nil, nil
	}
}
