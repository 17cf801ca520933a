// Copyright 2025 The JPL Compiler Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cprop flows integer literals and array-length facts through
// let bindings.
//
// The pass runs after type checking, only at optimization level 2 and
// above. It attaches a CP value to expression nodes and never rewrites
// them; the code generator consults the annotations for lowering
// shortcuts and never depends on them for correctness. The walk is a
// single environment-based pass with no fixpoint.
package cprop

import (
	"golang.org/x/exp/maps"

	"github.com/jpl-lang/jplc/build/ast"
)

type propagator struct {
	env map[string]ast.CPValue
}

// Propagate annotates the tree with constant-propagation facts.
func Propagate(cmds []ast.Command) {
	p := &propagator{env: map[string]ast.CPValue{
		"argnum": nil,
		"args":   &ast.ArrayValue{Lengths: []ast.CPValue{nil}},
	}}
	for _, cmd := range cmds {
		p.command(cmd)
	}
}

func (p *propagator) command(cmd ast.Command) {
	switch c := cmd.(type) {
	case *ast.ShowCmd:
		p.expr(c.Value)
	case *ast.WriteCmd:
		p.expr(c.Value)
	case *ast.AssertCmd:
		p.expr(c.Cond)
	case *ast.LetCmd:
		p.expr(c.Value)
		p.bind(c.LValue, c.Value.Base().CP)
	case *ast.ReadCmd:
		// The image rank is known, its extents are not.
		unknown := &ast.ArrayValue{Lengths: []ast.CPValue{nil, nil}}
		switch a := c.Into.(type) {
		case *ast.VarArgument:
			p.env[a.Text] = unknown
		case *ast.ArrayArgument:
			p.env[a.Name] = unknown
		}
	case *ast.TimeCmd:
		p.command(c.Command)
	case *ast.FnCmd:
		// Function bodies see the facts established so far but must
		// not leak their lets into later top-level commands.
		outer := p.env
		p.env = maps.Clone(outer)
		for _, stmt := range c.Body {
			p.stmt(stmt)
		}
		p.env = outer
	}
}

func (p *propagator) stmt(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		p.expr(s.Value)
		p.bind(s.LValue, s.Value.Base().CP)
	case *ast.AssertStmt:
		p.expr(s.Cond)
	case *ast.ReturnStmt:
		p.expr(s.Value)
	}
}

// bind propagates a fact into the simple names an lvalue introduces. An
// array fact bound to an array-argument lvalue also feeds each known
// length to the matching dimension name.
func (p *propagator) bind(lv ast.LValue, v ast.CPValue) {
	arg, ok := lv.(*ast.ArgLValue)
	if !ok {
		return
	}
	switch a := arg.Arg.(type) {
	case *ast.VarArgument:
		p.env[a.Text] = v
	case *ast.ArrayArgument:
		array, ok := v.(*ast.ArrayValue)
		if !ok {
			return
		}
		for i, dim := range a.Dims {
			p.env[dim] = array.Lengths[i]
		}
		p.env[a.Name] = v
	}
}

func (p *propagator) expr(e ast.Expression) {
	switch ex := e.(type) {
	case *ast.IntExpr:
		ex.CP = &ast.IntValue{V: ex.V}
	case *ast.VarExpr:
		if v, ok := p.env[ex.Text]; ok {
			ex.CP = v
		}
	case *ast.ArrayLitExpr:
		for _, sub := range ex.Elems {
			p.expr(sub)
		}
		ex.CP = &ast.ArrayValue{Lengths: []ast.CPValue{&ast.IntValue{V: int64(len(ex.Elems))}}}
	case *ast.ArrayLoopExpr:
		lengths := make([]ast.CPValue, len(ex.Bounds))
		for i, bound := range ex.Bounds {
			p.expr(bound.Bound)
			lengths[i] = bound.Bound.Base().CP
		}
		p.expr(ex.Body)
		ex.CP = &ast.ArrayValue{Lengths: lengths}
	case *ast.SumLoopExpr:
		for _, bound := range ex.Bounds {
			p.expr(bound.Bound)
		}
		p.expr(ex.Body)
	case *ast.TupleLitExpr:
		for _, sub := range ex.Elems {
			p.expr(sub)
		}
	case *ast.TupleIndexExpr:
		p.expr(ex.Tuple)
	case *ast.ArrayIndexExpr:
		p.expr(ex.Array)
		for _, idx := range ex.Indices {
			p.expr(idx)
		}
	case *ast.CallExpr:
		for _, arg := range ex.Args {
			p.expr(arg)
		}
	case *ast.UnopExpr:
		p.expr(ex.X)
	case *ast.BinopExpr:
		p.expr(ex.LHS)
		p.expr(ex.RHS)
	case *ast.IfExpr:
		p.expr(ex.Cond)
		p.expr(ex.Then)
		p.expr(ex.Else)
	}
}
