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

package checker

import (
	"github.com/jpl-lang/jplc/base/ordered"
	"github.com/jpl-lang/jplc/build/ir"
)

// Scope is a symbol table with a pointer to its parent. Lookups walk to
// the root; additions fail when the name is visible anywhere up the chain,
// so introducing a name that shadows an enclosing binding is an error.
type Scope struct {
	parent *Scope
	table  *ordered.Map[string, ir.NameInfo]
}

// NewScope returns a child of parent, or a root scope when parent is nil.
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, table: ordered.NewMap[string, ir.NameInfo]()}
}

// Lookup finds a name in this scope or an ancestor.
func (s *Scope) Lookup(name string) (ir.NameInfo, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if info, ok := sc.table.Load(name); ok {
			return info, true
		}
	}
	return nil, false
}

// Add binds a name in this scope. It reports false when the name is
// already visible here or in an ancestor.
func (s *Scope) Add(name string, info ir.NameInfo) bool {
	if _, taken := s.Lookup(name); taken {
		return false
	}
	s.table.Store(name, info)
	return true
}

// Iter iterates over the bindings of this scope alone, in the order they
// were added. The code generator relies on this order to derive calling
// conventions deterministically.
func (s *Scope) Iter() func(func(string, ir.NameInfo) bool) {
	return s.table.Iter()
}

// Global returns a fresh root scope holding the predeclared bindings:
// the program arguments and the runtime's numeric functions.
func Global() *Scope {
	sc := NewScope(nil)
	sc.Add("args", ir.VariableInfo{Type: ir.ArrayType{Elem: ir.Int, Rank: 1}})
	sc.Add("argnum", ir.VariableInfo{Type: ir.Int})

	unary := []ir.Type{ir.Float}
	for _, name := range []string{"sqrt", "exp", "sin", "cos", "tan", "asin", "acos", "atan", "log"} {
		sc.Add(name, ir.FuncInfo{Return: ir.Float, Args: unary})
	}
	binary := []ir.Type{ir.Float, ir.Float}
	sc.Add("pow", ir.FuncInfo{Return: ir.Float, Args: binary})
	sc.Add("atan2", ir.FuncInfo{Return: ir.Float, Args: binary})
	sc.Add("to_int", ir.FuncInfo{Return: ir.Int, Args: unary})
	sc.Add("to_float", ir.FuncInfo{Return: ir.Float, Args: []ir.Type{ir.Int}})
	return sc
}
