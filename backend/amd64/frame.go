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

package amd64

import (
	"github.com/jpl-lang/jplc/build/ast"
	"github.com/jpl-lang/jplc/build/ir"
)

// frame tracks one function's symbolic stack: the current byte distance
// from rbp and the offset of every named value. Offsets are recorded
// relative to the frame's initial size so that stack-passed parameters,
// which live above rbp, carry negative offsets.
type frame struct {
	temps    map[string]int
	size     int
	initSize int
}

func newFrame(initSize int) frame {
	return frame{temps: make(map[string]int), size: initSize, initSize: initSize}
}

func (f *frame) grow(n int)   { f.size += n }
func (f *frame) shrink(n int) { f.size -= n }

// tempsSize is the byte size of everything pushed since entry.
func (f *frame) tempsSize() int { return f.size - f.initSize }

func (f *frame) addTemp(name string, offset int) {
	f.temps[name] = offset
}

func (f *frame) has(name string) bool {
	_, ok := f.temps[name]
	return ok
}

// offset returns a name's distance below rbp. Stack-passed parameters
// yield negative values, addressing above rbp.
func (f *frame) offset(name string) int {
	return f.temps[name] + f.initSize
}

// addArgument records the names an argument introduces at a value's
// offset. An array argument names the whole descriptor plus each length
// word: the descriptor starts at its first length, so dimension i lives
// 8i bytes above the descriptor's base.
func (f *frame) addArgument(arg ast.Argument, offset int) {
	switch a := arg.(type) {
	case *ast.VarArgument:
		f.addTemp(a.Text, offset)
	case *ast.ArrayArgument:
		for i, dim := range a.Dims {
			f.addTemp(dim, offset-8*i)
		}
		f.addTemp(a.Name, offset)
	}
}

// addLValue records a let target's names, distributing a tuple across
// its elements in declaration order.
func (f *frame) addLValue(lv ast.LValue, t ir.Type, offset int) {
	switch l := lv.(type) {
	case *ast.ArgLValue:
		f.addArgument(l.Arg, offset)
	case *ast.TupleLValue:
		tuple := t.(ir.TupleType)
		next := offset
		for i, sub := range l.Elems {
			f.addLValue(sub, tuple.Elems[i], next)
			next -= StackSize(tuple.Elems[i])
		}
	}
}

// addBinding records a parameter's names the same way.
func (f *frame) addBinding(b ast.Binding, t ir.Type, offset int) {
	switch bb := b.(type) {
	case *ast.VarBinding:
		f.addArgument(bb.Arg, offset)
	case *ast.TupleBinding:
		tuple := t.(ir.TupleType)
		next := offset
		for i, sub := range bb.Elems {
			f.addBinding(sub, tuple.Elems[i], next)
			next -= StackSize(tuple.Elems[i])
		}
	}
}
