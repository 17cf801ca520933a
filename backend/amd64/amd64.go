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

// Package amd64 lowers a checked JPL tree to an x86-64 assembly module in
// Intel (NASM) syntax.
//
// The module links against an external runtime providing allocation,
// image I/O, numeric helpers, and the show/print/assert surface. Calls
// obey System V AMD64 with one extension: aggregate returns travel
// through a caller-allocated slot whose address is passed in rdi.
//
// Every value lives on the stack. The generator tracks a symbolic stack
// size per function; every instruction that moves rsp updates it, the
// delta between entry and every ret is zero, and rsp is 16-byte aligned
// at every call once the pending on-stack arguments are counted.
package amd64

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jpl-lang/jplc/base/ordered"
	"github.com/jpl-lang/jplc/build/ast"
	"github.com/jpl-lang/jplc/build/checker"
	"github.com/jpl-lang/jplc/build/fmterr"
	"github.com/jpl-lang/jplc/build/ir"
)

// linkageHeader declares the entry point and the runtime externs. It
// opens every emitted module.
const linkageHeader = `global jpl_main
global _jpl_main
extern _fail_assertion
extern _jpl_alloc
extern _get_time
extern _show
extern _print
extern _print_time
extern _read_image
extern _write_image
extern _fmod
extern _sqrt
extern _exp
extern _sin
extern _cos
extern _tan
extern _asin
extern _acos
extern _atan
extern _log
extern _pow
extern _atan2
extern _to_int
extern _to_float
`

// StackSize returns the byte size of a value of a resolved type on the
// stack: one qword per scalar, the sum of the elements for a tuple, and a
// heap pointer plus one length word per dimension for an array.
func StackSize(t ir.Type) int {
	switch tt := t.(type) {
	case ir.IntType, ir.FloatType, ir.BoolType:
		return 8
	case ir.TupleType:
		size := 0
		for _, elem := range tt.Elems {
			size += StackSize(elem)
		}
		return size
	case ir.ArrayType:
		return 8 + 8*tt.Rank
	}
	return 0
}

// Assembly is an assembly module under construction: the constant pool,
// the functions, and the calling conventions of every declared function.
type Assembly struct {
	consts      *ordered.Map[string, string]
	functions   []*Function
	jumpCount   int
	conventions map[string]CallingConvention
	optLevel    int
}

// NewAssembly derives the calling conventions of every function declared
// in the global scope and returns an empty module.
func NewAssembly(global *checker.Scope, optLevel int) *Assembly {
	a := &Assembly{
		consts:      ordered.NewMap[string, string](),
		conventions: make(map[string]CallingConvention),
		optLevel:    optLevel,
	}
	for name, info := range global.Iter() {
		if fn, ok := info.(ir.FuncInfo); ok {
			a.conventions[name] = NewCallingConvention(fn.Args, fn.Return)
		}
	}
	return a
}

// constantRaw interns a raw assembler directive and returns its label.
// The same directive always yields the same label.
func (a *Assembly) constantRaw(directive string) string {
	if label, ok := a.consts.Load(directive); ok {
		return label
	}
	label := "const" + strconv.Itoa(a.consts.Size())
	a.consts.Store(directive, label)
	return label
}

// ConstantString interns a NUL-terminated string constant.
func (a *Assembly) ConstantString(s string) string {
	return a.constantRaw("db `" + s + "`, 0")
}

// ConstantInt interns a qword integer constant.
func (a *Assembly) ConstantInt(v int64) string {
	return a.constantRaw("dq " + strconv.FormatInt(v, 10))
}

// ConstantFloat interns a qword float constant.
func (a *Assembly) ConstantFloat(v float64) string {
	return a.constantRaw(fmt.Sprintf("dq %.10e", v))
}

func (a *Assembly) newJump() string {
	a.jumpCount++
	return ".jump" + strconv.Itoa(a.jumpCount)
}

func (a *Assembly) convention(name string) (CallingConvention, error) {
	cc, ok := a.conventions[name]
	if !ok {
		return CallingConvention{}, fmterr.Internalf("asked for the calling convention of undeclared function %s", name)
	}
	return cc, nil
}

func (a *Assembly) addFunction(f *Function) {
	a.functions = append(a.functions, f)
}

// String renders the module: linkage header, constant pool, text section.
func (a *Assembly) String() string {
	var b strings.Builder
	b.WriteString(linkageHeader)
	b.WriteString("\nsection .data\n")
	for directive, label := range a.consts.Iter() {
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(directive)
		b.WriteString("\n")
	}
	b.WriteString("\nsection .text\n")
	for _, f := range a.functions {
		b.WriteString(f.String())
	}
	return b.String()
}

// Generate lowers a checked program to an assembly module. The global
// scope supplies the signatures the calling conventions derive from.
func Generate(cmds []ast.Command, global *checker.Scope, optLevel int) (string, error) {
	a := NewAssembly(global, optLevel)
	main := newMainFunction(a)
	for _, cmd := range cmds {
		if err := main.genCmd(cmd); err != nil {
			return "", err
		}
	}
	a.addFunction(main)
	return a.String(), nil
}
