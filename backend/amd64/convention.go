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
	"github.com/jpl-lang/jplc/build/fmterr"
	"github.com/jpl-lang/jplc/build/ir"
)

// Location is where an argument or return value travels across a call.
type Location int

// Argument and return locations. The integer registers come first, in
// assignment order, then the float registers.
const (
	RDI Location = iota
	RSI
	RDX
	RCX
	R8
	R9
	XMM0
	XMM1
	XMM2
	XMM3
	XMM4
	XMM5
	XMM6
	XMM7
	OnStack
	RAX
)

const (
	intRegisterCount   = 6
	floatRegisterCount = 8
)

var registerNames = map[Location]string{
	RDI: "rdi", RSI: "rsi", RDX: "rdx", RCX: "rcx", R8: "r8", R9: "r9",
	XMM0: "xmm0", XMM1: "xmm1", XMM2: "xmm2", XMM3: "xmm3",
	XMM4: "xmm4", XMM5: "xmm5", XMM6: "xmm6", XMM7: "xmm7",
	RAX: "rax",
}

// Register returns the register name of a location.
func (l Location) Register() (string, error) {
	name, ok := registerNames[l]
	if !ok {
		return "", fmterr.Internalf("asked for register name of a non-register location")
	}
	return name, nil
}

// IsIntRegister reports whether the location is a general register.
func (l Location) IsIntRegister() bool {
	return (l >= RDI && l < RDI+intRegisterCount) || l == RAX
}

// IsFloatRegister reports whether the location is an xmm register.
func (l Location) IsFloatRegister() bool {
	return l >= XMM0 && l < XMM0+floatRegisterCount
}

// ArgLocation places one argument: its location and its index in the
// source argument list.
type ArgLocation struct {
	Loc Location
	Arg int
}

// CallingConvention describes how one function's arguments and return
// value travel. PopOrder lists the register arguments first, in register
// assignment order, then the stack arguments in source order; the
// generator evaluates arguments in the reverse of this order so register
// arguments end on top of the stack.
type CallingConvention struct {
	Args   []ir.Type
	Return ir.Type

	ReturnLocation Location
	VoidReturn     bool
	PopOrder       []ArgLocation
	StackArgBytes  int
	ReturnSize     int
}

// NewCallingConvention derives the convention for a signature. Integral
// and boolean arguments take the general registers, floats take the xmm
// registers, and aggregates or overflow arguments go on the stack. An
// aggregate return consumes rdi for the address of a caller-allocated
// slot.
func NewCallingConvention(args []ir.Type, ret ir.Type) CallingConvention {
	cc := CallingConvention{Args: args, Return: ret}

	nextInt, nextFloat := 0, 0
	cc.VoidReturn = ir.IsUnit(ret)
	if !cc.VoidReturn {
		switch ret.(type) {
		case ir.IntType, ir.BoolType:
			cc.ReturnLocation = RAX
		case ir.FloatType:
			cc.ReturnLocation = XMM0
		case ir.ArrayType, ir.TupleType:
			cc.ReturnLocation = OnStack
			cc.ReturnSize = StackSize(ret)
			nextInt++ // rdi carries the return slot address
		}
	}

	var registers, stack []ArgLocation
	for i, arg := range args {
		switch {
		case isIntegral(arg) && nextInt < intRegisterCount:
			registers = append(registers, ArgLocation{Loc: Location(nextInt), Arg: i})
			nextInt++
		case isFloat(arg) && nextFloat < floatRegisterCount:
			registers = append(registers, ArgLocation{Loc: XMM0 + Location(nextFloat), Arg: i})
			nextFloat++
		default:
			stack = append(stack, ArgLocation{Loc: OnStack, Arg: i})
			cc.StackArgBytes += StackSize(arg)
		}
	}
	cc.PopOrder = append(registers, stack...)
	return cc
}

func isIntegral(t ir.Type) bool {
	switch t.(type) {
	case ir.IntType, ir.BoolType:
		return true
	}
	return false
}

func isFloat(t ir.Type) bool {
	_, ok := t.(ir.FloatType)
	return ok
}
