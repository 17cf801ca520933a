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
	"strconv"

	"github.com/jpl-lang/jplc/build/ast"
	"github.com/jpl-lang/jplc/build/ir"
)

// genLoop lowers array and sum comprehensions. Both reserve one qword
// first (the accumulator for sum, the heap pointer for array), evaluate
// the bounds with positivity checks, and run a carry-style nest of
// counters. The indices live on the stack so the body can reference
// them; for an array result the bounds stay too, becoming the
// descriptor's lengths.
func (f *Function) genLoop(base *ast.ExprBase, bounds []ast.LoopBound, body ast.Expression, isSum bool) error {
	sumIsInt := false
	if isSum {
		f.emit("sub rsp, 8 ; 8 bytes for sum")
		f.frame.grow(8)
		_, sumIsInt = base.Type.(ir.IntType)
	} else {
		f.emit("sub rsp, 8 ; 8 bytes for array ptr")
		f.frame.grow(8)
	}

	for i := len(bounds) - 1; i >= 0; i-- {
		f.emit("; Adding " + bounds[i].Name + " bound to stack.")
		if err := f.genExpr(bounds[i].Bound); err != nil {
			return err
		}
		valid := f.asm.newJump()
		f.emit("mov rax, [rsp]")
		f.emit("cmp rax, 0")
		f.emit("jg " + valid)
		f.failAssertion("non-positive loop bound")
		f.emit(valid + ":")
	}

	indicesSize := len(bounds) * 8

	if isSum {
		f.emit("mov rax, 0")
		f.emit("mov [rsp + " + strconv.Itoa(indicesSize) + "], rax ; initialize sum")
	} else {
		elemSize := StackSize(body.Base().Type)

		f.emit("; Computing total size of heap memory to allocate.")
		f.emit("mov rdi, " + strconv.Itoa(elemSize) + " ; sizeof array element")
		for i := range bounds {
			noOverflow := f.asm.newJump()
			// The multiplies stay un-reduced here: the jno needs them.
			f.emit("imul rdi, [rsp + " + strconv.Itoa(i*8) + "] ; multiply by " + bounds[i].Bound.Source().Text)
			f.emit("jno " + noOverflow + " ; check that " + bounds[i].Name + "'s bound doesn't overflow")
			f.failAssertion("overflow computing array size")
			f.emit(noOverflow + ":")
		}

		aligned := f.alignCall(0)
		f.emit("call _jpl_alloc ; allocate array")
		f.unalignCall(aligned)
		f.emit("mov [rsp + " + strconv.Itoa(indicesSize) + "], rax ; Move array pointer to stack")
	}

	// Zeroed counters, pushed last to first so the first (outermost)
	// counter ends on top, registered as temporaries so the body can
	// reference them.
	for i := len(bounds) - 1; i >= 0; i-- {
		f.emit("mov rax, 0")
		f.emit("push rax ; adding " + bounds[i].Name + " to stack.")
		f.frame.grow(8)
		f.frame.addTemp(bounds[i].Name, f.frame.tempsSize())
	}

	loopBody := f.asm.newJump()
	f.emit(loopBody + ": ; loop body")
	if err := f.genExpr(body); err != nil {
		return err
	}

	if isSum {
		if sumIsInt {
			f.emit("pop rax")
			f.frame.shrink(8)
			f.emit("add [rsp + " + strconv.Itoa(indicesSize*2) + "], rax ; Add loop body to sum")
		} else {
			f.emit("movsd xmm0, [rsp]")
			f.emit("add rsp, 8")
			f.frame.shrink(8)
			f.emit("addsd xmm0, [rsp + " + strconv.Itoa(indicesSize*2) + "] ; Load sum")
			f.emit("movsd [rsp + " + strconv.Itoa(indicesSize*2) + "], xmm0 ; Save sum")
		}
	} else {
		if err := f.storeLoopElement(bounds, body, indicesSize); err != nil {
			return err
		}
	}

	// Increment the innermost counter; on reaching its bound reset it
	// and carry outward. The outermost counter reaching its bound ends
	// the loop.
	for i := len(bounds) - 1; i >= 0; i-- {
		name := bounds[i].Name
		f.emit("; Increment " + name)
		f.emit("add qword [rsp + " + strconv.Itoa(i*8) + "], 1")
		f.emit("mov rax, [rsp + " + strconv.Itoa(i*8) + "]")
		f.emit("cmp rax, [rsp + " + strconv.Itoa(i*8+indicesSize) + "]")
		f.emit("jl " + loopBody + " ; If " + name + " < bound, next iter")
		if i != 0 {
			f.emit("mov qword [rsp + " + strconv.Itoa(i*8) + "], 0 ; " + name + " = 0")
		}
	}

	f.emit("; end loop body")
	f.emit("add rsp, " + strconv.Itoa(indicesSize) + " ; free loop indices")
	f.frame.shrink(indicesSize)
	if isSum {
		// An array result keeps its bounds: they are the descriptor.
		f.emit("add rsp, " + strconv.Itoa(indicesSize) + " ; free loop bounds")
		f.frame.shrink(indicesSize)
	}
	return nil
}

// storeLoopElement copies the freshly computed body value into the heap
// at the current counters' row-major position. The body value sits on
// top of the stack, above the counters and bounds.
func (f *Function) storeLoopElement(bounds []ast.LoopBound, body ast.Expression, indicesSize int) error {
	elemSize := StackSize(body.Base().Type)

	if f.asm.optLevel < 1 {
		f.emit("mov rax, 0")
		for i := range bounds {
			f.emit("imul rax, [rsp + " + strconv.Itoa(elemSize+i*8+indicesSize) + "]")
			f.emit("add rax, [rsp + " + strconv.Itoa(elemSize+i*8) + "]")
		}
	} else {
		f.emit("mov rax, [rsp + " + strconv.Itoa(elemSize) + "]")
		for i := 1; i < len(bounds); i++ {
			value, known := f.constIntOperand(bounds[i].Bound)
			switch {
			case known && isPow2(value):
				power, _ := powerOfTwo(value)
				f.emit("shl rax, " + strconv.Itoa(power))
			case known && under32Bits(value):
				f.emit("imul rax, " + strconv.FormatInt(value, 10))
			default:
				f.emit("imul rax, [rsp + " + strconv.Itoa(elemSize+i*8+indicesSize) + "]")
			}
			f.emit("add rax, [rsp + " + strconv.Itoa(elemSize+i*8) + "]")
		}
	}

	if power, isPower := powerOfTwo(int64(elemSize)); f.asm.optLevel > 0 && isPower {
		f.emit("shl rax, " + strconv.Itoa(power) + " ; multiply by size of elements")
	} else {
		f.emit("imul rax, " + strconv.Itoa(elemSize) + " ; multiply by size of elements")
	}
	f.emit("add rax, [rsp + " + strconv.Itoa(elemSize+indicesSize*2) + "] ; add ptr for address in heap")

	f.emit("; Moving newly created element into array")
	f.moveBytes(elemSize, "rsp", "rax")
	f.emit("add rsp, " + strconv.Itoa(elemSize))
	f.frame.shrink(elemSize)
	return nil
}

func isPow2(v int64) bool {
	_, ok := powerOfTwo(v)
	return ok
}
