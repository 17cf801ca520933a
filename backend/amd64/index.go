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
	"github.com/jpl-lang/jplc/build/fmterr"
	"github.com/jpl-lang/jplc/build/ir"
)

// genTupleLit evaluates elements last to first so element 0 ends at the
// lowest address.
func (f *Function) genTupleLit(e *ast.TupleLitExpr) error {
	for i := len(e.Elems) - 1; i >= 0; i-- {
		if err := f.genExpr(e.Elems[i]); err != nil {
			return err
		}
	}
	return nil
}

// genArrayLit evaluates elements onto the stack, allocates heap space,
// copies them over, and leaves the array descriptor: length on top of the
// heap pointer.
func (f *Function) genArrayLit(e *ast.ArrayLitExpr) error {
	arrayType, ok := e.Type.(ir.ArrayType)
	if !ok {
		return fmterr.Internalf("array literal %q with non-array type", e.Text)
	}
	elemSize := StackSize(arrayType.Elem)
	heapSize := elemSize * len(e.Elems)
	if elemSize != 0 && heapSize/elemSize != len(e.Elems) {
		return fmterr.Internalf("array literal %q too big to store", e.Text)
	}

	for i := len(e.Elems) - 1; i >= 0; i-- {
		if err := f.genExpr(e.Elems[i]); err != nil {
			return err
		}
	}

	f.emit("mov rdi, " + strconv.Itoa(heapSize))
	aligned := f.alignCall(0)
	f.emit("call _jpl_alloc")
	f.unalignCall(aligned)

	f.emit("; moving " + strconv.Itoa(heapSize) + " from rsp to rax onto the heap.")
	for i := heapSize/8 - 1; i >= 0; i-- {
		offset := strconv.Itoa(i * 8)
		f.emit("mov r10, [rsp + " + offset + "]")
		f.emit("mov [rax + " + offset + "], r10")
	}

	f.emit("add rsp, " + strconv.Itoa(heapSize))
	f.frame.shrink(heapSize)
	f.emit("push rax")
	f.frame.grow(8)
	f.emit("mov rax, " + strconv.Itoa(len(e.Elems)))
	f.emit("push rax")
	f.frame.grow(8)
	return nil
}

// genTupleIndex evaluates the tuple and slides the selected element down
// to the base of the tuple's stack region, discarding the rest.
func (f *Function) genTupleIndex(e *ast.TupleIndexExpr) error {
	if err := f.genExpr(e.Tuple); err != nil {
		return err
	}

	tupleType, ok := e.Tuple.Base().Type.(ir.TupleType)
	if !ok {
		return fmterr.Internalf("tuple index %q into non-tuple", e.Text)
	}
	totalSize := StackSize(tupleType)
	elemSize := StackSize(tupleType.Elems[e.Index])
	elemOffset := 0
	for i := int64(0); i < e.Index; i++ {
		elemOffset += StackSize(tupleType.Elems[i])
	}
	removed := totalSize - elemSize

	f.emit("; moving " + strconv.Itoa(elemSize) + " bytes from rsp + " + strconv.Itoa(elemOffset) + " to rsp + " + strconv.Itoa(removed))
	for i := elemSize/8 - 1; i >= 0; i-- {
		f.emit("mov r10, [rsp + " + strconv.Itoa(elemOffset+i*8) + "]")
		f.emit("mov [rsp + " + strconv.Itoa(removed+i*8) + "], r10")
	}

	f.emit("add rsp, " + strconv.Itoa(removed))
	f.frame.shrink(removed)
	return nil
}

// genArrayIndex bounds-checks every index, computes the row-major offset,
// and copies the element to the stack. At optimization level 1 and above
// a variable array reuses its in-scope storage instead of being copied.
func (f *Function) genArrayIndex(e *ast.ArrayIndexExpr) error {
	variable, isVariable := e.Array.(*ast.VarExpr)
	reuseStorage := f.asm.optLevel > 0 && isVariable && f.frame.has(variable.Text)

	if !reuseStorage {
		if err := f.genExpr(e.Array); err != nil {
			return err
		}
	}

	// Indices in reverse so the first index ends on top.
	for i := len(e.Indices) - 1; i >= 0; i-- {
		if err := f.genExpr(e.Indices[i]); err != nil {
			return err
		}
	}

	indicesSize := len(e.Indices) * 8
	gap := indicesSize
	if reuseStorage {
		gap = f.frame.size - f.frame.offset(variable.Text)
	}

	for i := range e.Indices {
		negOK := f.asm.newJump()
		largeOK := f.asm.newJump()

		f.emit("mov rax, [rsp + " + strconv.Itoa(i*8) + "]")
		f.emit("cmp rax, 0")
		f.emit("jge " + negOK)
		f.failAssertion("negative array index")
		f.emit(negOK + ":")

		f.emit("cmp rax, [rsp + " + strconv.Itoa(i*8+gap) + "]")
		f.emit("jl " + largeOK)
		f.failAssertion("index too large")
		f.emit(largeOK + ":")
	}

	// Row-major linearization. Level 0 starts the accumulator at zero;
	// above that the first index seeds it, and known lengths strength-
	// reduce the multiplies.
	cpLengths := f.arrayLengthFacts(e.Array)
	switch {
	case f.asm.optLevel < 1:
		f.emit("mov rax, 0")
		for i := range e.Indices {
			f.emit("imul rax, [rsp + " + strconv.Itoa(i*8+gap) + "]")
			f.emit("add rax, [rsp + " + strconv.Itoa(i*8) + "]")
		}
	default:
		f.emit("mov rax, [rsp]")
		for i := 1; i < len(e.Indices); i++ {
			emitted := false
			if i < len(cpLengths) {
				if length, ok := cpLengths[i].(*ast.IntValue); ok {
					if power, isPower := powerOfTwo(length.V); isPower {
						f.emit("shl rax, " + strconv.Itoa(power))
					} else {
						f.emit("imul rax, " + strconv.FormatInt(length.V, 10))
					}
					emitted = true
				}
			}
			if !emitted {
				f.emit("imul rax, [rsp + " + strconv.Itoa(i*8+gap) + "]")
			}
			f.emit("add rax, [rsp + " + strconv.Itoa(i*8) + "]")
		}
	}

	elemSize := StackSize(e.Type)
	if power, isPower := powerOfTwo(int64(elemSize)); f.asm.optLevel > 0 && isPower {
		f.emit("shl rax, " + strconv.Itoa(power) + " ; multiply by size of elements")
	} else {
		f.emit("imul rax, " + strconv.Itoa(elemSize) + " ; multiply by size of elements")
	}
	f.emit("add rax, [rsp + " + strconv.Itoa(indicesSize+gap) + "] ; add ptr for address in heap")

	// Free the indices, and the array copy when one was made.
	if !reuseStorage {
		for range e.Indices {
			f.emit("add rsp, 8")
			f.frame.shrink(8)
		}
		arrayBytes := StackSize(e.Array.Base().Type)
		f.emit("add rsp, " + strconv.Itoa(arrayBytes))
		f.frame.shrink(arrayBytes)
	} else {
		f.emit("add rsp, " + strconv.Itoa(indicesSize))
		f.frame.shrink(indicesSize)
	}

	f.emit("sub rsp, " + strconv.Itoa(elemSize))
	f.frame.grow(elemSize)
	f.emit("; Extracting array element of " + strconv.Itoa(elemSize) + " bytes from rax to rsp")
	f.moveBytes(elemSize, "rax", "rsp")
	return nil
}

// arrayLengthFacts returns the constant-propagation length facts of an
// array expression at optimization level 2 and above.
func (f *Function) arrayLengthFacts(e ast.Expression) []ast.CPValue {
	if f.asm.optLevel < 2 {
		return nil
	}
	if v, ok := e.Base().CP.(*ast.ArrayValue); ok {
		return v.Lengths
	}
	return nil
}
