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

// genExpr evaluates an expression, leaving its value on top of the stack.
func (f *Function) genExpr(e ast.Expression) error {
	switch ex := e.(type) {
	case *ast.IntExpr:
		f.pushConstInt(ex.V, "")
		return nil
	case *ast.FloatExpr:
		label := f.asm.ConstantFloat(ex.V)
		f.emit("mov rax, [rel " + label + "] ; " + strconv.FormatFloat(ex.V, 'f', -1, 64))
		f.emit("push rax")
		f.frame.grow(8)
		return nil
	case *ast.TrueExpr:
		f.pushConstInt(1, "true")
		return nil
	case *ast.FalseExpr:
		f.pushConstInt(0, "false")
		return nil
	case *ast.UnopExpr:
		return f.genUnop(ex)
	case *ast.BinopExpr:
		return f.genBinop(ex)
	case *ast.TupleLitExpr:
		return f.genTupleLit(ex)
	case *ast.ArrayLitExpr:
		return f.genArrayLit(ex)
	case *ast.TupleIndexExpr:
		return f.genTupleIndex(ex)
	case *ast.ArrayIndexExpr:
		return f.genArrayIndex(ex)
	case *ast.VarExpr:
		return f.genVariable(ex)
	case *ast.CallExpr:
		return f.genCall(ex)
	case *ast.IfExpr:
		return f.genIf(ex)
	case *ast.ArrayLoopExpr:
		return f.genLoop(&ex.ExprBase, ex.Bounds, ex.Body, false)
	case *ast.SumLoopExpr:
		return f.genLoop(&ex.ExprBase, ex.Bounds, ex.Body, true)
	}
	return fmterr.Internalf("unrecognized expression %q", e.Source().Text)
}

// pushConstInt pushes an integer: directly as an immediate when it is
// non-negative and below 2^31 at optimization level 1 and above, through
// the constant pool otherwise.
func (f *Function) pushConstInt(v int64, comment string) {
	text := strconv.FormatInt(v, 10)
	note := text
	if comment != "" {
		note = text + " " + comment
	}
	if f.asm.optLevel > 0 && under32Bits(v) {
		line := "push qword " + text
		if comment != "" {
			line += " ; " + comment
		}
		f.emit(line)
	} else {
		label := f.asm.ConstantInt(v)
		f.emit("mov rax, [rel " + label + "] ; " + note)
		f.emit("push rax")
	}
	f.frame.grow(8)
}

func under32Bits(x int64) bool {
	return x&((1<<31)-1) == x
}

// powerOfTwo reports the exponent of a non-negative power of two.
func powerOfTwo(x int64) (int, bool) {
	if x <= 0 || x&(x-1) != 0 {
		return 0, false
	}
	power := 0
	for int64(1)<<power < x {
		power++
	}
	return power, true
}

// constIntOperand returns the statically known value of an expression for
// peephole purposes: the literal itself at optimization level 1, the
// constant-propagation fact at level 2 and above.
func (f *Function) constIntOperand(e ast.Expression) (int64, bool) {
	switch f.asm.optLevel {
	case 0:
		return 0, false
	case 1:
		if lit, ok := e.(*ast.IntExpr); ok {
			return lit.V, true
		}
	default:
		if v, ok := e.Base().CP.(*ast.IntValue); ok {
			return v.V, true
		}
	}
	return 0, false
}

func (f *Function) genUnop(e *ast.UnopExpr) error {
	if err := f.genExpr(e.X); err != nil {
		return err
	}
	f.emit("; " + e.Text)
	switch e.Op {
	case ast.Neg:
		switch e.X.Base().Type.(type) {
		case ir.IntType:
			f.emit("pop rax")
			f.frame.shrink(8)
			f.emit("neg rax")
			f.emit("push rax")
			f.frame.grow(8)
		case ir.FloatType:
			f.emit("movsd xmm1, [rsp]")
			f.emit("add rsp, 8")
			f.frame.shrink(8)
			f.emit("pxor xmm0, xmm0")
			f.emit("subsd xmm0, xmm1")
			f.emit("sub rsp, 8")
			f.frame.grow(8)
			f.emit("movsd [rsp], xmm0")
		default:
			return fmterr.Internalf("negation of non-numeric %q", e.Text)
		}
		return nil
	case ast.Not:
		f.emit("pop rax")
		f.frame.shrink(8)
		f.emit("xor rax, 1")
		f.emit("push rax")
		f.frame.grow(8)
		return nil
	}
	return fmterr.Internalf("unrecognized unary operation %q", e.Text)
}

// intArgs evaluates both operands and pops them: lhs into rax, rhs into
// r10. The right side is evaluated first so the left ends on top.
func (f *Function) intArgs(e *ast.BinopExpr) error {
	if err := f.genExpr(e.RHS); err != nil {
		return err
	}
	if err := f.genExpr(e.LHS); err != nil {
		return err
	}
	f.emit("; " + e.Text)
	f.emit("pop rax")
	f.frame.shrink(8)
	f.emit("pop r10")
	f.frame.shrink(8)
	return nil
}

// floatArgs evaluates both operands into xmm0 (lhs) and xmm1 (rhs).
func (f *Function) floatArgs(e *ast.BinopExpr) error {
	if err := f.genExpr(e.RHS); err != nil {
		return err
	}
	if err := f.genExpr(e.LHS); err != nil {
		return err
	}
	f.emit("; " + e.Text)
	f.emit("movsd xmm0, [rsp]")
	f.emit("add rsp, 8")
	f.frame.shrink(8)
	f.emit("movsd xmm1, [rsp]")
	f.emit("add rsp, 8")
	f.frame.shrink(8)
	return nil
}

// pushFloatResult stores xmm0 as the expression result.
func (f *Function) pushFloatResult() {
	f.emit("sub rsp, 8")
	f.frame.grow(8)
	f.emit("movsd [rsp], xmm0")
}

func (f *Function) pushIntResult() {
	f.emit("push rax")
	f.frame.grow(8)
}

func (f *Function) genBinop(e *ast.BinopExpr) error {
	switch e.Op {
	case ast.And, ast.Or:
		return f.genShortCircuit(e)
	case ast.Add:
		return f.genArith(e, "add rax, r10", "addsd xmm0, xmm1")
	case ast.Sub:
		return f.genArith(e, "sub rax, r10", "subsd xmm0, xmm1")
	case ast.Mul:
		return f.genMul(e)
	case ast.Div:
		return f.genDivMod(e, false)
	case ast.Mod:
		return f.genDivMod(e, true)
	case ast.Lt:
		return f.genCompare(e, "setl", "cmpltsd xmm0, xmm1", "xmm0")
	case ast.Gt:
		return f.genCompare(e, "setg", "cmpltsd xmm1, xmm0", "xmm1")
	case ast.Eq:
		return f.genCompare(e, "sete", "cmpeqsd xmm0, xmm1", "xmm0")
	case ast.Ne:
		return f.genCompare(e, "setne", "cmpneqsd xmm0, xmm1", "xmm0")
	case ast.Le:
		return f.genCompare(e, "setle", "cmplesd xmm0, xmm1", "xmm0")
	case ast.Ge:
		return f.genCompare(e, "setge", "cmplesd xmm1, xmm0", "xmm1")
	}
	return fmterr.Internalf("unrecognized binop operation %q", e.Text)
}

func (f *Function) genArith(e *ast.BinopExpr, intOp, floatOp string) error {
	switch e.Base().Type.(type) {
	case ir.IntType:
		if err := f.intArgs(e); err != nil {
			return err
		}
		f.emit(intOp)
		f.pushIntResult()
		return nil
	case ir.FloatType:
		if err := f.floatArgs(e); err != nil {
			return err
		}
		f.emit(floatOp)
		f.pushFloatResult()
		return nil
	}
	return fmterr.Internalf("arithmetic on non-numeric %q", e.Text)
}

func (f *Function) genMul(e *ast.BinopExpr) error {
	switch e.Base().Type.(type) {
	case ir.IntType:
		if done, err := f.mulByPowerOfTwo(e); done || err != nil {
			return err
		}
		if err := f.intArgs(e); err != nil {
			return err
		}
		f.emit("imul rax, r10")
		f.pushIntResult()
		return nil
	case ir.FloatType:
		if err := f.floatArgs(e); err != nil {
			return err
		}
		f.emit("mulsd xmm0, xmm1")
		f.pushFloatResult()
		return nil
	}
	return fmterr.Internalf("multiplication on non-numeric %q", e.Text)
}

// mulByPowerOfTwo strength-reduces an integer multiplication when either
// operand is a known power of two: a shift, or nothing at all for one.
func (f *Function) mulByPowerOfTwo(e *ast.BinopExpr) (bool, error) {
	if v, known := f.constIntOperand(e.LHS); known && v != 0 {
		if power, isPower := powerOfTwo(v); isPower {
			return true, f.shiftOperand(e, e.RHS, power)
		}
	}
	if v, known := f.constIntOperand(e.RHS); known && v != 0 {
		if power, isPower := powerOfTwo(v); isPower {
			return true, f.shiftOperand(e, e.LHS, power)
		}
	}
	return false, nil
}

// shiftOperand evaluates the non-constant operand and shifts it. A shift
// by zero (multiplication by one) emits nothing.
func (f *Function) shiftOperand(e *ast.BinopExpr, other ast.Expression, power int) error {
	if err := f.genExpr(other); err != nil {
		return err
	}
	if power == 0 {
		return nil
	}
	f.emit("; " + e.Text)
	f.emit("pop rax")
	f.frame.shrink(8)
	f.emit("shl rax, " + strconv.Itoa(power))
	f.pushIntResult()
	return nil
}

func (f *Function) genDivMod(e *ast.BinopExpr, isMod bool) error {
	switch e.Base().Type.(type) {
	case ir.IntType:
		if v, known := f.constIntOperand(e.RHS); known && v == 1 {
			// Division by one is the dividend; modulo by one is zero.
			if err := f.genExpr(e.LHS); err != nil {
				return err
			}
			if isMod {
				f.emit("; " + e.Text)
				f.emit("pop rax")
				f.frame.shrink(8)
				f.pushConstInt(0, "mod by one")
			}
			return nil
		}
		if err := f.intArgs(e); err != nil {
			return err
		}
		check := "divide by zero"
		if isMod {
			check = "mod by zero"
		}
		f.emit("cmp r10, 0 ; check for " + check)
		jump := f.asm.newJump()
		f.emit("jne " + jump)
		f.failAssertion(check)
		f.emit(jump + ":")
		f.emit("cqo")
		f.emit("idiv r10")
		if isMod {
			f.emit("mov rax, rdx")
		}
		f.pushIntResult()
		return nil
	case ir.FloatType:
		if err := f.floatArgs(e); err != nil {
			return err
		}
		if isMod {
			aligned := f.alignCall(0)
			f.emit("call _fmod")
			f.unalignCall(aligned)
		} else {
			f.emit("divsd xmm0, xmm1")
		}
		f.pushFloatResult()
		return nil
	}
	return fmterr.Internalf("division on non-numeric %q", e.Text)
}

// genCompare emits an integer or float comparison producing a 0/1 value.
// The operand order of the float instruction encodes the direction, and
// resultReg names the xmm holding the mask afterwards.
func (f *Function) genCompare(e *ast.BinopExpr, setInstr, floatCmp, resultReg string) error {
	switch e.LHS.Base().Type.(type) {
	case ir.IntType, ir.BoolType:
		if err := f.intArgs(e); err != nil {
			return err
		}
		f.emit("cmp rax, r10")
		f.emit(setInstr + " al")
		f.emit("and rax, 1")
		f.pushIntResult()
		return nil
	case ir.FloatType:
		if err := f.floatArgs(e); err != nil {
			return err
		}
		f.emit(floatCmp)
		f.emit("movq rax, " + resultReg)
		f.emit("and rax, 1")
		f.pushIntResult()
		return nil
	}
	return fmterr.Internalf("comparison on aggregate %q", e.Text)
}

// genShortCircuit lowers && and ||: the right side only runs when the
// left did not already decide the result.
func (f *Function) genShortCircuit(e *ast.BinopExpr) error {
	f.emit("; " + e.Text)
	jump := "jne "
	if e.Op == ast.And {
		jump = "je "
	}
	if err := f.genExpr(e.LHS); err != nil {
		return err
	}
	f.emit("pop rax")
	f.frame.shrink(8)
	f.emit("cmp rax, 0")
	skip := f.asm.newJump()
	f.emit(jump + skip)
	if err := f.genExpr(e.RHS); err != nil {
		return err
	}
	f.emit("pop rax")
	f.frame.shrink(8)
	f.emit(skip + ":")
	f.emit("push rax")
	f.frame.grow(8)
	return nil
}

// genVariable copies a named value to the top of the stack. Names absent
// from this function's frame are top-level locals addressed through r12.
func (f *Function) genVariable(e *ast.VarExpr) error {
	if f.asm.optLevel > 1 {
		if v, ok := e.CP.(*ast.IntValue); ok && under32Bits(v.V) {
			f.pushConstInt(v.V, e.Text)
			return nil
		}
	}
	base, fr := "rbp", &f.frame
	if !f.frame.has(e.Text) {
		base, fr = "r12", f.global
	}
	offset := fr.offset(e.Text)
	bytes := StackSize(e.Type)
	f.emit("sub rsp, " + strconv.Itoa(bytes))
	f.frame.grow(bytes)
	f.emit("; Moving " + strconv.Itoa(bytes) + " bytes from " + base + " - " + strconv.Itoa(offset) + " to rsp for temp " + e.Text)
	for i := bytes - 8; i >= 0; i -= 8 {
		f.emit("mov r10, [" + base + " - " + strconv.Itoa(offset) + " + " + strconv.Itoa(i) + "]")
		f.emit("mov [rsp + " + strconv.Itoa(i) + "], r10")
	}
	return nil
}

// genCall lowers a call: reserve the aggregate-return slot, align,
// evaluate arguments so register arguments end nearest the top, pop them
// into their registers, call, release stack arguments, collect the
// return.
func (f *Function) genCall(e *ast.CallExpr) error {
	cc, err := f.asm.convention(e.Func)
	if err != nil {
		return err
	}

	aggregateReturn := !cc.VoidReturn && cc.ReturnLocation == OnStack
	if aggregateReturn {
		f.emit("sub rsp, " + strconv.Itoa(cc.ReturnSize) + " ; Allocating space for return")
		f.frame.grow(cc.ReturnSize)
	}

	aligned := f.alignCall(cc.StackArgBytes)

	for i := len(cc.PopOrder) - 1; i >= 0; i-- {
		if err := f.genExpr(e.Args[cc.PopOrder[i].Arg]); err != nil {
			return err
		}
	}

	for _, data := range cc.PopOrder {
		if data.Loc == OnStack {
			break
		}
		reg, err := data.Loc.Register()
		if err != nil {
			return err
		}
		if data.Loc.IsIntRegister() {
			f.emit("pop " + reg)
			f.frame.shrink(8)
		} else {
			f.emit("movsd " + reg + ", [rsp]")
			f.emit("add rsp, 8")
			f.frame.shrink(8)
		}
	}

	if aggregateReturn {
		distance := cc.StackArgBytes
		if aligned {
			distance += 8
		}
		f.emit("lea rdi, [rsp + " + strconv.Itoa(distance) + "] ; putting return into rdi")
	}

	f.emit("call _" + e.Func)

	for _, data := range cc.PopOrder {
		if data.Loc != OnStack {
			continue
		}
		bytes := StackSize(cc.Args[data.Arg])
		f.emit("add rsp, " + strconv.Itoa(bytes))
		f.frame.shrink(bytes)
	}

	f.unalignCall(aligned)

	if !cc.VoidReturn {
		switch {
		case cc.ReturnLocation.IsIntRegister():
			reg, err := cc.ReturnLocation.Register()
			if err != nil {
				return err
			}
			f.emit("push " + reg)
			f.frame.grow(8)
		case cc.ReturnLocation.IsFloatRegister():
			reg, err := cc.ReturnLocation.Register()
			if err != nil {
				return err
			}
			f.emit("sub rsp, 8")
			f.emit("movsd [rsp], " + reg)
			f.frame.grow(8)
		}
	}
	return nil
}

func (f *Function) genIf(e *ast.IfExpr) error {
	if err := f.genExpr(e.Cond); err != nil {
		return err
	}

	// if c then 1 else 0 is the condition itself.
	if thenV, ok := f.constIntOperand(e.Then); ok && thenV == 1 {
		if elseV, ok := f.constIntOperand(e.Else); ok && elseV == 0 {
			return nil
		}
	}

	f.emit("pop rax")
	f.frame.shrink(8)
	f.emit("cmp rax, 0 ; " + e.Text)

	elseJump := f.asm.newJump()
	endJump := f.asm.newJump()

	f.emit("je " + elseJump)
	if err := f.genExpr(e.Then); err != nil {
		return err
	}
	f.emit("jmp " + endJump)

	// Only one branch runs; the symbolic stack counts one result.
	f.frame.shrink(StackSize(e.Base().Type))

	f.emit(elseJump + ":")
	if err := f.genExpr(e.Else); err != nil {
		return err
	}
	f.emit(endJump + ":")
	return nil
}
