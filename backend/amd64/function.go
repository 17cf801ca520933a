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
	"strings"

	"github.com/jpl-lang/jplc/build/ast"
	"github.com/jpl-lang/jplc/build/fmterr"
	"github.com/jpl-lang/jplc/build/ir"
)

// Function is one emitted symbol: jpl_main for the top level, or one JPL
// function. Code lines carry no indentation; String applies the layout.
type Function struct {
	name   string
	asm    *Assembly
	code   []string
	isMain bool
	frame  frame
	global *frame
}

// newMainFunction starts jpl_main. Its frame opens at 8 bytes for the
// saved r12, and the runtime passes argnum and args just above the saved
// frame pointer.
func newMainFunction(a *Assembly) *Function {
	f := &Function{
		name:   "jpl_main",
		asm:    a,
		isMain: true,
		frame:  newFrame(8),
	}
	f.global = &f.frame
	f.frame.addTemp("argnum", -24)
	f.frame.addTemp("args", -24)
	return f
}

// newFunction lowers one JPL function: the prologue pins every parameter
// to a frame offset, then the statements run, and a trailing epilogue
// covers void functions with no return statement.
func newFunction(cmd *ast.FnCmd, a *Assembly, global *frame) (*Function, error) {
	f := &Function{
		name:   cmd.Name,
		asm:    a,
		frame:  newFrame(0),
		global: global,
	}
	cc, err := a.convention(cmd.Name)
	if err != nil {
		return nil, err
	}

	stackArgOffset := -16
	if !cc.VoidReturn && cc.ReturnLocation == OnStack {
		f.emit("push rdi ; $return")
		f.frame.grow(8)
		f.frame.addTemp("$return", f.frame.tempsSize())
	}

	for _, data := range cc.PopOrder {
		binding := cmd.Params[data.Arg]
		bindingType := cc.Args[data.Arg]
		switch {
		case data.Loc.IsIntRegister():
			reg, err := data.Loc.Register()
			if err != nil {
				return nil, err
			}
			f.emit("push " + reg)
			f.frame.grow(8)
			f.frame.addBinding(binding, bindingType, f.frame.tempsSize())
		case data.Loc.IsFloatRegister():
			reg, err := data.Loc.Register()
			if err != nil {
				return nil, err
			}
			f.emit("sub rsp, 8")
			f.frame.grow(8)
			f.emit("movsd [rsp], " + reg)
			f.frame.addBinding(binding, bindingType, f.frame.tempsSize())
		default:
			f.frame.addBinding(binding, bindingType, stackArgOffset)
			stackArgOffset -= StackSize(bindingType)
		}
	}

	hadReturn := false
	for _, stmt := range cmd.Body {
		returned, err := f.genStmt(stmt, cc)
		if err != nil {
			return nil, err
		}
		hadReturn = hadReturn || returned
	}
	if !hadReturn {
		if err := f.genEpilogue(cc); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Function) emit(line string) {
	f.code = append(f.code, line)
}

// alignCall pads the stack when a call would find rsp misaligned once the
// pending on-stack argument bytes are counted. It reports whether padding
// was inserted so the caller can undo it.
func (f *Function) alignCall(stackArgBytes int) bool {
	if (f.frame.size+stackArgBytes)%16 == 0 {
		return false
	}
	f.emit("sub rsp, 8 ; align stack")
	f.frame.grow(8)
	return true
}

func (f *Function) unalignCall(aligned bool) {
	if aligned {
		f.emit("add rsp, 8 ; undo alignment")
		f.frame.shrink(8)
	}
}

// failAssertion emits an aligned call to the runtime assertion failure
// with a message from the constant pool.
func (f *Function) failAssertion(message string) {
	aligned := f.alignCall(0)
	label := f.asm.ConstantString(message)
	f.emit("lea rdi, [rel " + label + "] ; " + message)
	f.emit("call _fail_assertion")
	f.unalignCall(aligned)
}

// moveBytes copies a value qword by qword between two addressed regions.
func (f *Function) moveBytes(n int, from, to string) {
	for i := n - 8; i >= 0; i -= 8 {
		f.emit("mov r10, [" + from + " + " + strconv.Itoa(i) + "]")
		f.emit("mov [" + to + " + " + strconv.Itoa(i) + "], r10")
	}
}

func (f *Function) genCmd(cmd ast.Command) error {
	switch c := cmd.(type) {
	case *ast.ShowCmd:
		return f.genShowCmd(c)
	case *ast.LetCmd:
		return f.genLetCmd(c)
	case *ast.ReadCmd:
		return f.genReadCmd(c)
	case *ast.FnCmd:
		sub, err := newFunction(c, f.asm, f.global)
		if err != nil {
			return err
		}
		f.asm.addFunction(sub)
		return nil
	case *ast.AssertCmd:
		return f.genAssert(c.Cond, c.Message)
	case *ast.TypeCmd:
		return nil
	case *ast.PrintCmd:
		f.genPrintCmd(c)
		return nil
	case *ast.WriteCmd:
		return f.genWriteCmd(c)
	case *ast.TimeCmd:
		return f.genTimeCmd(c)
	}
	return fmterr.Internalf("unrecognized command %q", cmd.Source().Text)
}

func (f *Function) genShowCmd(c *ast.ShowCmd) error {
	valueType := c.Value.Base().Type
	argBytes := StackSize(valueType)

	aligned := f.alignCall(argBytes)
	if err := f.genExpr(c.Value); err != nil {
		return err
	}
	f.emit("; " + c.Text + " | line: " + strconv.Itoa(c.Line))

	typeString := "(" + valueType.String() + ")"
	label := f.asm.ConstantString(typeString)
	f.emit("lea rdi, [rel " + label + "] ; " + typeString)
	f.emit("lea rsi, [rsp]")
	f.emit("call _show")
	f.emit("add rsp, " + strconv.Itoa(argBytes))
	f.frame.shrink(argBytes)
	f.unalignCall(aligned)
	return nil
}

func (f *Function) genLetCmd(c *ast.LetCmd) error {
	if err := f.genExpr(c.Value); err != nil {
		return err
	}
	f.emit("; " + c.Text + " | line: " + strconv.Itoa(c.Line))
	f.frame.addLValue(c.LValue, c.Value.Base().Type, f.frame.tempsSize())
	return nil
}

func (f *Function) genReadCmd(c *ast.ReadCmd) error {
	imageSize := StackSize(ir.Image())
	f.frame.grow(imageSize)

	f.emit("; " + c.Text + " | line: " + strconv.Itoa(c.Line))
	f.emit("sub rsp, " + strconv.Itoa(imageSize))
	f.emit("lea rdi, [rsp]")
	aligned := f.alignCall(0)
	label := f.asm.ConstantString(c.FileName.Value())
	f.emit("lea rsi, [rel " + label + "] ; " + c.FileName.Value())
	f.emit("call _read_image")
	f.unalignCall(aligned)
	f.frame.addArgument(c.Into, f.frame.tempsSize())
	return nil
}

// genAssert lowers the assert command and statement alike: test the
// condition and fail through the runtime when it is zero.
func (f *Function) genAssert(cond ast.Expression, message *ast.StringLit) error {
	if err := f.genExpr(cond); err != nil {
		return err
	}
	f.emit("pop rax")
	f.frame.shrink(8)
	f.emit("cmp rax, 0 ; check assert")
	jump := f.asm.newJump()
	f.emit("jne " + jump)
	f.failAssertion(message.Value())
	f.emit(jump + ":")
	return nil
}

func (f *Function) genPrintCmd(c *ast.PrintCmd) {
	label := f.asm.ConstantString(c.Message.Value())
	f.emit("lea rdi, [rel " + label + "] ; " + c.Message.Value())
	aligned := f.alignCall(0)
	f.emit("call _print ; print " + c.Message.Value())
	f.unalignCall(aligned)
}

func (f *Function) genWriteCmd(c *ast.WriteCmd) error {
	imageSize := StackSize(ir.Image())
	aligned := f.alignCall(imageSize)
	if err := f.genExpr(c.Value); err != nil {
		return err
	}
	label := f.asm.ConstantString(c.FileName.Value())
	f.emit("lea rdi, [rel " + label + "] ; " + c.FileName.Value())
	f.emit("call _write_image ; " + c.Text)
	f.emit("add rsp, " + strconv.Itoa(imageSize))
	f.frame.shrink(imageSize)
	f.unalignCall(aligned)
	return nil
}

func (f *Function) genTimeCmd(c *ast.TimeCmd) error {
	f.emit("; Timing call to " + c.Command.Source().Text)
	aligned := f.alignCall(0)
	f.emit("call _get_time ; getting pre-op time")
	f.unalignCall(aligned)
	f.emit("sub rsp, 8")
	f.frame.grow(8)
	f.emit("movsd [rsp], xmm0 ; collecting _get_time return")

	startSize := f.frame.size

	if err := f.genCmd(c.Command); err != nil {
		return err
	}

	aligned = f.alignCall(0)
	f.emit("call _get_time ; getting post-op time")
	f.unalignCall(aligned)
	f.emit("sub rsp, 8")
	f.frame.grow(8)
	f.emit("movsd [rsp], xmm0 ; collecting _get_time return")

	f.emit("movsd xmm0, [rsp] ; end time")
	f.emit("add rsp, 8")
	f.frame.shrink(8)
	endSize := f.frame.size
	f.emit("movsd xmm1, [rsp + " + strconv.Itoa(endSize-startSize) + "] ; start time")
	f.emit("subsd xmm0, xmm1 ; op time = end - start")
	aligned = f.alignCall(0)
	f.emit("call _print_time")
	f.unalignCall(aligned)
	return nil
}

// genStmt reports whether the statement was a return.
func (f *Function) genStmt(stmt ast.Statement, cc CallingConvention) (bool, error) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		if err := f.genExpr(s.Value); err != nil {
			return false, err
		}
		f.emit("; " + s.Text + " | line: " + strconv.Itoa(s.Line))
		f.frame.addLValue(s.LValue, s.Value.Base().Type, f.frame.tempsSize())
		return false, nil
	case *ast.AssertStmt:
		return false, f.genAssert(s.Cond, s.Message)
	case *ast.ReturnStmt:
		if err := f.genExpr(s.Value); err != nil {
			return false, err
		}
		return true, f.genEpilogue(cc)
	}
	return false, fmterr.Internalf("unrecognized statement %q", stmt.Source().Text)
}

// genEpilogue moves the value on top of the stack to the return location,
// releases the locals, and returns. The emitted code leaves rsp at its
// entry value; the symbolic stack size is not reset.
func (f *Function) genEpilogue(cc CallingConvention) error {
	if !cc.VoidReturn {
		switch cc.ReturnLocation {
		case RAX:
			f.emit("pop rax")
			f.frame.shrink(8)
		case XMM0:
			f.emit("movsd xmm0, [rsp]")
			f.emit("add rsp, 8")
			f.frame.shrink(8)
		default:
			f.emit("mov rax, [rbp - " + strconv.Itoa(f.frame.offset("$return")) + "] ; Address to write return value into")
			f.emit("; Moving " + strconv.Itoa(cc.ReturnSize) + " bytes from rsp to rax")
			f.moveBytes(cc.ReturnSize, "rsp", "rax")
		}
	}

	f.emit(";Remove temporary variables")
	f.emit("add rsp, " + strconv.Itoa(f.frame.tempsSize()) + "\n")
	f.emit("; Function Return")
	f.emit("pop rbp")
	f.emit("ret")
	return nil
}

// String renders the function: its label pair, the prologue, and the
// recorded code. Comment lines open a paragraph, label lines stay flush
// left, and everything else is indented.
func (f *Function) String() string {
	var b strings.Builder
	b.WriteString(f.name + ":\n_" + f.name + ":\n")
	b.WriteString("; Function Stack Setup\n\tpush rbp\n\tmov rbp, rsp\n")
	if f.isMain {
		b.WriteString("\n; Setting Up r12\n\tpush r12\n\tmov r12, rbp\n")
	}
	for _, line := range f.code {
		switch line[0] {
		case ';':
			b.WriteString("\n")
		case '.':
		default:
			b.WriteString("\t")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if f.isMain {
		if f.frame.tempsSize() != 0 {
			b.WriteString("\n;Remove temporary variables\n\tadd rsp, " + strconv.Itoa(f.frame.tempsSize()) + "\n")
		}
		b.WriteString("\n; Restore r12\n\tpop r12\n")
		b.WriteString("\n; Function Return\n\tpop rbp\n\tret\n")
	}
	return b.String()
}
