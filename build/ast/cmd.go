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

package ast

import (
	"strconv"
	"strings"
)

// StringLit is a string literal. Its text keeps the surrounding quotes.
type StringLit struct {
	Src
}

// Value returns the literal's contents without the quotes.
func (s *StringLit) Value() string {
	return s.Text[1 : len(s.Text)-1]
}

func (s *StringLit) String() string { return s.Text }

type (
	// ReadCmd is read image <string> to <argument>.
	ReadCmd struct {
		Src
		FileName *StringLit
		Into     Argument
	}

	// WriteCmd is write image <expr> to <string>.
	WriteCmd struct {
		Src
		Value    Expression
		FileName *StringLit
	}

	// TypeCmd is type <variable> = <type>.
	TypeCmd struct {
		Src
		Name string
		Type TypeExpr
	}

	// LetCmd is let <lvalue> = <expr>.
	LetCmd struct {
		Src
		LValue LValue
		Value  Expression
	}

	// AssertCmd is assert <expr> , <string>.
	AssertCmd struct {
		Src
		Cond    Expression
		Message *StringLit
	}

	// PrintCmd is print <string>.
	PrintCmd struct {
		Src
		Message *StringLit
	}

	// ShowCmd is show <expr>.
	ShowCmd struct {
		Src
		Value Expression
	}

	// TimeCmd is time <cmd>.
	TimeCmd struct {
		Src
		Command Command
	}

	// FnCmd is a function definition.
	FnCmd struct {
		Src
		Name       string
		Params     []Binding
		ReturnType TypeExpr
		Body       []Statement
	}
)

func (*ReadCmd) isCommand()   {}
func (*WriteCmd) isCommand()  {}
func (*TypeCmd) isCommand()   {}
func (*LetCmd) isCommand()    {}
func (*AssertCmd) isCommand() {}
func (*PrintCmd) isCommand()  {}
func (*ShowCmd) isCommand()   {}
func (*TimeCmd) isCommand()   {}
func (*FnCmd) isCommand()     {}

func (c *ReadCmd) String() string {
	return "(ReadCmd " + c.FileName.String() + " " + c.Into.String() + ")"
}

func (c *WriteCmd) String() string {
	return "(WriteCmd " + c.Value.String() + " " + c.FileName.String() + ")"
}

func (c *TypeCmd) String() string {
	return "(TypeCmd " + c.Name + " " + c.Type.String() + ")"
}

func (c *LetCmd) String() string {
	return "(LetCmd " + c.LValue.String() + " " + c.Value.String() + ")"
}

func (c *AssertCmd) String() string {
	return "(AssertCmd " + c.Cond.String() + " " + c.Message.String() + ")"
}

func (c *PrintCmd) String() string {
	return "(PrintCmd " + c.Message.String() + ")"
}

func (c *ShowCmd) String() string {
	return "(ShowCmd " + c.Value.String() + ")"
}

func (c *TimeCmd) String() string {
	return "(TimeCmd " + c.Command.String() + ")"
}

func (c *FnCmd) String() string {
	params := make([]string, len(c.Params))
	for i, p := range c.Params {
		params[i] = p.String()
	}
	stmts := make([]string, len(c.Body))
	for i, s := range c.Body {
		stmts[i] = s.String()
	}
	return "(FnCmd " + c.Name + " (" + strings.Join(params, " ") + ") " +
		c.ReturnType.String() + " " + strings.Join(stmts, " ") + ")"
}

type (
	// LetStmt is let <lvalue> = <expr> inside a function.
	LetStmt struct {
		Src
		LValue LValue
		Value  Expression
	}

	// AssertStmt is assert <expr> , <string> inside a function.
	AssertStmt struct {
		Src
		Cond    Expression
		Message *StringLit
	}

	// ReturnStmt is return <expr>.
	ReturnStmt struct {
		Src
		Value Expression
	}
)

func (*LetStmt) isStatement()    {}
func (*AssertStmt) isStatement() {}
func (*ReturnStmt) isStatement() {}

func (s *LetStmt) String() string {
	return "(LetStmt " + s.LValue.String() + " " + s.Value.String() + ")"
}

func (s *AssertStmt) String() string {
	return "(AssertStmt " + s.Cond.String() + " " + s.Message.String() + ")"
}

func (s *ReturnStmt) String() string {
	return "(ReturnStmt " + s.Value.String() + ")"
}

type (
	// IntTypeExpr is the type int.
	IntTypeExpr struct {
		Src
	}

	// BoolTypeExpr is the type bool.
	BoolTypeExpr struct {
		Src
	}

	// FloatTypeExpr is the type float.
	FloatTypeExpr struct {
		Src
	}

	// VarTypeExpr is a reference to a type alias.
	VarTypeExpr struct {
		Src
	}

	// ArrayTypeExpr is <type> [ , ... ]; the rank counts the commas
	// plus one.
	ArrayTypeExpr struct {
		Src
		Elem TypeExpr
		Rank int
	}

	// TupleTypeExpr is { <type> , ... }.
	TupleTypeExpr struct {
		Src
		Elems []TypeExpr
	}
)

func (*IntTypeExpr) isTypeExpr()   {}
func (*BoolTypeExpr) isTypeExpr()  {}
func (*FloatTypeExpr) isTypeExpr() {}
func (*VarTypeExpr) isTypeExpr()   {}
func (*ArrayTypeExpr) isTypeExpr() {}
func (*TupleTypeExpr) isTypeExpr() {}

func (*IntTypeExpr) String() string   { return "(IntType)" }
func (*BoolTypeExpr) String() string  { return "(BoolType)" }
func (*FloatTypeExpr) String() string { return "(FloatType)" }

func (t *VarTypeExpr) String() string {
	return "(VarType " + t.Text + ")"
}

func (t *ArrayTypeExpr) String() string {
	return "(ArrayType " + t.Elem.String() + " " + strconv.Itoa(t.Rank) + ")"
}

func (t *TupleTypeExpr) String() string {
	parts := make([]string, len(t.Elems))
	for i, elem := range t.Elems {
		parts[i] = elem.String()
	}
	return "(TupleType " + strings.Join(parts, " ") + ")"
}

type (
	// VarArgument introduces a single variable; the name is the
	// node's text.
	VarArgument struct {
		Src
	}

	// ArrayArgument introduces an array variable plus one integer
	// variable per dimension.
	ArrayArgument struct {
		Src
		Name string
		Dims []string
	}
)

func (*VarArgument) isArgument()   {}
func (*ArrayArgument) isArgument() {}

func (a *VarArgument) String() string {
	return "(VarArgument " + a.Text + ")"
}

func (a *ArrayArgument) String() string {
	return "(ArrayArgument " + a.Name + " " + strings.Join(a.Dims, " ") + ")"
}

type (
	// ArgLValue is an argument used as a let target.
	ArgLValue struct {
		Src
		Arg Argument
	}

	// TupleLValue is { <lvalue> , ... }.
	TupleLValue struct {
		Src
		Elems []LValue
	}
)

func (*ArgLValue) isLValue()   {}
func (*TupleLValue) isLValue() {}

func (lv *ArgLValue) String() string {
	return "(ArgLValue " + lv.Arg.String() + ")"
}

func (lv *TupleLValue) String() string {
	parts := make([]string, len(lv.Elems))
	for i, elem := range lv.Elems {
		parts[i] = elem.String()
	}
	return "(TupleLValue " + strings.Join(parts, " ") + ")"
}

type (
	// VarBinding is <argument> : <type>.
	VarBinding struct {
		Src
		Arg  Argument
		Type TypeExpr
	}

	// TupleBinding is { <binding> , ... }.
	TupleBinding struct {
		Src
		Elems []Binding
	}
)

func (*VarBinding) isBinding()   {}
func (*TupleBinding) isBinding() {}

func (b *VarBinding) String() string {
	return "(VarBinding " + b.Arg.String() + " " + b.Type.String() + ")"
}

func (b *TupleBinding) String() string {
	parts := make([]string, len(b.Elems))
	for i, elem := range b.Elems {
		parts[i] = elem.String()
	}
	return "(TupleBinding " + strings.Join(parts, " ") + ")"
}
