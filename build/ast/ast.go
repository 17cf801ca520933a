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

// Package ast defines the source-syntax tree of a JPL program.
//
// Each syntactic class (command, statement, expression, type expression,
// lvalue, argument, binding) is a sum type: one interface dispatched over
// struct variants by type switch. Every node records the raw source text it
// spans and its 0-based line and position for diagnostics. Expression nodes
// additionally carry two annotation slots written once by later passes: the
// resolved type (type checker) and the constant-propagation value.
package ast

import "github.com/jpl-lang/jplc/build/ir"

// Src is the source span common to every node.
type Src struct {
	// Text is the raw text of the node, used in diagnostics.
	Text string
	Line int
	Pos  int
}

// Node is implemented by every tree node.
type Node interface {
	// String returns the canonical serialization of the node.
	String() string

	// Source returns the node's span.
	Source() *Src
}

// Source returns the span of the node.
func (s *Src) Source() *Src { return s }

type (
	// Command is a top-level command.
	Command interface {
		Node
		isCommand()
	}

	// Statement is a statement inside a function body.
	Statement interface {
		Node
		isStatement()
	}

	// Expression is an expression node. ExprBase exposes the mutable
	// annotation slots.
	Expression interface {
		Node
		Base() *ExprBase
	}

	// TypeExpr is a syntactic type.
	TypeExpr interface {
		Node
		isTypeExpr()
	}

	// LValue is the target of a let.
	LValue interface {
		Node
		isLValue()
	}

	// Argument is a variable introduction, possibly binding array
	// dimension names.
	Argument interface {
		Node
		isArgument()
	}

	// Binding is a function parameter.
	Binding interface {
		Node
		isBinding()
	}
)

// ExprBase holds the span and the annotation slots shared by all
// expression variants.
type ExprBase struct {
	Src

	// Type is the resolved type, set in place by the checker.
	Type ir.Type

	// CP is the constant-propagation value, set by the optional
	// constant-propagation pass. nil means unknown.
	CP CPValue
}

// Base returns the expression's annotation slots.
func (b *ExprBase) Base() *ExprBase { return b }

// rtype renders the resolved-type annotation interposed in canonical
// serializations, or the empty string before type checking.
func (b *ExprBase) rtype() string {
	if b.Type == nil {
		return ""
	}
	return " (" + b.Type.String() + ")"
}

type (
	// CPValue is a constant-propagation fact about an expression.
	// A nil CPValue means nothing is known.
	CPValue interface {
		isCPValue()
	}

	// IntValue is a known integer constant.
	IntValue struct {
		V int64
	}

	// ArrayValue is an array whose per-dimension lengths may be known.
	// A nil length entry is an unknown length of a known-rank array.
	ArrayValue struct {
		Lengths []CPValue
	}
)

func (*IntValue) isCPValue()   {}
func (*ArrayValue) isCPValue() {}

// UnaryOp is a unary operator.
type UnaryOp int

// Unary operators.
const (
	Neg UnaryOp = iota
	Not
)

// String returns the operator's source spelling.
func (op UnaryOp) String() string {
	if op == Neg {
		return "-"
	}
	return "!"
}

// BinaryOp is a binary operator.
type BinaryOp int

// Binary operators.
const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Mod
	Lt
	Gt
	Eq
	Ne
	Le
	Ge
	And
	Or
)

var binopNames = [...]string{"+", "-", "*", "/", "%", "<", ">", "==", "!=", "<=", ">=", "&&", "||"}

// String returns the operator's source spelling.
func (op BinaryOp) String() string {
	return binopNames[op]
}

// BinopFromText returns the binary operator spelled by an operator token.
func BinopFromText(text string) (BinaryOp, bool) {
	for op, name := range binopNames {
		if name == text {
			return BinaryOp(op), true
		}
	}
	return 0, false
}
