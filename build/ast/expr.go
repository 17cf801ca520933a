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

type (
	// IntExpr is an integer literal.
	IntExpr struct {
		ExprBase
		V int64
	}

	// FloatExpr is a float literal.
	FloatExpr struct {
		ExprBase
		V float64
	}

	// TrueExpr is the literal true.
	TrueExpr struct {
		ExprBase
	}

	// FalseExpr is the literal false.
	FalseExpr struct {
		ExprBase
	}

	// VarExpr is a variable reference. The name is the node's text.
	VarExpr struct {
		ExprBase
	}

	// TupleLitExpr is { e1, ..., en }.
	TupleLitExpr struct {
		ExprBase
		Elems []Expression
	}

	// ArrayLitExpr is [ e1, ..., en ].
	ArrayLitExpr struct {
		ExprBase
		Elems []Expression
	}

	// TupleIndexExpr is e{i} with a literal index.
	TupleIndexExpr struct {
		ExprBase
		Tuple Expression
		Index int64
	}

	// ArrayIndexExpr is e[i1, ..., ik].
	ArrayIndexExpr struct {
		ExprBase
		Array   Expression
		Indices []Expression
	}

	// CallExpr is f(e1, ..., en).
	CallExpr struct {
		ExprBase
		Func string
		Args []Expression
	}

	// UnopExpr is -e or !e.
	UnopExpr struct {
		ExprBase
		Op UnaryOp
		X  Expression
	}

	// BinopExpr is a binary operation.
	BinopExpr struct {
		ExprBase
		Op  BinaryOp
		LHS Expression
		RHS Expression
	}

	// IfExpr is if c then t else e.
	IfExpr struct {
		ExprBase
		Cond Expression
		Then Expression
		Else Expression
	}

	// LoopBound is one name:bound pair in a comprehension preamble.
	LoopBound struct {
		Name  string
		Bound Expression
	}

	// ArrayLoopExpr is array[x1:b1, ...] body.
	ArrayLoopExpr struct {
		ExprBase
		Bounds []LoopBound
		Body   Expression
	}

	// SumLoopExpr is sum[x1:b1, ...] body.
	SumLoopExpr struct {
		ExprBase
		Bounds []LoopBound
		Body   Expression
	}
)

// Name returns the referenced variable name.
func (e *VarExpr) Name() string { return e.Text }

func (e *IntExpr) String() string {
	return "(IntExpr" + e.rtype() + " " + strconv.FormatInt(e.V, 10) + ")"
}

func (e *FloatExpr) String() string {
	// The canonical form prints the truncated integer part only.
	return "(FloatExpr" + e.rtype() + " " + strconv.FormatInt(int64(e.V), 10) + ")"
}

func (e *TrueExpr) String() string {
	return "(TrueExpr" + e.rtype() + ")"
}

func (e *FalseExpr) String() string {
	return "(FalseExpr" + e.rtype() + ")"
}

func (e *VarExpr) String() string {
	return "(VarExpr" + e.rtype() + " " + e.Text + ")"
}

func (e *TupleLitExpr) String() string {
	return "(TupleLiteralExpr" + e.rtype() + " " + exprsToString(e.Elems) + ")"
}

func (e *ArrayLitExpr) String() string {
	return "(ArrayLiteralExpr" + e.rtype() + " " + exprsToString(e.Elems) + ")"
}

func (e *TupleIndexExpr) String() string {
	return "(TupleIndexExpr" + e.rtype() + " " + e.Tuple.String() + " " + strconv.FormatInt(e.Index, 10) + ")"
}

func (e *ArrayIndexExpr) String() string {
	return "(ArrayIndexExpr" + e.rtype() + " " + e.Array.String() + " " + exprsToString(e.Indices) + ")"
}

func (e *CallExpr) String() string {
	return "(CallExpr" + e.rtype() + " " + e.Func + " " + exprsToString(e.Args) + ")"
}

func (e *UnopExpr) String() string {
	return "(UnopExpr" + e.rtype() + " " + e.Op.String() + " " + e.X.String() + ")"
}

func (e *BinopExpr) String() string {
	return "(BinopExpr" + e.rtype() + " " + e.LHS.String() + " " + e.Op.String() + " " + e.RHS.String() + ")"
}

func (e *IfExpr) String() string {
	return "(IfExpr" + e.rtype() + " " + e.Cond.String() + " " + e.Then.String() + " " + e.Else.String() + ")"
}

func (e *ArrayLoopExpr) String() string {
	return "(ArrayLoopExpr" + e.rtype() + " " + boundsToString(e.Bounds) + e.Body.String() + ")"
}

func (e *SumLoopExpr) String() string {
	return "(SumLoopExpr" + e.rtype() + " " + boundsToString(e.Bounds) + e.Body.String() + ")"
}

func exprsToString(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}

func boundsToString(bounds []LoopBound) string {
	var b strings.Builder
	for _, bound := range bounds {
		b.WriteString(bound.Name)
		b.WriteString(" ")
		b.WriteString(bound.Bound.String())
		b.WriteString(" ")
	}
	return b.String()
}
