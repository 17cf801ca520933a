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

// Package checker resolves types over the source-syntax tree.
//
// The checker walks every command, builds lexical scopes, resolves type
// aliases, and attaches a resolved type to every expression node in place.
// It fails on the first inconsistency. Re-running it over an annotated
// tree reproduces the same annotations.
package checker

import (
	"github.com/jpl-lang/jplc/build/ast"
	"github.com/jpl-lang/jplc/build/fmterr"
	"github.com/jpl-lang/jplc/build/ir"
)

// Check type-checks a program and returns the global scope, which the
// code generator uses to derive calling conventions for every declared
// function.
func Check(cmds []ast.Command) (*Scope, error) {
	sc := Global()
	for _, cmd := range cmds {
		if err := checkCmd(cmd, sc); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

func typeErrorf(n ast.Node, format string, a ...any) error {
	s := n.Source()
	return fmterr.Errorf(fmterr.Typechecking, s.Line, s.Pos, "Expression "+s.Text, format, a...)
}

func checkCmd(cmd ast.Command, sc *Scope) error {
	switch c := cmd.(type) {
	case *ast.ShowCmd:
		_, err := exprType(c.Value, sc)
		return err
	case *ast.ReadCmd:
		return addArgument(sc, c.Into, ir.Image())
	case *ast.WriteCmd:
		t, err := exprType(c.Value, sc)
		if err != nil {
			return err
		}
		if !ir.Equal(t, ir.Image()) {
			return typeErrorf(c, "Caught write with expression of type %s. Write expects a {float, float, float, float}[,].", t)
		}
		return nil
	case *ast.LetCmd:
		t, err := exprType(c.Value, sc)
		if err != nil {
			return err
		}
		return addLValue(sc, c.LValue, t)
	case *ast.AssertCmd:
		t, err := exprType(c.Cond, sc)
		if err != nil {
			return err
		}
		if !ir.Equal(t, ir.Bool) {
			return typeErrorf(c, "Assert takes a boolean as its first argument. Detected an assert with an expression of type %s.", t)
		}
		return nil
	case *ast.PrintCmd:
		return nil
	case *ast.TimeCmd:
		return checkCmd(c.Command, sc)
	case *ast.TypeCmd:
		t, err := resolveType(c.Type, sc)
		if err != nil {
			return err
		}
		if !sc.Add(c.Name, ir.TypeInfo{Type: t}) {
			return typeErrorf(c, "Defined variable %s twice.", c.Name)
		}
		return nil
	case *ast.FnCmd:
		return checkFn(c, sc)
	}
	return fmterr.Internalf("unrecognized command %q", cmd.Source().Text)
}

func checkFn(c *ast.FnCmd, sc *Scope) error {
	fnScope := NewScope(sc)

	argTypes := make([]ir.Type, len(c.Params))
	for i, binding := range c.Params {
		lv, t, err := decomposeBinding(binding, sc)
		if err != nil {
			return err
		}
		argTypes[i] = t
		if err := addLValue(fnScope, lv, t); err != nil {
			return err
		}
	}

	ret, err := resolveType(c.ReturnType, sc)
	if err != nil {
		return err
	}
	if !sc.Add(c.Name, ir.FuncInfo{Return: ret, Args: argTypes}) {
		return typeErrorf(c, "Function %s was defined twice.", c.Name)
	}

	hasReturn := false
	for _, stmt := range c.Body {
		returned, err := checkStmt(stmt, fnScope, ret)
		if err != nil {
			return err
		}
		hasReturn = hasReturn || returned
	}
	if !ir.IsUnit(ret) && !hasReturn {
		return typeErrorf(c, "Function %s has a non-{} return type, but never returns.", c.Name)
	}
	return nil
}

// checkStmt reports whether the statement was a return.
func checkStmt(stmt ast.Statement, sc *Scope, ret ir.Type) (bool, error) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		t, err := exprType(s.Value, sc)
		if err != nil {
			return false, err
		}
		return false, addLValue(sc, s.LValue, t)
	case *ast.AssertStmt:
		t, err := exprType(s.Cond, sc)
		if err != nil {
			return false, err
		}
		if !ir.Equal(t, ir.Bool) {
			return false, typeErrorf(s, "Assert takes a boolean as its first argument. Detected an assert with an expression of type %s.", t)
		}
		return false, nil
	case *ast.ReturnStmt:
		t, err := exprType(s.Value, sc)
		if err != nil {
			return false, err
		}
		if !ir.Equal(t, ret) {
			return false, typeErrorf(s, "Return type does not match type of function. Expected return of type %s. Got %s.", ret, t)
		}
		return true, nil
	}
	return false, fmterr.Internalf("unrecognized statement %q", stmt.Source().Text)
}

// resolveType turns a syntactic type into a resolved type, erasing alias
// names.
func resolveType(t ast.TypeExpr, sc *Scope) (ir.Type, error) {
	switch tt := t.(type) {
	case *ast.IntTypeExpr:
		return ir.Int, nil
	case *ast.FloatTypeExpr:
		return ir.Float, nil
	case *ast.BoolTypeExpr:
		return ir.Bool, nil
	case *ast.VarTypeExpr:
		info, ok := sc.Lookup(tt.Text)
		if !ok {
			return nil, typeErrorf(t, "Undefined reference to type variable %s.", tt.Text)
		}
		typeInfo, ok := info.(ir.TypeInfo)
		if !ok {
			return nil, typeErrorf(t, "Reference to variable %s as a type value; but it isn't.", tt.Text)
		}
		return typeInfo.Type, nil
	case *ast.ArrayTypeExpr:
		elem, err := resolveType(tt.Elem, sc)
		if err != nil {
			return nil, err
		}
		return ir.ArrayType{Elem: elem, Rank: tt.Rank}, nil
	case *ast.TupleTypeExpr:
		elems := make([]ir.Type, len(tt.Elems))
		for i, e := range tt.Elems {
			elem, err := resolveType(e, sc)
			if err != nil {
				return nil, err
			}
			elems[i] = elem
		}
		return ir.TupleType{Elems: elems}, nil
	}
	return nil, typeErrorf(t, "Could not identify type.")
}

// addArgument binds the names an argument introduces: one variable, plus
// one integer per dimension for an array argument whose rank must match.
func addArgument(sc *Scope, arg ast.Argument, t ir.Type) error {
	switch a := arg.(type) {
	case *ast.VarArgument:
		if !sc.Add(a.Text, ir.VariableInfo{Type: t}) {
			return typeErrorf(arg, "Caught argument with already defined name %q.", a.Text)
		}
		return nil
	case *ast.ArrayArgument:
		arrayType, ok := t.(ir.ArrayType)
		if !ok {
			return typeErrorf(arg, "Caught an array argument assigned non-array type. Got a type of %s.", t)
		}
		if len(a.Dims) != arrayType.Rank {
			return typeErrorf(arg, "Caught an argument array rank mis-match. The argument expected an array of rank %d but was assigned an array of rank %d.", len(a.Dims), arrayType.Rank)
		}
		if !sc.Add(a.Name, ir.VariableInfo{Type: t}) {
			return typeErrorf(arg, "Caught argument with already defined name %q.", a.Name)
		}
		for _, dim := range a.Dims {
			if !sc.Add(dim, ir.VariableInfo{Type: ir.Int}) {
				return typeErrorf(arg, "Caught argument dimension with already defined name %q.", dim)
			}
		}
		return nil
	}
	return fmterr.Internalf("unrecognized argument %q", arg.Source().Text)
}

// addLValue distributes a type over a let target, element-wise for tuple
// lvalues.
func addLValue(sc *Scope, lv ast.LValue, t ir.Type) error {
	switch l := lv.(type) {
	case *ast.ArgLValue:
		return addArgument(sc, l.Arg, t)
	case *ast.TupleLValue:
		tupleType, ok := t.(ir.TupleType)
		if !ok {
			return typeErrorf(lv, "Caught tuple lvalue assigned non-tuple type: %s.", t)
		}
		if len(l.Elems) != len(tupleType.Elems) {
			return typeErrorf(lv, "Caught tuple lvalue assigned a tuple type with a different number of elements. LValue: %d, Assigned Type: %d.", len(l.Elems), len(tupleType.Elems))
		}
		for i, sub := range l.Elems {
			if err := addLValue(sc, sub, tupleType.Elems[i]); err != nil {
				return err
			}
		}
		return nil
	}
	return fmterr.Internalf("unrecognized lvalue %q", lv.Source().Text)
}

// decomposeBinding turns a function parameter into the lvalue shape it
// introduces and its resolved type. Types inside bindings resolve in the
// enclosing scope.
func decomposeBinding(b ast.Binding, sc *Scope) (ast.LValue, ir.Type, error) {
	switch bb := b.(type) {
	case *ast.VarBinding:
		t, err := resolveType(bb.Type, sc)
		if err != nil {
			return nil, nil, err
		}
		return &ast.ArgLValue{Src: *b.Source(), Arg: bb.Arg}, t, nil
	case *ast.TupleBinding:
		elems := make([]ast.LValue, len(bb.Elems))
		types := make([]ir.Type, len(bb.Elems))
		for i, sub := range bb.Elems {
			lv, t, err := decomposeBinding(sub, sc)
			if err != nil {
				return nil, nil, err
			}
			elems[i] = lv
			types[i] = t
		}
		return &ast.TupleLValue{Src: *b.Source(), Elems: elems}, ir.TupleType{Elems: types}, nil
	}
	return nil, nil, fmterr.Internalf("unrecognized binding %q", b.Source().Text)
}

// exprType computes and attaches the resolved type of an expression.
func exprType(e ast.Expression, sc *Scope) (ir.Type, error) {
	t, err := typeOf(e, sc)
	if err != nil {
		return nil, err
	}
	e.Base().Type = t
	return t, nil
}

func typeOf(e ast.Expression, sc *Scope) (ir.Type, error) {
	switch ex := e.(type) {
	case *ast.IntExpr:
		return ir.Int, nil
	case *ast.FloatExpr:
		return ir.Float, nil
	case *ast.TrueExpr, *ast.FalseExpr:
		return ir.Bool, nil
	case *ast.VarExpr:
		info, ok := sc.Lookup(ex.Text)
		if !ok {
			return nil, typeErrorf(e, "Undefined reference to variable %s.", ex.Text)
		}
		varInfo, ok := info.(ir.VariableInfo)
		if !ok {
			return nil, typeErrorf(e, "Reference to variable %s as an expression value; but it isn't.", ex.Text)
		}
		return varInfo.Type, nil
	case *ast.BinopExpr:
		return binopType(ex, sc)
	case *ast.UnopExpr:
		t, err := exprType(ex.X, sc)
		if err != nil {
			return nil, err
		}
		switch ex.Op {
		case ast.Neg:
			if !ir.IsNumeric(t) {
				return nil, typeErrorf(e, "No supported unary - for %s. Expects an int or float.", t)
			}
			return t, nil
		case ast.Not:
			if !ir.Equal(t, ir.Bool) {
				return nil, typeErrorf(e, "No supported unary ! for %s. Expects a boolean.", t)
			}
			return ir.Bool, nil
		}
		return nil, fmterr.Internalf("unrecognized unary operator in %q", ex.Text)
	case *ast.TupleLitExpr:
		elems := make([]ir.Type, len(ex.Elems))
		for i, sub := range ex.Elems {
			t, err := exprType(sub, sc)
			if err != nil {
				return nil, err
			}
			elems[i] = t
		}
		return ir.TupleType{Elems: elems}, nil
	case *ast.ArrayLitExpr:
		if len(ex.Elems) == 0 {
			return nil, typeErrorf(e, "Caught array literal expression with no elements. Unidentifiable subtype.")
		}
		elem, err := exprType(ex.Elems[0], sc)
		if err != nil {
			return nil, err
		}
		for i, sub := range ex.Elems[1:] {
			t, err := exprType(sub, sc)
			if err != nil {
				return nil, err
			}
			if !ir.Equal(elem, t) {
				return nil, typeErrorf(e, "Caught array literal with mismatched element types. 1st type: %s, %dth type: %s.", elem, i+2, t)
			}
		}
		return ir.ArrayType{Elem: elem, Rank: 1}, nil
	case *ast.IfExpr:
		cond, err := exprType(ex.Cond, sc)
		if err != nil {
			return nil, err
		}
		then, err := exprType(ex.Then, sc)
		if err != nil {
			return nil, err
		}
		els, err := exprType(ex.Else, sc)
		if err != nil {
			return nil, err
		}
		if !ir.Equal(cond, ir.Bool) {
			return nil, typeErrorf(e, "Caught if expression with non-boolean conditional expression type %s.", cond)
		}
		if !ir.Equal(then, els) {
			return nil, typeErrorf(e, "Caught if expression with non-matching then else expressions. Then: %s Else: %s.", then, els)
		}
		return then, nil
	case *ast.TupleIndexExpr:
		t, err := exprType(ex.Tuple, sc)
		if err != nil {
			return nil, err
		}
		tupleType, ok := t.(ir.TupleType)
		if !ok {
			return nil, typeErrorf(e, "Caught tuple indexing into a non-tuple expression. Expression type: %s.", t)
		}
		if ex.Index < 0 || ex.Index >= int64(len(tupleType.Elems)) {
			return nil, typeErrorf(e, "Caught indexing into a tuple with %d elements at illegal index %d.", len(tupleType.Elems), ex.Index)
		}
		return tupleType.Elems[ex.Index], nil
	case *ast.ArrayIndexExpr:
		t, err := exprType(ex.Array, sc)
		if err != nil {
			return nil, err
		}
		arrayType, ok := t.(ir.ArrayType)
		if !ok {
			return nil, typeErrorf(e, "Caught array indexing into a non-array expression. Expression type: %s.", t)
		}
		if arrayType.Rank != len(ex.Indices) {
			return nil, typeErrorf(e, "Caught indexing into an array with rank %d with %d indices.", arrayType.Rank, len(ex.Indices))
		}
		for _, idx := range ex.Indices {
			it, err := exprType(idx, sc)
			if err != nil {
				return nil, err
			}
			if !ir.Equal(it, ir.Int) {
				return nil, typeErrorf(e, "Caught indexing into an array with non-int index expression. Expression type: %s.", it)
			}
		}
		return arrayType.Elem, nil
	case *ast.CallExpr:
		info, ok := sc.Lookup(ex.Func)
		if !ok {
			return nil, typeErrorf(e, "Undefined reference to function %s.", ex.Func)
		}
		funcInfo, ok := info.(ir.FuncInfo)
		if !ok {
			return nil, typeErrorf(e, "Referenced non-function %s as a function.", ex.Func)
		}
		if len(funcInfo.Args) != len(ex.Args) {
			return nil, typeErrorf(e, "Function %s expects %d arguments, but got %d.", ex.Func, len(funcInfo.Args), len(ex.Args))
		}
		for i, arg := range ex.Args {
			t, err := exprType(arg, sc)
			if err != nil {
				return nil, err
			}
			if !ir.Equal(funcInfo.Args[i], t) {
				return nil, typeErrorf(e, "Function %s expects a %s as its %dth argument, but got a %s.", ex.Func, funcInfo.Args[i], i+1, t)
			}
		}
		return funcInfo.Return, nil
	case *ast.ArrayLoopExpr:
		if len(ex.Bounds) == 0 {
			return nil, typeErrorf(e, "Caught array loop with no bounds.")
		}
		child, err := loopBoundsScope(ex.Bounds, sc)
		if err != nil {
			return nil, err
		}
		body, err := exprType(ex.Body, child)
		if err != nil {
			return nil, err
		}
		return ir.ArrayType{Elem: body, Rank: len(ex.Bounds)}, nil
	case *ast.SumLoopExpr:
		if len(ex.Bounds) == 0 {
			return nil, typeErrorf(e, "Caught sum loop with no bounds.")
		}
		child, err := loopBoundsScope(ex.Bounds, sc)
		if err != nil {
			return nil, err
		}
		body, err := exprType(ex.Body, child)
		if err != nil {
			return nil, err
		}
		if !ir.IsNumeric(body) {
			return nil, typeErrorf(e, "Caught sum loop with non-numerical type %s. Expected an int or a float.", body)
		}
		return body, nil
	}
	return nil, typeErrorf(e, "Could not identify expression type.")
}

// loopBoundsScope checks the bounds of a comprehension in the enclosing
// scope and returns a child scope binding each loop variable as an int.
func loopBoundsScope(bounds []ast.LoopBound, sc *Scope) (*Scope, error) {
	child := NewScope(sc)
	for _, bound := range bounds {
		t, err := exprType(bound.Bound, sc)
		if err != nil {
			return nil, err
		}
		if !ir.Equal(t, ir.Int) {
			return nil, typeErrorf(bound.Bound, "Caught loop iterating over non-int type: %s.", t)
		}
		if !child.Add(bound.Name, ir.VariableInfo{Type: ir.Int}) {
			return nil, typeErrorf(bound.Bound, "Caught loop iterating variable with already defined name %q.", bound.Name)
		}
	}
	return child, nil
}

func binopType(ex *ast.BinopExpr, sc *Scope) (ir.Type, error) {
	lhs, err := exprType(ex.LHS, sc)
	if err != nil {
		return nil, err
	}
	rhs, err := exprType(ex.RHS, sc)
	if err != nil {
		return nil, err
	}
	switch ex.Op {
	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod:
		if !ir.Equal(lhs, rhs) {
			return nil, typeErrorf(ex, "Types do not match for arithmetic operation. lhs: %s rhs: %s.", lhs, rhs)
		}
		if !ir.IsNumeric(lhs) {
			return nil, typeErrorf(ex, "No supported arithmetic operation for %s. Expects two ints or floats.", lhs)
		}
		return lhs, nil
	case ast.Lt, ast.Gt, ast.Le, ast.Ge:
		if !ir.Equal(lhs, rhs) {
			return nil, typeErrorf(ex, "Types do not match for comparison operation. lhs: %s rhs: %s.", lhs, rhs)
		}
		if !ir.IsNumeric(lhs) {
			return nil, typeErrorf(ex, "No supported comparison operation for %s. Expects two ints or floats.", lhs)
		}
		return ir.Bool, nil
	case ast.Eq, ast.Ne:
		if !ir.Equal(lhs, rhs) {
			return nil, typeErrorf(ex, "Types do not match for equality operation. lhs: %s rhs: %s.", lhs, rhs)
		}
		if !ir.IsScalar(lhs) {
			return nil, typeErrorf(ex, "No supported equality operation for %s. Expects two ints, floats, or bools.", lhs)
		}
		return ir.Bool, nil
	case ast.And, ast.Or:
		if !ir.Equal(lhs, ir.Bool) || !ir.Equal(rhs, ir.Bool) {
			return nil, typeErrorf(ex, "No supported boolean operation for given types. Expects two booleans. lhs: %s rhs: %s.", lhs, rhs)
		}
		return ir.Bool, nil
	}
	return nil, fmterr.Internalf("unrecognized binary operator in %q", ex.Text)
}
