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

// Package ir defines the resolved types computed by the type checker and
// the name information stored in scopes. Types are structural: alias names
// are erased at resolution time and equality compares shape only.
package ir

import (
	"strconv"
	"strings"
)

type (
	// Type is a resolved JPL type.
	Type interface {
		// String returns the canonical name of the type, as embedded
		// in show type strings and tree printing.
		String() string

		isType()
	}

	// IntType is a 64-bit signed integer.
	IntType struct{}

	// FloatType is a 64-bit IEEE double.
	FloatType struct{}

	// BoolType is a boolean.
	BoolType struct{}

	// ArrayType is a multi-dimensional array. Rank is at least 1.
	ArrayType struct {
		Elem Type
		Rank int
	}

	// TupleType is a fixed-arity product. The empty tuple is the
	// unit (void) type.
	TupleType struct {
		Elems []Type
	}
)

// Singletons for the scalar types.
var (
	Int   = IntType{}
	Float = FloatType{}
	Bool  = BoolType{}
)

func (IntType) isType()   {}
func (FloatType) isType() {}
func (BoolType) isType()  {}
func (ArrayType) isType() {}
func (TupleType) isType() {}

func (IntType) String() string   { return "IntType" }
func (FloatType) String() string { return "FloatType" }
func (BoolType) String() string  { return "BoolType" }

func (t ArrayType) String() string {
	var b strings.Builder
	b.WriteString("ArrayType (")
	b.WriteString(t.Elem.String())
	b.WriteString(") ")
	b.WriteString(strconv.Itoa(t.Rank))
	return b.String()
}

func (t TupleType) String() string {
	var b strings.Builder
	b.WriteString("TupleType")
	for _, elem := range t.Elems {
		b.WriteString(" (")
		b.WriteString(elem.String())
		b.WriteString(")")
	}
	return b.String()
}

// Equal reports whether two resolved types have the same structure.
func Equal(a, b Type) bool {
	switch at := a.(type) {
	case IntType:
		_, ok := b.(IntType)
		return ok
	case FloatType:
		_, ok := b.(FloatType)
		return ok
	case BoolType:
		_, ok := b.(BoolType)
		return ok
	case ArrayType:
		bt, ok := b.(ArrayType)
		return ok && at.Rank == bt.Rank && Equal(at.Elem, bt.Elem)
	case TupleType:
		bt, ok := b.(TupleType)
		if !ok || len(at.Elems) != len(bt.Elems) {
			return false
		}
		for i, elem := range at.Elems {
			if !Equal(elem, bt.Elems[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// IsNumeric reports whether a type is Int or Float.
func IsNumeric(t Type) bool {
	switch t.(type) {
	case IntType, FloatType:
		return true
	}
	return false
}

// IsScalar reports whether a type is Int, Float, or Bool.
func IsScalar(t Type) bool {
	switch t.(type) {
	case IntType, FloatType, BoolType:
		return true
	}
	return false
}

// IsAggregate reports whether a type is an array or a tuple.
func IsAggregate(t Type) bool {
	switch t.(type) {
	case ArrayType, TupleType:
		return true
	}
	return false
}

// IsUnit reports whether a type is the empty tuple.
func IsUnit(t Type) bool {
	tt, ok := t.(TupleType)
	return ok && len(tt.Elems) == 0
}

// Unit returns the empty tuple type.
func Unit() Type {
	return TupleType{}
}

// Image returns the canonical image type {float, float, float, float}[,].
func Image() Type {
	pixel := TupleType{Elems: []Type{Float, Float, Float, Float}}
	return ArrayType{Elem: pixel, Rank: 2}
}

type (
	// NameInfo is what a scope knows about a bound name.
	NameInfo interface {
		isNameInfo()
	}

	// VariableInfo binds a name to a value of a resolved type.
	VariableInfo struct {
		Type Type
	}

	// TypeInfo binds a name introduced by a type command to the type it
	// aliases.
	TypeInfo struct {
		Type Type
	}

	// FuncInfo binds a function name to its signature.
	FuncInfo struct {
		Return Type
		Args   []Type
	}
)

func (VariableInfo) isNameInfo() {}
func (TypeInfo) isNameInfo()     {}
func (FuncInfo) isNameInfo()     {}
