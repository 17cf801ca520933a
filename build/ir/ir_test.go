package ir_test

import (
	"testing"

	"github.com/jpl-lang/jplc/build/ir"
)

func TestString(t *testing.T) {
	tests := []struct {
		typ  ir.Type
		want string
	}{
		{typ: ir.Int, want: "IntType"},
		{typ: ir.Float, want: "FloatType"},
		{typ: ir.Bool, want: "BoolType"},
		{typ: ir.ArrayType{Elem: ir.Int, Rank: 1}, want: "ArrayType (IntType) 1"},
		{typ: ir.ArrayType{Elem: ir.ArrayType{Elem: ir.Float, Rank: 2}, Rank: 3}, want: "ArrayType (ArrayType (FloatType) 2) 3"},
		{typ: ir.TupleType{}, want: "TupleType"},
		{typ: ir.TupleType{Elems: []ir.Type{ir.Int, ir.Bool}}, want: "TupleType (IntType) (BoolType)"},
		{typ: ir.Image(), want: "ArrayType (TupleType (FloatType) (FloatType) (FloatType) (FloatType)) 2"},
	}
	for _, test := range tests {
		if got := test.typ.String(); got != test.want {
			t.Errorf("got %q but want %q", got, test.want)
		}
	}
}

func TestEqual(t *testing.T) {
	types := []ir.Type{
		ir.Int,
		ir.Float,
		ir.Bool,
		ir.ArrayType{Elem: ir.Int, Rank: 1},
		ir.ArrayType{Elem: ir.Int, Rank: 2},
		ir.ArrayType{Elem: ir.Float, Rank: 1},
		ir.TupleType{},
		ir.TupleType{Elems: []ir.Type{ir.Int}},
		ir.TupleType{Elems: []ir.Type{ir.Int, ir.Float}},
		ir.Image(),
	}
	// Reflexivity, and inequality of every distinct pair in the list.
	for i, a := range types {
		if !ir.Equal(a, a) {
			t.Errorf("%s not equal to itself", a)
		}
		for j, b := range types {
			if i == j {
				continue
			}
			if ir.Equal(a, b) {
				t.Errorf("%s equal to %s", a, b)
			}
		}
	}
	// Symmetry and transitivity on structurally equal values built twice.
	a := ir.TupleType{Elems: []ir.Type{ir.Int, ir.ArrayType{Elem: ir.Bool, Rank: 2}}}
	b := ir.TupleType{Elems: []ir.Type{ir.Int, ir.ArrayType{Elem: ir.Bool, Rank: 2}}}
	c := ir.TupleType{Elems: []ir.Type{ir.Int, ir.ArrayType{Elem: ir.Bool, Rank: 2}}}
	if !ir.Equal(a, b) || !ir.Equal(b, a) {
		t.Error("structural equality is not symmetric")
	}
	if !ir.Equal(a, b) || !ir.Equal(b, c) || !ir.Equal(a, c) {
		t.Error("structural equality is not transitive")
	}
}

func TestPredicates(t *testing.T) {
	if !ir.IsNumeric(ir.Int) || !ir.IsNumeric(ir.Float) || ir.IsNumeric(ir.Bool) {
		t.Error("IsNumeric misclassifies a scalar")
	}
	if !ir.IsScalar(ir.Bool) || ir.IsScalar(ir.Image()) {
		t.Error("IsScalar misclassifies")
	}
	if !ir.IsAggregate(ir.TupleType{}) || ir.IsAggregate(ir.Int) {
		t.Error("IsAggregate misclassifies")
	}
	if !ir.IsUnit(ir.TupleType{}) || ir.IsUnit(ir.TupleType{Elems: []ir.Type{ir.Int}}) {
		t.Error("IsUnit misclassifies")
	}
}
