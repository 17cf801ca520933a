package cprop_test

import (
	"testing"

	"github.com/jpl-lang/jplc/build/ast"
	"github.com/jpl-lang/jplc/build/checker"
	"github.com/jpl-lang/jplc/build/cprop"
	"github.com/jpl-lang/jplc/build/lexer"
	"github.com/jpl-lang/jplc/build/parser"
)

func propagate(t *testing.T, src string) []ast.Command {
	t.Helper()
	tokens, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	cmds, err := parser.Parse(tokens)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := checker.Check(cmds); err != nil {
		t.Fatalf("check error: %v", err)
	}
	cprop.Propagate(cmds)
	return cmds
}

func intCP(t *testing.T, e ast.Expression) int64 {
	t.Helper()
	v, ok := e.Base().CP.(*ast.IntValue)
	if !ok {
		t.Fatalf("expression %s has CP %#v, want an int fact", e, e.Base().CP)
	}
	return v.V
}

func TestIntLiteral(t *testing.T) {
	cmds := propagate(t, "show 42\n")
	show := cmds[0].(*ast.ShowCmd)
	if got := intCP(t, show.Value); got != 42 {
		t.Errorf("got int fact %d, want 42", got)
	}
}

func TestLetFlowsThroughVariables(t *testing.T) {
	cmds := propagate(t, "let x = 7\nshow x\n")
	show := cmds[1].(*ast.ShowCmd)
	if got := intCP(t, show.Value); got != 7 {
		t.Errorf("got int fact %d, want 7", got)
	}
}

func TestArrayLiteralLength(t *testing.T) {
	cmds := propagate(t, "let a = [1, 2, 3]\nshow a\n")
	show := cmds[1].(*ast.ShowCmd)
	array, ok := show.Value.Base().CP.(*ast.ArrayValue)
	if !ok {
		t.Fatalf("variable reference has CP %#v, want an array fact", show.Value.Base().CP)
	}
	length, ok := array.Lengths[0].(*ast.IntValue)
	if !ok || length.V != 3 {
		t.Errorf("got length fact %#v, want 3", array.Lengths[0])
	}
}

func TestArrayArgumentBindsDimensions(t *testing.T) {
	cmds := propagate(t, "let a[n] = [1, 2, 3]\nshow n\n")
	show := cmds[1].(*ast.ShowCmd)
	if got := intCP(t, show.Value); got != 3 {
		t.Errorf("dimension name fact is %d, want 3", got)
	}
}

func TestArrayLoopLengths(t *testing.T) {
	cmds := propagate(t, "show array[i : 4, j : 5] i\n")
	show := cmds[0].(*ast.ShowCmd)
	array, ok := show.Value.Base().CP.(*ast.ArrayValue)
	if !ok {
		t.Fatalf("array loop has CP %#v, want an array fact", show.Value.Base().CP)
	}
	for i, want := range []int64{4, 5} {
		length, ok := array.Lengths[i].(*ast.IntValue)
		if !ok || length.V != want {
			t.Errorf("length %d is %#v, want %d", i, array.Lengths[i], want)
		}
	}
}

func TestReadRankKnownLengthsUnknown(t *testing.T) {
	cmds := propagate(t, "read image \"in.png\" to img\nshow img\n")
	show := cmds[1].(*ast.ShowCmd)
	array, ok := show.Value.Base().CP.(*ast.ArrayValue)
	if !ok {
		t.Fatalf("read binding has CP %#v, want an array fact", show.Value.Base().CP)
	}
	if len(array.Lengths) != 2 || array.Lengths[0] != nil || array.Lengths[1] != nil {
		t.Errorf("got lengths %#v, want two unknowns", array.Lengths)
	}
}

func TestNonConstantStaysUnknown(t *testing.T) {
	cmds := propagate(t, "show 1 + 2\n")
	show := cmds[0].(*ast.ShowCmd)
	if show.Value.Base().CP != nil {
		t.Errorf("binop has CP %#v, want unknown: the pass does not fold", show.Value.Base().CP)
	}
}

func TestFunctionBodyDoesNotLeak(t *testing.T) {
	cmds := propagate(t, "fn f() : int {\nlet k = 9\nreturn k\n}\nlet k = [1]\nshow k\n")
	show := cmds[2].(*ast.ShowCmd)
	if _, ok := show.Value.Base().CP.(*ast.ArrayValue); !ok {
		t.Errorf("top-level k sees fact %#v, want the array fact, not the function's", show.Value.Base().CP)
	}
}
