package checker_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jpl-lang/jplc/build/ast"
	"github.com/jpl-lang/jplc/build/checker"
	"github.com/jpl-lang/jplc/build/ir"
	"github.com/jpl-lang/jplc/build/lexer"
	"github.com/jpl-lang/jplc/build/parser"
)

func parse(t *testing.T, src string) []ast.Command {
	t.Helper()
	tokens, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("%q: lex error: %v", src, err)
	}
	cmds, err := parser.Parse(tokens)
	if err != nil {
		t.Fatalf("%q: parse error: %v", src, err)
	}
	return cmds
}

func check(t *testing.T, src string) []ast.Command {
	t.Helper()
	cmds := parse(t, src)
	if _, err := checker.Check(cmds); err != nil {
		t.Fatalf("%q: check error: %v", src, err)
	}
	return cmds
}

func TestCheckAnnotates(t *testing.T) {
	tests := []struct {
		src  string
		want string // the first command's serialization after checking
	}{
		{
			src:  "show 1 + 2\n",
			want: "(ShowCmd (BinopExpr (IntType) (IntExpr (IntType) 1) + (IntExpr (IntType) 2)))",
		},
		{
			src:  "show 1.0 < 2.0\n",
			want: "(ShowCmd (BinopExpr (BoolType) (FloatExpr (FloatType) 1) < (FloatExpr (FloatType) 2)))",
		},
		{
			src:  "show [1, 2, 3]\n",
			want: "(ShowCmd (ArrayLiteralExpr (ArrayType (IntType) 1) (IntExpr (IntType) 1) (IntExpr (IntType) 2) (IntExpr (IntType) 3)))",
		},
		{
			src:  "show {1, false}{1}\n",
			want: "(ShowCmd (TupleIndexExpr (BoolType) (TupleLiteralExpr (TupleType (IntType) (BoolType)) (IntExpr (IntType) 1) (FalseExpr (BoolType))) 1))",
		},
		{
			src:  "show sum[i : 3] i\n",
			want: "(ShowCmd (SumLoopExpr (IntType) i (IntExpr (IntType) 3) (VarExpr (IntType) i)))",
		},
		{
			src:  "show array[i : 2, j : 2] to_float(i * j)\n",
			want: "(ShowCmd (ArrayLoopExpr (ArrayType (FloatType) 2) i (IntExpr (IntType) 2) j (IntExpr (IntType) 2) (CallExpr (FloatType) to_float (BinopExpr (IntType) (VarExpr (IntType) i) * (VarExpr (IntType) j)))))",
		},
		{
			src:  "show if true then 1 else 0\n",
			want: "(ShowCmd (IfExpr (IntType) (TrueExpr (BoolType)) (IntExpr (IntType) 1) (IntExpr (IntType) 0)))",
		},
	}
	for _, test := range tests {
		cmds := check(t, test.src)
		if diff := cmp.Diff(test.want, cmds[0].String()); diff != "" {
			t.Errorf("%q: annotated tree mismatch (-want +got):\n%s", test.src, diff)
		}
	}
}

func TestCheckPrograms(t *testing.T) {
	srcs := []string{
		"let x = 3\nshow x * x\n",
		"let a = [1, 2, 3]\nshow a[2]\n",
		"fn sq(x : int) : int {\nreturn x * x\n}\nshow sq(7)\n",
		"fn self(n : int) : int {\nreturn self(n)\n}\n", // recursion resolves
		"type pixel = {float, float, float, float}\ntype img = pixel[,]\nfn id(p : img) : img {\nreturn p\n}\n",
		"read image \"in.png\" to img[w, h]\nshow w\nwrite image img to \"out.png\"\n",
		"let {a, b} = {1, [1.0, 2.0]}\nshow b[a]\n",
		"fn f(a[n] : int[]) : int {\nreturn n\n}\nshow f([1, 2])\n",
		"fn nop() : {} {\nlet x = 0\n}\n", // void functions need no return
		"assert 1 < 2, \"ordering\"\nprint \"done\"\n",
		"time show sum[i : 10] i\n",
		"show -argnum\nshow args[0]\n",
		"show pow(2.0, to_float(10))\n",
	}
	for _, src := range srcs {
		check(t, src)
	}
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string // substring of the diagnostic
	}{
		{src: "show 1 + true\n", want: "arithmetic"},
		{src: "let x = 1\nlet x = 2\n", want: "already defined"},
		{src: "fn f() : int {\nassert true, \"x\"\n}\n", want: "never returns"},
		{src: "show [1, true]\n", want: "mismatched element types"},
		{src: "show array[i : 1.5] i\n", want: "non-int"},
		{src: "show y\n", want: "Undefined reference to variable y"},
		{src: "show sqrt\n", want: "as an expression value"},
		{src: "show sqrt(1.0, 2.0)\n", want: "expects 1 arguments"},
		{src: "show sqrt(1)\n", want: "1th argument"},
		{src: "show f(1)\n", want: "Undefined reference to function f"},
		{src: "show argnum(1)\n", want: "non-function"},
		{src: "show {1, 2}{2}\n", want: "illegal index"},
		{src: "show {}{0}\n", want: "illegal index"},
		{src: "let a = [1]\nshow a[0, 0]\n", want: "rank 1 with 2 indices"},
		{src: "let a = [1]\nshow a[true]\n", want: "non-int index"},
		{src: "show if 1 then 2 else 3\n", want: "non-boolean conditional"},
		{src: "show if true then 1 else 2.0\n", want: "non-matching then else"},
		{src: "assert 1, \"x\"\n", want: "boolean as its first argument"},
		{src: "fn f(x : int) : int {\nreturn 1.0\n}\n", want: "does not match type of function"},
		{src: "write image 1 to \"o.png\"\n", want: "Write expects"},
		{src: "let x = 1\nfn x() : {} {\n}\n", want: "defined twice"},
		{src: "type t = int\ntype t = bool\n", want: "twice"},
		{src: "show t\n", want: "Undefined reference"},
		{src: "fn f(a[n, m] : int[]) : int {\nreturn 0\n}\n", want: "rank mis-match"},
		{src: "let x = 1\nshow sum[x : 3] x\n", want: "already defined"},
		{src: "show !1\n", want: "unary !"},
		{src: "show -true\n", want: "unary -"},
		{src: "show true < false\n", want: "comparison"},
		{src: "show [1] == [1]\n", want: "equality"},
		{src: "show 1 && 1\n", want: "boolean operation"},
		{src: "show sum[i : 2] [i]\n", want: "non-numerical"},
	}
	for _, test := range tests {
		cmds := parse(t, test.src)
		_, err := checker.Check(cmds)
		if err == nil {
			t.Errorf("%q: checked but should fail", test.src)
			continue
		}
		if !strings.Contains(err.Error(), test.want) {
			t.Errorf("%q: diagnostic %q does not mention %q", test.src, err, test.want)
		}
	}
}

// Running the checker twice over the same tree yields identical
// annotations.
func TestCheckIdempotent(t *testing.T) {
	src := "let a = [1, 2]\nfn f(x : float) : float {\nreturn sqrt(x)\n}\nshow f(2.0) + to_float(a[0])\n"
	cmds := check(t, src)
	first := make([]string, len(cmds))
	for i, cmd := range cmds {
		first[i] = cmd.String()
	}
	if _, err := checker.Check(cmds); err != nil {
		t.Fatalf("second check failed: %v", err)
	}
	for i, cmd := range cmds {
		if diff := cmp.Diff(first[i], cmd.String()); diff != "" {
			t.Errorf("annotations changed on re-check (-first +second):\n%s", diff)
		}
	}
}

func TestGlobalScope(t *testing.T) {
	sc := checker.Global()
	info, ok := sc.Lookup("args")
	if !ok {
		t.Fatal("args not predeclared")
	}
	varInfo := info.(ir.VariableInfo)
	if !ir.Equal(varInfo.Type, ir.ArrayType{Elem: ir.Int, Rank: 1}) {
		t.Errorf("args has type %s, want int[]", varInfo.Type)
	}
	fn, ok := sc.Lookup("atan2")
	if !ok {
		t.Fatal("atan2 not predeclared")
	}
	funcInfo := fn.(ir.FuncInfo)
	if len(funcInfo.Args) != 2 || !ir.Equal(funcInfo.Return, ir.Float) {
		t.Errorf("atan2 has signature %v -> %s", funcInfo.Args, funcInfo.Return)
	}
}
