package amd64_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jpl-lang/jplc/backend/amd64"
	"github.com/jpl-lang/jplc/build/checker"
	"github.com/jpl-lang/jplc/build/cprop"
	"github.com/jpl-lang/jplc/build/ir"
	"github.com/jpl-lang/jplc/build/lexer"
	"github.com/jpl-lang/jplc/build/parser"
)

func generate(t *testing.T, src string, optLevel int) string {
	t.Helper()
	tokens, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	cmds, err := parser.Parse(tokens)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	scope, err := checker.Check(cmds)
	if err != nil {
		t.Fatalf("check error: %v", err)
	}
	if optLevel > 1 {
		cprop.Propagate(cmds)
	}
	assembly, err := amd64.Generate(cmds, scope, optLevel)
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	return assembly
}

func TestStackSize(t *testing.T) {
	tests := []struct {
		typ  ir.Type
		want int
	}{
		{typ: ir.Int, want: 8},
		{typ: ir.Float, want: 8},
		{typ: ir.Bool, want: 8},
		{typ: ir.TupleType{}, want: 0},
		{typ: ir.TupleType{Elems: []ir.Type{ir.Int, ir.Float}}, want: 16},
		{typ: ir.ArrayType{Elem: ir.Int, Rank: 1}, want: 16},
		{typ: ir.ArrayType{Elem: ir.Float, Rank: 3}, want: 32},
		{typ: ir.Image(), want: 24},
	}
	for _, test := range tests {
		if got := amd64.StackSize(test.typ); got != test.want {
			t.Errorf("StackSize(%s) = %d, want %d", test.typ, got, test.want)
		}
	}
}

func TestConstantPoolDedup(t *testing.T) {
	a := amd64.NewAssembly(checker.Global(), 0)
	first := a.ConstantInt(3)
	if again := a.ConstantInt(3); again != first {
		t.Errorf("same int constant produced labels %s and %s", first, again)
	}
	s1 := a.ConstantString("hello")
	if s2 := a.ConstantString("hello"); s2 != s1 {
		t.Errorf("same string constant produced labels %s and %s", s1, s2)
	}
	if other := a.ConstantString("world"); other == s1 {
		t.Error("distinct constants share a label")
	}
	// Labels are handed out in insertion order.
	if first != "const0" || s1 != "const1" {
		t.Errorf("labels %s, %s do not follow insertion order", first, s1)
	}
	// An int and a float with distinct directives never collide.
	if a.ConstantFloat(3) == first {
		t.Error("float and int constants share a label")
	}
}

func TestCallingConvention(t *testing.T) {
	intT, floatT := ir.Type(ir.Int), ir.Type(ir.Float)
	array := ir.Type(ir.ArrayType{Elem: ir.Int, Rank: 1})

	t.Run("scalars in registers", func(t *testing.T) {
		cc := amd64.NewCallingConvention([]ir.Type{intT, floatT, intT}, intT)
		if cc.VoidReturn || cc.ReturnLocation != amd64.RAX {
			t.Errorf("int return placed at %v", cc.ReturnLocation)
		}
		wantLocs := []amd64.Location{amd64.RDI, amd64.XMM0, amd64.RSI}
		for i, want := range wantLocs {
			if cc.PopOrder[i].Loc != want {
				t.Errorf("arg %d at %v, want %v", cc.PopOrder[i].Arg, cc.PopOrder[i].Loc, want)
			}
		}
		if cc.StackArgBytes != 0 {
			t.Errorf("stack bytes %d, want 0", cc.StackArgBytes)
		}
	})

	t.Run("integer overflow to stack", func(t *testing.T) {
		args := []ir.Type{intT, intT, intT, intT, intT, intT, intT}
		cc := amd64.NewCallingConvention(args, intT)
		last := cc.PopOrder[len(cc.PopOrder)-1]
		if last.Loc != amd64.OnStack || last.Arg != 6 {
			t.Errorf("seventh int at %v (arg %d), want the stack", last.Loc, last.Arg)
		}
		if cc.StackArgBytes != 8 {
			t.Errorf("stack bytes %d, want 8", cc.StackArgBytes)
		}
	})

	t.Run("aggregates always on stack", func(t *testing.T) {
		cc := amd64.NewCallingConvention([]ir.Type{array, intT}, floatT)
		if cc.ReturnLocation != amd64.XMM0 {
			t.Errorf("float return at %v, want xmm0", cc.ReturnLocation)
		}
		// The int still takes rdi; the array goes on the stack after
		// the register arguments in pop order.
		if cc.PopOrder[0].Arg != 1 || cc.PopOrder[0].Loc != amd64.RDI {
			t.Errorf("register args first: got arg %d at %v", cc.PopOrder[0].Arg, cc.PopOrder[0].Loc)
		}
		if cc.PopOrder[1].Arg != 0 || cc.PopOrder[1].Loc != amd64.OnStack {
			t.Errorf("array at %v", cc.PopOrder[1].Loc)
		}
		if cc.StackArgBytes != 16 {
			t.Errorf("stack bytes %d, want 16", cc.StackArgBytes)
		}
	})

	t.Run("aggregate return consumes rdi", func(t *testing.T) {
		cc := amd64.NewCallingConvention([]ir.Type{intT}, array)
		if cc.ReturnLocation != amd64.OnStack || cc.ReturnSize != 16 {
			t.Errorf("aggregate return at %v size %d", cc.ReturnLocation, cc.ReturnSize)
		}
		if cc.PopOrder[0].Loc != amd64.RSI {
			t.Errorf("first int arg at %v, want rsi (rdi reserved)", cc.PopOrder[0].Loc)
		}
	})

	t.Run("void return", func(t *testing.T) {
		cc := amd64.NewCallingConvention(nil, ir.Unit())
		if !cc.VoidReturn {
			t.Error("empty tuple return not void")
		}
	})

	t.Run("ninth float overflows", func(t *testing.T) {
		args := make([]ir.Type, 9)
		for i := range args {
			args[i] = floatT
		}
		cc := amd64.NewCallingConvention(args, ir.Unit())
		last := cc.PopOrder[8]
		if last.Loc != amd64.OnStack || last.Arg != 8 {
			t.Errorf("ninth float at %v", last.Loc)
		}
	})
}

const wantShowModule = `global jpl_main
global _jpl_main
extern _fail_assertion
extern _jpl_alloc
extern _get_time
extern _show
extern _print
extern _print_time
extern _read_image
extern _write_image
extern _fmod
extern _sqrt
extern _exp
extern _sin
extern _cos
extern _tan
extern _asin
extern _acos
extern _atan
extern _log
extern _pow
extern _atan2
extern _to_int
extern _to_float

section .data
const0: dq 2
const1: dq 1
const2: db ` + "`(IntType)`" + `, 0

section .text
jpl_main:
_jpl_main:
; Function Stack Setup
	push rbp
	mov rbp, rsp

; Setting Up r12
	push r12
	mov r12, rbp
	mov rax, [rel const0] ; 2
	push rax
	mov rax, [rel const1] ; 1
	push rax

; 1 + 2
	pop rax
	pop r10
	add rax, r10
	push rax

; show 1 + 2 | line: 0
	lea rdi, [rel const2] ; (IntType)
	lea rsi, [rsp]
	call _show
	add rsp, 8

; Restore r12
	pop r12

; Function Return
	pop rbp
	ret
`

// The whole emitted module for the smallest interesting program.
func TestGenerateShowModule(t *testing.T) {
	got := generate(t, "show 1 + 2\n", 0)
	if diff := cmp.Diff(wantShowModule, got); diff != "" {
		t.Errorf("module mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateShapes(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		optLevel int
		want     []string // substrings that must appear, in order
		absent   []string
	}{
		{
			name: "function symbols and main order",
			src:  "fn sq(x : int) : int {\nreturn x * x\n}\nshow sq(7)\n",
			want: []string{"sq:", "_sq:", "jpl_main:", "_jpl_main:", "call _sq"},
		},
		{
			name: "division checks for zero",
			src:  "show 7 / 2\n",
			want: []string{"check for divide by zero", "call _fail_assertion", "cqo", "idiv r10"},
		},
		{
			name: "modulo keeps the remainder",
			src:  "show 7 % 2\n",
			want: []string{"check for mod by zero", "idiv r10", "mov rax, rdx"},
		},
		{
			name: "float modulo through the runtime",
			src:  "show 7.0 % 2.0\n",
			want: []string{"call _fmod"},
		},
		{
			name: "array literal allocates",
			src:  "show [1, 2, 3]\n",
			want: []string{"mov rdi, 24", "call _jpl_alloc"},
		},
		{
			name: "array index bounds checks",
			src:  "let a = [1, 2, 3]\nshow a[2]\n",
			want: []string{"negative array index", "index too large", "multiply by size of elements", "add ptr for address in heap"},
		},
		{
			name: "sum loop accumulates",
			src:  "show sum[i : 3, j : 3] i * j\n",
			want: []string{"8 bytes for sum", "non-positive loop bound", "Add loop body to sum", "free loop bounds"},
		},
		{
			name: "array loop keeps its bounds",
			src:  "show array[i : 3] i\n",
			want: []string{"8 bytes for array ptr", "overflow computing array size", "call _jpl_alloc ; allocate array", "free loop indices"},
			absent: []string{
				"free loop bounds",
			},
		},
		{
			name: "read and write image",
			src:  "read image \"in.png\" to img\nwrite image img to \"out.png\"\n",
			want: []string{"call _read_image", "call _write_image"},
		},
		{
			name: "time brackets the command",
			src:  "time show 1\n",
			want: []string{"call _get_time ; getting pre-op time", "call _show", "call _get_time ; getting post-op time", "op time = end - start", "call _print_time"},
		},
		{
			name: "assert fails through the runtime",
			src:  "assert true, \"must hold\"\n",
			want: []string{"check assert", "call _fail_assertion"},
		},
		{
			name: "print",
			src:  "print \"hi\"\n",
			want: []string{"call _print ; print hi"},
		},
		{
			name: "short circuit only evaluates the needed side",
			src:  "show true && false\n",
			want: []string{"je .jump"},
		},
		{
			name:     "immediate push at level 1",
			src:      "show 5\n",
			optLevel: 1,
			want:     []string{"push qword 5"},
			absent:   []string{"dq 5"},
		},
		{
			name:     "level 0 goes through the pool",
			src:      "show 5\n",
			optLevel: 0,
			want:     []string{"const0: dq 5", "mov rax, [rel const0]"},
		},
		{
			name:     "multiply by a power of two shifts",
			src:      "let x = 3\nshow x * 8\n",
			optLevel: 1,
			want:     []string{"shl rax, 3"},
			absent:   []string{"imul"},
		},
		{
			name:     "multiply by one disappears",
			src:      "let x = 3\nshow x * 1\n",
			optLevel: 1,
			absent:   []string{"imul", "shl"},
		},
		{
			name:     "if then one else zero is the condition",
			src:      "show if 1 < 2 then 1 else 0\n",
			optLevel: 1,
			absent:   []string{"je .jump2", "jmp"},
		},
		{
			name:     "constant propagation reaches variables",
			src:      "let x = 4\nlet y = x\nshow y * y\n",
			optLevel: 2,
			want:     []string{"push qword 4 ; y"},
		},
		{
			name:     "variable array index reuses storage",
			src:      "let a = [1, 2, 3]\nshow a[0]\n",
			optLevel: 1,
			want:     []string{"index too large"},
			absent:   []string{"for temp a"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := generate(t, test.src, test.optLevel)
			at := 0
			for _, want := range test.want {
				i := strings.Index(got[at:], want)
				if i < 0 {
					t.Fatalf("missing %q (in order) in:\n%s", want, got)
				}
				at += i
			}
			for _, absent := range test.absent {
				if strings.Contains(got, absent) {
					t.Errorf("unexpected %q in:\n%s", absent, got)
				}
			}
		})
	}
}

// simulate walks one function's emitted text linearly, tracking the
// byte depth of rsp below the function label. At every call rsp must be
// 16-byte aligned (depth 8 mod 16, the return address making up the
// difference), and at ret the depth must be back to zero. Programs with
// if expressions are excluded: their two branches share one result slot,
// which a linear walk cannot see.
func simulate(t *testing.T, name string, lines []string) {
	t.Helper()
	depth := 0
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if i := strings.Index(line, ";"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		switch {
		case strings.HasPrefix(line, "push"):
			depth += 8
		case strings.HasPrefix(line, "pop"):
			depth -= 8
		case strings.HasPrefix(line, "sub rsp, "):
			n, err := strconv.Atoi(strings.TrimPrefix(line, "sub rsp, "))
			if err != nil {
				t.Fatalf("%s: cannot read %q", name, line)
			}
			depth += n
		case strings.HasPrefix(line, "add rsp, "):
			n, err := strconv.Atoi(strings.TrimPrefix(line, "add rsp, "))
			if err != nil {
				t.Fatalf("%s: cannot read %q", name, line)
			}
			depth -= n
		case strings.HasPrefix(line, "call "):
			if depth%16 != 8 {
				t.Errorf("%s: %q at depth %d: stack not 16-byte aligned", name, line, depth)
			}
		case line == "ret":
			if depth != 0 {
				t.Errorf("%s: ret at depth %d, want 0", name, depth)
			}
		}
	}
}

func TestStackBalanceAndAlignment(t *testing.T) {
	srcs := []string{
		"show 1 + 2\n",
		"let x = 3\nshow x * x\n",
		"let a = [1, 2, 3]\nshow a[2]\n",
		"fn sq(x : int) : int {\nreturn x * x\n}\nshow sq(7)\n",
		"show sum[i : 3, j : 3] i * j\n",
		"show array[i : 4] i * i\n",
		"show sqrt(2.0)\n",
		"show pow(2.0, 10.0)\n",
		"read image \"in.png\" to img\nwrite image img to \"out.png\"\n",
		"print \"hello\"\nassert 1 < 2, \"ordering\"\n",
		"time show 1\n",
		"let t = {1, 2.0, {true}}\nshow t{1}\n",
		"fn pair(x : int) : {int, int} {\nreturn {x, x}\n}\nshow pair(3){0}\n",
		"fn void() : {} {\nlet x = 1\n}\nshow 1\n",
		"fn many(a : int, b : int, c : int, d : int, e : int, f : int, g : int) : int {\nreturn g\n}\nshow many(1, 2, 3, 4, 5, 6, 7)\n",
		"fn mixed(a : float, x : int, b : float) : float {\nreturn a % b\n}\nshow mixed(1.5, 2, 0.5)\n",
		"show true && false\n",
		"show ! true || false\n",
		"show - 5\nshow - 5.0\n",
	}
	for _, src := range srcs {
		for _, optLevel := range []int{0, 1, 2} {
			module := generate(t, src, optLevel)
			_, text, _ := strings.Cut(module, "section .text\n")
			var name string
			var lines []string
			flush := func() {
				if name != "" {
					simulate(t, name, lines)
				}
			}
			for _, line := range strings.Split(text, "\n") {
				if strings.HasSuffix(line, ":") && !strings.HasPrefix(line, "\t") && !strings.HasPrefix(line, ".") && !strings.HasPrefix(line, "_") {
					flush()
					name = line
					lines = nil
					continue
				}
				lines = append(lines, line)
			}
			flush()
		}
	}
}
