package lexer_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jpl-lang/jplc/build/lexer"
	"github.com/jpl-lang/jplc/build/token"
)

func kinds(tokens []token.Token) []token.Kind {
	ks := make([]token.Kind, len(tokens))
	for i, t := range tokens {
		ks[i] = t.Kind
	}
	return ks
}

func texts(tokens []token.Token) []string {
	ts := make([]string, len(tokens))
	for i, t := range tokens {
		ts[i] = t.Text
	}
	return ts
}

func TestLexKinds(t *testing.T) {
	tests := []struct {
		src  string
		want []token.Kind
	}{
		{
			src:  "show 1+2",
			want: []token.Kind{token.Show, token.IntVal, token.Op, token.IntVal, token.EOF},
		},
		{
			src: "let x = 3.5",
			want: []token.Kind{
				token.Let, token.Variable, token.Equals, token.FloatVal, token.EOF,
			},
		},
		{
			src: "read image \"photo.png\" to img[w, h]",
			want: []token.Kind{
				token.Read, token.Image, token.String, token.To, token.Variable,
				token.LSquare, token.Variable, token.Comma, token.Variable,
				token.RSquare, token.EOF,
			},
		},
		{
			src: "fn f(x : int) : int {\nreturn x\n}",
			want: []token.Kind{
				token.Fn, token.Variable, token.LParen, token.Variable,
				token.Colon, token.Int, token.RParen, token.Colon, token.Int,
				token.LCurly, token.Newline, token.Return, token.Variable,
				token.Newline, token.RCurly, token.EOF,
			},
		},
		{
			// Runs of newlines collapse to one NEWLINE token.
			src: "show 1\n\n\nshow 2",
			want: []token.Kind{
				token.Show, token.IntVal, token.Newline, token.Show,
				token.IntVal, token.EOF,
			},
		},
		{
			// A continuation hides its newline.
			src:  "show \\\n1",
			want: []token.Kind{token.Show, token.IntVal, token.EOF},
		},
		{
			// A line comment eats to the end of the line.
			src: "show 1 // the rest\nshow 2",
			want: []token.Kind{
				token.Show, token.IntVal, token.Newline, token.Show,
				token.IntVal, token.EOF,
			},
		},
		{
			// A block comment spanning lines counts as a newline.
			src: "show 1 /* a\nb */ show 2",
			want: []token.Kind{
				token.Show, token.IntVal, token.Newline, token.Show,
				token.IntVal, token.EOF,
			},
		},
		{
			// A one-line block comment is invisible.
			src:  "show /* hidden */ 1",
			want: []token.Kind{token.Show, token.IntVal, token.EOF},
		},
		{
			// Keywords are only keywords when they end there.
			src:  "lettuce let",
			want: []token.Kind{token.Variable, token.Let, token.EOF},
		},
		{
			// Identifiers may contain dots.
			src:  "a.b",
			want: []token.Kind{token.Variable, token.EOF},
		},
	}
	for _, test := range tests {
		got, err := lexer.Lex(test.src)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", test.src, err)
			continue
		}
		if diff := cmp.Diff(test.want, kinds(got)); diff != "" {
			t.Errorf("%q: kinds mismatch (-want +got):\n%s", test.src, diff)
		}
	}
}

func TestLexOperators(t *testing.T) {
	src := "== != <= >= < > + - * / % && || !"
	got, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := append(strings.Fields(src), "")
	if diff := cmp.Diff(want, texts(got)); diff != "" {
		t.Errorf("operator texts mismatch (-want +got):\n%s", diff)
	}
	for _, tok := range got[:len(got)-1] {
		if tok.Kind != token.Op {
			t.Errorf("%q lexed as %s, want OP", tok.Text, tok.Kind)
		}
	}
}

func TestLexNumbers(t *testing.T) {
	tests := []struct {
		src  string
		kind token.Kind
	}{
		{src: "0", kind: token.IntVal},
		{src: "1234", kind: token.IntVal},
		{src: "1.", kind: token.FloatVal},
		{src: "1.5", kind: token.FloatVal},
		{src: ".5", kind: token.FloatVal},
	}
	for _, test := range tests {
		got, err := lexer.Lex(test.src)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", test.src, err)
			continue
		}
		if len(got) != 2 || got[0].Kind != test.kind || got[0].Text != test.src {
			t.Errorf("%q: got %v, want one %s token", test.src, got, test.kind)
		}
	}
}

func TestLexStringKeepsQuotes(t *testing.T) {
	got, err := lexer.Lex(`print "hello"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[1].Text != `"hello"` {
		t.Errorf("got string text %q, want quotes kept", got[1].Text)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []string{
		"show \t1",      // tab is not an accepted character
		"let x = \x07",  // control byte
		"print \"open",  // unterminated string
		"show 1 /* oop", // unterminated block comment
		"show @",        // unrecognizable token
		"show 1. .",     // a lone dot is no token
	}
	for _, src := range tests {
		if _, err := lexer.Lex(src); err == nil {
			t.Errorf("%q: lexed but should fail", src)
		}
	}
}

func TestLexPositions(t *testing.T) {
	got, err := lexer.Lex("show 1\nshow 23")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Positions record the column after the token; lines are 0-based.
	wants := []struct {
		line, pos int
	}{
		{0, 4},  // show
		{0, 6},  // 1
		{0, 6},  // newline records the start of its run
		{1, 4},  // show
		{1, 7},  // 23
		{0, 0},  // EOF
	}
	for i, want := range wants {
		if got[i].Line != want.line || got[i].Pos != want.pos {
			t.Errorf("token %d (%s): at %d:%d, want %d:%d",
				i, got[i], got[i].Line, got[i].Pos, want.line, want.pos)
		}
	}
}

func TestPrintAll(t *testing.T) {
	var b strings.Builder
	lexer.PrintAll(&b, "show 1")
	want := "SHOW 'show'\nINTVAL '1'\nEND_OF_FILE\nCompilation succeeded: lexical analysis complete\n"
	if diff := cmp.Diff(want, b.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	b.Reset()
	lexer.PrintAll(&b, "show \x01")
	if got := b.String(); got != "Compilation failed\n" {
		t.Errorf("got %q for a bad byte, want Compilation failed", got)
	}
}
