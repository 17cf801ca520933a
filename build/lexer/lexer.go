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

// Package lexer turns JPL source text into a token stream.
//
// The lexer accepts newline plus printable 7-bit ASCII and fails on the
// first byte or token it cannot recognize. Runs of whitespace, comments,
// and line continuations collapse to a single NEWLINE token when they
// contain a real line break, and disappear otherwise. Lines and positions
// are 0-based; a token's recorded position is the column just after its
// text.
package lexer

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/jpl-lang/jplc/build/fmterr"
	"github.com/jpl-lang/jplc/build/token"
)

// Operator spellings, two-character operators before their one-character
// prefixes. The * and / entries carry lookahead restrictions handled in
// matchOperator.
var operators = []string{"==", ">=", "<=", ">", "<", "!=", "+", "-", "*", "/", "%", "&&", "||", "!"}

// Keyword spellings in the order they are attempted.
var keywords = []string{
	"array", "assert", "bool", "else", "false", "float", "fn", "if",
	"image", "int", "let", "print", "read", "return", "show", "sum",
	"then", "time", "to", "true", "type", "write",
}

var punctuation = map[byte]token.Kind{
	':': token.Colon,
	',': token.Comma,
	'=': token.Equals,
	'(': token.LParen,
	')': token.RParen,
	'[': token.LSquare,
	']': token.RSquare,
	'{': token.LCurly,
	'}': token.RCurly,
}

type scanner struct {
	src  string
	off  int
	line int
	pos  int
}

// Lex returns the token stream for source, terminated by an END_OF_FILE
// token, or the first lexical error.
func Lex(source string) ([]token.Token, error) {
	if err := preprocess(source); err != nil {
		return nil, err
	}
	s := &scanner{src: source}
	var tokens []token.Token
	for {
		t, done, err := s.next()
		if err != nil {
			return nil, err
		}
		if t.Kind != token.None {
			tokens = append(tokens, t)
		}
		if done {
			break
		}
	}
	tokens = append(tokens, token.Token{Kind: token.EOF})
	return tokens, nil
}

// PrintAll lexes source and writes one token per line to w, the way the
// lexing stage of the driver reports them. It writes the final status line
// itself and never returns an error: a failed lex reports
// "Compilation failed".
func PrintAll(w io.Writer, source string) {
	if err := preprocess(source); err != nil {
		fmt.Fprintln(w, "Compilation failed")
		return
	}
	s := &scanner{src: source}
	for {
		t, done, err := s.next()
		if err != nil {
			fmt.Fprintln(w, "Compilation failed")
			return
		}
		if t.Kind != token.None {
			fmt.Fprintln(w, t)
		}
		if done {
			break
		}
	}
	fmt.Fprintln(w, token.Token{Kind: token.EOF})
	fmt.Fprintln(w, "Compilation succeeded: lexical analysis complete")
}

// preprocess rejects any byte outside newline plus printable ASCII.
func preprocess(source string) error {
	line, pos := 0, 0
	for i := 0; i < len(source); i++ {
		c := source[i]
		if c != '\n' && (c < 0x20 || c > 0x7e) {
			return lexError(line, pos, source[i:], "Not all characters supported.")
		}
		if c == '\n' {
			line++
			pos = 0
		} else {
			pos++
		}
	}
	return nil
}

// next consumes leading whitespace and then one token. It returns a None
// token when the whitespace run reaches the end of the source without a
// line break, and done when the source is exhausted.
func (s *scanner) next() (token.Token, bool, error) {
	ws, err := s.whitespace()
	if err != nil {
		return token.Token{}, false, err
	}
	if ws.Kind == token.Newline {
		return ws, s.off >= len(s.src), nil
	}
	if s.off >= len(s.src) {
		return token.Token{Kind: token.None}, true, nil
	}
	t, err := s.token()
	if err != nil {
		return token.Token{}, false, err
	}
	return t, s.off >= len(s.src), nil
}

// whitespace consumes spaces, line continuations, and comments. It returns
// a Newline token, positioned at the start of the run, when the run
// contained a real line break.
func (s *scanner) whitespace() (token.Token, error) {
	startLine, startPos := s.line, s.pos
	sawNewline := false
	for s.off < len(s.src) {
		switch {
		case s.src[s.off] == ' ':
			s.off++
			s.pos++
		case s.src[s.off] == '\n':
			s.off++
			s.line++
			s.pos = 0
			sawNewline = true
		case s.src[s.off] == '\\' && s.off+1 < len(s.src) && s.src[s.off+1] == '\n':
			s.off += 2
			s.line++
			s.pos = 0
		case strings.HasPrefix(s.src[s.off:], "//"):
			for s.off < len(s.src) && s.src[s.off] != '\n' {
				s.off++
				s.pos++
			}
		case strings.HasPrefix(s.src[s.off:], "/*"):
			end := strings.Index(s.src[s.off+2:], "*/")
			if end < 0 {
				return token.Token{}, lexError(s.line, s.pos, s.src[s.off:], "Unterminated block comment.")
			}
			body := s.src[s.off : s.off+2+end+2]
			for i := 0; i < len(body); i++ {
				if body[i] == '\n' {
					s.line++
					s.pos = 0
					sawNewline = true
				} else {
					s.pos++
				}
			}
			s.off += len(body)
		default:
			if sawNewline {
				return token.Token{Kind: token.Newline, Text: "\n", Line: startLine, Pos: startPos}, nil
			}
			return token.Token{Kind: token.None}, nil
		}
	}
	if sawNewline {
		return token.Token{Kind: token.Newline, Text: "\n", Line: startLine, Pos: startPos}, nil
	}
	return token.Token{Kind: token.None}, nil
}

// token lexes one token at the current position, attempting each class in
// order: keyword, operator, punctuation, string, float, int, identifier.
func (s *scanner) token() (token.Token, error) {
	rest := s.src[s.off:]
	if text, kind, ok := matchKeyword(rest); ok {
		return s.take(kind, text), nil
	}
	if text, ok := matchOperator(rest); ok {
		return s.take(token.Op, text), nil
	}
	if kind, ok := punctuation[rest[0]]; ok {
		return s.take(kind, rest[:1]), nil
	}
	if rest[0] == '"' {
		text, ok := matchString(rest)
		if !ok {
			return token.Token{}, lexError(s.line, s.pos, rest, "Could not lex token as string value.")
		}
		return s.take(token.String, text), nil
	}
	if text, ok := matchFloat(rest); ok {
		return s.take(token.FloatVal, text), nil
	}
	if text, ok := matchInt(rest); ok {
		return s.take(token.IntVal, text), nil
	}
	if text, ok := matchIdent(rest); ok {
		return s.take(token.Variable, text), nil
	}
	return token.Token{}, lexError(s.line, s.pos, rest, "Could not recognize token.")
}

// take consumes text and returns its token, recording the position just
// after the consumed text.
func (s *scanner) take(kind token.Kind, text string) token.Token {
	s.off += len(text)
	s.pos += len(text)
	return token.Token{Kind: kind, Text: text, Line: s.line, Pos: s.pos}
}

func isIdentCont(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// matchKeyword recognizes a keyword only when it is not followed by an
// identifier-continuation character. The dot is deliberately absent from
// that class.
func matchKeyword(rest string) (string, token.Kind, bool) {
	for _, kw := range keywords {
		if !strings.HasPrefix(rest, kw) {
			continue
		}
		if len(rest) > len(kw) && isIdentCont(rest[len(kw)]) {
			continue
		}
		return kw, token.Keywords[kw], true
	}
	return "", token.None, false
}

// matchOperator recognizes operators; * must not be followed by / and
// / must not be followed by *, so comment openers never lex as operators.
func matchOperator(rest string) (string, bool) {
	for _, op := range operators {
		if !strings.HasPrefix(rest, op) {
			continue
		}
		after := rest[len(op):]
		if op == "*" && strings.HasPrefix(after, "/") {
			continue
		}
		if op == "/" && strings.HasPrefix(after, "*") {
			continue
		}
		return op, true
	}
	return "", false
}

// matchString recognizes a double-quoted literal with no newline or quote
// inside. The returned text includes the quotes.
func matchString(rest string) (string, bool) {
	for i := 1; i < len(rest); i++ {
		switch rest[i] {
		case '"':
			return rest[:i+1], true
		case '\n':
			return "", false
		}
	}
	return "", false
}

// matchFloat recognizes digits '.' digits* or '.' digits+.
func matchFloat(rest string) (string, bool) {
	i := 0
	for i < len(rest) && isDigit(rest[i]) {
		i++
	}
	if i < len(rest) && rest[i] == '.' {
		if i == 0 && (i+1 >= len(rest) || !isDigit(rest[i+1])) {
			return "", false
		}
		i++
		for i < len(rest) && isDigit(rest[i]) {
			i++
		}
		return rest[:i], true
	}
	return "", false
}

// matchInt recognizes digits not followed by a dot or another digit.
func matchInt(rest string) (string, bool) {
	i := 0
	for i < len(rest) && isDigit(rest[i]) {
		i++
	}
	if i == 0 {
		return "", false
	}
	if i < len(rest) && rest[i] == '.' {
		return "", false
	}
	return rest[:i], true
}

func matchIdent(rest string) (string, bool) {
	c := rest[0]
	if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_') {
		return "", false
	}
	i := 1
	for i < len(rest) && (isIdentCont(rest[i]) || rest[i] == '.') {
		i++
	}
	return rest[:i], true
}

// lexError builds a positioned lexing diagnostic whose context is the text
// up to the next space or newline.
func lexError(line, pos int, rest, msg string) error {
	end := strings.IndexAny(rest, " \n")
	if end < 0 {
		end = len(rest)
	}
	return fmterr.New(fmterr.Lexing, line, pos, fmt.Sprintf("Token %q", rest[:end]), errors.New(msg))
}
