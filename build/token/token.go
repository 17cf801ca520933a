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

// Package token defines the lexical tokens of JPL.
package token

import "fmt"

// Kind identifies a class of token.
type Kind int

// Token kinds. Keywords first, then punctuation, then the value-carrying
// kinds and the stream markers.
const (
	None Kind = iota

	Array
	Assert
	Bool
	Else
	False
	Float
	Fn
	If
	Image
	Int
	Let
	Print
	Read
	Return
	Show
	Sum
	Then
	Time
	To
	True
	Type
	Write

	Colon
	Comma
	Equals
	LParen
	RParen
	LSquare
	RSquare
	LCurly
	RCurly

	Op
	String
	IntVal
	FloatVal
	Variable
	Newline
	EOF
)

var kindNames = map[Kind]string{
	Array:    "ARRAY",
	Assert:   "ASSERT",
	Bool:     "BOOL",
	Else:     "ELSE",
	False:    "FALSE",
	Float:    "FLOAT",
	Fn:       "FN",
	If:       "IF",
	Image:    "IMAGE",
	Int:      "INT",
	Let:      "LET",
	Print:    "PRINT",
	Read:     "READ",
	Return:   "RETURN",
	Show:     "SHOW",
	Sum:      "SUM",
	Then:     "THEN",
	Time:     "TIME",
	To:       "TO",
	True:     "TRUE",
	Type:     "TYPE",
	Write:    "WRITE",
	Colon:    "COLON",
	Comma:    "COMMA",
	Equals:   "EQUALS",
	LParen:   "LPAREN",
	RParen:   "RPAREN",
	LSquare:  "LSQUARE",
	RSquare:  "RSQUARE",
	LCurly:   "LCURLY",
	RCurly:   "RCURLY",
	Op:       "OP",
	String:   "STRING",
	IntVal:   "INTVAL",
	FloatVal: "FLOATVAL",
	Variable: "VARIABLE",
	Newline:  "NEWLINE",
	EOF:      "END_OF_FILE",
}

// String returns the upper-case name of the kind, as printed by the lexing
// stage of the driver.
func (k Kind) String() string {
	return kindNames[k]
}

// Keywords maps keyword spellings to their kinds.
var Keywords = map[string]Kind{
	"array":  Array,
	"assert": Assert,
	"bool":   Bool,
	"else":   Else,
	"false":  False,
	"float":  Float,
	"fn":     Fn,
	"if":     If,
	"image":  Image,
	"int":    Int,
	"let":    Let,
	"print":  Print,
	"read":   Read,
	"return": Return,
	"show":   Show,
	"sum":    Sum,
	"then":   Then,
	"time":   Time,
	"to":     To,
	"true":   True,
	"type":   Type,
	"write":  Write,
}

// Token is a lexical token with its raw text and source position. Line and
// Pos are 0-based; Pos records the column immediately after the token text.
type Token struct {
	Kind Kind
	Text string
	Line int
	Pos  int
}

// String returns the token in the form printed by the lexing stage:
// the kind name, followed by the quoted text for every kind except
// NEWLINE and END_OF_FILE.
func (t Token) String() string {
	switch t.Kind {
	case Newline, EOF:
		return t.Kind.String()
	}
	return fmt.Sprintf("%s '%s'", t.Kind, t.Text)
}
