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

// Package fmterr formats compiler diagnostics given a stage and a source
// position.
package fmterr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Stage is the compiler stage a diagnostic originates from.
type Stage int

// Stages, in pipeline order.
const (
	Lexing Stage = iota
	Parsing
	Typechecking
)

// String returns the stage name used in diagnostics.
func (s Stage) String() string {
	switch s {
	case Lexing:
		return "Lexing"
	case Parsing:
		return "Parsing"
	case Typechecking:
		return "Typechecking"
	}
	return "Unknown"
}

// Error is a diagnostic attached to a position in JPL source. Line and Pos
// are 0-based; Context names the token or expression the stage was looking
// at when it failed.
type Error struct {
	Stage   Stage
	Line    int
	Pos     int
	Context string
	Err     error
}

// New returns a positioned diagnostic for a stage.
func New(stage Stage, line, pos int, context string, err error) *Error {
	return &Error{Stage: stage, Line: line, Pos: pos, Context: context, Err: err}
}

// Errorf returns a positioned diagnostic with a formatted message.
func Errorf(stage Stage, line, pos int, context, format string, a ...any) *Error {
	return New(stage, line, pos, context, errors.Errorf(format, a...))
}

// Error renders the diagnostic in the compiler's surface format.
func (e *Error) Error() string {
	return fmt.Sprintf("\nEncountered Error at %s Step. Line %d, Position %d, %s.\n%s",
		e.Stage, e.Line, e.Pos, e.Context, e.Err)
}

// Unwrap the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Internal marks an error as a bug in the compiler itself rather than in
// the program being compiled.
func Internal(err error) error {
	return fmt.Errorf("JPL internal error. This is a bug in the compiler. Error:\n%v", err)
}

// Internalf returns a formatted internal error.
func Internalf(format string, a ...any) error {
	return Internal(errors.Errorf(format, a...))
}
