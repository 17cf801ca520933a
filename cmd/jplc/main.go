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

// Command jplc compiles JPL source to x86-64 assembly.
//
// Usage:
//
//	jplc <file.jpl> [flags]
//
// The stage flags are mutually exclusive: -l prints tokens, -p prints the
// parse tree, -t prints the type-annotated tree, -s emits assembly to
// standard output. Absent all of them the full pipeline runs without
// printing the assembly. -O0 (default), -O1, and -O2 select the
// optimization level. The exit code is always zero; success and failure
// are reported as text on standard output, with diagnostics on standard
// error.
package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"

	"github.com/jpl-lang/jplc/backend/amd64"
	"github.com/jpl-lang/jplc/build/ast"
	"github.com/jpl-lang/jplc/build/checker"
	"github.com/jpl-lang/jplc/build/cprop"
	"github.com/jpl-lang/jplc/build/lexer"
	"github.com/jpl-lang/jplc/build/parser"
	"github.com/jpl-lang/jplc/tools/jplflag"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run drives the pipeline. The return value is always zero: the driver
// signals failure through its output text, not the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintf(stdout, "The JPL compiler takes at least one argument:\n %s <filename>\n", args[0])
		return 0
	}
	filename := args[1]
	flags := args[2:]

	source, err := readSource(filename)
	if err != nil {
		fail(stdout, stderr, err)
		return 0
	}

	if jplflag.Has(flags, "-l") {
		lexer.PrintAll(stdout, source)
		return 0
	}

	tokens, err := lexer.Lex(source)
	if err != nil {
		fail(stdout, stderr, err)
		return 0
	}
	cmds, err := parser.Parse(tokens)
	if err != nil {
		fail(stdout, stderr, err)
		return 0
	}
	if jplflag.Has(flags, "-p") {
		printTree(stdout, cmds)
		fmt.Fprintln(stdout, "Compilation succeeded")
		return 0
	}

	scope, err := checker.Check(cmds)
	if err != nil {
		fail(stdout, stderr, err)
		return 0
	}
	if jplflag.Has(flags, "-t") {
		printTree(stdout, cmds)
		fmt.Fprintln(stdout, "Compilation succeeded")
		return 0
	}

	optLevel := jplflag.OptLevel(flags)
	if optLevel > 1 {
		cprop.Propagate(cmds)
	}
	assembly, err := amd64.Generate(cmds, scope, optLevel)
	if err != nil {
		fail(stdout, stderr, err)
		return 0
	}
	if jplflag.Has(flags, "-s") {
		fmt.Fprint(stdout, assembly)
		fmt.Fprintln(stdout, "Compilation succeeded")
	}
	return 0
}

func printTree(w io.Writer, cmds []ast.Command) {
	for _, cmd := range cmds {
		fmt.Fprintln(w, cmd)
	}
}

func fail(stdout, stderr io.Writer, err error) {
	fmt.Fprintln(stdout, "Compilation failed")
	fmt.Fprintln(stderr, err)
}

func readSource(path string) (src string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
