package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "program.jpl")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runDriver(t *testing.T, src string, flags ...string) (string, string) {
	t.Helper()
	path := writeSource(t, src)
	var stdout, stderr strings.Builder
	args := append([]string{"jplc", path}, flags...)
	if code := run(args, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, want 0", code)
	}
	return stdout.String(), stderr.String()
}

func TestUsage(t *testing.T) {
	var stdout, stderr strings.Builder
	if code := run([]string{"jplc"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "<filename>") {
		t.Errorf("no usage line in %q", stdout.String())
	}
}

func TestLexStage(t *testing.T) {
	stdout, _ := runDriver(t, "show 1\n", "-l")
	for _, want := range []string{"SHOW 'show'", "INTVAL '1'", "NEWLINE", "END_OF_FILE", "Compilation succeeded: lexical analysis complete"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("missing %q in -l output:\n%s", want, stdout)
		}
	}
}

func TestParseStage(t *testing.T) {
	stdout, _ := runDriver(t, "show 1+2\n", "-p")
	want := "(ShowCmd (BinopExpr (IntExpr 1) + (IntExpr 2)))\nCompilation succeeded\n"
	if stdout != want {
		t.Errorf("-p output %q, want %q", stdout, want)
	}
}

func TestTypeStage(t *testing.T) {
	stdout, _ := runDriver(t, "show 1+2\n", "-t")
	want := "(ShowCmd (BinopExpr (IntType) (IntExpr (IntType) 1) + (IntExpr (IntType) 2)))\nCompilation succeeded\n"
	if stdout != want {
		t.Errorf("-t output %q, want %q", stdout, want)
	}
}

func TestAssemblyStage(t *testing.T) {
	stdout, _ := runDriver(t, "show 1+2\n", "-s", "-O1")
	for _, want := range []string{"global jpl_main", "section .data", "section .text", "call _show", "Compilation succeeded"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("missing %q in -s output", want)
		}
	}
}

func TestFailureKeepsExitZero(t *testing.T) {
	stdout, stderr := runDriver(t, "show 1 + true\n", "-t")
	if !strings.Contains(stdout, "Compilation failed") {
		t.Errorf("stdout %q does not report failure", stdout)
	}
	if !strings.Contains(stderr, "Typechecking") {
		t.Errorf("stderr %q carries no diagnostic", stderr)
	}
}

func TestFullPipelineSilent(t *testing.T) {
	stdout, stderr := runDriver(t, "show 1\n")
	if stdout != "" || stderr != "" {
		t.Errorf("full pipeline printed %q / %q, want silence", stdout, stderr)
	}
}

func TestMissingFile(t *testing.T) {
	var stdout, stderr strings.Builder
	if code := run([]string{"jplc", filepath.Join(t.TempDir(), "absent.jpl")}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "Compilation failed") {
		t.Errorf("stdout %q does not report failure", stdout.String())
	}
}
