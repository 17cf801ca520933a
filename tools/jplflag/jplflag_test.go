package jplflag_test

import (
	"testing"

	"github.com/jpl-lang/jplc/tools/jplflag"
)

func TestHas(t *testing.T) {
	flags := []string{"-l", "-O2"}
	if !jplflag.Has(flags, "-l") {
		t.Error("-l not found")
	}
	if jplflag.Has(flags, "-p") {
		t.Error("-p found but absent")
	}
	if jplflag.Has(nil, "-l") {
		t.Error("flag found in empty list")
	}
}

func TestOptLevel(t *testing.T) {
	tests := []struct {
		flags []string
		want  int
	}{
		{flags: nil, want: 0},
		{flags: []string{"-s"}, want: 0},
		{flags: []string{"-O1"}, want: 1},
		{flags: []string{"-s", "-O2"}, want: 2},
		{flags: []string{"-O0"}, want: 0},
		// Only the byte after -O is consulted.
		{flags: []string{"-O2x"}, want: 2},
	}
	for _, test := range tests {
		if got := jplflag.OptLevel(test.flags); got != test.want {
			t.Errorf("OptLevel(%v) = %d, want %d", test.flags, got, test.want)
		}
	}
}
