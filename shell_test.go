package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestSmartSplit(t *testing.T) {

	cases := []struct {
		line string
		verb string
		args []string
	}{
		{line: "put file.com 3", verb: "put", args: []string{"file.com", "3"}},
		{line: `mount "my disk.img" hd1k`, verb: "mount", args: []string{"my disk.img", "hd1k"}},
		{line: `put my\ file.com`, verb: "put", args: []string{"my file.com"}},
		{line: "quit", verb: "quit"},
		{line: "  cat  ", verb: "cat"},
		{line: ""},
	}

	for _, c := range cases {
		verb, args := smartSplit(c.line)
		if verb != c.verb {
			t.Errorf("%q: verb got %q, want %q", c.line, verb, c.verb)
		}
		if diff := cmp.Diff(c.args, args, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("%q: args mismatch (-want +got):\n%s", c.line, diff)
		}
	}
}
