package main

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestVersionInfo(t *testing.T) {
	t.Parallel()

	for name, get := range map[string]func() string{
		"version": getVersion,
		"commit":  getCommit,
		"date":    getDate,
	} {
		if get() == "" {
			t.Errorf("%s is empty", name)
		}
	}
	if c := getCommit(); c != "unknown" && len(c) > 7 {
		t.Errorf("commit %q is not shortened", c)
	}
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"deliverycal version", "commit:", "built:", runtime.Version()} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got %q", want, output)
		}
	}
}
