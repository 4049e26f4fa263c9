package main

import (
	"testing"
)

func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "deliverycal" {
			t.Errorf("expected use 'deliverycal', got %q", cmd.Use)
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage || !cmd.SilenceErrors {
			t.Error("expected usage and errors to be silenced")
		}
	})

	t.Run("has persistent flags", func(t *testing.T) {
		t.Parallel()
		for name, shorthand := range map[string]string{"verbose": "v", "config": "c"} {
			flag := cmd.PersistentFlags().Lookup(name)
			if flag == nil {
				t.Errorf("expected %s flag", name)
				continue
			}
			if flag.Shorthand != shorthand {
				t.Errorf("%s shorthand = %q, want %q", name, flag.Shorthand, shorthand)
			}
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := []string{"run", "parse", "replay", "events", "init", "version"}
		found := make(map[string]bool)
		for _, sub := range cmd.Commands() {
			found[sub.Name()] = true
		}
		for _, name := range want {
			if !found[name] {
				t.Errorf("expected %s subcommand", name)
			}
		}
	})
}
