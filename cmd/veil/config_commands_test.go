package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInit(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err == nil {
		t.Fatal("second config init should fail without --overwrite")
	}

	out, _, err = runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "", "")
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
}

func TestResolveInitTarget(t *testing.T) {
	tmp := t.TempDir()

	nested := filepath.Join(tmp, "nested", "dir", "config.toml")
	target, err := resolveInitTarget("  " + nested + "  ")
	if err != nil {
		t.Fatalf("resolveInitTarget: %v", err)
	}
	if target != nested {
		t.Fatalf("target = %q, want %q", target, nested)
	}
	info, err := os.Stat(filepath.Dir(nested))
	if err != nil || !info.IsDir() {
		t.Fatalf("expected parent directory to be created: %v", err)
	}
}
