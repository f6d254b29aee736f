package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"veil/internal/config"
	"veil/internal/logging"
	"veil/internal/scores"
)

func writePolicy(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
}

func TestLoadPolicyMissingFileDisablesEverything(t *testing.T) {
	policy, err := config.LoadPolicy(filepath.Join(t.TempDir(), "filter.toml"))
	if err != nil {
		t.Fatalf("LoadPolicy failed: %v", err)
	}
	if policy.Enabled() {
		t.Fatal("expected all categories disabled for missing policy file")
	}
	if len(policy.Categories) != len(scores.Categories) {
		t.Fatalf("expected %d categories, got %d", len(scores.Categories), len(policy.Categories))
	}
}

func TestLoadPolicyParsesCategories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.toml")
	writePolicy(t, path, `
feedback = true

[categories.nudity]
enabled = true
threshold = 0.35
`)

	policy, err := config.LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy failed: %v", err)
	}
	if !policy.Feedback {
		t.Fatal("expected feedback enabled")
	}
	cat := policy.Categories[scores.CategoryNudity]
	if !cat.Enabled || cat.Threshold != 0.35 {
		t.Fatalf("unexpected nudity policy: %+v", cat)
	}
	if policy.Categories[scores.CategoryViolence].Enabled {
		t.Fatal("unconfigured categories must stay disabled")
	}
}

func TestLoadPolicyRejectsUnknownCategoryAndBadThreshold(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.toml")
	writePolicy(t, unknown, "[categories.gambling]\nenabled = true\nthreshold = 0.5\n")
	if _, err := config.LoadPolicy(unknown); err == nil {
		t.Fatal("expected error for unknown category")
	}

	outOfRange := filepath.Join(dir, "range.toml")
	writePolicy(t, outOfRange, "[categories.nudity]\nenabled = true\nthreshold = 1.5\n")
	if _, err := config.LoadPolicy(outOfRange); err == nil {
		t.Fatal("expected error for threshold outside [0,1]")
	}
}

func TestPolicyProviderReflectsEditsImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.toml")
	writePolicy(t, path, "[categories.nudity]\nenabled = true\nthreshold = 0.35\n")

	provider := config.NewPolicyProvider(path, logging.NewNop())

	policy := provider.Snapshot()
	if policy.Categories[scores.CategoryNudity].Threshold != 0.35 {
		t.Fatalf("unexpected initial threshold: %+v", policy.Categories[scores.CategoryNudity])
	}

	writePolicy(t, path, "[categories.nudity]\nenabled = true\nthreshold = 0.50\n")
	policy = provider.Snapshot()
	if policy.Categories[scores.CategoryNudity].Threshold != 0.50 {
		t.Fatal("expected edited threshold on next snapshot")
	}
}

func TestPolicyProviderFallsBackToLastGood(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.toml")
	writePolicy(t, path, "[categories.violence]\nenabled = true\nthreshold = 0.45\n")

	provider := config.NewPolicyProvider(path, logging.NewNop())
	if got := provider.Snapshot(); !got.Categories[scores.CategoryViolence].Enabled {
		t.Fatal("expected violence enabled from initial read")
	}

	writePolicy(t, path, "[[categories]\nbroken")
	got := provider.Snapshot()
	if !got.Categories[scores.CategoryViolence].Enabled {
		t.Fatal("expected last good policy after parse failure")
	}
}

func TestCreateSamplePolicyRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "filter.toml")
	if err := config.CreateSamplePolicy(path); err != nil {
		t.Fatalf("CreateSamplePolicy failed: %v", err)
	}
	policy, err := config.LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy of sample failed: %v", err)
	}
	if policy.Enabled() {
		t.Fatal("sample policy ships with every category disabled")
	}
	if !policy.Feedback {
		t.Fatal("sample policy ships with feedback enabled")
	}
}
