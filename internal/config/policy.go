package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"veil/internal/logging"
	"veil/internal/scores"
)

//go:embed sample_filter.toml
var samplePolicy string

// policyFile is the on-disk shape of the live filter policy.
type policyFile struct {
	Feedback   bool                          `toml:"feedback"`
	Categories map[string]policyCategoryFile `toml:"categories"`
}

type policyCategoryFile struct {
	Enabled   bool    `toml:"enabled"`
	Threshold float64 `toml:"threshold"`
}

// DefaultPolicy returns the policy used before a filter file exists: every
// category present but disabled, so playback is never filtered by surprise.
func DefaultPolicy() scores.Policy {
	categories := make(map[string]scores.CategoryPolicy, len(scores.Categories))
	for _, name := range scores.Categories {
		categories[name] = scores.CategoryPolicy{Enabled: false, Threshold: 0.7}
	}
	return scores.Policy{Categories: categories}
}

// LoadPolicy reads and validates the filter policy file at path. A missing
// file yields the default (all-disabled) policy without error.
func LoadPolicy(path string) (scores.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultPolicy(), nil
		}
		return scores.Policy{}, fmt.Errorf("read policy: %w", err)
	}

	var file policyFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return scores.Policy{}, fmt.Errorf("parse policy: %w", err)
	}

	policy := DefaultPolicy()
	policy.Feedback = file.Feedback
	for name, cat := range file.Categories {
		if _, known := policy.Categories[name]; !known {
			return scores.Policy{}, fmt.Errorf("unknown filter category %q", name)
		}
		if cat.Threshold < 0 || cat.Threshold > 1 {
			return scores.Policy{}, fmt.Errorf("category %q threshold %v outside [0,1]", name, cat.Threshold)
		}
		policy.Categories[name] = scores.CategoryPolicy{Enabled: cat.Enabled, Threshold: cat.Threshold}
	}
	return policy, nil
}

// PolicyProvider supplies the live filter policy. Snapshot re-reads the
// policy file on every call so threshold or enablement edits apply on the
// next evaluation; the engine never caches a policy across ticks. When a
// read fails transiently the last good policy is returned so a half-written
// file cannot turn filtering off mid-playback.
type PolicyProvider struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	lastGood scores.Policy
	haveGood bool
}

// NewPolicyProvider constructs a provider for the policy file at path.
func NewPolicyProvider(path string, logger *slog.Logger) *PolicyProvider {
	return &PolicyProvider{
		path:   path,
		logger: logging.NewComponentLogger(logger, "policy"),
	}
}

// Snapshot returns the current policy.
func (p *PolicyProvider) Snapshot() scores.Policy {
	policy, err := LoadPolicy(p.path)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.logger.Warn("policy read failed; using last good policy",
			logging.Error(err),
			logging.String("path", p.path),
			logging.String(logging.FieldEventType, "policy_read_failed"),
			logging.String(logging.FieldErrorHint, "check filter.toml syntax and permissions"),
		)
		if p.haveGood {
			return p.lastGood
		}
		return DefaultPolicy()
	}

	p.lastGood = policy
	p.haveGood = true
	return policy
}

// Path returns the policy file location.
func (p *PolicyProvider) Path() string {
	return p.path
}

// CreateSamplePolicy writes a sample filter policy file to the specified location.
func CreateSamplePolicy(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create policy directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(samplePolicy), 0o644); err != nil {
		return fmt.Errorf("write sample policy: %w", err)
	}
	return nil
}
