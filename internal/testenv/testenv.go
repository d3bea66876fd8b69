// Package testenv loads test/benchmark tuning knobs from the environment,
// the same way the corpus's application-layer services load their
// runtime configuration — but scoped strictly to test infrastructure.
// Nothing in the synchronization core reads an environment variable; only
// this package, imported from _test.go files, does.
package testenv

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds knobs that let CI tune deadline-based tests for slower or
// more contended hosts. ScratchDir is loaded but not consulted anywhere.
type Config struct {
	// DeadlineSlowdown multiplies every test-chosen timeout, for CI
	// runners where scheduling jitter is much larger than on a
	// developer's workstation.
	DeadlineSlowdown float64 `env:"SHMSYNC_TEST_DEADLINE_SLOWDOWN" envDefault:"1.0"`

	// ScratchDir is read from the environment only. Nothing uses it: the
	// non-Linux shmio fallback always places its backing files under
	// os.TempDir(), and Linux segments live under /dev/shm.
	ScratchDir string `env:"SHMSYNC_TEST_SCRATCH_DIR" envDefault:""`
}

// Load reads configuration from a .env file (if present) and the
// environment, applying defaults for anything unset.
func Load() (*Config, error) {
	// Optional: CI provides real environment variables directly and has
	// no .env file, which is not an error.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse test environment config: %w", err)
	}
	if cfg.DeadlineSlowdown <= 0 {
		return nil, fmt.Errorf("SHMSYNC_TEST_DEADLINE_SLOWDOWN must be > 0, got %v", cfg.DeadlineSlowdown)
	}
	return cfg, nil
}

// Scale applies DeadlineSlowdown to a test-chosen timeout.
func (c *Config) Scale(d time.Duration) time.Duration {
	return time.Duration(float64(d) * c.DeadlineSlowdown)
}
