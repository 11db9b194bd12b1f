// Package config loads this client's configuration from a YAML file,
// substituting ${VAR}/${VAR:-default} environment references before
// parsing, then applying defaults and validating the result.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// Verification is the config.verification enum spec.md §6 names:
// NEVER skips proof checking (debug only), PROOF is the normal mode,
// FULL additionally re-executes eth_call locally.
type Verification string

const (
	VerificationNever Verification = "NEVER"
	VerificationProof Verification = "PROOF"
	VerificationFull  Verification = "FULL"
)

// Config is the full set of options spec.md §6 recognizes.
type Config struct {
	ChainID        uint64        `yaml:"chain_id"`
	NodeLimit      uint32        `yaml:"node_limit"`
	MinDeposit     uint64        `yaml:"min_deposit"`
	RequestCount   int           `yaml:"request_count"`
	TimeoutMs      uint32        `yaml:"timeout_ms"`
	Verification   Verification  `yaml:"verification"`
	SignatureCount int           `yaml:"signature_count"`
	RetryBudget    int           `yaml:"retry_budget"`
	RetryInterval  time.Duration `yaml:"retry_interval"`
	BlacklistShort time.Duration `yaml:"blacklist_short"`
	BlacklistLong  time.Duration `yaml:"blacklist_long"`

	ChainSpecPath string   `yaml:"chain_spec_path"`
	BootNodes     []string `yaml:"boot_nodes"`
	CachePath     string   `yaml:"cache_path"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls rlog's output, kept separate from Config's
// domain fields the way the teacher's own logging config is split out
// from its server/database settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ApplyDefaults fills any zero-value field with this client's default,
// matching the defaults spec.md §6/§9 documents and the ones
// rpcctx.Config.withDefaults applies independently when no Config is
// loaded at all.
func (c *Config) ApplyDefaults() {
	if c.RequestCount == 0 {
		c.RequestCount = 1
	}
	if c.TimeoutMs == 0 {
		c.TimeoutMs = 10000
	}
	if c.Verification == "" {
		c.Verification = VerificationProof
	}
	if c.RetryBudget == 0 {
		c.RetryBudget = 5
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = time.Second
	}
	if c.BlacklistShort == 0 {
		c.BlacklistShort = 30 * time.Second
	}
	if c.BlacklistLong == 0 {
		c.BlacklistLong = 10 * time.Minute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate rejects a Config that ApplyDefaults plus a YAML parse could
// still leave nonsensical.
func (c *Config) Validate() error {
	var problems []string

	if c.ChainID == 0 {
		problems = append(problems, "chain_id is required")
	}
	if c.RequestCount < 1 {
		problems = append(problems, "request_count must be at least 1")
	}
	if c.RetryBudget < 1 {
		problems = append(problems, "retry_budget must be at least 1")
	}
	switch c.Verification {
	case VerificationNever, VerificationProof, VerificationFull:
	default:
		problems = append(problems, "verification must be one of: NEVER, PROOF, FULL")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, "logging.level must be one of: debug, info, warn, error")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// substituteEnv replaces ${VAR} and ${VAR:-default} references with
// environment variable values, leaving a reference with neither an
// environment value nor a default untouched.
func substituteEnv(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		name, def := parts[1], parts[3]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		if def != "" {
			return def
		}
		return match
	})
}
