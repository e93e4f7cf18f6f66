// Package config loads nnsearch settings from a TOML file, a .env file and
// NNSEARCH_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/mommothazaz123/avrae-search-nn/internal/domain/canon"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/rank"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "nnsearch.toml"

// Config holds the entire config structure.
type Config struct {
	Canon CanonConfig `toml:"canon"`
	Rank  RankConfig  `toml:"rank"`
	Eval  EvalConfig  `toml:"eval"`
	Data  DataConfig  `toml:"data"`
	Serve ServeConfig `toml:"serve"`
	Log   LogConfig   `toml:"log"`
}

// CanonConfig selects the allowed alphabet and input width.
type CanonConfig struct {
	Alphabet string `toml:"alphabet"`
	Length   int    `toml:"length"`
}

// RankConfig tunes the ranking engine and names the learned scorer.
type RankConfig struct {
	FuzzyMetric  string `toml:"fuzzy_metric"`
	FuzzyLimit   int    `toml:"fuzzy_limit"`
	LearnedLimit int    `toml:"learned_limit"`
	// Model is the path of a scorer descriptor (YAML); empty disables the
	// learned and ensemble strategies.
	Model string `toml:"model"`
	// OnnxLibrary is the onnxruntime shared library; empty uses the
	// runtime's default lookup.
	OnnxLibrary string `toml:"onnx_library"`
}

// EvalConfig tunes evaluation runs.
type EvalConfig struct {
	Workers  int    `toml:"workers"` // 0 = one per CPU
	StatsDir string `toml:"stats_dir"`
}

// DataConfig locates inputs and outputs.
type DataConfig struct {
	Catalog      string `toml:"catalog"`
	Observations string `toml:"observations"`
	Store        string `toml:"store"`
	OutputDir    string `toml:"output_dir"`
	Batch        string `toml:"batch"`
	SeedCatalog  bool   `toml:"seed_catalog"`
}

// ServeConfig configures the daemon.
type ServeConfig struct {
	Socket   string `toml:"socket"` // empty derives a path from the catalog
	HTTPAddr string `toml:"http_addr"`
	Watch    bool   `toml:"watch"`
	Strategy string `toml:"strategy"` // empty picks ensemble with a model, fuzzy without
	CacheTTL string `toml:"cache_ttl"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig mirrors the reference deployment: the alpha alphabet at 16
// runes, fuzzy top 5 by InDel ratio and learned top 10.
func DefaultConfig() *Config {
	return &Config{
		Canon: CanonConfig{Alphabet: canon.AlphaName, Length: canon.DefaultLength},
		Rank: RankConfig{
			FuzzyMetric:  rank.MetricRatio,
			FuzzyLimit:   rank.DefaultFuzzyLimit,
			LearnedLimit: rank.DefaultLearnedLimit,
		},
		Eval: EvalConfig{StatsDir: "stats"},
		Data: DataConfig{
			Catalog:      filepath.Join("data", "spell.json"),
			Observations: filepath.Join("data", "observations.json"),
			Store:        filepath.Join("data", "nnsearch.db"),
			OutputDir:    "training",
			Batch:        "spell",
		},
		Serve: ServeConfig{HTTPAddr: "127.0.0.1:8765", Watch: true, CacheTTL: "5m"},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, then applies NNSEARCH_* overrides. A
// missing file is not an error; unknown keys are.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Debugf("config %s not found, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("config %s: %w", path, err)
		default:
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				keys := make([]string, len(undecoded))
				for i, k := range undecoded {
					keys[i] = k.String()
				}
				sort.Strings(keys)
				return nil, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from files (default ".env") into the
// environment without overriding variables already set. Missing files are
// ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// Save writes cfg as TOML.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}

type lookupFunc func(string) (string, bool)

// applyEnv overrides fields from NNSEARCH_* variables.
func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"NNSEARCH_ALPHABET":     &c.Canon.Alphabet,
		"NNSEARCH_FUZZY_METRIC": &c.Rank.FuzzyMetric,
		"NNSEARCH_MODEL":        &c.Rank.Model,
		"NNSEARCH_ONNX_LIB":     &c.Rank.OnnxLibrary,
		"NNSEARCH_STATS_DIR":    &c.Eval.StatsDir,
		"NNSEARCH_CATALOG":      &c.Data.Catalog,
		"NNSEARCH_OBSERVATIONS": &c.Data.Observations,
		"NNSEARCH_STORE":        &c.Data.Store,
		"NNSEARCH_OUTPUT_DIR":   &c.Data.OutputDir,
		"NNSEARCH_BATCH":        &c.Data.Batch,
		"NNSEARCH_SOCKET":       &c.Serve.Socket,
		"NNSEARCH_HTTP_ADDR":    &c.Serve.HTTPAddr,
		"NNSEARCH_STRATEGY":     &c.Serve.Strategy,
		"NNSEARCH_CACHE_TTL":    &c.Serve.CacheTTL,
		"NNSEARCH_LOG_LEVEL":    &c.Log.Level,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"NNSEARCH_LENGTH":        &c.Canon.Length,
		"NNSEARCH_FUZZY_LIMIT":   &c.Rank.FuzzyLimit,
		"NNSEARCH_LEARNED_LIMIT": &c.Rank.LearnedLimit,
		"NNSEARCH_WORKERS":       &c.Eval.Workers,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"NNSEARCH_SEED_CATALOG": &c.Data.SeedCatalog,
		"NNSEARCH_WATCH":        &c.Serve.Watch,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}
	return nil
}

// Validate checks names and ranges.
func (c *Config) Validate() error {
	if _, err := canon.ByName(c.Canon.Alphabet); err != nil {
		return fmt.Errorf("canon.alphabet: %w", err)
	}
	if c.Canon.Length <= 0 {
		return fmt.Errorf("canon.length must be positive, got %d", c.Canon.Length)
	}
	if _, err := rank.SimilarityFor(c.Rank.FuzzyMetric); err != nil {
		return fmt.Errorf("rank.fuzzy_metric: %w", err)
	}
	if c.Eval.Workers < 0 {
		return fmt.Errorf("eval.workers must not be negative, got %d", c.Eval.Workers)
	}
	if c.Serve.Strategy != "" && !isStrategy(c.Serve.Strategy) {
		return fmt.Errorf("serve.strategy: unknown strategy %q", c.Serve.Strategy)
	}
	if _, err := c.CacheTTL(); err != nil {
		return fmt.Errorf("serve.cache_ttl: %w", err)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Canonicalizer builds the configured canonicalizer.
func (c *Config) Canonicalizer() (*canon.Canonicalizer, error) {
	a, err := canon.ByName(c.Canon.Alphabet)
	if err != nil {
		return nil, err
	}
	return canon.New(a, c.Canon.Length)
}

// RankOptions maps the [rank] section onto engine options.
func (c *Config) RankOptions() rank.Options {
	return rank.Options{
		FuzzyMetric:  c.Rank.FuzzyMetric,
		FuzzyLimit:   c.Rank.FuzzyLimit,
		LearnedLimit: c.Rank.LearnedLimit,
	}
}

// CacheTTL parses serve.cache_ttl. Empty or "0" disables the rank cache.
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Serve.CacheTTL == "" || c.Serve.CacheTTL == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Serve.CacheTTL)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

func isStrategy(name string) bool {
	for _, s := range rank.Strategies {
		if s == name {
			return true
		}
	}
	return false
}
