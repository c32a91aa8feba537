// Package config reads weft.yaml, the per-project settings file for the
// CLI and dev server.
package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/weftwork/weft/internal/watch"
	"github.com/weftwork/weft/meta"
)

// Config is the project configuration. Zero values fall back to the
// defaults set in Load.
type Config struct {
	// Package qualifies root-level records in documents that declare no
	// package of their own.
	Package string `mapstructure:"package"`
	// Sources are document files or directories searched with the watch
	// patterns.
	Sources    []string    `mapstructure:"sources"`
	Strict     bool        `mapstructure:"strict"`
	InferTypes bool        `mapstructure:"infer_types"`
	Serve      ServeConfig `mapstructure:"serve"`
	Watch      WatchConfig `mapstructure:"watch"`
}

type ServeConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type WatchConfig struct {
	Patterns []string `mapstructure:"patterns"`
	Ignored  []string `mapstructure:"ignored"`
}

// Default returns the configuration used when no weft.yaml exists.
func Default() *Config {
	return &Config{
		Sources: []string{"metadata"},
		Strict:  true,
		Serve:   ServeConfig{Host: "127.0.0.1", Port: 4400},
		Watch:   WatchConfig{Patterns: watch.DefaultPatterns()},
	}
}

// Load reads weft.yaml (or weft.yml) from the current directory, filling
// gaps with defaults. A missing file is not an error. Environment
// variables override with a WEFT_ prefix, WEFT_SERVE_PORT for serve.port.
func Load() (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("sources", def.Sources)
	v.SetDefault("strict", def.Strict)
	v.SetDefault("infer_types", def.InferTypes)
	v.SetDefault("serve.host", def.Serve.Host)
	v.SetDefault("serve.port", def.Serve.Port)
	v.SetDefault("watch.patterns", def.Watch.Patterns)

	v.SetConfigName("weft")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("WEFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read weft.yaml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse weft.yaml: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the loader or server would choke on later.
func Validate(cfg *Config) error {
	if cfg.Package != "" && !meta.ValidName(cfg.Package) {
		return fmt.Errorf("weft.yaml: package %q is not a valid package name", cfg.Package)
	}
	if cfg.Serve.Port < 0 || cfg.Serve.Port > 65535 {
		return fmt.Errorf("weft.yaml: serve.port %d is out of range", cfg.Serve.Port)
	}
	for _, p := range cfg.Watch.Patterns {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("weft.yaml: watch.patterns contains an empty pattern")
		}
	}
	return nil
}

// InProject reports whether the current directory holds a weft.yaml.
func InProject() bool {
	for _, name := range []string{"weft.yaml", "weft.yml"} {
		if _, err := os.Stat(name); err == nil {
			return true
		}
	}
	return false
}

// FindRoot walks up from the working directory to the nearest directory
// containing a weft.yaml.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		for _, name := range []string{"weft.yaml", "weft.yml"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not inside a weft project (no weft.yaml found)")
		}
		dir = parent
	}
}

// ExpandSources resolves the configured source entries to document files.
// Files pass through; directories are walked for entries matching the
// patterns. The result is sorted and deduplicated.
func ExpandSources(entries, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = watch.DefaultPatterns()
	}
	seen := map[string]bool{}
	var out []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}

	for _, entry := range entries {
		info, err := os.Stat(entry)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", entry, err)
		}
		if !info.IsDir() {
			add(entry)
			continue
		}
		err = filepath.WalkDir(entry, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			base := filepath.Base(path)
			for _, pattern := range patterns {
				if ok, _ := filepath.Match(pattern, base); ok {
					add(path)
					break
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", entry, err)
		}
	}
	sort.Strings(out)
	return out, nil
}
