// Package config loads mcp-anki's runtime configuration by layering
// defaults, an optional YAML file, environment variables and CLI flags,
// per spec §6.2.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix namespaces every environment variable mcp-anki reads.
const EnvPrefix = "MCP_ANKI_"

// Config is the fully resolved runtime configuration.
type Config struct {
	DBPath   string `koanf:"db-path" validate:"required"`
	MediaDir string `koanf:"media-dir" validate:"required"`
	Readonly bool   `koanf:"readonly"`
	LogLevel string `koanf:"log-level" validate:"oneof=debug info warn error"`
}

// Validate reports every field that fails validation, per the same
// go-playground/validator/v10 taxonomy used for deck configuration
// (spec §4.5, §7).
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	return nil
}

// Load resolves configuration from, in ascending priority: built-in
// defaults, --config (a YAML file, if given), MCP_ANKI_* environment
// variables, and CLI flags. args is normally os.Args[1:].
func Load(args []string) (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	defaultDBPath := filepath.Join(home, ".mcp-anki", "anki.db")
	defaultMediaDir := filepath.Join(home, ".mcp-anki", "media")

	fs := pflag.NewFlagSet("mcp-anki", pflag.ContinueOnError)
	fs.String("db-path", defaultDBPath, "path to the SQLite database file")
	fs.String("media-dir", defaultMediaDir, "directory for stored media blobs")
	fs.Bool("readonly", false, "refuse mutating tool calls")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	configPath := fs.String("config", "", "optional YAML config file")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "mcp-anki: a local-first spaced-repetition flashcard MCP server")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"db-path":   defaultDBPath,
		"media-dir": defaultMediaDir,
		"readonly":  false,
		"log-level": "info",
	}, "."), nil); err != nil {
		return Config{}, fmt.Errorf("load config defaults: %w", err)
	}

	if *configPath != "" {
		if err := k.Load(file.Provider(*configPath), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", *configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKeyTransform), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return Config{}, fmt.Errorf("load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKeyTransform maps MCP_ANKI_DB_PATH -> "db-path" to match both the CLI
// flag names and the koanf struct tags above.
func envKeyTransform(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "_", "-")
}
