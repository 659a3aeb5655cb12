package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/nickyhof/TableDB/ps"
	"github.com/spf13/pflag"
)

const (
	DefaultConfigFile = "tabledb.yaml"
	EnvPrefix         = "TABLEDB_"
)

type Config struct {
	Database string      `koanf:"database"`
	Root     string      `koanf:"root"`
	Backend  string      `koanf:"backend"`
	User     string      `koanf:"user"`
	Password string      `koanf:"password"`
	Output   string      `koanf:"output"`
	Verbose  bool        `koanf:"verbose"`
	Log      LogConfig   `koanf:"log"`
	Auth     AuthConfig  `koanf:"auth"`
	Git      GitConfig   `koanf:"git"`
	S3       ps.S3Config `koanf:"s3"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // text or json
	SeqURL string `koanf:"seq_url"`
}

// AuthConfig selects how presented credentials are checked.
// Mode is static, token, or any (static or token).
type AuthConfig struct {
	Mode     string `koanf:"mode"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Secret   string `koanf:"secret"`
	Issuer   string `koanf:"issuer"`
	Audience string `koanf:"audience"`
}

type GitConfig struct {
	Name  string `koanf:"name"`
	Email string `koanf:"email"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"database":      "default",
		"root":          "data",
		"backend":       "file",
		"user":          "admin",
		"output":        "table",
		"verbose":       false,
		"log.level":     "info",
		"log.format":    "text",
		"auth.mode":     "static",
		"auth.username": "admin",
		"auth.issuer":   "tabledb",
		"git.name":      "TableDB",
		"git.email":     "cli@tabledb.local",
	}
}

// findConfigFile returns the explicit path, or the default file when it exists.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}
	return ""
}

// envKey maps TABLEDB_S3__BUCKET to s3.bucket.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// flagKey maps the --log-* and --seq-url flags into the log section.
func flagKey(name string) string {
	switch name {
	case "log-level":
		return "log.level"
	case "log-format":
		return "log.format"
	case "seq-url":
		return "log.seq_url"
	}
	return strings.ReplaceAll(name, "-", "_")
}

// LoadConfig layers, lowest to highest: defaults, config file, TABLEDB_
// environment variables, explicitly set flags.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	configFileUsed := findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return &cfg, configFileUsed, nil
}

func (cfg *Config) Validate() error {
	switch cfg.Backend {
	case "file", "memory", "git", "s3":
	default:
		return fmt.Errorf("unknown backend %q (want file, memory, git or s3)", cfg.Backend)
	}

	switch cfg.Output {
	case "table", "json":
	default:
		return fmt.Errorf("unknown output format %q (want table or json)", cfg.Output)
	}

	switch cfg.Auth.Mode {
	case "static", "token", "any":
	default:
		return fmt.Errorf("unknown auth mode %q (want static, token or any)", cfg.Auth.Mode)
	}

	if cfg.Auth.Mode != "static" && cfg.Auth.Secret == "" {
		return fmt.Errorf("auth mode %s requires auth.secret", cfg.Auth.Mode)
	}

	if cfg.Backend == "s3" && cfg.S3.Bucket == "" {
		return fmt.Errorf("backend s3 requires s3.bucket")
	}

	return nil
}
