// Package config loads settings from defaults, an optional YAML file, an
// optional .env file and SCENETALK_* environment variables, in increasing
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/yuxiji/scenetalk/internal/audio"
	"github.com/yuxiji/scenetalk/internal/dialogue"
	"github.com/yuxiji/scenetalk/internal/llm"
)

// EnvPrefix prefixes every environment override. Nested keys are joined
// with a double underscore: SCENETALK_LLM__PROVIDER sets llm.provider.
const EnvPrefix = "SCENETALK_"

// DefaultFile is read when no --config flag is given. It may be absent.
const DefaultFile = "scenetalk.yaml"

type DatabaseConfig struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite postgres"`
	// DSN is a file path for sqlite or a connection URL for postgres.
	// Empty sqlite DSN means the default data path.
	DSN string `koanf:"dsn" validate:"required_if=Driver postgres"`
}

type ServerConfig struct {
	Addr        string   `koanf:"addr" validate:"required"`
	CORSOrigins []string `koanf:"cors_origins"`
}

type ReviewConfig struct {
	// Concurrency caps simultaneous critique calls; 0 is unlimited.
	Concurrency int `koanf:"concurrency" validate:"gte=0"`
}

type Config struct {
	LogLevel string          `koanf:"log_level" validate:"oneof=debug info warn error"`
	Database DatabaseConfig  `koanf:"database"`
	Server   ServerConfig    `koanf:"server"`
	LLM      llm.Config      `koanf:"llm"`
	Dialogue dialogue.Config `koanf:"dialogue"`
	Review   ReviewConfig    `koanf:"review"`
	Audio    audio.Config    `koanf:"audio"`
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Database: DatabaseConfig{Driver: "sqlite"},
		Server: ServerConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		LLM:      llm.DefaultConfig(),
		Dialogue: dialogue.DefaultConfig(),
		Review:   ReviewConfig{Concurrency: 4},
		Audio:    audio.DefaultConfig(),
	}
}

// Load builds the configuration. path may be empty to use DefaultFile; a
// missing file is not an error. When the selected LLM provider has no key,
// well-known provider keys in the environment are picked up.
func Load(path string) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path == "" {
		path = DefaultFile
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("read .env: %w", err)
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return cfg, fmt.Errorf("read environment: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	if !cfg.LLM.HasKey() {
		cfg.LLM.Discover()
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// envKey maps SCENETALK_LLM__ANTHROPIC__API_KEY to llm.anthropic.api_key.
// List values are comma separated.
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if strings.HasSuffix(key, "cors_origins") {
		var list []string
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				list = append(list, v)
			}
		}
		return key, list
	}
	return key, value
}

// Validate checks struct constraints and reports every failed field.
func Validate(cfg Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("validate config: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("invalid config:")
	for _, e := range errs {
		fmt.Fprintf(&sb, "\n  %s: failed '%s' (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return errors.New(sb.String())
}
