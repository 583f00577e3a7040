// Package config loads service settings from a YAML file, NUTRIPLAY_* environment
// variables and command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix marks environment overrides. Nested keys use a double underscore:
// NUTRIPLAY_REDIS__ADDR sets redis.addr.
const EnvPrefix = "NUTRIPLAY_"

type Config struct {
	Server struct {
		Port string `koanf:"port" validate:"omitempty,numeric"`
	} `koanf:"server"`
	Backend struct {
		URL     string `koanf:"url" validate:"omitempty,url"`
		Timeout string `koanf:"timeout" validate:"omitempty,duration"`
	} `koanf:"backend"`
	Redis struct {
		Addr     string `koanf:"addr" validate:"omitempty,hostname_port"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db" validate:"gte=0"`
		TTL      string `koanf:"ttl" validate:"omitempty,duration"`
		StateTTL string `koanf:"state_ttl" validate:"omitempty,duration"`
	} `koanf:"redis"`
	Postgres struct {
		URL string `koanf:"url" validate:"omitempty,url"`
	} `koanf:"postgres"`
	Catalog struct {
		File string `koanf:"file"`
		TTL  string `koanf:"ttl" validate:"omitempty,duration"`
	} `koanf:"catalog"`
	Session struct {
		SubmitTimeout string `koanf:"submit_timeout" validate:"omitempty,duration"`
	} `koanf:"session"`
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"port":        "server.port",
	"backend-url": "backend.url",
	"redis-addr":  "redis.addr",
	"postgres":    "postgres.url",
	"catalog":     "catalog.file",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := time.ParseDuration(fl.Field().String())
		return err == nil
	})
	return v
}

// Load reads the YAML file at path (a missing file is allowed), then environment
// overrides, then any flags set on flags. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Config{}
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !isNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagMapper(flags)), nil); err != nil {
			return cfg, fmt.Errorf("read flags: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// RequireBackend checks the settings only the server needs. migrate and seed
// never call the backend.
func (c Config) RequireBackend() error {
	if err := validate.Var(c.Backend.URL, "required,url"); err != nil {
		return fmt.Errorf("invalid config: backend.url: %w", err)
	}
	return nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// flagMapper keeps only mapped flags; posflag skips unchanged flags whose key is already set.
func flagMapper(flags *pflag.FlagSet) func(f *pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	}
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist)
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
