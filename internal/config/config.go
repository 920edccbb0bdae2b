// Package config loads settings from an optional YAML file, FLASHSYNC_
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
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

const EnvPrefix = "FLASHSYNC_"

type Config struct {
	// ReplicaPath is the local SQLite replica file.
	ReplicaPath string `koanf:"replica-path" validate:"required"`
	// RemoteURL is the server API. When empty the client opens the record
	// store itself.
	RemoteURL    string        `koanf:"remote-url" validate:"omitempty,url"`
	RecordDriver string        `koanf:"record-driver" validate:"oneof=sqlite postgres"`
	RecordDSN    string        `koanf:"record-dsn" validate:"required"`
	SyncInterval time.Duration `koanf:"sync-interval" validate:"gte=1s"`
	PageSize     int           `koanf:"page-size" validate:"gte=1,lte=1000"`
	Listen       string        `koanf:"listen" validate:"required,hostname_port"`
	CORSOrigins  []string      `koanf:"cors-origins"`
	LogLevel     string        `koanf:"log-level" validate:"oneof=debug info warn error"`
	LogFormat    string        `koanf:"log-format" validate:"oneof=text json tint"`
}

// RegisterFlags adds every setting to fs. The flag defaults are the
// configuration defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("replica-path", "flashsync.db", "local replica database file")
	fs.String("remote-url", "", "server API base URL; empty opens the record store directly")
	fs.String("record-driver", "sqlite", "record store driver (sqlite or postgres)")
	fs.String("record-dsn", "flashsync-server.db", "record store DSN")
	fs.Duration("sync-interval", 10*time.Second, "background push interval")
	fs.Int("page-size", 1000, "questions per pull page")
	fs.String("listen", ":8080", "server listen address")
	fs.StringSlice("cors-origins", []string{"*"}, "allowed CORS origins")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-format", "text", "log format (text, json, tint)")
}

// Load reads the layered configuration. fs must have been set up by
// RegisterFlags and parsed.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "_", "-")
		if key == "cors-origins" {
			return key, strings.Split(value, ",")
		}
		return key, value
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the settings against their constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
