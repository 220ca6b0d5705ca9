// Package config loads the toolchain configuration from the built-in
// declaration, an optional config file and the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/spacehunters/contracts/internal/descriptor"
	"github.com/spacehunters/contracts/internal/secrets"
)

// EnvPrefix prefixes every environment override, e.g. TOOLCHAIN_VALIDATION.
const EnvPrefix = "TOOLCHAIN"

// Config holds all configuration for the toolchain.
type Config struct {
	Validation string          `mapstructure:"validation"` // strict, lenient
	CheckKeys  bool            `mapstructure:"check_keys"`
	Dotenv     string          `mapstructure:"dotenv"`
	Log        LogConfig       `mapstructure:"log"`
	OpenBao    OpenBaoConfig   `mapstructure:"openbao"`
	Toolchain  descriptor.Spec `mapstructure:",squash"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// OpenBaoConfig holds the optional OpenBao secret backend configuration.
type OpenBaoConfig struct {
	Address       string        `mapstructure:"address"`
	Token         string        `mapstructure:"token"`
	Namespace     string        `mapstructure:"namespace"`
	Timeout       time.Duration `mapstructure:"timeout"`
	SkipTLSVerify bool          `mapstructure:"skip_tls_verify"`
}

// LoadOptions configures Load.
type LoadOptions struct {
	// File is an explicit config file. When empty, toolchain.{yaml,yml,json,toml}
	// is looked up in the working directory and ./config.
	File string
}

// Load reads configuration from the built-in declaration, config files and
// environment variables, in increasing order of precedence.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	base, err := builtinDeclaration()
	if err != nil {
		return nil, err
	}
	if err := v.MergeConfigMap(base); err != nil {
		return nil, fmt.Errorf("failed to read built-in declaration: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// OpenBao settings also honour the server's own variable names
	_ = v.BindEnv("openbao.address", EnvPrefix+"_OPENBAO_ADDRESS", "BAO_ADDR")
	_ = v.BindEnv("openbao.token", EnvPrefix+"_OPENBAO_TOKEN", "BAO_TOKEN")
	_ = v.BindEnv("openbao.namespace", EnvPrefix+"_OPENBAO_NAMESPACE", "BAO_NAMESPACE")

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("toolchain")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// No config file is fine, the built-in declaration applies
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// builtinDeclaration renders descriptor.DefaultSpec as a generic map so user
// files merge over it key by key.
func builtinDeclaration() (map[string]interface{}, error) {
	raw, err := yaml.Marshal(descriptor.DefaultSpec())
	if err != nil {
		return nil, fmt.Errorf("failed to encode built-in declaration: %w", err)
	}
	var m map[string]interface{}
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode built-in declaration: %w", err)
	}
	return m, nil
}

// setDefaults configures default values for non-descriptor settings.
func setDefaults(v *viper.Viper) {
	v.SetDefault("validation", string(descriptor.ModeStrict))
	v.SetDefault("check_keys", false)
	v.SetDefault("dotenv", ".env")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("openbao.address", "")
	v.SetDefault("openbao.token", "")
	v.SetDefault("openbao.namespace", "")
	v.SetDefault("openbao.timeout", "10s")
	v.SetDefault("openbao.skip_tls_verify", false)
}

// Mode returns the credential validation mode.
func (c *Config) Mode() (descriptor.Mode, error) {
	return descriptor.ParseMode(c.Validation)
}

// Resolver builds the secret resolver: environment plus dotenv always, and
// OpenBao when an address is configured.
func (c *Config) Resolver() (*secrets.Router, *secrets.BaoResolver, error) {
	env, err := secrets.NewEnvResolver(c.Dotenv)
	if err != nil {
		return nil, nil, err
	}

	if c.OpenBao.Address == "" {
		return secrets.NewRouter(env, nil), nil, nil
	}

	bao, err := secrets.NewBaoResolver(secrets.BaoConfig{
		Addr:          c.OpenBao.Address,
		Token:         c.OpenBao.Token,
		Namespace:     c.OpenBao.Namespace,
		HTTPTimeout:   c.OpenBao.Timeout,
		SkipTLSVerify: c.OpenBao.SkipTLSVerify,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("configure OpenBao: %w", err)
	}
	return secrets.NewRouter(env, bao), bao, nil
}

// Logger builds a structured logger writing to w.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(c.Log.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want text or json)", c.Log.Format)
	}
}

// Descriptor resolves secrets and builds the toolchain descriptor.
func (c *Config) Descriptor(ctx context.Context, logger *slog.Logger) (*descriptor.Descriptor, error) {
	mode, err := c.Mode()
	if err != nil {
		return nil, err
	}

	resolver, bao, err := c.Resolver()
	if err != nil {
		return nil, err
	}
	if bao != nil {
		if err := bao.Health(ctx); err != nil {
			logger.Warn("OpenBao health check failed",
				slog.String("address", c.OpenBao.Address),
				slog.String("error", err.Error()),
			)
		}
	}

	return descriptor.Build(ctx, c.Toolchain, resolver, descriptor.BuildOptions{
		Mode:      mode,
		Logger:    logger,
		CheckKeys: c.CheckKeys,
	})
}
