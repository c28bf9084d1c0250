// Package config provides layered configuration loading for the Wishaday
// service: struct defaults overlaid by WISHADAY_* environment variables,
// decoded with koanf and validated with go-playground/validator.
package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces every configuration environment variable.
const envPrefix = "WISHADAY_"

// Config holds the merged runtime configuration for the Wishaday service.
type Config struct {
	Addr                 string        `koanf:"addr" validate:"required,ip_port"`
	DataDir              string        `koanf:"data_dir" validate:"required,safe_path"`
	BaseURL              string        `koanf:"base_url" validate:"required,url"`
	MaxBodyBytes         int64         `koanf:"max_body_bytes" validate:"gt=0"`
	GracePeriod          time.Duration `koanf:"grace_period" validate:"gt=0"`
	SweepInterval        time.Duration `koanf:"sweep_interval" validate:"gte=0"` // 0 disables the sweep
	MetricsFlushInterval time.Duration `koanf:"metrics_flush_interval" validate:"gt=0"`
	MetricsToken         string        `koanf:"metrics_token"`
	AdminToken           string        `koanf:"admin_token"`
	RateLimitPerDay      int           `koanf:"rate_limit_per_day" validate:"gte=1"`
}

// DefaultAppConfig carries the sane, secure defaults applied before any
// environment overrides.
var DefaultAppConfig = Config{
	Addr:                 ":8080",
	DataDir:              "./data",
	BaseURL:              "http://localhost:8080",
	MaxBodyBytes:         64 << 10, // 64 KiB of JSON is a very long wish
	GracePeriod:          60 * time.Minute,
	SweepInterval:        30 * time.Minute,
	MetricsFlushInterval: 5 * time.Second,
	RateLimitPerDay:      10,
}

// Load merges defaults with environment variables and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	envProvider := env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			return key, value
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				StringToByteSize(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate runs the struct validation rules, including the custom ip_port
// and safe_path validators.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.RegisterValidation("ip_port", validIPPort); err != nil {
		return err
	}
	if err := v.RegisterValidation("safe_path", validSafePath); err != nil {
		return err
	}
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// validIPPort accepts "host:port" where host is empty or a literal IP and
// port is 1..65535. Hostnames are rejected; a listen address should bind an
// interface, not resolve a name.
func validIPPort(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host != "" && net.ParseIP(host) == nil {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// validSafePath accepts relative or absolute directory paths that stay put:
// no traversal segments and nothing that collapses to the filesystem root.
func validSafePath(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(p), "/") {
		if seg == ".." {
			return false
		}
	}
	clean := filepath.Clean(p)
	return clean != "." && clean != string(filepath.Separator)
}
