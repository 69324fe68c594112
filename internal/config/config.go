// Package config resolves pkgvet settings from defaults, a YAML file,
// PKGVET_* environment variables and command-line flags, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pkgvet/pkgvet/internal/observability/logging"
	"github.com/pkgvet/pkgvet/internal/observability/otel"
	"github.com/pkgvet/pkgvet/internal/observability/receipt"
	"github.com/pkgvet/pkgvet/internal/policy"
)

const (
	// EnvPrefix for environment overrides, e.g. PKGVET_LOG_FORMAT
	EnvPrefix = "PKGVET"
	// LocalFileName is read from the working directory when --config is unset
	LocalFileName = ".pkgvet.yaml"
)

// Color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config is the resolved configuration of one invocation
type Config struct {
	PolicyFile   string
	Subscription string
	// PolicyKey is a public key; when set, PolicyFile must carry a valid
	// detached signature
	PolicyKey       string
	PolicySignature string
	Recursive       bool
	Color           string
	Log             logging.Config
	OTel            otel.Config
	Receipt         ReceiptConfig

	// File is the config file that was read, "" when none
	File string
}

type ReceiptConfig struct {
	Path string
	Mode string
}

// FlagKeys maps config keys to the flag names bound to them
var FlagKeys = map[string]string{
	"policy.file":         "policy",
	"policy.subscription": "subscription",
	"policy.public_key":   "policy-key",
	"policy.signature":    "policy-sig",
	"recursive":           "recursive",
	"color":               "color",
	"log.format":          "log-format",
	"log.level":           "log-level",
	"log.output":          "log-output",
	"otel.enabled":        "otel",
	"otel.endpoint":       "otel-endpoint",
	"otel.protocol":       "otel-protocol",
	"otel.insecure":       "otel-insecure",
	"otel.sample_ratio":   "otel-sample-ratio",
	"receipt.path":        "receipt",
	"receipt.mode":        "receipt-mode",
}

func setDefaults(v *viper.Viper) {
	logDefaults := logging.DefaultConfig()
	otelDefaults := otel.DefaultConfig()

	v.SetDefault("policy.file", "")
	v.SetDefault("policy.subscription", policy.DefaultSubscription)
	v.SetDefault("policy.public_key", "")
	v.SetDefault("policy.signature", "")
	v.SetDefault("recursive", false)
	v.SetDefault("color", ColorAuto)
	v.SetDefault("log.format", string(logDefaults.Format))
	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.output", logDefaults.Output)
	v.SetDefault("otel.enabled", otelDefaults.Enabled)
	v.SetDefault("otel.endpoint", otelDefaults.Endpoint)
	v.SetDefault("otel.protocol", otelDefaults.Protocol)
	v.SetDefault("otel.insecure", otelDefaults.Insecure)
	v.SetDefault("otel.sample_ratio", otelDefaults.SampleRatio)
	v.SetDefault("receipt.path", "")
	v.SetDefault("receipt.mode", string(receipt.ModeOverwrite))
}

// Load resolves the configuration. path is an explicit config file and must
// exist; when empty, LocalFileName is used if present. flags may be nil.
// Only flags the user actually set override lower layers.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	file := path
	if file == "" && fileExists(LocalFileName) {
		file = LocalFileName
	}
	if file != "" {
		if !fileExists(file) {
			return nil, fmt.Errorf("config file not found: %s", file)
		}
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	if flags != nil {
		for key, name := range FlagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	cfg := &Config{
		PolicyFile:      v.GetString("policy.file"),
		Subscription:    v.GetString("policy.subscription"),
		PolicyKey:       v.GetString("policy.public_key"),
		PolicySignature: v.GetString("policy.signature"),
		Recursive:       v.GetBool("recursive"),
		Color:           strings.ToLower(v.GetString("color")),
		Log: logging.Config{
			Format: logging.Format(strings.ToLower(v.GetString("log.format"))),
			Level:  strings.ToLower(v.GetString("log.level")),
			Output: v.GetString("log.output"),
		},
		OTel: otel.Config{
			Enabled:     v.GetBool("otel.enabled"),
			Endpoint:    v.GetString("otel.endpoint"),
			Protocol:    strings.ToLower(v.GetString("otel.protocol")),
			Insecure:    v.GetBool("otel.insecure"),
			ServiceName: otel.ServiceName,
			SampleRatio: v.GetFloat64("otel.sample_ratio"),
		},
		Receipt: ReceiptConfig{
			Path: v.GetString("receipt.path"),
			Mode: strings.ToLower(v.GetString("receipt.mode")),
		},
		File: file,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section and reports all problems at once
func (c *Config) Validate() error {
	var errs []error

	switch c.Color {
	case "", ColorAuto, ColorAlways, ColorNever:
	default:
		errs = append(errs, fmt.Errorf("invalid color mode: %s (use auto, always or never)", c.Color))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.OTel.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.PolicySignature != "" && c.PolicyKey == "" {
		errs = append(errs, errors.New("policy signature given without a public key"))
	}
	if !receipt.ValidMode(c.Receipt.Mode) {
		errs = append(errs, fmt.Errorf("invalid receipt mode: %s (use overwrite or append)", c.Receipt.Mode))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
