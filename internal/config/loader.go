package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "COMMENTSENSE_"
	envConfig  = "COMMENTSENSE_CONFIG"
	keyDivider = "."
)

// sections are nested config blocks; COMMENTSENSE_ZENDESK_API_KEY maps to
// zendesk.api_key.
var sections = []string{"zendesk", "kafka"}

// legacyEnv maps the variable names the Lambda function has always been deployed with onto
// config keys so existing function configuration keeps working.
var legacyEnv = map[string]string{
	"PHONENUMBER":       "phone_number",
	"ZENDESK_USEREMAIL": "zendesk.email",
	"ZENDESK_APIKEY":    "zendesk.api_key",
	"ZENDESK_DOMAIN":    "zendesk.domain",
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if COMMENTSENSE_CONFIG is set
//  3. legacy variables (PHONENUMBER, ZENDESK_*)
//  4. env (prefix COMMENTSENSE_)
func Load(_ context.Context) (*Config, error) {
	base := New()
	k := koanf.New(keyDivider)

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrLoadConfig, path, err)
		}
	}

	legacy := env.Provider("", keyDivider, func(s string) string {
		return legacyEnv[s]
	})
	if err := k.Load(legacy, nil); err != nil {
		return nil, fmt.Errorf("%w: legacy env: %w", ErrLoadConfig, err)
	}

	prefixed := env.ProviderWithValue(envPrefix, keyDivider, envValue)
	if err := k.Load(prefixed, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envValue maps a prefixed variable to its key and splits list values.
func envValue(k, v string) (string, interface{}) {
	key := envKey(k)
	if key == "kafka.brokers" {
		return key, strings.Split(v, ",")
	}
	return key, v
}

// envKey turns COMMENTSENSE_ZENDESK_API_KEY into zendesk.api_key and
// COMMENTSENSE_QUEUE_SIZE into queue_size.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if s == "config" {
		return ""
	}
	for _, sec := range sections {
		if strings.HasPrefix(s, sec+"_") {
			return sec + keyDivider + strings.TrimPrefix(s, sec+"_")
		}
	}
	return s
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeAuto, ModeLambda, ModeServer:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.StepTimeout < 0 {
		return fmt.Errorf("%w: step_timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ValidateCredentials reports missing settings needed to talk to the
// ticketing platform and to page on-call. It is separate from Load so
// tooling can load a partial config.
func (c *Config) ValidateCredentials() error {
	var missing []string
	if c.Zendesk.Domain == "" {
		missing = append(missing, "zendesk.domain")
	}
	if c.Zendesk.Email == "" {
		missing = append(missing, "zendesk.email")
	}
	if c.Zendesk.APIKey == "" {
		missing = append(missing, "zendesk.api_key")
	}
	if c.PhoneNumber == "" {
		missing = append(missing, "phone_number")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}
