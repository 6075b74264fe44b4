// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns defaults; Load(ctx) layers file and environment on top.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"runtime"
	"time"
)

// Run modes.
const (
	ModeAuto   = "auto"
	ModeLambda = "lambda"
	ModeServer = "server"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Mode selects the entrypoint: lambda, server, or auto (lambda when
	// running inside the Lambda runtime).
	Mode string `koanf:"mode"`

	// Addr configures the HTTP listen address in server mode, e.g. ":9080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory event queue in server mode.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of pipeline workers in server mode.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many event ids are remembered for duplicate detection.
	DedupeSize int `koanf:"dedupe_size"`

	// AWSRegion overrides the region from the default AWS config chain.
	AWSRegion string `koanf:"aws_region"`

	// PhoneNumber receives urgent-ticket SMS notifications.
	PhoneNumber string `koanf:"phone_number"`

	// ForcedPriority overrides every ticket's priority when non-empty.
	// Empty means the ticket's own priority decides whether to page.
	ForcedPriority string `koanf:"forced_priority"`

	// StepTimeout bounds each external call; zero disables the bound.
	StepTimeout time.Duration `koanf:"step_timeout"`

	// Zendesk holds ticketing platform credentials.
	Zendesk Zendesk `koanf:"zendesk"`

	// LedgerTable is the DynamoDB table receiving outcomes; empty disables it.
	LedgerTable string `koanf:"ledger_table"`

	// Kafka configures the optional outcome topic.
	Kafka Kafka `koanf:"kafka"`
}

// Zendesk holds the ticketing API settings.
type Zendesk struct {
	Domain  string        `koanf:"domain"`
	Email   string        `koanf:"email"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// Kafka configures the outcome publisher.
type Kafka struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Mode:           ModeAuto,
		Addr:           ":9080",
		EventQueueSize: 10_000,
		WorkerCount:    runtime.NumCPU() * 4,
		DedupeSize:     50_000,
		ForcedPriority: "Urgent",
		StepTimeout:    20 * time.Second,
		Zendesk: Zendesk{
			Timeout: 15 * time.Second,
		},
		Kafka: Kafka{
			Topic: "commentsense.outcomes",
		},
	}
}
