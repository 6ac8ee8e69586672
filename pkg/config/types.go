package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Origin    OriginConfig    `yaml:"origin"`
	Cache     CacheConfig     `yaml:"cache"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Sweep     SweepConfig     `yaml:"sweep"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds http and tls settings.
type ServerConfig struct {
	Address string    `yaml:"address"`
	Port    int       `yaml:"port"`
	DBPath  string    `yaml:"db_path"`
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// OriginConfig describes the upstream content origin the gateway proxies
// and caches.
type OriginConfig struct {
	BaseURL string `yaml:"base_url"`
	// FetchTimeout bounds asset and static fetches; zero means the
	// transport default.
	FetchTimeout Duration `yaml:"fetch_timeout"`
	// PageTimeout bounds page-class network resolution so a slow origin
	// cannot stall perceived navigation.
	PageTimeout Duration `yaml:"page_timeout"`
}

// CacheConfig holds cache partition tunables.
type CacheConfig struct {
	// PageMaxAge is the age after which the sweep job evicts cached pages.
	// Zero disables page eviction.
	PageMaxAge Duration `yaml:"page_max_age"`
	// MaxBodyBytes rejects origin responses larger than this from being
	// cached. Zero means unlimited.
	MaxBodyBytes SizeBytes `yaml:"max_body_bytes"`
}

// SchedulerConfig controls the priority download scheduler.
type SchedulerConfig struct {
	// HeadBatchSize is the number of top-priority assets fetched and
	// awaited before a run reports back.
	HeadBatchSize int `yaml:"head_batch_size"`
	// TailChunkSize is the number of assets fetched per background chunk.
	TailChunkSize int `yaml:"tail_chunk_size"`
	// TailDelay defers the background tail after the head batch settles.
	TailDelay Duration `yaml:"tail_delay"`
	// TailRPS / TailBurst rate-limit background fetches.
	TailRPS   float64 `yaml:"tail_rps"`
	TailBurst int     `yaml:"tail_burst"`
	// HeadConcurrency caps parallel head-batch fetches.
	HeadConcurrency int `yaml:"head_concurrency"`
}

// SweepConfig holds configuration for the periodic coverage sweep.
type SweepConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly
// strings like "64MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration is a wrapper around time.Duration that supports YAML parsing
// from strings like "100ms" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
