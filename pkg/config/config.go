package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when neither file, env nor flags provide a value.
const (
	DefaultHeadBatchSize   = 8
	DefaultTailChunkSize   = 4
	DefaultTailDelay       = 500 * time.Millisecond
	DefaultTailRPS         = 10.0
	DefaultTailBurst       = 4
	DefaultHeadConcurrency = 4
	DefaultPageTimeout     = 3 * time.Second
	DefaultFetchTimeout    = 30 * time.Second
)

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// ApplyDefaults fills zero-valued scheduler and origin tunables.
func (c *Config) ApplyDefaults() {
	if c.Scheduler.HeadBatchSize <= 0 {
		c.Scheduler.HeadBatchSize = DefaultHeadBatchSize
	}
	if c.Scheduler.TailChunkSize <= 0 {
		c.Scheduler.TailChunkSize = DefaultTailChunkSize
	}
	if c.Scheduler.TailDelay.Duration() <= 0 {
		c.Scheduler.TailDelay = Duration(DefaultTailDelay)
	}
	if c.Scheduler.TailRPS <= 0 {
		c.Scheduler.TailRPS = DefaultTailRPS
	}
	if c.Scheduler.TailBurst <= 0 {
		c.Scheduler.TailBurst = DefaultTailBurst
	}
	if c.Scheduler.HeadConcurrency <= 0 {
		c.Scheduler.HeadConcurrency = DefaultHeadConcurrency
	}
	if c.Origin.PageTimeout.Duration() <= 0 {
		c.Origin.PageTimeout = Duration(DefaultPageTimeout)
	}
	if c.Origin.FetchTimeout.Duration() <= 0 {
		c.Origin.FetchTimeout = Duration(DefaultFetchTimeout)
	}
}

// Load reads and parses the YAML config at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseCommandFlags defines and parses command-line flags and returns their
// values along with a map indicating which flags were explicitly set.
func ParseCommandFlags() (addr, dbPath, origin, cfgPath string, setFlags map[string]bool) {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dbPtr := flag.String("db", "./.cache", "Pebble cache path")
	originPtr := flag.String("origin", "", "Content origin base URL")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *addrPtr, *dbPtr, *originPtr, *cfgPtr, setFlags
}

// LoadEnvOverrides applies environment overrides onto the provided cfg and
// reports whether any env vars were used.
func LoadEnvOverrides(cfg *Config) bool {
	envUsed := false

	if v := os.Getenv("GUIDECACHE_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	} else {
		if host := os.Getenv("GUIDECACHE_ADDRESS"); host != "" {
			envUsed = true
			cfg.Server.Address = host
		}
		if port := os.Getenv("GUIDECACHE_PORT"); port != "" {
			envUsed = true
			if pi, err := strconv.Atoi(port); err == nil {
				cfg.Server.Port = pi
			}
		}
	}

	if v := os.Getenv("GUIDECACHE_DB_PATH"); v != "" {
		envUsed = true
		cfg.Server.DBPath = v
	}
	if v := os.Getenv("GUIDECACHE_ORIGIN"); v != "" {
		envUsed = true
		cfg.Origin.BaseURL = v
	}
	if v := os.Getenv("GUIDECACHE_PAGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Origin.PageTimeout = Duration(d)
		}
	}
	if v := os.Getenv("GUIDECACHE_SWEEP_CRON"); v != "" {
		envUsed = true
		cfg.Sweep.Enabled = true
		cfg.Sweep.Cron = strings.TrimSpace(v)
	}
	if v := os.Getenv("GUIDECACHE_LOG_LEVEL"); v != "" {
		envUsed = true
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if c := os.Getenv("GUIDECACHE_TLS_CERT"); c != "" {
		envUsed = true
		cfg.Server.TLS.CertFile = c
	}
	if k := os.Getenv("GUIDECACHE_TLS_KEY"); k != "" {
		envUsed = true
		cfg.Server.TLS.KeyFile = k
	}
	return envUsed
}

// EffectiveConfigResult is the merged view of file, env and flag config that
// the rest of the server consumes.
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Origin string
	// Source summarizes where values came from ("flags", "env", "config").
	Source string
}

// LoadEffective loads config from the given path and applies environment
// overrides. Missing config files are not an error; env and flags can carry
// a full configuration.
func LoadEffective(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		cfg = &Config{}
	}
	envUsed := LoadEnvOverrides(cfg)
	cfg.ApplyDefaults()
	return cfg, envUsed, nil
}

// ResolveConfigPath decides the config file path using the flag-provided
// value and the GUIDECACHE_CONFIG environment variable when the flag was
// not set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("GUIDECACHE_CONFIG"); p != "" {
		return p
	}
	return flagPath
}
