package core

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig mirrors Config's shape for TOML decoding; durations are
// expressed in milliseconds since encoding/toml has no time.Duration
// support of its own.
type fileConfig struct {
	MemoryLimitMB     int `toml:"memory_limit_mb"`
	MaxTCPBufferBytes int `toml:"max_tcp_buffer_bytes"`
	DNSTimeoutMS      int `toml:"dns_timeout_ms"`
	HTTPRedirectLimit int `toml:"http_redirect_limit"`
	IOWorkerPoolSize  int `toml:"io_worker_pool_size"`
	TCPAcceptBacklog  int `toml:"tcp_accept_backlog"`
}

// LoadConfig resolves a Config from, in order: compiled-in defaults, an
// optional TOML file at path (skipped if path is ""), then environment
// variable overrides prefixed JSRT_ (matching process.env semantics a JS
// user would expect to observe). Later sources win.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return cfg, fmt.Errorf("loading config %s: %w", path, err)
		}
		applyFileConfig(&cfg, fc)
	}

	applyEnvOverrides(&cfg)
	return cfg.WithDefaults(), nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.MemoryLimitMB != 0 {
		cfg.MemoryLimitMB = fc.MemoryLimitMB
	}
	if fc.MaxTCPBufferBytes != 0 {
		cfg.MaxTCPBufferBytes = fc.MaxTCPBufferBytes
	}
	if fc.DNSTimeoutMS != 0 {
		cfg.DNSTimeout = time.Duration(fc.DNSTimeoutMS) * time.Millisecond
	}
	if fc.HTTPRedirectLimit != 0 {
		cfg.HTTPRedirectLimit = fc.HTTPRedirectLimit
	}
	if fc.IOWorkerPoolSize != 0 {
		cfg.IOWorkerPoolSize = fc.IOWorkerPoolSize
	}
	if fc.TCPAcceptBacklog != 0 {
		cfg.TCPAcceptBacklog = fc.TCPAcceptBacklog
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JSRT_MEMORY_LIMIT_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MemoryLimitMB = n
		}
	}
	if v := os.Getenv("JSRT_IO_WORKER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.IOWorkerPoolSize = n
		}
	}
	if v := os.Getenv("JSRT_DNS_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DNSTimeout = time.Duration(n) * time.Millisecond
		}
	}
}
