package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	TransportResty = "resty"
	TransportFiber = "fiber"
)

type Config struct {
	BaseURL               string
	Transport             string
	Size                  int
	RequestTimeout        time.Duration
	DialTimeout           time.Duration
	TlsTimeout            time.Duration
	IdleConnTimeout       time.Duration
	MaxConnsPerHost       int
	InsecureSkipVerify    bool
	ResponseHeaderTimeout time.Duration

	// PollInterval drives periodic /data refreshes; zero disables polling.
	PollInterval time.Duration
	LogLevel     string
	ServeAddr    string
}

func DefaultConfig() Config {
	return Config{
		BaseURL:               "http://127.0.0.1:5000",
		Transport:             TransportResty,
		Size:                  2,
		RequestTimeout:        10 * time.Second,
		DialTimeout:           5 * time.Second,
		TlsTimeout:            2 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxConnsPerHost:       1,
		InsecureSkipVerify:    false,
		ResponseHeaderTimeout: 0,
		PollInterval:          0,
		LogLevel:              "info",
		ServeAddr:             "127.0.0.1:5000",
	}
}

// fileConfig mirrors Config on disk. Durations are strings such as "5s".
type fileConfig struct {
	BaseURL               string `toml:"base_url" yaml:"base_url"`
	Transport             string `toml:"transport" yaml:"transport"`
	Size                  *int   `toml:"size" yaml:"size"`
	RequestTimeout        string `toml:"request_timeout" yaml:"request_timeout"`
	DialTimeout           string `toml:"dial_timeout" yaml:"dial_timeout"`
	TlsTimeout            string `toml:"tls_timeout" yaml:"tls_timeout"`
	IdleConnTimeout       string `toml:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxConnsPerHost       *int   `toml:"max_conns_per_host" yaml:"max_conns_per_host"`
	InsecureSkipVerify    *bool  `toml:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	ResponseHeaderTimeout string `toml:"response_header_timeout" yaml:"response_header_timeout"`
	PollInterval          string `toml:"poll_interval" yaml:"poll_interval"`
	LogLevel              string `toml:"log_level" yaml:"log_level"`
	ServeAddr             string `toml:"serve_addr" yaml:"serve_addr"`
}

// Load reads a TOML or YAML file (chosen by extension) over the defaults.
// An empty path or a missing file yields DefaultConfig.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := raw.apply(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (f fileConfig) apply(cfg *Config) error {
	if s := strings.TrimSpace(f.BaseURL); s != "" {
		cfg.BaseURL = s
	}
	if s := strings.TrimSpace(f.Transport); s != "" {
		cfg.Transport = strings.ToLower(s)
	}
	if s := strings.TrimSpace(f.LogLevel); s != "" {
		cfg.LogLevel = s
	}
	if s := strings.TrimSpace(f.ServeAddr); s != "" {
		cfg.ServeAddr = s
	}
	if f.Size != nil {
		cfg.Size = *f.Size
	}
	if f.MaxConnsPerHost != nil {
		cfg.MaxConnsPerHost = *f.MaxConnsPerHost
	}
	if f.InsecureSkipVerify != nil {
		cfg.InsecureSkipVerify = *f.InsecureSkipVerify
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"request_timeout", f.RequestTimeout, &cfg.RequestTimeout},
		{"dial_timeout", f.DialTimeout, &cfg.DialTimeout},
		{"tls_timeout", f.TlsTimeout, &cfg.TlsTimeout},
		{"idle_conn_timeout", f.IdleConnTimeout, &cfg.IdleConnTimeout},
		{"response_header_timeout", f.ResponseHeaderTimeout, &cfg.ResponseHeaderTimeout},
		{"poll_interval", f.PollInterval, &cfg.PollInterval},
	}
	for _, d := range durations {
		s := strings.TrimSpace(d.raw)
		if s == "" {
			continue
		}
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

// Validate checks the values a client or server cannot start without.
// It does not mutate cfg.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base_url is required")
	}
	switch c.Transport {
	case TransportResty, TransportFiber:
	default:
		return fmt.Errorf("unknown transport %q (want %q or %q)", c.Transport, TransportResty, TransportFiber)
	}
	if c.Size <= 0 {
		return fmt.Errorf("size must be positive, got %d", c.Size)
	}
	if c.MaxConnsPerHost < 0 {
		return fmt.Errorf("max_conns_per_host must not be negative, got %d", c.MaxConnsPerHost)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll_interval must not be negative, got %s", c.PollInterval)
	}
	return nil
}
