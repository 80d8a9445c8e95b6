package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// A Config is built once at process start and treated as read-only afterwards.
type Config struct {
	Upstream  UpstreamConfig  `toml:"upstream"`
	Transport TransportConfig `toml:"transport"`
	Tasks     TasksConfig     `toml:"tasks"`
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
}

// UpstreamConfig contains the catalog API credentials and endpoints.
type UpstreamConfig struct {
	AppID           string         `toml:"app_id"`
	Secret          string         `toml:"secret"`
	BaseURL         string         `toml:"base_url"`
	PermalinkDomain string         `toml:"permalink_domain"`
	Tokens          []string       `toml:"tokens"`  // fallback pool with no region association
	Regions         []RegionConfig `toml:"regions"` // region partitioned tokens, first entry is the default
}

// RegionConfig pairs an ISO 3166-1 alpha-2 region code with a credential token.
type RegionConfig struct {
	Code  string `toml:"code"`
	Token string `toml:"token"`
}

// TransportConfig contains optional request indirection settings.
type TransportConfig struct {
	SOCKS5Proxy    string   `toml:"socks5_proxy"`
	RelayURL       string   `toml:"relay_url"`
	RelayUserAgent string   `toml:"relay_user_agent"`
	Timeout        Duration `toml:"timeout"`
}

// TasksConfig contains settings for bulk stream resolution.
type TasksConfig struct {
	Workers   int     `toml:"workers"`
	RateLimit float64 `toml:"rate_limit"` // requests per second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string   `toml:"path"`
	MaxOpenConns int      `toml:"max_open_conns"`
	MaxIdleConns int      `toml:"max_idle_conns"`
	CacheTTL     Duration `toml:"cache_ttl"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration wraps [time.Duration] so it can be written as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes c to path as TOML, replacing any existing file.
func SaveConfig(path string, c *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SetRegionToken stores token for the region code. An existing entry is replaced in place and a new one is
// appended, so the default region never changes. An empty code adds token to the fallback pool.
func (u *UpstreamConfig) SetRegionToken(code, token string) {
	code = NormalizeRegion(code)
	if code == "" {
		for _, t := range u.Tokens {
			if t == token {
				return
			}
		}
		u.Tokens = append(u.Tokens, token)
		return
	}

	for i, r := range u.Regions {
		if NormalizeRegion(r.Code) == code {
			u.Regions[i].Token = token
			return
		}
	}
	u.Regions = append(u.Regions, RegionConfig{Code: code, Token: token})
}

// Validate checks that everything needed to reach the upstream is present.
//
// It is called once, before any network call is attempted.
func (c *Config) Validate() error {
	var missing []string

	if strings.TrimSpace(c.Upstream.AppID) == "" {
		missing = append(missing, "upstream.app_id")
	}
	if len(c.Upstream.Tokens) == 0 && len(c.Upstream.Regions) == 0 {
		missing = append(missing, "upstream.tokens or upstream.regions")
	}
	if strings.TrimSpace(c.Upstream.Secret) == "" {
		missing = append(missing, "upstream.secret")
	}
	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		missing = append(missing, "upstream.base_url")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// Address returns the host:port the HTTP server listens on.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
