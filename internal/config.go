package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// ExcludeRule hides clients whose name (or client ID) matches Pattern
type ExcludeRule struct {
	Pattern string `yaml:"pattern"`
	Field   string `yaml:"field,omitempty"` // "name" (default) or "client_id"

	// compiled fields
	regex *regexp.Regexp `yaml:"-"`
}

// APIConfig points the tool at a live dashboard backend
type APIConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`
	Token   string `yaml:"token,omitempty"`
	Timeout string `yaml:"timeout,omitempty"` // Go duration, e.g. "10s"
}

type Config struct {
	// Timezone defines where a calendar day starts (IANA name). Empty means the system zone.
	Timezone string `yaml:"timezone,omitempty"`

	// ExpiryTieBreak picks the retained expiry for clients in several plans:
	// soonest (default), latest or last-assigned.
	ExpiryTieBreak string `yaml:"expiry_tie_break,omitempty"`

	// ExpiringWithinDays limits the expiries report. 0 shows all.
	ExpiringWithinDays int `yaml:"expiring_within_days,omitempty"`

	// BirthdayWindowDays limits the birthdays report. 0 shows all.
	BirthdayWindowDays int `yaml:"birthday_window_days,omitempty"`

	// ClientCacheTTL is how long a fetched client list is reused (Go duration)
	ClientCacheTTL string `yaml:"client_cache_ttl,omitempty"`

	API APIConfig `yaml:"api,omitempty"`

	// Labels maps client IDs to display labels
	Labels map[string]string `yaml:"labels,omitempty"`

	// Exclude is a list of exclusion rules (strings or objects with pattern/field)
	Exclude []yaml.Node `yaml:"exclude,omitempty"`

	// compiled fields (not serialized)
	excludeRules []ExcludeRule  `yaml:"-"`
	location     *time.Location `yaml:"-"`
	tieBreak     ExpiryTieBreak `yaml:"-"`
	cacheTTL     time.Duration  `yaml:"-"`
	apiTimeout   time.Duration  `yaml:"-"`
}

const defaultClientCacheTTL = time.Minute

// DefaultConfigPath returns the default config file path (~/.coach-timeline/config.yaml)
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".coach-timeline", "config.yaml")
}

// NewDefaultConfig returns a compiled config with all defaults.
// Use this when no config file exists.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	if err := cfg.compile(); err != nil {
		// defaults always compile
		panic(err)
	}
	return cfg
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and compiles YAML config data
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.compile(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) compile() error {
	c.location = time.Local
	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
		c.location = loc
	}

	tb, err := TieBreakByName(c.ExpiryTieBreak)
	if err != nil {
		return err
	}
	c.tieBreak = tb

	c.cacheTTL = defaultClientCacheTTL
	if c.ClientCacheTTL != "" {
		d, err := time.ParseDuration(c.ClientCacheTTL)
		if err != nil {
			return fmt.Errorf("invalid client_cache_ttl %q: %w", c.ClientCacheTTL, err)
		}
		c.cacheTTL = d
	}

	if c.API.Timeout != "" {
		d, err := time.ParseDuration(c.API.Timeout)
		if err != nil {
			return fmt.Errorf("invalid api timeout %q: %w", c.API.Timeout, err)
		}
		c.apiTimeout = d
	}

	if c.ExpiringWithinDays < 0 || c.BirthdayWindowDays < 0 {
		return fmt.Errorf("window sizes must not be negative")
	}

	// Parse exclude rules (supports both strings and objects)
	c.excludeRules = nil
	for _, node := range c.Exclude {
		var rule ExcludeRule

		if node.Kind == yaml.ScalarNode {
			rule.Pattern = node.Value
		} else if node.Kind == yaml.MappingNode {
			if err := node.Decode(&rule); err != nil {
				return fmt.Errorf("parsing exclude rule: %w", err)
			}
		} else {
			return fmt.Errorf("invalid exclude rule format")
		}

		switch rule.Field {
		case "", "name", "client_id":
		default:
			return fmt.Errorf("invalid exclude field %q (use name or client_id)", rule.Field)
		}

		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", rule.Pattern, err)
		}
		rule.regex = re
		c.excludeRules = append(c.excludeRules, rule)
	}

	return nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// Create parent directories if they don't exist
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Location returns the zone where canonical days start
func (c *Config) Location() *time.Location {
	if c == nil || c.location == nil {
		return time.Local
	}
	return c.location
}

// TieBreak returns the compiled expiry tie-break policy
func (c *Config) TieBreak() ExpiryTieBreak {
	if c == nil || c.tieBreak == nil {
		return SoonestExpiry
	}
	return c.tieBreak
}

// ClientTTL returns how long a fetched client list stays fresh
func (c *Config) ClientTTL() time.Duration {
	if c == nil || c.cacheTTL == 0 {
		return defaultClientCacheTTL
	}
	return c.cacheTTL
}

// APITimeout returns the configured request timeout, or 0 for the default
func (c *Config) APITimeout() time.Duration {
	if c == nil {
		return 0
	}
	return c.apiTimeout
}

// ShouldExclude returns true if the client matches any exclude rule
func (c *Config) ShouldExclude(client Client) bool {
	if c == nil {
		return false
	}
	for _, rule := range c.excludeRules {
		value := client.Name
		if rule.Field == "client_id" {
			value = client.ClientID
		}
		if rule.regex.MatchString(value) {
			return true
		}
	}
	return false
}

// GetLabel returns the display label for a client, falling back to its name
func (c *Config) GetLabel(client Client) string {
	if c != nil && c.Labels != nil {
		if label, ok := c.Labels[client.Key()]; ok && label != "" {
			return label
		}
	}
	return client.Name
}

// FilterClients drops excluded clients
func (c *Config) FilterClients(clients []Client) []Client {
	if c == nil || len(c.excludeRules) == 0 {
		return clients
	}
	var result []Client
	for _, client := range clients {
		if !c.ShouldExclude(client) {
			result = append(result, client)
		}
	}
	return result
}

// GenerateConfigTemplate creates a config template labelling every known client
func GenerateConfigTemplate(clients []Client) *Config {
	cfg := &Config{
		ExpiryTieBreak: "soonest",
		ClientCacheTTL: defaultClientCacheTTL.String(),
		Labels:         make(map[string]string),
	}

	for _, client := range clients {
		cfg.Labels[client.Key()] = "" // Empty label as placeholder
	}

	return cfg
}
