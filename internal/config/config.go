package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AntonyPalsh/downlog/internal/progress"
)

// Node is a named backend instance and the base URL its API lives under.
type Node struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// NATSConfig configures outcome event publishing. An empty URL disables it.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Config defines configuration for the downlog CLI.
type Config struct {
	Label              string        `yaml:"label"`
	Timeout            time.Duration `yaml:"timeout"`
	SnippetLength      int           `yaml:"snippet_length"`
	Output             string        `yaml:"output"`
	RequireArchiveType bool          `yaml:"require_archive_type"`
	RejectEmpty        bool          `yaml:"reject_empty"`
	MaxArchiveSize     int64         `yaml:"max_archive_size"`
	Nodes              []Node        `yaml:"nodes"`
	Scaners            Node          `yaml:"scaners"`
	NATS               NATSConfig    `yaml:"nats"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Label:              "preprod",
		Timeout:            10 * time.Minute,
		SnippetLength:      100,
		Output:             "./downloads",
		RequireArchiveType: true,
		RejectEmpty:        true,
		MaxArchiveSize:     500 * 1024 * 1024, // 500MB
		Nodes: []Node{
			{Name: "node1", URL: "http://localhost/downlog/node01"},
			{Name: "node2", URL: "http://localhost/downlog/node02"},
		},
		Scaners: Node{Name: "scan", URL: "http://localhost/downlog/node03"},
		NATS:    NATSConfig{Subject: "downlog.outcomes"},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations and sizes.
type yamlConfig struct {
	Label              *string    `yaml:"label"`
	Timeout            string     `yaml:"timeout"`
	SnippetLength      int        `yaml:"snippet_length"`
	Output             string     `yaml:"output"`
	RequireArchiveType *bool      `yaml:"require_archive_type"`
	RejectEmpty        *bool      `yaml:"reject_empty"`
	MaxArchiveSize     string     `yaml:"max_archive_size"`
	Nodes              []Node     `yaml:"nodes"`
	Scaners            Node       `yaml:"scaners"`
	NATS               NATSConfig `yaml:"nats"`
}

// LoadFromFile loads configuration from a YAML file. Keys missing from the
// file keep their default values.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.Label != nil {
		cfg.Label = *yc.Label
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.SnippetLength != 0 {
		cfg.SnippetLength = yc.SnippetLength
	}
	if yc.Output != "" {
		cfg.Output = yc.Output
	}
	if yc.RequireArchiveType != nil {
		cfg.RequireArchiveType = *yc.RequireArchiveType
	}
	if yc.RejectEmpty != nil {
		cfg.RejectEmpty = *yc.RejectEmpty
	}
	if yc.MaxArchiveSize != "" {
		size, err := progress.ParseBytes(yc.MaxArchiveSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse max_archive_size: %w", err)
		}
		cfg.MaxArchiveSize = size
	}
	if len(yc.Nodes) > 0 {
		cfg.Nodes = yc.Nodes
	}
	if yc.Scaners.Name != "" {
		cfg.Scaners.Name = yc.Scaners.Name
	}
	if yc.Scaners.URL != "" {
		cfg.Scaners.URL = yc.Scaners.URL
	}
	if yc.NATS.URL != "" {
		cfg.NATS.URL = yc.NATS.URL
	}
	if yc.NATS.Subject != "" {
		cfg.NATS.Subject = yc.NATS.Subject
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the DOWNLOG_ prefix.
func (c *Config) LoadFromEnv() error {
	if v, ok := os.LookupEnv("DOWNLOG_LABEL"); ok {
		c.Label = v
	}
	if v := os.Getenv("DOWNLOG_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse DOWNLOG_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("DOWNLOG_SNIPPET_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse DOWNLOG_SNIPPET_LENGTH: %w", err)
		}
		c.SnippetLength = n
	}
	if v := os.Getenv("DOWNLOG_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv("DOWNLOG_REQUIRE_ARCHIVE_TYPE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse DOWNLOG_REQUIRE_ARCHIVE_TYPE: %w", err)
		}
		c.RequireArchiveType = b
	}
	if v := os.Getenv("DOWNLOG_REJECT_EMPTY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse DOWNLOG_REJECT_EMPTY: %w", err)
		}
		c.RejectEmpty = b
	}
	if v := os.Getenv("DOWNLOG_MAX_ARCHIVE_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse DOWNLOG_MAX_ARCHIVE_SIZE: %w", err)
		}
		c.MaxArchiveSize = size
	}
	if v := os.Getenv("DOWNLOG_NODES"); v != "" {
		nodes, err := ParseNodes(v)
		if err != nil {
			return fmt.Errorf("parse DOWNLOG_NODES: %w", err)
		}
		c.Nodes = nodes
	}
	if v := os.Getenv("DOWNLOG_SCANERS_URL"); v != "" {
		c.Scaners.URL = v
	}
	if v := os.Getenv("DOWNLOG_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("DOWNLOG_NATS_SUBJECT"); v != "" {
		c.NATS.Subject = v
	}

	return nil
}

// ParseNodes parses a node list in the form "name=url,name=url".
// Order is preserved.
func ParseNodes(s string) ([]Node, error) {
	var nodes []Node
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, u, ok := strings.Cut(part, "=")
		if !ok || name == "" || u == "" {
			return nil, fmt.Errorf("invalid node %q, want name=url", part)
		}
		nodes = append(nodes, Node{Name: strings.TrimSpace(name), URL: strings.TrimSpace(u)})
	}
	if len(nodes) == 0 {
		return nil, errors.New("no nodes")
	}
	return nodes, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	if c.SnippetLength < 0 {
		return errors.New("config: snippet_length must not be negative")
	}
	if c.Output == "" {
		return errors.New("config: output is required")
	}
	if c.MaxArchiveSize < 0 {
		return errors.New("config: max_archive_size must not be negative")
	}
	if len(c.Nodes) == 0 {
		return errors.New("config: at least one node is required")
	}

	seen := make(map[string]bool, len(c.Nodes))
	for _, n := range c.Nodes {
		if err := validateNode(n); err != nil {
			return err
		}
		if seen[n.Name] {
			return fmt.Errorf("config: duplicate node %q", n.Name)
		}
		seen[n.Name] = true
	}

	if c.Scaners.URL != "" {
		if err := validateNode(c.Scaners); err != nil {
			return err
		}
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		return errors.New("config: nats.subject is required when nats.url is set")
	}
	return nil
}

func validateNode(n Node) error {
	if n.Name == "" {
		return errors.New("config: node name is required")
	}
	u, err := url.Parse(n.URL)
	if err != nil {
		return fmt.Errorf("config: node %q: %w", n.Name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: node %q: url must be http or https, got %q", n.Name, n.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("config: node %q: url has no host", n.Name)
	}
	return nil
}

// NodeNames returns the configured node names in order.
func (c *Config) NodeNames() []string {
	names := make([]string, len(c.Nodes))
	for i, n := range c.Nodes {
		names[i] = n.Name
	}
	return names
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Label != "" {
		c.Label = override.Label
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.SnippetLength != 0 {
		c.SnippetLength = override.SnippetLength
	}
	if override.Output != "" {
		c.Output = override.Output
	}
	if override.MaxArchiveSize != 0 {
		c.MaxArchiveSize = override.MaxArchiveSize
	}
	if len(override.Nodes) > 0 {
		c.Nodes = override.Nodes
	}
	if override.Scaners.URL != "" {
		c.Scaners.URL = override.Scaners.URL
	}
	if override.NATS.URL != "" {
		c.NATS.URL = override.NATS.URL
	}
	if override.NATS.Subject != "" {
		c.NATS.Subject = override.NATS.Subject
	}
	return c
}
