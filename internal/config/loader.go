package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default returns the configuration used when no config file is given:
// stdio transport, credential from the SERP_API_KEY environment
// variable, allow-all search policy.
func Default() *Config {
	return &Config{
		Server: ServerInfo{
			Name:    "flight-search-server",
			Version: "1.0.2",
		},
		LogLevel: "info",
		Transport: TransportConfig{
			Type: "stdio",
			Port: 3001,
		},
		Credentials: CredentialsConfig{
			SerpAPIKey: "env:SERP_API_KEY",
		},
		Search: SearchConfig{
			Currency:   "USD",
			MaxResults: 5,
			Default:    "allow",
		},
	}
}

// Load reads and parses a flight-search YAML config file. Fields left
// out of the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks that a Config has all required fields and valid values.
func Validate(cfg *Config) error {
	if cfg.Server.Name == "" {
		return fmt.Errorf("missing required field: server.name")
	}
	if cfg.Server.Version == "" {
		return fmt.Errorf("missing required field: server.version")
	}
	if cfg.Transport.Type != "stdio" && cfg.Transport.Type != "http" {
		return fmt.Errorf("transport.type must be \"stdio\" or \"http\", got %q", cfg.Transport.Type)
	}
	if cfg.Credentials.SerpAPIKey == "" {
		return fmt.Errorf("missing required field: credentials.serp_api_key")
	}
	if cfg.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", cfg.Search.MaxResults)
	}
	if cfg.Search.Default != "allow" && cfg.Search.Default != "deny" {
		return fmt.Errorf("search.default must be \"allow\" or \"deny\", got %q", cfg.Search.Default)
	}
	for i, rule := range cfg.Search.Rules {
		if rule.Tool == "" {
			return fmt.Errorf("search rule %d: missing required field: tool", i)
		}
	}
	return nil
}
