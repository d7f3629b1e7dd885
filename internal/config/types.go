package config

// Config is the top-level flight-search.yaml structure. Every field has
// a working default so the server can run without a config file at all.
type Config struct {
	Server      ServerInfo        `yaml:"server,omitempty"`
	LogLevel    string            `yaml:"log_level,omitempty"`
	AuditLog    string            `yaml:"audit_log,omitempty"`
	Transport   TransportConfig   `yaml:"transport,omitempty"`
	Credentials CredentialsConfig `yaml:"credentials,omitempty"`
	Vault       *VaultConfig      `yaml:"vault,omitempty"`
	Search      SearchConfig      `yaml:"search,omitempty"`
}

// ServerInfo is the identity advertised in the initialize response.
type ServerInfo struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// TransportConfig selects how the server talks to its client.
type TransportConfig struct {
	Type string `yaml:"type"` // "stdio" or "http"
	Port int    `yaml:"port,omitempty"`
}

// CredentialsConfig holds secret references, not secret values.
// References use the "provider:remainder" syntax resolved by the
// secrets package, e.g. "env:SERP_API_KEY" or "vault:secret/flight#api_key".
type CredentialsConfig struct {
	SerpAPIKey string `yaml:"serp_api_key"`
}

// VaultConfig holds Vault connection and auth settings.
type VaultConfig struct {
	Address string     `yaml:"address"`
	TLS     TLSConfig  `yaml:"tls,omitempty"`
	Auth    AuthConfig `yaml:"auth"`
}

type TLSConfig struct {
	CACert     string `yaml:"ca_cert,omitempty"`
	SkipVerify bool   `yaml:"skip_verify,omitempty"`
}

type AuthConfig struct {
	Method       string `yaml:"method"`
	RoleIDPath   string `yaml:"role_id_path,omitempty"`
	SecretIDPath string `yaml:"secret_id_path,omitempty"`
}

// SearchConfig tunes the flight lookup and its access policy.
type SearchConfig struct {
	Currency   string `yaml:"currency,omitempty"`
	MaxResults int    `yaml:"max_results,omitempty"`
	Default    string `yaml:"default,omitempty"` // "allow" or "deny" when no rule matches
	Rules      []Rule `yaml:"rules,omitempty"`
}

// Rule defines a single policy rule for a tool.
type Rule struct {
	Tool  string            `yaml:"tool"`
	Allow bool              `yaml:"allow"`
	When  map[string]string `yaml:"when,omitempty"`
}
