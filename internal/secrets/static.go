package secrets

import (
	"fmt"
	"os"
)

// EnvProvider resolves "env:" references by reading environment
// variables. This is the default source for the SerpAPI key.
type EnvProvider struct{}

// NewEnvProvider creates a provider that reads from environment variables.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

// Fetch reads the named environment variable. An unset variable is an
// error; an empty value is returned as-is.
func (p *EnvProvider) Fetch(name string) (string, error) {
	val, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("environment variable %q not set", name)
	}
	return val, nil
}
