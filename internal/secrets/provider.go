package secrets

// Provider resolves secret references to their actual values.
type Provider interface {
	// Fetch resolves a secret reference string and returns the secret value.
	Fetch(reference string) (string, error)
}

// Resolve looks up a single "prefix:remainder" secret reference through
// the matching provider. The flight server uses this for its SerpAPI
// credential: "env:SERP_API_KEY" reads an environment variable,
// "vault:secret/flight#api_key" reads a Vault KV field.
func Resolve(ref string, providers map[string]Provider) (string, error) {
	prefix, remainder := parseReference(ref)
	provider, ok := providers[prefix]
	if !ok {
		return "", &UnknownProviderError{Prefix: prefix, Reference: ref}
	}
	val, err := provider.Fetch(remainder)
	if err != nil {
		return "", &FetchError{Reference: ref, Err: err}
	}
	return val, nil
}

// parseReference splits "vault:secret/flight#api_key" into ("vault", "secret/flight#api_key").
func parseReference(ref string) (prefix string, remainder string) {
	for i, c := range ref {
		if c == ':' {
			return ref[:i], ref[i+1:]
		}
	}
	return "", ref
}

// UnknownProviderError is returned when a secret reference uses an unregistered prefix.
type UnknownProviderError struct {
	Prefix    string
	Reference string
}

func (e *UnknownProviderError) Error() string {
	return "unknown secrets provider \"" + e.Prefix + "\" in reference \"" + e.Reference + "\""
}

// FetchError wraps an error from a secrets provider.
type FetchError struct {
	Reference string
	Err       error
}

func (e *FetchError) Error() string {
	return "fetching secret \"" + e.Reference + "\": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
