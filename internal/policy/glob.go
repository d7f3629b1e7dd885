package policy

import "github.com/bmatcuk/doublestar/v4"

// GlobMatch checks if a value matches a glob pattern. Supports
// alternation like "{JFK,LAX,SFO}" for airport-code allowlists and
// "*" / "**" wildcards. A malformed pattern matches nothing.
func GlobMatch(pattern, value string) bool {
	matched, err := doublestar.Match(pattern, value)
	if err != nil {
		return false
	}
	return matched
}
