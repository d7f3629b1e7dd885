package policy

import (
	"fmt"

	"github.com/random-robbie/Flight-Search-MCP-Server/internal/config"
)

// Engine evaluates tool calls against the configured search policy.
// Typical rules restrict search_flights to a set of origin or
// destination airport codes via glob patterns.
type Engine struct {
	search config.SearchConfig
}

// NewEngine creates a policy engine for a search configuration.
func NewEngine(search config.SearchConfig) *Engine {
	return &Engine{search: search}
}

// Evaluate checks whether a tool call with the given arguments is allowed.
// Rules are evaluated top-down; first match wins. With no rules
// configured the default applies, which is "allow" out of the box.
func (e *Engine) Evaluate(tool string, arguments map[string]any) Decision {
	for i, rule := range e.search.Rules {
		if rule.Tool != tool {
			continue
		}
		if e.matchWhen(rule.When, arguments) {
			reason := fmt.Sprintf("matched rule %d", i)
			if !rule.Allow {
				reason = fmt.Sprintf("denied by rule %d", i)
			}
			return Decision{
				Allow:       rule.Allow,
				MatchedRule: i,
				Reason:      reason,
			}
		}
	}

	// No rule matched — fall back to default
	allow := e.search.Default != "deny"
	return Decision{
		Allow:       allow,
		MatchedRule: -1,
		Reason:      "no matching rule, using default: " + e.defaultName(),
	}
}

func (e *Engine) defaultName() string {
	if e.search.Default == "" {
		return "allow"
	}
	return e.search.Default
}

// matchWhen checks if all 'when' clauses match the given arguments.
// All clauses must match (AND logic). Each clause is a glob pattern
// matched against the string representation of the argument value.
func (e *Engine) matchWhen(when map[string]string, arguments map[string]any) bool {
	for key, pattern := range when {
		val, ok := arguments[key]
		if !ok {
			return false
		}
		strVal := fmt.Sprintf("%v", val)
		if !GlobMatch(pattern, strVal) {
			return false
		}
	}
	return true
}
