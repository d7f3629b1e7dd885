package policy

import (
	"testing"

	"github.com/random-robbie/Flight-Search-MCP-Server/internal/config"
)

func TestEvaluateDefaultDeny(t *testing.T) {
	search := config.SearchConfig{
		Default: "deny",
		Rules:   []config.Rule{},
	}
	engine := NewEngine(search)
	d := engine.Evaluate("search_flights", map[string]any{"origin": "JFK"})
	if d.Allow {
		t.Error("expected deny for unmatched tool")
	}
	if d.MatchedRule != -1 {
		t.Errorf("matched_rule = %d, want -1", d.MatchedRule)
	}
}

func TestEvaluateToolAllowed(t *testing.T) {
	search := config.SearchConfig{
		Default: "deny",
		Rules: []config.Rule{
			{Tool: "server_status", Allow: true},
		},
	}
	engine := NewEngine(search)
	d := engine.Evaluate("server_status", map[string]any{})
	if !d.Allow {
		t.Error("expected allow for matching tool")
	}
	if d.MatchedRule != 0 {
		t.Errorf("matched_rule = %d, want 0", d.MatchedRule)
	}
}

func TestEvaluateWhenClauseMatches(t *testing.T) {
	search := config.SearchConfig{
		Default: "deny",
		Rules: []config.Rule{
			{Tool: "search_flights", Allow: true, When: map[string]string{"origin": "{JFK,LAX,SFO}"}},
		},
	}
	engine := NewEngine(search)

	d := engine.Evaluate("search_flights", map[string]any{"origin": "JFK"})
	if !d.Allow {
		t.Error("expected allow for allowlisted origin")
	}

	d = engine.Evaluate("search_flights", map[string]any{"origin": "SVO"})
	if d.Allow {
		t.Error("expected deny for non-allowlisted origin")
	}
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	search := config.SearchConfig{
		Default: "deny",
		Rules: []config.Rule{
			{Tool: "search_flights", Allow: false, When: map[string]string{"destination": "PYX"}},
			{Tool: "search_flights", Allow: true},
		},
	}
	engine := NewEngine(search)

	d := engine.Evaluate("search_flights", map[string]any{"destination": "PYX"})
	if d.Allow {
		t.Error("expected deny from first matching rule")
	}
	if d.MatchedRule != 0 {
		t.Errorf("matched_rule = %d, want 0", d.MatchedRule)
	}

	d = engine.Evaluate("search_flights", map[string]any{"destination": "LHR"})
	if !d.Allow {
		t.Error("expected allow from second rule")
	}
	if d.MatchedRule != 1 {
		t.Errorf("matched_rule = %d, want 1", d.MatchedRule)
	}
}

func TestEvaluateDefaultAllow(t *testing.T) {
	engine := NewEngine(config.SearchConfig{Default: "allow"})
	d := engine.Evaluate("search_flights", map[string]any{})
	if !d.Allow {
		t.Error("expected allow under default-allow policy")
	}
}

func TestEvaluateEmptyDefaultMeansAllow(t *testing.T) {
	// A zero-value SearchConfig (no config file at all) must not block calls.
	engine := NewEngine(config.SearchConfig{})
	d := engine.Evaluate("search_flights", map[string]any{"origin": "JFK"})
	if !d.Allow {
		t.Error("expected allow for zero-value policy")
	}
}

func TestEvaluateMultipleWhenClauses(t *testing.T) {
	search := config.SearchConfig{
		Default: "deny",
		Rules: []config.Rule{
			{
				Tool:  "search_flights",
				Allow: true,
				When:  map[string]string{"origin": "J*", "destination": "LHR"},
			},
		},
	}
	engine := NewEngine(search)

	// Both match
	d := engine.Evaluate("search_flights", map[string]any{"origin": "JFK", "destination": "LHR"})
	if !d.Allow {
		t.Error("expected allow when all when clauses match")
	}

	// One doesn't match
	d = engine.Evaluate("search_flights", map[string]any{"origin": "LAX", "destination": "LHR"})
	if d.Allow {
		t.Error("expected deny when one when clause fails")
	}

	// Missing argument fails the clause
	d = engine.Evaluate("search_flights", map[string]any{"origin": "JFK"})
	if d.Allow {
		t.Error("expected deny when a constrained argument is absent")
	}
}
