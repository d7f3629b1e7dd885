package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/random-robbie/Flight-Search-MCP-Server/internal/audit"
	"github.com/random-robbie/Flight-Search-MCP-Server/internal/flights"
	"github.com/random-robbie/Flight-Search-MCP-Server/internal/policy"
)

// Tool names exposed through tools/list and tools/call.
const (
	ToolSearchFlights = "search_flights"
	ToolServerStatus  = "server_status"
)

const statusMessage = "Flight search server is running"

// ToolDescriptor describes a callable tool. The input schema is
// documentation for the client; arguments are not validated against it
// at call time beyond presence handling.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Registry is the static tool catalog. Order is fixed declaration
// order: the search tool first, the status tool second.
type Registry struct {
	tools []ToolDescriptor
}

// NewRegistry builds the catalog.
func NewRegistry() *Registry {
	return &Registry{
		tools: []ToolDescriptor{
			{
				Name:        ToolSearchFlights,
				Description: "Search for flights between airports",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"origin": map[string]any{
							"type":        "string",
							"description": "Origin airport code (e.g., JFK, LAX)",
						},
						"destination": map[string]any{
							"type":        "string",
							"description": "Destination airport code (e.g., JFK, LAX)",
						},
						"outbound_date": map[string]any{
							"type":        "string",
							"description": "Departure date (YYYY-MM-DD)",
						},
						"return_date": map[string]any{
							"type":        "string",
							"description": "Return date for round trip (YYYY-MM-DD)",
						},
					},
					"required": []string{"origin", "destination", "outbound_date"},
				},
			},
			{
				Name:        ToolServerStatus,
				Description: "Check if the flight search server is running",
				InputSchema: map[string]any{
					"type":       "object",
					"properties": map[string]any{},
				},
			},
		},
	}
}

// List returns the descriptors in declaration order.
func (r *Registry) List() []ToolDescriptor {
	return r.tools
}

// Searcher is the flight lookup collaborator. The production
// implementation is the SerpAPI client; tests substitute fakes.
type Searcher interface {
	Search(ctx context.Context, q flights.Query) (*flights.Result, error)
}

// Invoker routes tool calls to their handlers and normalizes every
// outcome into either a textual payload or a protocol error.
type Invoker struct {
	searcher Searcher
	engine   *policy.Engine
	auditor  *audit.Logger
	dryRun   bool
}

// NewInvoker wires the invoker's collaborators. With dryRun set, policy
// decisions are logged but never block a call.
func NewInvoker(searcher Searcher, engine *policy.Engine, auditor *audit.Logger, dryRun bool) *Invoker {
	return &Invoker{searcher: searcher, engine: engine, auditor: auditor, dryRun: dryRun}
}

// Invoke runs the named tool. The returned text is the payload for a
// single content block; a non-nil RPCError becomes the response's error
// object. Handler panics never escape: they come back as -32603.
func (inv *Invoker) Invoke(ctx context.Context, name string, args map[string]any) (string, *RPCError) {
	if args == nil {
		args = map[string]any{}
	}

	start := time.Now()
	decision := inv.engine.Evaluate(name, args)
	text, rpcErr := inv.run(ctx, name, args, decision)

	event := audit.ToolCallEvent{
		Tool:       name,
		Arguments:  args,
		Outcome:    "ok",
		Rule:       decision.MatchedRule,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if decision.Allow {
		event.Decision = "allow"
	} else {
		event.Decision = "deny"
	}
	if rpcErr != nil {
		event.Outcome = "error"
		event.ErrorCode = rpcErr.Code
		event.Reason = rpcErr.Message
	}
	inv.auditor.LogToolCall(event)

	return text, rpcErr
}

func (inv *Invoker) run(ctx context.Context, name string, args map[string]any, decision policy.Decision) (text string, rpcErr *RPCError) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			rpcErr = &RPCError{Code: CodeInternalError, Message: fmt.Sprintf("Internal error: %v", r)}
		}
	}()

	switch name {
	case ToolSearchFlights:
		if !decision.Allow && !inv.dryRun {
			return marshalPayload(flights.Failure("search denied by policy: " + decision.Reason))
		}
		return inv.searchFlights(ctx, args)
	case ToolServerStatus:
		return statusMessage, nil
	default:
		return "", &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("Unknown tool: %s", name)}
	}
}

func (inv *Invoker) searchFlights(ctx context.Context, args map[string]any) (string, *RPCError) {
	q := flights.Query{
		Origin:       stringArg(args, "origin"),
		Destination:  stringArg(args, "destination"),
		OutboundDate: stringArg(args, "outbound_date"),
		ReturnDate:   stringArg(args, "return_date"),
	}

	result, err := inv.searcher.Search(ctx, q)
	if err != nil {
		// A failed lookup is ordinary tool output, not a protocol error.
		return marshalPayload(flights.Failure(err.Error()))
	}
	return marshalPayload(result)
}

func marshalPayload(v any) (string, *RPCError) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", &RPCError{Code: CodeInternalError, Message: "Internal error: " + err.Error()}
	}
	return string(data), nil
}

// stringArg reads an argument permissively: missing or non-string
// values degrade to the empty string rather than rejecting the call.
// Historical behavior, preserved for compatibility.
func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}
