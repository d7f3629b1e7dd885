package server

import (
	"context"
	"fmt"

	"github.com/random-robbie/Flight-Search-MCP-Server/internal/config"
)

// protocolVersion is the MCP protocol revision advertised on initialize.
const protocolVersion = "2024-11-05"

// unknownID is the sentinel substituted when an error response must be
// built for a request whose id could not be determined.
const unknownID = "unknown"

// methodInitialized is the one notification the protocol defines; it is
// recognized and deliberately unanswered.
const methodInitialized = "notifications/initialized"

type handlerFunc func(ctx context.Context, msg *Message) *Response

// requiredMethods is the complete set of request methods the protocol
// obliges us to answer. NewDispatcher refuses to construct a dispatcher
// that leaves any of them unrouted.
var requiredMethods = []string{"initialize", "tools/list", "tools/call", "ping"}

// Dispatcher is the per-message JSON-RPC state machine. It holds no
// state between messages beyond the registry and invoker it closes over.
type Dispatcher struct {
	registry *Registry
	invoker  *Invoker
	info     config.ServerInfo
	routes   map[string]handlerFunc
}

// NewDispatcher builds the method routing table and validates it is
// complete, so a missing handler fails at startup instead of at call time.
func NewDispatcher(registry *Registry, invoker *Invoker, info config.ServerInfo) (*Dispatcher, error) {
	d := &Dispatcher{registry: registry, invoker: invoker, info: info}
	d.routes = map[string]handlerFunc{
		"initialize": d.handleInitialize,
		"tools/list": d.handleListTools,
		"tools/call": d.handleCallTool,
		"ping":       d.handlePing,
	}
	for _, method := range requiredMethods {
		if _, ok := d.routes[method]; !ok {
			return nil, fmt.Errorf("method %q has no registered handler", method)
		}
	}
	return d, nil
}

// Dispatch routes one envelope to its handler. A nil return means the
// envelope was a notification and nothing must be written back.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *Message) *Response {
	if msg.IsNotification() {
		// No id, no response — whatever the method says.
		return nil
	}
	if msg.Method == "" {
		return NewError(respID(msg.ID), CodeParseError, "Parse error: missing method")
	}
	if msg.Method == methodInitialized {
		return nil
	}
	handler, ok := d.routes[msg.Method]
	if !ok {
		return NewError(respID(msg.ID), CodeMethodNotFound, "Method not found: "+msg.Method)
	}
	return handler(ctx, msg)
}

func (d *Dispatcher) handleInitialize(ctx context.Context, msg *Message) *Response {
	return NewResult(respID(msg.ID), map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    d.info.Name,
			"version": d.info.Version,
		},
	})
}

func (d *Dispatcher) handleListTools(ctx context.Context, msg *Message) *Response {
	return NewResult(respID(msg.ID), map[string]any{
		"tools": d.registry.List(),
	})
}

func (d *Dispatcher) handleCallTool(ctx context.Context, msg *Message) *Response {
	tc, err := msg.AsToolCall()
	if err != nil {
		return NewError(respID(msg.ID), CodeInternalError, "Internal error: "+err.Error())
	}

	text, rpcErr := d.invoker.Invoke(ctx, tc.Name, tc.Arguments)
	if rpcErr != nil {
		return &Response{JSONRPC: "2.0", ID: respID(msg.ID), Error: rpcErr}
	}
	return NewResult(respID(msg.ID), CallToolResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	})
}

func (d *Dispatcher) handlePing(ctx context.Context, msg *Message) *Response {
	return NewResult(respID(msg.ID), map[string]any{})
}

// respID echoes the request id, substituting the sentinel if it is
// somehow absent so the response envelope is always well-formed.
func respID(id any) any {
	if id == nil {
		return unknownID
	}
	return id
}
