package server

import (
	"encoding/json"
	"fmt"
)

// JSON-RPC error codes used by the server.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInternalError  = -32603
)

// Message represents a parsed JSON-RPC 2.0 envelope. An envelope
// without an id is a notification and never receives a response.
type Message struct {
	ID     any             `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is one JSON-RPC response line. Result and Error are
// mutually exclusive. ID is always serialized, null included, so the
// envelope stays well-formed even for unattributable errors.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// ToolCall represents a tools/call request's params.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ContentBlock is one element of a tool call result's content sequence.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult wraps a tool's textual output for the client.
type CallToolResult struct {
	Content []ContentBlock `json:"content"`
}

// ParseMessage parses a raw JSON-RPC envelope.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parsing JSON-RPC message: %w", err)
	}
	return &msg, nil
}

// IsNotification returns true if this envelope carries no id.
func (m *Message) IsNotification() bool {
	return m.ID == nil
}

// AsToolCall extracts tool call parameters from a tools/call request.
// Absent params degrade to an empty call; the invoker then reports the
// empty tool name as unknown.
func (m *Message) AsToolCall() (*ToolCall, error) {
	tc := &ToolCall{Arguments: map[string]any{}}
	if m.Params == nil {
		return tc, nil
	}
	if err := json.Unmarshal(m.Params, tc); err != nil {
		return nil, fmt.Errorf("parsing tool call params: %w", err)
	}
	if tc.Arguments == nil {
		tc.Arguments = map[string]any{}
	}
	return tc, nil
}

// NewResult builds a success response.
func NewResult(id any, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

// NewError builds an error response.
func NewError(id any, code int, message string) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}
