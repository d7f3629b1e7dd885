package audit

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Logger writes structured JSON audit events, one object per line.
// Events go to stderr or a file, never to stdout, which belongs to the
// JSON-RPC channel. Secret values handed to New are scrubbed from any
// logged arguments.
type Logger struct {
	mu      sync.Mutex
	writer  io.Writer
	secrets []string
}

// New creates a Logger that writes to the given writer. Any secret
// values passed are redacted wherever they appear in logged arguments.
func New(w io.Writer, secretValues ...string) *Logger {
	return &Logger{writer: w, secrets: secretValues}
}

// ToolCallEvent represents a tool invocation audit record.
type ToolCallEvent struct {
	Tool       string         `json:"tool"`
	Arguments  map[string]any `json:"arguments"`
	Outcome    string         `json:"outcome"` // "ok" or "error"
	ErrorCode  int            `json:"error_code,omitempty"`
	Decision   string         `json:"decision,omitempty"`
	Rule       int            `json:"matched_rule,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
}

// LogToolCall records a tool invocation event.
func (l *Logger) LogToolCall(e ToolCallEvent) {
	record := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"event":     "tool_call",
		"tool":      e.Tool,
		"arguments": RedactSecrets(e.Arguments, l.secrets),
		"outcome":   e.Outcome,
	}
	if e.ErrorCode != 0 {
		record["error_code"] = e.ErrorCode
	}
	if e.Decision != "" {
		record["decision"] = e.Decision
		record["matched_rule"] = e.Rule
	}
	if e.Reason != "" {
		record["reason"] = e.Reason
	}
	if e.DurationMs > 0 {
		record["duration_ms"] = e.DurationMs
	}
	l.write(record)
}

// LogParseError records an input line that failed to parse as JSON-RPC.
func (l *Logger) LogParseError(message string) {
	l.write(map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"event":     "parse_error",
		"message":   message,
	})
}

// LogStartup records a server startup event.
func (l *Logger) LogStartup(server, transport string) {
	l.write(map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"event":     "startup",
		"server":    server,
		"transport": transport,
	})
}

// LogShutdown records a server shutdown event.
func (l *Logger) LogShutdown(server string) {
	l.write(map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"event":     "shutdown",
		"server":    server,
	})
}

func (l *Logger) write(record map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	data = append(data, '\n')
	l.writer.Write(data)
}

// RedactSecrets replaces argument values equal to a known secret with a
// redaction marker. Returns a new map; does not modify the original.
func RedactSecrets(args map[string]any, secretValues []string) map[string]any {
	redacted := make(map[string]any, len(args))
	for k, v := range args {
		redacted[k] = v
	}
	for _, secret := range secretValues {
		if secret == "" {
			continue
		}
		for k, v := range redacted {
			if s, ok := v.(string); ok && s == secret {
				redacted[k] = "[REDACTED]"
			}
		}
	}
	return redacted
}
