package server

import (
	"context"
	"fmt"
	"os"

	"github.com/random-robbie/Flight-Search-MCP-Server/internal/audit"
	"github.com/random-robbie/Flight-Search-MCP-Server/internal/config"
)

// Transport is a serving mode for a JSON-RPC session. The dispatcher
// and invoker are transport-agnostic; a new mode plugs in here.
type Transport interface {
	Name() string
	Serve(ctx context.Context) error
}

// NewTransport selects the transport for the configured connection type.
func NewTransport(cfg config.TransportConfig, dispatcher *Dispatcher, auditor *audit.Logger) (Transport, error) {
	switch cfg.Type {
	case "stdio":
		return NewStdioTransport(dispatcher, auditor, os.Stdin, os.Stdout), nil
	case "http":
		return &HTTPTransport{Port: cfg.Port}, nil
	default:
		return nil, fmt.Errorf("unknown transport type %q", cfg.Type)
	}
}

// HTTPTransport is a placeholder for a future network listener mode.
// Selecting it is a startup error.
type HTTPTransport struct {
	Port int
}

func (t *HTTPTransport) Name() string { return "http" }

func (t *HTTPTransport) Serve(ctx context.Context) error {
	return fmt.Errorf("http transport not implemented yet, use stdio")
}
