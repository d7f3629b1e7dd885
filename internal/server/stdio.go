package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/random-robbie/Flight-Search-MCP-Server/internal/audit"
)

// StdioTransport drives a newline-delimited JSON-RPC session over a
// reader/writer pair: stdin and stdout in production, buffers in tests.
// Processing is strictly sequential — one line is fully read,
// dispatched, and answered before the next is touched, so responses
// leave in arrival order.
type StdioTransport struct {
	dispatcher *Dispatcher
	auditor    *audit.Logger
	in         io.Reader
	out        io.Writer
}

// NewStdioTransport wires a stdio session over the given streams.
func NewStdioTransport(dispatcher *Dispatcher, auditor *audit.Logger, in io.Reader, out io.Writer) *StdioTransport {
	return &StdioTransport{dispatcher: dispatcher, auditor: auditor, in: in, out: out}
}

func (t *StdioTransport) Name() string { return "stdio" }

// Serve reads one line at a time until end of input, which is the only
// normal termination path. Every per-line failure is recovered locally;
// a bad line never ends the session.
func (t *StdioTransport) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		t.handleLine(ctx, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	logrus.Info("end of input, shutting down")
	return nil
}

// handleLine processes a single input line. A panic anywhere in the
// cycle is converted to an internal-error response with the best-effort
// recovered id, and the loop carries on.
func (t *StdioTransport) handleLine(ctx context.Context, line []byte) {
	logrus.WithField("line", string(line)).Debug("received")

	var recoveredID any
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("panic handling message: %v", r)
			t.writeResponse(NewError(recoveredID, CodeInternalError, fmt.Sprintf("Internal error: %v", r)))
		}
	}()

	msg, err := ParseMessage(line)
	if err != nil {
		t.auditor.LogParseError(err.Error())
		t.writeResponse(NewError(nil, CodeParseError, "Parse error: "+err.Error()))
		return
	}
	recoveredID = msg.ID

	resp := t.dispatcher.Dispatch(ctx, msg)
	if resp == nil {
		// Notification: nothing goes back.
		return
	}
	t.writeResponse(resp)
}

// writeResponse serializes one response as a single line and writes it
// out immediately. No buffering across cycles.
func (t *StdioTransport) writeResponse(resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logrus.Errorf("marshaling response: %v", err)
		return
	}
	logrus.WithField("response", string(data)).Debug("sending")
	data = append(data, '\n')
	t.out.Write(data)
}
