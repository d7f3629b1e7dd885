package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/random-robbie/Flight-Search-MCP-Server/internal/audit"
)

// runSession feeds input through a stdio transport and returns the
// output lines. The session always ends at EOF.
func runSession(t *testing.T, searcher Searcher, input string) []string {
	t.Helper()
	d := newTestDispatcher(t, searcher)
	var out bytes.Buffer
	transport := NewStdioTransport(d, audit.New(io.Discard), strings.NewReader(input), &out)
	if err := transport.Serve(context.Background()); err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}
	raw := strings.TrimRight(out.String(), "\n")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var envelope map[string]any
	if err := json.Unmarshal([]byte(line), &envelope); err != nil {
		t.Fatalf("output line is not valid JSON: %v\n%s", err, line)
	}
	return envelope
}

func TestServeEOFProducesNothing(t *testing.T) {
	lines := runSession(t, &fakeSearcher{}, "")
	if len(lines) != 0 {
		t.Errorf("output lines = %d, want 0", len(lines))
	}
}

func TestServeSkipsBlankLines(t *testing.T) {
	input := "\n   \n\t\n" + `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n\n"
	lines := runSession(t, &fakeSearcher{}, input)
	if len(lines) != 1 {
		t.Fatalf("output lines = %d, want 1", len(lines))
	}
}

func TestServeMalformedLineRecovers(t *testing.T) {
	input := "{this is not json\n" + `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n"
	lines := runSession(t, &fakeSearcher{}, input)
	if len(lines) != 2 {
		t.Fatalf("output lines = %d, want 2", len(lines))
	}

	parseErr := decodeLine(t, lines[0])
	if id, ok := parseErr["id"]; !ok || id != nil {
		t.Errorf("parse error id = %v, want explicit null", id)
	}
	errObj := parseErr["error"].(map[string]any)
	if errObj["code"] != float64(CodeParseError) {
		t.Errorf("code = %v, want %d", errObj["code"], CodeParseError)
	}

	// The session kept going.
	pong := decodeLine(t, lines[1])
	if pong["id"] != float64(1) {
		t.Errorf("second response id = %v, want 1", pong["id"])
	}
}

func TestServeNotificationsProduceNoOutput(t *testing.T) {
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"server_status"}}`,
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
	}, "\n") + "\n"

	lines := runSession(t, &fakeSearcher{}, input)
	if len(lines) != 1 {
		t.Fatalf("output lines = %d, want 1 (only the ping)", len(lines))
	}
	if decodeLine(t, lines[0])["id"] != float64(1) {
		t.Errorf("response id = %v, want 1", decodeLine(t, lines[0])["id"])
	}
}

func TestServeResponsesInArrivalOrder(t *testing.T) {
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"ping"}`,
	}, "\n") + "\n"

	lines := runSession(t, &fakeSearcher{}, input)
	if len(lines) != 3 {
		t.Fatalf("output lines = %d, want 3", len(lines))
	}
	for i, want := range []float64{1, 2, 3} {
		if got := decodeLine(t, lines[i])["id"]; got != want {
			t.Errorf("response %d id = %v, want %v", i, got, want)
		}
	}
}

func TestServeSearchCallEndToEnd(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":10,"method":"tools/call","params":{"name":"search_flights","arguments":{"origin":"JFK","destination":"LHR","outbound_date":"2026-03-15"}}}` + "\n"
	lines := runSession(t, &fakeSearcher{}, input)
	if len(lines) != 1 {
		t.Fatalf("output lines = %d, want 1", len(lines))
	}

	envelope := decodeLine(t, lines[0])
	result := envelope["result"].(map[string]any)
	content := result["content"].([]any)
	block := content[0].(map[string]any)
	if block["type"] != "text" {
		t.Errorf("content type = %q, want %q", block["type"], "text")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(block["text"].(string)), &payload); err != nil {
		t.Fatalf("content text is not valid JSON: %v", err)
	}
	if payload["status"] != "success" {
		t.Errorf("status = %q, want %q", payload["status"], "success")
	}
	if payload["trip_type"] != "one_way" {
		t.Errorf("trip_type = %q, want %q", payload["trip_type"], "one_way")
	}
}

func TestServeLookupFailureStaysInsideResult(t *testing.T) {
	// A provider-side failure must surface as tool output, never as a
	// JSON-RPC error field.
	searcher := &fakeSearcher{err: errors.New("SerpAPI error: Invalid API key")}
	input := `{"jsonrpc":"2.0","id":11,"method":"tools/call","params":{"name":"search_flights","arguments":{"origin":"JFK","destination":"LHR","outbound_date":"2026-03-15"}}}` + "\n"

	lines := runSession(t, searcher, input)
	if len(lines) != 1 {
		t.Fatalf("output lines = %d, want 1", len(lines))
	}

	envelope := decodeLine(t, lines[0])
	if _, ok := envelope["error"]; ok {
		t.Fatal("lookup failure leaked into the JSON-RPC error field")
	}
	block := envelope["result"].(map[string]any)["content"].([]any)[0].(map[string]any)
	var payload map[string]any
	if err := json.Unmarshal([]byte(block["text"].(string)), &payload); err != nil {
		t.Fatalf("content text is not valid JSON: %v", err)
	}
	if payload["status"] != "error" {
		t.Errorf("status = %q, want %q", payload["status"], "error")
	}
}

func TestServePanicRecoveredAtLoopLevel(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":12,"method":"tools/call","params":{"name":"search_flights","arguments":{}}}` + "\n" +
		`{"jsonrpc":"2.0","id":13,"method":"ping"}` + "\n"

	// The invoker already recovers handler panics, so this exercises
	// the loop-level net with a searcher that panics straight through
	// it: the invoker converts it, the loop still answers, and the
	// session continues.
	lines := runSession(t, panickySearcher{}, input)
	if len(lines) != 2 {
		t.Fatalf("output lines = %d, want 2", len(lines))
	}

	failed := decodeLine(t, lines[0])
	errObj, ok := failed["error"].(map[string]any)
	if !ok {
		t.Fatalf("first response carries no error: %s", lines[0])
	}
	if errObj["code"] != float64(CodeInternalError) {
		t.Errorf("code = %v, want %d", errObj["code"], CodeInternalError)
	}
	if decodeLine(t, lines[1])["id"] != float64(13) {
		t.Errorf("session did not continue after internal error")
	}
}
