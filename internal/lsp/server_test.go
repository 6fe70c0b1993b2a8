package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shmocker/dockerfile-lsp/pkg/dockerfile"
	"github.com/shmocker/dockerfile-lsp/pkg/document"
)

const testURI = "file:///work/Dockerfile"

// script frames a sequence of client messages.
func script(t *testing.T, messages ...map[string]any) io.Reader {
	t.Helper()
	var buf bytes.Buffer
	for _, msg := range messages {
		msg["jsonrpc"] = "2.0"
		payload, err := json.Marshal(msg)
		require.NoError(t, err)
		require.NoError(t, writeMessage(&buf, payload))
	}
	return &buf
}

func request(id int, method string, params any) map[string]any {
	msg := notification(method, params)
	msg["id"] = id
	return msg
}

func notification(method string, params any) map[string]any {
	msg := map[string]any{"method": method}
	if params != nil {
		msg["params"] = params
	}
	return msg
}

func didOpen(text string) map[string]any {
	return notification("textDocument/didOpen", map[string]any{
		"textDocument": map[string]any{"uri": testURI, "languageId": "dockerfile", "version": 1, "text": text},
	})
}

func didChange(version int, text string) map[string]any {
	return notification("textDocument/didChange", map[string]any{
		"textDocument":   map[string]any{"uri": testURI, "version": version},
		"contentChanges": []map[string]any{{"text": text}},
	})
}

func settings(maintainer string) map[string]any {
	return map[string]any{"dockerfile": map[string]any{"diagnostics": map[string]any{"deprecatedMaintainer": maintainer}}}
}

func readAll(t *testing.T, data []byte) []rpcMessage {
	t.Helper()
	reader := bufio.NewReader(bytes.NewReader(data))
	var out []rpcMessage
	for {
		payload, err := readMessage(reader)
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		var msg rpcMessage
		require.NoError(t, json.Unmarshal(payload, &msg))
		out = append(out, msg)
	}
}

func decodePublish(t *testing.T, msg rpcMessage) publishDiagnosticsParams {
	t.Helper()
	require.Equal(t, "textDocument/publishDiagnostics", msg.Method)
	var params publishDiagnosticsParams
	require.NoError(t, json.Unmarshal(msg.Params, &params))
	return params
}

func codes(diags []lspDiagnostic) map[string]lspDiagnostic {
	out := make(map[string]lspDiagnostic, len(diags))
	for _, d := range diags {
		out[d.Code] = d
	}
	return out
}

func TestServerSession(t *testing.T) {
	in := script(t,
		request(1, "initialize", map[string]any{
			"initializationOptions": map[string]any{
				"dockerfile": map[string]any{"diagnostics": map[string]any{"instructionCasing": "error"}},
			},
		}),
		notification("initialized", map[string]any{}),
		didOpen("from node\nEXPOSE 80/abc\n"),
		didChange(2, "FROM node\n"),
		request(2, "textDocument/hover", map[string]any{}),
		notification("textDocument/didClose", map[string]any{"textDocument": map[string]any{"uri": testURI}}),
		request(3, "shutdown", nil),
		notification("exit", nil),
	)
	var out bytes.Buffer
	server := NewServer(in, &out, Options{Settings: dockerfile.DefaultSettings(), Version: "test"})
	require.NoError(t, server.Run(context.Background()))

	msgs := readAll(t, out.Bytes())
	require.Len(t, msgs, 6)

	var init initializeResult
	assert.JSONEq(t, "1", string(msgs[0].ID))
	require.NoError(t, json.Unmarshal(msgs[0].Result, &init))
	assert.Equal(t, syncFull, init.Capabilities.TextDocumentSync.Change)
	assert.True(t, init.Capabilities.TextDocumentSync.OpenClose)
	assert.Equal(t, serverInfo{Name: dockerfile.Source, Version: "test"}, init.ServerInfo)

	opened := decodePublish(t, msgs[1])
	assert.Equal(t, testURI, opened.URI)
	require.NotNil(t, opened.Version)
	assert.Equal(t, 1, *opened.Version)
	require.Len(t, opened.Diagnostics, 2)
	found := codes(opened.Diagnostics)
	casing := found[dockerfile.CasingInstruction.String()]
	assert.Equal(t, severityError, casing.Severity)
	assert.Equal(t, document.NewRange(0, 0, 0, 4), casing.Range)
	assert.Equal(t, dockerfile.Source, casing.Source)
	port := found[dockerfile.InvalidPort.String()]
	assert.Equal(t, severityError, port.Severity)
	assert.Equal(t, dockerfile.MessageInvalidPort("80/abc"), port.Message)
	assert.Equal(t, document.NewRange(1, 7, 1, 13), port.Range)

	changed := decodePublish(t, msgs[2])
	require.NotNil(t, changed.Version)
	assert.Equal(t, 2, *changed.Version)
	assert.NotNil(t, changed.Diagnostics)
	assert.Empty(t, changed.Diagnostics)

	assert.JSONEq(t, "2", string(msgs[3].ID))
	require.NotNil(t, msgs[3].Error)
	assert.Equal(t, codeMethodNotFound, msgs[3].Error.Code)

	closed := decodePublish(t, msgs[4])
	assert.Equal(t, testURI, closed.URI)
	assert.Nil(t, closed.Version)
	assert.NotNil(t, closed.Diagnostics)
	assert.Empty(t, closed.Diagnostics)

	assert.JSONEq(t, "3", string(msgs[5].ID))
	assert.Nil(t, msgs[5].Error)
}

func TestExitWithoutShutdown(t *testing.T) {
	var out bytes.Buffer
	server := NewServer(script(t, notification("exit", nil)), &out, Options{})
	assert.ErrorIs(t, server.Run(context.Background()), ErrExitWithoutShutdown)
}

func TestRunStopsAtEndOfInput(t *testing.T) {
	var out bytes.Buffer
	server := NewServer(bytes.NewReader(nil), &out, Options{})
	assert.NoError(t, server.Run(context.Background()))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	server := NewServer(script(t, didOpen("FROM node")), &out, Options{})
	assert.ErrorIs(t, server.Run(ctx), context.Canceled)
	assert.Empty(t, out.Bytes())
}

func TestRunCancelledWhileIdle(t *testing.T) {
	in, writer := io.Pipe()
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	server := NewServer(in, &out, Options{})
	errc := make(chan error, 1)
	go func() { errc <- server.Run(ctx) }()

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Empty(t, out.Bytes())
}

func TestZeroSettingsUseDefaults(t *testing.T) {
	var out bytes.Buffer
	in := script(t, didOpen("FROM node\nrun ls\nMAINTAINER me\n"))
	require.NoError(t, NewServer(in, &out, Options{}).Run(context.Background()))

	msgs := readAll(t, out.Bytes())
	require.Len(t, msgs, 1)
	byCode := codes(decodePublish(t, msgs[0]).Diagnostics)
	require.Len(t, byCode, 2)
	assert.Equal(t, severityWarning, byCode[dockerfile.CasingInstruction.String()].Severity)
	assert.Equal(t, severityWarning, byCode[dockerfile.DeprecatedMaintainer.String()].Severity)
}

func TestParseErrorResponse(t *testing.T) {
	var in bytes.Buffer
	require.NoError(t, writeMessage(&in, []byte("{not json")))
	var out bytes.Buffer
	require.NoError(t, NewServer(&in, &out, Options{}).Run(context.Background()))

	msgs := readAll(t, out.Bytes())
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Error)
	assert.Equal(t, codeParseError, msgs[0].Error.Code)
}

func TestDidChangeConfiguration(t *testing.T) {
	in := script(t,
		didOpen("FROM node\nMAINTAINER me\n"),
		notification("workspace/didChangeConfiguration", map[string]any{"settings": settings("ignore")}),
		notification("workspace/didChangeConfiguration", map[string]any{"settings": settings("loud")}),
		notification("workspace/didChangeConfiguration", map[string]any{"settings": settings("error")}),
	)
	var out bytes.Buffer
	require.NoError(t, NewServer(in, &out, Options{Settings: dockerfile.DefaultSettings()}).Run(context.Background()))

	msgs := readAll(t, out.Bytes())
	require.Len(t, msgs, 3)

	first := decodePublish(t, msgs[0])
	require.Len(t, first.Diagnostics, 1)
	assert.Equal(t, dockerfile.DeprecatedMaintainer.String(), first.Diagnostics[0].Code)
	assert.Equal(t, severityWarning, first.Diagnostics[0].Severity)

	assert.Empty(t, decodePublish(t, msgs[1]).Diagnostics)

	last := decodePublish(t, msgs[2])
	require.Len(t, last.Diagnostics, 1)
	assert.Equal(t, severityError, last.Diagnostics[0].Severity)
}

func TestUnknownInstructionHint(t *testing.T) {
	var out bytes.Buffer
	in := script(t, didOpen("FROM node\nRUNN ls\n"))
	require.NoError(t, NewServer(in, &out, Options{}).Run(context.Background()))

	msgs := readAll(t, out.Bytes())
	require.Len(t, msgs, 1)
	diags := decodePublish(t, msgs[0]).Diagnostics
	require.Len(t, diags, 1)
	assert.Equal(t, dockerfile.UnknownInstruction.String(), diags[0].Code)
	require.NotNil(t, diags[0].Data)
	assert.Equal(t, dockerfile.MessageSuggestion("RUN"), diags[0].Data.Hint)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

type countingLinter struct {
	mu    sync.Mutex
	texts []string
}

func (l *countingLinter) Lint(text string) []dockerfile.Diagnostic {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.texts = append(l.texts, text)
	return nil
}

func TestDebouncedValidation(t *testing.T) {
	out := &lockedBuffer{}
	linter := &countingLinter{}
	server := NewServer(bytes.NewReader(nil), out, Options{
		Debounce:  50 * time.Millisecond,
		NewLinter: func(dockerfile.ValidatorSettings) dockerfile.Linter { return linter },
	})

	open, err := json.Marshal(didOpen("FROM a")["params"])
	require.NoError(t, err)
	change, err := json.Marshal(didChange(2, "FROM b")["params"])
	require.NoError(t, err)

	require.NoError(t, server.handleDidOpen(&rpcMessage{Method: "textDocument/didOpen", Params: open}))
	require.NoError(t, server.handleDidChange(&rpcMessage{Method: "textDocument/didChange", Params: change}))
	assert.Empty(t, out.Bytes())

	require.Eventually(t, func() bool {
		return len(readAll(t, out.Bytes())) > 0
	}, 2*time.Second, 10*time.Millisecond)
	server.stopTimers()

	for _, msg := range readAll(t, out.Bytes()) {
		params := decodePublish(t, msg)
		require.NotNil(t, params.Version)
		assert.Equal(t, 2, *params.Version)
	}

	linter.mu.Lock()
	defer linter.mu.Unlock()
	assert.Contains(t, linter.texts, "FROM b")
	assert.NotContains(t, linter.texts, "FROM a")
}
