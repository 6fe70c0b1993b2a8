// Package lsp serves Dockerfile diagnostics over the Language Server Protocol.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/shmocker/dockerfile-lsp/internal/logging"
	"github.com/shmocker/dockerfile-lsp/pkg/dockerfile"
)

// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
var ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")

// LinterFactory builds a linter for a set of validator settings.
type LinterFactory func(settings dockerfile.ValidatorSettings) dockerfile.Linter

// Options configures the server.
type Options struct {
	// Settings are the initial validator settings. Clients may override them
	// through initializationOptions or workspace/didChangeConfiguration.
	Settings dockerfile.ValidatorSettings

	// Debounce delays validation after open and change. Zero validates
	// before the notification handler returns.
	Debounce time.Duration

	// NewLinter defaults to dockerfile.NewValidator.
	NewLinter LinterFactory

	Logger  *slog.Logger
	Version string
}

type openDocument struct {
	text    string
	version int
}

// Server handles stdio JSON-RPC for Dockerfile documents.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex

	mu                sync.Mutex
	docs              map[string]*openDocument
	timers            map[string]*time.Timer
	settings          dockerfile.ValidatorSettings
	linter            dockerfile.Linter
	shutdownRequested bool

	newLinter LinterFactory
	debounce  time.Duration
	logger    *slog.Logger
	version   string
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts Options) *Server {
	newLinter := opts.NewLinter
	if newLinter == nil {
		newLinter = func(settings dockerfile.ValidatorSettings) dockerfile.Linter {
			return dockerfile.NewValidator(settings)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	settings := opts.Settings.WithDefaults()
	return &Server{
		in:        bufio.NewReader(in),
		out:       bufio.NewWriter(out),
		docs:      make(map[string]*openDocument),
		timers:    make(map[string]*time.Timer),
		settings:  settings,
		linter:    newLinter(settings),
		newLinter: newLinter,
		debounce:  opts.Debounce,
		logger:    logger,
		version:   opts.Version,
	}
}

// Run serves requests until the client sends "exit", the input ends or ctx
// is cancelled. An exit after shutdown returns nil.
func (s *Server) Run(ctx context.Context) error {
	defer s.stopTimers()
	done := make(chan struct{})
	defer close(done)
	messages := s.readMessages(done)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var next readResult
		select {
		case <-ctx.Done():
			return ctx.Err()
		case next = <-messages:
		}
		payload, err := next.payload, next.err
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Warn("failed to parse message", "error", err)
			if sendErr := s.sendError(json.RawMessage("null"), codeParseError, "parse error"); sendErr != nil {
				return sendErr
			}
			continue
		}
		if msg.Method == "" {
			continue
		}
		if msg.Method == "exit" {
			s.mu.Lock()
			clean := s.shutdownRequested
			s.mu.Unlock()
			if clean {
				return nil
			}
			return ErrExitWithoutShutdown
		}
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

type readResult struct {
	payload []byte
	err     error
}

// readMessages reads framed messages until the first error. A read blocked
// on input outlives Run; its result is dropped once done is closed.
func (s *Server) readMessages(done <-chan struct{}) <-chan readResult {
	results := make(chan readResult)
	go func() {
		for {
			payload, err := readMessage(s.in)
			select {
			case results <- readResult{payload: payload, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return results
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	s.logger.Debug("message received", "method", msg.Method)
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found: "+msg.Method)
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	s.applySettings(params.InitializationOptions)

	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    syncFull,
			},
		},
		ServerInfo: serverInfo{Name: dockerfile.Source, Version: s.version},
	}
	return s.sendResponse(msg.ID, result)
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	s.stopTimers()
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logger.Warn("invalid didOpen params", "error", err)
		return nil
	}
	uri := params.TextDocument.URI
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	s.docs[uri] = &openDocument{text: params.TextDocument.Text, version: params.TextDocument.Version}
	s.mu.Unlock()
	return s.schedule(uri)
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logger.Warn("invalid didChange params", "error", err)
		return nil
	}
	uri := params.TextDocument.URI
	if uri == "" || len(params.ContentChanges) == 0 {
		return nil
	}
	// Full sync: the last change carries the whole document.
	text := params.ContentChanges[len(params.ContentChanges)-1].Text

	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		doc = &openDocument{}
		s.docs[uri] = doc
	}
	doc.text = text
	doc.version = params.TextDocument.Version
	s.mu.Unlock()
	return s.schedule(uri)
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logger.Warn("invalid didClose params", "error", err)
		return nil
	}
	uri := params.TextDocument.URI
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	delete(s.docs, uri)
	if timer, ok := s.timers[uri]; ok {
		timer.Stop()
		delete(s.timers, uri)
	}
	s.mu.Unlock()
	return s.sendPublish(uri, nil, nil)
}

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	if len(msg.Params) == 0 {
		return nil
	}
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logger.Warn("invalid configuration params", "error", err)
		return nil
	}
	if !s.applySettings(params.Settings) {
		return nil
	}

	s.mu.Lock()
	uris := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	s.mu.Unlock()
	for _, uri := range uris {
		if err := s.schedule(uri); err != nil {
			return err
		}
	}
	return nil
}

// applySettings merges client settings and reports whether anything changed.
// Unknown severity names are logged and ignored.
func (s *Server) applySettings(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var parsed lspSettings
	if err := json.Unmarshal(raw, &parsed); err != nil {
		s.logger.Warn("invalid settings", "error", err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	settings := s.settings
	diags := parsed.Dockerfile.Diagnostics
	s.mergeSeverity(&settings.DeprecatedMaintainer, "deprecatedMaintainer", diags.DeprecatedMaintainer)
	s.mergeSeverity(&settings.InstructionCasing, "instructionCasing", diags.InstructionCasing)
	settings = settings.WithDefaults()
	if settings == s.settings {
		return false
	}
	s.settings = settings
	s.linter = s.newLinter(settings)
	s.logger.Info("settings updated",
		"deprecatedMaintainer", settings.DeprecatedMaintainer,
		"instructionCasing", settings.InstructionCasing)
	return true
}

func (s *Server) mergeSeverity(dst *dockerfile.Severity, name string, value *string) {
	if value == nil {
		return
	}
	severity, err := dockerfile.ParseSeverity(*value)
	if err != nil {
		s.logger.Warn("ignoring setting", "setting", name, "error", err)
		return
	}
	*dst = severity
}

func (s *Server) schedule(uri string) error {
	if s.debounce <= 0 {
		return s.validate(uri)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[uri]; ok {
		timer.Stop()
	}
	s.timers[uri] = time.AfterFunc(s.debounce, func() {
		if err := s.validate(uri); err != nil {
			s.logger.Error("failed to publish diagnostics", "uri", uri, "error", err)
		}
	})
	return nil
}

// validate lints the current text of uri from scratch and publishes the
// result unless the document changed or closed in the meantime.
func (s *Server) validate(uri string) error {
	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	text, version, linter := doc.text, doc.version, s.linter
	s.mu.Unlock()

	diags := linter.Lint(text)

	s.mu.Lock()
	current, ok := s.docs[uri]
	stale := !ok || current.version != version || current.text != text
	s.mu.Unlock()
	if stale {
		return nil
	}
	s.logger.Debug("validated", "uri", uri, "version", version, "diagnostics", len(diags))
	return s.sendPublish(uri, &version, diags)
}

func (s *Server) stopTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for uri, timer := range s.timers {
		timer.Stop()
		delete(s.timers, uri)
	}
}

func toLSPDiagnostics(diags []dockerfile.Diagnostic) []lspDiagnostic {
	list := make([]lspDiagnostic, 0, len(diags))
	for _, d := range diags {
		severity := severityWarning
		if d.Severity == dockerfile.SeverityError {
			severity = severityError
		}
		out := lspDiagnostic{
			Range:    d.Range,
			Severity: severity,
			Code:     d.Code.String(),
			Source:   d.Source,
			Message:  d.Message,
		}
		if d.Hint != "" {
			out.Data = &diagnosticData{Hint: d.Hint}
		}
		list = append(list, out)
	}
	return list
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   rpcError{Code: code, Message: message},
	}
	return s.send(msg)
}

func (s *Server) sendPublish(uri string, version *int, diags []dockerfile.Diagnostic) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  "textDocument/publishDiagnostics",
		"params": publishDiagnosticsParams{
			URI:         uri,
			Version:     version,
			Diagnostics: toLSPDiagnostics(diags),
		},
	}
	return s.send(msg)
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to encode message")
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return errors.Wrap(s.out.Flush(), "failed to flush output")
}
