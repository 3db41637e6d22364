package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/leapstack-labs/pgcheck/internal/config"
	starctx "github.com/leapstack-labs/pgcheck/internal/starlark"
	"github.com/leapstack-labs/pgcheck/internal/workspace"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// Source is the source of every published diagnostic.
const Source = "pgcheck"

// ErrExitWithoutShutdown is returned by Run when the client sent exit
// without a shutdown request first.
var ErrExitWithoutShutdown = errors.New("exit received before shutdown")

// Server implements the Language Server Protocol for pgcheck.
type Server struct {
	// Document management
	documents *DocumentStore

	// Analysis results of open documents, for hover and code actions.
	results   map[string]*workspace.Result
	resultsMu sync.RWMutex

	// Project context
	projectRoot string
	initialized bool
	wsMu        sync.RWMutex
	ws          *workspace.Workspace
	// configMessages are shown once the client is initialized.
	configMessages []ShowMessageParams

	ctx    context.Context
	cancel context.CancelFunc

	// I/O
	reader  *bufio.Reader
	writer  io.Writer
	writeMu sync.Mutex

	// Logging
	logger *slog.Logger

	// Shutdown state
	shutdown bool
	exited   bool
}

// NewServer creates a new LSP server instance.
func NewServer(reader io.Reader, writer io.Writer) *Server {
	return NewServerWithLogger(reader, writer, nil)
}

// NewServerWithLogger creates a new LSP server instance with a custom logger.
func NewServerWithLogger(reader io.Reader, writer io.Writer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		documents: NewDocumentStore(),
		results:   make(map[string]*workspace.Result),
		reader:    bufio.NewReader(reader),
		writer:    writer,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Run starts the server's main loop, processing JSON-RPC messages until
// the client sends exit or closes the input.
func (s *Server) Run() error {
	s.logger.Info("pgcheck LSP server starting...")
	defer s.cancel()

	for !s.exited {
		// Read message
		msg, err := s.readMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Info("Client disconnected")
				return nil
			}
			s.logger.Error("Error reading message", "error", err)
			continue
		}

		// Handle message
		if err := s.handleMessage(msg); err != nil {
			s.logger.Error("Error handling message", "method", msg.Method, "error", err)
		}
	}

	if !s.shutdown {
		return ErrExitWithoutShutdown
	}
	return nil
}

// JSONRPCMessage represents a JSON-RPC 2.0 message.
type JSONRPCMessage struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *JSONRPCError    `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// readMessage reads a JSON-RPC message from the input stream.
func (s *Server) readMessage() (*JSONRPCMessage, error) {
	// Read headers
	var contentLength int
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break // End of headers
		}

		name, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			contentLength, err = strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %w", err)
			}
		}
	}

	if contentLength <= 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	// Read body
	body := make([]byte, contentLength)
	if _, err := io.ReadFull(s.reader, body); err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}

	// Parse message
	var msg JSONRPCMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}

	return &msg, nil
}

// sendResponse sends a JSON-RPC response. A nil result is sent as null.
func (s *Server) sendResponse(id *json.RawMessage, result any, err *JSONRPCError) {
	msg := JSONRPCMessage{
		JSONRPC: "2.0",
		ID:      id,
	}

	if err != nil {
		msg.Error = err
	} else {
		resultBytes, _ := json.Marshal(result)
		msg.Result = resultBytes
	}

	s.writeMessage(&msg)
}

// sendNotification sends a JSON-RPC notification (no ID).
func (s *Server) sendNotification(method string, params any) {
	msg := JSONRPCMessage{
		JSONRPC: "2.0",
		Method:  method,
	}

	if params != nil {
		paramsBytes, _ := json.Marshal(params)
		msg.Params = paramsBytes
	}

	s.writeMessage(&msg)
}

// writeMessage writes a JSON-RPC message to the output stream.
func (s *Server) writeMessage(msg *JSONRPCMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	body, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Error marshaling message", "error", err)
		return
	}

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	_, _ = s.writer.Write([]byte(header))
	_, _ = s.writer.Write(body)
}

// handleMessage dispatches a message to the appropriate handler.
func (s *Server) handleMessage(msg *JSONRPCMessage) error {
	s.logger.Debug("Received", "method", msg.Method)

	if s.shutdown && msg.Method != "exit" {
		if msg.ID != nil {
			s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidRequest, Message: "server is shutting down"})
		}
		return nil
	}

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return s.handleInitialized(msg)
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		return s.handleExit(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/hover":
		return s.handleHover(msg)
	case "textDocument/codeAction":
		return s.handleCodeAction(msg)
	default:
		if msg.ID != nil {
			// Unknown method with ID - respond with method not found
			s.sendResponse(msg.ID, nil, &JSONRPCError{
				Code:    codeMethodNotFound,
				Message: "Method not found: " + msg.Method,
			})
		}
		return nil
	}
}

// invalidParams answers a request whose params failed to decode.
func (s *Server) invalidParams(msg *JSONRPCMessage, err error) error {
	s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
	return err
}

// --- Lifecycle handlers ---

func (s *Server) handleInitialize(msg *JSONRPCMessage) error {
	var params InitializeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.invalidParams(msg, err)
	}

	s.projectRoot = initialRoot(params)
	s.logger.Info("Project root", "path", s.projectRoot)
	s.loadWorkspace()

	result := InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: &TextDocumentSyncOptions{
				OpenClose: true,
				Change:    TextDocumentSyncKindFull,
				Save: &SaveOptions{
					IncludeText: true,
				},
			},
			HoverProvider: true,
			CodeActionProvider: &CodeActionOptions{
				CodeActionKinds: []CodeActionKind{CodeActionKindQuickFix},
			},
		},
		ServerInfo: &ServerInfo{Name: Source},
	}

	s.sendResponse(msg.ID, result, nil)
	return nil
}

// initialRoot picks the directory holding pgcheck.yaml at or above the
// client's root, falling back to the client's root and then the working
// directory.
func initialRoot(params InitializeParams) string {
	root := URIToPath(params.RootURI)
	if root == "" && len(params.WorkspaceFolders) > 0 {
		root = URIToPath(params.WorkspaceFolders[0].URI)
	}
	if root == "" {
		root = params.RootPath
	}
	if root == "" {
		root, _ = os.Getwd()
	}
	if found := config.FindProjectRoot(root); found != "" {
		return found
	}
	return root
}

// loadWorkspace builds the workspace from the project configuration.
// Problems become messages shown after initialization.
func (s *Server) loadWorkspace() {
	var messages []ShowMessageParams

	cfg, err := config.LoadFromDir(s.projectRoot)
	if err != nil {
		messages = append(messages, ShowMessageParams{
			Type:    MessageTypeError,
			Message: fmt.Sprintf("pgcheck: %v. Using the default configuration.", err),
		})
		cfg = nil
	}

	ws, err := config.NewWorkspace(cfg, s.projectRoot, s.logger)
	if err != nil {
		messages = append(messages, ShowMessageParams{
			Type:    MessageTypeError,
			Message: fmt.Sprintf("pgcheck: %v. Using the default configuration.", err),
		})
		ws, err = config.NewWorkspace(nil, s.projectRoot, s.logger)
		if err != nil {
			// Defaults always build; keep serving without a workspace otherwise.
			s.logger.Error("Failed to build default workspace", "error", err)
		}
	}

	if ws != nil {
		for _, d := range ws.ConfigDiagnostics() {
			messages = append(messages, ShowMessageParams{
				Type:    messageType(d.Severity),
				Message: "pgcheck: " + d.Message,
			})
		}
	}

	s.wsMu.Lock()
	s.ws = ws
	s.configMessages = messages
	s.wsMu.Unlock()
}

func (s *Server) workspace() *workspace.Workspace {
	s.wsMu.RLock()
	defer s.wsMu.RUnlock()
	return s.ws
}

func messageType(sev lint.Severity) MessageType {
	switch sev {
	case lint.SeverityError:
		return MessageTypeError
	case lint.SeverityWarning:
		return MessageTypeWarning
	default:
		return MessageTypeInfo
	}
}

func (s *Server) handleInitialized(_ *JSONRPCMessage) error {
	s.initialized = true
	s.logger.Info("Server initialized")
	s.showConfigMessages()
	return nil
}

// showConfigMessages sends pending configuration messages once.
func (s *Server) showConfigMessages() {
	s.wsMu.Lock()
	messages := s.configMessages
	s.configMessages = nil
	s.wsMu.Unlock()

	for i := range messages {
		s.sendNotification("window/showMessage", &messages[i])
	}
}

func (s *Server) handleShutdown(msg *JSONRPCMessage) error {
	s.shutdown = true
	s.cancel()
	s.sendResponse(msg.ID, nil, nil)
	s.logger.Info("Server shutdown")
	return nil
}

func (s *Server) handleExit(_ *JSONRPCMessage) error {
	s.logger.Info("Server exit")
	s.exited = true
	return nil
}

// --- Document handlers ---

func (s *Server) handleDidOpen(msg *JSONRPCMessage) error {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	s.documents.Open(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
	s.logger.Info("Opened", "uri", params.TextDocument.URI)

	s.publishDiagnostics(params.TextDocument.URI)
	return nil
}

func (s *Server) handleDidClose(msg *JSONRPCMessage) error {
	var params DidCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	uri := params.TextDocument.URI
	s.documents.Close(uri)
	s.forgetResult(uri)
	s.logger.Info("Closed", "uri", uri)

	// Clear diagnostics
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []Diagnostic{},
	})

	return nil
}

func (s *Server) handleDidChange(msg *JSONRPCMessage) error {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	// We use full sync, so take the last change
	if len(params.ContentChanges) > 0 {
		lastChange := params.ContentChanges[len(params.ContentChanges)-1]
		s.documents.Update(params.TextDocument.URI, lastChange.Text, params.TextDocument.Version)
	}

	s.publishDiagnostics(params.TextDocument.URI)
	return nil
}

func (s *Server) handleDidSave(msg *JSONRPCMessage) error {
	var params DidSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	uri := params.TextDocument.URI
	path := URIToPath(uri)
	s.logger.Info("Saved", "path", path)

	// Configuration and custom rules change what every document reports.
	if isProjectFile(path) {
		s.loadWorkspace()
		if s.initialized {
			s.showConfigMessages()
		}
		for _, open := range s.documents.List() {
			s.publishDiagnostics(open)
		}
		return nil
	}

	if doc := s.documents.Get(uri); doc != nil && params.Text != nil && *params.Text != doc.Content {
		s.documents.Update(uri, *params.Text, doc.Version)
	}
	s.publishDiagnostics(uri)
	return nil
}

func isProjectFile(path string) bool {
	base := filepath.Base(path)
	return base == config.ConfigFileName || base == config.ConfigFileNameAlt ||
		filepath.Ext(path) == starctx.Extension
}

// --- Analysis results ---

func (s *Server) storeResult(uri string, res *workspace.Result) {
	s.resultsMu.Lock()
	defer s.resultsMu.Unlock()
	s.results[uri] = res
}

func (s *Server) result(uri string) *workspace.Result {
	s.resultsMu.RLock()
	defer s.resultsMu.RUnlock()
	return s.results[uri]
}

func (s *Server) forgetResult(uri string) {
	s.resultsMu.Lock()
	defer s.resultsMu.Unlock()
	delete(s.results, uri)
}
