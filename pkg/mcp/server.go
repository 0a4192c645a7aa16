// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/antimetal/hoststat/pkg/sysinfo"
)

const (
	protocolVersion = "2024-11-05"
	serverName      = "hoststat-mcp"
	serverVersion   = "1.0.0"

	sessionHeader = "Mcp-Session-Id"
)

// Server exposes host metric tools over MCP, either on stdio or on the HTTP /mcp endpoint
type Server struct {
	logger  logr.Logger
	factory SessionFactory

	tools    map[string]ToolHandler
	toolsMux sync.RWMutex

	sessions    map[string]*Session
	sessionsMux sync.RWMutex

	// stdio has a single implicit session
	stdioOnce    sync.Once
	stdioSession *sysinfo.Session
	stdioErr     error

	httpServer *http.Server
}

// Session is an MCP session and the query session its tools read from
type Session struct {
	ID        string
	CreatedAt time.Time
	LastUsed  time.Time
	Info      *sysinfo.Session
}

// NewServer creates a server whose MCP sessions get query sessions from factory
func NewServer(logger logr.Logger, factory SessionFactory) *Server {
	return &Server{
		logger:   logger.WithName("mcp-server"),
		factory:  factory,
		tools:    make(map[string]ToolHandler),
		sessions: make(map[string]*Session),
	}
}

// RegisterTool registers a tool handler with the server
func (s *Server) RegisterTool(handler ToolHandler) {
	s.toolsMux.Lock()
	defer s.toolsMux.Unlock()
	s.tools[handler.Name()] = handler
	s.logger.V(1).Info("registered tool", "name", handler.Name())
}

// Handler returns the HTTP handler serving the /mcp endpoint
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleMCPEndpoint)
	return mux
}

// ListenAndServe starts the MCP HTTP server on the specified address
func (s *Server) ListenAndServe(address string) error {
	s.httpServer = &http.Server{
		Addr:         address,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("MCP HTTP server listening", "address", address, "endpoint", "/mcp")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// ServeStdio reads one JSON-RPC request per line from r and writes responses to w
// until r is exhausted or ctx is done. Notifications get no response.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			resp := s.createErrorResponse(nil, ErrorCodeParseError, "Parse error", nil)
			if err := encoder.Encode(resp); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
			continue
		}
		if isNotification(&req) {
			s.logger.V(2).Info("ignoring notification", "method", req.Method)
			continue
		}

		resp := s.HandleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}
	return nil
}

// HandleRequest processes a request outside HTTP. All such requests share one session.
func (s *Server) HandleRequest(ctx context.Context, req Request) Response {
	s.stdioOnce.Do(func() {
		s.stdioSession, s.stdioErr = s.factory()
	})
	if s.stdioErr != nil {
		return *s.createErrorResponse(req.ID, ErrorCodeNoSession,
			fmt.Sprintf("Failed to create session: %s", s.stdioErr), nil)
	}

	resp := s.handleRequest(WithSession(ctx, s.stdioSession), &req)
	return *resp
}

// handleMCPEndpoint handles HTTP requests to the MCP endpoint
func (s *Server) handleMCPEndpoint(w http.ResponseWriter, r *http.Request) {
	// Reject foreign origins to prevent DNS rebinding
	if origin := r.Header.Get("Origin"); origin != "" {
		if !strings.Contains(origin, "localhost") && !strings.Contains(origin, "127.0.0.1") {
			s.logger.V(1).Info("rejecting request with invalid origin", "origin", origin)
			http.Error(w, "Invalid origin", http.StatusForbidden)
			return
		}
	}

	switch r.Method {
	case http.MethodOptions:
		s.handleOPTIONS(w)
	case http.MethodPost:
		s.handlePOST(w, r)
	case http.MethodGet:
		s.handleGET(w, r)
	case http.MethodDelete:
		s.handleDELETE(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleOPTIONS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Mcp-Session-Id, Accept")
	w.Header().Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusNoContent)
}

// handlePOST handles JSON-RPC requests, creating an MCP session when none is given
func (s *Server) handlePOST(w http.ResponseWriter, r *http.Request) {
	var session *Session
	if sessionID := r.Header.Get(sessionHeader); sessionID == "" {
		created, err := s.createSession()
		if err != nil {
			s.logger.Error(err, "failed to create session")
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}
		session = created
	} else {
		found, ok := s.touchSession(sessionID)
		if !ok {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		session = found
	}
	w.Header().Set(sessionHeader, session.ID)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error(err, "failed to read request body")
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Mcp-Session-Id")
	w.Header().Set("Access-Control-Expose-Headers", sessionHeader)

	ctx := WithSession(r.Context(), session.Info)

	var responses []Response
	if trimmed := strings.TrimSpace(string(body)); strings.HasPrefix(trimmed, "[") {
		var batch []Request
		if err := json.Unmarshal(body, &batch); err != nil {
			s.sendJSONError(w, nil, ErrorCodeParseError, "Invalid JSON batch request", err.Error())
			return
		}
		for i := range batch {
			if isNotification(&batch[i]) {
				continue
			}
			responses = append(responses, *s.handleRequest(ctx, &batch[i]))
		}
	} else {
		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			s.sendJSONError(w, nil, ErrorCodeParseError, "Invalid JSON request", err.Error())
			return
		}
		if isNotification(&req) {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		responses = append(responses, *s.handleRequest(ctx, &req))
	}

	var encodeErr error
	switch len(responses) {
	case 0:
		w.WriteHeader(http.StatusAccepted)
		return
	case 1:
		encodeErr = json.NewEncoder(w).Encode(responses[0])
	default:
		encodeErr = json.NewEncoder(w).Encode(responses)
	}
	if encodeErr != nil {
		s.logger.Error(encodeErr, "failed to write response")
	}
}

// handleGET acknowledges a Server-Sent Events stream. The server never pushes
// messages, so the stream carries only the connection event.
func (s *Server) handleGET(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		http.Error(w, "SSE not supported by client", http.StatusNotAcceptable)
		return
	}

	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		http.Error(w, "Session ID required for SSE", http.StatusBadRequest)
		return
	}
	if _, ok := s.touchSession(sessionID); !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	fmt.Fprintf(w, "data: {\"type\":\"connection\",\"sessionId\":%q}\n\n", sessionID)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// handleDELETE terminates an MCP session and drops its query session
func (s *Server) handleDELETE(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		http.Error(w, "Session ID required", http.StatusBadRequest)
		return
	}

	s.deleteSession(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRequest(ctx context.Context, req *Request) *Response {
	ctx = WithSessionFactory(ctx, s.factory)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "ping":
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{}}
	case "tools/list":
		return s.handleListTools(req)
	case "tools/call":
		return s.handleCallTool(ctx, req)
	case "prompts/list":
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"prompts": []any{}}}
	case "resources/list":
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"resources": []any{}}}
	default:
		return s.createErrorResponse(req.ID, ErrorCodeMethodNotFound,
			fmt.Sprintf("Method not found: %s", req.Method), nil)
	}
}

// handleInitialize answers the MCP handshake with the server capabilities
func (s *Server) handleInitialize(req *Request) *Response {
	result := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{
				"listChanged": false,
			},
			"prompts":   map[string]any{},
			"resources": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    serverName,
			"version": serverVersion,
		},
	}

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}
}

// handleListTools lists registered tools sorted by name
func (s *Server) handleListTools(req *Request) *Response {
	var params ListToolsRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return s.createErrorResponse(req.ID, ErrorCodeInvalidParams, "Invalid parameters", err.Error())
		}
	}

	s.toolsMux.RLock()
	tools := make([]Tool, 0, len(s.tools))
	for _, handler := range s.tools {
		tools = append(tools, Tool{
			Name:        handler.Name(),
			Description: handler.Description(),
			InputSchema: handler.InputSchema(),
		})
	}
	s.toolsMux.RUnlock()

	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  ListToolsResponse{Tools: tools},
	}
}

func (s *Server) handleCallTool(ctx context.Context, req *Request) *Response {
	var params CallToolRequest
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.createErrorResponse(req.ID, ErrorCodeInvalidParams, "Invalid parameters", err.Error())
	}

	s.toolsMux.RLock()
	handler, exists := s.tools[params.Name]
	s.toolsMux.RUnlock()

	if !exists {
		return s.createErrorResponse(req.ID, ErrorCodeToolNotFound,
			fmt.Sprintf("Tool not found: %s", params.Name), nil)
	}
	if _, ok := SessionFromContext(ctx); !ok {
		return s.createErrorResponse(req.ID, ErrorCodeNoSession, "No session bound to request", nil)
	}

	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}
	result, err := handler.Execute(ctx, params.Arguments)
	if err != nil {
		return s.createErrorResponse(req.ID, ErrorCodeToolError,
			fmt.Sprintf("Tool execution failed: %s", err.Error()), nil)
	}

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}
}

func (s *Server) createErrorResponse(id any, code int, message string, data any) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// sendJSONError sends an error response via HTTP
func (s *Server) sendJSONError(w http.ResponseWriter, id any, code int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	resp := s.createErrorResponse(id, code, message, data)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error(err, "failed to send error response")
	}
}

// createSession registers a new MCP session with its own query session
func (s *Server) createSession() (*Session, error) {
	info, err := s.factory()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		LastUsed:  now,
		Info:      info,
	}

	s.sessionsMux.Lock()
	s.sessions[session.ID] = session
	s.sessionsMux.Unlock()

	s.logger.V(1).Info("created session", "sessionId", session.ID)
	return session, nil
}

// touchSession looks up a session and marks it used
func (s *Server) touchSession(sessionID string) (*Session, bool) {
	s.sessionsMux.Lock()
	defer s.sessionsMux.Unlock()

	session, exists := s.sessions[sessionID]
	if exists {
		session.LastUsed = time.Now()
	}
	return session, exists
}

func (s *Server) deleteSession(sessionID string) {
	s.sessionsMux.Lock()
	defer s.sessionsMux.Unlock()

	delete(s.sessions, sessionID)
	s.logger.V(1).Info("deleted session", "sessionId", sessionID)
}

// SessionCount returns the number of live MCP sessions
func (s *Server) SessionCount() int {
	s.sessionsMux.RLock()
	defer s.sessionsMux.RUnlock()
	return len(s.sessions)
}

// CleanupSessions removes sessions idle for longer than maxAge and returns how many were removed
func (s *Server) CleanupSessions(maxAge time.Duration) int {
	s.sessionsMux.Lock()
	defer s.sessionsMux.Unlock()

	removed := 0
	now := time.Now()
	for id, session := range s.sessions {
		if now.Sub(session.LastUsed) > maxAge {
			delete(s.sessions, id)
			removed++
			s.logger.V(1).Info("cleaned up expired session", "sessionId", id)
		}
	}
	return removed
}

// ReapSessions runs CleanupSessions every interval until ctx is done
func (s *Server) ReapSessions(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.CleanupSessions(maxAge); n > 0 {
				s.logger.V(1).Info("reaped idle sessions", "count", n)
			}
		}
	}
}

// isNotification reports whether req expects no response
func isNotification(req *Request) bool {
	return req.ID == nil && strings.HasPrefix(req.Method, "notifications/")
}
