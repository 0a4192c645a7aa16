// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package mcp

import (
	"context"
	"encoding/json"

	"github.com/antimetal/hoststat/pkg/sysinfo"
)

// JSON-RPC 2.0 envelope used by the Model Context Protocol

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Tool describes a tool in a tools/list response
type Tool struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	InputSchema ToolSchema `json:"inputSchema"`
}

// ToolSchema is the JSON schema of a tool's arguments
type ToolSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]PropertySchema `json:"properties,omitempty"`
	Required   []string                  `json:"required,omitempty"`
}

type PropertySchema struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Default     any      `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Items       *Items   `json:"items,omitempty"`
}

// Items types the elements of an array property
type Items struct {
	Type string `json:"type"`
}

type ListToolsRequest struct {
	Cursor string `json:"cursor,omitempty"`
}

type ListToolsResponse struct {
	Tools      []Tool  `json:"tools"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

type CallToolRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

type CallToolResponse struct {
	Content []ToolResult `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

type ToolResult struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Data any    `json:"data,omitempty"`
}

// TextResponse wraps text into a single-item tool response
func TextResponse(text string) *CallToolResponse {
	return &CallToolResponse{
		Content: []ToolResult{{Type: "text", Text: text}},
	}
}

// ToolHandler executes one tool. The sysinfo.Session of the calling MCP session is
// available through SessionFromContext.
type ToolHandler interface {
	Name() string
	Description() string
	InputSchema() ToolSchema
	Execute(ctx context.Context, args map[string]any) (*CallToolResponse, error)
}

// SessionFactory builds the query session bound to a new MCP session
type SessionFactory func() (*sysinfo.Session, error)

type sessionKey struct{}

type factoryKey struct{}

// WithSession returns a context carrying the query session of the caller
func WithSession(ctx context.Context, s *sysinfo.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the query session stored by WithSession
func SessionFromContext(ctx context.Context) (*sysinfo.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*sysinfo.Session)
	return s, ok && s != nil
}

// WithSessionFactory returns a context carrying the factory used for fresh sessions
func WithSessionFactory(ctx context.Context, f SessionFactory) context.Context {
	return context.WithValue(ctx, factoryKey{}, f)
}

// SessionFactoryFromContext returns the factory stored by WithSessionFactory
func SessionFactoryFromContext(ctx context.Context) (SessionFactory, bool) {
	f, ok := ctx.Value(factoryKey{}).(SessionFactory)
	return f, ok && f != nil
}

// JSON-RPC and MCP error codes
const (
	ErrorCodeParseError     = -32700
	ErrorCodeInvalidRequest = -32600
	ErrorCodeMethodNotFound = -32601
	ErrorCodeInvalidParams  = -32602
	ErrorCodeInternalError  = -32603
	ErrorCodeToolNotFound   = -32000
	ErrorCodeToolError      = -32001
	ErrorCodeNoSession      = -32002
)
