// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build !integration

package mcp_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antimetal/hoststat/pkg/mcp"
	"github.com/antimetal/hoststat/pkg/performance"
	"github.com/antimetal/hoststat/pkg/sysinfo"
)

// recordingTool remembers the query session of every call
type recordingTool struct {
	name string
	mu   sync.Mutex
	seen []*sysinfo.Session
}

func (r *recordingTool) Name() string        { return r.name }
func (r *recordingTool) Description() string { return "records sessions" }
func (r *recordingTool) InputSchema() mcp.ToolSchema {
	return mcp.ToolSchema{Type: "object"}
}

func (r *recordingTool) Execute(ctx context.Context, args map[string]any) (*mcp.CallToolResponse, error) {
	s, _ := mcp.SessionFromContext(ctx)
	r.mu.Lock()
	r.seen = append(r.seen, s)
	r.mu.Unlock()
	if args["fail"] == true {
		return nil, errors.New("asked to fail")
	}
	return mcp.TextResponse("ok"), nil
}

func (r *recordingTool) sessions() []*sysinfo.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*sysinfo.Session(nil), r.seen...)
}

func testFactory(t *testing.T) mcp.SessionFactory {
	procPath := t.TempDir()
	return func() (*sysinfo.Session, error) {
		return sysinfo.NewSession(logr.Discard(), performance.CollectionConfig{HostProcPath: procPath}, sysinfo.Options{})
	}
}

func newTestServer(t *testing.T) (*mcp.Server, *recordingTool) {
	server := mcp.NewServer(logr.Discard(), testFactory(t))
	tool := &recordingTool{name: "record"}
	server.RegisterTool(tool)
	server.RegisterTool(&recordingTool{name: "another"})
	return server, tool
}

func callRequest(id int, tool string, args map[string]any) mcp.Request {
	params, _ := json.Marshal(mcp.CallToolRequest{Name: tool, Arguments: args})
	return mcp.Request{JSONRPC: "2.0", ID: id, Method: "tools/call", Params: params}
}

func TestHandleRequest_Initialize(t *testing.T) {
	server, _ := newTestServer(t)

	resp := server.HandleRequest(context.Background(), mcp.Request{JSONRPC: "2.0", ID: 1, Method: "initialize"})
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2024-11-05", result["protocolVersion"])
	assert.Equal(t, map[string]any{"name": "hoststat-mcp", "version": "1.0.0"}, result["serverInfo"])
}

func TestHandleRequest_ListTools(t *testing.T) {
	server, _ := newTestServer(t)

	resp := server.HandleRequest(context.Background(), mcp.Request{JSONRPC: "2.0", ID: 2, Method: "tools/list"})
	require.Nil(t, resp.Error)

	list, ok := resp.Result.(mcp.ListToolsResponse)
	require.True(t, ok)
	require.Len(t, list.Tools, 2)
	assert.Equal(t, "another", list.Tools[0].Name)
	assert.Equal(t, "record", list.Tools[1].Name)
}

func TestHandleRequest_Errors(t *testing.T) {
	server, _ := newTestServer(t)
	ctx := context.Background()

	resp := server.HandleRequest(ctx, mcp.Request{JSONRPC: "2.0", ID: 3, Method: "bogus"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcp.ErrorCodeMethodNotFound, resp.Error.Code)

	resp = server.HandleRequest(ctx, callRequest(4, "missing", nil))
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcp.ErrorCodeToolNotFound, resp.Error.Code)

	resp = server.HandleRequest(ctx, callRequest(5, "record", map[string]any{"fail": true}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcp.ErrorCodeToolError, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "asked to fail")

	resp = server.HandleRequest(ctx, mcp.Request{JSONRPC: "2.0", ID: 6, Method: "tools/call", Params: json.RawMessage(`"nope"`)})
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcp.ErrorCodeInvalidParams, resp.Error.Code)
}

func TestHandleRequest_SharesOneSession(t *testing.T) {
	server, tool := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp := server.HandleRequest(context.Background(), callRequest(i, "record", nil))
		require.Nil(t, resp.Error)
	}

	seen := tool.sessions()
	require.Len(t, seen, 3)
	require.NotNil(t, seen[0])
	assert.Same(t, seen[0], seen[1])
	assert.Same(t, seen[0], seen[2])
}

func TestHandleRequest_FactoryFailure(t *testing.T) {
	server := mcp.NewServer(logr.Discard(), func() (*sysinfo.Session, error) {
		return nil, errors.New("no procfs")
	})

	resp := server.HandleRequest(context.Background(), mcp.Request{JSONRPC: "2.0", ID: 1, Method: "initialize"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcp.ErrorCodeNoSession, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "no procfs")
}

func TestServeStdio(t *testing.T) {
	server, _ := newTestServer(t)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"record"}}`,
	}, "\n")

	var out bytes.Buffer
	require.NoError(t, server.ServeStdio(context.Background(), strings.NewReader(input), &out))

	var responses []mcp.Response
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var resp mcp.Response
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		responses = append(responses, resp)
	}

	require.Len(t, responses, 3)
	assert.Nil(t, responses[0].Error)
	require.NotNil(t, responses[1].Error)
	assert.Equal(t, mcp.ErrorCodeParseError, responses[1].Error.Code)
	assert.Nil(t, responses[2].Error)
	assert.Equal(t, float64(2), responses[2].ID)
}

func postJSON(t *testing.T, url, sessionID, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHTTP_SessionLifecycle(t *testing.T) {
	server, tool := newTestServer(t)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()
	url := ts.URL + "/mcp"

	const call = `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"record"}}`

	first := postJSON(t, url, "", call)
	require.Equal(t, http.StatusOK, first.StatusCode)
	firstID := first.Header.Get("Mcp-Session-Id")
	_, err := uuid.Parse(firstID)
	require.NoError(t, err)

	var resp mcp.Response
	require.NoError(t, json.NewDecoder(first.Body).Decode(&resp))
	assert.Nil(t, resp.Error)

	again := postJSON(t, url, firstID, call)
	require.Equal(t, http.StatusOK, again.StatusCode)
	assert.Equal(t, firstID, again.Header.Get("Mcp-Session-Id"))

	second := postJSON(t, url, "", call)
	require.Equal(t, http.StatusOK, second.StatusCode)
	assert.NotEqual(t, firstID, second.Header.Get("Mcp-Session-Id"))
	assert.Equal(t, 2, server.SessionCount())

	seen := tool.sessions()
	require.Len(t, seen, 3)
	assert.Same(t, seen[0], seen[1])
	assert.NotSame(t, seen[0], seen[2])

	unknown := postJSON(t, url, uuid.NewString(), call)
	assert.Equal(t, http.StatusNotFound, unknown.StatusCode)

	del, err := http.NewRequest(http.MethodDelete, url, nil)
	require.NoError(t, err)
	del.Header.Set("Mcp-Session-Id", firstID)
	delResp, err := http.DefaultClient.Do(del)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	gone := postJSON(t, url, firstID, call)
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)
	assert.Equal(t, 1, server.SessionCount())
}

func TestHTTP_Batch(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	body := `[{"jsonrpc":"2.0","id":1,"method":"initialize"},
{"jsonrpc":"2.0","method":"notifications/initialized"},
{"jsonrpc":"2.0","id":2,"method":"tools/list"}]`
	resp := postJSON(t, ts.URL+"/mcp", "", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var responses []mcp.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&responses))
	assert.Len(t, responses, 2)
}

func TestHTTP_RejectsForeignOrigin(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/mcp", strings.NewReader(`{}`))
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCleanupSessions(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	postJSON(t, ts.URL+"/mcp", "", `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	postJSON(t, ts.URL+"/mcp", "", `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	require.Equal(t, 2, server.SessionCount())

	assert.Equal(t, 0, server.CleanupSessions(time.Hour))
	assert.Equal(t, 2, server.CleanupSessions(-time.Second))
	assert.Equal(t, 0, server.SessionCount())
}
