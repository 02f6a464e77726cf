package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/golambdify/lambdify"
)

func newTestServer(t *testing.T, cfg config) (*server, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := newServer(cfg, logger)
	ts := httptest.NewServer(s.handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func postTool(t *testing.T, url, body string) (int, lambdify.ToolResponse) {
	t.Helper()
	resp, err := http.Post(url+"/tool", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out lambdify.ToolResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestParseFlags(t *testing.T) {
	cfg, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, config{port: 8080, cache: 256}, cfg)

	cfg, err = parseFlags([]string{"-port", "9000", "-cache", "4", "-workers", "3", "-out", "/tmp/x", "-v"})
	require.NoError(t, err)
	assert.Equal(t, config{port: 9000, cache: 4, out: "/tmp/x", workers: 3, verbose: true}, cfg)

	_, err = parseFlags([]string{"-port", "0"})
	assert.Error(t, err)
	_, err = parseFlags([]string{"-nope"})
	assert.Error(t, err)
}

func TestToolEndpoint(t *testing.T) {
	s, ts := newTestServer(t, config{cache: 8, workers: 2})

	tests := []struct {
		name   string
		body   string
		status int
		check  func(t *testing.T, resp lambdify.ToolResponse)
	}{
		{
			name:   "call",
			body:   `{"tool":"lambdify_call","params":{"vars":["x","y"],"expr":"x*y","args":[3,[1,2]]}}`,
			status: http.StatusOK,
			check: func(t *testing.T, resp lambdify.ToolResponse) {
				assert.Empty(t, resp.Error)
				assert.Equal(t, []any{3.0, 6.0}, resp.Result)
				assert.Equal(t, "float64", resp.Backend)
			},
		},
		{
			name:   "tool error",
			body:   `{"tool":"nope"}`,
			status: http.StatusOK,
			check: func(t *testing.T, resp lambdify.ToolResponse) {
				assert.Equal(t, "unknown tool: nope", resp.Error)
			},
		},
		{
			name:   "unknown field",
			body:   `{"tool":"simplify","extra":1}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, resp lambdify.ToolResponse) {
				assert.Contains(t, resp.Error, "extra")
			},
		},
		{
			name:   "trailing data",
			body:   `{"tool":"simplify"} {}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, resp lambdify.ToolResponse) {
				assert.Equal(t, "invalid JSON: trailing data", resp.Error)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := postTool(t, ts.URL, tt.body)
			assert.Equal(t, tt.status, status)
			tt.check(t, resp)
		})
	}

	postTool(t, ts.URL, `{"tool":"lambdify_call","params":{"vars":["x","y"],"expr":"x*y","args":[1,1]}}`)
	assert.Equal(t, 1, s.cache.Len(), "repeated expressions compile once")

	resp, err := http.Get(ts.URL + "/tool")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRenderPersists(t *testing.T) {
	dir := t.TempDir()
	_, ts := newTestServer(t, config{cache: 8, out: dir})

	_, resp := postTool(t, ts.URL, `{"tool":"lambdify_render","params":{"vars":["x"],"expr":"sin(x)^2 + sin(x)","name":"wave"}}`)
	require.Empty(t, resp.Error)
	got, err := os.ReadFile(filepath.Join(dir, "wave.go.txt"))
	require.NoError(t, err)
	assert.Equal(t, resp.String, string(got))
	assert.Contains(t, resp.String, "func wave(args []any, named map[string]any) (any, error) {")
}

func TestSchemaAndHealth(t *testing.T) {
	_, ts := newTestServer(t, config{cache: 8})

	resp, err := http.Get(ts.URL + "/schema")
	require.NoError(t, err)
	defer resp.Body.Close()
	var schema map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&schema))
	assert.Len(t, schema["tools"], 7)

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, 0.0, health["cached"])
}
