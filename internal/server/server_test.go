package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/commlab/internal/remote"
)

func newTestServer(t *testing.T, inf remote.Inferencer) *Server {
	t.Helper()
	srv, err := New(inf, Config{Addr: ":0", AllowedOrigins: []string{"http://localhost:5173"}})
	require.NoError(t, err)
	return srv
}

func echo(prompts *[]string) remote.Inferencer {
	return remote.Func(func(_ context.Context, prompt string) (string, error) {
		*prompts = append(*prompts, prompt)
		return "answer to " + prompt, nil
	})
}

func TestHandleChat_ForwardsPrompt(t *testing.T) {
	var prompts []string
	srv := newTestServer(t, echo(&prompts))

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"prompt":"what is AM"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "answer to what is AM", resp.Response)
	assert.Equal(t, []string{"what is AM"}, prompts)
}

func TestHandleChat_RejectsMissingPrompt(t *testing.T) {
	for _, body := range []string{`{}`, `{"prompt":"  "}`, `not json`, ``} {
		var prompts []string
		srv := newTestServer(t, echo(&prompts))

		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.JSONEq(t, `{"error":"Prompt is required"}`, rec.Body.String())
		assert.Empty(t, prompts, "body %q reached the model", body)
	}
}

func TestHandleChat_UpstreamFailure(t *testing.T) {
	srv := newTestServer(t, remote.Func(func(context.Context, string) (string, error) {
		return "", errors.New("quota exceeded")
	}))

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"prompt":"hi"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to get response from Gemini"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "quota")
}

func TestHandleChat_MethodNotAllowed(t *testing.T) {
	var prompts []string
	srv := newTestServer(t, echo(&prompts))

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"preflight allowed", http.MethodOptions, "http://localhost:5173", http.StatusNoContent, "http://localhost:5173"},
		{"preflight denied", http.MethodOptions, "http://evil.example", http.StatusForbidden, ""},
		{"post allowed", http.MethodPost, "http://localhost:5173", http.StatusOK, "http://localhost:5173"},
		{"post denied", http.MethodPost, "http://evil.example", http.StatusForbidden, ""},
		{"no origin", http.MethodPost, "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var prompts []string
			srv := newTestServer(t, echo(&prompts))

			req := httptest.NewRequest(tt.method, "/chat", strings.NewReader(`{"prompt":"hi"}`))
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.origin != "" {
				assert.Equal(t, "Origin", rec.Header().Get("Vary"))
			}
		})
	}
}

func TestServerRoundTripWithHTTPClient(t *testing.T) {
	var prompts []string
	srv := newTestServer(t, echo(&prompts))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client, err := remote.NewHTTPClient(remote.Config{Endpoint: ts.URL + "/chat"})
	require.NoError(t, err)

	got, err := client.Complete(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "answer to ping", got)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, Config{Addr: ":0"})
	assert.Error(t, err)

	_, err = New(remote.Func(func(context.Context, string) (string, error) { return "", nil }), Config{})
	assert.Error(t, err)
}
