package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient(t *testing.T) {
	t.Run("requires endpoint", func(t *testing.T) {
		_, err := NewHTTPClient(Config{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "endpoint is required")
	})

	t.Run("defaults timeout", func(t *testing.T) {
		c, err := NewHTTPClient(Config{Endpoint: "http://localhost:3000/chat"})
		require.NoError(t, err)
		assert.Equal(t, defaultHTTPTimeout, c.client.Timeout)
	})
}

func TestHTTPClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what is \"AM\"?\nexplain", req.Prompt)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"调幅就是 $m(t)$ 控制载波幅度。|||SIM_JSON|||{\"isSimulatable\": false}"}`))
	}))
	defer server.Close()

	c, err := NewHTTPClient(Config{Endpoint: server.URL + "/chat"})
	require.NoError(t, err)

	got, err := c.Complete(context.Background(), "what is \"AM\"?\nexplain")
	require.NoError(t, err)
	assert.Equal(t, `调幅就是 $m(t)$ 控制载波幅度。|||SIM_JSON|||{"isSimulatable": false}`, got)
}

func TestHTTPClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "server error with message",
			status: http.StatusInternalServerError,
			body:   `{"error":"Failed to get response from Gemini"}`,
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, http.StatusInternalServerError, se.Code)
				assert.Equal(t, "Failed to get response from Gemini", se.Message)
			},
		},
		{
			name:   "bad request plain text",
			status: http.StatusBadRequest,
			body:   "nope\n",
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, "nope", se.Message)
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `{"response":`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrBadResponse)
			},
		},
		{
			name:   "missing response field",
			status: http.StatusOK,
			body:   `{"answer":"hi"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrBadResponse)
			},
		},
		{
			name:   "error body with 200",
			status: http.StatusOK,
			body:   `{"error":"quota exceeded"}`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "quota exceeded")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, err := NewHTTPClient(Config{Endpoint: server.URL})
			require.NoError(t, err)

			_, err = c.Complete(context.Background(), "q")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestHTTPClient_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c, err := NewHTTPClient(Config{Endpoint: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, "q")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithTimeout(t *testing.T) {
	slow := Func(func(ctx context.Context, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	_, err := WithTimeout(slow, 10*time.Millisecond).Complete(context.Background(), "q")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	echo := Func(func(ctx context.Context, prompt string) (string, error) { return prompt, nil })
	got, err := WithTimeout(echo, 0).Complete(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "q", got)
}

func TestNew(t *testing.T) {
	inf, err := New(context.Background(), Config{Provider: ProviderHTTP, Endpoint: "http://localhost:3000/chat"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPClient{}, inf)

	_, err = New(context.Background(), Config{Provider: ProviderGemini})
	assert.Error(t, err, "gemini without key")

	_, err = New(context.Background(), Config{Provider: "smoke-signals"})
	assert.Error(t, err)
}
