package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/todo-chat-demo/domain/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_Success(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Sure thing.  "}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL})
	text, err := c.Complete(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Sure thing.", text)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, DefaultTemperature, got.Temperature)
	assert.Len(t, got.Messages, 2)
}

func TestNewClient_Temperature(t *testing.T) {
	zero := 0.0
	warm := 0.9

	tests := []struct {
		name        string
		temperature *float64
		want        float64
	}{
		{"unset uses default", nil, DefaultTemperature},
		{"zero is kept", &zero, 0},
		{"explicit value", &warm, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got completionRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
			}))
			defer srv.Close()

			c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Temperature: tt.temperature})
			_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})

			require.NoError(t, err)
			assert.InDelta(t, tt.want, got.Temperature, 1e-9)
		})
	}
}

func TestComplete_Failures(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		timeout  time.Duration
		wantKind error
	}{
		{
			name: "upstream error status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
			},
			wantKind: ErrUpstream,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
			wantKind: ErrUpstream,
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[]}`))
			},
			wantKind: ErrEmptyResponse,
		},
		{
			name: "blank content",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"   "}}]}`))
			},
			wantKind: ErrEmptyResponse,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			timeout:  50 * time.Millisecond,
			wantKind: ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Timeout: tt.timeout})
			_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.ErrorIs(t, err, apperror.ErrUpstream)
			assert.Equal(t, tt.wantKind.Error(), Category(err))
		})
	}
}

func TestComplete_MissingCredential(t *testing.T) {
	c := NewClient(Config{APIKey: "   "})
	assert.False(t, c.HasCredential())

	_, err := c.Complete(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Equal(t, "missing credential", Category(err))
}

func TestComplete_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: url})
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})

	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, "transport error", Category(err))
}

func TestCategory_UnknownError(t *testing.T) {
	assert.Equal(t, "upstream error", Category(errors.New("something else")))
}
