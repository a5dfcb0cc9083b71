package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querypad/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	c, err := New(Config{BaseURL: "http://127.0.0.1:8000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8000", c.BaseURL())

	_, err = New(Config{BaseURL: "127.0.0.1:8000"})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestQuerySendsOnePost(t *testing.T) {
	var calls atomic.Int32
	var gotBody, gotMethod, gotPath, gotType string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		gotBody, gotMethod, gotPath = string(body), r.Method, r.URL.Path
		gotType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"a":1,"b":2}]`)
	})

	rs, err := c.Query(context.Background(), "SELECT 1")
	require.NoError(t, err)

	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/query", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, `{"query":"SELECT 1"}`, gotBody)

	require.Len(t, rs, 1)
	assert.Equal(t, []string{"a", "b"}, rs[0].Keys())
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{
			name:    "api error",
			status:  http.StatusInternalServerError,
			body:    `{"error":"relation \"nope\" does not exist"}`,
			wantErr: ErrStatus,
			wantMsg: `relation "nope" does not exist`,
		},
		{
			name:    "bad request without body",
			status:  http.StatusBadRequest,
			wantErr: ErrStatus,
			wantMsg: "400 Bad Request",
		},
		{
			name:    "object instead of rows",
			status:  http.StatusOK,
			body:    `{"message":"Query executed successfully"}`,
			wantErr: model.ErrNotArray,
		},
		{
			name:    "malformed json",
			status:  http.StatusOK,
			body:    `[{"a":`,
			wantMsg: "decode",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})

			rs, err := c.Query(context.Background(), "SELECT nope")
			require.Error(t, err)
			assert.Nil(t, rs)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			if tc.wantMsg != "" {
				assert.Contains(t, err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestQueryTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url})
	require.NoError(t, err)

	_, err = c.Query(context.Background(), "SELECT 1")
	assert.Error(t, err)
}

func TestQueryRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, Retries: 1, Timeout: 5 * time.Second})
	require.NoError(t, err)

	rs, err := c.Query(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Empty(t, rs)
	assert.EqualValues(t, 2, calls.Load())
}

func TestQueryDoesNotRetryServerErrors(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusTooManyRequests} {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":"relation \"x\" does not exist"}`)
		}))

		c, err := New(Config{BaseURL: srv.URL, Retries: 3, Timeout: 5 * time.Second})
		require.NoError(t, err)

		_, err = c.Query(context.Background(), "INSERT INTO x VALUES (1)")
		assert.ErrorIs(t, err, ErrStatus, status)
		assert.EqualValues(t, 1, calls.Load(), status)
		srv.Close()
	}
}

func TestQueryRetriesConnectionErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, Retries: 1, Timeout: 5 * time.Second})
	require.NoError(t, err)

	retry, err := retryPolicy(context.Background(), nil, errors.New("dial tcp: connection refused"))
	assert.True(t, retry)
	assert.NoError(t, err)

	_, err = c.Query(context.Background(), "SELECT 1")
	assert.Error(t, err)
}

func TestQueryCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGreeting(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/", r.URL.Path)
		_, _ = io.WriteString(w, `{"message":"Backend is running!"}`)
	})

	msg, err := c.Greeting(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Backend is running!", msg)
}

func TestTables(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tables", r.URL.Path)
		assert.Equal(t, "reporting", r.URL.Query().Get("schema"))
		_, _ = io.WriteString(w, `{"tables":["devices","patients"]}`)
	})

	tables, err := c.Tables(context.Background(), "reporting")
	require.NoError(t, err)
	assert.Equal(t, []string{"devices", "patients"}, tables)
}
