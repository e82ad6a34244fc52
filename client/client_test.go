package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innominatus/graphview/errors"
	"github.com/innominatus/graphview/graph"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, "test-token")
	require.NoError(t, err)
	return srv, c
}

func TestFetchGraph(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graph/demo", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{
			"nodes":[{"id":"a","name":"a","type":"spec","status":"active"}],
			"edges":[{"id":"e1","source":"a","target":"b"}]
		}`))
	})

	nodes, edges, err := c.FetchGraph(context.Background(), "demo")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, graph.TypeSpec, nodes[0].Type)
	assert.Len(t, edges, 1)
}

func TestFetchGraphEmptyBodyIsEmptyGraphNotError(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	nodes, edges, err := c.FetchGraph(context.Background(), "demo")
	require.NoError(t, err)
	assert.NotNil(t, nodes)
	assert.NotNil(t, edges)
	assert.Empty(t, nodes)
}

func TestFetchGraphStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusUnauthorized, errors.IsUnauthorizedError},
		{http.StatusForbidden, errors.IsUnauthorizedError},
		{http.StatusNotFound, errors.IsNotFoundError},
	}
	for _, tt := range tests {
		_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		_, _, err := c.FetchGraph(context.Background(), "demo")
		require.Error(t, err, "status %d", tt.status)
		assert.True(t, tt.check(err), "status %d maps to the right sentinel", tt.status)
	}
}

func TestFetchCriticalPath(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graph/demo/critical-path", r.URL.Path)
		w.Write([]byte(`{"path":[{"id":"a","name":"x"},{"id":"b"},{"id":"c"}]}`))
	})

	ids, err := c.FetchCriticalPath(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := c.Export(context.Background(), "demo", "xlsx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestExportPassesFormatQuery(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dot", r.URL.Query().Get("format"))
		w.Write([]byte("digraph {}"))
	})
	data, err := c.Export(context.Background(), "demo", "dot")
	require.NoError(t, err)
	assert.Equal(t, "digraph {}", string(data))
}

func TestFetchHistory(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"history":[{"event":"status_change","node_id":"a","status":"failed"}]}`))
	})
	entries, err := c.FetchHistory(context.Background(), "demo", 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "status_change", entries[0].Event)
}

func TestStreamURL(t *testing.T) {
	c, err := New("http://platform.internal:8080", "tok")
	require.NoError(t, err)
	assert.Equal(t, "ws://platform.internal:8080/graph/demo/ws", c.StreamURL("demo"))

	cs, err := New("https://platform.internal", "tok")
	require.NoError(t, err)
	assert.Equal(t, "wss://platform.internal/graph/my%20app/ws", cs.StreamURL("my app"))
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("file:///tmp/x", "")
	require.Error(t, err)
}
