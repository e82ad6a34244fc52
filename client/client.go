// Package client is the REST client for the platform graph API.
//
// It covers the read surface the graph view consumes: the snapshot fetch,
// the critical path, server-side exports, and the auxiliary history,
// annotations, and metrics endpoints. Authentication is a bearer token on
// every request; the streaming endpoint is handled separately by the sync
// package.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/innominatus/graphview/errors"
	"github.com/innominatus/graphview/graph"
	"github.com/innominatus/graphview/internal/httpclient"
	"github.com/innominatus/graphview/logger"
)

// maxResponseSize bounds response bodies (16MB covers large graphs).
const maxResponseSize = 16 * 1024 * 1024

// ServerFormats lists the export formats rendered by the server.
var ServerFormats = []string{"json", "svg", "png", "dot", "mermaid"}

// Client talks to one platform API server.
type Client struct {
	baseURL string
	token   string
	http    *httpclient.SaferClient
	log     *zap.SugaredLogger
}

// New creates a client for the given base URL. The token may be empty for
// unauthenticated development servers.
func New(baseURL, token string) (*Client, error) {
	hc := httpclient.New(30 * time.Second)
	if err := hc.ValidateURL(baseURL); err != nil {
		return nil, errors.Wrap(err, "invalid server URL")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    hc,
		log:     logger.Named("client"),
	}, nil
}

// StreamURL returns the WebSocket endpoint for an application's live graph.
// http(s) schemes are rewritten to ws(s); the token travels as a query
// parameter, appended by the dialer.
func (c *Client) StreamURL(app string) string {
	wsBase := c.baseURL
	switch {
	case strings.HasPrefix(wsBase, "https://"):
		wsBase = "wss://" + strings.TrimPrefix(wsBase, "https://")
	case strings.HasPrefix(wsBase, "http://"):
		wsBase = "ws://" + strings.TrimPrefix(wsBase, "http://")
	}
	return fmt.Sprintf("%s/graph/%s/ws", wsBase, url.PathEscape(app))
}

// Token returns the bearer token for the stream dialer.
func (c *Client) Token() string {
	return c.token
}

// graphResponse is the snapshot fetch payload.
type graphResponse struct {
	Nodes []graph.Node `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// FetchGraph retrieves the current snapshot for an application. An empty
// graph is a successful, distinct outcome from any error.
func (c *Client) FetchGraph(ctx context.Context, app string) ([]graph.Node, []graph.Edge, error) {
	var resp graphResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/graph/%s", url.PathEscape(app)), &resp); err != nil {
		return nil, nil, err
	}
	if resp.Nodes == nil {
		resp.Nodes = []graph.Node{}
	}
	if resp.Edges == nil {
		resp.Edges = []graph.Edge{}
	}
	c.log.Debugw("Fetched graph snapshot",
		"app", app,
		"nodes", len(resp.Nodes),
		"edges", len(resp.Edges),
	)
	return resp.Nodes, resp.Edges, nil
}

// criticalPathResponse wraps the ordered node list of the critical path.
type criticalPathResponse struct {
	Path []struct {
		ID string `json:"id"`
	} `json:"path"`
}

// FetchCriticalPath retrieves the server-computed critical path as an
// ordered node-id list. It is an overlay set only; the client never
// recomputes it.
func (c *Client) FetchCriticalPath(ctx context.Context, app string) ([]string, error) {
	var resp criticalPathResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/graph/%s/critical-path", url.PathEscape(app)), &resp); err != nil {
		return nil, err
	}
	ids := make([]string, len(resp.Path))
	for i, p := range resp.Path {
		ids[i] = p.ID
	}
	return ids, nil
}

// Export downloads a server-rendered export of the graph.
func (c *Client) Export(ctx context.Context, app, format string) ([]byte, error) {
	known := false
	for _, f := range ServerFormats {
		if f == format {
			known = true
			break
		}
	}
	if !known {
		return nil, errors.NewInvalidRequestError("unknown export format %q", format)
	}
	path := fmt.Sprintf("/graph/%s/export?format=%s", url.PathEscape(app), url.QueryEscape(format))
	return c.getRaw(ctx, path)
}

// HistoryEntry is one graph-affecting event from the history endpoint.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	NodeID    string    `json:"node_id,omitempty"`
	Status    string    `json:"status,omitempty"`
}

// FetchHistory retrieves up to limit recent graph events.
func (c *Client) FetchHistory(ctx context.Context, app string, limit int) ([]HistoryEntry, error) {
	var resp struct {
		History []HistoryEntry `json:"history"`
	}
	path := fmt.Sprintf("/graph/%s/history?limit=%d", url.PathEscape(app), limit)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.History, nil
}

// Annotation is a user note attached to the graph.
type Annotation struct {
	ID        string    `json:"id"`
	NodeID    string    `json:"node_id,omitempty"`
	Text      string    `json:"text"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FetchAnnotations retrieves graph annotations for the side panel.
func (c *Client) FetchAnnotations(ctx context.Context, app string) ([]Annotation, error) {
	var resp struct {
		Annotations []Annotation `json:"annotations"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/graph/%s/annotations", url.PathEscape(app)), &resp); err != nil {
		return nil, err
	}
	return resp.Annotations, nil
}

// FetchMetrics retrieves the graph metrics document as raw JSON for the
// side panel; the client does not interpret it.
func (c *Client) FetchMetrics(ctx context.Context, app string) (json.RawMessage, error) {
	return c.getRaw(ctx, fmt.Sprintf("/graph/%s/metrics", url.PathEscape(app)))
}

// getJSON issues a GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	data, err := c.getRaw(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decoding response from %s", path)
	}
	return nil
}

// getRaw issues a GET and returns the body, mapping non-2xx statuses onto
// sentinel errors.
func (c *Client) getRaw(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "requesting %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrapf(err, "reading response from %s", path)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.Wrapf(errors.ErrUnauthorized, "%s returned %d", path, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Wrapf(errors.ErrNotFound, "%s returned 404", path)
	default:
		return nil, errors.Newf("%s returned unexpected status %d", path, resp.StatusCode)
	}
}
