package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innominatus/graphview/errors"
	"github.com/innominatus/graphview/graph"
)

// fakeConn is a channel-backed Conn for tests.
type fakeConn struct {
	msgs chan []byte
	done chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		msgs: make(chan []byte, 16),
		done: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.msgs:
		return data, nil
	case <-c.done:
		return nil, errors.New("connection closed")
	}
}

func (c *fakeConn) Close() error {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	return nil
}

// fetcherFunc adapts a function to SnapshotFetcher.
type fetcherFunc func(ctx context.Context, app string) ([]graph.Node, []graph.Edge, error)

func (f fetcherFunc) FetchGraph(ctx context.Context, app string) ([]graph.Node, []graph.Edge, error) {
	return f(ctx, app)
}

func baseNodes() []graph.Node {
	return []graph.Node{
		{ID: "spec-demo", Name: "demo", Type: graph.TypeSpec, Status: "active"},
		{ID: "wf-deploy", Name: "deploy", Type: graph.TypeWorkflow, Status: "running"},
	}
}

func baseEdges() []graph.Edge {
	return []graph.Edge{{ID: "e1", Source: "spec-demo", Target: "wf-deploy", Relationship: "contains"}}
}

func staticFetcher() SnapshotFetcher {
	return fetcherFunc(func(ctx context.Context, app string) ([]graph.Node, []graph.Edge, error) {
		return baseNodes(), baseEdges(), nil
	})
}

// startSynchronizer runs a synchronizer against a fake conn and returns it
// with a cleanup-registered cancel.
func startSynchronizer(t *testing.T, fetcher SnapshotFetcher, conn *fakeConn) *Synchronizer {
	t.Helper()
	s, err := New(Options{
		App:     "demo",
		Fetcher: fetcher,
		Dial: func(ctx context.Context, wsURL string) (Conn, error) {
			return conn, nil
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)
	return s
}

func waitForGeneration(t *testing.T, s *Synchronizer, gen uint64) *graph.Snapshot {
	t.Helper()
	var snap *graph.Snapshot
	require.Eventually(t, func() bool {
		snap = s.Current()
		return snap != nil && snap.Generation >= gen
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func TestBaseFetchPopulatesSnapshot(t *testing.T) {
	s := startSynchronizer(t, staticFetcher(), newFakeConn())
	snap := waitForGeneration(t, s, 0)
	assert.Len(t, snap.Nodes, 2)
	assert.Len(t, snap.Edges, 1)
	require.Eventually(t, s.Live, 2*time.Second, 5*time.Millisecond)
}

func TestPartialPatchAppliesToKnownNode(t *testing.T) {
	conn := newFakeConn()
	s := startSynchronizer(t, staticFetcher(), conn)
	waitForGeneration(t, s, 0)

	conn.msgs <- []byte(`{"node":"wf-deploy","status":"failed"}`)

	snap := waitForGeneration(t, s, 1)
	n, ok := snap.NodeByID("wf-deploy")
	require.True(t, ok)
	assert.Equal(t, "failed", n.Status)
	assert.Equal(t, map[string]bool{"wf-deploy": true}, snap.ChangedSince())
}

func TestPatchForUnknownNodeIsNoOp(t *testing.T) {
	conn := newFakeConn()
	s := startSynchronizer(t, staticFetcher(), conn)
	base := waitForGeneration(t, s, 0)

	conn.msgs <- []byte(`{"node":"ghost","status":"failed"}`)
	// Follow with a real patch so we can observe ordering.
	conn.msgs <- []byte(`{"node":"wf-deploy","status":"succeeded"}`)

	snap := waitForGeneration(t, s, base.Generation+1)
	// The ghost patch produced no generation; node count unchanged.
	assert.Len(t, snap.Nodes, 2)
	n, _ := snap.NodeByID("wf-deploy")
	assert.Equal(t, "succeeded", n.Status)
}

func TestFullReplaceSwapsSnapshot(t *testing.T) {
	conn := newFakeConn()
	s := startSynchronizer(t, staticFetcher(), conn)
	waitForGeneration(t, s, 0)

	conn.msgs <- []byte(`{"nodes":[{"id":"res-db","name":"db","type":"resource","status":"provisioning"}],"edges":[]}`)

	snap := waitForGeneration(t, s, 1)
	assert.Len(t, snap.Nodes, 1)
	assert.True(t, snap.HasNode("res-db"))
	assert.False(t, snap.HasNode("spec-demo"))
}

func TestMalformedFrameDroppedConnectionStays(t *testing.T) {
	conn := newFakeConn()
	s := startSynchronizer(t, staticFetcher(), conn)
	waitForGeneration(t, s, 0)

	conn.msgs <- []byte(`{not json`)
	conn.msgs <- []byte(`{"node":"wf-deploy","status":"failed"}`)

	snap := waitForGeneration(t, s, 1)
	n, _ := snap.NodeByID("wf-deploy")
	assert.Equal(t, "failed", n.Status)
	assert.True(t, s.Live(), "malformed frame must not drop the connection")
}

func TestApplyAfterBaseBuffering(t *testing.T) {
	release := make(chan struct{})
	fetcher := fetcherFunc(func(ctx context.Context, app string) ([]graph.Node, []graph.Edge, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
		return baseNodes(), baseEdges(), nil
	})

	conn := newFakeConn()
	s, err := New(Options{
		App:     "demo",
		Fetcher: fetcher,
		Dial: func(ctx context.Context, wsURL string) (Conn, error) {
			return conn, nil
		},
		Policy: ReconnectBackoff,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	// The base fetch blocks inside Run, so frames arriving now race it.
	go s.Run(ctx)

	// No base yet: nothing to patch, frame must be buffered, not dropped
	// and not applied to a nil snapshot.
	conn.msgs <- []byte(`{"node":"wf-deploy","status":"failed"}`)
	time.Sleep(20 * time.Millisecond)
	assert.Nil(t, s.Current())

	close(release)

	snap := waitForGeneration(t, s, 1)
	n, ok := snap.NodeByID("wf-deploy")
	require.True(t, ok)
	assert.Equal(t, "failed", n.Status, "buffered frame replayed after base")
}

func TestOfflineRetainsLastSnapshot(t *testing.T) {
	conn := newFakeConn()
	s := startSynchronizer(t, staticFetcher(), conn)
	waitForGeneration(t, s, 0)
	require.Eventually(t, s.Live, 2*time.Second, 5*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool { return !s.Live() }, 2*time.Second, 5*time.Millisecond)
	require.NotNil(t, s.Current(), "stale-but-present beats empty")
	assert.Len(t, s.Current().Nodes, 2)
	assert.True(t, errors.IsOfflineError(s.LastError()))
}

func TestFetchFailureIsRecoverableViaRetry(t *testing.T) {
	calls := 0
	fetcher := fetcherFunc(func(ctx context.Context, app string) ([]graph.Node, []graph.Edge, error) {
		calls++
		if calls == 1 {
			return nil, nil, errors.New("connection refused")
		}
		return baseNodes(), baseEdges(), nil
	})

	conn := newFakeConn()
	s := startSynchronizer(t, fetcher, conn)

	require.Eventually(t, func() bool { return s.LastError() != nil || s.Current() != nil },
		2*time.Second, 5*time.Millisecond)
	assert.Nil(t, s.Current())

	s.Retry()

	snap := waitForGeneration(t, s, 0)
	assert.Len(t, snap.Nodes, 2)
	assert.NoError(t, s.LastError())
}

func TestEmptyGraphIsNotAnError(t *testing.T) {
	fetcher := fetcherFunc(func(ctx context.Context, app string) ([]graph.Node, []graph.Edge, error) {
		return []graph.Node{}, []graph.Edge{}, nil
	})
	s := startSynchronizer(t, fetcher, newFakeConn())

	snap := waitForGeneration(t, s, 0)
	assert.Empty(t, snap.Nodes)
	assert.NoError(t, s.LastError(), "empty graph is a distinct state from fetch failure")
}

func TestShutdownDuringBaseFetchDoesNotPanic(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	// Deliberately ignores ctx: models a slow fetch that completes only
	// after the session is cancelled.
	fetcher := fetcherFunc(func(ctx context.Context, app string) ([]graph.Node, []graph.Edge, error) {
		close(started)
		<-release
		return baseNodes(), baseEdges(), nil
	})

	s, err := New(Options{
		App:     "demo",
		Fetcher: fetcher,
		Dial: func(ctx context.Context, wsURL string) (Conn, error) {
			return newFakeConn(), nil
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	<-started
	cancel()
	close(release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	// Updates must close cleanly; the late fetch result is discarded, not
	// published into a closed channel.
	for range s.Updates() {
	}
	assert.Nil(t, s.Current())
}

func TestUpdateSourcesDistinguishFetchFromStream(t *testing.T) {
	conn := newFakeConn()
	s := startSynchronizer(t, staticFetcher(), conn)

	u := <-s.Updates()
	assert.Equal(t, SourceFetch, u.Source)
	assert.Equal(t, uint64(0), u.Snapshot.Generation)

	conn.msgs <- []byte(`{"node":"wf-deploy","status":"failed"}`)
	u = <-s.Updates()
	assert.Equal(t, SourceStream, u.Source)
	assert.Equal(t, uint64(1), u.Snapshot.Generation)

	// A manual refresh over live data produces a fetch-sourced generation,
	// not a stream one.
	require.Eventually(t, s.Live, 2*time.Second, 5*time.Millisecond)
	s.Retry()
	u = <-s.Updates()
	assert.Equal(t, SourceFetch, u.Source)
	assert.Equal(t, uint64(2), u.Snapshot.Generation)
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{Fetcher: staticFetcher()})
	require.Error(t, err)
	_, err = New(Options{App: "demo"})
	require.Error(t, err)
}
