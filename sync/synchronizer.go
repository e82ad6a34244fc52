// Package sync keeps a local graph snapshot in step with the server.
//
// One Synchronizer serves one application: it fetches the base snapshot
// over REST, then holds a long-lived stream delivering full replacements or
// single-node status patches. The fetch and the stream are independent and
// unordered; frames that arrive before the base snapshot are buffered and
// replayed once it lands. Consumers receive immutable snapshot values on
// Updates — snapshot state is never mutated in place.
package sync

import (
	"context"
	gosync "sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/innominatus/graphview/errors"
	"github.com/innominatus/graphview/graph"
	"github.com/innominatus/graphview/graph/grapherror"
	"github.com/innominatus/graphview/logger"
)

// SnapshotFetcher retrieves the base snapshot for an application.
type SnapshotFetcher interface {
	FetchGraph(ctx context.Context, app string) ([]graph.Node, []graph.Edge, error)
}

// ReconnectPolicy controls what the synchronizer does when the stream drops.
type ReconnectPolicy int

const (
	// ReconnectOff leaves the view offline until a manual Retry. This is
	// the default, matching the platform UI's observed behavior.
	ReconnectOff ReconnectPolicy = iota

	// ReconnectBackoff redials with exponential backoff.
	ReconnectBackoff
)

const (
	// pendingFrameLimit bounds the frames buffered before the base
	// snapshot lands. Beyond it the oldest frames are dropped; the next
	// full replace makes the state whole again.
	pendingFrameLimit = 64

	backoffBase = time.Second
	backoffMax  = 30 * time.Second
)

// Update sources, recorded per generation so consumers can tell a REST
// (re)fetch from a stream delta.
const (
	SourceFetch  = "fetch"
	SourceStream = "stream"
)

// Update pairs a snapshot generation with how it arrived.
type Update struct {
	Snapshot *graph.Snapshot
	Source   string
}

// Options configures a Synchronizer.
type Options struct {
	App       string
	Fetcher   SnapshotFetcher
	Dial      Dialer
	StreamURL string
	Policy    ReconnectPolicy
	Logger    *zap.SugaredLogger
	Verbosity int
}

// Synchronizer owns the live snapshot for one application.
type Synchronizer struct {
	opts Options
	log  *zap.SugaredLogger

	mu       gosync.RWMutex
	current  *graph.Snapshot
	live     bool
	lastErr  error
	attempts int // consecutive failed stream sessions, for backoff

	// pending buffers stream frames that arrive before the base snapshot.
	pending []frame

	fetching atomic.Bool
	// fetchWG tracks in-flight fetch goroutines so Run never closes the
	// updates channel while a fetch could still publish into it.
	fetchWG gosync.WaitGroup
	updates chan Update
	retry   chan struct{}

	// dialPace keeps reconnect attempts polite regardless of backoff math.
	dialPace *rate.Limiter
}

// New creates a Synchronizer. Run must be called to start it.
func New(opts Options) (*Synchronizer, error) {
	if opts.App == "" {
		return nil, errors.New("synchronizer requires an application name")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("synchronizer requires a fetcher")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Named("sync")
	}
	return &Synchronizer{
		opts:     opts,
		log:      log.With("app", opts.App),
		updates:  make(chan Update, 8),
		retry:    make(chan struct{}, 1),
		dialPace: rate.NewLimiter(rate.Every(backoffBase), 1),
	}, nil
}

// Updates delivers each new snapshot generation tagged with its source.
// Slow consumers miss intermediate generations, never the latest one.
func (s *Synchronizer) Updates() <-chan Update {
	return s.updates
}

// Current returns the latest snapshot, or nil before the base fetch lands.
func (s *Synchronizer) Current() *graph.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Live reports whether the stream connection is up. Offline means updates
// have stopped; the last-known snapshot stays available.
func (s *Synchronizer) Live() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

// LastError returns the most recent fetch or stream error, if any.
func (s *Synchronizer) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Retry asks the synchronizer to re-fetch the base snapshot and, when the
// stream is down, redial it. Safe from any goroutine.
func (s *Synchronizer) Retry() {
	select {
	case s.retry <- struct{}{}:
	default:
	}
}

// Run drives the synchronizer until ctx is cancelled. The stream is torn
// down on every exit path so a new context never receives stale updates.
func (s *Synchronizer) Run(ctx context.Context) error {
	// An in-flight fetch may still be publishing; closing before it
	// finishes would panic the publish.
	defer func() {
		s.fetchWG.Wait()
		close(s.updates)
	}()

	// The fetch and the stream race deliberately; handleFrame buffers
	// anything that lands before the base snapshot does.
	s.startFetch(ctx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := s.streamOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.setOffline(err)
		}

		switch s.opts.Policy {
		case ReconnectBackoff:
			if err := s.waitBackoff(ctx); err != nil {
				return err
			}
		default:
			// Offline until an explicit retry.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.retry:
				s.fetchBase(ctx)
			}
		}
	}
}

// startFetch launches fetchBase on its own goroutine, tracked so Run can
// drain it before closing the updates channel.
func (s *Synchronizer) startFetch(ctx context.Context) {
	s.fetchWG.Add(1)
	go func() {
		defer s.fetchWG.Done()
		s.fetchBase(ctx)
	}()
}

// fetchBase loads the initial snapshot, installs it, and replays any frames
// that arrived first. At most one fetch runs at a time.
func (s *Synchronizer) fetchBase(ctx context.Context) {
	if !s.fetching.CompareAndSwap(false, true) {
		return
	}
	defer s.fetching.Store(false)

	nodes, edges, err := s.opts.Fetcher.FetchGraph(ctx, s.opts.App)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		// Recoverable: the caller surfaces a retry affordance.
		s.log.Warnw("Base snapshot fetch failed", s.fetchError(err).ToLogFields()...)
		return
	}

	if ctx.Err() != nil {
		// Cancelled mid-fetch: the session is tearing down, nothing to
		// install or publish.
		return
	}

	now := time.Now()
	fetched := graph.NewSnapshot(nodes, edges, now)
	if dangling, verr := fetched.Validate(); verr != nil {
		s.mu.Lock()
		s.lastErr = verr
		s.mu.Unlock()
		s.log.Warnw("Fetched snapshot failed validation", "error", verr.Error())
		return
	} else if dangling > 0 {
		s.log.Debugw("Snapshot contains dangling edges", "count", dangling)
	}

	s.mu.Lock()
	var snap *graph.Snapshot
	if s.current != nil {
		// Manual refresh over an existing snapshot: keep the generation
		// chain so change highlighting still works.
		snap = s.current.Replace(nodes, edges, now)
	} else {
		snap = fetched
	}

	// Apply-after-base: replay buffered frames in arrival order before
	// anyone sees the base state.
	buffered := len(s.pending)
	for _, f := range s.pending {
		snap = applyFrame(snap, f)
	}
	s.pending = nil
	s.current = snap
	s.lastErr = nil
	s.mu.Unlock()

	s.log.Infow("Base snapshot loaded",
		"nodes", len(nodes),
		"edges", len(edges),
		"replayed_frames", buffered,
	)
	s.publish(snap, SourceFetch)
}

// streamOnce dials the stream and consumes frames until the connection
// drops or ctx is cancelled. Returns nil only on context cancellation.
func (s *Synchronizer) streamOnce(ctx context.Context) error {
	dial := s.opts.Dial
	if dial == nil {
		return errors.New("no stream dialer configured")
	}

	conn, err := dial(ctx, s.opts.StreamURL)
	if err != nil {
		gerr := grapherror.New(grapherror.CategoryStream, err, "Live updates unavailable").
			WithSubcategory(grapherror.SubcategoryStreamDial)
		s.log.Warnw("Stream dial failed", gerr.ToLogFields()...)
		return err
	}

	s.setLive()
	s.log.Infow("Stream connected")

	// Reader goroutine feeds the loop; closing the conn unblocks it on
	// every exit path, including context cancellation.
	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- data:
			case <-ctx.Done():
				return
			}
		}
	}()
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.retry:
			s.startFetch(ctx)
		case err := <-readErr:
			if isExpectedClose(err) {
				s.log.Infow("Stream closed by peer")
			} else {
				gerr := grapherror.New(grapherror.CategoryStream, err, "Live updates disconnected").
					WithSubcategory(grapherror.SubcategoryStreamRead)
				s.log.Warnw("Stream read error", gerr.ToLogFields()...)
			}
			return err
		case data := <-frames:
			s.handleFrame(data)
		}
	}
}

// handleFrame decodes and applies one stream message. Malformed frames are
// logged and dropped; the connection stays open.
func (s *Synchronizer) handleFrame(data []byte) {
	if logger.ShouldLogFrames(s.opts.Verbosity) {
		s.log.Debugw("Stream frame received", "size_bytes", len(data))
	}

	f, err := decodeFrame(data)
	if err != nil {
		gerr := grapherror.New(grapherror.CategoryDecode, err, "Dropped malformed stream frame").
			WithSubcategory(grapherror.SubcategoryDecodeFrame).
			WithContext("size_bytes", len(data))
		s.log.Warnw("Malformed stream frame", gerr.ToLogFields()...)
		return
	}

	s.mu.Lock()
	if s.current == nil {
		// Never patch a nil snapshot: buffer until the base lands.
		s.pending = append(s.pending, f)
		if len(s.pending) > pendingFrameLimit {
			s.pending = s.pending[1:]
		}
		s.mu.Unlock()
		s.log.Debugw("Buffered frame until base snapshot arrives")
		return
	}

	next := applyFrame(s.current, f)
	if next == s.current {
		s.mu.Unlock()
		// Unknown node ID: a no-op by contract, not an error.
		s.log.Debugw("Patch for unknown node ignored", "node", f.nodeID)
		return
	}
	s.current = next
	s.mu.Unlock()

	if logger.ShouldLogFrames(s.opts.Verbosity) {
		s.log.Debugw("Snapshot advanced",
			"generation", next.Generation,
			"changed", len(next.ChangedSince()),
		)
	}
	s.publish(next, SourceStream)
}

// applyFrame merges one decoded frame into a snapshot, returning the next
// generation (or the same snapshot for a no-op patch).
func applyFrame(cur *graph.Snapshot, f frame) *graph.Snapshot {
	switch f.kind {
	case frameFullReplace:
		return cur.Replace(f.nodes, f.edges, time.Now())
	case framePartialPatch:
		return cur.ApplyPatch(f.nodeID, f.status, time.Now())
	default:
		return cur
	}
}

// publish hands a new generation to the consumer without blocking. A full
// channel drops the oldest pending generation first.
func (s *Synchronizer) publish(snap *graph.Snapshot, source string) {
	for {
		select {
		case s.updates <- Update{Snapshot: snap, Source: source}:
			return
		default:
			select {
			case <-s.updates:
				s.log.Debugw("Consumer lagging, dropped stale generation")
			default:
			}
		}
	}
}

func (s *Synchronizer) setLive() {
	s.mu.Lock()
	s.live = true
	s.lastErr = nil
	s.attempts = 0
	s.mu.Unlock()
}

func (s *Synchronizer) setOffline(err error) {
	s.mu.Lock()
	s.live = false
	// Stale-but-present beats empty: s.current is deliberately retained.
	if err != nil {
		s.lastErr = errors.Wrap(errors.ErrOffline, err.Error())
	}
	s.mu.Unlock()
}

// waitBackoff sleeps between redial attempts: exponential growth capped at
// backoffMax, paced by the rate limiter so retries stay polite even after
// the backoff resets.
func (s *Synchronizer) waitBackoff(ctx context.Context) error {
	if err := s.dialPace.Wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	delay := backoffBase << s.attempts
	if delay > backoffMax || delay <= 0 {
		delay = backoffMax
	}
	s.attempts++
	s.mu.Unlock()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.retry:
		s.fetchBase(ctx)
		return nil
	case <-timer.C:
		return nil
	}
}

func (s *Synchronizer) fetchError(err error) *grapherror.GraphError {
	return grapherror.New(grapherror.CategoryFetch, err, "Could not load the graph").
		WithSubcategory(grapherror.SubcategoryFetchNetwork).
		WithContext("app", s.opts.App)
}
