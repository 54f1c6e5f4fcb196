// Package sync owns the baseline document and the transport discipline for
// pushing local edits to the server as patches.
package sync

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/bridgesync/bridgesync/internal/core/document"
	"github.com/bridgesync/bridgesync/internal/core/observability/log"
	"github.com/bridgesync/bridgesync/internal/core/observability/metrics"
)

// Canonicalizer rewrites a value into its comparison form before diffing.
type Canonicalizer func(document.Value) document.Value

// Client keeps the last server-confirmed document (the baseline) and turns
// committed edits of the working document into patch submissions.
//
// Submissions are single-flight: while one patch request is outstanding, a
// Trigger only records the newest working snapshot as pending. When the
// request resolves, one fresh diff is computed against the then-current
// baseline, so two requests never race to advance the baseline.
type Client struct {
	transport Transport
	canonical Canonicalizer
	logger    log.Log
	metrics   *metrics.Metrics
	timeout   time.Duration

	onLoadError func(error)
	onSaveError func(error)

	mu          stdsync.Mutex
	closed      bool
	baseline    document.Value
	hasBaseline bool
	inFlight    bool
	pending     *document.Value

	flushGroup stdsync.WaitGroup
}

// Option tweaks client construction.
type Option func(*Client)

// WithCanonicalizer replaces the comparison-form rewrite. The default is
// document.Canonical.
func WithCanonicalizer(fn Canonicalizer) Option {
	return func(c *Client) { c.canonical = fn }
}

// WithMetrics attaches a metrics bundle.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRequestTimeout bounds each patch submission round trip.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLoadErrorHandler registers the UI notification hook for load failures.
func WithLoadErrorHandler(fn func(error)) Option {
	return func(c *Client) { c.onLoadError = fn }
}

// WithSaveErrorHandler registers the UI notification hook for save failures.
func WithSaveErrorHandler(fn func(error)) Option {
	return func(c *Client) { c.onSaveError = fn }
}

// NewClient builds a sync client over the given transport.
func NewClient(transport Transport, logger log.Log, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		canonical: document.Canonical,
		logger:    logger.With(log.String("component", "sync_client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the authoritative document and installs it as the baseline.
// On failure the previous baseline (if any) is kept and the load error
// handler is invoked.
func (c *Client) Load(ctx context.Context) (document.Value, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return document.Value{}, ErrClientClosed
	}

	doc, err := c.transport.LoadDocument(ctx)
	if err != nil {
		c.metrics.IncLoadFailures()
		c.logger.Error("baseline load failed", log.Error(err))
		if c.onLoadError != nil {
			c.onLoadError(err)
		}
		return document.Value{}, err
	}

	c.mu.Lock()
	c.baseline = doc.Clone()
	c.hasBaseline = true
	c.mu.Unlock()

	c.metrics.IncDocumentLoads()
	c.logger.Info("baseline loaded")
	return doc, nil
}

// Trigger submits the changes between the baseline and the given working
// document. Without a baseline it is a no-op. The call returns immediately;
// transmission happens on the flush goroutine.
func (c *Client) Trigger(working document.Value) {
	snapshot := working.Clone()

	c.mu.Lock()
	if c.closed || !c.hasBaseline {
		c.mu.Unlock()
		return
	}
	if c.inFlight {
		// Coalesce: only the newest snapshot matters.
		c.pending = &snapshot
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	// The Add happens under mu so Close cannot start waiting between the
	// closed check and the flush goroutine registering itself.
	c.flushGroup.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.flushGroup.Done()
		c.flush(snapshot)
	}()
}

// flush diffs and submits, then drains any pending snapshot recorded while
// the request was outstanding.
func (c *Client) flush(working document.Value) {
	for {
		c.mu.Lock()
		baseline := c.baseline
		c.mu.Unlock()

		c.submit(baseline, working)

		c.mu.Lock()
		if c.pending != nil {
			working = *c.pending
			c.pending = nil
			c.mu.Unlock()
			continue
		}
		c.inFlight = false
		c.mu.Unlock()
		return
	}
}

func (c *Client) submit(baseline, working document.Value) {
	canonBase := c.canonical(baseline)
	canonWork := c.canonical(working)

	// Fingerprint precheck: unchanged documents skip the diff entirely.
	if document.Fingerprint(canonBase) == document.Fingerprint(canonWork) {
		return
	}

	ops := document.Diff(canonBase, canonWork)
	if len(ops) == 0 {
		return
	}

	ctx, cancel := c.requestContext()
	defer cancel()

	if err := c.transport.SubmitPatch(ctx, ops); err != nil {
		// Baseline stays put; the un-acknowledged changes ride along in
		// the next triggered diff.
		c.metrics.IncPatchFailures()
		c.logger.Error("patch submission failed", log.Int("ops", len(ops)), log.Error(err))
		if c.onSaveError != nil {
			c.onSaveError(err)
		}
		return
	}

	// Advance to the un-normalized working document so later diffs see
	// the full shape again.
	c.mu.Lock()
	c.baseline = working.Clone()
	c.mu.Unlock()

	c.metrics.IncPatchesSent()
	c.logger.Debug("baseline advanced", log.Int("ops", len(ops)))
}

func (c *Client) requestContext() (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(context.Background(), c.timeout)
	}
	return context.WithCancel(context.Background())
}

// Baseline returns a copy of the current baseline.
func (c *Client) Baseline() (document.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasBaseline {
		return document.Value{}, false
	}
	return c.baseline.Clone(), true
}

// HasBaseline reports whether a load has succeeded yet.
func (c *Client) HasBaseline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasBaseline
}

// Close stops accepting triggers and waits for any in-flight submission to
// finish. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.flushGroup.Wait()
	c.logger.Info("sync client closed")
	return nil
}
