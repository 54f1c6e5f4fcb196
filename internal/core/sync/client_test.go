package sync_test

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bridgesync/bridgesync/internal/core/document"
	"github.com/bridgesync/bridgesync/internal/core/observability/log"
	syncclient "github.com/bridgesync/bridgesync/internal/core/sync"
)

// fakeTransport records patch submissions and applies them to a shadow
// document, mirroring what the real server's patch consumer does.
type fakeTransport struct {
	mu        stdsync.Mutex
	doc       document.Value
	loadErr   error
	submitErr error
	requests  [][]document.Op

	// submitted receives one tick per SubmitPatch entry; gate, when set,
	// blocks SubmitPatch until it is closed.
	submitted chan struct{}
	gate      chan struct{}
}

func newFakeTransport(doc document.Value) *fakeTransport {
	return &fakeTransport{
		doc:       doc.Clone(),
		submitted: make(chan struct{}, 16),
	}
}

func (f *fakeTransport) LoadDocument(ctx context.Context) (document.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return document.Value{}, f.loadErr
	}
	return f.doc.Clone(), nil
}

func (f *fakeTransport) SubmitPatch(ctx context.Context, ops []document.Op) error {
	f.mu.Lock()
	f.requests = append(f.requests, ops)
	gate := f.gate
	err := f.submitErr
	f.mu.Unlock()

	f.submitted <- struct{}{}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	patched, applyErr := document.Apply(document.Canonical(f.doc), ops)
	if applyErr != nil {
		return applyErr
	}
	f.doc = patched
	return nil
}

func (f *fakeTransport) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeTransport) document() document.Value {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc.Clone()
}

func seedDoc(t *testing.T) document.Value {
	t.Helper()
	v, err := document.Parse([]byte(`{"bridges":[{"name":"a","port":1}]}`))
	require.NoError(t, err)
	return v
}

func waitSubmitted(t *testing.T, f *fakeTransport) {
	t.Helper()
	select {
	case <-f.submitted:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a patch submission")
	}
}

func loadedClient(t *testing.T, f *fakeTransport, opts ...syncclient.Option) *syncclient.Client {
	t.Helper()
	c := syncclient.NewClient(f, log.Nop(), opts...)
	_, err := c.Load(context.Background())
	require.NoError(t, err)
	return c
}

func TestTriggerWithoutBaselineIsNoop(t *testing.T) {
	f := newFakeTransport(seedDoc(t))
	c := syncclient.NewClient(f, log.Nop())

	c.Trigger(seedDoc(t))
	require.NoError(t, c.Close())

	assert.Zero(t, f.requestCount())
	assert.False(t, c.HasBaseline())
}

func TestTriggerSendsDiffAndAdvancesBaseline(t *testing.T) {
	f := newFakeTransport(seedDoc(t))
	c := loadedClient(t, f)

	working, err := document.Parse([]byte(`{"bridges":[{"name":"a","port":2}]}`))
	require.NoError(t, err)

	c.Trigger(working)
	waitSubmitted(t, f)
	require.NoError(t, c.Close())

	require.Equal(t, 1, f.requestCount())
	assert.True(t, f.document().Equal(document.Canonical(working)))

	baseline, ok := c.Baseline()
	require.True(t, ok)
	assert.True(t, baseline.Equal(working))
}

func TestTriggerWithoutChangesSendsNothing(t *testing.T) {
	f := newFakeTransport(seedDoc(t))
	c := loadedClient(t, f)

	// Identical content plus empty-optional fields the canonicalizer drops.
	working, err := document.Parse([]byte(`{"bridges":[{"name":"a","port":1,"description":null,"brokers":[]}]}`))
	require.NoError(t, err)

	c.Trigger(working)
	require.NoError(t, c.Close())

	assert.Zero(t, f.requestCount())
}

func TestSingleFlightCoalescesTriggers(t *testing.T) {
	f := newFakeTransport(seedDoc(t))
	f.gate = make(chan struct{})
	c := loadedClient(t, f)

	work := func(port string) document.Value {
		v, err := document.Parse([]byte(`{"bridges":[{"name":"a","port":` + port + `}]}`))
		require.NoError(t, err)
		return v
	}

	c.Trigger(work("2"))
	waitSubmitted(t, f) // first request is now in flight, blocked

	// Two more triggers while in flight: they must coalesce into one
	// follow-up request carrying the latest snapshot.
	c.Trigger(work("3"))
	c.Trigger(work("4"))

	close(f.gate)
	waitSubmitted(t, f)
	require.NoError(t, c.Close())

	assert.Equal(t, 2, f.requestCount())
	assert.True(t, f.document().Equal(document.Canonical(work("4"))))

	baseline, ok := c.Baseline()
	require.True(t, ok)
	assert.True(t, baseline.Equal(work("4")))
}

func TestSaveFailureKeepsBaselineAndRetriesImplicitly(t *testing.T) {
	f := newFakeTransport(seedDoc(t))
	f.submitErr = assert.AnError

	var notified int
	var notifiedMu stdsync.Mutex
	c := loadedClient(t, f, syncclient.WithSaveErrorHandler(func(error) {
		notifiedMu.Lock()
		notified++
		notifiedMu.Unlock()
	}))

	working1, err := document.Parse([]byte(`{"bridges":[{"name":"a","port":2}]}`))
	require.NoError(t, err)
	c.Trigger(working1)
	waitSubmitted(t, f)

	// The failed request must not advance the baseline.
	baseline, ok := c.Baseline()
	require.True(t, ok)
	assert.True(t, baseline.Equal(seedDoc(t)))

	f.mu.Lock()
	f.submitErr = nil
	f.mu.Unlock()

	// The next trigger diffs against the stale baseline, so the failed
	// change rides along with the new one.
	working2, err := document.Parse([]byte(`{"bridges":[{"name":"b","port":2}]}`))
	require.NoError(t, err)
	c.Trigger(working2)
	waitSubmitted(t, f)
	require.NoError(t, c.Close())

	assert.Equal(t, 2, f.requestCount())
	assert.True(t, f.document().Equal(document.Canonical(working2)))

	notifiedMu.Lock()
	assert.Equal(t, 1, notified)
	notifiedMu.Unlock()
}

func TestLoadFailureLeavesBaselineUnset(t *testing.T) {
	f := newFakeTransport(seedDoc(t))
	f.loadErr = assert.AnError

	var notified error
	c := syncclient.NewClient(f, log.Nop(), syncclient.WithLoadErrorHandler(func(err error) {
		notified = err
	}))

	_, err := c.Load(context.Background())
	assert.Error(t, err)
	assert.Error(t, notified)
	assert.False(t, c.HasBaseline())

	// A later successful load installs the baseline.
	f.mu.Lock()
	f.loadErr = nil
	f.mu.Unlock()
	_, err = c.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, c.HasBaseline())
	require.NoError(t, c.Close())
}

func TestCloseWaitsForInFlightSubmission(t *testing.T) {
	f := newFakeTransport(seedDoc(t))
	f.gate = make(chan struct{})
	c := loadedClient(t, f)

	working, err := document.Parse([]byte(`{"bridges":[{"name":"a","port":2}]}`))
	require.NoError(t, err)
	c.Trigger(working)
	waitSubmitted(t, f) // request is now in flight, blocked on the gate

	closed := make(chan struct{})
	go func() {
		_ = c.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a submission was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(f.gate)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the submission finished")
	}
	assert.Equal(t, 1, f.requestCount())
}

func TestCloseFencesConcurrentTriggers(t *testing.T) {
	f := newFakeTransport(seedDoc(t))
	c := loadedClient(t, f)

	working, err := document.Parse([]byte(`{"bridges":[{"name":"a","port":2}]}`))
	require.NoError(t, err)

	// Hammer Trigger from many goroutines while Close runs. Once Close has
	// returned no flush may still be outstanding, so the request count must
	// not move afterwards.
	var wg stdsync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Trigger(working)
		}()
	}
	require.NoError(t, c.Close())
	settled := f.requestCount()

	wg.Wait()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, settled, f.requestCount())
}

func TestTriggerAfterCloseIsNoop(t *testing.T) {
	f := newFakeTransport(seedDoc(t))
	c := loadedClient(t, f)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	working, err := document.Parse([]byte(`{"bridges":[]}`))
	require.NoError(t, err)
	c.Trigger(working)

	assert.Zero(t, f.requestCount())
}
