package live

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	stdsync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bridgesync/bridgesync/internal/core/observability/log"
	"github.com/bridgesync/bridgesync/internal/core/status"
)

// pushServer is a minimal websocket push endpoint for channel tests.
type pushServer struct {
	ts       *httptest.Server
	upgrader websocket.Upgrader

	mu    stdsync.Mutex
	conns []*websocket.Conn
	dials int32
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	ps := &pushServer{}
	ps.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ps.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		atomic.AddInt32(&ps.dials, 1)
		ps.mu.Lock()
		ps.conns = append(ps.conns, conn)
		ps.mu.Unlock()
	}))
	t.Cleanup(ps.ts.Close)
	return ps
}

func (ps *pushServer) url() string {
	return "ws" + strings.TrimPrefix(ps.ts.URL, "http")
}

func (ps *pushServer) dialCount() int {
	return int(atomic.LoadInt32(&ps.dials))
}

func (ps *pushServer) send(t *testing.T, event, payload string) {
	t.Helper()
	frame, err := json.Marshal(map[string]string{"event": event, "payload": payload})
	require.NoError(t, err)

	ps.mu.Lock()
	defer ps.mu.Unlock()
	require.NotEmpty(t, ps.conns)
	latest := ps.conns[len(ps.conns)-1]
	require.NoError(t, latest.WriteMessage(websocket.TextMessage, frame))
}

func (ps *pushServer) sendRaw(t *testing.T, raw string) {
	t.Helper()
	ps.mu.Lock()
	defer ps.mu.Unlock()
	require.NotEmpty(t, ps.conns)
	latest := ps.conns[len(ps.conns)-1]
	require.NoError(t, latest.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func (ps *pushServer) dropAll() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, conn := range ps.conns {
		_ = conn.Close()
	}
	ps.conns = nil
}

func testConfig(url string) Config {
	return Config{URL: url, ReconnectDelay: 30 * time.Millisecond}
}

func waitDials(t *testing.T, ps *pushServer, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return ps.dialCount() >= want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestChannelDispatchesEvents(t *testing.T) {
	ps := newPushServer(t)
	proj := status.NewProjection()
	ch := NewChannel(testConfig(ps.url()), proj, log.Nop())

	require.NoError(t, ch.Start(context.Background()))
	defer ch.Stop()
	waitDials(t, ps, 1)

	ps.send(t, EventBrokerConnected, `{"bridge":"b1","instance":"i1"}`)
	require.Eventually(t, func() bool {
		state, ok := proj.Broker(status.BrokerKey("b1", "i1"))
		return ok && state == status.BrokerConnected
	}, 2*time.Second, 5*time.Millisecond)

	ps.send(t, EventBridgeStarted, `{"bridge":"b1"}`)
	require.Eventually(t, func() bool {
		state, ok := proj.Bridge("b1")
		return ok && state == status.BridgeStarted
	}, 2*time.Second, 5*time.Millisecond)
}

func TestChannelSurvivesMalformedFrames(t *testing.T) {
	ps := newPushServer(t)
	proj := status.NewProjection()
	ch := NewChannel(testConfig(ps.url()), proj, log.Nop())

	require.NoError(t, ch.Start(context.Background()))
	defer ch.Stop()
	waitDials(t, ps, 1)

	ps.sendRaw(t, `not json at all`)
	ps.send(t, EventBridgeStarted, `{"no_bridge_field":true}`)
	ps.send(t, "unknown_event", `{}`)

	// The channel must still be alive and dispatching.
	ps.send(t, EventBridgeStarted, `{"bridge":"b2"}`)
	require.Eventually(t, func() bool {
		_, ok := proj.Bridge("b2")
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, ps.dialCount())
	assert.Zero(t, proj.BrokerCount())
}

func TestChannelReconnectsAfterFailure(t *testing.T) {
	ps := newPushServer(t)
	proj := status.NewProjection()
	ch := NewChannel(testConfig(ps.url()), proj, log.Nop())

	require.NoError(t, ch.Start(context.Background()))
	defer ch.Stop()
	waitDials(t, ps, 1)

	ps.dropAll()
	waitDials(t, ps, 2)

	// The fresh subscription keeps feeding the same projection.
	ps.send(t, EventBrokerDisconnected, `{"bridge":"b1","instance":"i1"}`)
	require.Eventually(t, func() bool {
		state, ok := proj.Broker(status.BrokerKey("b1", "i1"))
		return ok && state == status.BrokerDisconnected
	}, 2*time.Second, 5*time.Millisecond)
}

func TestChannelFailureWithinDelayRestartsIt(t *testing.T) {
	var attempts int32
	dialer := &websocket.Dialer{
		NetDial: func(network, addr string) (net.Conn, error) {
			atomic.AddInt32(&attempts, 1)
			return nil, assert.AnError
		},
	}

	cfg := Config{URL: "ws://127.0.0.1:0/api/v1/events", ReconnectDelay: 500 * time.Millisecond}
	ch := NewChannel(cfg, status.NewProjection(), log.Nop(), WithDialer(dialer))

	// Failure 1 arms the reconnect timer.
	require.NoError(t, ch.Start(context.Background()))
	require.Equal(t, int32(1), atomic.LoadInt32(&attempts))

	// Failure 2 lands partway through the delay window. It must re-arm
	// the same slot, pushing the deadline out, not stack a second attempt.
	time.Sleep(150 * time.Millisecond)
	ch.open(context.Background())
	require.Equal(t, int32(2), atomic.LoadInt32(&attempts))

	// Past the first failure's deadline but before the restarted one:
	// nothing may have fired yet.
	time.Sleep(425 * time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))

	// The restarted delay eventually elapses and retries exactly once.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&attempts) >= 3
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, ch.Stop())
}

func TestChannelStartIsIdempotent(t *testing.T) {
	ps := newPushServer(t)
	ch := NewChannel(testConfig(ps.url()), status.NewProjection(), log.Nop())

	require.NoError(t, ch.Start(context.Background()))
	require.NoError(t, ch.Start(context.Background()))
	waitDials(t, ps, 1)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, ps.dialCount())
	require.NoError(t, ch.Stop())
}

func TestChannelStopCancelsPendingReconnect(t *testing.T) {
	var attempts int32
	dialer := &websocket.Dialer{
		NetDial: func(network, addr string) (net.Conn, error) {
			atomic.AddInt32(&attempts, 1)
			return nil, assert.AnError
		},
	}

	ch := NewChannel(testConfig("ws://127.0.0.1:0/api/v1/events"), status.NewProjection(), log.Nop(),
		WithDialer(dialer))

	require.NoError(t, ch.Start(context.Background()))
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&attempts) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, ch.Stop())
	require.NoError(t, ch.Stop())

	// Let any dial that was already past the closed check finish.
	time.Sleep(50 * time.Millisecond)
	settled := atomic.LoadInt32(&attempts)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, settled, atomic.LoadInt32(&attempts))

	assert.ErrorIs(t, ch.Start(context.Background()), ErrChannelClosed)
}
