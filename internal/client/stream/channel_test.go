package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/tripmate/internal/client/models"
	"github.com/dmitrijs2005/tripmate/internal/common"
	"github.com/dmitrijs2005/tripmate/internal/metrics"
)

const (
	waitFor = 2 * time.Second
	tick    = 2 * time.Millisecond
)

type fakeTokens struct{ value string }

func (f fakeTokens) Get() (string, bool) { return f.value, f.value != "" }

type fakeStreamer struct {
	mu    sync.Mutex
	calls int
	open  func(ctx context.Context) (*http.Response, error)
}

func (f *fakeStreamer) Stream(ctx context.Context, _ string) (*http.Response, error) {
	f.mu.Lock()
	f.calls++
	open := f.open
	f.mu.Unlock()
	return open(ctx)
}

func (f *fakeStreamer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func failing(err error) func(context.Context) (*http.Response, error) {
	return func(context.Context) (*http.Response, error) { return nil, err }
}

func body(r io.ReadCloser) *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: r}
}

type collector struct {
	mu  sync.Mutex
	got []models.Notification
}

func (c *collector) add(n models.Notification) {
	c.mu.Lock()
	c.got = append(c.got, n)
	c.mu.Unlock()
}

func (c *collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func notificationRecord(id int64) string {
	return fmt.Sprintf("id: %d\nevent: notification\ndata: {\"id\":%d,\"type\":\"COMMENT\",\"title\":\"t%d\",\"isRead\":false}\n\n", id, id, id)
}

func TestChannel_DeliversNotificationsAndSkipsBadRecords(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	fs := &fakeStreamer{open: func(ctx context.Context) (*http.Response, error) {
		go func() {
			<-ctx.Done()
			pw.CloseWithError(ctx.Err())
		}()
		return body(pr), nil
	}}
	m := metrics.NewClient(prometheus.NewRegistry())
	ch := New(fs, fakeTokens{"tok"}, WithMetrics(m))

	var c collector
	ch.Subscribe(c.add)
	ch.Connect()
	require.Eventually(t, func() bool { return ch.State() == StateOpen }, waitFor, tick)

	records := []string{
		"event: connect\ndata: hello\n\n",
		"event: keepalive\ndata:\n\n",
		"event: notification\ndata: {not json\n\n",
		"event: mystery\ndata: {}\n\n",
		notificationRecord(1),
		notificationRecord(2),
	}
	_, err := io.WriteString(pw, strings.Join(records, ""))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return c.Len() == 2 }, waitFor, tick)
	c.mu.Lock()
	assert.Equal(t, int64(1), c.got[0].ID)
	assert.Equal(t, models.NotificationComment, c.got[0].Type)
	assert.Equal(t, int64(2), c.got[1].ID)
	c.mu.Unlock()

	assert.Equal(t, StateOpen, ch.State(), "bad records never end the stream")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.StreamDropped))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.NotificationsSeen))

	ch.Disconnect()
	assert.Equal(t, StateIdle, ch.State())
	assert.Equal(t, 1, fs.Calls())
}

func TestChannel_ConnectWithoutCredentialIsNoop(t *testing.T) {
	fs := &fakeStreamer{open: failing(errors.New("unexpected"))}
	ch := New(fs, fakeTokens{})

	ch.Connect()
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, StateIdle, ch.State())
	assert.Zero(t, fs.Calls())
}

func TestChannel_ConnectWhileOpenIsNoop(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	fs := &fakeStreamer{open: func(ctx context.Context) (*http.Response, error) {
		go func() {
			<-ctx.Done()
			pw.CloseWithError(ctx.Err())
		}()
		return body(pr), nil
	}}
	ch := New(fs, fakeTokens{"tok"})
	defer ch.Disconnect()

	ch.Connect()
	ch.Connect()
	require.Eventually(t, func() bool { return ch.State() == StateOpen }, waitFor, tick)
	ch.Connect()

	assert.Equal(t, 1, fs.Calls())
}

func TestChannel_ReconnectIsBounded(t *testing.T) {
	const maxAttempts = 3

	fs := &fakeStreamer{open: failing(errors.New("connection refused"))}
	m := metrics.NewClient(prometheus.NewRegistry())
	ch := New(fs, fakeTokens{"tok"}, WithReconnectDelay(5*time.Millisecond), WithMaxAttempts(maxAttempts), WithMetrics(m))
	defer ch.Disconnect()

	var mu sync.Mutex
	var states []State
	ch.OnStateChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	ch.Connect()
	require.Eventually(t, func() bool { return ch.State() == StateOffline }, waitFor, tick)

	// Nothing else is scheduled once offline.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, maxAttempts, fs.Calls())
	assert.Equal(t, StateOffline, ch.State())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StreamGiveUps))
	assert.Equal(t, float64(maxAttempts-1), testutil.ToFloat64(m.StreamReconnects))

	mu.Lock()
	assert.Contains(t, states, StateError)
	assert.Contains(t, states, StateOffline)
	mu.Unlock()

	// An explicit Connect starts a fresh run of attempts.
	ch.Connect()
	require.Eventually(t, func() bool { return fs.Calls() == 2*maxAttempts }, waitFor, tick)
	require.Eventually(t, func() bool { return ch.State() == StateOffline }, waitFor, tick)
}

func TestChannel_ServerCloseTriggersReconnect(t *testing.T) {
	fs := &fakeStreamer{open: func(context.Context) (*http.Response, error) {
		return body(io.NopCloser(strings.NewReader("event: connect\ndata: ok\n\n"))), nil
	}}
	ch := New(fs, fakeTokens{"tok"}, WithReconnectDelay(5*time.Millisecond), WithMaxAttempts(2))

	ch.Connect()
	// Each connection opens before it drops, so the failure streak resets
	// and reconnection continues.
	require.Eventually(t, func() bool { return fs.Calls() >= 4 }, waitFor, tick)

	ch.Disconnect()
	// Let a run that was already starting reach the streamer.
	time.Sleep(20 * time.Millisecond)
	after := fs.Calls()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, fs.Calls(), "no reconnect fires after Disconnect")
	assert.Equal(t, StateIdle, ch.State())
}

func TestChannel_AcceptThenCloseNeverGoesOffline(t *testing.T) {
	const maxAttempts = 2

	fs := &fakeStreamer{open: func(context.Context) (*http.Response, error) {
		return body(io.NopCloser(strings.NewReader(""))), nil
	}}
	m := metrics.NewClient(prometheus.NewRegistry())
	ch := New(fs, fakeTokens{"tok"}, WithReconnectDelay(2*time.Millisecond), WithMaxAttempts(maxAttempts), WithMetrics(m))

	var mu sync.Mutex
	var states []State
	ch.OnStateChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	ch.Connect()
	// Every stream opens, so no run of failures reaches the limit.
	require.Eventually(t, func() bool { return fs.Calls() >= 5*maxAttempts }, waitFor, tick)
	ch.Disconnect()

	assert.Zero(t, testutil.ToFloat64(m.StreamGiveUps))
	mu.Lock()
	assert.Contains(t, states, StateOpen)
	assert.NotContains(t, states, StateOffline)
	mu.Unlock()
}

func TestChannel_DisconnectCancelsPendingReconnect(t *testing.T) {
	fs := &fakeStreamer{open: failing(errors.New("boom"))}
	ch := New(fs, fakeTokens{"tok"}, WithReconnectDelay(40*time.Millisecond), WithMaxAttempts(10))

	ch.Connect()
	require.Eventually(t, func() bool { return ch.State() == StateError }, waitFor, tick)

	ch.Disconnect()
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, fs.Calls())
	assert.Equal(t, StateIdle, ch.State())
}

func TestChannel_NoDispatchAfterDisconnect(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	// The body ignores cancellation, so the read loop keeps reading after
	// Disconnect and must stop on its own.
	fs := &fakeStreamer{open: func(context.Context) (*http.Response, error) {
		return body(pr), nil
	}}
	ch := New(fs, fakeTokens{"tok"})

	var c collector
	ch.Subscribe(c.add)
	ch.Connect()
	require.Eventually(t, func() bool { return ch.State() == StateOpen }, waitFor, tick)

	_, err := io.WriteString(pw, notificationRecord(1))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.Len() == 1 }, waitFor, tick)

	ch.Disconnect()

	written := make(chan struct{})
	go func() {
		_, _ = io.WriteString(pw, notificationRecord(2))
		close(written)
	}()
	select {
	case <-written:
	case <-time.After(waitFor):
	}
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, StateIdle, ch.State())
}

func TestChannel_SessionEndDoesNotReconnect(t *testing.T) {
	fs := &fakeStreamer{open: failing(fmt.Errorf("reissue: %w", common.ErrSessionExpired))}
	ch := New(fs, fakeTokens{"tok"}, WithReconnectDelay(5*time.Millisecond))

	ch.Connect()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, fs.Calls())
	assert.Equal(t, StateIdle, ch.State())
}

func TestChannel_DisconnectWhenIdle(t *testing.T) {
	ch := New(&fakeStreamer{open: failing(errors.New("unused"))}, fakeTokens{})

	assert.NotPanics(t, func() {
		ch.Disconnect()
		ch.Disconnect()
	})
	assert.Equal(t, StateIdle, ch.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "offline", StateOffline.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(99).String())
}
