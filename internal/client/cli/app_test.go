package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/tripmate/internal/client/config"
	"github.com/dmitrijs2005/tripmate/internal/client/stream"
	"github.com/dmitrijs2005/tripmate/internal/common"
	"github.com/dmitrijs2005/tripmate/internal/logging"
	"github.com/dmitrijs2005/tripmate/internal/metrics"
	srvconfig "github.com/dmitrijs2005/tripmate/internal/server/config"
	"github.com/dmitrijs2005/tripmate/internal/server/notifications"
	"github.com/dmitrijs2005/tripmate/internal/server/refreshtokens"
	"github.com/dmitrijs2005/tripmate/internal/server/rest"
	"github.com/dmitrijs2005/tripmate/internal/server/users"
)

const (
	waitFor = 3 * time.Second
	tick    = 5 * time.Millisecond
)

type backend struct {
	url     string
	hub     *notifications.Hub
	metrics *metrics.Server
	annID   int64
}

func startBackend(t *testing.T, accessTTL time.Duration) *backend {
	t.Helper()

	cfg := &srvconfig.Config{}
	cfg.LoadDefaults()
	cfg.AccessTokenTTL = accessTTL
	cfg.KeepaliveInterval = 50 * time.Millisecond

	us := users.NewService(users.NewMemoryRepository(), bcrypt.MinCost)
	ann, err := us.Register(context.Background(), "Ann", "ann@example.com", "USER", []byte("secret"))
	require.NoError(t, err)

	hub := notifications.NewHub()
	m := metrics.NewServer(prometheus.NewRegistry())
	s := rest.NewServer(cfg, nil, us, refreshtokens.NewMemoryRepository(), hub, rest.WithMetrics(m, nil))

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &backend{url: srv.URL, hub: hub, metrics: m, annID: ann.ID}
}

func testConfig(serverURL, storePath string) *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ServerURL = serverURL
	cfg.StorePath = storePath
	cfg.SyncInterval = 0
	cfg.ReconnectDelay = 20 * time.Millisecond
	cfg.IdleCoalesce = 10 * time.Millisecond
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, input string) *App {
	t.Helper()
	a, err := newApp(context.Background(), cfg, strings.NewReader(input), io.Discard, logging.NopLogger{})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func stubCredentials(t *testing.T, email, password string) {
	t.Helper()
	origLine, origSecret := readLine, readSecret
	readLine = func(*bufio.Reader, io.Writer, string) (string, error) { return email, nil }
	readSecret = func(*bufio.Reader, io.Writer, string) ([]byte, error) { return []byte(password), nil }
	t.Cleanup(func() { readLine, readSecret = origLine, origSecret })
}

func TestApp_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	out := capturePrint(t)
	b := startBackend(t, time.Second)
	a := newTestApp(t, testConfig(b.url, filepath.Join(t.TempDir(), "session.db")), "")

	stubCredentials(t, "ann@example.com", "secret")
	require.NoError(t, a.Login(ctx))
	require.True(t, a.isLoggedIn())
	assert.True(t, out.Contains("Logged in as Ann <ann@example.com>."))
	require.Eventually(t, a.notes.Online, waitFor, tick, "stream opens after login")

	// Let whatever credential is current run out, then hit the API from
	// several goroutines at once: one reissue serves all of them.
	reissuesBefore := testutil.ToFloat64(b.metrics.Reissues.WithLabelValues("ok"))
	time.Sleep(1500 * time.Millisecond)

	const k = 5
	var wg sync.WaitGroup
	errs := make([]error, k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = a.api.Me(ctx)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, reissuesBefore+1, testutil.ToFloat64(b.metrics.Reissues.WithLabelValues("ok")))
	assert.True(t, a.isLoggedIn())

	// Live notification.
	n, _ := b.hub.Publish(b.annID, "COMMENT", "Dinner moved", "8pm", nil)
	require.Eventually(t, func() bool { return a.notes.UnreadCount() == 1 }, waitFor, tick)
	assert.True(t, out.Contains("New notification: [COMMENT] Dinner moved"))

	require.NoError(t, a.Notifications(ctx))
	assert.True(t, out.Contains("* #"+strconv.FormatInt(n.ID, 10)+" [COMMENT] Dinner moved: 8pm"))

	require.NoError(t, a.Read(ctx, []string{strconv.FormatInt(n.ID, 10)}))
	assert.Zero(t, a.notes.UnreadCount())
	assert.Zero(t, b.hub.UnreadCount(b.annID))

	require.NoError(t, a.Status(ctx))
	assert.True(t, out.Contains("Live updates: open"))
	assert.True(t, out.Contains("Credential saved: "))

	require.NoError(t, a.Logout(ctx))
	assert.False(t, a.isLoggedIn())
	assert.Equal(t, stream.StateIdle, a.notes.ChannelState())
	require.Eventually(t, func() bool { return testutil.ToFloat64(b.metrics.StreamClients) == 0 }, waitFor, tick)

	// The background logout drops the refresh session on the server.
	require.Eventually(t, func() bool {
		err := a.api.Do(ctx, http.MethodPost, common.PathReissue, nil, nil)
		return errors.Is(err, common.ErrUnauthorized)
	}, waitFor, 20*time.Millisecond)
}

func TestApp_LoginRejected(t *testing.T) {
	out := capturePrint(t)
	b := startBackend(t, time.Minute)
	a := newTestApp(t, testConfig(b.url, filepath.Join(t.TempDir(), "session.db")), "")

	stubCredentials(t, "ann@example.com", "nope")
	err := a.Login(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.False(t, a.isLoggedIn())
	assert.True(t, out.Contains("Login failed: invalid email or password"))
}

func TestApp_OAuth(t *testing.T) {
	out := capturePrint(t)
	b := startBackend(t, time.Minute)
	a := newTestApp(t, testConfig(b.url, filepath.Join(t.TempDir(), "session.db")), "")

	stubCredentials(t, "ann@example.com", "")
	require.NoError(t, a.OAuth(context.Background()))

	assert.True(t, a.isLoggedIn())
	assert.True(t, out.Contains("Logged in as Ann <ann@example.com>."))

	stubCredentials(t, "nobody@example.com", "")
	other := newTestApp(t, testConfig(b.url, filepath.Join(t.TempDir(), "other.db")), "")
	assert.Error(t, other.OAuth(context.Background()))
	assert.False(t, other.isLoggedIn())
}

func TestApp_IdleTimeoutLogsOut(t *testing.T) {
	out := capturePrint(t)
	b := startBackend(t, time.Minute)

	cfg := testConfig(b.url, filepath.Join(t.TempDir(), "session.db"))
	cfg.IdleTimeout = 150 * time.Millisecond
	a := newTestApp(t, cfg, "")

	stubCredentials(t, "ann@example.com", "secret")
	require.NoError(t, a.Login(context.Background()))

	require.Eventually(t, func() bool { return !a.isLoggedIn() }, waitFor, tick)
	require.Eventually(t, func() bool { return out.Contains("inactivity") }, waitFor, tick)
	assert.Equal(t, stream.StateIdle, a.notes.ChannelState())
}

func TestApp_ResumesStoredSession(t *testing.T) {
	out := capturePrint(t)
	b := startBackend(t, time.Minute)
	store := filepath.Join(t.TempDir(), "session.db")

	first := newTestApp(t, testConfig(b.url, store), "")
	stubCredentials(t, "ann@example.com", "secret")
	require.NoError(t, first.Login(context.Background()))
	first.Close()

	second := newTestApp(t, testConfig(b.url, store), "status\nexit\n")
	require.NoError(t, second.Run(context.Background()))

	assert.True(t, out.Contains("Welcome back, Ann."))
	assert.True(t, out.Contains("Session: logged-in as ann@example.com"))
	assert.True(t, out.Contains("Bye!"))
}

func TestApp_RefreshFailureEndsSession(t *testing.T) {
	ctx := context.Background()
	out := capturePrint(t)
	b := startBackend(t, time.Second)
	store := filepath.Join(t.TempDir(), "session.db")

	first := newTestApp(t, testConfig(b.url, store), "")
	stubCredentials(t, "ann@example.com", "secret")
	require.NoError(t, first.Login(ctx))
	first.Close()

	// A fresh process has the stored credential but no refresh cookie.
	second := newTestApp(t, testConfig(b.url, store), "")
	require.NoError(t, second.session.CheckStartupSession(ctx))
	require.True(t, second.isLoggedIn())

	time.Sleep(1500 * time.Millisecond)
	_ = second.Me(ctx)

	require.Eventually(t, func() bool { return !second.isLoggedIn() }, waitFor, tick)
	assert.True(t, out.Contains("Your session has expired. Please log in again."))
}

func TestApp_CommandsRequireLogin(t *testing.T) {
	out := capturePrint(t)
	b := startBackend(t, time.Minute)
	a := newTestApp(t, testConfig(b.url, filepath.Join(t.TempDir(), "session.db")), "")
	ctx := context.Background()

	assert.ErrorIs(t, a.Me(ctx), errNotLoggedIn)
	assert.ErrorIs(t, a.Notifications(ctx), errNotLoggedIn)
	assert.ErrorIs(t, a.Read(ctx, []string{"1"}), errNotLoggedIn)
	assert.ErrorIs(t, a.ReadAll(ctx), errNotLoggedIn)
	assert.ErrorIs(t, a.Logout(ctx), errNotLoggedIn)
	assert.True(t, out.Contains("Please log in first."))

	require.NoError(t, a.Stats(ctx))
	assert.True(t, out.Contains("client_reissues_total"))
}

func TestApp_ReadArguments(t *testing.T) {
	out := capturePrint(t)
	b := startBackend(t, time.Minute)
	a := newTestApp(t, testConfig(b.url, filepath.Join(t.TempDir(), "session.db")), "")
	ctx := context.Background()

	stubCredentials(t, "ann@example.com", "secret")
	require.NoError(t, a.Login(ctx))

	assert.Error(t, a.Read(ctx, nil))
	assert.True(t, out.Contains("Usage: read <id>"))

	assert.Error(t, a.Read(ctx, []string{"abc"}))
	assert.True(t, out.Contains("Notification id must be a number."))

	assert.Error(t, a.Read(ctx, []string{"999"}))
	assert.True(t, out.Contains("Server did not confirm: notification not found"))
}
