package services

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/tripmate/internal/client/models"
	"github.com/dmitrijs2005/tripmate/internal/client/stream"
	"github.com/dmitrijs2005/tripmate/internal/client/tokenstore"
)

var errBadCredentials = errors.New("invalid email or password")

// fakeClient implements client.Client for unit tests.
type fakeClient struct {
	mu sync.Mutex

	tokens   tokenstore.Store
	issue    string
	profile  *models.UserProfile
	meErr    error
	loginErr error

	logoutErr  error
	logoutGate chan struct{}
	logouts    []string
	meCalls    int

	unread     []models.Notification
	count      int
	unreadGate chan struct{}
	markErr    error
	marked     []int64
	markedAll  int

	expired func(error)
}

func (f *fakeClient) Login(_ context.Context, _ string, password []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return f.loginErr
	}
	if string(password) != "secret" {
		return errBadCredentials
	}
	f.tokens.Set(f.issue)
	return nil
}

func (f *fakeClient) ExchangeOAuth(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens.Set(f.issue)
	return nil
}

func (f *fakeClient) Me(context.Context) (*models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meCalls++
	if f.meErr != nil {
		return nil, f.meErr
	}
	return f.profile, nil
}

func (f *fakeClient) Logout(_ context.Context, credential string) error {
	if f.logoutGate != nil {
		<-f.logoutGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts = append(f.logouts, credential)
	return f.logoutErr
}

func (f *fakeClient) Logouts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.logouts...)
}

func (f *fakeClient) Unread(context.Context) ([]models.Notification, error) {
	if f.unreadGate != nil {
		<-f.unreadGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Notification(nil), f.unread...), nil
}

func (f *fakeClient) UnreadCount(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, nil
}

func (f *fakeClient) MarkRead(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	return f.markErr
}

func (f *fakeClient) MarkAllRead(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedAll++
	return f.markErr
}

func (f *fakeClient) OnSessionExpired(fn func(error)) func() {
	f.mu.Lock()
	f.expired = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.expired = nil
		f.mu.Unlock()
	}
}

// expire simulates a failed reissue inside the HTTP client.
func (f *fakeClient) expire(err error) {
	f.mu.Lock()
	fn := f.expired
	f.mu.Unlock()
	f.tokens.Clear()
	if fn != nil {
		fn(err)
	}
}

// fakeChannel implements Channel without a network.
type fakeChannel struct {
	mu          sync.Mutex
	state       stream.State
	connects    int
	disconnects int
	nextID      int
	handlers    map[int]func(models.Notification)
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: make(map[int]func(models.Notification))}
}

func (c *fakeChannel) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	c.state = stream.StateOpen
}

func (c *fakeChannel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	c.state = stream.StateIdle
}

func (c *fakeChannel) State() stream.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeChannel) setState(s stream.State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *fakeChannel) Subscribe(fn func(models.Notification)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.handlers, id)
		c.mu.Unlock()
	}
}

func (c *fakeChannel) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers)
}

func (c *fakeChannel) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

func (c *fakeChannel) emit(n models.Notification) {
	for _, fn := range c.subscribed() {
		fn(n)
	}
}

// subscribed returns the current handlers. Calling one later stands in
// for a dispatch that was already running when it unsubscribed.
func (c *fakeChannel) subscribed() []func(models.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fns := make([]func(models.Notification), 0, len(c.handlers))
	for _, fn := range c.handlers {
		fns = append(fns, fn)
	}
	return fns
}
