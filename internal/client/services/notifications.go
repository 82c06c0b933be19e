package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/tripmate/internal/client/client"
	"github.com/dmitrijs2005/tripmate/internal/client/models"
	"github.com/dmitrijs2005/tripmate/internal/client/stream"
	"github.com/dmitrijs2005/tripmate/internal/logging"
)

const DefaultSyncInterval = time.Minute

// NotificationAPI is the REST surface the store needs.
type NotificationAPI interface {
	Unread(ctx context.Context) ([]models.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error
}

// Channel is the push connection the store follows. *stream.Channel
// implements it.
type Channel interface {
	Connect()
	Disconnect()
	State() stream.State
	Subscribe(fn func(models.Notification)) (unsubscribe func())
}

type NotificationOption func(*NotificationStore)

// WithSyncInterval sets how often the store reconciles with the backend.
// Zero or negative disables periodic sync.
func WithSyncInterval(d time.Duration) NotificationOption {
	return func(s *NotificationStore) { s.syncInterval = d }
}

func WithNotificationLogger(l logging.Logger) NotificationOption {
	return func(s *NotificationStore) { s.log = logging.OrNop(l) }
}

// NotificationStore holds the logged-in user's notifications and unread
// count. Local read flags are updated before the server confirms them;
// periodic sync brings any drift back in line with the backend.
type NotificationStore struct {
	api          NotificationAPI
	ch           Channel
	log          logging.Logger
	syncInterval time.Duration

	mu        sync.Mutex
	gen       uint64
	started   bool
	list      []models.Notification
	unread    int
	unsubPush func()
	stopSync  context.CancelFunc
	nextID    int
	onNew     map[int]func(models.Notification)
}

func NewNotificationStore(api NotificationAPI, ch Channel, opts ...NotificationOption) *NotificationStore {
	s := &NotificationStore{
		api:          api,
		ch:           ch,
		log:          logging.NopLogger{},
		syncInterval: DefaultSyncInterval,
		onNew:        make(map[int]func(models.Notification)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnNotification registers fn for each newly received notification.
func (s *NotificationStore) OnNotification(fn func(models.Notification)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.onNew[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.onNew, id)
		s.mu.Unlock()
	}
}

// Start seeds the store from the backend, subscribes to the channel and
// connects it. Calling Start on a started store is a no-op.
func (s *NotificationStore) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	gen := s.gen
	s.mu.Unlock()

	list, err := s.api.Unread(ctx)
	if err != nil {
		return fmt.Errorf("load unread notifications: %w", err)
	}
	count, err := s.api.UnreadCount(ctx)
	if err != nil {
		return fmt.Errorf("load unread count: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Reset or another Start got here first.
	if s.gen != gen || s.started {
		return nil
	}
	s.started = true
	s.list = slices.Clone(list)
	s.unread = max(count, 0)
	s.unsubPush = s.ch.Subscribe(func(n models.Notification) { s.push(gen, n) })
	s.ch.Connect()

	if s.syncInterval > 0 {
		syncCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.stopSync = cancel
		go s.syncLoop(syncCtx)
	}
	return nil
}

// push adds n unless the store was reset after gen started. A dispatch
// already under way when Reset runs still reaches here.
func (s *NotificationStore) push(gen uint64, n models.Notification) {
	s.mu.Lock()
	if s.gen != gen || !s.started {
		s.mu.Unlock()
		return
	}
	if slices.ContainsFunc(s.list, func(e models.Notification) bool { return e.ID == n.ID }) {
		s.mu.Unlock()
		s.log.Debug(context.Background(), "duplicate notification ignored", "id", n.ID)
		return
	}
	s.list = slices.Insert(s.list, 0, n)
	if !n.IsRead {
		s.unread++
	}
	fns := make([]func(models.Notification), 0, len(s.onNew))
	for _, fn := range s.onNew {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(n)
	}
}

// MarkAsRead flips the local entry to read, decrements the count (never
// below zero) and then acknowledges it on the server. A server failure is
// returned; the local change stays until the next sync.
func (s *NotificationStore) MarkAsRead(ctx context.Context, id int64) error {
	s.mu.Lock()
	if i := s.index(id); i >= 0 && !s.list[i].IsRead {
		s.list[i].IsRead = true
		s.unread = max(s.unread-1, 0)
	}
	s.mu.Unlock()

	if err := s.api.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return nil
}

func (s *NotificationStore) MarkAllAsRead(ctx context.Context) error {
	s.mu.Lock()
	for i := range s.list {
		s.list[i].IsRead = true
	}
	s.unread = 0
	s.mu.Unlock()

	if err := s.api.MarkAllRead(ctx); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (s *NotificationStore) index(id int64) int {
	return slices.IndexFunc(s.list, func(e models.Notification) bool { return e.ID == id })
}

// Sync reconciles local state with the backend: the unread count is
// replaced, unread notifications missing locally are added, and local read
// flags follow the server's unread list.
func (s *NotificationStore) Sync(ctx context.Context) error {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	ctx = client.Quiet(ctx)
	unread, err := s.api.Unread(ctx)
	if err != nil {
		return fmt.Errorf("sync unread notifications: %w", err)
	}
	count, err := s.api.UnreadCount(ctx)
	if err != nil {
		return fmt.Errorf("sync unread count: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || !s.started {
		return nil
	}

	serverUnread := make(map[int64]struct{}, len(unread))
	for _, n := range unread {
		serverUnread[n.ID] = struct{}{}
	}
	for i := range s.list {
		_, isUnread := serverUnread[s.list[i].ID]
		s.list[i].IsRead = !isUnread
	}

	var missing []models.Notification
	for _, n := range unread {
		if s.index(n.ID) < 0 {
			missing = append(missing, n)
		}
	}
	s.list = append(missing, s.list...)
	s.unread = max(count, 0)
	return nil
}

func (s *NotificationStore) syncLoop(ctx context.Context) {
	t := time.NewTicker(s.syncInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.Sync(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn(ctx, "notification sync failed", "error", err)
			}
		}
	}
}

// Reset clears all state, stops the periodic sync and disconnects the
// channel. The channel is disconnected when Reset returns.
func (s *NotificationStore) Reset() {
	s.mu.Lock()
	s.gen++
	s.started = false
	s.list = nil
	s.unread = 0
	unsub, stop := s.unsubPush, s.stopSync
	s.unsubPush, s.stopSync = nil, nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if stop != nil {
		stop()
	}
	// Outside s.mu: a dispatch in progress may be waiting for it.
	s.ch.Disconnect()
}

// Notifications returns a copy of the list, newest first.
func (s *NotificationStore) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.list)
}

func (s *NotificationStore) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Online reports whether the push channel is open. After the reconnect
// limit is reached it stays false until the next login.
func (s *NotificationStore) Online() bool {
	return s.ch.State() == stream.StateOpen
}

// ChannelState exposes the push channel state for status displays.
func (s *NotificationStore) ChannelState() stream.State {
	return s.ch.State()
}

// Attach makes the store follow sc: it starts on authentication and
// resets when the session ends. Start runs in the background; its errors
// are logged.
func (s *NotificationStore) Attach(sc *SessionController) (detach func()) {
	start := func() {
		go func() {
			ctx := context.Background()
			if err := s.Start(ctx); err != nil {
				s.log.Warn(ctx, "notification store start failed", "error", err)
			}
		}()
	}

	unsub := sc.Subscribe(func(ev SessionEvent) {
		switch ev.Kind {
		case SessionAuthenticated:
			start()
		case SessionEnded:
			s.Reset()
		}
	})
	if sc.State().LoggedIn() {
		start()
	}
	return unsub
}
