package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/tripmate/internal/client/client"
	"github.com/dmitrijs2005/tripmate/internal/client/idle"
	"github.com/dmitrijs2005/tripmate/internal/client/models"
	"github.com/dmitrijs2005/tripmate/internal/client/tokenstore"
	"github.com/dmitrijs2005/tripmate/internal/common"
	"github.com/dmitrijs2005/tripmate/internal/logging"
	"github.com/dmitrijs2005/tripmate/internal/metrics"
)

const defaultLogoutTimeout = 10 * time.Second

type SessionEventKind int

const (
	// SessionAuthenticated is published when the session enters LoggedIn.
	SessionAuthenticated SessionEventKind = iota
	// SessionEnded is published when the session becomes unauthenticated.
	SessionEnded
)

// EndReason says why a session ended.
type EndReason string

const (
	EndLogout  EndReason = "logout"
	EndIdle    EndReason = "idle"
	EndExpired EndReason = "expired"
)

type SessionEvent struct {
	Kind   SessionEventKind
	User   *models.UserProfile
	Reason EndReason
	// Err is the refresh failure for EndExpired.
	Err error
}

type SessionOption func(*SessionController)

// WithIdleMonitor arms m with timeout whenever the session is logged in.
// Idle expiry logs the user out.
func WithIdleMonitor(m *idle.Monitor, timeout time.Duration) SessionOption {
	return func(s *SessionController) {
		s.idle = m
		s.idleTimeout = timeout
	}
}

func WithSessionLogger(l logging.Logger) SessionOption {
	return func(s *SessionController) { s.log = logging.OrNop(l) }
}

func WithSessionMetrics(m *metrics.Client) SessionOption {
	return func(s *SessionController) { s.metrics = m }
}

// WithLogoutTimeout bounds the best-effort server logout call.
func WithLogoutTimeout(d time.Duration) SessionOption {
	return func(s *SessionController) {
		if d > 0 {
			s.logoutTimeout = d
		}
	}
}

// SessionController owns the authentication state. It is the only writer
// of the Session snapshot and the only component that ends a session.
type SessionController struct {
	client        client.Client
	tokens        tokenstore.Store
	idle          *idle.Monitor
	idleTimeout   time.Duration
	logoutTimeout time.Duration
	log           logging.Logger
	metrics       *metrics.Client

	mu      sync.Mutex
	session models.Session
	nextID  int
	subs    map[int]func(SessionEvent)

	pending      sync.WaitGroup
	unsubExpired func()
}

func NewSessionController(c client.Client, tokens tokenstore.Store, opts ...SessionOption) *SessionController {
	s := &SessionController{
		client:        c,
		tokens:        tokens,
		logoutTimeout: defaultLogoutTimeout,
		log:           logging.NopLogger{},
		session:       models.Session{Status: models.SessionUnknown, Loading: true},
		subs:          make(map[int]func(SessionEvent)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.unsubExpired = c.OnSessionExpired(s.expire)
	return s
}

// Subscribe registers fn for lifecycle events. fn is called synchronously
// from the goroutine that changed the state.
func (s *SessionController) Subscribe(fn func(SessionEvent)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *SessionController) State() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *SessionController) publish(ev SessionEvent) {
	s.mu.Lock()
	fns := make([]func(SessionEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// CheckStartupSession resolves the initial Unknown state. With a stored
// credential it fetches the profile; any failure clears the credential.
// The session is never left loading.
func (s *SessionController) CheckStartupSession(ctx context.Context) error {
	if _, ok := s.tokens.Get(); !ok {
		s.setLoggedOut()
		return nil
	}

	profile, err := s.client.Me(ctx)
	if err != nil {
		s.tokens.Clear()
		s.setLoggedOut()
		s.log.Info(ctx, "stored session rejected", "error", err)
		return fmt.Errorf("startup session check: %w", err)
	}
	return s.Login(profile)
}

func (s *SessionController) setLoggedOut() {
	s.mu.Lock()
	s.session = models.Session{Status: models.SessionLoggedOut}
	s.mu.Unlock()
}

// Login records profile as the authenticated user after a successful
// credential-issuing call. It does not contact the backend.
func (s *SessionController) Login(profile *models.UserProfile) error {
	if profile == nil {
		return errors.New("login: nil profile")
	}
	if _, ok := s.tokens.Get(); !ok {
		return fmt.Errorf("login: %w", common.ErrNoCredential)
	}

	s.mu.Lock()
	already := s.session.Status == models.SessionLoggedIn
	s.session = models.Session{Status: models.SessionLoggedIn, User: profile}
	s.mu.Unlock()

	if already {
		return nil
	}

	if s.idle != nil && s.idleTimeout > 0 {
		s.idle.Start(s.idleTimeout, s.idleExpired)
	}
	s.log.Info(context.Background(), "logged in", "user", profile.Email)
	s.publish(SessionEvent{Kind: SessionAuthenticated, User: profile})
	return nil
}

// SignIn authenticates with email and password, loads the profile and
// logs in.
func (s *SessionController) SignIn(ctx context.Context, email string, password []byte) (*models.UserProfile, error) {
	if err := s.client.Login(ctx, email, password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return s.finishSignIn(ctx)
}

// SignInOAuth completes an OAuth2 provider redirect: the refresh cookie is
// already set and is exchanged for an access credential.
func (s *SessionController) SignInOAuth(ctx context.Context) (*models.UserProfile, error) {
	if err := s.client.ExchangeOAuth(ctx); err != nil {
		return nil, fmt.Errorf("oauth exchange: %w", err)
	}
	return s.finishSignIn(ctx)
}

func (s *SessionController) finishSignIn(ctx context.Context) (*models.UserProfile, error) {
	profile, err := s.client.Me(ctx)
	if err != nil {
		s.tokens.Clear()
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if err := s.Login(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Logout ends the session. The server call is best effort and runs in the
// background; local teardown is complete when Logout returns.
func (s *SessionController) Logout() {
	s.end(EndLogout, nil, true)
}

func (s *SessionController) idleExpired() {
	s.metrics.IdleLogout()
	s.log.Info(context.Background(), "session idle, logging out", "timeout", s.idleTimeout)
	s.end(EndIdle, nil, true)
}

// expire handles a failed reissue. The backend already refused the
// session, so no logout call is made.
func (s *SessionController) expire(err error) {
	s.end(EndExpired, err, false)
}

func (s *SessionController) end(reason EndReason, cause error, callServer bool) {
	credential, had := s.tokens.Get()
	if callServer && had {
		s.pending.Add(1)
		go s.serverLogout(credential)
	}

	s.tokens.Clear()
	if s.idle != nil {
		s.idle.Stop()
	}

	s.mu.Lock()
	wasIn := s.session.Status == models.SessionLoggedIn
	s.session = models.Session{Status: models.SessionLoggedOut}
	s.mu.Unlock()

	if !wasIn {
		return
	}
	s.log.Info(context.Background(), "session ended", "reason", string(reason))
	s.publish(SessionEvent{Kind: SessionEnded, Reason: reason, Err: cause})
}

func (s *SessionController) serverLogout(credential string) {
	defer s.pending.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.logoutTimeout)
	defer cancel()

	if err := s.client.Logout(ctx, credential); err != nil {
		s.log.Warn(ctx, "server logout failed", "error", err)
	}
}

// Close stops the controller from reacting to refresh failures and waits
// for in-flight logout calls until ctx is done.
func (s *SessionController) Close(ctx context.Context) error {
	if s.unsubExpired != nil {
		s.unsubExpired()
	}
	if s.idle != nil {
		s.idle.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
