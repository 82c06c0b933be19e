package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/tripmate/internal/client/tokenstore"
	"github.com/dmitrijs2005/tripmate/internal/common"
	"github.com/dmitrijs2005/tripmate/internal/logging"
	"github.com/dmitrijs2005/tripmate/internal/metrics"
)

const (
	// DefaultTimeout bounds every ordinary request. Streams are bounded by
	// their context only.
	DefaultTimeout = 10 * time.Second

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 * 1024

	reissueKey = "reissue"
)

type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  tokenstore.Store
	timeout time.Duration
	log     logging.Logger
	metrics *metrics.Client

	// refresh is the single-flight gate for /reissue: one call in flight,
	// every concurrent caller receives its result.
	refresh singleflight.Group

	mu         sync.Mutex
	nextSubID  int
	expiredSub map[int]func(error)
	onActivity func()
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying transport client. Its Jar must
// keep cookies for the refresh artifact to travel.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = logging.OrNop(l) }
}

func WithMetrics(m *metrics.Client) Option {
	return func(c *HTTPClient) { c.metrics = m }
}

// WithActivityHook registers fn to be called for each outgoing request
// that was not marked Quiet. The idle monitor uses it as its network
// activity signal.
func WithActivityHook(fn func()) Option {
	return func(c *HTTPClient) { c.onActivity = fn }
}

// NewHTTPClient builds a client for the backend at baseURL.
func NewHTTPClient(baseURL string, tokens tokenstore.Store, opts ...Option) (*HTTPClient, error) {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		timeout:    DefaultTimeout,
		log:        logging.NopLogger{},
		expiredSub: make(map[int]func(error)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, err
		}
		c.http = &http.Client{Jar: jar}
	}
	return c, nil
}

// OnSessionExpired subscribes fn to terminal refresh failures. fn runs
// once per failed reissue, on the goroutine that performed it.
func (c *HTTPClient) OnSessionExpired(fn func(error)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.expiredSub[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.expiredSub, id)
		c.mu.Unlock()
	}
}

func (c *HTTPClient) notifyExpired(err error) {
	c.mu.Lock()
	subs := make([]func(error), 0, len(c.expiredSub))
	for _, fn := range c.expiredSub {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(err)
	}
}

type quietKey struct{}

// Quiet marks ctx so requests made with it do not count as user activity.
// Background sync uses it so polling cannot keep an idle session alive.
func Quiet(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietKey{}, true)
}

func isQuiet(ctx context.Context) bool {
	v, _ := ctx.Value(quietKey{}).(bool)
	return v
}

type request struct {
	method string
	path   string
	body   []byte
	stream bool

	// credential, when set, is sent instead of the stored one.
	credential *string
	// noRefresh disables the expired-credential protocol.
	noRefresh bool
}

func (c *HTTPClient) send(ctx context.Context, r request, credential string) (*http.Response, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if credential != "" {
		req.Header.Set(common.AccessTokenHeaderName, credential)
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.stream {
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	if c.onActivity != nil && !isQuiet(ctx) {
		c.onActivity()
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return resp, nil
}

// errorFrom drains and closes resp and converts it to an *APIError.
func errorFrom(resp *http.Response) *APIError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return parseAPIError(resp.StatusCode, body)
}

// do runs r through the credential pipeline. On success the response body
// is open and owned by the caller; any status >= 400 is returned as an
// *APIError with the body already closed.
func (c *HTTPClient) do(ctx context.Context, r request) (*http.Response, error) {
	var credential string
	if r.credential != nil {
		credential = *r.credential
	} else {
		credential, _ = c.tokens.Get()
	}

	resp, err := c.send(ctx, r, credential)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusBadRequest {
		return resp, nil
	}

	apiErr := errorFrom(resp)
	if r.noRefresh || r.credential != nil || !apiErr.Expired() {
		return nil, apiErr
	}

	fresh, err := c.refreshAfter(ctx, credential)
	if err != nil {
		return nil, err
	}

	// The single permitted replay. Whatever it returns is final.
	c.metrics.Replay(r.path)
	resp, err = c.send(ctx, r, fresh)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errorFrom(resp)
	}
	return resp, nil
}

// refreshAfter returns a credential newer than stale. When another
// request has already rotated the credential it is returned directly;
// otherwise the caller joins (or starts) the single in-flight reissue.
func (c *HTTPClient) refreshAfter(ctx context.Context, stale string) (string, error) {
	current, ok := c.tokens.Get()
	if !ok {
		// Cleared by logout or an earlier failed reissue; a reissue now
		// would bring a finished session back.
		return "", &SessionExpiredError{Err: common.ErrNoCredential}
	}
	if current != stale {
		return current, nil
	}

	ch := c.refresh.DoChan(reissueKey, func() (any, error) {
		return c.reissue(context.WithoutCancel(ctx), stale)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// reissue performs POST /reissue. The refresh cookie travels through the
// cookie jar; there is no body. Failure is terminal for the session. The
// fresh credential is stored only while stale is still current.
func (c *HTTPClient) reissue(ctx context.Context, stale string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.metrics.Reissue()
	c.log.Info(ctx, "access credential expired, reissuing")

	resp, err := c.send(Quiet(ctx), request{method: http.MethodPost, path: common.PathReissue}, "")
	if err == nil {
		if resp.StatusCode >= http.StatusBadRequest {
			err = errorFrom(resp)
		} else {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			fresh := resp.Header.Get(common.AccessTokenHeaderName)
			if fresh == "" {
				err = ErrNoCredential
			} else if !c.tokens.Replace(stale, fresh) {
				// Logged out while the reissue was in flight.
				return "", &SessionExpiredError{Err: common.ErrNoCredential}
			} else {
				return fresh, nil
			}
		}
	}

	c.tokens.Clear()
	c.metrics.ReissueFailed()
	expired := &SessionExpiredError{Err: err}
	c.log.Warn(ctx, "reissue failed, session ended", "error", err)
	c.notifyExpired(expired)
	return "", expired
}

// doJSON sends in (when non-nil) as JSON and decodes a 2xx body into out
// (when non-nil), bounded by the client timeout.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	r := request{method: method, path: path}
	if in != nil {
		b, err := marshal(in)
		if err != nil {
			return err
		}
		r.body = b
	}

	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// Do sends a JSON request through the credential pipeline. It is the
// general entry point for endpoints without a dedicated method.
func (c *HTTPClient) Do(ctx context.Context, method, path string, in, out any) error {
	return c.doJSON(ctx, method, path, in, out)
}

// Stream opens a long-lived text/event-stream response. There is no
// timeout; ctx bounds the connection. The caller must close the body.
func (c *HTTPClient) Stream(ctx context.Context, path string) (*http.Response, error) {
	if _, ok := c.tokens.Get(); !ok {
		return nil, common.ErrNoCredential
	}
	return c.do(Quiet(ctx), request{method: http.MethodGet, path: path, stream: true})
}
