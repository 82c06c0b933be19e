package client

import (
	"context"
	"io"
	"net/http"

	"github.com/dmitrijs2005/tripmate/internal/client/models"
	"github.com/dmitrijs2005/tripmate/internal/common"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login posts the user's credentials. On success the backend returns the
// access credential in the "access" header (stored here) and sets the
// refresh cookie (kept by the jar).
func (c *HTTPClient) Login(ctx context.Context, email string, password []byte) error {
	return c.issue(ctx, common.PathLogin, loginRequest{Email: email, Password: string(password)})
}

// ExchangeOAuth finalizes an OAuth2 provider redirect: the redirect has
// already set the refresh cookie, and POST /api/token trades it for an
// access credential.
func (c *HTTPClient) ExchangeOAuth(ctx context.Context) error {
	return c.issue(ctx, common.PathToken, nil)
}

// issue runs a credential-issuing call. These never go through the
// refresh protocol: a 401 here means bad credentials.
func (c *HTTPClient) issue(ctx context.Context, path string, in any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	r := request{method: http.MethodPost, path: path, noRefresh: true}
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
	_, _ = io.Copy(io.Discard, resp.Body)

	credential := resp.Header.Get(common.AccessTokenHeaderName)
	if credential == "" {
		return ErrNoCredential
	}
	c.tokens.Set(credential)
	return nil
}

// Me fetches the current user's profile.
func (c *HTTPClient) Me(ctx context.Context) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := c.doJSON(ctx, http.MethodGet, common.PathMe, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Logout asks the backend to invalidate the session identified by
// credential. It is sent as-is, outside the refresh protocol, since the
// local session is already gone when this runs.
func (c *HTTPClient) Logout(ctx context.Context, credential string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(Quiet(ctx), request{method: http.MethodPost, path: common.PathLogout, credential: &credential, noRefresh: true})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
