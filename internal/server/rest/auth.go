package rest

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/tripmate/internal/common"
	"github.com/dmitrijs2005/tripmate/internal/server/auth"
	"github.com/dmitrijs2005/tripmate/internal/server/users"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func profileOf(u *users.User) profileResponse {
	return profileResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// startSession creates a refresh token for userID and sets it as the
// httpOnly refresh cookie.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, userID int64) (string, error) {
	token := uuid.NewString()
	if err := s.tokens.Create(r.Context(), userID, token, s.refreshTTL); err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.refreshTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// grantAccess puts a fresh access credential for the session in the
// response header.
func (s *Server) grantAccess(w http.ResponseWriter, userID int64, sessionID string) error {
	accessToken, err := auth.GenerateToken(userID, sessionID, s.jwtSecret, s.accessTTL)
	if err != nil {
		return err
	}
	w.Header().Set(common.AccessTokenHeaderName, accessToken)
	return nil
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "malformed login request")
		return
	}

	user, err := s.users.Authenticate(r.Context(), req.Email, []byte(req.Password))
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			s.metrics.Login("rejected")
			writeError(w, http.StatusUnauthorized, codeBadCredentials, "invalid email or password")
			return
		}
		s.logger.Error(r.Context(), "login failed", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "login failed")
		return
	}

	sessionID, err := s.startSession(w, r, user.ID)
	if err == nil {
		err = s.grantAccess(w, user.ID, sessionID)
	}
	if err != nil {
		s.logger.Error(r.Context(), "issuing credentials failed", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "login failed")
		return
	}

	s.metrics.Login("ok")
	s.logger.Info(r.Context(), "user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, profileOf(user))
}

// refreshFromCookie issues a new access credential for the session named
// by the refresh cookie.
func (s *Server) refreshFromCookie(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(common.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		s.metrics.Reissue("rejected")
		writeError(w, http.StatusUnauthorized, codeBadRefresh, "missing refresh token")
		return
	}

	rt, err := s.tokens.Find(r.Context(), cookie.Value)
	if err != nil {
		s.metrics.Reissue("rejected")
		clearRefreshCookie(w)
		writeError(w, http.StatusUnauthorized, codeBadRefresh, "refresh token invalid or expired")
		return
	}

	if err := s.grantAccess(w, rt.UserID, rt.Token); err != nil {
		s.logger.Error(r.Context(), "issuing access credential failed", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "reissue failed")
		return
	}

	s.metrics.Reissue("ok")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reissue(w http.ResponseWriter, r *http.Request) {
	s.refreshFromCookie(w, r)
}

// exchangeToken finalizes an OAuth2 login: the provider redirect has set
// the refresh cookie and the client trades it for an access credential.
func (s *Server) exchangeToken(w http.ResponseWriter, r *http.Request) {
	s.refreshFromCookie(w, r)
}

// logout drops the refresh session named by the credential. Expired
// credentials are accepted. The cookie is cleared only when it belongs to
// that session, so a late logout cannot undo a newer login.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ParseTokenIgnoringExpiry(r.Header.Get(common.AccessTokenHeaderName), s.jwtSecret)
	if err == nil {
		if err := s.tokens.Delete(r.Context(), claims.SessionID); err != nil {
			s.logger.Warn(r.Context(), "dropping refresh session failed", "error", err)
		}
		if cookie, cerr := r.Cookie(common.RefreshCookieName); cerr == nil && cookie.Value == claims.SessionID {
			clearRefreshCookie(w)
		}
		s.logger.Info(r.Context(), "user logged out", "user_id", claims.UserID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	user, err := s.users.Get(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unknown user")
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternal, "profile lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, profileOf(user))
}

type devOAuthRequest struct {
	Email string `json:"email"`
}

// devOAuth plays the OAuth2 provider's redirect: it sets the refresh
// cookie for an existing user without a password.
func (s *Server) devOAuth(w http.ResponseWriter, r *http.Request) {
	var req devOAuthRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "malformed request")
		return
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusNotFound, codeNotFound, "unknown user")
		return
	}

	if _, err := s.startSession(w, r, user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "could not start session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
