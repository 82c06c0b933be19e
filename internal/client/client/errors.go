package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/tripmate/internal/common"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrNoCredential = errors.New("response carried no access credential")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("api error %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
}

// Expired reports whether the response is the backend's "access
// credential expired" signal.
func (e *APIError) Expired() bool {
	if e.StatusCode != http.StatusUnauthorized {
		return false
	}
	return e.Code == common.TokenExpiredCode || strings.EqualFold(e.Message, common.TokenExpiredMessage)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case common.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case common.ErrTokenExpired:
		return e.Expired()
	case common.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func parseAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		e.Code = eb.Code
		e.Message = eb.Message
		if e.Message == "" {
			e.Message = eb.Error
		}
		return e
	}

	e.Message = strings.TrimSpace(string(body))
	return e
}

// SessionExpiredError is returned when the credential could not be
// reissued. The session is over; the user has to authenticate again.
type SessionExpiredError struct {
	Err error
}

func (e *SessionExpiredError) Error() string {
	if e.Err == nil {
		return common.ErrSessionExpired.Error()
	}
	return fmt.Sprintf("%s: %v", common.ErrSessionExpired, e.Err)
}

func (e *SessionExpiredError) Unwrap() []error {
	if e.Err == nil {
		return []error{common.ErrSessionExpired}
	}
	return []error{common.ErrSessionExpired, e.Err}
}
