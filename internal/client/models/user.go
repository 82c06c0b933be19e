package models

// UserProfile is the server-sourced identity snapshot returned by
// GET /api/user/me. It is replaced wholesale, never patched.
type UserProfile struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
