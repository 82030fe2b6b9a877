package models

import "time"

// SessionState tracks where a session sits in the token lifecycle.
// Anonymous and Authenticated are the stable states; Checking and
// Renewing are transient and resolve within a bounded number of
// upstream round trips.
type SessionState string

const (
	SessionAnonymous     SessionState = "anonymous"
	SessionChecking      SessionState = "checking"
	SessionAuthenticated SessionState = "authenticated"
	SessionRenewing      SessionState = "renewing"
	SessionExpired       SessionState = "expired"
)

// Session holds the upstream token pair and cached profile for one
// signed-in browser. The browser only ever sees the opaque session ID;
// tokens never leave the gateway.
type Session struct {
	ID           string       `json:"id"`
	AccessToken  string       `json:"access_token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	User         *User        `json:"user,omitempty"`
	State        SessionState `json:"state"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Role returns the session's role, or the empty role when anonymous.
func (s *Session) Role() UserRole {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.Role
}

// Username returns the signed-in username, or "" when anonymous.
func (s *Session) Username() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.Username
}

// Authenticated reports whether the session holds an access token.
func (s *Session) Authenticated() bool {
	return s != nil && s.State == SessionAuthenticated && s.AccessToken != ""
}

// Clear wipes all credential and profile fields and drops the session
// back to anonymous. Called on sign-out and on renewal failure.
func (s *Session) Clear() {
	if s == nil {
		return
	}
	s.AccessToken = ""
	s.RefreshToken = ""
	s.User = nil
	s.State = SessionAnonymous
	s.UpdatedAt = time.Now().UTC()
}
