package models

// LoginRequest holds credentials forwarded to the EMIS backend.
type LoginRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the gateway session handle and cached profile.
// The upstream token pair stays server-side.
type LoginResponse struct {
	SessionID string `json:"session_id"`
	User      *User  `json:"user"`
}

// ExportRequest asks for a transcript export of one student's records.
type ExportRequest struct {
	Format ExportFormat `json:"format" validate:"required,oneof=pdf csv"`
	Query  string       `json:"query"`
}
