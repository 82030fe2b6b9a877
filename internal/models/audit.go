package models

import "time"

// AuditAction constants represent gateway events worth a trail entry.
const (
	AuditActionLogin         = "LOGIN"
	AuditActionLogout        = "LOGOUT"
	AuditActionRenewalFailed = "RENEWAL_FAILED"
	AuditActionExport        = "EXPORT"
)

// AuditLog represents one audit trail record in the gateway database.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	SessionID  *string   `db:"session_id" json:"session_id,omitempty"`
	Username   string    `db:"username" json:"username"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Detail     []byte    `db:"detail" json:"detail,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
