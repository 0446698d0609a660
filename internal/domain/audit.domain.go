package domain

import "time"

// Audit log actions emitted by the reconciliation job.
const (
	ActionProcessRegistrations   = "cron_process_registrations"
	ActionRegistrationProcessed  = "cron_new_registration_processed"
	ActionRegistrationDuplicate  = "cron_registration_duplicate"
	ActionRegistrationError      = "cron_process_registration_error"
	ActionCleanupExpiredResets   = "cron_cleanup_expired_resets"
	ActionPasswordResetRequested = "password_reset_requested"
	ActionPasswordResetCompleted = "password_reset_completed"
)

// Audit log outcomes.
const (
	StatusSuccess       = "success"
	StatusFailed        = "failed"
	StatusDuplicate     = "duplicate"
	StatusMissingConfig = "failed_missing_config"
)

// LogEntry is one append-only audit record. User holds a membership number
// or "system"/"admin".
type LogEntry struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Action    string    `json:"action"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
