package domain

import "time"

// Password reset request states.
const (
	ResetPending   = "pending"
	ResetCompleted = "completed"
	ResetFailed    = "failed"
)

// PasswordResetRequest tracks one issued reset token.
type PasswordResetRequest struct {
	ID               string    `json:"id"`
	MembershipNumber string    `json:"membership_number"`
	Email            string    `json:"email"`
	Status           string    `json:"status"`
	Token            string    `json:"token"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
