package domain

import "time"

// LogStatus records the outcome of a single delivery attempt.
type LogStatus string

const (
	LogStatusSent   LogStatus = "sent"
	LogStatusFailed LogStatus = "failed"
)

// CommunicationLog is one row of the append-only delivery audit trail.
// Exactly one row is written per recipient per dispatch attempt.
type CommunicationLog struct {
	ID         string    `json:"id" db:"id"`
	CampaignID string    `json:"campaign_id" db:"campaign_id"`
	CustomerID string    `json:"customer_id" db:"customer_id"`
	Email      string    `json:"email" db:"email"`
	Status     LogStatus `json:"status" db:"status"`
	Error      string    `json:"error,omitempty" db:"error"`
	SentAt     time.Time `json:"sent_at" db:"sent_at"`
}
