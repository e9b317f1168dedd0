package domain

import "time"

// CampaignStatus is the lifecycle state of a campaign dispatch.
type CampaignStatus string

const (
	CampaignStatusDraft      CampaignStatus = "draft"
	CampaignStatusProcessing CampaignStatus = "processing"
	CampaignStatusCompleted  CampaignStatus = "completed"
	CampaignStatusFailed     CampaignStatus = "failed"
)

// IsTerminal reports whether the campaign can no longer change state.
func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignStatusCompleted || s == CampaignStatusFailed
}

// CampaignStats holds the aggregate outcome of a dispatch run.
// DeliveryRate is sent/total*100, or 0 when there were no recipients.
type CampaignStats struct {
	TotalRecipients int     `json:"total_recipients" db:"total_recipients"`
	Sent            int     `json:"sent" db:"sent"`
	Failed          int     `json:"failed" db:"failed"`
	DeliveryRate    float64 `json:"delivery_rate" db:"delivery_rate"`
}

// ComputeDeliveryRate recalculates DeliveryRate from the counters.
func (s *CampaignStats) ComputeDeliveryRate() {
	if s.TotalRecipients == 0 {
		s.DeliveryRate = 0
		return
	}
	s.DeliveryRate = float64(s.Sent) / float64(s.TotalRecipients) * 100
}

// Campaign is an email send targeted at the customers matching a
// segment at dispatch time. Subject and Body may contain template
// placeholders rendered per recipient.
type Campaign struct {
	ID            string         `json:"id" db:"id"`
	Name          string         `json:"name" db:"name"`
	SegmentID     string         `json:"segment_id" db:"segment_id"`
	Subject       string         `json:"subject" db:"subject"`
	Body          string         `json:"body" db:"body"`
	Status        CampaignStatus `json:"status" db:"status"`
	Stats         CampaignStats  `json:"stats"`
	FailureReason string         `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedBy     string         `json:"created_by" db:"created_by"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}
