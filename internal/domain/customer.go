package domain

import "time"

// Customer represents a single customer record owned by the user who
// uploaded it. Email is unique per uploader, not globally.
type Customer struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	Phone string `json:"phone" db:"phone"`

	// Address
	City    string `json:"city" db:"city"`
	State   string `json:"state" db:"state"`
	Country string `json:"country" db:"country"`

	// Demographics
	Age        int    `json:"age" db:"age"`
	Gender     string `json:"gender" db:"gender"`
	Occupation string `json:"occupation" db:"occupation"`

	// Purchase stats
	TotalSpent        float64    `json:"total_spent" db:"total_spent"`
	OrderCount        int        `json:"order_count" db:"order_count"`
	AverageOrderValue float64    `json:"average_order_value" db:"average_order_value"`
	LastPurchase      *time.Time `json:"last_purchase" db:"last_purchase"`
	FirstPurchase     *time.Time `json:"first_purchase" db:"first_purchase"`

	Tags     []string `json:"tags" db:"tags"`
	IsActive bool     `json:"is_active" db:"is_active"`

	// Enrichment results. Nil until a scoring run has been persisted.
	ChurnProbability *float64 `json:"churn_probability,omitempty" db:"churn_probability"`
	PredictedChurn   *int     `json:"predicted_churn,omitempty" db:"predicted_churn"`
	ClusterID        *int     `json:"cluster_id,omitempty" db:"cluster_id"`
	Recommendations  []string `json:"recommendations,omitempty" db:"recommendations"`

	UploadedBy string    `json:"uploaded_by" db:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// RecencyDays returns the whole number of days since the last purchase,
// relative to now. Customers with no recorded purchase score 0.
func (c *Customer) RecencyDays(now time.Time) int {
	return wholeDaysSince(c.LastPurchase, now)
}

// TenureDays returns the whole number of days since the first purchase,
// relative to now. Customers with no recorded purchase score 0.
func (c *Customer) TenureDays(now time.Time) int {
	return wholeDaysSince(c.FirstPurchase, now)
}

func wholeDaysSince(t *time.Time, now time.Time) int {
	if t == nil {
		return 0
	}
	d := now.Sub(*t)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}
