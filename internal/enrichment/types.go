// Package enrichment scores customers against the external scoring
// service in two stages: churn prediction first, then product
// recommendations that depend on the churn output.
package enrichment

import (
	"errors"
	"time"

	"github.com/ignite/crm-backend/internal/domain"
)

// ErrScoreMismatch is returned when the scoring service's response
// cannot be correlated back to the customers that were sent. Partial
// or misattributed results are never applied.
var ErrScoreMismatch = errors.New("scoring response does not match requested customers")

// ChurnFeatures is one row of the churn-stage request. CustomerID is
// echoed back by the service so responses correlate by key rather
// than position.
type ChurnFeatures struct {
	CustomerID        string  `json:"customer_id"`
	TotalSpent        float64 `json:"total_spent"`
	OrderCount        int     `json:"order_count"`
	AverageOrderValue float64 `json:"average_order_value"`
	Recency           int     `json:"recency"`
	Tenure            int     `json:"tenure"`
}

// ChurnScore is one row of the churn-stage response.
type ChurnScore struct {
	CustomerID       string  `json:"customer_id"`
	ChurnProbability float64 `json:"churn_probability"`
	PredictedClass   int     `json:"predicted_class"`
}

// RecommendFeatures is one row of the recommendation-stage request:
// the churn features plus the churn probability produced by stage one.
type RecommendFeatures struct {
	ChurnFeatures
	ChurnProbability float64 `json:"churn_probability"`
}

// Recommendation is one row of the recommendation-stage response.
type Recommendation struct {
	CustomerID      string   `json:"customer_id"`
	Recommendations []string `json:"recommendations"`
	ClusterID       int      `json:"cluster_id"`
}

// FeaturesFor derives the churn features for a customer. Recency and
// tenure are whole days relative to now; customers with no purchase
// history score 0 on both.
func FeaturesFor(c domain.Customer, now time.Time) ChurnFeatures {
	return ChurnFeatures{
		CustomerID:        c.ID,
		TotalSpent:        c.TotalSpent,
		OrderCount:        c.OrderCount,
		AverageOrderValue: c.AverageOrderValue,
		Recency:           c.RecencyDays(now),
		Tenure:            c.TenureDays(now),
	}
}
