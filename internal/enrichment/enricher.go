package enrichment

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/crm-backend/internal/domain"
	"github.com/ignite/crm-backend/internal/pkg/logger"
)

// Scorer is the scoring service surface the pipeline needs.
// Satisfied by *Client.
type Scorer interface {
	PredictChurn(ctx context.Context, features []ChurnFeatures) ([]ChurnScore, error)
	Recommend(ctx context.Context, features []RecommendFeatures) ([]Recommendation, error)
}

// Scores is the full enrichment result for one customer.
type Scores struct {
	ChurnProbability float64  `json:"churn_probability"`
	PredictedChurn   int      `json:"predicted_churn"`
	ClusterID        int      `json:"cluster_id"`
	Recommendations  []string `json:"recommendations"`
}

// ScoreStore persists enrichment results.
type ScoreStore interface {
	UpdateScores(ctx context.Context, ownerID, customerID string, s Scores) error
}

// Enricher runs the two-stage scoring pipeline and persists the
// merged result. Stage two consumes stage one's output, so a stage
// one failure means nothing is written at all.
type Enricher struct {
	scorer Scorer
	store  ScoreStore
	now    func() time.Time
}

// NewEnricher creates an Enricher.
func NewEnricher(scorer Scorer, store ScoreStore) *Enricher {
	return &Enricher{scorer: scorer, store: store, now: time.Now}
}

// SetNow overrides the clock used for recency and tenure features.
func (e *Enricher) SetNow(now func() time.Time) {
	e.now = now
}

// Enrich scores the given customers and persists the results. The
// returned customers carry the new scores. No partial application: a
// response that cannot be keyed back to every requested customer
// fails the whole run with ErrScoreMismatch.
func (e *Enricher) Enrich(ctx context.Context, ownerID string, customers []domain.Customer) ([]domain.Customer, error) {
	if len(customers) == 0 {
		return nil, nil
	}

	now := e.now()
	features := make([]ChurnFeatures, len(customers))
	for i, c := range customers {
		features[i] = FeaturesFor(c, now)
	}

	churnScores, err := e.scorer.PredictChurn(ctx, features)
	if err != nil {
		return nil, fmt.Errorf("churn stage: %w", err)
	}
	churnByID, err := keyChurnScores(features, churnScores)
	if err != nil {
		return nil, err
	}

	recFeatures := make([]RecommendFeatures, len(features))
	for i, f := range features {
		recFeatures[i] = RecommendFeatures{
			ChurnFeatures:    f,
			ChurnProbability: churnByID[f.CustomerID].ChurnProbability,
		}
	}

	recommendations, err := e.scorer.Recommend(ctx, recFeatures)
	if err != nil {
		return nil, fmt.Errorf("recommendation stage: %w", err)
	}
	recsByID, err := keyRecommendations(features, recommendations)
	if err != nil {
		return nil, err
	}

	enriched := make([]domain.Customer, len(customers))
	for i, c := range customers {
		churn := churnByID[c.ID]
		rec := recsByID[c.ID]
		s := Scores{
			ChurnProbability: churn.ChurnProbability,
			PredictedChurn:   churn.PredictedClass,
			ClusterID:        rec.ClusterID,
			Recommendations:  rec.Recommendations,
		}

		if err := e.store.UpdateScores(ctx, ownerID, c.ID, s); err != nil {
			return nil, fmt.Errorf("persist scores for customer %s: %w", c.ID, err)
		}

		c.ChurnProbability = &s.ChurnProbability
		c.PredictedChurn = &s.PredictedChurn
		c.ClusterID = &s.ClusterID
		c.Recommendations = s.Recommendations
		enriched[i] = c
	}

	logger.Info("enrichment completed", "customers", len(enriched))
	return enriched, nil
}

func keyChurnScores(requested []ChurnFeatures, scores []ChurnScore) (map[string]ChurnScore, error) {
	byID := make(map[string]ChurnScore, len(scores))
	for _, s := range scores {
		byID[s.CustomerID] = s
	}
	for _, f := range requested {
		if _, ok := byID[f.CustomerID]; !ok {
			return nil, fmt.Errorf("%w: no churn score for customer %s", ErrScoreMismatch, f.CustomerID)
		}
	}
	return byID, nil
}

func keyRecommendations(requested []ChurnFeatures, recs []Recommendation) (map[string]Recommendation, error) {
	byID := make(map[string]Recommendation, len(recs))
	for _, r := range recs {
		byID[r.CustomerID] = r
	}
	for _, f := range requested {
		if _, ok := byID[f.CustomerID]; !ok {
			return nil, fmt.Errorf("%w: no recommendation for customer %s", ErrScoreMismatch, f.CustomerID)
		}
	}
	return byID, nil
}
