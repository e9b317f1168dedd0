package segmentation

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/crm-backend/internal/domain"
)

// estimateCacheTTL bounds how stale a cached match count can get.
const estimateCacheTTL = 60 * time.Second

// Resolver turns rule sets into customer lists and match counts.
// All queries are scoped to a single owner.
type Resolver struct {
	db    *sql.DB
	cache *redis.Client
	now   func() time.Time
}

// NewResolver creates a Resolver. cache may be nil, in which case
// every Estimate call hits the database.
func NewResolver(db *sql.DB, cache *redis.Client) *Resolver {
	return &Resolver{
		db:    db,
		cache: cache,
		now:   time.Now,
	}
}

// SetNow overrides the clock used for day-offset date rules.
func (r *Resolver) SetNow(now func() time.Time) {
	r.now = now
}

// Resolve returns the owner's customers matching the rule set.
func (r *Resolver) Resolve(ctx context.Context, rules domain.RuleSet, ownerID string) ([]domain.Customer, error) {
	if len(rules.Rules) == 0 {
		return nil, ErrEmptyRuleSet
	}

	qb := NewQueryBuilder().SetNow(r.now)
	query, args, err := qb.BuildQuery(rules, ownerID)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return customers, nil
}

// Estimate returns the number of the owner's customers matching the
// rule set. Counts are cached briefly in Redis keyed by the rule-set
// hash; a cache failure falls through to the database.
func (r *Resolver) Estimate(ctx context.Context, rules domain.RuleSet, ownerID string) (int, error) {
	return r.estimate(ctx, rules, ownerID, true)
}

// EstimateFresh counts without consulting the cache. Decisions that
// must see the current data, like rejecting a campaign whose segment
// matches nobody, use this instead of Estimate. The fresh count still
// refreshes the cache on the way out.
func (r *Resolver) EstimateFresh(ctx context.Context, rules domain.RuleSet, ownerID string) (int, error) {
	return r.estimate(ctx, rules, ownerID, false)
}

func (r *Resolver) estimate(ctx context.Context, rules domain.RuleSet, ownerID string, useCache bool) (int, error) {
	if len(rules.Rules) == 0 {
		return 0, ErrEmptyRuleSet
	}

	cacheKey := "crm:segment:estimate:" + HashRules(rules, ownerID)
	if useCache && r.cache != nil {
		if cached, err := r.cache.Get(ctx, cacheKey).Result(); err == nil {
			if count, err := strconv.Atoi(cached); err == nil {
				return count, nil
			}
		}
	}

	qb := NewQueryBuilder().SetNow(r.now)
	query, args, err := qb.BuildCountQuery(rules, ownerID)
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}

	if r.cache != nil {
		r.cache.Set(ctx, cacheKey, strconv.Itoa(count), estimateCacheTTL)
	}

	return count, nil
}

// scanCustomer reads one row in customerColumns order.
func scanCustomer(rows *sql.Rows) (domain.Customer, error) {
	var c domain.Customer
	var phone, city, state, country, gender, occupation sql.NullString
	var age sql.NullInt64

	err := rows.Scan(
		&c.ID, &c.Name, &c.Email, &phone, &city, &state, &country,
		&age, &gender, &occupation, &c.TotalSpent, &c.OrderCount,
		&c.AverageOrderValue, &c.LastPurchase, &c.FirstPurchase,
		pq.Array(&c.Tags), &c.IsActive, &c.ChurnProbability,
		&c.PredictedChurn, &c.ClusterID, pq.Array(&c.Recommendations),
		&c.UploadedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Customer{}, err
	}

	c.Phone = phone.String
	c.City = city.String
	c.State = state.String
	c.Country = country.String
	c.Gender = gender.String
	c.Occupation = occupation.String
	c.Age = int(age.Int64)

	return c, nil
}
