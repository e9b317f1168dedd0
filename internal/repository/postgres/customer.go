package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/crm-backend/internal/domain"
	"github.com/ignite/crm-backend/internal/enrichment"
)

// Customer repository errors.
var (
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrDuplicateCustomer = errors.New("customer email already exists for this uploader")
)

// CustomerRepo implements customer persistence against PostgreSQL,
// including the enrichment.ScoreStore contract.
type CustomerRepo struct{ db *sql.DB }

// NewCustomerRepo creates a Postgres-backed customer repository.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

func scanCustomerRow(scan func(dest ...interface{}) error) (domain.Customer, error) {
	var c domain.Customer
	err := scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.City, &c.State,
		&c.Country, &c.Age, &c.Gender, &c.Occupation,
		&c.TotalSpent, &c.OrderCount, &c.AverageOrderValue, &c.LastPurchase, &c.FirstPurchase,
		pq.Array(&c.Tags), &c.IsActive, &c.ChurnProbability, &c.PredictedChurn, &c.ClusterID,
		pq.Array(&c.Recommendations), &c.UploadedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

const selectCustomer = `
	SELECT id, name, email, COALESCE(phone,''), COALESCE(city,''), COALESCE(state,''),
	       COALESCE(country,''), COALESCE(age,0), COALESCE(gender,''), COALESCE(occupation,''),
	       total_spent, order_count, average_order_value, last_purchase, first_purchase,
	       tags, is_active, churn_probability, predicted_churn, cluster_id, recommendations,
	       uploaded_by, created_at, updated_at
	FROM crm_customers`

func (r *CustomerRepo) Get(ctx context.Context, ownerID, id string) (*domain.Customer, error) {
	row := r.db.QueryRowContext(ctx, selectCustomer+` WHERE id = $1 AND uploaded_by = $2`, id, ownerID)
	c, err := scanCustomerRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

// List returns a page of the owner's customers plus the total count.
func (r *CustomerRepo) List(ctx context.Context, ownerID string, limit, offset int) ([]domain.Customer, int, error) {
	if limit <= 0 {
		limit = 50
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM crm_customers WHERE uploaded_by = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		selectCustomer+` WHERE uploaded_by = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomerRow(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// All returns every customer the owner has uploaded, for bulk
// enrichment runs.
func (r *CustomerRepo) All(ctx context.Context, ownerID string) ([]domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx,
		selectCustomer+` WHERE uploaded_by = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomerRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CustomerRepo) Create(ctx context.Context, c *domain.Customer) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO crm_customers
			(id, name, email, phone, city, state, country, age, gender, occupation,
			 total_spent, order_count, average_order_value, last_purchase, first_purchase,
			 tags, is_active, uploaded_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW())
	`, c.ID, c.Name, c.Email, c.Phone, c.City, c.State, c.Country, c.Age, c.Gender, c.Occupation,
		c.TotalSpent, c.OrderCount, c.AverageOrderValue, c.LastPurchase, c.FirstPurchase,
		pq.Array(c.Tags), c.IsActive, c.UploadedBy)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return "", ErrDuplicateCustomer
		}
		return "", fmt.Errorf("create customer: %w", err)
	}
	return c.ID, nil
}

func (r *CustomerRepo) Update(ctx context.Context, ownerID string, c *domain.Customer) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE crm_customers
		SET name = $1, email = $2, phone = $3, city = $4, state = $5, country = $6,
		    age = $7, gender = $8, occupation = $9, total_spent = $10, order_count = $11,
		    average_order_value = $12, last_purchase = $13, first_purchase = $14,
		    tags = $15, is_active = $16, updated_at = NOW()
		WHERE id = $17 AND uploaded_by = $18
	`, c.Name, c.Email, c.Phone, c.City, c.State, c.Country,
		c.Age, c.Gender, c.Occupation, c.TotalSpent, c.OrderCount,
		c.AverageOrderValue, c.LastPurchase, c.FirstPurchase,
		pq.Array(c.Tags), c.IsActive, c.ID, ownerID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCustomer
		}
		return fmt.Errorf("update customer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (r *CustomerRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM crm_customers WHERE id = $1 AND uploaded_by = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

// UpdateScores persists an enrichment result for one customer.
func (r *CustomerRepo) UpdateScores(ctx context.Context, ownerID, customerID string, s enrichment.Scores) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE crm_customers
		SET churn_probability = $1, predicted_churn = $2, cluster_id = $3,
		    recommendations = $4, updated_at = NOW()
		WHERE id = $5 AND uploaded_by = $6
	`, s.ChurnProbability, s.PredictedChurn, s.ClusterID,
		pq.Array(s.Recommendations), customerID, ownerID)
	if err != nil {
		return fmt.Errorf("update customer scores: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCustomerNotFound
	}
	return nil
}
