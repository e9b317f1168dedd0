package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/crm-backend/internal/domain"
	"github.com/ignite/crm-backend/internal/enrichment"
	"github.com/ignite/crm-backend/internal/service/campaign"
)

func newMockDB(t *testing.T) (*CampaignRepo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCampaignRepo(db), mock
}

func TestCampaignGet(t *testing.T) {
	repo, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM crm_campaigns")).
		WithArgs("camp-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "segment_id", "subject", "body", "status",
			"total_recipients", "sent", "failed", "delivery_rate",
			"failure_reason", "created_by", "created_at", "updated_at", "completed_at",
		}).AddRow(
			"camp-1", "Welcome", "seg-1", "Hi", "Hello", "completed",
			10, 9, 1, 90.0,
			"", "user-1", now, now, now,
		))

	c, err := repo.Get(context.Background(), "user-1", "camp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusCompleted, c.Status)
	assert.Equal(t, 9, c.Stats.Sent)
	assert.InDelta(t, 90.0, c.Stats.DeliveryRate, 0.001)
	require.NotNil(t, c.CompletedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignGetNotFound(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM crm_campaigns")).
		WithArgs("missing", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), "user-1", "missing")
	assert.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestCampaignUpdateStatusNotFound(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE crm_campaigns")).
		WithArgs(domain.CampaignStatusProcessing, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.CampaignStatusProcessing)
	assert.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestCampaignSetFailure(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'failed'")).
		WithArgs("segment was deleted", "camp-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetFailure(context.Background(), "camp-1", "segment was deleted")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerCreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewCustomerRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO crm_customers")).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err = repo.Create(context.Background(), &domain.Customer{
		Name: "Ada", Email: "ada@example.com", UploadedBy: "user-1",
	})
	assert.ErrorIs(t, err, ErrDuplicateCustomer)
}

func TestCustomerUpdateScores(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewCustomerRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("SET churn_probability = $1")).
		WithArgs(0.8, 1, 2, pq.Array([]string{"winback-offer"}), "cust-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.UpdateScores(context.Background(), "user-1", "cust-1", enrichment.Scores{
		ChurnProbability: 0.8,
		PredictedChurn:   1,
		ClusterID:        2,
		Recommendations:  []string{"winback-offer"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerUpdateScoresNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewCustomerRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("SET churn_probability = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateScores(context.Background(), "user-1", "ghost", enrichment.Scores{})
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}
