package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/crm-backend/internal/contentgen"
	"github.com/ignite/crm-backend/internal/domain"
	"github.com/ignite/crm-backend/internal/repository/postgres"
	"github.com/ignite/crm-backend/internal/segmentation"
	"github.com/ignite/crm-backend/internal/service/campaign"
	"github.com/ignite/crm-backend/internal/service/segment"
	"github.com/ignite/crm-backend/internal/worker"
)

// mockSegments implements SegmentService over a fixed map.
type mockSegments struct {
	segs map[string]*domain.Segment
	err  error
}

func (m *mockSegments) Get(_ context.Context, ownerID, id string) (*domain.Segment, error) {
	seg, ok := m.segs[id]
	if !ok || seg.CreatedBy != ownerID {
		return nil, segment.ErrNotFound
	}
	return seg, nil
}

func (m *mockSegments) List(_ context.Context, ownerID string) ([]domain.Segment, error) {
	var out []domain.Segment
	for _, seg := range m.segs {
		if seg.CreatedBy == ownerID {
			out = append(out, *seg)
		}
	}
	return out, nil
}

func (m *mockSegments) Create(_ context.Context, ownerID string, input segment.CreateInput) (*domain.Segment, error) {
	if m.err != nil {
		return nil, m.err
	}
	seg := &domain.Segment{ID: "seg-new", Name: input.Name, Rules: input.Rules, CreatedBy: ownerID}
	m.segs[seg.ID] = seg
	return seg, nil
}

func (m *mockSegments) Update(_ context.Context, ownerID, id string, input segment.CreateInput) (*domain.Segment, error) {
	if m.err != nil {
		return nil, m.err
	}
	seg, ok := m.segs[id]
	if !ok || seg.CreatedBy != ownerID {
		return nil, segment.ErrNotFound
	}
	seg.Name = input.Name
	seg.Rules = input.Rules
	return seg, nil
}

func (m *mockSegments) Delete(_ context.Context, ownerID, id string) error {
	seg, ok := m.segs[id]
	if !ok || seg.CreatedBy != ownerID {
		return segment.ErrNotFound
	}
	delete(m.segs, id)
	return nil
}

func (m *mockSegments) Estimate(_ context.Context, rules domain.RuleSet, _ string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return 42, nil
}

func (m *mockSegments) Customers(_ context.Context, ownerID, id string) ([]domain.Customer, error) {
	if _, err := m.Get(context.Background(), ownerID, id); err != nil {
		return nil, err
	}
	return []domain.Customer{{ID: "c1", Email: "a@example.com", UploadedBy: ownerID}}, nil
}

// mockCampaigns implements CampaignService.
type mockCampaigns struct {
	camps     map[string]*domain.Campaign
	createErr error
}

func (m *mockCampaigns) Get(_ context.Context, ownerID, id string) (*domain.Campaign, error) {
	c, ok := m.camps[id]
	if !ok || c.CreatedBy != ownerID {
		return nil, campaign.ErrNotFound
	}
	return c, nil
}

func (m *mockCampaigns) List(_ context.Context, ownerID string, _ campaign.ListFilter) ([]domain.Campaign, int, error) {
	var out []domain.Campaign
	for _, c := range m.camps {
		if c.CreatedBy == ownerID {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (m *mockCampaigns) Create(_ context.Context, ownerID string, input campaign.CreateInput) (*domain.Campaign, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	c := &domain.Campaign{ID: "camp-new", Name: input.Name, SegmentID: input.SegmentID,
		Status: domain.CampaignStatusDraft, CreatedBy: ownerID}
	m.camps[c.ID] = c
	return c, nil
}

// mockCustomers implements CustomerStore.
type mockCustomers struct {
	rows      map[string]*domain.Customer
	createErr error
}

func (m *mockCustomers) Get(_ context.Context, ownerID, id string) (*domain.Customer, error) {
	c, ok := m.rows[id]
	if !ok || c.UploadedBy != ownerID {
		return nil, postgres.ErrCustomerNotFound
	}
	return c, nil
}

func (m *mockCustomers) List(_ context.Context, ownerID string, _, _ int) ([]domain.Customer, int, error) {
	var out []domain.Customer
	for _, c := range m.rows {
		if c.UploadedBy == ownerID {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (m *mockCustomers) All(_ context.Context, ownerID string) ([]domain.Customer, error) {
	out, _, err := m.List(context.Background(), ownerID, 0, 0)
	return out, err
}

func (m *mockCustomers) Create(_ context.Context, c *domain.Customer) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.rows[c.ID] = c
	return c.ID, nil
}

func (m *mockCustomers) Update(_ context.Context, ownerID string, c *domain.Customer) error {
	if _, err := m.Get(context.Background(), ownerID, c.ID); err != nil {
		return err
	}
	m.rows[c.ID] = c
	return nil
}

func (m *mockCustomers) Delete(_ context.Context, ownerID, id string) error {
	if _, err := m.Get(context.Background(), ownerID, id); err != nil {
		return err
	}
	delete(m.rows, id)
	return nil
}

// mockLogs implements LogStore.
type mockLogs struct {
	logs []domain.CommunicationLog
}

func (m *mockLogs) ListByCampaign(_ context.Context, _, campaignID string) ([]domain.CommunicationLog, error) {
	var out []domain.CommunicationLog
	for _, l := range m.logs {
		if l.CampaignID == campaignID {
			out = append(out, l)
		}
	}
	return out, nil
}

// mockDispatcher records async dispatch requests and carries a real
// job tracker so cancel paths behave like production.
type mockDispatcher struct {
	tracker    *worker.JobTracker
	dispatched []string
}

func (m *mockDispatcher) DispatchAsync(_, campaignID string) {
	m.dispatched = append(m.dispatched, campaignID)
}

func (m *mockDispatcher) Tracker() *worker.JobTracker { return m.tracker }

func setupTestServer(t *testing.T) (*Server, *mockSegments, *mockCampaigns, *mockCustomers, *mockDispatcher) {
	t.Helper()

	segs := &mockSegments{segs: map[string]*domain.Segment{
		"seg-1": {ID: "seg-1", Name: "big spenders", CreatedBy: "user-1"},
	}}
	camps := &mockCampaigns{camps: map[string]*domain.Campaign{
		"camp-1": {ID: "camp-1", Name: "welcome", Status: domain.CampaignStatusDraft, CreatedBy: "user-1"},
	}}
	customers := &mockCustomers{rows: map[string]*domain.Customer{
		"c1": {ID: "c1", Name: "Grace", Email: "grace@example.com", UploadedBy: "user-1"},
	}}
	logs := &mockLogs{logs: []domain.CommunicationLog{
		{ID: "l1", CampaignID: "camp-1", Email: "grace@example.com", Status: domain.LogStatusSent},
	}}
	disp := &mockDispatcher{tracker: worker.NewJobTracker()}

	h := NewHandlers(segs, camps, customers, logs)
	h.SetDispatcher(disp)
	return NewServer(h, NewHealthChecker(nil, nil)), segs, camps, customers, disp
}

func doRequest(t *testing.T, srv *Server, method, path, owner string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if owner != "" {
		req.Header.Set("X-User-ID", owner)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestMissingOwnerHeader(t *testing.T) {
	srv, _, _, _, _ := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/segments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthOpenWithoutOwner(t *testing.T) {
	srv, _, _, _, _ := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "not_configured", status.Checks["database"].Status)
}

func TestGetSegmentOwnerScoped(t *testing.T) {
	srv, _, _, _, _ := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/segments/seg-1", "user-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/segments/seg-1", "user-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSegmentUnknownField(t *testing.T) {
	srv, segs, _, _, _ := setupTestServer(t)
	segs.err = fmt.Errorf("compile rule: %w", segmentation.ErrUnknownField)

	rec := doRequest(t, srv, http.MethodPost, "/api/segments", "user-1", map[string]interface{}{
		"name": "bad",
		"rules": map[string]interface{}{
			"combinator": "AND",
			"rules":      []map[string]interface{}{{"field": "shoe_size", "operator": ">", "value": 9}},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEstimateSegment(t *testing.T) {
	srv, _, _, _, _ := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/segments/estimate", "user-1", map[string]interface{}{
		"rules": map[string]interface{}{
			"combinator": "AND",
			"rules":      []map[string]interface{}{{"field": "total_spent", "operator": ">", "value": 100}},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 42, out["estimated_count"])
}

func TestCreateCampaignFiresDispatch(t *testing.T) {
	srv, _, _, _, disp := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/campaigns", "user-1", map[string]string{
		"name": "launch", "segment_id": "seg-1", "subject": "Hi", "body": "Hello {{name}}",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"camp-new"}, disp.dispatched)
}

func TestCreateCampaignNoRecipients(t *testing.T) {
	srv, _, camps, _, disp := setupTestServer(t)
	camps.createErr = campaign.ErrNoRecipients

	rec := doRequest(t, srv, http.MethodPost, "/api/campaigns", "user-1", map[string]string{
		"name": "launch", "segment_id": "seg-1", "subject": "Hi", "body": "Hello",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, disp.dispatched)
}

func TestCancelCampaign(t *testing.T) {
	srv, _, _, _, disp := setupTestServer(t)

	// Nothing running yet.
	rec := doRequest(t, srv, http.MethodPost, "/api/campaigns/camp-1/cancel", "user-1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	_, err := disp.tracker.Start("camp-1")
	require.NoError(t, err)

	rec = doRequest(t, srv, http.MethodPost, "/api/campaigns/camp-1/cancel", "user-1", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	job, ok := disp.tracker.Get("camp-1")
	require.True(t, ok)
	assert.True(t, job.Cancelled())
}

func TestCancelCampaignWrongOwner(t *testing.T) {
	srv, _, _, _, disp := setupTestServer(t)

	_, err := disp.tracker.Start("camp-1")
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodPost, "/api/campaigns/camp-1/cancel", "user-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	job, _ := disp.tracker.Get("camp-1")
	assert.False(t, job.Cancelled())
}

func TestCampaignLogs(t *testing.T) {
	srv, _, _, _, _ := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/campaigns/camp-1/logs", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Logs  []domain.CommunicationLog `json:"logs"`
		Count int                       `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "camp-1", out.Logs[0].CampaignID)

	// Other owners cannot see the campaign, let alone its logs.
	rec = doRequest(t, srv, http.MethodGet, "/api/campaigns/camp-1/logs", "user-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCustomerValidation(t *testing.T) {
	srv, _, _, _, _ := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/customers", "user-1", map[string]string{
		"name": "No Email",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCustomerDuplicate(t *testing.T) {
	srv, _, _, customers, _ := setupTestServer(t)
	customers.createErr = postgres.ErrDuplicateCustomer

	rec := doRequest(t, srv, http.MethodPost, "/api/customers", "user-1", map[string]string{
		"name": "Grace", "email": "grace@example.com",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

type mockEnricher struct {
	err  error
	seen []string
}

func (m *mockEnricher) Enrich(_ context.Context, _ string, customers []domain.Customer) ([]domain.Customer, error) {
	if m.err != nil {
		return nil, m.err
	}
	p := 0.5
	for i := range customers {
		m.seen = append(m.seen, customers[i].ID)
		customers[i].ChurnProbability = &p
	}
	return customers, nil
}

func TestEnrichSegment(t *testing.T) {
	enr := &mockEnricher{}
	segs := &mockSegments{segs: map[string]*domain.Segment{
		"seg-1": {ID: "seg-1", CreatedBy: "user-1"},
	}}
	h := NewHandlers(segs, &mockCampaigns{camps: map[string]*domain.Campaign{}},
		&mockCustomers{rows: map[string]*domain.Customer{}}, &mockLogs{})
	h.SetEnricher(enr)
	srv := NewServer(h, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/segments/seg-1/enrich", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"c1"}, enr.seen)

	var out struct {
		Enriched int `json:"enriched"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Enriched)
}

func TestEnrichSegmentUpstreamFailure(t *testing.T) {
	segs := &mockSegments{segs: map[string]*domain.Segment{
		"seg-1": {ID: "seg-1", CreatedBy: "user-1"},
	}}
	h := NewHandlers(segs, &mockCampaigns{camps: map[string]*domain.Campaign{}},
		&mockCustomers{rows: map[string]*domain.Customer{}}, &mockLogs{})
	h.SetEnricher(&mockEnricher{err: fmt.Errorf("churn model unavailable")})
	srv := NewServer(h, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/segments/seg-1/enrich", "user-1", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestEnrichWithoutScoringService(t *testing.T) {
	srv, _, _, _, _ := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/customers/enrich-all", "user-1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func setupTestServerHandlers(t *testing.T) (*Server, *Handlers) {
	t.Helper()
	h := NewHandlers(&mockSegments{segs: map[string]*domain.Segment{}},
		&mockCampaigns{camps: map[string]*domain.Campaign{}},
		&mockCustomers{rows: map[string]*domain.Customer{}}, &mockLogs{})
	return NewServer(h, nil), h
}

type mockGenerator struct {
	draft contentgen.Draft
	err   error
}

func (m *mockGenerator) Draft(_ context.Context, _ domain.RuleSet) (contentgen.Draft, error) {
	return m.draft, m.err
}

func TestGenerateCampaignContent(t *testing.T) {
	srv, h := setupTestServerHandlers(t)
	h.SetContentGenerator(&mockGenerator{draft: contentgen.Draft{
		Subject: "We miss you",
		Body:    "Come back for 20% off.",
	}})

	rec := doRequest(t, srv, http.MethodPost, "/api/campaigns/generate-content", "user-1", map[string]interface{}{
		"rules": map[string]interface{}{
			"combinator": "AND",
			"rules":      []map[string]interface{}{{"field": "total_spent", "operator": ">", "value": 500}},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var draft contentgen.Draft
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &draft))
	assert.Equal(t, "We miss you", draft.Subject)
	assert.Equal(t, "Come back for 20% off.", draft.Body)
}

func TestGenerateCampaignContentInvalidRules(t *testing.T) {
	srv, h := setupTestServerHandlers(t)
	h.SetContentGenerator(&mockGenerator{})

	rec := doRequest(t, srv, http.MethodPost, "/api/campaigns/generate-content", "user-1", map[string]interface{}{
		"rules": map[string]interface{}{"combinator": "MAYBE"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateCampaignContentUpstreamFailure(t *testing.T) {
	srv, h := setupTestServerHandlers(t)
	h.SetContentGenerator(&mockGenerator{err: fmt.Errorf("model overloaded")})

	rec := doRequest(t, srv, http.MethodPost, "/api/campaigns/generate-content", "user-1", map[string]interface{}{
		"rules": map[string]interface{}{
			"combinator": "AND",
			"rules":      []map[string]interface{}{{"field": "total_spent", "operator": ">", "value": 500}},
		},
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGenerateCampaignContentNotConfigured(t *testing.T) {
	srv, _, _, _, _ := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/campaigns/generate-content", "user-1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
