package worker

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrJobRunning is returned when a dispatch job already exists for a
// campaign in this process.
var ErrJobRunning = errors.New("dispatch job already running for campaign")

// Job is one in-flight dispatch run. Cancellation is observed at batch
// boundaries; the batch in flight always finishes.
type Job struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	StartedAt  time.Time `json:"started_at"`

	mu        sync.Mutex
	cancelled bool
}

// Cancel marks the job cancelled.
func (j *Job) Cancel() {
	j.mu.Lock()
	j.cancelled = true
	j.mu.Unlock()
}

// Cancelled reports whether Cancel has been called.
func (j *Job) Cancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelled
}

// JobTracker tracks running dispatch jobs by campaign, one at most per
// campaign per process.
type JobTracker struct {
	mu   sync.Mutex
	jobs map[string]*Job // keyed by campaign id
}

// NewJobTracker creates an empty tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{jobs: make(map[string]*Job)}
}

// Start registers a new job for the campaign. Returns ErrJobRunning if
// one is already registered.
func (t *JobTracker) Start(campaignID string) (*Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.jobs[campaignID]; exists {
		return nil, ErrJobRunning
	}
	job := &Job{
		ID:         uuid.New().String(),
		CampaignID: campaignID,
		StartedAt:  time.Now(),
	}
	t.jobs[campaignID] = job
	return job, nil
}

// Get returns the running job for a campaign, if any.
func (t *JobTracker) Get(campaignID string) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[campaignID]
	return job, ok
}

// Cancel cancels the running job for a campaign. Returns false if no
// job is running.
func (t *JobTracker) Cancel(campaignID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[campaignID]
	if !ok {
		return false
	}
	job.Cancel()
	return true
}

// Finish removes the job for a campaign.
func (t *JobTracker) Finish(campaignID string) {
	t.mu.Lock()
	delete(t.jobs, campaignID)
	t.mu.Unlock()
}
