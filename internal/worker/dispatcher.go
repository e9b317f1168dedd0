// Package worker runs campaign dispatch: resolving the target segment,
// rendering and sending per-recipient email in batches, and recording
// one communication log row per attempt.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/crm-backend/internal/domain"
	"github.com/ignite/crm-backend/internal/mailer"
	"github.com/ignite/crm-backend/internal/pkg/distlock"
	"github.com/ignite/crm-backend/internal/pkg/logger"
	"github.com/ignite/crm-backend/internal/templating"
)

const (
	// DefaultBatchSize is how many sends run concurrently before the
	// dispatcher waits for the whole batch to land.
	DefaultBatchSize = 100

	// DefaultSendTimeout bounds a single transport send.
	DefaultSendTimeout = 30 * time.Second

	dispatchLockTTL = 10 * time.Minute

	// CancelReason is recorded as the failure reason when a running
	// dispatch is cancelled.
	CancelReason = "dispatch cancelled"
)

// Dispatch errors.
var (
	ErrDispatchInProgress = errors.New("campaign dispatch already in progress")
	ErrNotDraft           = errors.New("campaign is not in draft status")
	ErrCancelled          = errors.New(CancelReason)
)

// CampaignStore is the campaign persistence the dispatcher needs.
type CampaignStore interface {
	Get(ctx context.Context, ownerID, id string) (*domain.Campaign, error)
	UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error
	UpdateStats(ctx context.Context, id string, stats domain.CampaignStats) error
	SetFailure(ctx context.Context, id string, reason string) error
}

// SegmentSource loads a segment definition and resolves it to the
// customers it matches right now.
type SegmentSource interface {
	Get(ctx context.Context, ownerID, id string) (*domain.Segment, error)
	Resolve(ctx context.Context, rules domain.RuleSet, ownerID string) ([]domain.Customer, error)
}

// LogStore records delivery attempts.
type LogStore interface {
	Create(ctx context.Context, entry *domain.CommunicationLog) error
}

// LockFactory builds a distributed lock for a key, typically
// distlock.NewLock closed over the Redis client and database.
type LockFactory func(key string) distlock.DistLock

// Dispatcher executes campaign sends.
type Dispatcher struct {
	campaigns CampaignStore
	segments  SegmentSource
	logs      LogStore
	transport mailer.Transport
	templates *templating.Engine
	newLock   LockFactory
	tracker   *JobTracker

	batchSize   int
	sendTimeout time.Duration
}

// Options tunes dispatch behavior. Zero values fall back to defaults.
type Options struct {
	BatchSize   int
	SendTimeout time.Duration
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(campaigns CampaignStore, segments SegmentSource, logs LogStore,
	transport mailer.Transport, templates *templating.Engine, newLock LockFactory, opts Options) *Dispatcher {

	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	return &Dispatcher{
		campaigns:   campaigns,
		segments:    segments,
		logs:        logs,
		transport:   transport,
		templates:   templates,
		newLock:     newLock,
		tracker:     NewJobTracker(),
		batchSize:   opts.BatchSize,
		sendTimeout: opts.SendTimeout,
	}
}

// Tracker exposes the job tracker so the API layer can cancel runs.
func (d *Dispatcher) Tracker() *JobTracker {
	return d.tracker
}

// DispatchAsync runs Dispatch on its own goroutine, detached from the
// caller's request context.
func (d *Dispatcher) DispatchAsync(ownerID, campaignID string) {
	go func() {
		if err := d.Dispatch(context.Background(), ownerID, campaignID); err != nil {
			logger.Error("campaign dispatch failed",
				"campaign_id", campaignID, "error", err)
		}
	}()
}

// Dispatch runs a campaign end to end: draft → processing → batched
// sends → completed, or failed with a reason if setup breaks before
// any send is attempted. A failed send never aborts the run; it is
// recorded and counted like any other attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, ownerID, campaignID string) error {
	job, err := d.tracker.Start(campaignID)
	if err != nil {
		return err
	}
	defer d.tracker.Finish(campaignID)

	lock := d.newLock("dispatch:" + campaignID)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire dispatch lock: %w", err)
	}
	if !acquired {
		return ErrDispatchInProgress
	}
	defer lock.Release(context.Background())

	camp, err := d.campaigns.Get(ctx, ownerID, campaignID)
	if err != nil {
		return err
	}
	if camp.Status != domain.CampaignStatusDraft {
		return ErrNotDraft
	}

	if err := d.campaigns.UpdateStatus(ctx, campaignID, domain.CampaignStatusProcessing); err != nil {
		return fmt.Errorf("transition to processing: %w", err)
	}

	// Setup failures leave the campaign failed with a reason and no
	// per-recipient logs.
	seg, err := d.segments.Get(ctx, ownerID, camp.SegmentID)
	if err != nil {
		return d.fail(campaignID, fmt.Sprintf("load segment: %v", err))
	}

	// The member list is resolved fresh at dispatch time; the cached
	// estimate on the segment plays no part here.
	customers, err := d.segments.Resolve(ctx, seg.Rules, ownerID)
	if err != nil {
		return d.fail(campaignID, fmt.Sprintf("resolve segment: %v", err))
	}

	stats := domain.CampaignStats{TotalRecipients: len(customers)}
	if err := d.campaigns.UpdateStats(ctx, campaignID, stats); err != nil {
		return d.fail(campaignID, fmt.Sprintf("record recipient count: %v", err))
	}

	logger.Info("campaign dispatch started",
		"campaign_id", campaignID, "recipients", len(customers), "batch_size", d.batchSize)

	var sent, failed int64
	cancelled := false

	for start := 0; start < len(customers); start += d.batchSize {
		if job.Cancelled() {
			cancelled = true
			break
		}

		end := start + d.batchSize
		if end > len(customers) {
			end = len(customers)
		}

		var wg sync.WaitGroup
		for _, c := range customers[start:end] {
			wg.Add(1)
			go func(c domain.Customer) {
				defer wg.Done()
				if d.sendOne(ctx, camp, c) {
					atomic.AddInt64(&sent, 1)
				} else {
					atomic.AddInt64(&failed, 1)
				}
			}(c)
		}
		wg.Wait()
	}

	stats.Sent = int(atomic.LoadInt64(&sent))
	stats.Failed = int(atomic.LoadInt64(&failed))
	stats.ComputeDeliveryRate()
	if err := d.campaigns.UpdateStats(ctx, campaignID, stats); err != nil {
		logger.Error("persist campaign stats failed", "campaign_id", campaignID, "error", err)
	}

	if cancelled {
		if err := d.campaigns.SetFailure(ctx, campaignID, CancelReason); err != nil {
			logger.Error("mark campaign cancelled failed", "campaign_id", campaignID, "error", err)
		}
		logger.Warn("campaign dispatch cancelled",
			"campaign_id", campaignID, "sent", stats.Sent, "failed", stats.Failed)
		return ErrCancelled
	}

	if err := d.campaigns.UpdateStatus(ctx, campaignID, domain.CampaignStatusCompleted); err != nil {
		return fmt.Errorf("transition to completed: %w", err)
	}

	logger.Info("campaign dispatch completed",
		"campaign_id", campaignID, "sent", stats.Sent, "failed", stats.Failed,
		"delivery_rate", fmt.Sprintf("%.1f", stats.DeliveryRate))
	return nil
}

// sendOne renders and sends to a single customer and records exactly
// one communication log row. Returns true on success.
func (d *Dispatcher) sendOne(ctx context.Context, camp *domain.Campaign, c domain.Customer) bool {
	entry := &domain.CommunicationLog{
		ID:         uuid.New().String(),
		CampaignID: camp.ID,
		CustomerID: c.ID,
		Email:      c.Email,
		Status:     domain.LogStatusSent,
		SentAt:     time.Now(),
	}

	err := d.deliver(ctx, camp, c)
	if err != nil {
		entry.Status = domain.LogStatusFailed
		entry.Error = err.Error()
		logger.Warn("send failed", "campaign_id", camp.ID, "customer_id", c.ID, "error", err)
	}

	if logErr := d.logs.Create(ctx, entry); logErr != nil {
		logger.Error("communication log write failed",
			"campaign_id", camp.ID, "customer_id", c.ID, "error", logErr)
	}

	return err == nil
}

func (d *Dispatcher) deliver(ctx context.Context, camp *domain.Campaign, c domain.Customer) error {
	bindings := templating.CustomerBindings(c)

	subject, err := d.templates.Render(camp.Subject, bindings)
	if err != nil {
		return fmt.Errorf("render subject: %w", err)
	}
	body, err := d.templates.Render(camp.Body, bindings)
	if err != nil {
		return fmt.Errorf("render body: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	return d.transport.Send(sendCtx, mailer.Message{
		To:      c.Email,
		Subject: subject,
		Body:    body,
	})
}

func (d *Dispatcher) fail(campaignID, reason string) error {
	if err := d.campaigns.SetFailure(context.Background(), campaignID, reason); err != nil {
		logger.Error("mark campaign failed errored", "campaign_id", campaignID, "error", err)
	}
	logger.Error("campaign dispatch failed during setup", "campaign_id", campaignID, "reason", reason)
	return errors.New(reason)
}
