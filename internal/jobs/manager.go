// Package jobs queues operator-triggered link refreshes and scrape runs and
// executes them one at a time.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/pet-products-scraper/internal/etl"
)

type Kind string

const (
	KindRefreshLinks Kind = "refresh_links"
	KindRun          Kind = "run"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrQueueFull   = errors.New("job queue is full")
	ErrUnknownKind = errors.New("unknown job kind")
)

// Runner is the part of the orchestrator jobs execute.
type Runner interface {
	RefreshLinks(ctx context.Context, shop string) (int64, error)
	Run(ctx context.Context, shop string) (etl.RunSummary, error)
}

type Job struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	Shop        string          `json:"shop"`
	Status      Status          `json:"status"`
	Links       int64           `json:"links,omitempty"`
	Summary     *etl.RunSummary `json:"summary,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Manager keeps jobs in memory. A single worker drains the queue, so shop
// runs never overlap.
type Manager struct {
	runner Runner
	logger *slog.Logger
	queue  chan string

	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewManager(runner Runner, queueSize int, logger *slog.Logger) *Manager {
	if queueSize <= 0 {
		queueSize = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		runner: runner,
		logger: logger.With("component", "job_manager"),
		queue:  make(chan string, queueSize),
		jobs:   make(map[string]*Job),
	}
}

// Submit enqueues a job. Shop validation happens when it runs.
func (m *Manager) Submit(kind Kind, shop string) (*Job, error) {
	if kind != KindRefreshLinks && kind != KindRun {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	job := &Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		Shop:      shop,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	select {
	case m.queue <- job.ID:
	default:
		m.mu.Lock()
		delete(m.jobs, job.ID)
		m.mu.Unlock()
		return nil, ErrQueueFull
	}

	m.logger.Info("job queued", "id", job.ID, "kind", kind, "shop", shop)
	return m.snapshot(job), nil
}

func (m *Manager) Get(id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return m.snapshotLocked(job), nil
}

// List returns every job, newest first.
func (m *Manager) List() []*Job {
	m.mu.RLock()
	out := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, m.snapshotLocked(j))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out
}

// StartWorker executes queued jobs until ctx is cancelled.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("job worker started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("job worker stopping")
			return
		case id := <-m.queue:
			m.process(ctx, id)
		}
	}
}

func (m *Manager) process(ctx context.Context, id string) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	job.Status = StatusRunning
	job.StartedAt = &now
	kind, shop := job.Kind, job.Shop
	m.mu.Unlock()

	m.logger.Info("processing job", "id", id, "kind", kind, "shop", shop)

	var (
		links   int64
		summary *etl.RunSummary
		err     error
	)
	switch kind {
	case KindRefreshLinks:
		links, err = m.runner.RefreshLinks(ctx, shop)
	case KindRun:
		var s etl.RunSummary
		s, err = m.runner.Run(ctx, shop)
		summary = &s
	}

	m.mu.Lock()
	done := time.Now().UTC()
	job.CompletedAt = &done
	job.Links = links
	job.Summary = summary
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
	} else {
		job.Status = StatusCompleted
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("job failed", "id", id, "error", err)
		return
	}
	m.logger.Info("job completed", "id", id)
}

func (m *Manager) snapshot(j *Job) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked(j)
}

func (m *Manager) snapshotLocked(j *Job) *Job {
	c := *j
	if j.Summary != nil {
		s := *j.Summary
		c.Summary = &s
	}
	return &c
}
