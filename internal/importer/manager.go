package importer

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cmsjade5000/WardrobeManager/internal/catalog"
	"github.com/cmsjade5000/WardrobeManager/internal/dedupe"
	"github.com/cmsjade5000/WardrobeManager/internal/metrics"
)

// CatalogStore is the persistence collaborator: called once per successfully
// processed entry, plus tag lookups/creation.
type CatalogStore interface {
	CreateItem(ctx context.Context, p catalog.CreateItemParams) (*catalog.Item, error)
	TagStore
}

// ImageProcessor runs the image transform pipeline for one source file
type ImageProcessor interface {
	Process(ctx context.Context, sourcePath string) (string, error)
}

// DuplicateDetector flags perceptual duplicates within one job
type DuplicateDetector interface {
	IsDuplicate(path string) bool
}

// ManagerConfig configures the job manager
type ManagerConfig struct {
	// QueueCapacity bounds the FIFO run queue. A full queue rejects new
	// imports with ErrQueueFull. Optional. Defaults to 128.
	QueueCapacity int

	// JobTTL is how long completed jobs remain queryable. Optional.
	// Defaults to 1h.
	JobTTL time.Duration

	// EvictInterval is the janitor sweep period. Optional. Defaults to 5m.
	EvictInterval time.Duration

	// NewDetector overrides the per-job duplicate detector. Optional;
	// intended for tests.
	NewDetector func() DuplicateDetector
}

// WithDefaults fills in default values for optional fields
func (c *ManagerConfig) WithDefaults() {
	if c.QueueCapacity == 0 {
		c.QueueCapacity = 128
	}
	if c.JobTTL == 0 {
		c.JobTTL = time.Hour
	}
	if c.EvictInterval == 0 {
		c.EvictInterval = 5 * time.Minute
	}
	if c.NewDetector == nil {
		c.NewDetector = func() DuplicateDetector { return dedupe.NewDetector() }
	}
}

// Manager owns the import job lifecycle: the job registry, the FIFO run
// queue and the single worker goroutine that drains it. There is exactly one
// Manager per process; all job state lives here and is lost on restart.
type Manager struct {
	store       CatalogStore
	processor   ImageProcessor
	metrics     *metrics.Metrics
	newDetector func() DuplicateDetector

	jobTTL        time.Duration
	evictInterval time.Duration

	mu    sync.RWMutex
	jobs  map[string]*Job
	queue chan string
}

// NewManager creates a job manager. Call Start to launch the worker.
func NewManager(store CatalogStore, processor ImageProcessor, m *metrics.Metrics, cfg ManagerConfig) *Manager {
	cfg.WithDefaults()
	if m == nil {
		m = metrics.New()
	}

	return &Manager{
		store:         store,
		processor:     processor,
		metrics:       m,
		newDetector:   cfg.NewDetector,
		jobTTL:        cfg.JobTTL,
		evictInterval: cfg.EvictInterval,
		jobs:          make(map[string]*Job),
		queue:         make(chan string, cfg.QueueCapacity),
	}
}

// Start launches the worker and the completed-job janitor. Both stop when
// ctx is canceled; in-flight item processing finishes first.
func (m *Manager) Start(ctx context.Context) {
	go m.run(ctx)
	go m.evictLoop(ctx)
}

// CreateJob registers a new job for the resolved manifest and enqueues it.
// Entries pre-failed by manifest resolution count toward the initial failed
// total and are skipped by the worker.
func (m *Manager) CreateJob(items []*JobItem, defaults Defaults) (*Job, error) {
	job := &Job{
		ID:        uuid.New().String(),
		Status:    JobQueued,
		Total:     len(items),
		Defaults:  defaults,
		Items:     items,
		CreatedAt: time.Now(),
	}
	for _, it := range items {
		if it.Status == ItemFailed {
			job.Failed++
		}
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

	m.metrics.JobsCreated.Inc()
	m.metrics.QueueDepth.Set(float64(len(m.queue)))
	log.Printf("[%s] Import job created: %d entries (%d pre-failed)", job.ID, job.Total, job.Failed)

	return job, nil
}

// GetJob returns a snapshot of the job for status polling
func (m *Manager) GetJob(id string) (JobSnapshot, bool) {
	m.mu.RLock()
	job, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return JobSnapshot{}, false
	}
	return job.Snapshot(), true
}

// run is the single worker loop: jobs strictly FIFO, items strictly in
// manifest order, nothing processed concurrently.
func (m *Manager) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-m.queue:
			m.metrics.QueueDepth.Set(float64(len(m.queue)))

			m.mu.RLock()
			job := m.jobs[id]
			m.mu.RUnlock()
			if job == nil {
				continue
			}
			m.processJob(ctx, job)
		}
	}
}

// evictLoop drops completed jobs once they outlive the TTL. Queued and
// processing jobs are never evicted.
func (m *Manager) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(m.evictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictExpired(time.Now())
		}
	}
}

func (m *Manager) evictExpired(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, job := range m.jobs {
		job.mu.Lock()
		expired := job.Status == JobCompleted && now.Sub(job.finishedAt) > m.jobTTL
		job.mu.Unlock()
		if expired {
			delete(m.jobs, id)
			log.Printf("[%s] Evicted completed import job", id)
		}
	}
}
