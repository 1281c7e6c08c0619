package importer

import (
	"context"
	"log"
	"time"

	"github.com/cmsjade5000/WardrobeManager/internal/catalog"
	"github.com/cmsjade5000/WardrobeManager/internal/metrics"
)

// processJob runs every entry of one job to a terminal state. A single
// entry's failure never aborts its siblings or the job; the job itself
// always ends completed.
func (m *Manager) processJob(ctx context.Context, job *Job) {
	log.Printf("[%s] Processing import job: %d entries", job.ID, job.Total)

	job.mu.Lock()
	job.Status = JobProcessing
	job.mu.Unlock()

	// Fingerprints and resolved tags are scoped to this run
	detector := m.newDetector()
	tags := newTagCache(m.store)

	for _, item := range job.Items {
		if item.Status == ItemFailed {
			// Pre-failed during manifest resolution; already counted
			continue
		}
		m.processItem(ctx, job, item, detector, tags)
	}

	job.mu.Lock()
	job.Status = JobCompleted
	job.finishedAt = time.Now()
	completed, failed := job.Completed, job.Failed
	job.mu.Unlock()

	log.Printf("[%s] Import job completed: %d succeeded, %d failed", job.ID, completed, failed)
}

// processItem runs one entry through transform -> duplicate check -> tag
// resolution -> catalog create.
func (m *Manager) processItem(ctx context.Context, job *Job, item *JobItem, detector DuplicateDetector, tags *tagCache) {
	start := time.Now()

	job.mu.Lock()
	item.Status = ItemProcessing
	job.mu.Unlock()

	imageURL, err := m.processor.Process(ctx, item.SourcePath)
	if err != nil {
		m.failItem(job, item, err.Error())
		return
	}

	if detector.IsDuplicate(item.SourcePath) {
		m.failItem(job, item, MsgDuplicateImage)
		return
	}

	tagIDs, err := tags.Resolve(ctx, item.Payload.Tags)
	if err != nil {
		m.failItem(job, item, err.Error())
		return
	}

	created, err := m.store.CreateItem(ctx, catalog.CreateItemParams{
		Name:     item.Payload.Name,
		Type:     item.Payload.Type,
		Category: item.Payload.Category,
		Color:    item.Payload.Color,
		ImageURL: imageURL,
		Brand:    item.Payload.Brand,
		Size:     item.Payload.Size,
		Material: item.Payload.Material,
		Notes:    item.Payload.Notes,
		TagIDs:   tagIDs,
	})
	if err != nil {
		m.failItem(job, item, err.Error())
		return
	}

	job.mu.Lock()
	item.Status = ItemCompleted
	item.ItemID = created.ID
	item.ImageURL = imageURL
	job.Completed++
	job.mu.Unlock()

	m.metrics.ItemsTotal.WithLabelValues(metrics.StatusCompleted).Inc()
	m.metrics.ItemDuration.Observe(time.Since(start).Seconds())
	log.Printf("[%s/%s] Entry completed: %s -> item %s", job.ID, item.ID, item.Filename, created.ID)
}

// failItem marks an entry failed with its causing message. Terminal and
// final: there is no retry.
func (m *Manager) failItem(job *Job, item *JobItem, msg string) {
	job.mu.Lock()
	item.Status = ItemFailed
	item.Error = msg
	job.Failed++
	job.mu.Unlock()

	m.metrics.ItemsTotal.WithLabelValues(metrics.StatusFailed).Inc()
	log.Printf("[%s/%s] Entry failed: %s: %s", job.ID, item.ID, item.Filename, msg)
}
