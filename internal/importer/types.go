// Package importer implements the bulk image import pipeline: manifest
// resolution, the single-worker FIFO job queue, per-item processing with
// partial-failure isolation, and the polling interface.
package importer

import (
	"sync"
	"time"
)

// JobStatus is the lifecycle state of an import job. Transitions are forward
// only: queued -> processing -> completed.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
)

// ItemStatus is the lifecycle state of one entry within a job. completed and
// failed are terminal.
type ItemStatus string

const (
	ItemQueued     ItemStatus = "queued"
	ItemProcessing ItemStatus = "processing"
	ItemCompleted  ItemStatus = "completed"
	ItemFailed     ItemStatus = "failed"
)

// Defaults carries the shared field values applied to entries that do not
// override them.
type Defaults struct {
	Type     string   `json:"type"`
	Category string   `json:"category"`
	Color    string   `json:"color"`
	Brand    string   `json:"brand,omitempty"`
	Size     string   `json:"size,omitempty"`
	Material string   `json:"material,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// HasRequired reports whether the fields required for direct uploads are set
func (d Defaults) HasRequired() bool {
	return d.Type != "" && d.Category != "" && d.Color != ""
}

// Payload is the resolved set of catalog fields for one entry
type Payload struct {
	Name     string
	Type     string
	Category string
	Color    string
	Brand    string
	Size     string
	Material string
	Notes    string
	Tags     []string
}

// JobItem is one entry of an import job. SourcePath and Payload are internal
// and never appear in external snapshots.
type JobItem struct {
	ID         string
	Filename   string
	Status     ItemStatus
	ItemID     string
	ImageURL   string
	Error      string
	SourcePath string
	Payload    Payload
}

// Job is an import job. Items are owned exclusively by the job; only the
// worker mutates them after creation. mu guards status, counters and item
// state against concurrent snapshot reads.
type Job struct {
	ID        string
	Status    JobStatus
	Total     int
	Completed int
	Failed    int
	Defaults  Defaults
	Items     []*JobItem
	CreatedAt time.Time

	mu         sync.Mutex
	finishedAt time.Time
}

// ItemSnapshot is the externally visible projection of a JobItem
type ItemSnapshot struct {
	ID       string     `json:"id"`
	Filename string     `json:"filename"`
	Status   ItemStatus `json:"status"`
	ItemID   string     `json:"itemId,omitempty"`
	ImageURL string     `json:"imageUrl,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// JobSnapshot is the externally visible projection of a Job
type JobSnapshot struct {
	ID        string         `json:"id"`
	Status    JobStatus      `json:"status"`
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
	Failed    int            `json:"failed"`
	Items     []ItemSnapshot `json:"items"`
	Defaults  Defaults       `json:"defaults"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Snapshot returns a consistent point-in-time view of the job for polling
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	snap := JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Total:     j.Total,
		Completed: j.Completed,
		Failed:    j.Failed,
		Defaults:  j.Defaults,
		CreatedAt: j.CreatedAt,
		Items:     make([]ItemSnapshot, 0, len(j.Items)),
	}
	for _, it := range j.Items {
		snap.Items = append(snap.Items, ItemSnapshot{
			ID:       it.ID,
			Filename: it.Filename,
			Status:   it.Status,
			ItemID:   it.ItemID,
			ImageURL: it.ImageURL,
			Error:    it.Error,
		})
	}
	return snap
}
