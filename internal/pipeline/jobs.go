package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/badgebind/internal/binder"
	"github.com/dgallion1/badgebind/internal/page"
)

// JobStatus represents the state of a snapshot job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusLoading   JobStatus = "loading"
	StatusBinding   JobStatus = "binding"
	StatusRendering JobStatus = "rendering"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job tracks the state of a single badge snapshot.
type Job struct {
	mu sync.Mutex

	ID          string `json:"job_id"`
	Template    string `json:"template"`
	Transparent bool   `json:"transparent"`

	Status   JobStatus     `json:"status"`
	Phase    string        `json:"phase"`
	Result   binder.Result `json:"result"`
	Attempts int           `json:"attempts"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	tpl    *page.Template
	png    []byte
	errors []string
}

// NewJob creates a queued job. The template is captured as read at submit
// time, so later edits do not affect queued jobs.
func NewJob(tpl *page.Template, transparent bool) *Job {
	now := time.Now()
	return &Job{
		ID:          generateULID(),
		Template:    tpl.Name,
		Transparent: transparent,
		tpl:         tpl,
		Status:      StatusQueued,
		Phase:       "queued",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetResult records the outcome of the bind pass.
func (j *Job) SetResult(res binder.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Result = res
	j.UpdatedAt = time.Now()
}

// IncrAttempts counts one capture attempt.
func (j *Job) IncrAttempts() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Attempts++
	j.UpdatedAt = time.Now()
}

// SetPNG stores the rendered image.
func (j *Job) SetPNG(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.png = data
}

// PNG returns the rendered image, or nil before completion.
func (j *Job) PNG() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.png
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Template    string    `json:"template"`
	Transparent bool      `json:"transparent"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Bound       int       `json:"bound"`
	Missing     []string  `json:"missing"`
	Attempts    int       `json:"attempts"`
	PNGBytes    int       `json:"png_bytes"`
	PNGHash     string    `json:"png_sha256,omitempty"`
	Errors      []string  `json:"errors"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.errors...)
	missing := append([]string{}, j.Result.Missing...)
	snap := JobSnapshot{
		ID:          j.ID,
		Template:    j.Template,
		Transparent: j.Transparent,
		Status:      j.Status,
		Phase:       j.Phase,
		Bound:       j.Result.Bound,
		Missing:     missing,
		Attempts:    j.Attempts,
		PNGBytes:    len(j.png),
		Errors:      errs,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
	if len(j.png) > 0 {
		snap.PNGHash = ContentHashHex(j.png)
	}
	return snap
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
