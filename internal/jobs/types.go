// Package jobs defines background work queued by the API, currently the
// mirroring of stored transactions to Notion.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/finbot/internal/domain"
)

// ErrNotFound is returned when a job does not exist.
var ErrNotFound = errors.New("job not found")

// ErrClosed is returned when publishing to a stopped queue.
var ErrClosed = errors.New("queue is closed")

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed and will not be retried.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is waiting for another attempt.
	JobStatusRetrying JobStatus = "retrying"
)

// DefaultMaxRetries applies when a job does not set MaxRetries.
const DefaultMaxRetries = 3

// MirrorTransactionJob copies one stored transaction to the external ledger.
type MirrorTransactionJob struct {
	JobID string `json:"job_id"`

	UserID        string `json:"user_id"`
	TransactionID string `json:"transaction_id"`

	// Transaction is the record as returned by the data service.
	Transaction domain.Transaction `json:"transaction"`

	// PageID is the mirrored page once the job has completed.
	PageID string `json:"page_id,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
}

// Publisher enqueues jobs.
type Publisher interface {
	PublishMirrorTransaction(ctx context.Context, job *MirrorTransactionJob) error

	// Close stops accepting jobs and releases resources.
	Close() error
}

// Consumer runs queued jobs.
type Consumer interface {
	// Start launches workers that call handler for each job.
	Start(ctx context.Context, handler Handler) error

	// Stop stops consuming and waits for in-flight jobs.
	Stop(ctx context.Context) error
}

// Handler processes one job. A returned error schedules a retry until
// MaxRetries is reached. The handler may set job.PageID.
type Handler func(ctx context.Context, job *MirrorTransactionJob) error

// JobStore keeps job state for status queries.
type JobStore interface {
	SaveJob(ctx context.Context, job *MirrorTransactionJob) error
	GetJob(ctx context.Context, jobID string) (*MirrorTransactionJob, error)

	// ListJobs returns matching jobs, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*MirrorTransactionJob, error)

	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter narrows ListJobs.
type JobFilter struct {
	UserID        string
	TransactionID string
	Status        JobStatus

	Limit  int
	Offset int
}

// Match reports whether job passes the filter.
func (f JobFilter) Match(job *MirrorTransactionJob) bool {
	if f.UserID != "" && job.UserID != f.UserID {
		return false
	}
	if f.TransactionID != "" && job.TransactionID != f.TransactionID {
		return false
	}
	if f.Status != "" && job.Status != f.Status {
		return false
	}
	return true
}
