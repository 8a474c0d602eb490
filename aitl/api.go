package aitl

import (
	"context"
	"iter"
	"time"
)

// API defines the interface for AITL operations
type API interface {
	// ListTemplates lists all job templates
	ListTemplates(ctx context.Context) iter.Seq2[*Template, error]

	// GetTemplate retrieves a single job template
	GetTemplate(ctx context.Context, name string) (*Template, error)

	// CreateTemplate creates or replaces a job template
	CreateTemplate(ctx context.Context, op CreateTemplate) (*Template, error)

	// ListJobs lists all jobs
	ListJobs(ctx context.Context, op ListJobs) iter.Seq2[*Job, error]

	// GetJob retrieves a single job
	GetJob(ctx context.Context, name string) (*Job, error)

	// GetJobs retrieves several jobs concurrently
	GetJobs(ctx context.Context, names []string) ([]*Job, error)

	// DeleteJob deletes a job
	DeleteJob(ctx context.Context, name string) error

	// CreateJob submits a new job
	CreateJob(ctx context.Context, op CreateJob) (*Job, error)

	// WaitJob polls a job until it finishes
	WaitJob(ctx context.Context, name string, interval time.Duration) (*Job, error)
}
