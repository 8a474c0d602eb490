package aitl

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultWaitInterval is the polling interval of WaitJob
	DefaultWaitInterval = 30 * time.Second

	// getJobsConcurrency bounds the fan-out of GetJobs
	getJobsConcurrency = 4
)

// Client represents an AITL API client
type Client struct {
	transport *Transport
	builder   *Builder
	maxPages  int
	logger    zerolog.Logger

	jobs      *Walker[*Job]
	templates *Walker[*Template]
}

var _ API = (*Client)(nil)

// NewClient creates a new AITL client. An empty endpoint selects DefaultEndpoint.
func NewClient(endpoint string, creds Credentials, scope Scope, logger zerolog.Logger, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	transport, err := newTransport(endpoint, creds, logger, o)
	if err != nil {
		return nil, err
	}

	c := &Client{
		transport: transport,
		builder:   NewBuilder(scope),
		maxPages:  o.maxPages,
		logger:    logger,
	}
	c.jobs = newWalker(c, decodeJob)
	c.templates = newWalker(c, decodeTemplate)

	return c, nil
}

// send builds op and executes it once through the transport
func (c *Client) send(ctx context.Context, op Operation) (*Descriptor, *Response, error) {
	d, err := c.builder.Build(op)
	if err != nil {
		return nil, nil, err
	}
	raw, err := c.transport.Send(ctx, d)
	if err != nil {
		return d, nil, err
	}
	return d, raw, nil
}

// ListTemplates returns every job template in the resource group
func (c *Client) ListTemplates(ctx context.Context) iter.Seq2[*Template, error] {
	return c.templates.Paginate(ctx, ListTemplates{})
}

// GetTemplate retrieves a job template by name
func (c *Client) GetTemplate(ctx context.Context, name string) (*Template, error) {
	d, raw, err := c.send(ctx, GetTemplate{Name: name})
	if err != nil {
		return nil, err
	}
	return InterpretTemplate(d, raw)
}

// CreateTemplate creates or replaces a job template
func (c *Client) CreateTemplate(ctx context.Context, op CreateTemplate) (*Template, error) {
	d, raw, err := c.send(ctx, op)
	if err != nil {
		return nil, err
	}

	tmpl, err := InterpretTemplate(d, raw)
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("template", tmpl.Name).
		Int("status", raw.StatusCode).
		Msg("Job template saved")

	return tmpl, nil
}

// ListJobs returns every job matching op in server order
func (c *Client) ListJobs(ctx context.Context, op ListJobs) iter.Seq2[*Job, error] {
	return c.jobs.Paginate(ctx, op)
}

// GetJob retrieves a job by name
func (c *Client) GetJob(ctx context.Context, name string) (*Job, error) {
	d, raw, err := c.send(ctx, GetJob{Name: name})
	if err != nil {
		return nil, err
	}
	return InterpretJob(d, raw)
}

// GetJobs retrieves several jobs concurrently. Results are in the order of names;
// the first failure cancels the remaining requests.
func (c *Client) GetJobs(ctx context.Context, names []string) ([]*Job, error) {
	jobs := make([]*Job, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(getJobsConcurrency)

	for i, name := range names {
		g.Go(func() error {
			job, err := c.GetJob(ctx, name)
			if err != nil {
				return err
			}
			jobs[i] = job
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// DeleteJob deletes a job by name
func (c *Client) DeleteJob(ctx context.Context, name string) error {
	d, raw, err := c.send(ctx, DeleteJob{Name: name})
	if err != nil {
		return err
	}
	if err := interpretEmpty(d, raw); err != nil {
		return err
	}

	c.logger.Info().
		Str("job", name).
		Int("status", raw.StatusCode).
		Msg("Job deleted")

	return nil
}

// CreateJob submits a new test job. The request is sent at most once.
func (c *Client) CreateJob(ctx context.Context, op CreateJob) (*Job, error) {
	d, raw, err := c.send(ctx, op)
	if err != nil {
		return nil, err
	}

	job, err := InterpretJob(d, raw)
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("job", job.Name).
		Str("status", string(job.Status)).
		Msg("Job submitted")

	return job, nil
}

// WaitJob polls a job every interval until it reaches a terminal status or ctx is done.
func (c *Client) WaitJob(ctx context.Context, name string, interval time.Duration) (*Job, error) {
	if interval <= 0 {
		interval = DefaultWaitInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last JobStatus
	for {
		job, err := c.GetJob(ctx, name)
		if err != nil {
			return nil, err
		}

		if job.Status != last {
			c.logger.Info().
				Str("job", name).
				Str("status", string(job.Status)).
				Msg("Job status")
			last = job.Status
		}
		if job.Status.IsTerminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, &Error{
				Kind:    KindTransport,
				Op:      "wait-job",
				Message: fmt.Sprintf("stopped waiting for job %s in status %s: %v", name, job.Status, ctx.Err()),
				Err:     ctx.Err(),
			}
		case <-ticker.C:
		}
	}
}
