package aitl

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the status of a test job
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusPassed  JobStatus = "passed"
	JobStatusFailed  JobStatus = "failed"
	JobStatusError   JobStatus = "error"
)

// ParseJobStatus converts a service status string into a JobStatus. Unknown values
// are rejected rather than mapped to a default.
func ParseJobStatus(s string) (JobStatus, error) {
	switch status := JobStatus(strings.ToLower(strings.TrimSpace(s))); status {
	case JobStatusPending, JobStatusRunning, JobStatusPassed, JobStatusFailed, JobStatusError:
		return status, nil
	default:
		return "", fmt.Errorf("unknown job status %q", s)
	}
}

// IsTerminal reports whether the job has finished
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusPassed || s == JobStatusFailed || s == JobStatusError
}

// Job is a test run record as returned by the service
type Job struct {
	ID           string
	Name         string
	Location     string
	Status       JobStatus
	TemplateName string
	Metadata     map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    time.Time
	FinishedAt   time.Time
	// Raw is the payload the record was decoded from.
	Raw json.RawMessage
}

// Template is a test job template
type Template struct {
	ID       string
	Name     string
	Location string
	Metadata map[string]string
	Spec     TemplateSpec
	Raw      json.RawMessage
}

// Selection picks the test cases to run, by priority or by name
type Selection struct {
	CasePriority []int    `json:"casePriority,omitempty"`
	CaseName     []string `json:"caseName,omitempty"`
}

// IsEmpty reports whether no priorities or case names were selected
func (s Selection) IsEmpty() bool {
	return len(s.CasePriority) == 0 && len(s.CaseName) == 0
}

// TemplateSpec is the body of a job template, also embedded in jobs as the template instance
type TemplateSpec struct {
	TemplateTags []string    `json:"templateTags"`
	Selections   []Selection `json:"selections,omitempty"`
	Region       []string    `json:"region"`
	VMSize       []string    `json:"vmSize"`
	Concurrency  int         `json:"concurrency"`
}

// ImageType is the source of the image under test
type ImageType string

const (
	ImageTypeMarketplace ImageType = "marketplace"
	ImageTypeVHD         ImageType = "vhd"
)

// Image describes the image a job tests
type Image struct {
	VHDGeneration int       `json:"vhdGeneration"`
	Architecture  string    `json:"architecture,omitempty"`
	Type          ImageType `json:"type"`
	URL           string    `json:"url,omitempty"`
	Publisher     string    `json:"publisher,omitempty"`
	Offer         string    `json:"offer,omitempty"`
	SKU           string    `json:"sku,omitempty"`
	Version       string    `json:"version,omitempty"`
}

// systemData is the ARM resource audit block
type systemData struct {
	CreatedAt      *time.Time `json:"createdAt"`
	LastModifiedAt *time.Time `json:"lastModifiedAt"`
}

type jobResource struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Location   string            `json:"location"`
	Tags       map[string]string `json:"tags"`
	SystemData *systemData       `json:"systemData"`
	Properties *jobProperties    `json:"properties"`
}

type jobProperties struct {
	Status          *string    `json:"status"`
	JobTemplateName string     `json:"jobTemplateName"`
	StartTime       *time.Time `json:"startTime"`
	EndTime         *time.Time `json:"endTime"`
}

type templateResource struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Location   string            `json:"location"`
	Tags       map[string]string `json:"tags"`
	Properties *TemplateSpec     `json:"properties"`
}

// listResponse is the ARM collection envelope
type listResponse struct {
	Value    *[]json.RawMessage `json:"value"`
	NextLink string             `json:"nextLink"`
}

// errorResponse is the ARM error envelope
type errorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type jobRequest struct {
	Location   string            `json:"location"`
	Properties jobRequestPayload `json:"properties"`
}

type jobRequestPayload struct {
	JobTemplateName     string       `json:"jobTemplateName,omitempty"`
	JobTemplateInstance TemplateSpec `json:"jobTemplateInstance"`
	Image               Image        `json:"image"`
}

type templateRequest struct {
	Location   string       `json:"location"`
	Name       string       `json:"name"`
	Properties TemplateSpec `json:"properties"`
}

func timeValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
