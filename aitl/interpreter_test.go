package aitl

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getJobDescriptor() *Descriptor {
	return &Descriptor{
		Operation:  "get-job",
		Method:     http.MethodGet,
		Expected:   []int{http.StatusOK},
		Idempotent: true,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantKind      Kind
		wantRetryable bool
		wantCode      string
		wantMessage   string
	}{
		{
			name:   "expected status",
			status: http.StatusOK,
			body:   `{}`,
		},
		{
			name:     "unexpected success status",
			status:   http.StatusAccepted,
			wantKind: KindProtocol,
		},
		{
			name:     "redirect",
			status:   http.StatusFound,
			wantKind: KindProtocol,
		},
		{
			name:        "not found",
			status:      http.StatusNotFound,
			body:        `{"error": {"code": "ResourceNotFound", "message": "job not found"}}`,
			wantKind:    KindAPI,
			wantCode:    "ResourceNotFound",
			wantMessage: "job not found",
		},
		{
			name:          "throttled",
			status:        http.StatusTooManyRequests,
			body:          `{"error": {"code": "TooManyRequests", "message": "slow down"}}`,
			wantKind:      KindAPI,
			wantRetryable: true,
			wantCode:      "TooManyRequests",
			wantMessage:   "slow down",
		},
		{
			name:          "server error without json body",
			status:        http.StatusBadGateway,
			body:          `<html>bad gateway</html>`,
			wantKind:      KindAPI,
			wantRetryable: true,
			wantMessage:   "Bad Gateway",
		},
		{
			name:        "unauthorized",
			status:      http.StatusUnauthorized,
			body:        `{"error": {"code": "InvalidAuthenticationToken", "message": "token expired"}}`,
			wantKind:    KindAPI,
			wantCode:    "InvalidAuthenticationToken",
			wantMessage: "token expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(getJobDescriptor(), &Response{StatusCode: tt.status, Body: []byte(tt.body), Attempts: 1})
			if tt.wantKind == 0 {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			var aerr *Error
			require.True(t, errors.As(err, &aerr))
			assert.Equal(t, tt.wantKind, aerr.Kind)
			assert.Equal(t, tt.status, aerr.StatusCode)
			assert.Equal(t, tt.wantRetryable, aerr.Retryable)
			assert.Equal(t, tt.wantRetryable, IsRetryable(err))
			assert.Equal(t, "get-job", aerr.Op)
			if tt.wantKind == KindAPI {
				assert.Equal(t, tt.wantCode, aerr.Code)
				assert.Equal(t, tt.wantMessage, aerr.Message)
				assert.Equal(t, tt.body, aerr.Body)
				assert.Equal(t, 1, aerr.Attempts)
			}
		})
	}
}

func TestInterpretJob(t *testing.T) {
	body := `{
		"id": "/subscriptions/s/resourceGroups/g/providers/Microsoft.AzureImageTestingForLinux/jobs/job1",
		"name": "job1",
		"type": "Microsoft.AzureImageTestingForLinux/jobs",
		"location": "westus3",
		"tags": {"team": "images"},
		"systemData": {
			"createdAt": "2024-05-01T10:00:00Z",
			"lastModifiedAt": "2024-05-01T11:00:00Z"
		},
		"properties": {
			"status": "Running",
			"jobTemplateName": "smoke",
			"startTime": "2024-05-01T10:05:00Z",
			"somethingNew": true
		}
	}`

	job, err := InterpretJob(getJobDescriptor(), &Response{StatusCode: http.StatusOK, Body: []byte(body)})
	require.NoError(t, err)

	assert.Equal(t, "job1", job.Name)
	assert.Equal(t, "westus3", job.Location)
	assert.Equal(t, JobStatusRunning, job.Status)
	assert.Equal(t, "smoke", job.TemplateName)
	assert.Equal(t, map[string]string{"team": "images"}, job.Metadata)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), job.CreatedAt.UTC())
	assert.Equal(t, time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC), job.UpdatedAt.UTC())
	assert.Equal(t, time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC), job.StartedAt.UTC())
	assert.True(t, job.FinishedAt.IsZero())
	assert.JSONEq(t, body, string(job.Raw))
}

func TestInterpretJobProtocolErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		errText string
	}{
		{
			name:    "malformed json",
			body:    `{"id": "x", "properties": `,
			errText: "malformed job payload",
		},
		{
			name:    "missing id",
			body:    `{"name": "job1", "properties": {"status": "running"}}`,
			errText: "missing id",
		},
		{
			name:    "missing status",
			body:    `{"id": "job1", "properties": {}}`,
			errText: "missing properties.status",
		},
		{
			name:    "missing properties",
			body:    `{"id": "job1"}`,
			errText: "missing properties.status",
		},
		{
			name:    "unknown status",
			body:    `{"id": "job1", "properties": {"status": "exploded"}}`,
			errText: "unknown job status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := InterpretJob(getJobDescriptor(), &Response{StatusCode: http.StatusOK, Body: []byte(tt.body)})
			require.Error(t, err)
			assert.Nil(t, job)
			assert.Equal(t, KindProtocol, KindOf(err))
			assert.Contains(t, err.Error(), tt.errText)

			var aerr *Error
			require.True(t, errors.As(err, &aerr))
			assert.Equal(t, http.StatusOK, aerr.StatusCode)
			assert.Equal(t, tt.body, aerr.Body)
		})
	}
}

func TestInterpretTemplate(t *testing.T) {
	d := &Descriptor{Operation: "get-template", Expected: []int{http.StatusOK}}

	body, err := json.Marshal(templatePayload("smoke"))
	require.NoError(t, err)

	tmpl, err := InterpretTemplate(d, &Response{StatusCode: http.StatusOK, Body: body})
	require.NoError(t, err)
	assert.Equal(t, "smoke", tmpl.Name)
	assert.Equal(t, []string{"westeurope"}, tmpl.Spec.Region)
	assert.Equal(t, 1, tmpl.Spec.Concurrency)
	assert.NotNil(t, tmpl.Metadata)

	_, err = InterpretTemplate(d, &Response{StatusCode: http.StatusOK, Body: []byte(`{"id": "x"}`)})
	require.Error(t, err)
	assert.Equal(t, KindProtocol, KindOf(err))
}

func TestInterpretPage(t *testing.T) {
	d := &Descriptor{Operation: "list-jobs", Expected: []int{http.StatusOK}}

	t.Run("records and cursor", func(t *testing.T) {
		body := `{"value": [
			{"id": "a", "name": "a", "properties": {"status": "passed"}},
			{"id": "b", "name": "b", "properties": {"status": "failed"}}
		], "nextLink": "https://example.com/next"}`

		p, err := interpretPage(d, &Response{StatusCode: http.StatusOK, Body: []byte(body)}, decodeJob)
		require.NoError(t, err)
		require.Len(t, p.items, 2)
		assert.Equal(t, "a", p.items[0].Name)
		assert.Equal(t, JobStatusFailed, p.items[1].Status)
		assert.Equal(t, "https://example.com/next", p.nextLink)
	})

	t.Run("empty page", func(t *testing.T) {
		p, err := interpretPage(d, &Response{StatusCode: http.StatusOK, Body: []byte(`{"value": []}`)}, decodeJob)
		require.NoError(t, err)
		assert.Empty(t, p.items)
		assert.Empty(t, p.nextLink)
	})

	for name, body := range map[string]string{
		"missing value": `{"items": []}`,
		"null value":    `{"value": null}`,
		"not an object": `[]`,
		"bad record":    `{"value": [{"name": "no-id", "properties": {"status": "passed"}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			p, err := interpretPage(d, &Response{StatusCode: http.StatusOK, Body: []byte(body)}, decodeJob)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.Equal(t, KindProtocol, KindOf(err))
		})
	}
}

func TestErrorBodySnippet(t *testing.T) {
	body := strings.Repeat("x", 2000)

	err := Classify(getJobDescriptor(), &Response{StatusCode: http.StatusInternalServerError, Body: []byte(body)})
	require.Error(t, err)

	var aerr *Error
	require.True(t, errors.As(err, &aerr))
	assert.Len(t, aerr.Body, maxSnippet+len("..."))
	assert.True(t, strings.HasSuffix(aerr.Body, "..."))
}

func TestParseJobStatus(t *testing.T) {
	tests := []struct {
		input    string
		want     JobStatus
		terminal bool
		wantErr  bool
	}{
		{input: "pending", want: JobStatusPending},
		{input: "RUNNING", want: JobStatusRunning},
		{input: " Passed ", want: JobStatusPassed, terminal: true},
		{input: "failed", want: JobStatusFailed, terminal: true},
		{input: "Error", want: JobStatusError, terminal: true},
		{input: "", wantErr: true},
		{input: "cancelled", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseJobStatus(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.terminal, got.IsTerminal())
		})
	}
}
