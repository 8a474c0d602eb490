package aitl

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// Response is a raw HTTP response as returned by Transport.Send. The body has
// already been read and the connection released.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Attempts is the number of HTTP attempts made for this call
	Attempts int
}

// Classify checks raw against the descriptor's expected statuses and returns the
// API or Protocol error describing any other outcome.
func Classify(d *Descriptor, raw *Response) error {
	switch status := raw.StatusCode; {
	case d.expects(status):
		return nil
	case status >= 400 && status < 600:
		return apiError(d.Operation, raw)
	default:
		return protocolError(d.Operation, status, raw.Body, "unexpected status %d %s", status, http.StatusText(status))
	}
}

// apiError builds an API error from an ARM error envelope, falling back to the
// status text when the body is not one.
func apiError(op string, raw *Response) *Error {
	e := &Error{
		Kind:       KindAPI,
		Op:         op,
		StatusCode: raw.StatusCode,
		Body:       snippet(raw.Body),
		Retryable:  raw.StatusCode == http.StatusTooManyRequests || raw.StatusCode >= 500,
		Attempts:   raw.Attempts,
	}

	var envelope errorResponse
	if err := json.Unmarshal(raw.Body, &envelope); err == nil && envelope.Error != nil {
		e.Code = envelope.Error.Code
		e.Message = envelope.Error.Message
	}
	if e.Message == "" {
		e.Message = http.StatusText(raw.StatusCode)
	}

	return e
}

// InterpretJob classifies raw and decodes a single job from it
func InterpretJob(d *Descriptor, raw *Response) (*Job, error) {
	if err := Classify(d, raw); err != nil {
		return nil, err
	}
	return decodeJob(d.Operation, raw.StatusCode, raw.Body)
}

// InterpretTemplate classifies raw and decodes a single job template from it
func InterpretTemplate(d *Descriptor, raw *Response) (*Template, error) {
	if err := Classify(d, raw); err != nil {
		return nil, err
	}
	return decodeTemplate(d.Operation, raw.StatusCode, raw.Body)
}

// interpretEmpty classifies responses whose body carries nothing the caller needs
func interpretEmpty(d *Descriptor, raw *Response) error {
	return Classify(d, raw)
}

// page is one decoded collection page
type page[T any] struct {
	items    []T
	nextLink string
}

// interpretPage classifies raw and decodes an ARM collection page with decode
func interpretPage[T any](d *Descriptor, raw *Response, decode func(op string, status int, data []byte) (T, error)) (*page[T], error) {
	if err := Classify(d, raw); err != nil {
		return nil, err
	}

	var envelope listResponse
	if err := json.Unmarshal(raw.Body, &envelope); err != nil {
		return nil, protocolError(d.Operation, raw.StatusCode, raw.Body, "malformed collection payload: %v", err)
	}
	if envelope.Value == nil {
		return nil, protocolError(d.Operation, raw.StatusCode, raw.Body, "collection payload has no value field")
	}

	p := &page[T]{
		items:    make([]T, 0, len(*envelope.Value)),
		nextLink: envelope.NextLink,
	}
	for _, item := range *envelope.Value {
		record, err := decode(d.Operation, raw.StatusCode, item)
		if err != nil {
			return nil, err
		}
		p.items = append(p.items, record)
	}

	return p, nil
}

func decodeJob(op string, status int, data []byte) (*Job, error) {
	var res jobResource
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, protocolError(op, status, data, "malformed job payload: %v", err)
	}
	if res.ID == "" {
		return nil, protocolError(op, status, data, "job payload is missing id")
	}
	if res.Properties == nil || res.Properties.Status == nil {
		return nil, protocolError(op, status, data, "job %s is missing properties.status", res.ID)
	}

	jobStatus, err := ParseJobStatus(*res.Properties.Status)
	if err != nil {
		return nil, protocolError(op, status, data, "job %s: %v", res.ID, err)
	}

	job := &Job{
		ID:           res.ID,
		Name:         res.Name,
		Location:     res.Location,
		Status:       jobStatus,
		TemplateName: res.Properties.JobTemplateName,
		Metadata:     res.Tags,
		StartedAt:    timeValue(res.Properties.StartTime),
		FinishedAt:   timeValue(res.Properties.EndTime),
		Raw:          json.RawMessage(bytes.Clone(data)),
	}
	if job.Metadata == nil {
		job.Metadata = map[string]string{}
	}
	if res.SystemData != nil {
		job.CreatedAt = timeValue(res.SystemData.CreatedAt)
		job.UpdatedAt = timeValue(res.SystemData.LastModifiedAt)
	}

	return job, nil
}

func decodeTemplate(op string, status int, data []byte) (*Template, error) {
	var res templateResource
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, protocolError(op, status, data, "malformed job template payload: %v", err)
	}
	if res.ID == "" || res.Name == "" {
		return nil, protocolError(op, status, data, "job template payload is missing id or name")
	}

	tmpl := &Template{
		ID:       res.ID,
		Name:     res.Name,
		Location: res.Location,
		Metadata: res.Tags,
		Raw:      json.RawMessage(bytes.Clone(data)),
	}
	if tmpl.Metadata == nil {
		tmpl.Metadata = map[string]string{}
	}
	if res.Properties != nil {
		tmpl.Spec = *res.Properties
	}

	return tmpl, nil
}
