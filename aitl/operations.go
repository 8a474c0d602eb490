package aitl

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
)

const (
	collectionJobs      = "jobs"
	collectionTemplates = "jobTemplates"
)

// ListTemplates lists all job templates in the resource group
type ListTemplates struct{}

// Op implements Operation
func (ListTemplates) Op() string { return "list-templates" }

func (o ListTemplates) descriptor(b *Builder) (*Descriptor, error) {
	return &Descriptor{
		Method:     http.MethodGet,
		Path:       b.collectionPath(collectionTemplates),
		Query:      b.query(nil),
		Expected:   []int{http.StatusOK},
		Idempotent: true,
	}, nil
}

// GetTemplate fetches a single job template
type GetTemplate struct {
	Name string
}

// Op implements Operation
func (GetTemplate) Op() string { return "get-template" }

func (o GetTemplate) descriptor(b *Builder) (*Descriptor, error) {
	path, err := b.resourcePath(o.Op(), collectionTemplates, o.Name)
	if err != nil {
		return nil, err
	}
	return &Descriptor{
		Method:     http.MethodGet,
		Path:       path,
		Query:      b.query(nil),
		Expected:   []int{http.StatusOK},
		Idempotent: true,
	}, nil
}

// TestSelection holds the test-related parameters shared by templates and jobs
type TestSelection struct {
	// TestPriorities selects cases by priority. With no priorities and no
	// case names the service runs only p0 (smoke) tests.
	TestPriorities []int
	TestCases      []string
	Regions        []string
	VMSize         string
	Concurrency    int
}

func (s TestSelection) validate() error {
	if s.Concurrency < 0 || s.Concurrency > 4 {
		return fmt.Errorf("%w, got %d", ErrInvalidConcurrency, s.Concurrency)
	}
	for _, p := range s.TestPriorities {
		if p < 0 {
			return fmt.Errorf("%w, got %d", ErrInvalidTestPriority, p)
		}
	}
	return nil
}

// spec builds the template payload
func (s TestSelection) spec() TemplateSpec {
	spec := TemplateSpec{
		TemplateTags: []string{},
		Region:       []string{},
		VMSize:       []string{},
		Concurrency:  s.Concurrency,
	}

	selection := Selection{
		CasePriority: s.TestPriorities,
		CaseName:     s.TestCases,
	}
	if !selection.IsEmpty() {
		spec.Selections = []Selection{selection}
	}

	if len(s.Regions) > 0 {
		spec.Region = append(spec.Region, s.Regions...)
	}
	if s.VMSize != "" {
		spec.VMSize = append(spec.VMSize, s.VMSize)
	}

	return spec
}

// CreateTemplate creates or replaces a job template
type CreateTemplate struct {
	Name     string
	Location string
	TestSelection
}

// Op implements Operation
func (CreateTemplate) Op() string { return "create-template" }

func (o CreateTemplate) descriptor(b *Builder) (*Descriptor, error) {
	path, err := b.resourcePath(o.Op(), collectionTemplates, o.Name)
	if err != nil {
		return nil, err
	}
	if err := o.TestSelection.validate(); err != nil {
		return nil, validationError(o.Op(), err)
	}

	body, err := encodeBody(o.Op(), templateRequest{
		Location:   locationOrDefault(o.Location),
		Name:       o.Name,
		Properties: o.TestSelection.spec(),
	})
	if err != nil {
		return nil, err
	}

	// Replacing a template with the same definition has no further effect,
	// so the request is safe to retry.
	return &Descriptor{
		Method:     http.MethodPut,
		Path:       path,
		Query:      b.query(nil),
		Body:       body,
		Expected:   []int{http.StatusOK, http.StatusCreated},
		Idempotent: true,
	}, nil
}

// ListJobs lists test jobs, optionally narrowed server-side
type ListJobs struct {
	// Filter is passed through as the OData $filter parameter
	Filter string
	// Top limits the page size requested from the service
	Top int
}

// Op implements Operation
func (ListJobs) Op() string { return "list-jobs" }

func (o ListJobs) descriptor(b *Builder) (*Descriptor, error) {
	if o.Top < 0 {
		return nil, validationError(o.Op(), fmt.Errorf("top must not be negative, got %d", o.Top))
	}

	extra := map[string]string{"$filter": o.Filter}
	if o.Top > 0 {
		extra["$top"] = strconv.Itoa(o.Top)
	}

	return &Descriptor{
		Method:     http.MethodGet,
		Path:       b.collectionPath(collectionJobs),
		Query:      b.query(extra),
		Expected:   []int{http.StatusOK},
		Idempotent: true,
	}, nil
}

// GetJob fetches a single test job
type GetJob struct {
	Name string
}

// Op implements Operation
func (GetJob) Op() string { return "get-job" }

func (o GetJob) descriptor(b *Builder) (*Descriptor, error) {
	path, err := b.resourcePath(o.Op(), collectionJobs, o.Name)
	if err != nil {
		return nil, err
	}
	return &Descriptor{
		Method:     http.MethodGet,
		Path:       path,
		Query:      b.query(nil),
		Expected:   []int{http.StatusOK},
		Idempotent: true,
	}, nil
}

// DeleteJob deletes a test job
type DeleteJob struct {
	Name string
}

// Op implements Operation
func (DeleteJob) Op() string { return "delete-job" }

func (o DeleteJob) descriptor(b *Builder) (*Descriptor, error) {
	path, err := b.resourcePath(o.Op(), collectionJobs, o.Name)
	if err != nil {
		return nil, err
	}
	return &Descriptor{
		Method:     http.MethodDelete,
		Path:       path,
		Query:      b.query(nil),
		Expected:   []int{http.StatusOK, http.StatusAccepted, http.StatusNoContent},
		Idempotent: true,
	}, nil
}

// ImageSource identifies the image under test. Exactly one of MarketplaceURN and
// VHDSASURL must be set.
type ImageSource struct {
	MarketplaceURN string
	VHDSASURL      string
	Architecture   string
	// VMGeneration is the Hyper-V generation, 2 when left at zero
	VMGeneration int
}

func (s ImageSource) image() (Image, error) {
	img := Image{
		VHDGeneration: s.VMGeneration,
		Architecture:  s.Architecture,
	}
	if img.VHDGeneration == 0 {
		img.VHDGeneration = 2
	}
	if img.VHDGeneration < 1 || img.VHDGeneration > 2 {
		return Image{}, fmt.Errorf("%w, got %d", ErrInvalidVMGeneration, img.VHDGeneration)
	}
	switch s.Architecture {
	case "", "x64", "arm64":
	default:
		return Image{}, fmt.Errorf("%w, got %q", ErrInvalidArchitecture, s.Architecture)
	}

	switch {
	case s.MarketplaceURN != "" && s.VHDSASURL != "":
		return Image{}, ErrImageSourceConflict
	case s.MarketplaceURN != "":
		parts := strings.Split(s.MarketplaceURN, ":")
		if len(parts) != 4 || slices.Contains(parts, "") {
			return Image{}, fmt.Errorf("%w, got %s", ErrInvalidMarketplaceURN, s.MarketplaceURN)
		}
		img.Type = ImageTypeMarketplace
		img.Publisher, img.Offer, img.SKU, img.Version = parts[0], parts[1], parts[2], parts[3]
	case s.VHDSASURL != "":
		img.Type = ImageTypeVHD
		img.URL = s.VHDSASURL
	default:
		return Image{}, ErrImageSourceMissing
	}

	return img, nil
}

// CreateJob submits a new test job
type CreateJob struct {
	Name         string
	TemplateName string
	Location     string
	Image        ImageSource
	TestSelection
}

// Op implements Operation
func (CreateJob) Op() string { return "create-job" }

func (o CreateJob) descriptor(b *Builder) (*Descriptor, error) {
	path, err := b.resourcePath(o.Op(), collectionJobs, o.Name)
	if err != nil {
		return nil, err
	}
	if err := o.TestSelection.validate(); err != nil {
		return nil, validationError(o.Op(), err)
	}
	img, err := o.Image.image()
	if err != nil {
		return nil, validationError(o.Op(), err)
	}

	body, err := encodeBody(o.Op(), jobRequest{
		Location: locationOrDefault(o.Location),
		Properties: jobRequestPayload{
			JobTemplateName:     o.TemplateName,
			JobTemplateInstance: o.TestSelection.spec(),
			Image:               img,
		},
	})
	if err != nil {
		return nil, err
	}

	// Submitting starts test execution; a blind retry could launch it twice.
	return &Descriptor{
		Method:     http.MethodPut,
		Path:       path,
		Query:      b.query(nil),
		Body:       body,
		Expected:   []int{http.StatusOK, http.StatusCreated},
		Idempotent: false,
	}, nil
}

func locationOrDefault(location string) string {
	if location == "" {
		return DefaultLocation
	}
	return location
}
