package aitl

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultProvider is the ARM resource provider of the service
	DefaultProvider = "Microsoft.AzureImageTestingForLinux"
	// DefaultAPIVersion is the api-version sent with every request
	DefaultAPIVersion = "2023-08-01-preview"
	// DefaultLocation is the ARM location of jobs and templates
	DefaultLocation = "westus3"
)

// Scope identifies where resources live
type Scope struct {
	SubscriptionID string
	ResourceGroup  string
	Provider       string
	APIVersion     string
}

// Operation is a named logical action that can be turned into a Descriptor
type Operation interface {
	// Op returns the CLI-facing operation name
	Op() string

	descriptor(b *Builder) (*Descriptor, error)
}

// Builder translates operations into request descriptors. It performs no I/O.
type Builder struct {
	scope Scope
}

// NewBuilder creates a Builder for the given scope, filling provider and api-version defaults
func NewBuilder(scope Scope) *Builder {
	if scope.Provider == "" {
		scope.Provider = DefaultProvider
	}
	if scope.APIVersion == "" {
		scope.APIVersion = DefaultAPIVersion
	}
	return &Builder{scope: scope}
}

// Scope returns the scope the builder was created with
func (b *Builder) Scope() Scope {
	return b.scope
}

// Build validates op and produces its descriptor
func (b *Builder) Build(op Operation) (*Descriptor, error) {
	if b.scope.SubscriptionID == "" || b.scope.ResourceGroup == "" {
		return nil, validationError(op.Op(), ErrMissingScope)
	}

	d, err := op.descriptor(b)
	if err != nil {
		return nil, err
	}
	d.Operation = op.Op()

	return d, nil
}

// collectionPath returns the path of a resource collection, e.g. jobs
func (b *Builder) collectionPath(collection string) string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/%s/%s",
		url.PathEscape(b.scope.SubscriptionID),
		url.PathEscape(b.scope.ResourceGroup),
		b.scope.Provider,
		collection)
}

// resourcePath returns the path of a named resource within a collection
func (b *Builder) resourcePath(op, collection, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", validationError(op, err)
	}
	return b.collectionPath(collection) + "/" + url.PathEscape(name), nil
}

// query returns the base query parameters merged with extra
func (b *Builder) query(extra map[string]string) map[string]string {
	q := map[string]string{"api-version": b.scope.APIVersion}
	for k, v := range extra {
		if v != "" {
			q[k] = v
		}
	}
	return q
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrMissingName
	}
	if name == "." || name == ".." || strings.ContainsAny(name, "/?#") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// encodeBody serializes a request payload
func encodeBody(op string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, validationError(op, fmt.Errorf("failed to encode request body: %w", err))
	}
	return body, nil
}
