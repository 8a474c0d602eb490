package aitl

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testBasePath = "/subscriptions/testsub/resourceGroups/testgroup/providers/Microsoft.AzureImageTestingForLinux"

// newTestServer starts a fake ARM endpoint with routes mounted under the test scope
func newTestServer(t *testing.T, routes func(r chi.Router)) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Route(testBasePath, routes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, endpoint string, opts ...Option) *Client {
	t.Helper()

	creds, err := NewCredentials("test-token")
	require.NoError(t, err)

	opts = append([]Option{
		WithRetryWait(time.Millisecond, 5*time.Millisecond),
		WithRateLimit(0),
	}, opts...)

	client, err := NewClient(endpoint, creds, testScope, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return client
}

func jobPayload(name, status string) map[string]any {
	return map[string]any{
		"id":       testBasePath + "/jobs/" + name,
		"name":     name,
		"type":     "Microsoft.AzureImageTestingForLinux/jobs",
		"location": "westus3",
		"tags":     map[string]string{"team": "images"},
		"properties": map[string]any{
			"status":          status,
			"jobTemplateName": "smoke",
		},
	}
}

func templatePayload(name string) map[string]any {
	return map[string]any{
		"id":       testBasePath + "/jobTemplates/" + name,
		"name":     name,
		"location": "westus3",
		"properties": map[string]any{
			"templateTags": []string{},
			"region":       []string{"westeurope"},
			"vmSize":       []string{},
			"concurrency":  1,
		},
	}
}

func armError(code, message string) map[string]any {
	return map[string]any{
		"error": map[string]string{"code": code, "message": message},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
