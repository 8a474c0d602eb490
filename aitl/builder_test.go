package aitl

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testScope = Scope{SubscriptionID: "testsub", ResourceGroup: "testgroup"}

func TestBuildCreateJob(t *testing.T) {
	b := NewBuilder(testScope)

	d, err := b.Build(CreateJob{
		Name:         "testjob",
		TemplateName: "testtemplate",
		Location:     "testlocation",
		Image: ImageSource{
			VHDSASURL:    "http://foobar",
			Architecture: "x64",
			VMGeneration: 1,
		},
		TestSelection: TestSelection{
			TestPriorities: []int{1, 2},
			Regions:        []string{"testregion"},
			VMSize:         "testsize",
			Concurrency:    2,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "create-job", d.Operation)
	assert.Equal(t, http.MethodPut, d.Method)
	assert.Equal(t, "/subscriptions/testsub/resourceGroups/testgroup/providers/Microsoft.AzureImageTestingForLinux/jobs/testjob", d.Path)
	assert.Equal(t, "api-version=2023-08-01-preview", d.RawQuery())
	assert.False(t, d.Idempotent)
	assert.Equal(t, []int{http.StatusOK, http.StatusCreated}, d.Expected)

	expected := `{
		"location": "testlocation",
		"properties": {
			"jobTemplateName": "testtemplate",
			"jobTemplateInstance": {
				"templateTags": [],
				"selections": [{"casePriority": [1, 2]}],
				"region": ["testregion"],
				"vmSize": ["testsize"],
				"concurrency": 2
			},
			"image": {
				"vhdGeneration": 1,
				"architecture": "x64",
				"type": "vhd",
				"url": "http://foobar"
			}
		}
	}`
	assert.JSONEq(t, expected, string(d.Body))
}

func TestBuildCreateJobMarketplaceImage(t *testing.T) {
	b := NewBuilder(testScope)

	d, err := b.Build(CreateJob{
		Name:  "testjob",
		Image: ImageSource{MarketplaceURN: "Canonical:ubuntu-24_04-lts:server:latest"},
	})
	require.NoError(t, err)

	expected := `{
		"location": "westus3",
		"properties": {
			"jobTemplateInstance": {
				"templateTags": [],
				"region": [],
				"vmSize": [],
				"concurrency": 0
			},
			"image": {
				"vhdGeneration": 2,
				"type": "marketplace",
				"publisher": "Canonical",
				"offer": "ubuntu-24_04-lts",
				"sku": "server",
				"version": "latest"
			}
		}
	}`
	assert.JSONEq(t, expected, string(d.Body))
}

func TestBuildCreateTemplate(t *testing.T) {
	b := NewBuilder(testScope)

	d, err := b.Build(CreateTemplate{
		Name: "smoke",
		TestSelection: TestSelection{
			TestCases: []string{"verify_reboot"},
			Regions:   []string{"westeurope"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, d.Method)
	assert.True(t, d.Idempotent)
	assert.Equal(t, "/subscriptions/testsub/resourceGroups/testgroup/providers/Microsoft.AzureImageTestingForLinux/jobTemplates/smoke", d.Path)

	expected := `{
		"location": "westus3",
		"name": "smoke",
		"properties": {
			"templateTags": [],
			"selections": [{"caseName": ["verify_reboot"]}],
			"region": ["westeurope"],
			"vmSize": [],
			"concurrency": 0
		}
	}`
	assert.JSONEq(t, expected, string(d.Body))
}

func TestBuildDeterministic(t *testing.T) {
	op := CreateJob{
		Name:         "job",
		TemplateName: "tmpl",
		Image:        ImageSource{MarketplaceURN: "a:b:c:d", Architecture: "arm64"},
		TestSelection: TestSelection{
			TestPriorities: []int{0, 1},
			TestCases:      []string{"x", "y"},
			Regions:        []string{"westeurope", "eastus"},
			VMSize:         "Standard_D2s_v5",
			Concurrency:    4,
		},
	}

	first, err := NewBuilder(testScope).Build(op)
	require.NoError(t, err)
	second, err := NewBuilder(testScope).Build(op)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, string(first.Body), string(second.Body))
	assert.Equal(t, first.RawQuery(), second.RawQuery())
}

func TestBuildReadOperations(t *testing.T) {
	b := NewBuilder(testScope)
	base := "/subscriptions/testsub/resourceGroups/testgroup/providers/Microsoft.AzureImageTestingForLinux"

	tests := []struct {
		name     string
		op       Operation
		method   string
		path     string
		expected []int
	}{
		{
			name:     "list templates",
			op:       ListTemplates{},
			method:   http.MethodGet,
			path:     base + "/jobTemplates",
			expected: []int{http.StatusOK},
		},
		{
			name:     "get template",
			op:       GetTemplate{Name: "tmpl"},
			method:   http.MethodGet,
			path:     base + "/jobTemplates/tmpl",
			expected: []int{http.StatusOK},
		},
		{
			name:     "list jobs",
			op:       ListJobs{},
			method:   http.MethodGet,
			path:     base + "/jobs",
			expected: []int{http.StatusOK},
		},
		{
			name:     "get job escapes name",
			op:       GetJob{Name: "job one"},
			method:   http.MethodGet,
			path:     base + "/jobs/job%20one",
			expected: []int{http.StatusOK},
		},
		{
			name:     "delete job",
			op:       DeleteJob{Name: "job"},
			method:   http.MethodDelete,
			path:     base + "/jobs/job",
			expected: []int{http.StatusOK, http.StatusAccepted, http.StatusNoContent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := b.Build(tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.op.Op(), d.Operation)
			assert.Equal(t, tt.method, d.Method)
			assert.Equal(t, tt.path, d.Path)
			assert.Equal(t, tt.expected, d.Expected)
			assert.True(t, d.Idempotent)
			assert.Nil(t, d.Body)
			assert.Equal(t, DefaultAPIVersion, d.Query["api-version"])
		})
	}
}

func TestBuildListJobsQuery(t *testing.T) {
	d, err := NewBuilder(testScope).Build(ListJobs{Filter: "properties/status eq 'running'", Top: 10})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"api-version": DefaultAPIVersion,
		"$filter":     "properties/status eq 'running'",
		"$top":        "10",
	}, d.Query)
}

func TestBuildValidation(t *testing.T) {
	validImage := ImageSource{VHDSASURL: "https://example.blob.core.windows.net/vhd"}

	tests := []struct {
		name    string
		scope   Scope
		op      Operation
		wantErr error
	}{
		{
			name:    "missing scope",
			scope:   Scope{SubscriptionID: "sub"},
			op:      ListJobs{},
			wantErr: ErrMissingScope,
		},
		{
			name:    "empty name",
			scope:   testScope,
			op:      GetJob{Name: " "},
			wantErr: ErrMissingName,
		},
		{
			name:    "name with slash",
			scope:   testScope,
			op:      GetTemplate{Name: "a/b"},
			wantErr: ErrInvalidName,
		},
		{
			name:    "dot dot name",
			scope:   testScope,
			op:      DeleteJob{Name: ".."},
			wantErr: ErrInvalidName,
		},
		{
			name:    "both image sources",
			scope:   testScope,
			op:      CreateJob{Name: "j", Image: ImageSource{VHDSASURL: "u", MarketplaceURN: "a:b:c:d"}},
			wantErr: ErrImageSourceConflict,
		},
		{
			name:    "no image source",
			scope:   testScope,
			op:      CreateJob{Name: "j"},
			wantErr: ErrImageSourceMissing,
		},
		{
			name:    "short urn",
			scope:   testScope,
			op:      CreateJob{Name: "j", Image: ImageSource{MarketplaceURN: "a:b:c"}},
			wantErr: ErrInvalidMarketplaceURN,
		},
		{
			name:    "urn with empty part",
			scope:   testScope,
			op:      CreateJob{Name: "j", Image: ImageSource{MarketplaceURN: "a::c:d"}},
			wantErr: ErrInvalidMarketplaceURN,
		},
		{
			name:    "bad architecture",
			scope:   testScope,
			op:      CreateJob{Name: "j", Image: ImageSource{VHDSASURL: "u", Architecture: "riscv"}},
			wantErr: ErrInvalidArchitecture,
		},
		{
			name:    "bad generation",
			scope:   testScope,
			op:      CreateJob{Name: "j", Image: ImageSource{VHDSASURL: "u", VMGeneration: 3}},
			wantErr: ErrInvalidVMGeneration,
		},
		{
			name:    "concurrency too high",
			scope:   testScope,
			op:      CreateJob{Name: "j", Image: validImage, TestSelection: TestSelection{Concurrency: 5}},
			wantErr: ErrInvalidConcurrency,
		},
		{
			name:    "negative priority",
			scope:   testScope,
			op:      CreateTemplate{Name: "t", TestSelection: TestSelection{TestPriorities: []int{-1}}},
			wantErr: ErrInvalidTestPriority,
		},
		{
			name:  "negative top",
			scope: testScope,
			op:    ListJobs{Top: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewBuilder(tt.scope).Build(tt.op)
			require.Error(t, err)
			assert.Nil(t, d)
			assert.Equal(t, KindValidation, KindOf(err))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
		})
	}
}
