package storage_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/storage"
)

// mockTransport implements http.RoundTripper for mocking Elasticsearch responses
type mockTransport struct {
	mu          sync.Mutex
	requests    []*http.Request
	bodies      []string
	RoundTripFn func(req *http.Request) (*http.Response, error)
}

func (t *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
	}
	t.mu.Lock()
	t.requests = append(t.requests, req)
	t.bodies = append(t.bodies, body)
	t.mu.Unlock()
	return t.RoundTripFn(req)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"X-Elastic-Product": []string{"Elasticsearch"}, "Content-Type": []string{"application/json"}},
	}
}

func newIndexer(t *testing.T, transport *mockTransport) *storage.ListingIndexer {
	t.Helper()
	client, err := es.NewClient(es.Config{Transport: transport})
	require.NoError(t, err)
	return storage.NewListingIndexer(client, "listings_test", nil)
}

func operation() *domain.Operation {
	return &domain.Operation{
		RequestID:      "req-1",
		TaskID:         "task-1",
		RequestingUser: "user-1",
		AggregatedListings: domain.Listings{
			{Source: domain.SourceKalibrr, Title: "Go Engineer", URL: "https://www.kalibrr.com/c/acme/jobs/1/go", PostedDate: "2024-03-18"},
			{Source: domain.SourceIndeed, Title: "Backend Developer", URL: "https://indeed.com/viewjob?jk=2", PostedDate: domain.Unspecified},
		},
	}
}

func TestIndexOperation_WritesBulkBody(t *testing.T) {
	t.Parallel()

	transport := &mockTransport{RoundTripFn: func(*http.Request) (*http.Response, error) {
		return response(http.StatusOK, `{"took":3,"errors":false,"items":[{"index":{"status":201}},{"index":{"status":201}}]}`), nil
	}}
	indexer := newIndexer(t, transport)

	require.NoError(t, indexer.IndexOperation(context.Background(), operation()))

	require.Len(t, transport.requests, 1)
	assert.Equal(t, "/listings_test/_bulk", transport.requests[0].URL.Path)

	var lines []string
	sc := bufio.NewScanner(strings.NewReader(transport.bodies[0]))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 4)

	var action map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &action))
	assert.Equal(t, storage.DocumentID("https://www.kalibrr.com/c/acme/jobs/1/go"), action["index"]["_id"])

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &doc))
	assert.Equal(t, "indeed", doc["source"])
	assert.Equal(t, "user-1", doc["requesting_user"])
	assert.Equal(t, domain.Unspecified, doc["posted_date"])
}

func TestIndexOperation_ReportsItemFailures(t *testing.T) {
	t.Parallel()

	transport := &mockTransport{RoundTripFn: func(*http.Request) (*http.Response, error) {
		return response(http.StatusOK, `{"errors":true,"items":[
			{"index":{"status":201}},
			{"index":{"status":400,"error":{"type":"mapper_parsing_exception","reason":"failed to parse field"}}}
		]}`), nil
	}}

	err := newIndexer(t, transport).IndexOperation(context.Background(), operation())
	require.ErrorIs(t, err, storage.ErrBulkPartial)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

func TestIndexOperation_SkipsEmptyOperations(t *testing.T) {
	t.Parallel()

	transport := &mockTransport{RoundTripFn: func(*http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	}}
	require.NoError(t, newIndexer(t, transport).IndexOperation(context.Background(), &domain.Operation{}))
}

func TestEnsureIndex_CreatesMissingIndex(t *testing.T) {
	t.Parallel()

	transport := &mockTransport{RoundTripFn: func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodHead {
			return response(http.StatusNotFound, ``), nil
		}
		return response(http.StatusOK, `{"acknowledged":true,"index":"listings_test"}`), nil
	}}

	require.NoError(t, newIndexer(t, transport).EnsureIndex(context.Background()))
	require.Len(t, transport.requests, 2)
	assert.Equal(t, http.MethodPut, transport.requests[1].Method)
	assert.Contains(t, transport.bodies[1], `"request_id"`)
}

func TestEnsureIndex_ExistingIndex(t *testing.T) {
	t.Parallel()

	transport := &mockTransport{RoundTripFn: func(*http.Request) (*http.Response, error) {
		return response(http.StatusOK, ``), nil
	}}

	require.NoError(t, newIndexer(t, transport).EnsureIndex(context.Background()))
	assert.Len(t, transport.requests, 1)
}

func TestDocumentID_IsStable(t *testing.T) {
	t.Parallel()

	a := storage.DocumentID("https://example.com/jobs/1")
	assert.Equal(t, a, storage.DocumentID("https://example.com/jobs/1"))
	assert.NotEqual(t, a, storage.DocumentID("https://example.com/jobs/2"))
}
