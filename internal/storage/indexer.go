package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"

	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/logger"
)

// ErrBulkPartial is returned when some documents of a bulk request failed.
var ErrBulkPartial = errors.New("bulk request partially failed")

const listingMapping = `{
  "mappings": {
    "properties": {
      "request_id":      {"type": "keyword"},
      "task_id":         {"type": "keyword"},
      "requesting_user": {"type": "keyword"},
      "source":          {"type": "keyword"},
      "posted_date":     {"type": "keyword"},
      "title":           {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "company":         {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "location":        {"type": "text"},
      "employment_type": {"type": "keyword"},
      "seniority":       {"type": "keyword"},
      "compensation":    {"type": "text"},
      "description":     {"type": "text"},
      "url":             {"type": "keyword"},
      "indexed_at":      {"type": "date"}
    }
  }
}`

// listingDocument is the indexed form of a listing. The document id is
// derived from the URL so re-running a search updates instead of duplicating.
type listingDocument struct {
	RequestID      string    `json:"request_id"`
	TaskID         string    `json:"task_id"`
	RequestingUser string    `json:"requesting_user"`
	Source         string    `json:"source"`
	PostedDate     string    `json:"posted_date"`
	Title          string    `json:"title"`
	Company        string    `json:"company"`
	Location       string    `json:"location"`
	EmploymentType string    `json:"employment_type"`
	Seniority      string    `json:"seniority"`
	Compensation   string    `json:"compensation"`
	Description    string    `json:"description"`
	URL            string    `json:"url"`
	IndexedAt      time.Time `json:"indexed_at"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// ListingIndexer writes operation listings with the bulk API.
type ListingIndexer struct {
	client *es.Client
	index  string
	log    logger.Logger
	now    func() time.Time
}

// NewListingIndexer creates an indexer for index.
func NewListingIndexer(client *es.Client, index string, log logger.Logger) *ListingIndexer {
	if index == "" {
		index = DefaultIndex
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ListingIndexer{
		client: client,
		index:  index,
		log:    log.With(logger.String("component", "listing_indexer"), logger.String("index", index)),
		now:    time.Now,
	}
}

// DocumentID returns the stable document id for a listing URL.
func DocumentID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

// EnsureIndex creates the index with its mapping when missing.
func (i *ListingIndexer) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.index}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", i.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("failed to check index %s: %s", i.index, res.Status())
	}

	res, err = i.client.Indices.Create(i.index,
		i.client.Indices.Create.WithContext(ctx),
		i.client.Indices.Create.WithBody(strings.NewReader(listingMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", i.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("failed to create index %s [%s]: %s", i.index, res.Status(), body)
	}
	i.log.Info("Created listing index")
	return nil
}

// IndexOperation bulk-indexes the operation's aggregated listings.
func (i *ListingIndexer) IndexOperation(ctx context.Context, op *domain.Operation) error {
	if len(op.AggregatedListings) == 0 {
		return nil
	}

	body, err := i.bulkBody(op)
	if err != nil {
		return err
	}

	res, err := i.client.Bulk(bytes.NewReader(body),
		i.client.Bulk.WithContext(ctx),
		i.client.Bulk.WithIndex(i.index),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk index listings: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return fmt.Errorf("bulk request returned error [%s]: %s", res.Status(), raw)
	}

	var br bulkResponse
	if err = json.NewDecoder(res.Body).Decode(&br); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if !br.Errors {
		i.log.Debug("Indexed listings",
			logger.String("request_id", op.RequestID),
			logger.Int("count", len(op.AggregatedListings)),
		)
		return nil
	}

	failed := 0
	var firstReason string
	for _, item := range br.Items {
		for _, result := range item {
			if result.Error != nil {
				failed++
				if firstReason == "" {
					firstReason = result.Error.Type + ": " + result.Error.Reason
				}
			}
		}
	}
	return fmt.Errorf("%w: %d of %d documents: %s", ErrBulkPartial, failed, len(op.AggregatedListings), firstReason)
}

func (i *ListingIndexer) bulkBody(op *domain.Operation) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	now := i.now().UTC()

	for _, l := range op.AggregatedListings {
		meta := map[string]any{"index": map[string]string{"_id": DocumentID(l.URL)}}
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("failed to encode bulk action: %w", err)
		}
		doc := listingDocument{
			RequestID:      op.RequestID,
			TaskID:         op.TaskID,
			RequestingUser: op.RequestingUser,
			Source:         l.Source.String(),
			PostedDate:     l.PostedDate,
			Title:          l.Title,
			Company:        l.Company,
			Location:       l.Location,
			EmploymentType: l.EmploymentType,
			Seniority:      l.Seniority,
			Compensation:   l.Compensation,
			Description:    l.Description,
			URL:            l.URL,
			IndexedAt:      now,
		}
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode listing: %w", err)
		}
	}
	return buf.Bytes(), nil
}
