package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	"webattack-detector/go-service/internal/pipeline"
)

const (
	DefaultIndex = "predictions"
	maxAttempts  = 3
)

// Client wraps the Elasticsearch client with prediction storage and queries.
type Client struct {
	es    *elasticsearch.Client
	index string
}

// PredictionDocument is one classified log as stored in Elasticsearch.
type PredictionDocument struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Timestamp  time.Time `json:"timestamp"`
	Variant    string    `json:"variant"`
	Input      string    `json:"input"`
	Label      string    `json:"label,omitempty"`
	ClassIndex int       `json:"class_index"`
	IsAttack   bool      `json:"is_attack"`
	Error      string    `json:"error,omitempty"`
}

// NewClient creates a client for index and checks that the cluster answers.
func NewClient(addresses []string, index string) (*Client, error) {
	if index == "" {
		index = DefaultIndex
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	client := &Client{es: es, index: index}

	// Test connection with a short retry loop
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		res, err := client.es.Info()
		if err == nil {
			res.Body.Close()
			if !res.IsError() {
				lastErr = nil
				break
			}
			err = fmt.Errorf("elasticsearch info: %s", res.Status())
		}
		lastErr = err
		time.Sleep(backoff(i))
	}
	if lastErr != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", lastErr)
	}

	return client, nil
}

// Index returns the index predictions are written to.
func (c *Client) Index() string {
	return c.index
}

func backoff(attempt int) time.Duration {
	return time.Duration(200*(1<<attempt)) * time.Millisecond
}

// do runs req up to maxAttempts times and returns the first successful
// response. The caller closes its body.
func (c *Client) do(ctx context.Context, req esapi.Request, what string) (*esapi.Response, error) {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		res, err := req.Do(ctx, c.es)
		if err != nil {
			lastErr = fmt.Errorf("failed to %s: %w", what, err)
		} else if res.IsError() {
			lastErr = fmt.Errorf("elasticsearch %s error: %s", what, res.String())
			res.Body.Close()
			if res.StatusCode < 500 && res.StatusCode != 429 {
				return nil, lastErr
			}
		} else {
			return res, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff(i)):
		}
	}
	return nil, lastErr
}

// CreateIndex creates the predictions index with its mapping. An existing
// index is left untouched.
func (c *Client) CreateIndex(ctx context.Context) error {
	mapping := `{
		"mappings": {
			"properties": {
				"id":          {"type": "keyword"},
				"run_id":      {"type": "keyword"},
				"timestamp":   {"type": "date"},
				"variant":     {"type": "keyword"},
				"input":       {"type": "text", "analyzer": "standard"},
				"label":       {"type": "keyword"},
				"class_index": {"type": "integer"},
				"is_attack":   {"type": "boolean"},
				"error":       {"type": "text"}
			}
		}
	}`

	req := esapi.IndicesCreateRequest{
		Index: c.index,
		Body:  strings.NewReader(mapping),
	}

	res, err := c.do(ctx, req, "create index")
	if err != nil {
		if strings.Contains(err.Error(), "resource_already_exists_exception") {
			return nil
		}
		return err
	}
	res.Body.Close()
	return nil
}

// Documents converts the predictions of a run into index documents.
func Documents(result *pipeline.Result) []PredictionDocument {
	ts := result.FinishedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	docs := make([]PredictionDocument, len(result.Predictions))
	for i, pr := range result.Predictions {
		docs[i] = PredictionDocument{
			ID:         uuid.New().String(),
			RunID:      result.RunID,
			Timestamp:  ts,
			Variant:    string(result.Variant),
			Input:      pr.Input,
			Label:      pr.Label,
			ClassIndex: pr.ClassIndex,
			IsAttack:   pr.Attack,
			Error:      pr.Error,
		}
	}
	return docs
}

// StorePredictions bulk indexes every prediction of result.
func (c *Client) StorePredictions(ctx context.Context, result *pipeline.Result) error {
	return c.BulkIndex(ctx, Documents(result))
}

// BulkIndex writes docs in a single bulk request.
func (c *Client) BulkIndex(ctx context.Context, docs []PredictionDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, doc := range docs {
		action := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": c.index,
				"_id":    doc.ID,
			},
		}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("failed to marshal bulk action: %w", err)
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}
	}
	payload := body.Bytes()

	res, err := c.do(ctx, bulkRequest{index: c.index, payload: payload}, "bulk index")
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var bulkResponse struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResponse); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if !bulkResponse.Errors {
		return nil
	}

	failed := 0
	var first string
	for _, item := range bulkResponse.Items {
		for _, op := range item {
			if op.Status >= 300 {
				failed++
				if first == "" {
					first = op.Error.Type + ": " + op.Error.Reason
				}
			}
		}
	}
	return fmt.Errorf("bulk index: %d of %d documents failed (%s)", failed, len(docs), first)
}

// bulkRequest rebuilds the body reader on every attempt.
type bulkRequest struct {
	index   string
	payload []byte
}

func (r bulkRequest) Do(ctx context.Context, transport esapi.Transport) (*esapi.Response, error) {
	return esapi.BulkRequest{
		Index:   r.index,
		Body:    bytes.NewReader(r.payload),
		Refresh: "true",
	}.Do(ctx, transport)
}

// Search runs a raw query against the predictions index.
func (c *Client) Search(ctx context.Context, query map[string]interface{}) ([]PredictionDocument, error) {
	queryBytes, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.do(ctx, searchRequest{index: c.index, payload: queryBytes}, "search")
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var searchResponse struct {
		Hits struct {
			Hits []struct {
				Source PredictionDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&searchResponse); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	documents := make([]PredictionDocument, len(searchResponse.Hits.Hits))
	for i, hit := range searchResponse.Hits.Hits {
		documents[i] = hit.Source
	}
	return documents, nil
}

type searchRequest struct {
	index   string
	payload []byte
}

func (r searchRequest) Do(ctx context.Context, transport esapi.Transport) (*esapi.Response, error) {
	return esapi.SearchRequest{
		Index: []string{r.index},
		Body:  bytes.NewReader(r.payload),
	}.Do(ctx, transport)
}

func newestFirst(query map[string]interface{}, from, size int) map[string]interface{} {
	query["sort"] = []map[string]interface{}{
		{"timestamp": map[string]interface{}{"order": "desc"}},
	}
	query["from"] = from
	query["size"] = size
	return query
}

// GetPredictions returns stored predictions, newest first.
func (c *Client) GetPredictions(ctx context.Context, from, size int) ([]PredictionDocument, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
	}
	return c.Search(ctx, newestFirst(query, from, size))
}

// GetAttacks returns predictions flagged as attacks, newest first.
func (c *Client) GetAttacks(ctx context.Context, from, size int) ([]PredictionDocument, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"term": map[string]interface{}{"is_attack": true}},
				},
			},
		},
	}
	return c.Search(ctx, newestFirst(query, from, size))
}

// SearchAttacksByText returns attacks whose input matches text.
func (c *Client) SearchAttacksByText(ctx context.Context, text string, from, size int) ([]PredictionDocument, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{
					{"term": map[string]interface{}{"is_attack": true}},
					{"match": map[string]interface{}{"input": text}},
				},
			},
		},
	}
	return c.Search(ctx, newestFirst(query, from, size))
}

// Bucket is one histogram or terms bucket.
type Bucket struct {
	Key      string `json:"key"`
	DocCount int    `json:"doc_count"`
}

// Stats aggregates stored predictions over a time range.
type Stats struct {
	Total      int       `json:"total"`
	Attacks    int       `json:"attacks"`
	Normal     int       `json:"normal"`
	AttackRate float64   `json:"attack_rate"`
	ByLabel    []Bucket  `json:"by_label"`
	OverTime   []Bucket  `json:"over_time"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// GetStats counts predictions and attacks between start and end.
func (c *Client) GetStats(ctx context.Context, start, end time.Time) (*Stats, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"range": map[string]interface{}{
				"timestamp": map[string]interface{}{
					"gte": start.Format(time.RFC3339),
					"lte": end.Format(time.RFC3339),
				},
			},
		},
		"aggs": map[string]interface{}{
			"attack_count": map[string]interface{}{
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"is_attack": true},
				},
			},
			"by_label": map[string]interface{}{
				"terms": map[string]interface{}{"field": "label", "size": 20},
			},
			"over_time": map[string]interface{}{
				"date_histogram": map[string]interface{}{
					"field":          "timestamp",
					"fixed_interval": "1h",
				},
			},
		},
		"track_total_hits": true,
		"size":             0,
	}

	queryBytes, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.do(ctx, searchRequest{index: c.index, payload: queryBytes}, "search")
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	type rawBucket struct {
		Key         interface{} `json:"key"`
		KeyAsString string      `json:"key_as_string"`
		DocCount    int         `json:"doc_count"`
	}
	var searchResponse struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
		} `json:"hits"`
		Aggregations struct {
			AttackCount struct {
				DocCount int `json:"doc_count"`
			} `json:"attack_count"`
			ByLabel struct {
				Buckets []rawBucket `json:"buckets"`
			} `json:"by_label"`
			OverTime struct {
				Buckets []rawBucket `json:"buckets"`
			} `json:"over_time"`
		} `json:"aggregations"`
	}

	if err := json.NewDecoder(res.Body).Decode(&searchResponse); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	toBuckets := func(raw []rawBucket) []Bucket {
		out := make([]Bucket, len(raw))
		for i, b := range raw {
			key := b.KeyAsString
			if key == "" {
				key = fmt.Sprint(b.Key)
			}
			out[i] = Bucket{Key: key, DocCount: b.DocCount}
		}
		return out
	}

	stats := &Stats{
		Total:    searchResponse.Hits.Total.Value,
		Attacks:  searchResponse.Aggregations.AttackCount.DocCount,
		ByLabel:  toBuckets(searchResponse.Aggregations.ByLabel.Buckets),
		OverTime: toBuckets(searchResponse.Aggregations.OverTime.Buckets),
		Start:    start,
		End:      end,
	}
	stats.Normal = stats.Total - stats.Attacks
	if stats.Total > 0 {
		stats.AttackRate = float64(stats.Attacks) / float64(stats.Total)
	}
	return stats, nil
}

// Close releases the client. The Elasticsearch client holds no resources
// that need explicit closing.
func (c *Client) Close() error {
	return nil
}
