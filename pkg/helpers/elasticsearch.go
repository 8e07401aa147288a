package helpers

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// NewESClient creates an Elasticsearch client with sane defaults and optional basic auth.
func NewESClient(addrs []string, username, password string) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses: addrs,
		Username:  username,
		Password:  password,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 5 * time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		},
	}
	return elasticsearch.NewClient(cfg)
}

// SearchHit is one document returned by Search.
type SearchHit struct {
	Index  string         `json:"index"`
	ID     string         `json:"id"`
	Score  float64        `json:"score"`
	Source map[string]any `json:"source"`
}

// ESStore indexes and queries documents in one index per resource,
// named <Prefix><resource>.
type ESStore struct {
	Client  *elasticsearch.Client
	Prefix  string
	Timeout time.Duration
}

func NewESStore(client *elasticsearch.Client, prefix string) *ESStore {
	return &ESStore{Client: client, Prefix: prefix, Timeout: 3 * time.Second}
}

func (s *ESStore) Index(resource string) string { return s.Prefix + resource }

func (s *ESStore) Put(ctx context.Context, resource, id string, doc any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	c, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	req := esapi.IndexRequest{Index: s.Index(resource), DocumentID: id, Body: bytes.NewReader(b), Refresh: "false"}
	res, err := req.Do(c, s.Client)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index %s/%s: %s", s.Index(resource), id, res.Status())
	}
	return nil
}

// Remove deletes a document; a missing document is not an error.
func (s *ESStore) Remove(ctx context.Context, resource, id string) error {
	c, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	req := esapi.DeleteRequest{Index: s.Index(resource), DocumentID: id}
	res, err := req.Do(c, s.Client)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("es delete %s/%s: %s", s.Index(resource), id, res.Status())
	}
	return nil
}

// Search runs a multi_match query across the indices of resources.
func (s *ESStore) Search(ctx context.Context, resources []string, q string, size int) ([]SearchHit, error) {
	indices := make([]string, 0, len(resources))
	for _, r := range resources {
		indices = append(indices, s.Index(r))
	}
	body, err := json.Marshal(SearchQuery(q, size))
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	res, err := s.Client.Search(
		s.Client.Search.WithContext(c),
		s.Client.Search.WithIndex(strings.Join(indices, ",")),
		s.Client.Search.WithIgnoreUnavailable(true),
		s.Client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Index  string         `json:"_index"`
				ID     string         `json:"_id"`
				Score  float64        `json:"_score"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]SearchHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, SearchHit{
			Index:  strings.TrimPrefix(h.Index, s.Prefix),
			ID:     h.ID,
			Score:  h.Score,
			Source: h.Source,
		})
	}
	return out, nil
}

// SearchQuery builds the request body used by Search.
func SearchQuery(q string, size int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"name^2", "email", "document", "description", "location", "notes"},
				"fuzziness": "AUTO",
			},
		},
		"size": size,
	}
}
