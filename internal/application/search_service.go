package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/oksasatya/sape-server/internal/application/crud"
	"github.com/oksasatya/sape-server/pkg/helpers"
)

const (
	DefaultSearchSize = 10
	MaxSearchSize     = 50
)

type Searcher interface {
	Search(ctx context.Context, resources []string, q string, size int) ([]helpers.SearchHit, error)
}

// SearchService runs free-text queries over the indexed resources.
type SearchService struct {
	Store     Searcher
	Resources []string
}

func NewSearchService(store Searcher, resources ...string) *SearchService {
	return &SearchService{Store: store, Resources: resources}
}

func (s *SearchService) Search(ctx context.Context, q string, size int) ([]helpers.SearchHit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("%w: q", crud.ErrMissingInput)
	}
	if size <= 0 || size > MaxSearchSize {
		size = DefaultSearchSize
	}
	if s.Store == nil {
		return []helpers.SearchHit{}, nil
	}
	hits, err := s.Store.Search(ctx, s.Resources, q, size)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hits, nil
}
