package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kjanat/gpg-signing-service/third_party/search"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// Searcher serves full-text queries over the audit index. It exists only
// when a search backend is configured.
type Searcher struct {
	index *search.MeiliSearchClient
}

func NewSearcher(index *search.MeiliSearchClient) *Searcher {
	return &Searcher{index: index}
}

// Search returns index hits for a free-text query as generic documents.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]map[string]interface{}, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	resp, err := s.index.Search(search.AuditIndex, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching audit index: %w", err)
	}

	data, err := json.Marshal(resp.Hits)
	if err != nil {
		return nil, fmt.Errorf("decoding search hits: %w", err)
	}
	var hits []map[string]interface{}
	if err := json.Unmarshal(data, &hits); err != nil {
		return nil, fmt.Errorf("decoding search hits: %w", err)
	}
	return hits, nil
}
