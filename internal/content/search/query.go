package search

import (
	"bytes"
	"encoding/json"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// BuildSearchRequest matches q against title, description and body, title
// weighted highest.
func BuildSearchRequest(index, q string, limit int) (*esapi.SearchRequest, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q,
				"fields": []string{"title^3", "description^2", "body"},
				"type":   "best_fields",
			},
		},
		"_source": []string{"slug", "title", "description", "date"},
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	from := 0
	return &esapi.SearchRequest{
		Index: []string{index},
		Body:  bytes.NewReader(raw),
		From:  &from,
		Size:  &limit,
	}, nil
}
