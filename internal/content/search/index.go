package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	apperrors "compound-site/internal/common/errors"
	"compound-site/internal/common/logger"
	"compound-site/internal/content/blog"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const Component = "blog-search"

var ErrEmptyQuery = apperrors.Sentinel(apperrors.ErrCodeInvalidRequest, "Search query is required")

// Index keeps blog posts searchable in Elasticsearch.
type Index struct {
	config *Config
	client *elasticsearch.Client
	logger logger.Logger
}

func NewIndex(config *Config, client *elasticsearch.Client, log logger.Logger) *Index {
	return &Index{
		config: config,
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": Component}),
	}
}

// IndexPosts upserts every post by slug and refreshes the index.
func (x *Index) IndexPosts(ctx context.Context, posts []*blog.Post) error {
	for _, p := range posts {
		doc, err := json.Marshal(Document{
			Slug:        p.Slug,
			Title:       p.Title,
			Description: p.Description,
			Author:      p.Author,
			Date:        p.Date,
			Body:        p.Body,
		})
		if err != nil {
			return err
		}

		req := esapi.IndexRequest{
			Index:      x.config.Index,
			DocumentID: p.Slug,
			Body:       bytes.NewReader(doc),
		}
		res, err := req.Do(ctx, x.client)
		if err != nil {
			return fmt.Errorf("index post %s: %w", p.Slug, err)
		}
		res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("index post %s: %s", p.Slug, res.Status())
		}
	}

	res, err := x.client.Indices.Refresh(
		x.client.Indices.Refresh.WithContext(ctx),
		x.client.Indices.Refresh.WithIndex(x.config.Index),
	)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", x.config.Index, err)
	}
	res.Body.Close()

	x.logger.Info("posts indexed", map[string]interface{}{"index": x.config.Index, "count": len(posts)})
	return nil
}

func (x *Index) Search(ctx context.Context, q string, limit int) (*Results, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrEmptyQuery
	}

	if x.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.config.Timeout)
		defer cancel()
	}

	req, err := BuildSearchRequest(x.config.Index, q, limit)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(x.config.Index, err)
	}

	res, err := req.Do(ctx, x.client)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewSearchTimeoutError(x.config.Index)
		}
		return nil, apperrors.NewSearchQueryFailedError(x.config.Index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError(x.config.Index, fmt.Errorf("%s", res.Status()))
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(x.config.Index, err)
	}

	results := &Results{
		Query:     q,
		TotalHits: sr.Hits.Total.Value,
		Took:      sr.Took,
		Hits:      make([]Hit, 0, len(sr.Hits.Hits)),
	}
	for _, h := range sr.Hits.Hits {
		slug := h.Source.Slug
		if slug == "" {
			slug = h.ID
		}
		results.Hits = append(results.Hits, Hit{
			Slug:        slug,
			Title:       h.Source.Title,
			Description: h.Source.Description,
			Date:        h.Source.Date,
			Score:       h.Score,
		})
	}

	x.logger.Debug("search completed", map[string]interface{}{"hits": len(results.Hits), "took": sr.Took})
	return results, nil
}
