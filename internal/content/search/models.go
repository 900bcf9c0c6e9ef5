package search

// Document is the indexed form of a blog post.
type Document struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Date        string `json:"date"`
	Body        string `json:"body"`
}

type Hit struct {
	Slug        string  `json:"slug"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Score       float64 `json:"score"`
}

type Results struct {
	Query     string `json:"query"`
	TotalHits int64  `json:"totalHits"`
	Took      int64  `json:"took"`
	Hits      []Hit  `json:"hits"`
}

// IndexMapping is applied when the index does not exist yet.
const IndexMapping = `{
  "mappings": {
    "properties": {
      "slug":        {"type": "keyword"},
      "title":       {"type": "text"},
      "description": {"type": "text"},
      "author":      {"type": "keyword"},
      "date":        {"type": "keyword"},
      "body":        {"type": "text"}
    }
  }
}`

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string   `json:"_id"`
			Score  float64  `json:"_score"`
			Source Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}
