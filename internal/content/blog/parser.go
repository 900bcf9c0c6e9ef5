package blog

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"
)

const delimiter = "---"

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
}

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// Parse builds a post from a raw markdown file. A file without a frontmatter
// block is all body.
func Parse(slug string, raw []byte) (*Post, error) {
	meta, body, err := splitFrontmatter(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", slug, err)
	}

	var fm Frontmatter
	if len(meta) > 0 {
		if err := yaml.Unmarshal(meta, &fm); err != nil {
			return nil, fmt.Errorf("%s: invalid frontmatter: %w", slug, err)
		}
	}

	html, err := render(body)
	if err != nil {
		return nil, fmt.Errorf("%s: render markdown: %w", slug, err)
	}

	return &Post{
		Slug:        slug,
		Title:       fm.Title,
		Date:        fm.Date,
		Author:      fm.Author,
		Description: fm.Description,
		CoverImage:  fm.CoverImage,
		Body:        string(body),
		HTML:        html,
		Published:   parseDate(fm.Date),
	}, nil
}

func splitFrontmatter(raw []byte) ([]byte, []byte, error) {
	content := bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))

	if !bytes.HasPrefix(content, []byte(delimiter+"\n")) {
		return nil, content, nil
	}

	rest := content[len(delimiter)+1:]
	if bytes.HasPrefix(rest, []byte(delimiter+"\n")) {
		return nil, bytes.TrimLeft(rest[len(delimiter)+1:], "\n"), nil
	}
	end := bytes.Index(rest, []byte("\n"+delimiter))
	if end < 0 {
		return nil, nil, fmt.Errorf("unterminated frontmatter")
	}

	meta := rest[:end]
	body := rest[end+len(delimiter)+1:]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return meta, bytes.TrimLeft(body, "\n"), nil
}

func render(body []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(body, &buf); err != nil {
		return "", err
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes())), nil
}

func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
