package blog

import (
	"strings"
	"testing"
	"testing/fstest"

	"compound-site/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(title, date, body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte("---\ntitle: " + title + "\ndate: " + date +
		"\nauthor: Compound Team\ndescription: " + title + " summary\n---\n\n" + body)}
}

func TestLoadOrdersNewestFirst(t *testing.T) {
	fsys := fstest.MapFS{
		"new-year.md":   post("New Year", "2024-01-01", "Body A"),
		"summer.md":     post("Summer", "2025-06-01", "Body B"),
		"year-end.md":   post("Year End", "2023-12-31", "Body C"),
		"notes.txt":     &fstest.MapFile{Data: []byte("ignored")},
		"drafts/wip.md": post("WIP", "2026-01-01", "ignored"),
	}

	store := NewStore(fsys, logger.NewTestLogger(t))
	require.NoError(t, store.Load())

	var dates []string
	for _, p := range store.GetAllPosts() {
		dates = append(dates, p.Date)
	}
	assert.Equal(t, []string{"2025-06-01", "2024-01-01", "2023-12-31"}, dates)
}

func TestSortUnparseableDatesLast(t *testing.T) {
	fsys := fstest.MapFS{
		"b-undated.md": post("Undated B", "someday", ""),
		"a-undated.md": post("Undated A", "", ""),
		"dated.md":     post("Dated", "March 3, 2022", ""),
		"rfc.md":       post("RFC", "2022-03-03T00:00:00Z", ""),
	}

	store := NewStore(fsys, logger.NewNoOpLogger())
	require.NoError(t, store.Load())

	var slugs []string
	for _, p := range store.GetAllPosts() {
		slugs = append(slugs, p.Slug)
	}
	assert.Equal(t, []string{"dated", "rfc", "a-undated", "b-undated"}, slugs)
}

func TestGetPostBySlug(t *testing.T) {
	fsys := fstest.MapFS{
		"scaling-dtc.md": {Data: []byte(strings.Join([]string{
			"---",
			"title: Scaling a DTC Brand",
			"date: 2025-02-10",
			"author: Maya Chen",
			"description: Notes from year three",
			"cover_image: /images/scaling.jpg",
			"---",
			"",
			"## Retention first",
			"",
			"| Metric | Target |",
			"| ------ | ------ |",
			"| LTV    | 3x CAC |",
			"",
			"<script>alert('x')</script>",
		}, "\n"))},
	}

	store := NewStore(fsys, logger.NewNoOpLogger())
	require.NoError(t, store.Load())

	p, err := store.GetPostBySlug("scaling-dtc")
	require.NoError(t, err)
	assert.Equal(t, "Scaling a DTC Brand", p.Title)
	assert.Equal(t, "Maya Chen", p.Author)
	assert.Equal(t, "Notes from year three", p.Description)
	assert.Equal(t, "/images/scaling.jpg", p.CoverImage)
	assert.Equal(t, "February 10, 2025", p.DisplayDate())
	assert.True(t, strings.HasPrefix(p.Body, "## Retention first"))

	html := string(p.HTML)
	assert.Contains(t, html, "Retention first</h2>")
	assert.Contains(t, html, "<table>")
	assert.NotContains(t, html, "<script>")

	_, err = store.GetPostBySlug("missing")
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestLoadSkipsBrokenFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"good.md":         post("Good", "2024-05-05", "ok"),
		"unterminated.md": {Data: []byte("---\ntitle: Broken\n")},
		"bad-yaml.md":     {Data: []byte("---\ntitle: [unclosed\n---\nbody")},
	}

	store := NewStore(fsys, logger.NewTestLogger(t))
	require.NoError(t, store.Load())

	posts := store.GetAllPosts()
	require.Len(t, posts, 1)
	assert.Equal(t, "good", posts[0].Slug)
}

func TestReloadPicksUpChanges(t *testing.T) {
	fsys := fstest.MapFS{"one.md": post("One", "2024-01-01", "")}
	store := NewStore(fsys, logger.NewNoOpLogger())
	require.NoError(t, store.Load())
	require.Len(t, store.GetAllPosts(), 1)

	fsys["two.md"] = post("Two", "2024-02-01", "")
	require.NoError(t, store.Reload())

	posts := store.GetAllPosts()
	require.Len(t, posts, 2)
	assert.Equal(t, "two", posts[0].Slug)
}

func TestParseWithoutFrontmatter(t *testing.T) {
	p, err := Parse("plain", []byte("# Just markdown\r\n\r\nNo header here."))
	require.NoError(t, err)
	assert.Empty(t, p.Title)
	assert.True(t, p.Published.IsZero())
	assert.Contains(t, string(p.HTML), "No header here.")
}
