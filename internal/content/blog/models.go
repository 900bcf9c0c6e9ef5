package blog

import (
	"html/template"
	"time"
)

// Frontmatter is the YAML header of a post file.
type Frontmatter struct {
	Title       string `yaml:"title"`
	Date        string `yaml:"date"`
	Author      string `yaml:"author"`
	Description string `yaml:"description"`
	CoverImage  string `yaml:"cover_image"`
}

type Post struct {
	Slug        string        `json:"slug"`
	Title       string        `json:"title"`
	Date        string        `json:"date"`
	Author      string        `json:"author"`
	Description string        `json:"description"`
	CoverImage  string        `json:"cover_image,omitempty"`
	Body        string        `json:"body"`
	HTML        template.HTML `json:"-"`

	// Published is the zero time when Date could not be parsed.
	Published time.Time `json:"-"`
}

// DisplayDate formats the publication date as "January 2, 2006", or returns
// the raw value when it did not parse.
func (p *Post) DisplayDate() string {
	if p.Published.IsZero() {
		return p.Date
	}
	return p.Published.Format("January 2, 2006")
}
