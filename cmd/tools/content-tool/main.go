// cmd/tools/content-tool/main.go
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"compound-site/internal/content/blog"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	var dir string

	root := &cobra.Command{
		Use:   "content-tool",
		Short: "Manage blog posts under content/blog",
		Long: `Lists, validates and scaffolds the markdown posts the site server loads.

Examples:
  content-tool list
  content-tool validate --dir content/blog
  content-tool new spring-cohort --title "Spring Cohort Announced"`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().StringVar(&dir, "dir", "content/blog", "Directory holding post files")

	root.AddCommand(newListCommand(&dir), newValidateCommand(&dir), newNewCommand(&dir))
	return root
}

func newListCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List posts newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			posts, problems, err := readPosts(os.DirFS(*dir))
			if err != nil {
				return err
			}
			blog.SortPosts(posts)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tSLUG\tTITLE")
			for _, p := range posts {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Date, p.Slug, p.Title)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			for _, problem := range problems {
				fmt.Fprintf(cmd.OutOrStdout(), "skipped: %s\n", problem)
			}
			return nil
		},
	}
}

func newValidateCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check every post parses and carries the required frontmatter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			posts, problems, err := readPosts(os.DirFS(*dir))
			if err != nil {
				return err
			}
			for _, p := range posts {
				problems = append(problems, checkPost(p)...)
			}

			if len(problems) > 0 {
				for _, problem := range problems {
					fmt.Fprintln(cmd.OutOrStdout(), problem)
				}
				return fmt.Errorf("%d problem(s) found", len(problems))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Content validation passed. Found %d posts.\n", len(posts))
			return nil
		},
	}
}

func newNewCommand(dir *string) *cobra.Command {
	var fm blog.Frontmatter

	cmd := &cobra.Command{
		Use:   "new <slug>",
		Short: "Scaffold a post with frontmatter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := args[0]
			if !slugPattern.MatchString(slug) {
				return fmt.Errorf("invalid slug %q: use lowercase words joined by hyphens", slug)
			}
			if fm.Title == "" {
				return errors.New("--title is required")
			}
			if fm.Date == "" {
				fm.Date = time.Now().Format("2006-01-02")
			}

			file := filepath.Join(*dir, slug+".md")
			if err := writePost(file, fm); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", file)
			return nil
		},
	}
	cmd.Flags().StringVar(&fm.Title, "title", "", "Post title")
	cmd.Flags().StringVar(&fm.Author, "author", "Compound Team", "Author shown on the post")
	cmd.Flags().StringVar(&fm.Description, "description", "", "Summary used on the blog index")
	cmd.Flags().StringVar(&fm.Date, "date", "", "Publication date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&fm.CoverImage, "cover-image", "", "Cover image URL")
	return cmd
}

// readPosts parses every root-level .md file. Files that fail to parse are
// reported as problems rather than aborting the walk.
func readPosts(fsys fs.FS) ([]*blog.Post, []string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read content directory: %w", err)
	}

	var (
		posts    []*blog.Post
		problems []string
	)
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".md" {
			continue
		}
		raw, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}
		p, err := blog.Parse(strings.TrimSuffix(entry.Name(), ".md"), raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}
		posts = append(posts, p)
	}
	return posts, problems, nil
}

func checkPost(p *blog.Post) []string {
	var problems []string
	if !slugPattern.MatchString(p.Slug) {
		problems = append(problems, fmt.Sprintf("%s: slug is not lowercase-hyphenated", p.Slug))
	}
	if p.Title == "" {
		problems = append(problems, fmt.Sprintf("%s: missing title", p.Slug))
	}
	if p.Date == "" {
		problems = append(problems, fmt.Sprintf("%s: missing date", p.Slug))
	} else if p.Published.IsZero() {
		problems = append(problems, fmt.Sprintf("%s: unrecognised date %q", p.Slug, p.Date))
	}
	if p.Description == "" {
		problems = append(problems, fmt.Sprintf("%s: missing description", p.Slug))
	}
	return problems
}

func writePost(file string, fm blog.Frontmatter) error {
	header, err := yaml.Marshal(fm)
	if err != nil {
		return fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	buf.WriteString("Write the post here.\n")

	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write post: %w", err)
	}
	return f.Close()
}
