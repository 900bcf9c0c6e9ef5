package blog

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	apperrors "compound-site/internal/common/errors"
	"compound-site/internal/common/logger"
)

const Component = "blog"

var ErrPostNotFound = apperrors.Sentinel(apperrors.ErrCodePostNotFound, "Post not found")

// Store holds the parsed posts of one content directory.
type Store struct {
	fsys   fs.FS
	logger logger.Logger

	mu     sync.RWMutex
	posts  []*Post
	bySlug map[string]*Post
}

func NewStore(fsys fs.FS, log logger.Logger) *Store {
	return &Store{
		fsys:   fsys,
		logger: log.WithFields(map[string]interface{}{"component": Component}),
		bySlug: map[string]*Post{},
	}
}

// Load reads every *.md file at the root of the store's filesystem. Files
// that fail to parse are skipped and logged.
func (s *Store) Load() error {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return err
	}

	posts := make([]*Post, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".md" {
			continue
		}
		raw, err := fs.ReadFile(s.fsys, entry.Name())
		if err != nil {
			return err
		}
		post, err := Parse(strings.TrimSuffix(entry.Name(), ".md"), raw)
		if err != nil {
			s.logger.Warn("skipping post", map[string]interface{}{"file": entry.Name(), "error": err.Error()})
			continue
		}
		posts = append(posts, post)
	}
	SortPosts(posts)

	bySlug := make(map[string]*Post, len(posts))
	for _, p := range posts {
		bySlug[p.Slug] = p
	}

	s.mu.Lock()
	s.posts = posts
	s.bySlug = bySlug
	s.mu.Unlock()

	s.logger.Info("posts loaded", map[string]interface{}{"count": len(posts)})
	return nil
}

func (s *Store) Reload() error {
	return s.Load()
}

// GetAllPosts returns posts newest first.
func (s *Store) GetAllPosts() []*Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Post, len(s.posts))
	copy(out, s.posts)
	return out
}

func (s *Store) GetPostBySlug(slug string) (*Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.bySlug[slug]
	if !ok {
		return nil, ErrPostNotFound
	}
	return p, nil
}

// SortPosts orders by publication date descending. Posts whose date did
// not parse go last; ties break on slug.
func SortPosts(posts []*Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i].Published, posts[j].Published
		switch {
		case a.IsZero() != b.IsZero():
			return b.IsZero()
		case !a.Equal(b):
			return a.After(b)
		default:
			return posts[i].Slug < posts[j].Slug
		}
	})
}
