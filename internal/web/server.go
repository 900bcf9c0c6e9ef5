package web

import (
	"context"
	"net/http"

	apperrors "compound-site/internal/common/errors"
	"compound-site/internal/common/logger"
	"compound-site/internal/common/observability"
	"compound-site/internal/content/blog"
	"compound-site/internal/content/search"
	"compound-site/internal/funnel/advisory"
	"compound-site/internal/funnel/application"
	"compound-site/internal/funnel/contact"
	"compound-site/internal/funnel/newsletter"
)

const Component = "web"

// Check reports whether one backing dependency is usable.
type Check func(ctx context.Context) error

// Services are the components the site serves. Advisory and Search may be nil,
// in which case their endpoints answer 503.
type Services struct {
	Applications *application.Handler
	Advisory     *advisory.Handler
	Newsletter   *newsletter.Handler
	Contact      *contact.Handler
	Blog         *blog.Store
	Search       *search.Index

	Telemetry *observability.Observability
	Metrics   http.Handler
	Checks    map[string]Check
}

type Server struct {
	config *Config
	svc    Services
	pages  *pageRenderer
	errors *apperrors.ErrorHandler
	logger logger.Logger
	mux    *http.ServeMux
}

func NewServer(config *Config, svc Services, log logger.Logger) (*Server, error) {
	pages, err := newPageRenderer()
	if err != nil {
		return nil, err
	}

	log = log.WithFields(map[string]interface{}{"component": Component})
	s := &Server{
		config: config,
		svc:    svc,
		pages:  pages,
		errors: apperrors.NewErrorHandler(log),
		logger: log,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the mux wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	return s.recoverer(s.instrument(s.mux))
}

func (s *Server) routes() {
	m := s.mux

	m.HandleFunc("GET /{$}", s.handleHome)
	m.HandleFunc("GET /about", s.handleAbout)
	m.HandleFunc("GET /eligibility", s.handleEligibilityPage)
	m.HandleFunc("POST /eligibility", s.handleEligibilityForm)
	m.HandleFunc("GET /contact", s.handleContactPage)
	m.HandleFunc("POST /contact", s.handleContactForm)
	m.HandleFunc("POST /newsletter", s.handleNewsletterForm)
	m.HandleFunc("GET /application", s.handleApplicationPage)
	m.HandleFunc("POST /application", s.handleApplicationForm)
	m.HandleFunc("GET /blog", s.handleBlogIndex)
	m.HandleFunc("GET /blog/{slug}", s.handleBlogPost)

	m.HandleFunc("POST /api/applications", s.apiStartApplication)
	m.HandleFunc("GET /api/applications/{id}", s.apiGetApplication)
	m.HandleFunc("DELETE /api/applications/{id}", s.apiDiscardApplication)
	m.HandleFunc("POST /api/applications/{id}/advance", s.apiAdvance)
	m.HandleFunc("POST /api/applications/{id}/retreat", s.apiRetreat)
	m.HandleFunc("POST /api/applications/{id}/submit", s.apiSubmit)
	m.HandleFunc("POST /api/applications/{id}/reset", s.apiReset)
	m.HandleFunc("PUT /api/applications/{id}/fields/{field}", s.apiSetField)
	m.HandleFunc("POST /api/applications/{id}/fields/{field}/toggle", s.apiToggleField)

	m.HandleFunc("POST /api/eligibility", s.apiEligibility)
	m.HandleFunc("POST /api/newsletter", s.apiNewsletter)
	m.HandleFunc("POST /api/contact", s.apiContact)

	m.HandleFunc("GET /api/blog/posts", s.apiListPosts)
	m.HandleFunc("GET /api/blog/posts/{slug}", s.apiGetPost)
	m.HandleFunc("GET /api/blog/search", s.apiSearchPosts)

	m.HandleFunc("GET /health", s.handleHealth)
	m.HandleFunc("GET /ready", s.handleReady)
	if s.svc.Metrics != nil {
		m.Handle("GET /metrics", s.svc.Metrics)
	}
}
