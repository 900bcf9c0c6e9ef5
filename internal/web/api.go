package web

import (
	"context"
	"net/http"
	"strconv"

	apperrors "compound-site/internal/common/errors"
	"compound-site/internal/content/blog"
	"compound-site/internal/funnel/advisory"
	"compound-site/internal/funnel/application"
	"compound-site/internal/funnel/contact"
)

func (s *Server) apiStartApplication(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Applications.Start(r.Context())
	if err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) apiGetApplication(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, r, s.svc.Applications.Get)
}

func (s *Server) apiAdvance(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, r, s.svc.Applications.Advance)
}

func (s *Server) apiRetreat(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, r, s.svc.Applications.Retreat)
}

// apiSubmit answers 200 for rejected and failed submissions too; the view
// carries the error message.
func (s *Server) apiSubmit(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, r, s.svc.Applications.Submit)
}

func (s *Server) apiReset(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, r, s.svc.Applications.Reset)
}

func (s *Server) apiDiscardApplication(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Applications.Discard(r.Context(), r.PathValue("id")); err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondView(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*application.View, error)) {
	view, err := op(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) apiSetField(w http.ResponseWriter, r *http.Request) {
	field, err := application.ParseField(r.PathValue("field"))
	if err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}

	var body struct {
		Value string `json:"value"`
	}
	if err := s.decodeJSON(w, r, fieldValueSchema, &body); err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}

	view, err := s.svc.Applications.SetScalar(r.Context(), r.PathValue("id"), field, body.Value)
	if err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) apiToggleField(w http.ResponseWriter, r *http.Request) {
	field, err := application.ParseField(r.PathValue("field"))
	if err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}

	var body struct {
		Tag string `json:"tag"`
	}
	if err := s.decodeJSON(w, r, fieldTagSchema, &body); err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}

	view, err := s.svc.Applications.Toggle(r.Context(), r.PathValue("id"), field, body.Tag)
	if err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) apiEligibility(w http.ResponseWriter, r *http.Request) {
	if s.svc.Advisory == nil {
		s.errors.WriteHTTP(w, r, apperrors.NewAdvisoryUnavailableError("eligibility checker is not configured"))
		return
	}

	var req advisory.Request
	if err := s.decodeJSON(w, r, eligibilitySchema, &req); err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}

	verdict, err := s.svc.Advisory.Check(r.Context(), req)
	if err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

func (s *Server) apiNewsletter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := s.decodeJSON(w, r, newsletterSchema, &body); err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}

	sub, err := s.svc.Newsletter.Subscribe(r.Context(), body.Email)
	if err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) apiContact(w http.ResponseWriter, r *http.Request) {
	var msg contact.Message
	if err := s.decodeJSON(w, r, contactSchema, &msg); err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}

	receipt, err := s.svc.Contact.Send(r.Context(), msg)
	if err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, receipt)
}

type postSummary struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Author      string `json:"author"`
	Description string `json:"description"`
	CoverImage  string `json:"cover_image,omitempty"`
}

type postDetail struct {
	*blog.Post
	HTML string `json:"html"`
}

func (s *Server) apiListPosts(w http.ResponseWriter, r *http.Request) {
	posts := s.svc.Blog.GetAllPosts()
	out := make([]postSummary, 0, len(posts))
	for _, p := range posts {
		out = append(out, postSummary{
			Slug:        p.Slug,
			Title:       p.Title,
			Date:        p.Date,
			Author:      p.Author,
			Description: p.Description,
			CoverImage:  p.CoverImage,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"posts": out})
}

func (s *Server) apiGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.svc.Blog.GetPostBySlug(r.PathValue("slug"))
	if err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, postDetail{Post: post, HTML: string(post.HTML)})
}

func (s *Server) apiSearchPosts(w http.ResponseWriter, r *http.Request) {
	if s.svc.Search == nil {
		s.errors.WriteHTTP(w, r, apperrors.NewSearchUnavailableError())
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.errors.WriteHTTP(w, r, apperrors.NewInvalidRequestError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	results, err := s.svc.Search.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
