package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	apperrors "compound-site/internal/common/errors"
	"compound-site/internal/content/blog"
	"compound-site/internal/funnel/advisory"
	"compound-site/internal/funnel/contact"
)

const latestPosts = 3

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	posts := s.svc.Blog.GetAllPosts()
	if len(posts) > latestPosts {
		posts = posts[:latestPosts]
	}
	p := s.newPage(r, "Compound | Business accelerator for consumer brands", "home")
	p.Data = posts
	s.renderPage(w, r, http.StatusOK, "home", p)
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, "about", s.newPage(r, "About | Compound", "about"))
}

type eligibilityPage struct {
	Request   advisory.Request
	Verdict   *advisory.Verdict
	Available bool
}

func (s *Server) handleEligibilityPage(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Eligibility | Compound", "eligibility")
	p.Data = eligibilityPage{Available: s.svc.Advisory != nil}
	s.renderPage(w, r, http.StatusOK, "eligibility", p)
}

func (s *Server) handleEligibilityForm(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Eligibility | Compound", "eligibility")
	data := eligibilityPage{Available: s.svc.Advisory != nil}

	if err := r.ParseForm(); err != nil {
		p.Error = "We couldn't read that form. Please try again."
		p.Data = data
		s.renderPage(w, r, http.StatusBadRequest, "eligibility", p)
		return
	}
	data.Request = advisory.Request{
		Name:     r.PostForm.Get("name"),
		Years:    r.PostForm.Get("years"),
		Industry: r.PostForm.Get("industry"),
		Goal:     r.PostForm.Get("goal"),
	}

	if s.svc.Advisory == nil {
		p.Error = "The eligibility checker is not available right now."
		p.Data = data
		s.renderPage(w, r, http.StatusServiceUnavailable, "eligibility", p)
		return
	}

	verdict, err := s.svc.Advisory.Check(r.Context(), data.Request)
	if err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}
	data.Verdict = verdict
	p.Data = data
	s.renderPage(w, r, http.StatusOK, "eligibility", p)
}

type contactPage struct {
	Message contact.Message
	Sent    bool
}

func (s *Server) handleContactPage(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Contact | Compound", "contact")
	p.Data = contactPage{}
	s.renderPage(w, r, http.StatusOK, "contact", p)
}

func (s *Server) handleContactForm(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Contact | Compound", "contact")
	if err := r.ParseForm(); err != nil {
		p.Error = "We couldn't read that form. Please try again."
		p.Data = contactPage{}
		s.renderPage(w, r, http.StatusBadRequest, "contact", p)
		return
	}

	msg := contact.Message{
		Name:    r.PostForm.Get("name"),
		Email:   r.PostForm.Get("email"),
		Subject: r.PostForm.Get("subject"),
		Message: r.PostForm.Get("message"),
	}

	if _, err := s.svc.Contact.Send(r.Context(), msg); err != nil {
		std := apperrors.Normalize(err)
		p.Error = std.Message
		p.Data = contactPage{Message: msg}
		s.renderPage(w, r, apperrors.HTTPStatus(std.Code), "contact", p)
		return
	}

	p.Notice = "Message sent! We'll get back to you as soon as possible."
	p.Data = contactPage{Sent: true}
	s.renderPage(w, r, http.StatusOK, "contact", p)
}

// handleNewsletterForm serves the footer signup form and redirects back to the
// page it was posted from.
func (s *Server) handleNewsletterForm(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := r.ParseForm(); err != nil {
		status = "error"
	} else if _, err := s.svc.Newsletter.Subscribe(r.Context(), r.PostForm.Get("email")); err != nil {
		status = "error"
		if apperrors.HasCode(err, apperrors.ErrCodeInvalidRequest) {
			status = "invalid"
		}
	}

	target := localPath(r.PostForm.Get("return"))
	u := url.URL{Path: target, RawQuery: url.Values{"newsletter": {status}}.Encode()}
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

// localPath keeps redirects on this site.
func localPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, "\\") {
		return "/"
	}
	if u, err := url.Parse(p); err != nil || u.Host != "" || u.Scheme != "" {
		return "/"
	}
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return p
}

func (s *Server) handleBlogIndex(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Blog | Compound", "blog")
	p.Data = s.svc.Blog.GetAllPosts()
	s.renderPage(w, r, http.StatusOK, "blog_index", p)
}

func (s *Server) handleBlogPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.svc.Blog.GetPostBySlug(r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, blog.ErrPostNotFound) {
			s.renderNotFound(w, r)
			return
		}
		s.errors.WriteHTTP(w, r, err)
		return
	}

	p := s.newPage(r, post.Title+" | Compound", "blog")
	p.Data = post
	s.renderPage(w, r, http.StatusOK, "blog_post", p)
}
