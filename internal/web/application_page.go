package web

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "compound-site/internal/common/errors"
	"compound-site/internal/funnel/application"
)

const applicationCookie = "compound_application"

// longAnswers render as a textarea rather than a single-line input.
var longAnswers = map[application.Field]bool{
	application.FieldBusinessDescription: true,
	application.FieldStartReason:         true,
	application.FieldProudMoment:         true,
	application.FieldGrowthBlocker:       true,
	application.FieldSeriousMeaning:      true,
	application.FieldSupportNeeds:        true,
}

type formField struct {
	Key      string
	Label    string
	Set      bool
	Long     bool
	Required bool
	Limit    int
	Options  []string
	Value    string
	Selected map[string]bool
}

type stepMarker struct {
	Number  int
	Title   string
	Current bool
	Done    bool
}

type applicationPage struct {
	View    *application.View
	Fields  []formField
	Steps   []stepMarker
	IsFirst bool
	IsFinal bool
}

func newApplicationPage(view *application.View) applicationPage {
	data := applicationPage{
		View:    view,
		IsFirst: view.Step == application.FirstStep,
		IsFinal: view.Step == application.FinalStep,
	}
	for _, st := range application.Steps() {
		data.Steps = append(data.Steps, stepMarker{
			Number:  int(st),
			Title:   st.Title(),
			Current: st == view.Step,
			Done:    st < view.Step,
		})
	}
	for _, f := range application.FieldsForStep(view.Step) {
		ff := formField{
			Key:      f.Key(),
			Label:    f.Label(),
			Set:      f.Kind() == application.KindSet,
			Long:     longAnswers[f],
			Required: f.Required(),
			Limit:    f.SelectLimit(),
			Options:  f.Options(),
		}
		if ff.Set {
			ff.Selected = map[string]bool{}
			for _, tag := range view.Draft.Set(f) {
				ff.Selected[tag] = true
			}
		} else {
			ff.Value = view.Draft.Scalar(f)
		}
		data.Fields = append(data.Fields, ff)
	}
	return data
}

func (s *Server) handleApplicationPage(w http.ResponseWriter, r *http.Request) {
	view, err := s.currentApplication(w, r)
	if err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}
	s.renderApplication(w, r, http.StatusOK, view, "")
}

// handleApplicationForm saves the posted answers for the current step, then
// applies the requested action and redirects back to the form.
func (s *Server) handleApplicationForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.errors.WriteHTTP(w, r, apperrors.NewInvalidRequestError(err.Error()))
		return
	}

	view, err := s.currentApplication(w, r)
	if err != nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}

	ctx := r.Context()
	if view.Status == application.StatusEditing && postedStep(r.PostForm) == view.Step {
		view, err = s.saveStepFields(ctx, view, r.PostForm)
		if err != nil {
			s.renderApplicationError(w, r, view, err)
			return
		}
	}

	var next *application.View
	switch r.PostForm.Get("action") {
	case "next":
		next, err = s.svc.Applications.Advance(ctx, view.ID)
	case "back":
		next, err = s.svc.Applications.Retreat(ctx, view.ID)
	case "submit":
		next, err = s.svc.Applications.Submit(ctx, view.ID)
	case "reset":
		next, err = s.svc.Applications.Reset(ctx, view.ID)
	default:
		next = view
	}
	if err != nil {
		s.renderApplicationError(w, r, view, err)
		return
	}

	target := "/application"
	if next.ScrollToOrigin {
		target += "#top"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func postedStep(form url.Values) application.Step {
	n, err := strconv.Atoi(form.Get("step"))
	if err != nil {
		return 0
	}
	return application.Step(n)
}

// saveStepFields writes the posted answers of the view's step. Set fields are
// reconciled by toggling the difference, removals first so a swap within a
// capped field succeeds.
func (s *Server) saveStepFields(ctx context.Context, view *application.View, form url.Values) (*application.View, error) {
	apps := s.svc.Applications
	apply := func(next *application.View, err error) error {
		if err != nil {
			return err
		}
		view = next
		return nil
	}

	for _, f := range application.FieldsForStep(view.Step) {
		key := f.Key()

		if f.Kind() == application.KindScalar {
			if _, posted := form[key]; !posted {
				continue
			}
			value := form.Get(key)
			if value == view.Draft.Scalar(f) {
				continue
			}
			if err := apply(apps.SetScalar(ctx, view.ID, f, value)); err != nil {
				return view, err
			}
			continue
		}

		current := view.Draft.Set(f)
		desired := map[string]bool{}
		for _, tag := range form[key] {
			desired[tag] = true
		}
		have := map[string]bool{}
		for _, tag := range current {
			have[tag] = true
			if desired[tag] {
				continue
			}
			if err := apply(apps.Toggle(ctx, view.ID, f, tag)); err != nil {
				return view, err
			}
		}
		for _, tag := range form[key] {
			if have[tag] {
				continue
			}
			have[tag] = true
			if err := apply(apps.Toggle(ctx, view.ID, f, tag)); err != nil {
				return view, err
			}
		}
	}
	return view, nil
}

func (s *Server) renderApplication(w http.ResponseWriter, r *http.Request, status int, view *application.View, errMsg string) {
	p := s.newPage(r, "Apply | Compound", "application")
	p.Error = errMsg
	p.Data = newApplicationPage(view)
	s.renderPage(w, r, status, "application", p)
}

func (s *Server) renderApplicationError(w http.ResponseWriter, r *http.Request, view *application.View, err error) {
	std := apperrors.Normalize(err)
	status := apperrors.HTTPStatus(std.Code)
	if status >= http.StatusInternalServerError || view == nil {
		s.errors.WriteHTTP(w, r, err)
		return
	}
	s.renderApplication(w, r, status, view, std.Message)
}

// currentApplication resolves the workflow named by the cookie, starting a new
// one when there is none or it has expired.
func (s *Server) currentApplication(w http.ResponseWriter, r *http.Request) (*application.View, error) {
	ctx := r.Context()

	if c, err := r.Cookie(applicationCookie); err == nil && c.Value != "" {
		view, err := s.svc.Applications.Get(ctx, c.Value)
		if err == nil {
			return view, nil
		}
		if !apperrors.HasCode(err, apperrors.ErrCodeWorkflowNotFound) {
			return nil, err
		}
	}

	view, err := s.svc.Applications.Start(ctx)
	if err != nil {
		return nil, err
	}
	s.setApplicationCookie(w, view.ID)
	return view, nil
}

func (s *Server) setApplicationCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     applicationCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.config.CookieMaxAge / time.Second),
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
