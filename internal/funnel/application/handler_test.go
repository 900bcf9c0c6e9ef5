package application

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "compound-site/internal/common/errors"
	commonhttp "compound-site/internal/common/http"
	"compound-site/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordingAudit struct {
	mu      sync.Mutex
	records []SubmissionRecord
}

func (a *recordingAudit) RecordSubmission(_ context.Context, rec SubmissionRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return nil
}

func (a *recordingAudit) outcomes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, r := range a.records {
		out = append(out, r.Outcome)
	}
	return out
}

type funcSubmitter func(ctx context.Context, d Draft) error

func (f funcSubmitter) Submit(ctx context.Context, d Draft) error { return f(ctx, d) }

func newTestHandler(t *testing.T, submitter Submitter, audit AuditRecorder) (*Handler, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(time.Hour)
	cfg := &Config{Timeout: 2 * time.Second, DraftTTL: time.Hour, EnforceSelectionCaps: true}
	return NewHandler(cfg, store, submitter, audit, logger.NewTestLogger(t)), store
}

func walkToFinalStep(t *testing.T, h *Handler, id string) {
	t.Helper()
	for i := 0; i < 4; i++ {
		_, err := h.Advance(context.Background(), id)
		require.NoError(t, err)
	}
}

func TestHandlerNavigation(t *testing.T) {
	h, _ := newTestHandler(t, funcSubmitter(func(context.Context, Draft) error { return nil }), nil)
	ctx := context.Background()

	v, err := h.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, FirstStep, v.Step)
	assert.Equal(t, "About You", v.StepTitle)
	id := v.ID

	v, err = h.Retreat(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, FirstStep, v.Step, "retreat at step 1 is a no-op")
	assert.True(t, v.ScrollToOrigin)

	walkToFinalStep(t, h, id)
	v, err = h.Advance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, FinalStep, v.Step, "advance at step 5 is a no-op")
	assert.True(t, v.ScrollToOrigin)
	assert.True(t, v.Draft.Equal(NewDraft()))
}

func TestHandlerEditsArePersisted(t *testing.T) {
	h, _ := newTestHandler(t, nil, nil)
	ctx := context.Background()

	v, err := h.Start(ctx)
	require.NoError(t, err)

	v, err = h.SetScalar(ctx, v.ID, FieldBusinessName, "Maple & Co")
	require.NoError(t, err)
	assert.False(t, v.ScrollToOrigin)

	// edits are not restricted to the visible step
	_, err = h.SetScalar(ctx, v.ID, FieldReadiness, "I'm committed")
	require.NoError(t, err)

	_, err = h.Toggle(ctx, v.ID, FieldSalesChannels, "Not yet selling")
	require.NoError(t, err)

	got, err := h.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maple & Co", got.Draft.Scalar(FieldBusinessName))
	assert.Equal(t, "I'm committed", got.Draft.Scalar(FieldReadiness))
	assert.Equal(t, []string{"Not yet selling"}, got.Draft.Set(FieldSalesChannels))
}

func TestHandlerSelectionCap(t *testing.T) {
	h, _ := newTestHandler(t, nil, nil)
	ctx := context.Background()
	v, _ := h.Start(ctx)

	for _, goal := range []string{"Increase sales", "Get into retail", "Expand product line"} {
		_, err := h.Toggle(ctx, v.ID, FieldCurrentGoals, goal)
		require.NoError(t, err)
	}

	_, err := h.Toggle(ctx, v.ID, FieldCurrentGoals, "Build a recognizable brand")
	assert.ErrorIs(t, err, ErrSelectionLimit)

	// removal is always allowed
	v, err = h.Toggle(ctx, v.ID, FieldCurrentGoals, "Increase sales")
	require.NoError(t, err)
	assert.Len(t, v.Draft.Set(FieldCurrentGoals), 2)

	// categories carry no cap
	for _, c := range FieldBusinessCategories.Options() {
		_, err := h.Toggle(ctx, v.ID, FieldBusinessCategories, c)
		require.NoError(t, err)
	}
}

func TestHandlerSelectionCapDisabled(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	h := NewHandler(&Config{Timeout: time.Second}, store, nil, nil, logger.NewNoOpLogger())
	ctx := context.Background()
	v, _ := h.Start(ctx)

	for _, goal := range FieldCurrentGoals.Options() {
		_, err := h.Toggle(ctx, v.ID, FieldCurrentGoals, goal)
		require.NoError(t, err)
	}
	got, _ := h.Get(ctx, v.ID)
	assert.Len(t, got.Draft.Set(FieldCurrentGoals), 8)
}

func TestHandlerSubmitHappyPath(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	audit := &recordingAudit{}
	submitter := NewHTTPSubmitter(srv.URL, commonhttp.NewClient("formspree", time.Second), logger.NewTestLogger(t))
	h, _ := newTestHandler(t, submitter, audit)
	ctx := context.Background()

	v, _ := h.Start(ctx)
	_, err := h.SetScalar(ctx, v.ID, FieldEmail, "ada@brand.ca")
	require.NoError(t, err)
	walkToFinalStep(t, h, v.ID)

	v, err = h.Submit(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, v.Status)
	assert.Empty(t, v.Error)
	assert.True(t, v.ScrollToOrigin)
	assert.Equal(t, "ada@brand.ca", received["email"])
	assert.Equal(t, []string{OutcomeAccepted}, audit.outcomes())

	// only return-to-start is possible once submitted
	_, err = h.Advance(ctx, v.ID)
	assert.ErrorIs(t, err, ErrWorkflowClosed)
	_, err = h.Submit(ctx, v.ID)
	assert.ErrorIs(t, err, ErrWorkflowClosed)

	v, err = h.Reset(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, FirstStep, v.Step)
	assert.Equal(t, StatusEditing, v.Status)
	assert.True(t, v.Draft.Equal(NewDraft()))
}

func TestHandlerSubmitStructuredRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"message":"Email is invalid"}]}`))
	}))
	defer srv.Close()

	audit := &recordingAudit{}
	submitter := NewHTTPSubmitter(srv.URL, commonhttp.NewClient("formspree", time.Second), logger.NewTestLogger(t))
	h, _ := newTestHandler(t, submitter, audit)
	ctx := context.Background()

	v, _ := h.Start(ctx)
	_, _ = h.SetScalar(ctx, v.ID, FieldEmail, "not-an-email")
	walkToFinalStep(t, h, v.ID)
	before, _ := h.Get(ctx, v.ID)

	v, err := h.Submit(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusEditing, v.Status)
	assert.True(t, v.Failed())
	assert.Equal(t, "Email is invalid", v.Error)
	assert.Equal(t, FinalStep, v.Step)
	assert.True(t, v.Draft.Equal(before.Draft))
	assert.Equal(t, []string{OutcomeRejected}, audit.outcomes())

	// the applicant can fix the answer and try again
	v, err = h.SetScalar(ctx, v.ID, FieldEmail, "ada@brand.ca")
	require.NoError(t, err)
	assert.Equal(t, "Email is invalid", v.Error, "error stays until the next attempt")
}

func TestHandlerSubmitTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	audit := &recordingAudit{}
	submitter := NewHTTPSubmitter(url, commonhttp.NewClient("formspree", time.Second), logger.NewTestLogger(t))
	h, _ := newTestHandler(t, submitter, audit)
	ctx := context.Background()

	v, _ := h.Start(ctx)
	_, _ = h.SetScalar(ctx, v.ID, FieldFullName, "Ada Obi")
	walkToFinalStep(t, h, v.ID)

	v, err := h.Submit(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusEditing, v.Status)
	assert.NotEmpty(t, v.Error)
	assert.Equal(t, MessageTransport, v.Error)
	assert.Equal(t, "Ada Obi", v.Draft.Scalar(FieldFullName))
	assert.Equal(t, []string{OutcomeTransport}, audit.outcomes())
}

func TestHandlerSubmitRequiresFinalStep(t *testing.T) {
	var calls int32
	h, _ := newTestHandler(t, funcSubmitter(func(context.Context, Draft) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}), nil)
	ctx := context.Background()

	v, _ := h.Start(ctx)
	_, err := h.Submit(ctx, v.ID)
	assert.ErrorIs(t, err, ErrNotFinalStep)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFinalStep))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestHandlerUnknownWorkflow(t *testing.T) {
	h, _ := newTestHandler(t, nil, nil)
	_, err := h.Advance(context.Background(), "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeWorkflowNotFound))
}

func TestHandlerSubmitIsSingleFlight(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	h, _ := newTestHandler(t, funcSubmitter(func(ctx context.Context, d Draft) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return nil
	}), nil)
	ctx := context.Background()

	v, _ := h.Start(ctx)
	walkToFinalStep(t, h, v.ID)

	results := make(chan error, 2)
	go func() {
		_, err := h.Submit(ctx, v.ID)
		results <- err
	}()
	<-started

	// edits are frozen while the request is out
	_, err := h.SetScalar(ctx, v.ID, FieldFullName, "late edit")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	go func() {
		_, err := h.Submit(ctx, v.ID)
		results <- err
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)

	first := <-results
	second := <-results
	for _, err := range []error{first, second} {
		if err != nil {
			assert.ErrorIs(t, err, ErrWorkflowClosed)
		}
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "at most one outbound submission")

	got, err := h.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, got.Status)
}

func TestHandlerDiscardAbortsInFlightSubmission(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	started := make(chan struct{})
	audit := &recordingAudit{}
	h, store := newTestHandler(t, funcSubmitter(func(ctx context.Context, d Draft) error {
		close(started)
		<-ctx.Done()
		return &SubmissionError{Message: MessageTransport, Cause: ctx.Err()}
	}), audit)
	ctx := context.Background()

	v, _ := h.Start(ctx)
	walkToFinalStep(t, h, v.ID)

	done := make(chan error, 1)
	go func() {
		_, err := h.Submit(ctx, v.ID)
		done <- err
	}()
	<-started

	require.NoError(t, h.Discard(ctx, v.ID))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrWorkflowDiscarded)
	case <-time.After(time.Second):
		t.Fatal("submission was not aborted by discard")
	}

	assert.Equal(t, 0, store.Len(), "a discarded draft must not be written back")
	assert.Equal(t, []string{OutcomeDiscarded}, audit.outcomes())
}

func TestHandlerLateResultAfterDiscardIsDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	h, store := newTestHandler(t, funcSubmitter(func(ctx context.Context, d Draft) error {
		close(started)
		<-release // ignores cancellation, like a response already on the wire
		return nil
	}), nil)
	ctx := context.Background()

	v, _ := h.Start(ctx)
	walkToFinalStep(t, h, v.ID)

	done := make(chan error, 1)
	go func() {
		_, err := h.Submit(ctx, v.ID)
		done <- err
	}()
	<-started

	require.NoError(t, h.Discard(ctx, v.ID))
	close(release)

	assert.ErrorIs(t, <-done, ErrWorkflowDiscarded)
	assert.Equal(t, 0, store.Len())
}

func TestHandlerReleasesStaleSubmission(t *testing.T) {
	h, store := newTestHandler(t, funcSubmitter(func(context.Context, Draft) error { return nil }), nil)
	ctx := context.Background()

	wf := newWorkflow("stale", time.Now().UTC().Add(-time.Hour))
	wf.Step = FinalStep
	wf.Status = StatusSubmitting
	require.NoError(t, store.Save(ctx, wf))

	v, err := h.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, StatusEditing, v.Status)
	assert.Equal(t, MessageTransport, v.Error)

	v, err = h.Submit(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, v.Status)
}
