package application

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	apperrors "compound-site/internal/common/errors"
	"compound-site/internal/common/logger"
	"compound-site/internal/common/metrics"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

const Component = "application"

var (
	ErrNotFinalStep       = apperrors.Sentinel(apperrors.ErrCodeNotFinalStep, "Submission is only possible from the final step")
	ErrWorkflowClosed     = apperrors.Sentinel(apperrors.ErrCodeWorkflowClosed, "Application was already submitted")
	ErrSubmissionInFlight = apperrors.Sentinel(apperrors.ErrCodeSubmissionInFlight, "A submission is already in progress")
	ErrWorkflowDiscarded  = apperrors.Sentinel(apperrors.ErrCodeWorkflowDiscarded, "Application was discarded")
)

const lockStripes = 64

// Handler drives application workflows: navigation, edits and the single
// terminal submission.
type Handler struct {
	config    *Config
	store     Store
	submitter Submitter
	audit     AuditRecorder
	policy    SelectionPolicy
	logger    logger.Logger

	now   func() time.Time
	newID func() string

	group singleflight.Group
	locks [lockStripes]sync.Mutex

	mu       sync.Mutex
	inflight map[string]*submission
}

// submission tracks an outbound request so Discard can abort it.
type submission struct {
	cancel    context.CancelFunc
	discarded bool
}

func NewHandler(config *Config, store Store, submitter Submitter, audit AuditRecorder, log logger.Logger) *Handler {
	if audit == nil {
		audit = NopAudit{}
	}
	return &Handler{
		config:    config,
		store:     store,
		submitter: submitter,
		audit:     audit,
		policy:    SelectionPolicy{Enforce: config.EnforceSelectionCaps},
		logger:    log.WithFields(map[string]interface{}{"component": Component}),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.New().String() },
		inflight:  map[string]*submission{},
	}
}

func (h *Handler) lock(id string) func() {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(id))
	m := &h.locks[hash.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

// Start creates an empty workflow at step 1.
func (h *Handler) Start(ctx context.Context) (*View, error) {
	wf := newWorkflow(h.newID(), h.now())
	if err := h.store.Save(ctx, wf); err != nil {
		return nil, err
	}
	metrics.ApplicationTransitions.WithLabelValues("start").Inc()
	h.logger.Info("application started", map[string]interface{}{"workflowId": wf.ID})
	return newView(wf, false), nil
}

func (h *Handler) Get(ctx context.Context, id string) (*View, error) {
	wf, err := h.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return newView(wf, false), nil
}

func (h *Handler) Advance(ctx context.Context, id string) (*View, error) {
	return h.mutate(ctx, id, "advance", func(wf *Workflow) (bool, error) {
		wf.Step = Advance(wf.Step)
		return true, nil
	})
}

func (h *Handler) Retreat(ctx context.Context, id string) (*View, error) {
	return h.mutate(ctx, id, "retreat", func(wf *Workflow) (bool, error) {
		wf.Step = Retreat(wf.Step)
		return true, nil
	})
}

// SetScalar overwrites one scalar answer. Fields on any step may be edited.
func (h *Handler) SetScalar(ctx context.Context, id string, f Field, value string) (*View, error) {
	return h.mutate(ctx, id, "set", func(wf *Workflow) (bool, error) {
		next, err := SetScalarField(wf.Draft, f, value)
		if err != nil {
			return false, err
		}
		wf.Draft = next
		return false, nil
	})
}

// Toggle flips tag in a set answer, subject to the selection policy.
func (h *Handler) Toggle(ctx context.Context, id string, f Field, tag string) (*View, error) {
	return h.mutate(ctx, id, "toggle", func(wf *Workflow) (bool, error) {
		next, err := ToggleSetField(wf.Draft, f, tag)
		if err != nil {
			return false, err
		}
		if err := h.policy.Check(next, f, tag); err != nil {
			return false, err
		}
		wf.Draft = next
		return false, nil
	})
}

func (h *Handler) mutate(ctx context.Context, id, action string, fn func(wf *Workflow) (bool, error)) (*View, error) {
	unlock := h.lock(id)
	defer unlock()

	wf, err := h.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch wf.Status {
	case StatusSubmitting:
		return nil, fmt.Errorf("%w: workflow %s", ErrSubmissionInFlight, id)
	case StatusSubmitted:
		return nil, fmt.Errorf("%w: workflow %s", ErrWorkflowClosed, id)
	}

	scroll, err := fn(wf)
	if err != nil {
		return nil, err
	}
	wf.UpdatedAt = h.now()
	if err := h.store.Save(ctx, wf); err != nil {
		return nil, err
	}

	metrics.ApplicationTransitions.WithLabelValues(action).Inc()
	h.logger.Debug("application updated", map[string]interface{}{
		"workflowId": id,
		"action":     action,
		"step":       int(wf.Step),
	})
	return newView(wf, scroll), nil
}

// Submit delivers the draft from the final step. Concurrent calls for the same
// workflow share one outbound request. A rejected or failed delivery is not an
// error: the returned view is back in StatusEditing with Error set.
func (h *Handler) Submit(ctx context.Context, id string) (*View, error) {
	v, err, shared := h.group.Do(id, func() (interface{}, error) {
		return h.submit(ctx, id)
	})
	if shared {
		h.logger.Debug("joined in-flight submission", map[string]interface{}{"workflowId": id})
	}
	if err != nil {
		return nil, err
	}
	return v.(*View), nil
}

func (h *Handler) submit(ctx context.Context, id string) (*View, error) {
	ctx, span := otel.Tracer("compound-site/application").Start(ctx, "application.submit")
	span.SetAttributes(attribute.String("workflow.id", id))
	defer span.End()

	draft, sub, err := h.beginSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	defer h.endSubmission(id)

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.config.Timeout)
	defer cancel()
	reqCtx, abort := context.WithCancel(reqCtx)
	defer abort()
	h.mu.Lock()
	sub.cancel = abort
	discarded := sub.discarded
	h.mu.Unlock()
	if discarded {
		abort()
	}

	metrics.ApplicationSubmissionsActive.Inc()
	start := h.now()
	sendErr := h.submitter.Submit(reqCtx, draft)
	elapsed := h.now().Sub(start)
	metrics.ApplicationSubmissionsActive.Dec()

	// the applicant may have navigated away while the request was out
	persistCtx := context.WithoutCancel(ctx)
	if h.isDiscarded(id) {
		h.record(persistCtx, id, OutcomeDiscarded, sendErr, elapsed)
		h.logger.Info("submission result dropped for discarded application", map[string]interface{}{"workflowId": id})
		return nil, fmt.Errorf("%w: workflow %s", ErrWorkflowDiscarded, id)
	}

	unlock := h.lock(id)
	defer unlock()

	wf, err := h.store.Load(persistCtx, id)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeWorkflowNotFound) {
			return nil, fmt.Errorf("%w: workflow %s", ErrWorkflowDiscarded, id)
		}
		return nil, err
	}

	outcome := OutcomeAccepted
	if sendErr == nil {
		wf.Status = StatusSubmitted
		wf.Error = ""
	} else {
		wf.Status = StatusEditing
		wf.Error = userMessage(sendErr)
		outcome = OutcomeRejected
		if errors.Is(sendErr, ErrSubmissionTransport) {
			outcome = OutcomeTransport
		}
		span.RecordError(sendErr)
	}
	wf.UpdatedAt = h.now()

	if err := h.store.Save(persistCtx, wf); err != nil {
		return nil, err
	}

	h.record(persistCtx, id, outcome, sendErr, elapsed)
	metrics.ApplicationSubmissions.WithLabelValues(outcome).Inc()

	fields := map[string]interface{}{
		"workflowId": id,
		"outcome":    outcome,
		"durationMs": elapsed.Milliseconds(),
	}
	if sendErr != nil {
		h.logger.WithError(sendErr).Warn("application submission failed", fields)
	} else {
		h.logger.Info("application submitted", fields)
	}

	return newView(wf, true), nil
}

// beginSubmission checks preconditions and persists StatusSubmitting.
func (h *Handler) beginSubmission(ctx context.Context, id string) (Draft, *submission, error) {
	unlock := h.lock(id)
	defer unlock()

	wf, err := h.load(ctx, id)
	if err != nil {
		return Draft{}, nil, err
	}
	switch {
	case wf.Status == StatusSubmitted:
		return Draft{}, nil, fmt.Errorf("%w: workflow %s", ErrWorkflowClosed, id)
	case wf.Status == StatusSubmitting:
		return Draft{}, nil, fmt.Errorf("%w: workflow %s", ErrSubmissionInFlight, id)
	case wf.Step != FinalStep:
		return Draft{}, nil, fmt.Errorf("%w: workflow %s is on step %d", ErrNotFinalStep, id, wf.Step)
	}

	wf.Status = StatusSubmitting
	wf.Error = ""
	wf.UpdatedAt = h.now()
	if err := h.store.Save(ctx, wf); err != nil {
		return Draft{}, nil, err
	}

	sub := &submission{}
	h.mu.Lock()
	h.inflight[id] = sub
	h.mu.Unlock()

	metrics.ApplicationTransitions.WithLabelValues("submit").Inc()
	return wf.Draft, sub, nil
}

// load fetches a workflow and releases a StatusSubmitting left behind by a
// process that died mid-request. Nothing local is in flight for it and the
// request deadline has long passed.
func (h *Handler) load(ctx context.Context, id string) (*Workflow, error) {
	wf, err := h.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if wf.Status != StatusSubmitting || h.now().Sub(wf.UpdatedAt) <= 2*h.config.Timeout {
		return wf, nil
	}
	h.mu.Lock()
	_, local := h.inflight[id]
	h.mu.Unlock()
	if local {
		return wf, nil
	}

	wf.Status = StatusEditing
	wf.Error = MessageTransport
	h.logger.Warn("releasing stale submission", map[string]interface{}{"workflowId": id})
	return wf, nil
}

func (h *Handler) endSubmission(id string) {
	h.mu.Lock()
	delete(h.inflight, id)
	h.mu.Unlock()
}

func (h *Handler) isDiscarded(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub, ok := h.inflight[id]
	return ok && sub.discarded
}

func (h *Handler) record(ctx context.Context, id, outcome string, sendErr error, elapsed time.Duration) {
	rec := SubmissionRecord{
		ID:         h.newID(),
		WorkflowID: id,
		Outcome:    outcome,
		Duration:   elapsed,
		CreatedAt:  h.now(),
	}
	var subErr *SubmissionError
	if errors.As(sendErr, &subErr) {
		rec.StatusCode = subErr.StatusCode
		rec.Message = subErr.Message
	}
	if err := h.audit.RecordSubmission(ctx, rec); err != nil {
		h.logger.Warn("submission audit insert failed", map[string]interface{}{
			"error":      err,
			"workflowId": id,
		})
	}
}

// Reset returns a workflow to step 1 with an empty draft, discarding all answers.
func (h *Handler) Reset(ctx context.Context, id string) (*View, error) {
	unlock := h.lock(id)
	defer unlock()

	wf, err := h.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if wf.Status == StatusSubmitting {
		return nil, fmt.Errorf("%w: workflow %s", ErrSubmissionInFlight, id)
	}

	fresh := newWorkflow(id, h.now())
	if err := h.store.Save(ctx, fresh); err != nil {
		return nil, err
	}

	metrics.ApplicationTransitions.WithLabelValues("reset").Inc()
	h.logger.Info("application reset", map[string]interface{}{"workflowId": id})
	return newView(fresh, true), nil
}

// Discard drops a workflow. An in-flight submission is aborted and its result,
// if one still arrives, is never applied.
func (h *Handler) Discard(ctx context.Context, id string) error {
	h.mu.Lock()
	if sub, ok := h.inflight[id]; ok {
		sub.discarded = true
		if sub.cancel != nil {
			sub.cancel()
		}
	}
	h.mu.Unlock()

	unlock := h.lock(id)
	defer unlock()

	if err := h.store.Delete(ctx, id); err != nil {
		return err
	}
	metrics.ApplicationTransitions.WithLabelValues("discard").Inc()
	h.logger.Info("application discarded", map[string]interface{}{"workflowId": id})
	return nil
}
