package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"compound-site/internal/common/logger"
	"compound-site/internal/common/metrics"
	"compound-site/internal/common/validation"

	"golang.org/x/sync/singleflight"
)

const Component = "advisory"

var resultSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["eligible", "score", "reasoning", "recommendation"],
	"properties": {
		"eligible": {"type": "boolean"},
		"score": {"type": "integer", "minimum": 0, "maximum": 100},
		"reasoning": {"type": "string"},
		"recommendation": {"type": "string"}
	}
}`)

// Verdict is a Result plus where it came from.
type Verdict struct {
	Result
	Source string `json:"source"`
}

type Handler struct {
	config    *Config
	generator Generator
	logger    logger.Logger
	group     singleflight.Group
}

// NewHandler wires the checker. Outside demo mode a generator is required.
func NewHandler(config *Config, generator Generator, log logger.Logger) (*Handler, error) {
	if !config.DemoMode && generator == nil {
		return nil, ErrMissingCredential
	}
	return &Handler{
		config:    config,
		generator: generator,
		logger:    log.WithFields(map[string]interface{}{"component": Component}),
	}, nil
}

// Check never fails on a model error: it returns FallbackResult instead.
// The only error is cancellation of ctx while waiting.
func (h *Handler) Check(ctx context.Context, req Request) (*Verdict, error) {
	ch := h.group.DoChan(req.key(), func() (interface{}, error) {
		return h.execute(context.WithoutCancel(ctx), req), nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		v := *res.Val.(*Verdict)
		return &v, nil
	}
}

func (h *Handler) execute(ctx context.Context, req Request) *Verdict {
	if h.config.DemoMode {
		timer := time.NewTimer(h.config.MockDelay)
		defer timer.Stop()
		<-timer.C
		metrics.AdvisoryChecks.WithLabelValues(SourceMock, "ok").Inc()
		h.logger.Info("eligibility mock returned", map[string]interface{}{"industry": req.Industry})
		return &Verdict{Result: MockResult, Source: SourceMock}
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := h.generate(ctx, req)
	if err != nil {
		metrics.AdvisoryChecks.WithLabelValues(SourceFallback, "error").Inc()
		h.logger.Warn("eligibility check failed", map[string]interface{}{
			"error":      err.Error(),
			"durationMs": time.Since(start).Milliseconds(),
		})
		return &Verdict{Result: FallbackResult, Source: SourceFallback}
	}

	metrics.AdvisoryChecks.WithLabelValues(SourceModel, "ok").Inc()
	h.logger.Info("eligibility check completed", map[string]interface{}{
		"eligible":   result.Eligible,
		"score":      result.Score,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return &Verdict{Result: *result, Source: SourceModel}
}

func (h *Handler) generate(ctx context.Context, req Request) (*Result, error) {
	text, err := h.generator.Generate(ctx, buildPrompt(req))
	if err != nil {
		return nil, err
	}
	return parseResult(text)
}

func parseResult(text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty model reply")
	}

	vr := resultSchema.ValidateBytes([]byte(text))
	if !vr.Valid {
		return nil, fmt.Errorf("model reply failed validation: %s", strings.Join(vr.GetErrorMessages(), "; "))
	}

	var result Result
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("failed to decode model reply: %w", err)
	}
	return &result, nil
}

func buildPrompt(req Request) string {
	parts := []string{
		"You are an expert business analyst for 'Compound Accelerator'.",
		"Analyze the following applicant details against our criteria:",
		"- Must be bootstrapped founders.",
		"- Must be a consumer lifestyle brand (Fashion, Beauty, Wellness, Home, Food/Bev).",
		"- Must be in business for at least 3 years.",
		"- Must be actively working on growth/scaling.",
		"- Must sell physical products or DTC services.",
		"",
		"Applicant:",
		fmt.Sprintf("Name: %s", req.Name),
		fmt.Sprintf("Years in Business: %s", req.Years),
		fmt.Sprintf("Industry: %s", req.Industry),
		fmt.Sprintf("Goal: %s", req.Goal),
		"",
		"Return a JSON object analyzing if they are a good fit.",
	}
	return strings.Join(parts, "\n")
}
