package advisory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "compound-site/internal/common/errors"
	"compound-site/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

var sampleRequest = Request{Name: "Linen & Co", Years: "4", Industry: "Fashion", Goal: "Wholesale expansion"}

func newTestHandler(t *testing.T, cfg *Config, gen Generator) *Handler {
	t.Helper()
	h, err := NewHandler(cfg, gen, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h
}

func TestCheckModelReply(t *testing.T) {
	gen := &fakeGenerator{reply: `{"eligible": true, "score": 72, "reasoning": "Fits the consumer brand profile.", "recommendation": "Lead with retention numbers."}`}
	h := newTestHandler(t, &Config{Timeout: time.Second}, gen)

	v, err := h.Check(context.Background(), sampleRequest)
	require.NoError(t, err)
	assert.Equal(t, SourceModel, v.Source)
	assert.True(t, v.Eligible)
	assert.Equal(t, 72, v.Score)
	assert.Equal(t, "Lead with retention numbers.", v.Recommendation)

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "Compound Accelerator")
	assert.Contains(t, prompt, "Name: Linen & Co")
	assert.Contains(t, prompt, "Years in Business: 4")
	assert.Contains(t, prompt, "Industry: Fashion")
	assert.Contains(t, prompt, "Goal: Wholesale expansion")
}

func TestCheckFallsBack(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"api error", &fakeGenerator{err: errors.New("quota exceeded")}},
		{"empty reply", &fakeGenerator{reply: "  "}},
		{"not json", &fakeGenerator{reply: "You look like a great fit!"}},
		{"missing field", &fakeGenerator{reply: `{"eligible": true, "score": 90, "reasoning": "ok"}`}},
		{"score out of range", &fakeGenerator{reply: `{"eligible": true, "score": 140, "reasoning": "ok", "recommendation": "ok"}`}},
		{"wrong type", &fakeGenerator{reply: `{"eligible": "yes", "score": 90, "reasoning": "ok", "recommendation": "ok"}`}},
		{"timeout", &fakeGenerator{reply: `{}`, delay: time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &Config{Timeout: 50 * time.Millisecond}, tt.gen)
			v, err := h.Check(context.Background(), sampleRequest)
			require.NoError(t, err)
			assert.Equal(t, SourceFallback, v.Source)
			assert.Equal(t, FallbackResult, v.Result)
		})
	}
}

func TestCheckDemoModeReturnsMockAfterDelay(t *testing.T) {
	h := newTestHandler(t, &Config{DemoMode: true, MockDelay: 80 * time.Millisecond}, nil)

	start := time.Now()
	v, err := h.Check(context.Background(), sampleRequest)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Equal(t, SourceMock, v.Source)
	assert.True(t, v.Eligible)
	assert.Equal(t, 85, v.Score)
	assert.Equal(t, MockResult, v.Result)
}

func TestCheckDemoModeIgnoresGenerator(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("should not be called")}
	h := newTestHandler(t, &Config{DemoMode: true}, gen)

	v, err := h.Check(context.Background(), sampleRequest)
	require.NoError(t, err)
	assert.Equal(t, SourceMock, v.Source)
	assert.Zero(t, gen.calls.Load())
}

func TestNewHandlerRequiresCredentialOutsideDemoMode(t *testing.T) {
	_, err := NewHandler(&Config{}, nil, logger.NewNoOpLogger())
	require.ErrorIs(t, err, ErrMissingCredential)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAdvisoryUnavailable))

	_, err = NewGeminiGenerator(context.Background(), &Config{Model: "gemini-2.5-flash"})
	require.ErrorIs(t, err, ErrMissingCredential)
}

func TestCheckSharesInFlightRequest(t *testing.T) {
	gen := &fakeGenerator{
		reply: `{"eligible": false, "score": 30, "reasoning": "Too early.", "recommendation": "Reapply next year."}`,
		delay: 100 * time.Millisecond,
	}
	h := newTestHandler(t, &Config{Timeout: time.Second}, gen)

	var wg sync.WaitGroup
	results := make([]*Verdict, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := h.Check(context.Background(), sampleRequest)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), gen.calls.Load())
	for _, v := range results {
		require.NotNil(t, v)
		assert.Equal(t, 30, v.Score)
	}
}

func TestCheckCallerCancellation(t *testing.T) {
	h := newTestHandler(t, &Config{DemoMode: true, MockDelay: time.Second}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.Check(ctx, sampleRequest)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
