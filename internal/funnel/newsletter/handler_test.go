package newsletter

import (
	"context"
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
)

func newTestHandler(t *testing.T, endpoint string) *Handler {
	t.Helper()
	cfg := &Config{Endpoint: endpoint, Timeout: 2 * time.Second}
	h := NewHandler(cfg, commonhttp.NewClient("newsletter", cfg.Timeout), logger.NewTestLogger(t))
	h.now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }
	return h
}

func TestSubscribeSendsQueryParams(t *testing.T) {
	var (
		method string
		query  map[string][]string
		body   int64
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		query = r.URL.Query()
		body = r.ContentLength
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := newTestHandler(t, srv.URL+"/macros/s/abc/exec")
	sub, err := h.Subscribe(context.Background(), "  founder@brand.co ")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, []string{"founder@brand.co"}, query["email"])
	assert.Equal(t, []string{"2025-03-14T09:26:53Z"}, query["timestamp"])
	assert.Zero(t, body)
	assert.Equal(t, "founder@brand.co", sub.Email)
}

func TestSubscribeKeepsExistingQuery(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
	}))
	defer srv.Close()

	h := newTestHandler(t, srv.URL+"/exec?sheet=signups")
	_, err := h.Subscribe(context.Background(), "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, []string{"signups"}, query["sheet"])
	assert.Equal(t, []string{"a@b.co"}, query["email"])
}

func TestSubscribeOpaqueResponseCountsAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>script error</html>"))
	}))
	defer srv.Close()

	h := newTestHandler(t, srv.URL)
	_, err := h.Subscribe(context.Background(), "a@b.co")
	assert.NoError(t, err)
}

func TestSubscribeRejectsInvalidEmail(t *testing.T) {
	h := newTestHandler(t, "http://127.0.0.1:1/unused")

	for _, email := range []string{"", "   ", "not-an-email"} {
		_, err := h.Subscribe(context.Background(), email)
		require.ErrorIs(t, err, ErrInvalidEmail, email)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRequest))
	}
}

func TestSubscribeTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	h := newTestHandler(t, url)
	_, err := h.Subscribe(context.Background(), "a@b.co")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNewsletterFailed))
}

func TestSubscribeMissingEndpoint(t *testing.T) {
	h := newTestHandler(t, "")
	_, err := h.Subscribe(context.Background(), "a@b.co")
	assert.ErrorIs(t, err, ErrEndpointMissing)
}

func TestSubscribeSharesConcurrentSignups(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
	}))
	defer srv.Close()

	h := newTestHandler(t, srv.URL)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Subscribe(context.Background(), "Same@Brand.co")
			assert.NoError(t, err)
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}
