package newsletter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "compound-site/internal/common/errors"
	commonhttp "compound-site/internal/common/http"
	"compound-site/internal/common/logger"
	"compound-site/internal/common/metrics"
	"compound-site/internal/common/validation"

	"golang.org/x/sync/singleflight"
)

const Component = "newsletter"

var (
	ErrInvalidEmail    = apperrors.Sentinel(apperrors.ErrCodeInvalidRequest, "A valid email address is required")
	ErrEndpointMissing = apperrors.Sentinel(apperrors.ErrCodeNewsletterFailed, "Newsletter endpoint is not configured")
)

// Subscription is the acknowledgement returned to the caller.
type Subscription struct {
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}

type Handler struct {
	config *Config
	client commonhttp.Doer
	logger logger.Logger
	now    func() time.Time
	group  singleflight.Group
}

func NewHandler(config *Config, client commonhttp.Doer, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": Component}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe posts the address to the signup script. The script's reply is
// opaque: any response that arrives counts as success.
func (h *Handler) Subscribe(ctx context.Context, email string) (*Subscription, error) {
	email = strings.TrimSpace(email)
	if email == "" || !validation.ValidateEmail(email) {
		metrics.NewsletterSignups.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidEmail
	}
	if h.config.Endpoint == "" {
		metrics.NewsletterSignups.WithLabelValues("error").Inc()
		return nil, ErrEndpointMissing
	}

	key := strings.ToLower(email)
	ch := h.group.DoChan(key, func() (interface{}, error) {
		return h.execute(context.WithoutCancel(ctx), email)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		sub := *res.Val.(*Subscription)
		return &sub, nil
	}
}

func (h *Handler) execute(ctx context.Context, email string) (*Subscription, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	sub := &Subscription{Email: email, Timestamp: h.now()}

	target, err := signupURL(h.config.Endpoint, sub)
	if err != nil {
		metrics.NewsletterSignups.WithLabelValues("error").Inc()
		return nil, apperrors.NewNewsletterFailedError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		metrics.NewsletterSignups.WithLabelValues("error").Inc()
		return nil, apperrors.NewNewsletterFailedError(err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		metrics.NewsletterSignups.WithLabelValues("error").Inc()
		h.logger.Warn("newsletter signup failed", map[string]interface{}{"error": err.Error()})
		return nil, apperrors.NewNewsletterFailedError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		h.logger.Warn("newsletter endpoint returned error status", map[string]interface{}{"status": resp.StatusCode})
	}

	metrics.NewsletterSignups.WithLabelValues("ok").Inc()
	h.logger.Info("newsletter signup recorded", nil)
	return sub, nil
}

func signupURL(endpoint string, sub *Subscription) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid newsletter endpoint: %w", err)
	}
	q := u.Query()
	q.Set("email", sub.Email)
	q.Set("timestamp", sub.Timestamp.Format(time.RFC3339))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
