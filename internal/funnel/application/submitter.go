package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "compound-site/internal/common/errors"
	commonhttp "compound-site/internal/common/http"
	"compound-site/internal/common/logger"
)

const (
	// MessageRejected is shown when the endpoint refuses the draft without saying why.
	MessageRejected = "Failed to submit application"
	// MessageTransport is shown when the endpoint could not be reached or answered garbage.
	MessageTransport = "There was an error submitting your application. Please try again."

	maxResponseBytes = 1 << 20
)

var (
	ErrSubmissionRejected  = apperrors.Sentinel(apperrors.ErrCodeSubmissionRejected, "Form endpoint rejected the application")
	ErrSubmissionTransport = apperrors.Sentinel(apperrors.ErrCodeSubmissionTransport, "Form endpoint could not be reached")
)

// Submitter delivers a finished draft to the form-intake service.
type Submitter interface {
	Submit(ctx context.Context, draft Draft) error
}

// SubmissionError is a failed delivery. Message is what the applicant sees.
type SubmissionError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("submission failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("submission rejected with status %d: %s", e.StatusCode, e.Message)
}

func (e *SubmissionError) Unwrap() []error {
	sentinel := ErrSubmissionRejected
	if e.StatusCode == 0 {
		sentinel = ErrSubmissionTransport
	}
	if e.Cause == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Cause}
}

// HTTPSubmitter posts the draft as a flat JSON object, Formspree style.
type HTTPSubmitter struct {
	endpoint string
	client   commonhttp.Doer
	logger   logger.Logger
}

func NewHTTPSubmitter(endpoint string, client commonhttp.Doer, log logger.Logger) *HTTPSubmitter {
	return &HTTPSubmitter{
		endpoint: endpoint,
		client:   client,
		logger:   log.WithFields(map[string]interface{}{"component": "application-submitter"}),
	}
}

type endpointErrorBody struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (s *HTTPSubmitter) Submit(ctx context.Context, draft Draft) error {
	body, err := json.Marshal(draft)
	if err != nil {
		return &SubmissionError{Message: MessageTransport, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return &SubmissionError{Message: MessageTransport, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &SubmissionError{Message: MessageTransport, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &SubmissionError{StatusCode: resp.StatusCode, Message: MessageTransport, Cause: err}
	}

	return &SubmissionError{
		StatusCode: resp.StatusCode,
		Message:    rejectionMessage(raw),
	}
}

// rejectionMessage joins the endpoint's structured error messages, falling back
// to MessageRejected when the body carries none.
func rejectionMessage(raw []byte) string {
	var parsed struct {
		Errors *json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Errors == nil {
		return MessageRejected
	}

	var body endpointErrorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return MessageRejected
	}

	messages := make([]string, 0, len(body.Errors))
	for _, e := range body.Errors {
		messages = append(messages, e.Message)
	}
	if joined := strings.Join(messages, ", "); joined != "" {
		return joined
	}
	return MessageTransport
}

// userMessage picks the text shown to the applicant for a failed submission.
func userMessage(err error) string {
	var subErr *SubmissionError
	if errors.As(err, &subErr) && subErr.Message != "" {
		return subErr.Message
	}
	return MessageTransport
}
