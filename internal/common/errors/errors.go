package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"

	ErrCodeWorkflowNotFound      ErrorCode = "WORKFLOW_NOT_FOUND"
	ErrCodeWorkflowClosed        ErrorCode = "WORKFLOW_CLOSED"
	ErrCodeWorkflowDiscarded     ErrorCode = "WORKFLOW_DISCARDED"
	ErrCodeUnknownField          ErrorCode = "UNKNOWN_FIELD"
	ErrCodeFieldKindMismatch     ErrorCode = "FIELD_KIND_MISMATCH"
	ErrCodeSelectionLimit        ErrorCode = "SELECTION_LIMIT_EXCEEDED"
	ErrCodeNotFinalStep          ErrorCode = "NOT_FINAL_STEP"
	ErrCodeSubmissionInFlight    ErrorCode = "SUBMISSION_IN_FLIGHT"
	ErrCodeSubmissionRejected    ErrorCode = "SUBMISSION_REJECTED"
	ErrCodeSubmissionTransport   ErrorCode = "SUBMISSION_TRANSPORT_FAILED"
	ErrCodeDraftStoreFailed      ErrorCode = "DRAFT_STORE_FAILED"
	ErrCodeAuditInsertFailed     ErrorCode = "AUDIT_INSERT_FAILED"
	ErrCodeAdvisoryUnavailable   ErrorCode = "ADVISORY_UNAVAILABLE"
	ErrCodeAdvisoryFailed        ErrorCode = "ADVISORY_FAILED"
	ErrCodeNewsletterFailed      ErrorCode = "NEWSLETTER_SIGNUP_FAILED"
	ErrCodeContactDeliveryFailed ErrorCode = "CONTACT_DELIVERY_FAILED"
	ErrCodePostNotFound          ErrorCode = "POST_NOT_FOUND"
	ErrCodeSearchUnavailable     ErrorCode = "SEARCH_UNAVAILABLE"
	ErrCodeSearchQueryFailed     ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout         ErrorCode = "SEARCH_TIMEOUT"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches any StandardError with the same code, so package sentinels can be
// compared with errors.Is after being wrapped or re-created.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	return ok && t.Code == e.Code
}

// WithDetails returns a copy of e carrying details and a fresh timestamp.
func (e *StandardError) WithDetails(details string) *StandardError {
	cp := *e
	cp.Details = details
	cp.Timestamp = time.Now().UTC()
	return &cp
}

// Sentinel builds a package-level error value for a code.
func Sentinel(code ErrorCode, message string) *StandardError {
	return &StandardError{Code: code, Message: message, Retryable: IsRetryableErrorCode(code)}
}

func newError(code ErrorCode, message, details string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: IsRetryableErrorCode(code),
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidRequest, "Invalid request", details)
}

func NewWorkflowNotFoundError(id string) *StandardError {
	return newError(ErrCodeWorkflowNotFound, "Application not found or expired", fmt.Sprintf("workflowId: %s", id))
}

func NewUnknownFieldError(key string) *StandardError {
	return newError(ErrCodeUnknownField, "Unknown application field", fmt.Sprintf("field: %s", key))
}

func NewDraftStoreFailedError(err error) *StandardError {
	return newError(ErrCodeDraftStoreFailed, "Application draft storage error", err.Error())
}

func NewAuditInsertFailedError(err error) *StandardError {
	return newError(ErrCodeAuditInsertFailed, "Submission audit insert failed", err.Error())
}

func NewAdvisoryUnavailableError(details string) *StandardError {
	return newError(ErrCodeAdvisoryUnavailable, "Eligibility checker is not available", details)
}

func NewNewsletterFailedError(err error) *StandardError {
	return newError(ErrCodeNewsletterFailed, "Newsletter signup failed", err.Error())
}

func NewContactDeliveryFailedError(err error) *StandardError {
	return newError(ErrCodeContactDeliveryFailed, "Contact message delivery failed", err.Error())
}

func NewPostNotFoundError(slug string) *StandardError {
	return newError(ErrCodePostNotFound, "Post not found", fmt.Sprintf("slug: %s", slug))
}

func NewSearchUnavailableError() *StandardError {
	return newError(ErrCodeSearchUnavailable, "Blog search is not configured", "")
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Elasticsearch query error", fmt.Sprintf("index: %s, error: %s", index, err.Error()))
}

func NewSearchTimeoutError(index string) *StandardError {
	return newError(ErrCodeSearchTimeout, "Elasticsearch query timeout", fmt.Sprintf("index: %s", index))
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error())
}

// GetRetryCount is how many times a client may reasonably retry a failed call.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDraftStoreFailed,
		ErrCodeAuditInsertFailed,
		ErrCodeNewsletterFailed,
		ErrCodeContactDeliveryFailed,
		ErrCodeSearchQueryFailed:
		return 3

	case ErrCodeSearchTimeout,
		ErrCodeSubmissionTransport:
		return 2

	case ErrCodeSubmissionInFlight:
		return 1

	default:
		return 0
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// HTTPStatus maps an error code to the response status used by the web layer.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeUnknownField, ErrCodeFieldKindMismatch:
		return http.StatusBadRequest
	case ErrCodeWorkflowNotFound, ErrCodePostNotFound:
		return http.StatusNotFound
	case ErrCodeWorkflowClosed, ErrCodeWorkflowDiscarded, ErrCodeSubmissionInFlight:
		return http.StatusConflict
	case ErrCodeSelectionLimit, ErrCodeNotFinalStep:
		return http.StatusUnprocessableEntity
	case ErrCodeSubmissionRejected, ErrCodeSubmissionTransport,
		ErrCodeNewsletterFailed, ErrCodeContactDeliveryFailed, ErrCodeSearchQueryFailed:
		return http.StatusBadGateway
	case ErrCodeAdvisoryUnavailable, ErrCodeSearchUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeSearchTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "WORKFLOW") || strings.Contains(codeStr, "SUBMISSION") ||
		strings.Contains(codeStr, "FIELD") || strings.Contains(codeStr, "SELECTION") ||
		strings.Contains(codeStr, "STEP"):
		return "APPLICATION"
	case strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "AUDIT"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "POST"):
		return "CONTENT"
	case strings.Contains(codeStr, "ADVISORY"):
		return "AI"
	case strings.Contains(codeStr, "NEWSLETTER") || strings.Contains(codeStr, "CONTACT"):
		return "OUTREACH"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// Normalize converts any error into a StandardError. Wrapped StandardErrors keep
// their code; the full wrapped message becomes the details when none are set.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		if stdErr.Details == "" && err.Error() != stdErr.Error() {
			return stdErr.WithDetails(err.Error())
		}
		if stdErr.Timestamp.IsZero() {
			return stdErr.WithDetails(stdErr.Details)
		}
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	return stderrors.Is(err, &StandardError{Code: code})
}
