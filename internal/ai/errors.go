package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-2xx answer from a model endpoint. The typed errors below
// embed it once the status has been classified.
type APIError struct {
	StatusCode int            `json:"-"`
	Code       string         `json:"code,omitempty"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
	RequestID  string         `json:"-"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api error: status=%d", e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " code=%s", e.Code)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " request_id=%s", e.RequestID)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " message=%s", e.Message)
	}
	return b.String()
}

func wrapped(what string, e *APIError) string { return what + ": " + e.Error() }

// AuthError is a 401/403: the token is missing, wrong or lacks access.
type AuthError struct{ *APIError }

func (e *AuthError) Error() string { return wrapped("credentials rejected", e.APIError) }

// RateLimitError is a 429. RetryAfter is set when the server sent one.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return wrapped(fmt.Sprintf("rate limited, retry in %ds", int(e.RetryAfter.Seconds())), e.APIError)
	}
	return wrapped("rate limited", e.APIError)
}

// ModelNotFoundError means the endpoint does not serve the requested model.
type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string { return wrapped("unknown model", e.APIError) }

// BadRequestError is a 400, typically an oversized prompt or bad parameter.
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return wrapped("request rejected", e.APIError) }

// QuotaExceededError reports an exhausted budget on the provider account.
type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string { return wrapped("quota exhausted", e.APIError) }

// ServerError is a 5xx from the provider.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return wrapped("provider failure", e.APIError) }

// TimeoutError means no narration arrived within the HTTP timeout. Its
// message is shown to the user verbatim.
type TimeoutError struct{ Err error }

func (e *TimeoutError) Error() string {
	return "the request to the language model timed out; try again later"
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// UnreachableError means nothing answered at Host, usually a stopped Ollama.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e.Host == "" {
		return fmt.Sprintf("no model endpoint reachable: %v", e.Err)
	}
	return fmt.Sprintf("no model endpoint reachable at %s: %v", e.Host, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// classifyAPIError maps a status and message to a typed error. resp is nil
// for errors surfaced by the SDK clients, so Retry-After is unknown there.
func classifyAPIError(apiErr *APIError, resp *http.Response) error {
	sc, msg, code := apiErr.StatusCode, apiErr.Message, apiErr.Code
	switch {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case sc == http.StatusTooManyRequests:
		rl := &RateLimitError{APIError: apiErr}
		if resp != nil {
			rl.RetryAfter = retryAfter(resp.Header.Get("Retry-After"))
		}
		return rl
	case sc == http.StatusNotFound:
		if code == "model_not_found" || containsAllFold(msg, "model", "not", "found") {
			return &ModelNotFoundError{APIError: apiErr}
		}
		return apiErr
	case sc == http.StatusRequestTimeout || sc == http.StatusGatewayTimeout:
		return &TimeoutError{Err: apiErr}
	case sc == http.StatusBadRequest:
		return &BadRequestError{APIError: apiErr}
	case code == "quota_exceeded" || containsAnyFold(msg, "quota", "billing", "limit exceeded"):
		return &QuotaExceededError{APIError: apiErr}
	case sc >= 500 && sc <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

// isRetryable reports whether an attempt that failed with err may be repeated.
func isRetryable(err error) bool {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return isRetryableNetErr(err)
}

func isRetryableNetErr(err error) bool {
	return isNetTimeout(err) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func isNetTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || isNetTimeout(err)
}

// asTimeout converts deadline and network timeouts to *TimeoutError and
// returns any other error unchanged.
func asTimeout(err error) error {
	if isTimeout(err) {
		return &TimeoutError{Err: err}
	}
	return err
}

// retryAfter parses a Retry-After value; zero when absent or invalid.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := parseRetryAfterSeconds(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// parseRetryAfterSeconds accepts delay-seconds or an HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		return int(max(time.Until(t), 0).Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

func containsAllFold(s string, subs ...string) bool {
	for _, sub := range subs {
		if !containsFold(s, sub) {
			return false
		}
	}
	return true
}

func containsAnyFold(s string, subs ...string) bool {
	for _, sub := range subs {
		if containsFold(s, sub) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	if s == "" || sub == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
