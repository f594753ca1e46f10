package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestClassifyAPIError(t *testing.T) {
	cases := []struct {
		status int
		code   string
		msg    string
		check  func(error) bool
	}{
		{401, "", "bad key", func(err error) bool { var e *AuthError; return errors.As(err, &e) }},
		{403, "", "", func(err error) bool { var e *AuthError; return errors.As(err, &e) }},
		{404, "model_not_found", "", func(err error) bool { var e *ModelNotFoundError; return errors.As(err, &e) }},
		{404, "", "Model gpt-x not found", func(err error) bool { var e *ModelNotFoundError; return errors.As(err, &e) }},
		{408, "", "", func(err error) bool { var e *TimeoutError; return errors.As(err, &e) }},
		{504, "", "", func(err error) bool { var e *TimeoutError; return errors.As(err, &e) }},
		{400, "", "context too long", func(err error) bool { var e *BadRequestError; return errors.As(err, &e) }},
		{402, "", "billing hard limit", func(err error) bool { var e *QuotaExceededError; return errors.As(err, &e) }},
		{502, "", "", func(err error) bool { var e *ServerError; return errors.As(err, &e) }},
	}
	for _, tc := range cases {
		err := classifyAPIError(&APIError{StatusCode: tc.status, Code: tc.code, Message: tc.msg}, nil)
		if !tc.check(err) {
			t.Fatalf("status %d code %q: unexpected classification %T (%v)", tc.status, tc.code, err, err)
		}
	}
}

func TestClassifyRateLimitReadsRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"3"}}}
	err := classifyAPIError(&APIError{StatusCode: 429}, resp)
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %T", err)
	}
	if rl.RetryAfter != 3*time.Second {
		t.Fatalf("RetryAfter = %v", rl.RetryAfter)
	}
	if !isRetryable(err) {
		t.Fatal("rate limit with Retry-After should be retryable")
	}
}

func TestAsTimeoutWrapsDeadline(t *testing.T) {
	err := asTimeout(fmt.Errorf("decode: %w", context.DeadlineExceeded))
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %T", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("TimeoutError should unwrap to the deadline")
	}
	plain := errors.New("boom")
	if asTimeout(plain) != plain {
		t.Fatal("non-timeout errors pass through unchanged")
	}
}

func TestParseRetryAfterSeconds(t *testing.T) {
	if s, err := parseRetryAfterSeconds("7"); err != nil || s != 7 {
		t.Fatalf("got %d, %v", s, err)
	}
	if _, err := parseRetryAfterSeconds("soon"); err == nil {
		t.Fatal("expected error for invalid value")
	}
	date := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
	if s, err := parseRetryAfterSeconds(date); err != nil || s != 0 {
		t.Fatalf("past date: got %d, %v", s, err)
	}
}
