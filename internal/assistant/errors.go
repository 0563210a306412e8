package assistant

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dvloznov/finbot/internal/locale"
	"google.golang.org/genai"
)

// FailureKind buckets completion failures for the user.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureRateLimited
	FailureInvalidCredential
)

func (k FailureKind) String() string {
	switch k {
	case FailureRateLimited:
		return "rate_limited"
	case FailureInvalidCredential:
		return "invalid_credential"
	}
	return "unknown"
}

// CompletionError is returned by Client when the model could not produce a reply.
// Message is safe to show to the end user.
type CompletionError struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed (%s): %v", e.Kind, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Classify wraps err in a CompletionError with a localized message.
func Classify(err error, msgs *locale.Messages) *CompletionError {
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce
	}

	kind := classifyKind(err)
	msg := msgs.GenericError
	switch kind {
	case FailureRateLimited:
		msg = msgs.RateLimited
	case FailureInvalidCredential:
		msg = msgs.InvalidCredential
	}
	return &CompletionError{Kind: kind, Message: msg, Err: err}
}

func classifyKind(err error) FailureKind {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests, apiErr.Status == "RESOURCE_EXHAUSTED":
			return FailureRateLimited
		case apiErr.Code == http.StatusUnauthorized, apiErr.Code == http.StatusForbidden,
			apiErr.Status == "UNAUTHENTICATED", apiErr.Status == "PERMISSION_DENIED":
			return FailureInvalidCredential
		}
	}

	s := err.Error()
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(s, "429"), strings.Contains(lower, "quota"), strings.Contains(s, "RESOURCE_EXHAUSTED"):
		return FailureRateLimited
	case strings.Contains(s, "API_KEY"), strings.Contains(lower, "api key not valid"), strings.Contains(lower, "api key is required"):
		return FailureInvalidCredential
	}
	return FailureUnknown
}

// UserMessage returns the user-facing text for err, or fallback when err
// carries none.
func UserMessage(err error, fallback string) string {
	var ce *CompletionError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return fallback
}
