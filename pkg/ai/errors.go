package ai

import (
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrRateLimited indicates the gateway answered 429.
	ErrRateLimited = errors.New("llm gateway rate limit exceeded")
	// ErrPaymentRequired indicates the gateway answered 402.
	ErrPaymentRequired = errors.New("llm gateway requires payment")
	// ErrGatewayUnavailable covers every other non-success gateway outcome.
	ErrGatewayUnavailable = errors.New("llm gateway error")
	// ErrEmptyResponse indicates the gateway returned no choices.
	ErrEmptyResponse = errors.New("llm gateway returned no choices")
	// ErrMalformedResponse is the sentinel behind every *ParseError.
	ErrMalformedResponse = errors.New("malformed model response")
)

// ParseError reports why a model response could not be turned into an EvaluationRecord.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse evaluation: %s: %v", e.Reason, e.Err)
	}
	return "parse evaluation: " + e.Reason
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedResponse, e.Err}
	}
	return []error{ErrMalformedResponse}
}

// StatusCode extracts the upstream HTTP status from a go-openai error, or 0.
func StatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func classifyError(op string, err error) error {
	switch StatusCode(err) {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w: %v", op, ErrRateLimited, err)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%s: %w: %v", op, ErrPaymentRequired, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, ErrGatewayUnavailable, err)
	}
}
