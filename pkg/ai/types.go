package ai

import (
	"context"
	"errors"
	"fmt"
)

// CompletionRequest is a single system + user instruction exchange.
type CompletionRequest struct {
	Operation    string
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
	JSONResponse bool
}

// Completion is the text returned by the model for one request.
type Completion struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// ModelClient describes a language model reachable over a request/response call.
type ModelClient interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

var (
	// ErrModelUnavailable marks network failures, timeouts, throttling and
	// provider-side errors. Callers may retry the whole operation.
	ErrModelUnavailable = errors.New("model provider unavailable")

	// ErrModelRequest marks requests the provider rejected outright.
	ErrModelRequest = errors.New("model request rejected")

	// ErrModelResponseFormat marks completions that are not a single JSON object.
	ErrModelResponseFormat = errors.New("model response is not a json object")
)

// ResponseError carries the raw model text alongside the failure reason.
type ResponseError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *ResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrModelResponseFormat.Error(), e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrModelResponseFormat.Error(), e.Reason)
}

func (e *ResponseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrModelResponseFormat}
	}
	return []error{ErrModelResponseFormat, e.Err}
}

// RawResponse returns the model text attached to err, if any.
func RawResponse(err error) string {
	var responseErr *ResponseError
	if errors.As(err, &responseErr) {
		return responseErr.Raw
	}
	return ""
}
