package models

import (
	"errors"
	"fmt"
)

// Error kinds for the analysis pipeline. Handlers map them to HTTP statuses;
// everything else propagates them with errors.Is/As.
var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrGeneration          = errors.New("generation failed")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// GenerationError is surfaced after the LLM retry budget is exhausted or its
// output stays undecodable. Retryable hints the client that a later retry may
// succeed.
type GenerationError struct {
	Stage     string
	Retryable bool
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return ErrGeneration }

type UpstreamError struct {
	Upstream string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Upstream, e.Err)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstreamUnavailable }
