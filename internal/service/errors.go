package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks requests that are missing required fields or carry malformed values.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateEmail is returned when registering an email that already has an account.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrStoreNotConfigured is returned when a stored resume is requested without a bucket.
	ErrStoreNotConfigured = fmt.Errorf("%w: resume storage is not configured", ErrInvalidInput)
)

// Stage names the step of the match pipeline that failed.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageExtract   Stage = "extract"
	StageVectorize Stage = "vectorize"
)

// ProcessingError wraps a failure of the match pipeline with the stage it happened in.
type ProcessingError struct {
	Stage Stage
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s resume: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
