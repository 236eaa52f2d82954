package service

import (
	"errors"
	"fmt"
	"strings"

	"echocore/constant"
)

var (
	ErrFileTooLarge         = errors.New("file size exceeds limit")
	ErrUnsupportedFileType  = errors.New("unsupported file type, upload a valid audio file")
	ErrSessionNotFound      = errors.New("upload session not found")
	ErrChunkIndexOutOfRange = errors.New("chunk index out of range")
	ErrJobNotFound          = errors.New("job not found")
	ErrJobNotCompleted      = errors.New("job is not completed")
	ErrEmptyResult          = errors.New("recognition result is empty")
)

// IncompleteUploadError reports a completion request made before every
// chunk arrived.
type IncompleteUploadError struct {
	Uploaded int
	Expected int
}

func (e *IncompleteUploadError) Error() string {
	return fmt.Sprintf("upload incomplete: %d/%d chunks received", e.Uploaded, e.Expected)
}

// AssemblyError is a fatal I/O failure while merging chunks. It surfaces
// to the completion caller since no job exists yet at that point.
type AssemblyError struct {
	Err error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("failed to assemble chunks: %v", e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

// InvalidTransitionError reports a cancellation requested on a job that
// already reached a terminal state.
type InvalidTransitionError struct {
	Status constant.JobStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("job cannot be canceled in state %s", e.Status)
}

// ModelResolutionError names the model references that could not be
// resolved and the roots that were searched.
type ModelResolutionError struct {
	Missing []string
	Roots   []string
}

func (e *ModelResolutionError) Error() string {
	return fmt.Sprintf(
		"offline models not found (local directories only, no downloads): %s; searched roots: %s",
		strings.Join(e.Missing, "; "),
		strings.Join(e.Roots, ", "),
	)
}

// ModelLoadError wraps an engine construction failure after the one
// allowed option-translation retry.
type ModelLoadError struct {
	Err error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("failed to load ASR model: %v", e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}
