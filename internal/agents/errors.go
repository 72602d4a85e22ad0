package agents

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrGeneration matches every *GenerationError.
	ErrGeneration = errors.New("content generation failed")

	// ErrUnsupportedTask is returned for task types that produce no content artifact.
	ErrUnsupportedTask = errors.New("task type does not produce content")

	// ErrInvalidInput is returned for requests that fail validation.
	ErrInvalidInput = errors.New("invalid input")
)

// GenerationError reports a failed generator call. The task it belongs to has
// already been moved to failed when this error is returned.
type GenerationError struct {
	TaskID uuid.UUID
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for task %s: %v", e.TaskID, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	return []error{ErrGeneration, e.Err}
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
