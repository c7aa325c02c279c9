package contract

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrModelTimeout    = errors.New("model call timed out")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrCollaborator    = errors.New("collaborator action failed")
	ErrSessionConflict = errors.New("session conflict after retries")
)
