package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	ErrTransient = errors.New("transient upstream failure")
	ErrPermanent = errors.New("permanent upstream failure")

	// ErrClassificationAmbiguous never reaches callers; the router converts
	// it into a forced default decision.
	ErrClassificationAmbiguous = errors.New("classification ambiguous")
	ErrUnknownDestination      = errors.New("unknown destination")
	ErrHandlerFailure          = errors.New("handler failed")
	ErrPersistence             = errors.New("session persistence failed")
	ErrConfiguration           = errors.New("invalid configuration")
	ErrCancelled               = errors.New("turn cancelled")
)
