package deltasnow

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input: empty series, bad date ordering,
	// negative depths, unknown units or gaps too long to interpolate.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks out-of-range model parameters.
	ErrConfiguration = errors.New("configuration error")
	// ErrInternalConsistency marks a snowpack state that violates the model's
	// physical bounds. It indicates a defect, not bad input.
	ErrInternalConsistency = errors.New("internal consistency error")
)

// ModelError carries one of the error kinds above together with a detail message.
type ModelError struct {
	Kind error
	Msg  string
}

func (e *ModelError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *ModelError) Unwrap() error { return e.Kind }

func validationf(format string, args ...any) error {
	return &ModelError{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func configurationf(format string, args ...any) error {
	return &ModelError{Kind: ErrConfiguration, Msg: fmt.Sprintf(format, args...)}
}

func consistencyf(format string, args ...any) error {
	return &ModelError{Kind: ErrInternalConsistency, Msg: fmt.Sprintf(format, args...)}
}
