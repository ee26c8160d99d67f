package splitter

import (
	"errors"
	"fmt"
)

var (
	// ErrModelInvocation indicates the model capability call itself failed (network, auth, quota).
	ErrModelInvocation = errors.New("model invocation failed")

	// ErrMalformedResponse indicates the model reply was not valid JSON or lacked required fields.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrValidation indicates the reply parsed but broke the structural contract.
	// It is a kind of ErrMalformedResponse.
	ErrValidation = fmt.Errorf("invalid model response: %w", ErrMalformedResponse)
)

func invocationError(err error) error {
	return fmt.Errorf("%w: %w", ErrModelInvocation, err)
}
