package llm

import "errors"

// Sentinel errors for provider failures. Providers wrap these with fmt.Errorf("%s: %w", msg, sentinel).
var (
	// ErrRateLimit indicates the provider throttled the request (retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrAuthFailed indicates the credentials were rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrTimeout indicates the request timed out (retryable).
	ErrTimeout = errors.New("request timeout")

	// ErrServer indicates a 5xx response (retryable).
	ErrServer = errors.New("provider server error")

	// ErrEmptyResponse indicates the provider answered without any choices.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrUnknownTemplate indicates a prompt template name is not registered.
	ErrUnknownTemplate = errors.New("unknown prompt template")

	// ErrUnknownProvider indicates an unsupported LLM_PROVIDER value.
	ErrUnknownProvider = errors.New("unknown llm provider")
)

// IsRetryable reports whether err is transient.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServer)
}
