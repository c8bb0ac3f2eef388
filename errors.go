package docchat

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request or message failed validation.
	ErrValidation = errors.New("validation error")

	// ErrEmptyQuery indicates a submit with no query text. No session is
	// started and no messages are appended.
	ErrEmptyQuery = errors.New("empty query")

	// ErrSessionActive indicates a submit while a stream is still in
	// progress for the same conversation.
	ErrSessionActive = errors.New("session already streaming")

	// ErrMessageSealed indicates an attempt to mutate a terminal message.
	ErrMessageSealed = errors.New("message is sealed")

	// ErrNoActiveDocument indicates the requested document does not exist.
	ErrNoActiveDocument = errors.New("no active document")

	// ErrUnsupportedDocument indicates a stored document whose text cannot
	// be extracted by this process (e.g. PDF).
	ErrUnsupportedDocument = errors.New("unsupported document type")

	// ErrUpstreamUnavailable indicates the upstream connection could not be
	// established. Nothing has been forwarded; the request is safe to retry.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamRejected indicates the upstream answered the request with
	// a client error. Sending the same request again will not help.
	ErrUpstreamRejected = errors.New("upstream rejected request")

	// ErrUpstreamAborted indicates the upstream connection dropped, or went
	// idle, before the stream completed. Partial text may have been delivered.
	ErrUpstreamAborted = errors.New("upstream aborted")

	// ErrTruncatedStream indicates the transport ended in the middle of a
	// multi-byte character.
	ErrTruncatedStream = errors.New("truncated stream")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")
)

// Retryable reports whether err is safe to retry. Only failures that
// happened before any byte was forwarded qualify.
func Retryable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}
