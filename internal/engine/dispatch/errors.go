package dispatch

import "errors"

// Kind classifies a dispatch failure. The handler maps kinds to HTTP
// status codes; the engine maps them to log entries.
type Kind int

const (
	// KindAuthentication: unknown path or mismatched token. Never logged
	// against an endpoint, and the caller learns nothing about whether
	// the path exists.
	KindAuthentication Kind = iota
	// KindConfiguration: the target integration is missing or inactive.
	KindConfiguration
	// KindTranslation: the inbound payload lacks a required field.
	KindTranslation
	// KindDownstream: the integration call failed or timed out.
	KindDownstream
	// KindRetryState: retry requested on a non-failed log entry.
	KindRetryState
)

// Error is a classified dispatch failure. Message is safe to show the
// caller; Detail carries downstream error bodies and goes only into the
// dispatch log.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
}

func (e *Error) Error() string {
	return e.Message
}

// LogMessage is what gets persisted as the entry's response_message.
func (e *Error) LogMessage() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

// KindOf extracts the classification from an error chain.
func KindOf(err error) (Kind, bool) {
	var dispatchErr *Error
	if errors.As(err, &dispatchErr) {
		return dispatchErr.Kind, true
	}
	return 0, false
}

func authError(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func configError(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

func translationError(message string) *Error {
	return &Error{Kind: KindTranslation, Message: message}
}

func downstreamError(message, detail string) *Error {
	return &Error{Kind: KindDownstream, Message: message, Detail: detail}
}

func retryStateError(message string) *Error {
	return &Error{Kind: KindRetryState, Message: message}
}
