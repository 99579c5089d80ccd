package entity

// ErrorKind is the closed taxonomy of failures the pipeline and queue
// service react to. It is deliberately not a Go error type: the pipeline
// classifies whatever error an external client returned into one of these
// kinds and carries the original message separately as last_error.
type ErrorKind string

const (
	ErrorKindNotFound    ErrorKind = "not_found"
	ErrorKindForbidden   ErrorKind = "forbidden"
	ErrorKindFormat      ErrorKind = "format"
	ErrorKindNetwork     ErrorKind = "network"
	ErrorKindCancelled   ErrorKind = "cancelled"
	ErrorKindUnknown     ErrorKind = "unknown"
	ErrorKindConflict    ErrorKind = "conflict"
	ErrorKindValidation  ErrorKind = "validation"
	ErrorKindFatal       ErrorKind = "fatal"
)

// Retryable reports whether the retry policy should ever retry this kind,
// independent of attempts-remaining. Cancelled is handled specially by
// callers (no attempt increment at all) and is not "retryable" in the
// attempts-consuming sense, so it reports false here.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorKindNetwork, ErrorKindUnknown:
		return true
	default:
		return false
	}
}
