// Package apperr defines the classified errors returned by the board and auth
// services. Each error carries a Kind, which decides the HTTP status, and a
// Code that users can quote when reporting a problem.
//
// # Codes
//
//	VAL001  validation     missing or invalid field
//	VAL002  validation     identifier is not an integer
//	VAL003  validation     bad file or file type
//	NF001   not found      unknown clue or connection
//	NF002   not found      connection references a missing clue
//	CON001  conflict       connection already exists for this ordered pair
//	DOC001  document       import file is not valid JSON
//	DOC002  document       import file has the wrong shape
//	AUTH001 auth           invalid credentials
//	AUTH002 auth           login required
//	RATE001 rate limit     too many requests
//	RATE002 rate limit     all transfer slots busy
//	ERR000  internal       anything else
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindMalformedDocument
	KindInvalidDocument
	KindUnauthenticated
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindMalformedDocument:
		return "malformed_document"
	case KindInvalidDocument:
		return "invalid_document"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Error codes.
const (
	CodeValidation       = "VAL001"
	CodeBadIdentifier    = "VAL002"
	CodeBadFile          = "VAL003"
	CodeNotFound         = "NF001"
	CodeReferenceMissing = "NF002"
	CodeDuplicate        = "CON001"
	CodeMalformedJSON    = "DOC001"
	CodeInvalidFormat    = "DOC002"
	CodeBadCredentials   = "AUTH001"
	CodeLoginRequired    = "AUTH002"
	CodeRateLimited      = "RATE001"
	CodeBusy             = "RATE002"
	CodeInternal         = "ERR000"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports a rejected field or value.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: msg}
}

// Validationf is Validation with formatting.
func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// BadIdentifier reports an identifier that is not an integer.
func BadIdentifier(msg string) *Error {
	return &Error{Kind: KindValidation, Code: CodeBadIdentifier, Message: msg}
}

// BadFile reports a missing upload or a disallowed file type.
func BadFile(msg string) *Error {
	return &Error{Kind: KindValidation, Code: CodeBadFile, Message: msg}
}

// NotFound reports an unknown record.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: msg}
}

// ReferenceMissing reports a connection endpoint that does not resolve.
func ReferenceMissing(msg string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeReferenceMissing, Message: msg}
}

// Duplicate reports an ordered connection pair that already exists.
func Duplicate(msg string) *Error {
	return &Error{Kind: KindConflict, Code: CodeDuplicate, Message: msg}
}

// MalformedJSON reports an import file that does not parse.
func MalformedJSON(err error) *Error {
	return &Error{Kind: KindMalformedDocument, Code: CodeMalformedJSON, Message: "malformed JSON", Err: err}
}

// InvalidFormat reports an import document with the wrong top-level shape.
func InvalidFormat(msg string) *Error {
	return &Error{Kind: KindInvalidDocument, Code: CodeInvalidFormat, Message: msg}
}

// Unauthenticated reports a failed login or a missing session.
func Unauthenticated(code, msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Code: code, Message: msg}
}

// Busy reports that a bounded resource had no free slot in time.
func Busy(msg string) *Error {
	return &Error{Kind: KindRateLimited, Code: CodeBusy, Message: msg}
}

// Internal wraps an unexpected failure. The wrapped error text is what the
// import endpoint reports back.
func Internal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: msg, Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal when unclassified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}
