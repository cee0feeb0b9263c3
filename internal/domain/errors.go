package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies ingestion failures. The kind is the stable,
// user-visible part of an error; everything else is diagnostic detail.
type ErrorKind string

const (
	KindNetwork           ErrorKind = "network"
	KindTimeout           ErrorKind = "timeout"
	KindHTTPStatus        ErrorKind = "http_status"
	KindUnsupportedScheme ErrorKind = "unsupported_scheme"
	KindPayloadTooLarge   ErrorKind = "payload_too_large"
	KindParse             ErrorKind = "parse"
	KindIO                ErrorKind = "io"
	KindSuperseded        ErrorKind = "superseded"
	KindNotFound          ErrorKind = "not_found"
)

// IngestError is the tagged error value surfaced by the ingestion
// pipeline and the catalog store.
type IngestError struct {
	Kind   ErrorKind
	Status int    // HTTP status code, set only for KindHTTPStatus
	Detail string // optional human-readable context
	Err    error  // wrapped cause, may be nil
}

func (e *IngestError) Error() string {
	switch {
	case e.Kind == KindHTTPStatus:
		return fmt.Sprintf("%s: HTTP %d", e.Kind, e.Status)
	case e.Detail != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *IngestError) Unwrap() error { return e.Err }

// Is matches any IngestError with the same kind, so
// errors.Is(err, ErrSuperseded) works regardless of detail.
func (e *IngestError) Is(target error) bool {
	t, ok := target.(*IngestError)
	return ok && t.Kind == e.Kind
}

// Sentinels for kinds that carry no extra payload.
var (
	ErrSuperseded = &IngestError{Kind: KindSuperseded}
	ErrNotFound   = &IngestError{Kind: KindNotFound}
)

func NetworkErr(err error) *IngestError {
	return &IngestError{Kind: KindNetwork, Err: err}
}

func TimeoutErr(err error) *IngestError {
	return &IngestError{Kind: KindTimeout, Err: err}
}

func HTTPStatusErr(code int) *IngestError {
	return &IngestError{Kind: KindHTTPStatus, Status: code}
}

func UnsupportedSchemeErr(scheme string) *IngestError {
	return &IngestError{Kind: KindUnsupportedScheme, Detail: scheme}
}

func PayloadTooLargeErr(limit int64) *IngestError {
	return &IngestError{Kind: KindPayloadTooLarge, Detail: fmt.Sprintf("body exceeds %d bytes", limit)}
}

func ParseErr(err error) *IngestError {
	return &IngestError{Kind: KindParse, Err: err}
}

func IOErr(err error) *IngestError {
	return &IngestError{Kind: KindIO, Err: err}
}

// KindOf extracts the ErrorKind from err, walking the wrap chain.
// Unclassified errors report KindNetwork, the catch-all for anything
// that happened outside our own code.
func KindOf(err error) ErrorKind {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return KindNetwork
}
