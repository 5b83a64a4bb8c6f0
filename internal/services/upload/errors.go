package upload

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindTimeout           ErrorKind = "timeout"
	KindNetwork           ErrorKind = "network"
	KindHTTP              ErrorKind = "http"
	KindMalformedResponse ErrorKind = "malformed_response"
)

// UploadError is the only error type Send returns.
type UploadError struct {
	Kind ErrorKind
	// Status and Body are set for KindHTTP.
	Status int
	Body   string
	// RawBody is set for KindMalformedResponse.
	RawBody string
	// Message is set for KindNetwork.
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return "upload timed out"
	case KindHTTP:
		if e.Body != "" {
			return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
		}
		return fmt.Sprintf("HTTP %d", e.Status)
	case KindMalformedResponse:
		return "malformed response body"
	case KindNetwork:
		return "network error: " + e.Message
	}
	return "upload failed"
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// UserMessage is the single human readable line shown for a failed analysis.
func (e *UploadError) UserMessage() string {
	switch e.Kind {
	case KindTimeout:
		return "The analysis service did not answer in time. Please try again."
	case KindHTTP:
		return fmt.Sprintf("The analysis service returned an error (HTTP %d). Please try again.", e.Status)
	case KindMalformedResponse:
		return "The analysis service returned an unreadable answer. Please try again."
	}
	return "Could not reach the analysis service. Check your connection and try again."
}

// KindOf returns the kind of an *UploadError anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var uerr *UploadError
	if errors.As(err, &uerr) {
		return uerr.Kind, true
	}
	return "", false
}

func IsTimeout(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindTimeout
}
