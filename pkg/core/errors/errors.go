// ============================================================================
// bankprobe - Bank API integration harness
// ============================================================================
//
// Package:     errors
// Description: Error taxonomy shared by the channel, catalog and CLI
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies a failure by the layer that produced it
type Kind string

const (
	// KindConfiguration covers missing or malformed startup material
	KindConfiguration Kind = "configuration"

	// KindTransport covers channel open/close failures
	KindTransport Kind = "transport"

	// KindRemote covers a single failed remote operation
	KindRemote Kind = "remote"
)

// ConfigurationError reports invalid run configuration or credential material.
// It is fatal: no operation is attempted once one is raised.
type ConfigurationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", msg, e.Cause)
	}
	return "configuration error: " + msg
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

// Kind returns KindConfiguration
func (e *ConfigurationError) Kind() Kind { return KindConfiguration }

// TransportError reports that the channel could not be opened, used or
// closed cleanly.
type TransportError struct {
	Target  string
	Op      string // "open", "invoke", "close"
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	prefix := fmt.Sprintf("transport error [%s %s]: %s", e.Op, e.Target, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Cause)
	}
	return prefix
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Kind returns KindTransport
func (e *TransportError) Kind() Kind { return KindTransport }

// GRPCStatus lets status.FromError and status.Code see a transport failure
// as Unavailable.
func (e *TransportError) GRPCStatus() *status.Status {
	return status.New(codes.Unavailable, e.Error())
}

// RemoteError reports the failure of one remote operation
type RemoteError struct {
	Operation string
	Code      codes.Code
	Message   string
	Cause     error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s failed: code=%s desc=%s", e.Operation, e.Code, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Cause }

// Kind returns KindRemote
func (e *RemoteError) Kind() Kind { return KindRemote }

// NewConfigurationError creates a ConfigurationError for a field
func NewConfigurationError(field, message string, cause error) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message, Cause: cause}
}

// NewTransportError creates a TransportError for the given channel operation
func NewTransportError(op, target, message string, cause error) *TransportError {
	return &TransportError{Op: op, Target: target, Message: message, Cause: cause}
}

// FromRPC normalizes the error returned by an RPC into a RemoteError.
// Transport errors raised by the channel itself are returned unchanged so the
// caller still sees the layer that failed.
func FromRPC(operation string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if stderrors.As(err, &te) {
		return te
	}
	var re *RemoteError
	if stderrors.As(err, &re) {
		return re
	}
	st, ok := status.FromError(err)
	if !ok {
		return &RemoteError{Operation: operation, Code: codes.Unknown, Message: err.Error(), Cause: err}
	}
	return &RemoteError{Operation: operation, Code: st.Code(), Message: st.Message(), Cause: err}
}

// IsConfiguration reports whether err is a ConfigurationError
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return stderrors.As(err, &ce)
}

// IsTransport reports whether err is a TransportError
func IsTransport(err error) bool {
	var te *TransportError
	return stderrors.As(err, &te)
}

// IsRemote reports whether err is a RemoteError
func IsRemote(err error) bool {
	var re *RemoteError
	return stderrors.As(err, &re)
}

// KindOf returns the kind of err, or "" for foreign errors
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case IsConfiguration(err):
		return KindConfiguration
	case IsTransport(err):
		return KindTransport
	case IsRemote(err):
		return KindRemote
	default:
		return ""
	}
}

// Code returns the gRPC status code carried by err
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var re *RemoteError
	if stderrors.As(err, &re) {
		return re.Code
	}
	return status.Code(err)
}
