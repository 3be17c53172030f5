package errors

// Package errors provides sentinel errors for the protoc invocation stage,
// so callers can classify failures (missing toolchain vs. generator failure)
// while user-facing messages stay descriptive via wrapping.

import "errors"

var (
	// ErrToolchainNotFound indicates the Python gRPC toolchain is not
	// available in the current environment.
	ErrToolchainNotFound = errors.New("grpc toolchain not found")
	// ErrProtocFailed indicates the protoc invocation returned a non-zero
	// exit status.
	ErrProtocFailed = errors.New("protoc execution failed")
)
