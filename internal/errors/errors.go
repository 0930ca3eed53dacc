// Package errors defines the nine distinct provider-session/supervisor
// error kinds and a Classify helper that recovers a kind from an arbitrary
// error for display at the CLI/HTTP boundary. The core itself never matches
// on strings internally — it returns a *KindError directly, with the context
// carried in its message.
package errors

import (
	"errors"
	"strings"
)

// Kind identifies which of the nine error categories an error belongs to.
type Kind string

const (
	NotConfigured  Kind = "not_configured"
	SpawnError     Kind = "spawn_error"
	HandshakeError Kind = "handshake_error"
	DiscoveryError Kind = "discovery_error"
	NotLoaded      Kind = "not_loaded"
	ProviderDead   Kind = "provider_dead"
	Timeout        Kind = "timeout"
	ProtocolError  Kind = "protocol_error"
	RemoteError    Kind = "remote_error"
)

// KindError is a sentinel error carrying one of the nine Kinds plus a
// message. Supervisor and session operations return one of these on
// failure.
type KindError struct {
	Kind    Kind
	Message string
}

func (e *KindError) Error() string {
	return e.Message
}

// New constructs a KindError.
func New(kind Kind, message string) *KindError {
	return &KindError{Kind: kind, Message: message}
}

// As reports whether err (or something it wraps) is a *KindError, and
// returns it.
func As(err error) (*KindError, bool) {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke, true
	}
	return nil, false
}

// ClassifiedError is the CLI/HTTP-facing rendering of an error: its kind, a
// message, and a human hint.
type ClassifiedError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

func (e ClassifiedError) Error() string {
	return e.Message
}

// Classify recovers a ClassifiedError from any error. If err already wraps a
// *KindError, its Kind is used directly; otherwise the message is pattern
// matched as a fallback for errors raised outside this module's control
// (e.g. a raw net/http transport error reaching the CLI).
func Classify(err error) ClassifiedError {
	if err == nil {
		return ClassifiedError{}
	}

	if ke, ok := As(err); ok {
		return ClassifiedError{
			Kind:    ke.Kind,
			Message: ke.Message,
			Hint:    hintFor(ke.Kind),
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not configured"):
		return ClassifiedError{Kind: NotConfigured, Message: err.Error(), Hint: hintFor(NotConfigured)}
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "econnrefused"):
		return ClassifiedError{Kind: ProviderDead, Message: err.Error(), Hint: hintFor(ProviderDead)}
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return ClassifiedError{Kind: Timeout, Message: err.Error(), Hint: hintFor(Timeout)}
	case strings.Contains(msg, "not loaded"):
		return ClassifiedError{Kind: NotLoaded, Message: err.Error(), Hint: hintFor(NotLoaded)}
	default:
		return ClassifiedError{Kind: ProtocolError, Message: err.Error(), Hint: hintFor(ProtocolError)}
	}
}

func hintFor(k Kind) string {
	switch k {
	case NotConfigured:
		return "Add the provider to mcpServers in the configuration file."
	case SpawnError:
		return "Check that the provider's command is installed and on PATH."
	case HandshakeError:
		return "The provider exited or returned an error during initialize; check its stderr."
	case DiscoveryError:
		return "The provider's tools/list response was malformed."
	case NotLoaded:
		return "Load the provider first, or enable auto-load-on-call."
	case ProviderDead:
		return "The provider process exited; reload it."
	case Timeout:
		return "The provider did not respond within the call deadline."
	case ProtocolError:
		return "The provider's response could not be framed as JSON-RPC."
	case RemoteError:
		return "The provider returned a JSON-RPC error object."
	default:
		return ""
	}
}
