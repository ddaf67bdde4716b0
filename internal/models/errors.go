package models

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	ErrNone ErrorKind = iota
	NetworkUnavailable
	Decoding
	Unauthorized
)

func (k ErrorKind) String() string {
	switch k {
	case NetworkUnavailable:
		return "network_unavailable"
	case Decoding:
		return "decoding"
	case Unauthorized:
		return "unauthorized"
	default:
		return ""
	}
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// TransportError is the only error kind a fetch surfaces.
type TransportError struct {
	Kind ErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "transport: " + e.Kind.String()
	}
	return fmt.Sprintf("transport: %s: %s", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func NewTransportError(kind ErrorKind, err error) *TransportError {
	return &TransportError{Kind: kind, Err: err}
}

// KindOf classifies err. Anything that is not a TransportError counts as the
// network being unavailable.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrNone
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind
	}
	return NetworkUnavailable
}
