package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrLineNotFound indicates the cart has no line for the given product/variant.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrInvalidQuantity indicates a negative quantity was requested.
	ErrInvalidQuantity = errors.New("quantity must not be negative")
	// ErrOutOfStock indicates a quantity change on a variation whose known stock is 0.
	ErrOutOfStock = errors.New("variation is out of stock")
	// ErrSubmitInProgress is returned when a checkout is submitted while another is in flight.
	ErrSubmitInProgress = errors.New("checkout submission already in progress")
	// ErrAlreadySubmitted is returned when a draft that already produced an order is submitted again.
	ErrAlreadySubmitted = errors.New("checkout already submitted")
	// ErrUnknownRegion indicates a region outside the shipping rate table.
	ErrUnknownRegion = errors.New("unknown shipping region")
	// ErrRatesUnavailable indicates the shipping rate table has not been fetched.
	ErrRatesUnavailable = errors.New("shipping rates unavailable")
	// ErrNotModified is returned by conditional fetches when the resource is unchanged.
	ErrNotModified = errors.New("not modified")
)

// ErrorKind classifies failures for recovery and presentation.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindRemoteValidation
	KindNotFound
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRemoteValidation:
		return "remote_validation"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// FieldError is one field-scoped message as reported by a collaborator.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// RemoteError is the failure result of a collaborator call.
type RemoteError struct {
	Kind    ErrorKind
	Op      string
	Status  int
	Message string
	Fields  []FieldError
	Err     error
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Op, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// KindOf classifies any error returned by the core.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	var ve ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrLineNotFound):
		return KindNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	return KindUnknown
}

// ValidationError carries client-side field errors.
type ValidationError struct {
	Fields FieldErrorMap
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}
