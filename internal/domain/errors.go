package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrMailDelivery marks a failure of the outbound mail transport. Any
	// mutation committed before the send stays committed; handlers surface
	// this as a 500 so the caller knows the notification did not go out.
	ErrMailDelivery = errors.New("mail delivery failed")
)
