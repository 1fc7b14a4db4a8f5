package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrSeatUnavailable   = errors.New("seat unavailable")
	ErrStore             = errors.New("store error")
	ErrBookingFailed     = errors.New("booking failed")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrInvalidSeats      = errors.New("invalid seat selection")
	ErrPaymentDeclined   = errors.New("payment declined")
	ErrInvalidRoute      = errors.New("invalid route")
	ErrReferenceInUse    = errors.New("reference already holds seat claims")
	ErrBookingInProgress = errors.New("booking in progress")
)
