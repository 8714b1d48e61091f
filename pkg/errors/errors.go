package errors

import "errors"

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")
	ErrMatchNotActive = errors.New("match not active")
	ErrInvalidAction  = errors.New("invalid action")
)
