package errors

import "errors"

var (
	ErrShareNotFound = errors.New("share not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalid       = errors.New("invalid")
	ErrInternal      = errors.New("internal")
)

func IsShareNotFound(err error) bool {
	return errors.Is(err, ErrShareNotFound)
}
