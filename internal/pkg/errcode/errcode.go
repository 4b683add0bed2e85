package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthorized
	ErrInvalid
	ErrShareNotFound
	ErrTooMany
	ErrInternal
)
