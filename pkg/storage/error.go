package storage

import "errors"

// NotFoundError is returned when a key doesn't exist in a namespace.
type NotFoundError struct {
	Namespace Namespace
	Key       string
}

func (e NotFoundError) Error() string {
	if e.Key == "" {
		return "item not found"
	}

	return "item not found: " + e.Namespace.String() + "/" + e.Key
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
