package contract

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrInvalidStatus = errors.New("invalid purchase order status")
	ErrNotFound      = errors.New("record not found")
)

// RemoteError is a non-success response from the entity store. Detail is the
// response body and is shown to the user verbatim.
type RemoteError struct {
	Status int
	Detail string
}

func (e *RemoteError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("store returned status %d", e.Status)
	}
	return e.Detail
}
