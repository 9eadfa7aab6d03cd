// Package errors defines the error kinds shared by the store, the services
// and the HTTP layer. Callers wrap them with fmt.Errorf("%w: ...") and test
// with errors.Is.
package errors

import (
	"fmt"
)

var (
	ErrNotFound      = fmt.Errorf("not found")
	ErrDuplicateName = fmt.Errorf("duplicate name")
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrUnauthorized  = fmt.Errorf("unauthorized")
	ErrInvalidGrant  = fmt.Errorf("invalid grant")
	ErrUpload        = fmt.Errorf("upload failed")
	ErrPersistence   = fmt.Errorf("persistence failure")
)
