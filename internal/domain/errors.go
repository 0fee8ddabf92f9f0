// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist on the ledger
// or has not been observed by the last refresh.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates caller input failed validation.
var ErrValidation = errors.New("validation error")
