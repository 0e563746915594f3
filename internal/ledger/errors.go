package ledger

import "errors"

var (
	// ErrUnauthenticated - нет идентифицированного пользователя.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotFound covers an unresolved meal, a missing ledger entry and an empty catalog.
	ErrNotFound = errors.New("not found")
	// ErrPersistence wraps a rejected store write.
	ErrPersistence = errors.New("persistence failure")
	// ErrPartialFailure means the ledger entry was updated but the swap history
	// append failed. It is reported as fatal and never retried.
	ErrPartialFailure = errors.New("ledger updated but swap history append failed")
	// ErrConflict is returned after the read-modify-write cycle kept losing races.
	ErrConflict     = errors.New("concurrent update conflict")
	ErrInvalidInput = errors.New("invalid input")
)
