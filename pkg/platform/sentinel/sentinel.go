package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped) and
// services translate them into domain errors or provider codes:
//   - ErrNotFound: record does not exist
//   - ErrConflict: record already exists under a unique key
//   - ErrExpired: token or window has lapsed
//   - ErrAlreadyUsed: single-use token was consumed
//   - ErrUnavailable: backing service cannot be reached
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExpired     = errors.New("expired")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
)
