// Package repository defines the data access layer. The sentinel
// errors below are shared across repositories so that handlers can
// translate failure scenarios into HTTP statuses without inspecting
// driver-specific errors. Not-found is signalled with sql.ErrNoRows,
// matching the behavior of QueryRow.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state: a duplicate pending request for an allocation, an
// item that already has an active allocation, or a delete blocked by
// dependent records. Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrInvalidReference is returned when a create or update points at a
// row that does not exist or is not in a usable state, such as
// allocating a missing item or requesting a return on an allocation
// that is no longer active. Handlers translate this into HTTP 400.
var ErrInvalidReference = errors.New("invalid reference")

// ErrInvalidTransition is returned when a status change is not allowed
// from the record's current state, for example approving an already
// processed return request. Handlers translate this into HTTP 400.
var ErrInvalidTransition = errors.New("invalid status transition")
