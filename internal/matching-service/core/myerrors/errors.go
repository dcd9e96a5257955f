package myerrors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("invalid input")
	ErrCapacity      = errors.New("too many open requests")
	ErrClaimConflict = errors.New("ride cannot be claimed")
	ErrCollaborator  = errors.New("collaborator failure")

	ErrRideNotFound   = errors.New("ride not found")
	ErrDriverNotFound = errors.New("driver not found")
	ErrNoBridge       = errors.New("no messaging bridge connected")
	ErrInboxClosed    = errors.New("inbox is closed")
)

type ClaimReason string

const (
	ReasonAlreadyClaimed       ClaimReason = "already_claimed"
	ReasonExpired              ClaimReason = "expired"
	ReasonInsufficientCapacity ClaimReason = "insufficient_capacity"
	ReasonUnknownRide          ClaimReason = "unknown_ride"
	ReasonUnknownDriver        ClaimReason = "unknown_driver"
)

// ClaimConflictError tells the claiming driver why the ride was not given.
type ClaimConflictError struct {
	PublicID string
	Reason   ClaimReason
}

func (e *ClaimConflictError) Error() string {
	return fmt.Sprintf("claim %s: %s", e.PublicID, e.Reason)
}

func (e *ClaimConflictError) Unwrap() error {
	return ErrClaimConflict
}

func NewClaimConflict(publicID string, reason ClaimReason) error {
	return &ClaimConflictError{PublicID: publicID, Reason: reason}
}

// Collaborator marks err as a repository or transport failure.
func Collaborator(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrCollaborator, err)
}
