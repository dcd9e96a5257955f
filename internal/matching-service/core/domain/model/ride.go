package model

import (
	"time"

	"tujane/internal/matching-service/core/myerrors"
)

type RideStatus string

const (
	RideOpen    RideStatus = "OPEN"
	RideClaimed RideStatus = "CLAIMED"
	RideExpired RideStatus = "EXPIRED"
)

type Ride struct {
	ID            int64      `json:"-"`
	PublicID      string     `json:"public_id"`
	RiderIdentity string     `json:"rider_identity"`
	DriverID      *int64     `json:"driver_id,omitempty"`
	Pickup        string     `json:"pickup"`
	Destination   string     `json:"destination"`
	Passengers    int        `json:"passengers"`
	CreatedAt     time.Time  `json:"created_at"`
	ClaimedAt     *time.Time `json:"claimed_at,omitempty"`
}

// Status derives the ride state. A ride never leaves CLAIMED or EXPIRED.
func (r Ride) Status(now time.Time, window time.Duration) RideStatus {
	if r.DriverID != nil {
		return RideClaimed
	}
	if now.Sub(r.CreatedAt) > window {
		return RideExpired
	}
	return RideOpen
}

type RideDraft struct {
	PublicID      string
	RiderIdentity string
	Pickup        string
	Destination   string
	Passengers    int
	CreatedAt     time.Time
}

// ClaimAttempt carries everything the repository needs to decide a claim in
// a single conditional write.
type ClaimAttempt struct {
	PublicID       string
	DriverID       int64
	DriverCapacity int
	NotBefore      time.Time
	At             time.Time
}

type RideFilter struct {
	RiderIdentity string
	DriverID      *int64
	OpenSince     *time.Time
	Limit         int
}

// Reject explains why the conditional write for a left r untouched. It is
// only called after the write affected no row.
func (a ClaimAttempt) Reject(r Ride) error {
	switch {
	case r.DriverID != nil:
		return myerrors.NewClaimConflict(a.PublicID, myerrors.ReasonAlreadyClaimed)
	case r.CreatedAt.Before(a.NotBefore):
		return myerrors.NewClaimConflict(a.PublicID, myerrors.ReasonExpired)
	case r.Passengers > a.DriverCapacity:
		return myerrors.NewClaimConflict(a.PublicID, myerrors.ReasonInsufficientCapacity)
	default:
		// the ride changed between the write and this read
		return myerrors.NewClaimConflict(a.PublicID, myerrors.ReasonAlreadyClaimed)
	}
}
