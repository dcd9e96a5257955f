package model

import "time"

type RequestState string

const (
	StateIdle                 RequestState = "IDLE"
	StateAwaitingPickup       RequestState = "AWAITING_PICKUP"
	StateAwaitingDestination  RequestState = "AWAITING_DESTINATION"
	StateAwaitingPassengers   RequestState = "AWAITING_PASSENGERS"
	StateAwaitingConfirmation RequestState = "AWAITING_CONFIRMATION"
)

// RideDetails is filled in state order while the rider answers prompts.
type RideDetails struct {
	Pickup        string
	Destination   string
	Passengers    int
	RideID        string
	RiderIdentity string
	ConfirmedAt   time.Time
}

// RiderRequest is one in-flight conversation of a rider.
type RiderRequest struct {
	ID        string
	State     RequestState
	Details   RideDetails
	CreatedAt time.Time
}

// DetailsPatch holds the fields a transition sets. Nil fields are left as is.
type DetailsPatch struct {
	Pickup      *string
	Destination *string
	Passengers  *int
}

// Transition is the outcome of feeding one inbound text to a request.
type Transition struct {
	Next    RequestState
	Patch   DetailsPatch
	Reply   string
	Confirm bool
}

// Apply moves the request to t.Next and copies the patched fields.
func (r *RiderRequest) Apply(t Transition) {
	if t.Patch.Pickup != nil {
		r.Details.Pickup = *t.Patch.Pickup
	}
	if t.Patch.Destination != nil {
		r.Details.Destination = *t.Patch.Destination
	}
	if t.Patch.Passengers != nil {
		r.Details.Passengers = *t.Patch.Passengers
	}
	r.State = t.Next
}
