package services

import (
	"regexp"
	"strconv"
	"strings"

	"tujane/internal/matching-service/core/domain/model"
)

const (
	affirmativeToken = "ego"
	negativeToken    = "oya"
)

var passengersPattern = regexp.MustCompile(`^[1-6]$`)

// Transition decides what one inbound text does to a request. It performs no
// I/O; the caller applies the result and sends the reply.
//
// Invalid input keeps the state and details untouched and repeats the prompt.
// A negative confirmation goes back to the pickup prompt without clearing the
// collected details; they are overwritten as the rider answers again.
func Transition(req model.RiderRequest, text string) model.Transition {
	stay := model.Transition{Next: req.State}

	switch req.State {
	case model.StateAwaitingPickup:
		pickup := strings.TrimSpace(text)
		if pickup == "" {
			stay.Reply = msgAskPickup
			return stay
		}
		return model.Transition{
			Next:  model.StateAwaitingDestination,
			Patch: model.DetailsPatch{Pickup: &pickup},
			Reply: msgAskDestination,
		}

	case model.StateAwaitingDestination:
		destination := strings.TrimSpace(text)
		if destination == "" {
			stay.Reply = msgAskDestination
			return stay
		}
		return model.Transition{
			Next:  model.StateAwaitingPassengers,
			Patch: model.DetailsPatch{Destination: &destination},
			Reply: msgAskPassengers,
		}

	case model.StateAwaitingPassengers:
		count := strings.TrimSpace(text)
		if !passengersPattern.MatchString(count) {
			stay.Reply = msgAskPassengers
			return stay
		}
		passengers, _ := strconv.Atoi(count)
		return model.Transition{
			Next:  model.StateAwaitingConfirmation,
			Patch: model.DetailsPatch{Passengers: &passengers},
			Reply: summaryPrompt(req.Details.Pickup, req.Details.Destination, passengers),
		}

	case model.StateAwaitingConfirmation:
		switch {
		case strings.EqualFold(text, affirmativeToken):
			return model.Transition{Next: req.State, Confirm: true}
		case strings.EqualFold(text, negativeToken):
			return model.Transition{Next: model.StateAwaitingPickup, Reply: msgAskPickup}
		default:
			stay.Reply = summaryPrompt(req.Details.Pickup, req.Details.Destination, req.Details.Passengers)
			return stay
		}
	}

	// IDLE and unknown states are never selected as active; ignore the text.
	return stay
}
