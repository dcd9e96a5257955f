package services

import (
	"context"
	"errors"
	"time"

	"tujane/internal/matching-service/core/myerrors"
	"tujane/internal/matching-service/core/ports"
	"tujane/internal/mylogger"
)

// RiderService runs the rider conversation: it picks the active request,
// feeds the text to Transition and hands confirmed requests to matching.
type RiderService struct {
	mylog     mylogger.Logger
	store     ports.IRequestStore
	matching  ports.IMatchingService
	messenger ports.IMessenger
	now       func() time.Time
}

var _ ports.IRiderService = (*RiderService)(nil)

func NewRiderService(
	mylog mylogger.Logger,
	store ports.IRequestStore,
	matching ports.IMatchingService,
	messenger ports.IMessenger,
) *RiderService {
	return &RiderService{
		mylog:     mylog,
		store:     store,
		matching:  matching,
		messenger: messenger,
		now:       time.Now,
	}
}

func (rs *RiderService) HandleMessage(ctx context.Context, rider, text string) error {
	log := rs.mylog.Action("HandleRiderMessage").With("rider", rider)

	req := rs.store.GetActive(rider)
	if req == nil {
		created, err := rs.store.Create(rider)
		if errors.Is(err, myerrors.ErrCapacity) {
			log.Warn("rider has too many open requests")
			return rs.send(ctx, rider, msgTooManyAttempts)
		}
		if err != nil {
			log.Error("cannot create request", err)
			return err
		}
		log.Info("request created", "request_id", created.ID)
		return rs.send(ctx, rider, msgWelcome)
	}

	log = log.With("request_id", req.ID, "state", req.State)

	t := Transition(*req, text)
	if !t.Confirm && t.Next == req.State {
		log.Debug("input did not advance the conversation", "error", myerrors.ErrValidation.Error())
	}
	req.Apply(t)

	if !t.Confirm {
		if t.Reply == "" {
			return nil
		}
		return rs.send(ctx, rider, t.Reply)
	}

	req.Details.ConfirmedAt = rs.now()
	ride, err := rs.matching.Publish(ctx, rider, req.Details)
	// The request is closed whether or not publishing worked; the rider has
	// already been told.
	rs.store.Remove(rider, req.ID)
	if err != nil {
		return err
	}
	req.Details.RideID = ride.PublicID

	log.Info("request confirmed", "ride", req.Details.RideID, "passengers", req.Details.Passengers)
	return nil
}

func (rs *RiderService) send(ctx context.Context, rider, text string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := rs.messenger.Send(ctx, rider, text, nil); err != nil {
		rs.mylog.Action("SendRiderReply").Error("cannot send reply", err, "rider", rider)
		return myerrors.Collaborator("send reply", err)
	}
	return nil
}
