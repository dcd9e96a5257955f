package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"tujane/internal/matching-service/core/domain/model"
	"tujane/internal/matching-service/core/myerrors"
	"tujane/internal/matching-service/core/ports"
	"tujane/internal/mylogger"
)

const opTimeout = 15 * time.Second

type MatchingService struct {
	mylog        mylogger.Logger
	rides        ports.IRidesRepo
	drivers      ports.IDriversRepo
	messenger    ports.IMessenger
	codes        *CodeGenerator
	driversGroup string
	claimWindow  time.Duration
	now          func() time.Time
}

var _ ports.IMatchingService = (*MatchingService)(nil)

func NewMatchingService(
	mylog mylogger.Logger,
	rides ports.IRidesRepo,
	drivers ports.IDriversRepo,
	messenger ports.IMessenger,
	codes *CodeGenerator,
	driversGroup string,
	claimWindow time.Duration,
) *MatchingService {
	return &MatchingService{
		mylog:        mylog,
		rides:        rides,
		drivers:      drivers,
		messenger:    messenger,
		codes:        codes,
		driversGroup: driversGroup,
		claimWindow:  claimWindow,
		now:          time.Now,
	}
}

// Publish persists a confirmed request as a ride and offers it to the
// drivers group. The rider is told about the outcome either way. A ride
// whose offer could not be broadcast stays persisted and claimable.
func (ms *MatchingService) Publish(ctx context.Context, rider string, details model.RideDetails) (model.Ride, error) {
	log := ms.mylog.Action("PublishRide").With("rider", rider)

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	code := ms.codes.Next(ctx)
	log = log.With("ride", code)

	ride, err := ms.rides.CreateRide(ctx, model.RideDraft{
		PublicID:      code,
		RiderIdentity: rider,
		Pickup:        details.Pickup,
		Destination:   details.Destination,
		Passengers:    details.Passengers,
		CreatedAt:     ms.now(),
	})
	if err != nil {
		log.Error("cannot persist ride", err)
		reply(ctx, log, ms.messenger, rider, msgCreateFailed, nil)
		return model.Ride{}, myerrors.Collaborator("create ride", err)
	}

	offer := driverOffer(ride.Pickup, ride.Destination, ride.Passengers, ride.PublicID)
	if err := ms.messenger.Broadcast(ctx, ms.driversGroup, offer); err != nil {
		log.Error("cannot broadcast ride offer", err)
		reply(ctx, log, ms.messenger, rider, msgBroadcastFailed, nil)
		return ride, myerrors.Collaborator("broadcast offer", err)
	}

	if err := ms.messenger.Send(ctx, rider, riderConfirmation(ride.PublicID), nil); err != nil {
		log.Error("cannot confirm ride to rider", err)
		return ride, myerrors.Collaborator("confirm ride", err)
	}

	log.Info("ride published", "passengers", ride.Passengers)
	return ride, nil
}

// Claim hands the ride named by text to the driver if it is still open, the
// claim window has not passed and the car is large enough. The decision and
// the assignment are one conditional write in the repository, so concurrent
// claims of one ride produce a single winner.
func (ms *MatchingService) Claim(ctx context.Context, driverIdentity, text string) (model.Ride, error) {
	publicID := strings.ToUpper(strings.TrimSpace(text))
	log := ms.mylog.Action("ClaimRide").With("driver", driverIdentity, "ride", publicID)

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	driver, err := ms.drivers.GetByPhone(ctx, model.PhoneOf(driverIdentity))
	if errors.Is(err, myerrors.ErrDriverNotFound) {
		log.Info("claim from unregistered driver")
		reply(ctx, log, ms.messenger, driverIdentity, claimRejected(publicID), nil)
		return model.Ride{}, myerrors.NewClaimConflict(publicID, myerrors.ReasonUnknownDriver)
	}
	if err != nil {
		log.Error("cannot look up driver", err)
		reply(ctx, log, ms.messenger, driverIdentity, claimFailed(publicID), nil)
		return model.Ride{}, myerrors.Collaborator("get driver", err)
	}

	now := ms.now()
	ride, err := ms.rides.ClaimRide(ctx, model.ClaimAttempt{
		PublicID:       publicID,
		DriverID:       driver.ID,
		DriverCapacity: driver.Capacity,
		NotBefore:      now.Add(-ms.claimWindow),
		At:             now,
	})
	if errors.Is(err, myerrors.ErrRideNotFound) {
		err = myerrors.NewClaimConflict(publicID, myerrors.ReasonUnknownRide)
	}

	var conflict *myerrors.ClaimConflictError
	switch {
	case errors.As(err, &conflict):
		log.Info("claim rejected", "reason", conflict.Reason)
		reply(ctx, log, ms.messenger, driverIdentity, claimRejected(publicID), nil)
		return model.Ride{}, err
	case err != nil:
		log.Error("cannot claim ride", err)
		reply(ctx, log, ms.messenger, driverIdentity, claimFailed(publicID), nil)
		return model.Ride{}, myerrors.Collaborator("claim ride", err)
	}

	log.Info("ride claimed", "driver_id", driver.ID)

	// The assignment stands even if a notification below fails.
	notifyErr := errors.Join(
		ms.messenger.Send(ctx, driverIdentity,
			driverWon(ride.PublicID, model.PhoneOf(ride.RiderIdentity)), nil),
		ms.messenger.Send(ctx, ride.RiderIdentity,
			riderMatched(ride.PublicID, driver.FullName, driver.Phone, driver.Plate, driver.CarType),
			driver.PhotoAttachment()),
		ms.messenger.Broadcast(ctx, ms.driversGroup,
			rideClaimedNotice(ride.PublicID, driver.Phone)),
	)
	if notifyErr != nil {
		log.Error("cannot complete match notifications", notifyErr)
		reply(ctx, log, ms.messenger, driverIdentity, claimFailed(publicID), nil)
		return ride, myerrors.Collaborator("notify match", notifyErr)
	}

	return ride, nil
}

func reply(ctx context.Context, log mylogger.Logger, messenger ports.IMessenger, to, text string, attachment *model.Attachment) {
	if err := messenger.Send(ctx, to, text, attachment); err != nil {
		log.Error("cannot send reply", err, "to", to)
	}
}
