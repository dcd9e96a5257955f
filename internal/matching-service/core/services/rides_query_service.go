package services

import (
	"context"
	"strings"
	"time"

	"tujane/internal/matching-service/core/domain/model"
	"tujane/internal/matching-service/core/ports"
	"tujane/internal/mylogger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type RidesQueryService struct {
	mylog       mylogger.Logger
	rides       ports.IRidesRepo
	drivers     ports.IDriversRepo
	claimWindow time.Duration
	now         func() time.Time
}

var _ ports.IRidesQueryService = (*RidesQueryService)(nil)

func NewRidesQueryService(mylog mylogger.Logger, rides ports.IRidesRepo, drivers ports.IDriversRepo, claimWindow time.Duration) *RidesQueryService {
	return &RidesQueryService{
		mylog:       mylog,
		rides:       rides,
		drivers:     drivers,
		claimWindow: claimWindow,
		now:         time.Now,
	}
}

func (qs *RidesQueryService) GetRide(ctx context.Context, publicID string) (model.Ride, model.RideStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ride, err := qs.rides.GetByPublicID(ctx, strings.ToUpper(publicID))
	if err != nil {
		return model.Ride{}, "", err
	}
	return ride, ride.Status(qs.now(), qs.claimWindow), nil
}

// ListRides applies the filter. An open-only listing starts at the claim
// window.
func (qs *RidesQueryService) ListRides(ctx context.Context, filter model.RideFilter) ([]model.Ride, error) {
	log := qs.mylog.Action("ListRides")

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}
	if filter.OpenSince != nil {
		since := qs.now().Add(-qs.claimWindow)
		filter.OpenSince = &since
	}

	rides, err := qs.rides.ListRides(ctx, filter)
	if err != nil {
		log.Error("cannot list rides", err)
		return nil, err
	}
	return rides, nil
}

// DriverIDByPhone resolves a driver phone for filtering.
func (qs *RidesQueryService) DriverIDByPhone(ctx context.Context, phone string) (int64, error) {
	driver, err := qs.drivers.GetByPhone(ctx, model.PhoneOf(phone))
	if err != nil {
		return 0, err
	}
	return driver.ID, nil
}
