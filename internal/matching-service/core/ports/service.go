package ports

import (
	"context"
	"time"

	"tujane/internal/matching-service/core/domain/model"
)

type IRequestStore interface {
	GetActive(rider string) *model.RiderRequest
	Create(rider string) (*model.RiderRequest, error)
	Remove(rider, requestID string)
	Sweep(now time.Time, maxAge time.Duration) int
}

type IMatchingService interface {
	Publish(ctx context.Context, rider string, details model.RideDetails) (model.Ride, error)
	Claim(ctx context.Context, driverIdentity, text string) (model.Ride, error)
}

type IRiderService interface {
	HandleMessage(ctx context.Context, rider, text string) error
}

type IRidesQueryService interface {
	GetRide(ctx context.Context, publicID string) (model.Ride, model.RideStatus, error)
	ListRides(ctx context.Context, filter model.RideFilter) ([]model.Ride, error)
	DriverIDByPhone(ctx context.Context, phone string) (int64, error)
}
