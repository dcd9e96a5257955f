package ports

import (
	"context"
	"time"

	"tujane/internal/matching-service/core/domain/model"
)

type IRidesRepo interface {
	CreateRide(ctx context.Context, draft model.RideDraft) (model.Ride, error)
	// GetByPublicID returns the newest ride carrying the code, or myerrors.ErrRideNotFound.
	GetByPublicID(ctx context.Context, publicID string) (model.Ride, error)
	// ClaimRide assigns the driver in one conditional write. When the ride is
	// not eligible it returns a *myerrors.ClaimConflictError.
	ClaimRide(ctx context.Context, attempt model.ClaimAttempt) (model.Ride, error)
	ListRides(ctx context.Context, filter model.RideFilter) ([]model.Ride, error)
}

type IDriversRepo interface {
	// GetByPhone returns myerrors.ErrDriverNotFound for unknown numbers.
	GetByPhone(ctx context.Context, phone string) (model.Driver, error)
	Upsert(ctx context.Context, driver model.Driver) (model.Driver, error)
}

// ICodeRegistry reserves ride codes for the claim window so that two open
// rides never share one.
type ICodeRegistry interface {
	Reserve(ctx context.Context, code string, ttl time.Duration) (bool, error)
}
