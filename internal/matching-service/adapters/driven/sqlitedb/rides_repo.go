package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tujane/internal/matching-service/core/domain/model"
	"tujane/internal/matching-service/core/myerrors"
	"tujane/internal/matching-service/core/ports"
)

const rideColumns = `id, public_id, rider_identity, driver_id, where_from, where_to, passengers, created_at, claimed_at`

type RidesRepo struct {
	store *Store
}

var _ ports.IRidesRepo = (*RidesRepo)(nil)

func NewRidesRepo(store *Store) *RidesRepo {
	return &RidesRepo{store: store}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRide(row scanner) (model.Ride, error) {
	var (
		r         model.Ride
		driverID  sql.NullInt64
		createdAt int64
		claimedAt sql.NullInt64
	)
	err := row.Scan(&r.ID, &r.PublicID, &r.RiderIdentity, &driverID, &r.Pickup, &r.Destination, &r.Passengers, &createdAt, &claimedAt)
	if err != nil {
		return model.Ride{}, err
	}
	r.CreatedAt = fromUnix(createdAt)
	if driverID.Valid {
		id := driverID.Int64
		r.DriverID = &id
	}
	if claimedAt.Valid {
		at := fromUnix(claimedAt.Int64)
		r.ClaimedAt = &at
	}
	return r, nil
}

func (rr *RidesRepo) CreateRide(ctx context.Context, d model.RideDraft) (model.Ride, error) {
	q := `
	INSERT INTO rides (public_id, rider_identity, where_from, where_to, passengers, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	RETURNING ` + rideColumns

	ride, err := scanRide(rr.store.db.QueryRowContext(ctx, q,
		d.PublicID, d.RiderIdentity, d.Pickup, d.Destination, d.Passengers, toUnix(d.CreatedAt)))
	if err != nil {
		return model.Ride{}, fmt.Errorf("insert ride: %w", err)
	}
	return ride, nil
}

func (rr *RidesRepo) GetByPublicID(ctx context.Context, publicID string) (model.Ride, error) {
	q := `SELECT ` + rideColumns + ` FROM rides WHERE public_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`

	ride, err := scanRide(rr.store.db.QueryRowContext(ctx, q, publicID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ride{}, myerrors.ErrRideNotFound
	}
	if err != nil {
		return model.Ride{}, fmt.Errorf("select ride: %w", err)
	}
	return ride, nil
}

// ClaimRide is the same conditional write as the postgres store. SQLite
// runs one writer at a time, so the eligibility check and the assignment
// cannot interleave with another claim.
func (rr *RidesRepo) ClaimRide(ctx context.Context, a model.ClaimAttempt) (model.Ride, error) {
	q := `
	UPDATE rides
	SET driver_id = ?, claimed_at = ?
	WHERE id = (
		SELECT id FROM rides WHERE public_id = ? ORDER BY created_at DESC, id DESC LIMIT 1
	)
	AND driver_id IS NULL
	AND created_at >= ?
	AND passengers <= ?
	RETURNING ` + rideColumns

	ride, err := scanRide(rr.store.db.QueryRowContext(ctx, q,
		a.DriverID, toUnix(a.At), a.PublicID, toUnix(a.NotBefore), a.DriverCapacity))
	if err == nil {
		return ride, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Ride{}, fmt.Errorf("claim ride: %w", err)
	}

	current, err := rr.GetByPublicID(ctx, a.PublicID)
	if errors.Is(err, myerrors.ErrRideNotFound) {
		return model.Ride{}, myerrors.NewClaimConflict(a.PublicID, myerrors.ReasonUnknownRide)
	}
	if err != nil {
		return model.Ride{}, err
	}
	return model.Ride{}, a.Reject(current)
}

func (rr *RidesRepo) ListRides(ctx context.Context, f model.RideFilter) ([]model.Ride, error) {
	var (
		where []string
		args  []any
	)
	if f.RiderIdentity != "" {
		where = append(where, "rider_identity = ?")
		args = append(args, f.RiderIdentity)
	}
	if f.DriverID != nil {
		where = append(where, "driver_id = ?")
		args = append(args, *f.DriverID)
	}
	if f.OpenSince != nil {
		where = append(where, "driver_id IS NULL", "created_at >= ?")
		args = append(args, toUnix(*f.OpenSince))
	}

	q := `SELECT ` + rideColumns + ` FROM rides`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, f.Limit)

	rows, err := rr.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list rides: %w", err)
	}
	defer rows.Close()

	rides := []model.Ride{}
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ride: %w", err)
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}
