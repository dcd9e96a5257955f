package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tujane/internal/matching-service/core/domain/model"
	"tujane/internal/matching-service/core/myerrors"
	"tujane/internal/matching-service/core/ports"

	"github.com/jackc/pgx/v5"
)

const rideColumns = `id, public_id, rider_identity, driver_id, where_from, where_to, passengers, created_at, claimed_at`

type RidesRepo struct {
	db *DB
}

var _ ports.IRidesRepo = (*RidesRepo)(nil)

func NewRidesRepo(db *DB) *RidesRepo {
	return &RidesRepo{
		db: db,
	}
}

func scanRide(row pgx.Row) (model.Ride, error) {
	var r model.Ride
	err := row.Scan(
		&r.ID,
		&r.PublicID,
		&r.RiderIdentity,
		&r.DriverID,
		&r.Pickup,
		&r.Destination,
		&r.Passengers,
		&r.CreatedAt,
		&r.ClaimedAt,
	)
	return r, err
}

func (rr *RidesRepo) CreateRide(ctx context.Context, d model.RideDraft) (model.Ride, error) {
	q := `
	INSERT INTO rides (public_id, rider_identity, where_from, where_to, passengers, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING ` + rideColumns

	ride, err := scanRide(rr.db.pool.QueryRow(ctx, q,
		d.PublicID,
		d.RiderIdentity,
		d.Pickup,
		d.Destination,
		d.Passengers,
		d.CreatedAt,
	))
	if err != nil {
		return model.Ride{}, fmt.Errorf("insert ride: %w", err)
	}
	return ride, nil
}

func (rr *RidesRepo) GetByPublicID(ctx context.Context, publicID string) (model.Ride, error) {
	q := `
	SELECT ` + rideColumns + `
	FROM rides
	WHERE public_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT 1`

	ride, err := scanRide(rr.db.pool.QueryRow(ctx, q, publicID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Ride{}, myerrors.ErrRideNotFound
	}
	if err != nil {
		return model.Ride{}, fmt.Errorf("select ride: %w", err)
	}
	return ride, nil
}

// ClaimRide assigns the driver with one conditional UPDATE. Concurrent
// updates of the same row are serialised by postgres and the loser
// re-evaluates "driver_id IS NULL" against the winner's row, so at most one
// claim returns a row.
func (rr *RidesRepo) ClaimRide(ctx context.Context, a model.ClaimAttempt) (model.Ride, error) {
	q := `
	UPDATE rides
	SET driver_id = $2, claimed_at = $5
	WHERE id = (
		SELECT id FROM rides
		WHERE public_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	)
	AND driver_id IS NULL
	AND created_at >= $3
	AND passengers <= $4
	RETURNING ` + rideColumns

	ride, err := scanRide(rr.db.pool.QueryRow(ctx, q,
		a.PublicID,
		a.DriverID,
		a.NotBefore,
		a.DriverCapacity,
		a.At,
	))
	if err == nil {
		return ride, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
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
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.RiderIdentity != "" {
		add("rider_identity = $%d", f.RiderIdentity)
	}
	if f.DriverID != nil {
		add("driver_id = $%d", *f.DriverID)
	}
	if f.OpenSince != nil {
		where = append(where, "driver_id IS NULL")
		add("created_at >= $%d", *f.OpenSince)
	}

	q := `SELECT ` + rideColumns + ` FROM rides`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit)
	q += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := rr.db.pool.Query(ctx, q, args...)
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
