package db

import (
	"context"
	"errors"
	"fmt"

	"tujane/internal/matching-service/core/domain/model"
	"tujane/internal/matching-service/core/myerrors"
	"tujane/internal/matching-service/core/ports"

	"github.com/jackc/pgx/v5"
)

const driverColumns = `id, phone_number, full_name, registration_plate_number, car_type, car_photo_url, car_capacity`

type DriversRepo struct {
	db *DB
}

var _ ports.IDriversRepo = (*DriversRepo)(nil)

func NewDriversRepo(db *DB) *DriversRepo {
	return &DriversRepo{db: db}
}

func scanDriver(row pgx.Row) (model.Driver, error) {
	var d model.Driver
	err := row.Scan(&d.ID, &d.Phone, &d.FullName, &d.Plate, &d.CarType, &d.PhotoURL, &d.Capacity)
	return d, err
}

func (dr *DriversRepo) GetByPhone(ctx context.Context, phone string) (model.Driver, error) {
	q := `SELECT ` + driverColumns + ` FROM drivers WHERE phone_number = $1`

	driver, err := scanDriver(dr.db.pool.QueryRow(ctx, q, phone))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Driver{}, myerrors.ErrDriverNotFound
	}
	if err != nil {
		return model.Driver{}, fmt.Errorf("select driver: %w", err)
	}
	return driver, nil
}

func (dr *DriversRepo) Upsert(ctx context.Context, d model.Driver) (model.Driver, error) {
	if err := d.Validate(); err != nil {
		return model.Driver{}, fmt.Errorf("%w: %w", myerrors.ErrValidation, err)
	}

	tx, err := dr.db.pool.Begin(ctx)
	if err != nil {
		return model.Driver{}, err
	}
	defer tx.Rollback(ctx)

	q := `
	INSERT INTO drivers (phone_number, full_name, registration_plate_number, car_type, car_photo_url, car_capacity)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (phone_number) DO UPDATE SET
		full_name = EXCLUDED.full_name,
		registration_plate_number = EXCLUDED.registration_plate_number,
		car_type = EXCLUDED.car_type,
		car_photo_url = EXCLUDED.car_photo_url,
		car_capacity = EXCLUDED.car_capacity
	RETURNING ` + driverColumns

	driver, err := scanDriver(tx.QueryRow(ctx, q, d.Phone, d.FullName, d.Plate, d.CarType, d.PhotoURL, d.Capacity))
	if err != nil {
		return model.Driver{}, fmt.Errorf("upsert driver: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Driver{}, err
	}
	return driver, nil
}
