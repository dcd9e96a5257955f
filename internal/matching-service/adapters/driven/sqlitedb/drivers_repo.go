package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tujane/internal/matching-service/core/domain/model"
	"tujane/internal/matching-service/core/myerrors"
	"tujane/internal/matching-service/core/ports"
)

const driverColumns = `id, phone_number, full_name, registration_plate_number, car_type, car_photo_url, car_capacity`

type DriversRepo struct {
	store *Store
}

var _ ports.IDriversRepo = (*DriversRepo)(nil)

func NewDriversRepo(store *Store) *DriversRepo {
	return &DriversRepo{store: store}
}

func scanDriver(row scanner) (model.Driver, error) {
	var d model.Driver
	err := row.Scan(&d.ID, &d.Phone, &d.FullName, &d.Plate, &d.CarType, &d.PhotoURL, &d.Capacity)
	return d, err
}

func (dr *DriversRepo) GetByPhone(ctx context.Context, phone string) (model.Driver, error) {
	q := `SELECT ` + driverColumns + ` FROM drivers WHERE phone_number = ?`

	driver, err := scanDriver(dr.store.db.QueryRowContext(ctx, q, phone))
	if errors.Is(err, sql.ErrNoRows) {
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

	q := `
	INSERT INTO drivers (phone_number, full_name, registration_plate_number, car_type, car_photo_url, car_capacity)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (phone_number) DO UPDATE SET
		full_name = excluded.full_name,
		registration_plate_number = excluded.registration_plate_number,
		car_type = excluded.car_type,
		car_photo_url = excluded.car_photo_url,
		car_capacity = excluded.car_capacity
	RETURNING ` + driverColumns

	driver, err := scanDriver(dr.store.db.QueryRowContext(ctx, q, d.Phone, d.FullName, d.Plate, d.CarType, d.PhotoURL, d.Capacity))
	if err != nil {
		return model.Driver{}, fmt.Errorf("upsert driver: %w", err)
	}
	return driver, nil
}
