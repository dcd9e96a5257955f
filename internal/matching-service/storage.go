package matchingservice

import (
	"context"
	"fmt"

	"tujane/internal/config"
	"tujane/internal/matching-service/adapters/driven/db"
	"tujane/internal/matching-service/adapters/driven/sqlitedb"
	"tujane/internal/matching-service/core/domain/model"
	"tujane/internal/matching-service/core/ports"
	"tujane/internal/mylogger"
)

type storage struct {
	rides   ports.IRidesRepo
	drivers ports.IDriversRepo
	isAlive func(ctx context.Context) error
	close   func() error
}

// openStorage connects the configured store and brings its schema up to
// date.
func openStorage(ctx context.Context, mylog mylogger.Logger, cfg *config.Config) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageSqlite:
		s, err := sqlitedb.Open(cfg.Storage.SqlitePath, mylog)
		if err != nil {
			return nil, err
		}
		return &storage{
			rides:   sqlitedb.NewRidesRepo(s),
			drivers: sqlitedb.NewDriversRepo(s),
			isAlive: s.IsAlive,
			close:   s.Close,
		}, nil
	case config.StoragePostgres:
		d, err := db.New(ctx, cfg.DB, mylog)
		if err != nil {
			return nil, err
		}
		if err := d.Migrate(ctx); err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return &storage{
			rides:   db.NewRidesRepo(d),
			drivers: db.NewDriversRepo(d),
			isAlive: d.IsAlive,
			close:   d.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Migrate applies the schema of the configured store and exits.
func Migrate(ctx context.Context, mylog mylogger.Logger, cfg *config.Config) error {
	s, err := openStorage(ctx, mylog, cfg)
	if err != nil {
		return err
	}
	return s.close()
}

// AddDriver registers or updates a driver by phone number.
func AddDriver(ctx context.Context, mylog mylogger.Logger, cfg *config.Config, d model.Driver) (model.Driver, error) {
	s, err := openStorage(ctx, mylog, cfg)
	if err != nil {
		return model.Driver{}, err
	}
	defer s.close()

	d.Phone = model.PhoneOf(d.Phone)
	return s.drivers.Upsert(ctx, d)
}
