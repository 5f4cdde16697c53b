package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetops/eldstream/internal/fault"
	"github.com/fleetops/eldstream/internal/model"
)

// DriverRepository reads and writes the drivers reference table.
type DriverRepository struct {
	pool *pgxpool.Pool
}

// NewDriverRepository returns a DriverRepository using the given pool.
func NewDriverRepository(pool *pgxpool.Pool) *DriverRepository {
	return &DriverRepository{pool: pool}
}

// List returns all drivers ordered by id.
func (r *DriverRepository) List(ctx context.Context) ([]model.Driver, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM drivers ORDER BY id`)
	if err != nil {
		return nil, &fault.PersistenceError{Op: "list drivers", Err: err}
	}
	defer rows.Close()

	drivers := make([]model.Driver, 0)
	for rows.Next() {
		var d model.Driver
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, &fault.PersistenceError{Op: "scan driver", Err: err}
		}
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}

// GetByID returns one driver by id, or nil if not found.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*model.Driver, error) {
	var d model.Driver
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM drivers WHERE id = $1`, id).
		Scan(&d.ID, &d.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &fault.PersistenceError{Op: "get driver", Err: err}
	}
	return &d, nil
}

// Upsert inserts the driver or updates its name if the id already exists.
func (r *DriverRepository) Upsert(ctx context.Context, driver *model.Driver) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO drivers (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
		driver.ID, driver.Name)
	if err != nil {
		return &fault.PersistenceError{Op: "upsert driver", Err: err}
	}
	return nil
}
