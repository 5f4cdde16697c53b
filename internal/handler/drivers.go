package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/fleetops/eldstream/internal/model"
	"github.com/fleetops/eldstream/internal/response"
)

// DriverStore is the drivers slice of the repository consumed by the
// handler.
type DriverStore interface {
	List(ctx context.Context) ([]model.Driver, error)
	GetByID(ctx context.Context, id string) (*model.Driver, error)
	Upsert(ctx context.Context, driver *model.Driver) error
}

// DriverHandler serves the drivers reference entity.
type DriverHandler struct {
	Repo DriverStore
}

// List returns all drivers (GET /api/drivers).
func (h *DriverHandler) List(c echo.Context) error {
	drivers, err := h.Repo.List(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "list drivers failed", err.Error())
	}
	return response.OK(c, map[string]any{"drivers": drivers}, "")
}

// Get returns one driver by id (GET /api/drivers/:id).
func (h *DriverHandler) Get(c echo.Context) error {
	driver, err := h.Repo.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.InternalError(c, "get driver failed", err.Error())
	}
	if driver == nil {
		return response.NotFound(c, "driver not found", "no driver with id "+c.Param("id"))
	}
	return response.OK(c, driver, "")
}

// Put creates or renames a driver (PUT /api/drivers/:id).
func (h *DriverHandler) Put(c echo.Context) error {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&body); err != nil {
		return response.BadRequest(c, "invalid JSON body", err.Error())
	}
	if body.Name == "" {
		return response.BadRequest(c, "missing name", "driver name is required")
	}

	driver := &model.Driver{ID: c.Param("id"), Name: body.Name}
	if err := h.Repo.Upsert(c.Request().Context(), driver); err != nil {
		return response.InternalError(c, "upsert driver failed", err.Error())
	}
	return response.OK(c, driver, "")
}
