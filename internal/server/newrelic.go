package server

import (
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// transactionMiddleware wraps each request in a New Relic transaction and
// puts it in the request context, where the nrpgx5 tracer picks it up.
func transactionMiddleware(app *newrelic.Application) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			txn := app.StartTransaction(c.Request().Method + " " + c.Path())
			defer txn.End()

			txn.SetWebRequestHTTP(c.Request())
			c.Response().Writer = txn.SetWebResponse(c.Response().Writer)
			c.SetRequest(c.Request().WithContext(
				newrelic.NewContext(c.Request().Context(), txn)))

			err := next(c)
			if err != nil {
				txn.NoticeError(err)
			}
			return err
		}
	}
}
