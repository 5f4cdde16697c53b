package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fleetops/eldstream/internal/fault"
	"github.com/fleetops/eldstream/internal/ingest"
	"github.com/fleetops/eldstream/internal/live"
	"github.com/fleetops/eldstream/internal/query"
	"github.com/fleetops/eldstream/internal/response"
)

const maxPayloadBytes = 1 << 20

// LogHandler serves the ingest, query, and live-stream boundaries.
type LogHandler struct {
	Pipeline         *ingest.Pipeline
	Query            *query.Service
	Hub              *live.Hub
	KeepAlive        time.Duration
	SubscriberBuffer int
}

// Ingest accepts one raw device event (POST /api/events). The body is
// passed to the pipeline as-is; validation failures are the caller's
// fault, store failures are not.
func (h *LogHandler) Ingest(c echo.Context) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPayloadBytes))
	if err != nil {
		return response.BadRequest(c, "could not read body", err.Error())
	}
	if len(raw) == 0 {
		return response.BadRequest(c, "empty body", "event payload is required")
	}

	entry, err := h.Pipeline.Ingest(c.Request().Context(), raw)
	if err != nil {
		var ve *fault.ValidationError
		if errors.As(err, &ve) {
			return response.BadRequest(c, "invalid event", ve.Error())
		}
		var pe *fault.PersistenceError
		if errors.As(err, &pe) {
			return response.ServiceUnavailable(c, "event not persisted", pe.Error())
		}
		return response.InternalError(c, "ingest failed", err.Error())
	}
	return response.Accepted(c, map[string]any{"id": entry.ID}, "event accepted")
}

// Logs serves historical ranges (GET /api/logs?start=&end=). Bounds are
// RFC 3339 instants; both bounds are inclusive.
func (h *LogHandler) Logs(c echo.Context) error {
	start, err := parseInstant(c.QueryParam("start"))
	if err != nil {
		return response.BadRequest(c, "invalid start", err.Error())
	}
	end, err := parseInstant(c.QueryParam("end"))
	if err != nil {
		return response.BadRequest(c, "invalid end", err.Error())
	}

	entries, err := h.Query.Logs(c.Request().Context(), start, end)
	if err != nil {
		var re *fault.InvalidRangeError
		if errors.As(err, &re) {
			return response.BadRequest(c, "invalid range", re.Error())
		}
		return response.InternalError(c, "query failed", err.Error())
	}
	return response.OK(c, map[string]any{"logs": entries}, "")
}

// Stream is the live boundary (GET /api/stream): an SSE connection that
// receives every payload published from the moment of connection onward,
// verbatim, until the client disconnects. No replay of missed messages.
func (h *LogHandler) Stream(c echo.Context) error {
	w := c.Response()
	live.SetStreamHeaders(w.Header())
	w.WriteHeader(http.StatusOK)

	sub := live.NewSubscriber(h.SubscriberBuffer)
	h.Hub.Register(sub)
	defer h.Hub.Unregister(sub)

	if err := live.WriteComment(w, "connected"); err != nil {
		return nil
	}

	keepAlive := h.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done():
			return nil
		case msg := <-sub.Messages():
			if err := live.WriteFrame(w, msg); err != nil {
				return nil
			}
		case <-ticker.C:
			if err := live.WriteComment(w, "keepalive"); err != nil {
				return nil
			}
		}
	}
}

func parseInstant(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing instant, expected RFC 3339")
	}
	return time.Parse(time.RFC3339, s)
}
