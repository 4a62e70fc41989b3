package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
	"github.com/semanticallynull/bikerecovery-backend/internal/middleware"
	"github.com/semanticallynull/bikerecovery-backend/location"
)

type positionRequest struct {
	Longitude *float64   `json:"longitude"`
	Latitude  *float64   `json:"latitude"`
	Timestamp *time.Time `json:"timestamp"`
}

func (r positionRequest) point() (location.Point, error) {
	if r.Longitude == nil {
		return location.Point{}, apperr.Invalid("longitude", "is required")
	}
	if r.Latitude == nil {
		return location.Point{}, apperr.Invalid("latitude", "is required")
	}
	p := location.Point{Lng: *r.Longitude, Lat: *r.Latitude}
	return p, p.Validate()
}

// enqueuePositionHandler queues a simulated position report for the poller.
func (a *API) enqueuePositionHandler(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req positionRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	p, err := req.point()
	if err != nil {
		writeError(c, err)
		return
	}

	at := a.d.Clock.Now()
	if req.Timestamp != nil {
		at = *req.Timestamp
	}

	u, err := a.d.Locations.Enqueue(c, id, p, at)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": u.ID, "enqueuedAt": u.EnqueuedAt})
}

// trackHandler applies a live tracker report immediately.
func (a *API) trackHandler(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req positionRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	p, err := req.point()
	if err != nil {
		writeError(c, err)
		return
	}

	b, err := a.d.Pipeline.ApplyPosition(c, id, p, req.Timestamp)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBikeResponse(b))
}

// streamHandler sends every locationUpdated event to the client as a
// server-sent event until the client disconnects.
func (a *API) streamHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	sub := a.d.Broker.Subscribe()
	defer a.d.Broker.Unsubscribe(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	// Send the headers now so clients see the stream open before the first event.
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub:
			if !ok {
				return false
			}
			data, err := json.Marshal(toEventResponse(ev))
			if err != nil {
				logger.Error("failed to encode event", "error", err)
				return true
			}
			c.SSEvent(string(ev.Type), string(data))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
