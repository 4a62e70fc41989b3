package api

import (
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
	"github.com/semanticallynull/bikerecovery-backend/internal/middleware"
	"github.com/semanticallynull/bikerecovery-backend/priority"
)

type prioritizeRequest struct {
	Position   positionRequest `json:"position"`
	Candidates []struct {
		BikeID uuid.UUID `json:"bikeId"`
		// DurationSeconds is the driving time from the agent to the bike,
		// omitted when the routing service found no route.
		DurationSeconds *float64 `json:"durationSeconds"`
	} `json:"candidates"`
}

// maxDrivingSeconds is the longest driving time a time.Duration can hold.
const maxDrivingSeconds = float64(math.MaxInt64 / int64(time.Second))

// drivingTime converts a routing duration. Durations too long to represent
// are treated like a missing route.
func drivingTime(seconds *float64) (*time.Duration, error) {
	if seconds == nil {
		return nil, nil
	}
	s := *seconds
	if math.IsNaN(s) || s < 0 {
		return nil, apperr.Invalid("durationSeconds", "must not be negative")
	}
	if s >= maxDrivingSeconds {
		return nil, nil
	}
	d := time.Duration(s * float64(time.Second))
	return &d, nil
}

type rankedBikeResponse struct {
	Bike               bikeResponse `json:"bike"`
	Tier               int          `json:"tier"`
	DrivingTimeSeconds *float64     `json:"drivingTimeSeconds,omitempty"`
}

// prioritizeHandler ranks the bikes an agent could pursue next. Driving times
// come from the client's routing service.
func (a *API) prioritizeHandler(c *gin.Context) {
	var req prioritizeRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	agent, err := req.Position.point()
	if err != nil {
		writeError(c, err)
		return
	}

	candidates := make([]priority.Candidate, 0, len(req.Candidates))
	for _, rc := range req.Candidates {
		b, err := a.d.Bikes.Get(c, rc.BikeID)
		if err != nil {
			writeError(c, err)
			return
		}
		cand := priority.Candidate{Bike: b}
		if b.LastSignal.Valid {
			cand.LastSignal = b.LastSignal.Time
		}
		cand.DrivingTime, err = drivingTime(rc.DurationSeconds)
		if err != nil {
			writeError(c, err)
			return
		}
		candidates = append(candidates, cand)
	}

	now := a.d.Clock.Now()
	ranked := priority.Prioritize(candidates, now)

	resp := make([]rankedBikeResponse, 0, len(ranked))
	for _, cand := range ranked {
		r := rankedBikeResponse{
			Bike: toBikeResponse(cand.Bike),
			Tier: priority.Tier(cand, now),
		}
		if cand.DrivingTime != nil {
			s := cand.DrivingTime.Seconds()
			r.DrivingTimeSeconds = &s
		}
		resp = append(resp, r)
	}

	middleware.GetLogger(c).Debug("prioritized bikes",
		slog.Float64("agent_longitude", agent.Lng),
		slog.Float64("agent_latitude", agent.Lat),
		slog.Int("candidates", len(candidates)),
	)
	c.JSON(http.StatusOK, resp)
}
