package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/bikerecovery-backend/bike"
	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
	"github.com/semanticallynull/bikerecovery-backend/internal/middleware"
)

func (a *API) listBikesHandler(c *gin.Context) {
	var f bike.Filter
	if v := c.Query("status"); v != "" {
		s, err := bike.ParseStatus(v)
		if err != nil {
			writeError(c, err)
			return
		}
		f.Status = &s
	}
	f.Makes = c.QueryArray("make")

	bikes, err := a.d.Bikes.List(c, f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBikeResponses(bikes))
}

func (a *API) bikeHandler(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	b, err := a.d.Bikes.Get(c, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBikeResponse(b))
}

func (a *API) locationsHandler(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if _, err := a.d.Bikes.Get(c, id); err != nil {
		writeError(c, err)
		return
	}

	samples, err := a.d.Locations.All(c, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSampleResponses(samples))
}

func (a *API) locationHistoryHandler(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	from, err := queryTime(c, "startDate")
	if err != nil {
		writeError(c, err)
		return
	}
	to, err := queryTime(c, "endDate")
	if err != nil {
		writeError(c, err)
		return
	}
	if from != nil && to != nil && to.Before(*from) {
		writeError(c, apperr.Invalid("endDate", "is before startDate"))
		return
	}
	if _, err := a.d.Bikes.Get(c, id); err != nil {
		writeError(c, err)
		return
	}

	samples, err := a.d.Locations.History(c, id, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSampleResponses(samples))
}

// queryTime parses an optional RFC 3339 timestamp or date query parameter.
func queryTime(c *gin.Context, name string) (*time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Invalid(name, "must be an RFC 3339 timestamp or a date")
}

func (a *API) missingReportHandler(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	mr, err := a.d.Reports.GetByBikeID(c, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMissingReportResponse(mr))
}

func (a *API) listNotesHandler(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if _, err := a.d.Bikes.Get(c, id); err != nil {
		writeError(c, err)
		return
	}

	notes, err := a.d.Notes.List(c, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

type noteRequest struct {
	Content string `json:"content"`
}

func (a *API) addNoteHandler(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req noteRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if _, err := a.d.Bikes.Get(c, id); err != nil {
		writeError(c, err)
		return
	}

	n, err := a.d.Notes.Add(c, id, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (a *API) statisticsHandler(c *gin.Context) {
	stats, err := a.d.Bikes.Statistics(c, a.d.Clock.Now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

const (
	defaultRecoveries = 20
	maxRecoveries     = 100
)

func (a *API) recoveriesHandler(c *gin.Context) {
	limit := defaultRecoveries
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxRecoveries {
			writeError(c, apperr.Invalid("limit", "must be between 1 and 100"))
			return
		}
		limit = n
	}

	recoveries, err := a.d.Recoveries.Recent(c, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recoveries)
}

func (a *API) meHandler(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{"userId": uid}
	if token, ok := middleware.BearerToken(c); ok && a.d.Users != nil {
		info, err := a.d.Users.Profile(c, token)
		if err != nil {
			middleware.GetLogger(c).Warn("failed to fetch user profile", "error", err)
		} else {
			resp["name"] = info.DisplayName()
			resp["email"] = info.Email
		}
	}
	c.JSON(http.StatusOK, resp)
}
