package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/bikerecovery-backend/attempt"
	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
	"github.com/semanticallynull/bikerecovery-backend/recovery"
)

func (a *API) investigateHandler(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	b, err := a.d.Machine.Investigate(c, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBikeResponse(b))
}

func (a *API) markLostHandler(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	b, err := a.d.Machine.MarkLost(c, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBikeResponse(b))
}

type foundRequest struct {
	DepotID string `json:"depotId"`
	Notes   string `json:"notes"`
}

func (r foundRequest) depot() (uuid.UUID, error) {
	id, err := uuid.Parse(r.DepotID)
	if err != nil {
		return uuid.Nil, apperr.Invalid("depotId", "must be a UUID")
	}
	return id, nil
}

func (a *API) markFoundHandler(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	uid, err := userID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req foundRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	depotID, err := req.depot()
	if err != nil {
		writeError(c, err)
		return
	}

	o, err := a.d.Machine.MarkFound(c, recovery.FoundRequest{
		BikeID:  id,
		DepotID: depotID,
		FoundBy: uid,
		Notes:   req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOutcomeResponse(o))
}

type foundBatchRequest struct {
	foundRequest
	SerialNumbers []string `json:"serialNumbers"`
}

type serialFailureResponse struct {
	SerialNumber string `json:"serialNumber"`
	Code         string `json:"code"`
	Message      string `json:"message"`
}

func (a *API) markFoundBatchHandler(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req foundBatchRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if len(req.SerialNumbers) == 0 {
		writeError(c, apperr.Invalid("serialNumbers", "is required"))
		return
	}
	depotID, err := req.depot()
	if err != nil {
		writeError(c, err)
		return
	}
	if _, err := a.d.Depots.Get(c, depotID); err != nil {
		writeError(c, err)
		return
	}

	result := a.d.Machine.MarkFoundBySerial(c, req.SerialNumbers, depotID, uid, req.Notes)

	found := make([]outcomeResponse, 0, len(result.Found))
	for _, o := range result.Found {
		found = append(found, toOutcomeResponse(o))
	}
	failed := make([]serialFailureResponse, 0, len(result.Failed))
	for _, f := range result.Failed {
		_, resp := toErrorResponse(f.Err)
		failed = append(failed, serialFailureResponse{
			SerialNumber: f.SerialNumber,
			Code:         resp.Code,
			Message:      resp.Message,
		})
	}
	c.JSON(http.StatusOK, gin.H{"found": found, "failed": failed})
}

func (a *API) listAttemptsHandler(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	attempts, err := a.d.Attempts.ListByBike(c, id)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]attemptResponse, 0, len(attempts))
	for _, at := range attempts {
		resp = append(resp, toAttemptResponse(at))
	}
	c.JSON(http.StatusOK, resp)
}

func (a *API) startAttemptHandler(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	uid, err := userID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	at, err := a.d.Machine.StartAttempt(c, id, uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAttemptResponse(at))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (a *API) cancelAttemptHandler(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req cancelRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	reason, err := attempt.ParseReason(req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	at, err := a.d.Machine.CancelAttempt(c, id, reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAttemptResponse(at))
}
