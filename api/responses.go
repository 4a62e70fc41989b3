package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikerecovery-backend/attempt"
	"github.com/semanticallynull/bikerecovery-backend/bike"
	"github.com/semanticallynull/bikerecovery-backend/broadcast"
	"github.com/semanticallynull/bikerecovery-backend/depot"
	"github.com/semanticallynull/bikerecovery-backend/location"
	"github.com/semanticallynull/bikerecovery-backend/manufacturer"
	"github.com/semanticallynull/bikerecovery-backend/recovery"
	"github.com/semanticallynull/bikerecovery-backend/report"
)

type bikeResponse struct {
	ID            uuid.UUID       `json:"id"`
	Make          string          `json:"make"`
	Model         string          `json:"model"`
	SerialNumber  string          `json:"serialNumber"`
	TrackerID     string          `json:"trackerId,omitempty"`
	UserID        string          `json:"userId,omitempty"`
	Location      *location.Point `json:"location,omitempty"`
	LastSignal    *time.Time      `json:"lastSignal,omitempty"`
	Status        bike.Status     `json:"status"`
	ReturnDepotID *uuid.UUID      `json:"returnDepotId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func toBikeResponse(b bike.Bike) bikeResponse {
	resp := bikeResponse{
		ID:            b.ID,
		Make:          b.Make,
		Model:         b.Model,
		SerialNumber:  b.SerialNumber,
		TrackerID:     b.TrackerID.String,
		UserID:        b.UserID,
		Status:        b.Status,
		ReturnDepotID: b.ReturnDepotID,
		CreatedAt:     b.CreatedAt,
	}
	if p, ok := b.Position(); ok {
		resp.Location = &p
	}
	if b.LastSignal.Valid {
		resp.LastSignal = &b.LastSignal.Time
	}
	return resp
}

func toBikeResponses(bikes []bike.Bike) []bikeResponse {
	resp := make([]bikeResponse, 0, len(bikes))
	for _, b := range bikes {
		resp = append(resp, toBikeResponse(b))
	}
	return resp
}

type sampleResponse struct {
	Location  location.Point `json:"location"`
	Timestamp time.Time      `json:"timestamp"`
}

func toSampleResponses(samples []location.Sample) []sampleResponse {
	resp := make([]sampleResponse, 0, len(samples))
	for _, s := range samples {
		resp = append(resp, sampleResponse{Location: s.Point(), Timestamp: s.RecordedAt})
	}
	return resp
}

type attemptResponse struct {
	ID                 uuid.UUID       `json:"id"`
	BikeID             uuid.UUID       `json:"bikeId"`
	UserID             string          `json:"userId"`
	Status             attempt.Status  `json:"status"`
	StartTime          time.Time       `json:"startTime"`
	EndTime            *time.Time      `json:"endTime,omitempty"`
	CancellationReason *attempt.Reason `json:"cancellationReason,omitempty"`
}

func toAttemptResponse(a attempt.Attempt) attemptResponse {
	resp := attemptResponse{
		ID:                 a.ID,
		BikeID:             a.BikeID,
		UserID:             a.UserID,
		Status:             a.Status,
		StartTime:          a.StartTime,
		CancellationReason: a.CancellationReason,
	}
	if a.EndTime.Valid {
		resp.EndTime = &a.EndTime.Time
	}
	return resp
}

type depotResponse struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Address      string          `json:"address"`
	OpeningHours string          `json:"openingHours"`
	Location     *location.Point `json:"location,omitempty"`
}

func toDepotResponse(d depot.Depot) depotResponse {
	resp := depotResponse{
		ID:           d.ID,
		Name:         d.Name,
		Address:      d.Address,
		OpeningHours: d.OpeningHours,
	}
	if p, ok := location.FromPG(d.Location); ok {
		resp.Location = &p
	}
	return resp
}

type manufacturerResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func toManufacturerResponse(m manufacturer.Manufacturer) manufacturerResponse {
	return manufacturerResponse{ID: m.ID, Name: m.Name}
}

type missingReportResponse struct {
	ID           uuid.UUID `json:"id"`
	BikeID       uuid.UUID `json:"bikeId"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	SerialNumber string    `json:"serialNumber"`
	MemberEmail  string    `json:"memberEmail"`
	LastSeenDate time.Time `json:"lastSeenDate"`
	MissingSince time.Time `json:"missingSince"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toMissingReportResponse(mr report.MissingReport) missingReportResponse {
	return missingReportResponse{
		ID:           mr.ID,
		BikeID:       mr.BikeID,
		Make:         mr.Make,
		Model:        mr.Model,
		SerialNumber: mr.SerialNumber,
		MemberEmail:  mr.MemberEmail,
		LastSeenDate: mr.LastSeenOn,
		MissingSince: mr.MissingSince,
		CreatedAt:    mr.CreatedAt,
	}
}

type outcomeResponse struct {
	Bike     bikeResponse      `json:"bike"`
	Depot    depotResponse     `json:"depot"`
	Recovery recovery.Recovery `json:"recovery"`
	Attempt  *attemptResponse  `json:"attempt,omitempty"`
}

func toOutcomeResponse(o recovery.Outcome) outcomeResponse {
	resp := outcomeResponse{
		Bike:     toBikeResponse(o.Bike),
		Depot:    toDepotResponse(o.Depot),
		Recovery: o.Recovery,
	}
	if o.Attempt != nil {
		a := toAttemptResponse(*o.Attempt)
		resp.Attempt = &a
	}
	return resp
}

// eventResponse is the payload of a locationUpdated server-sent event.
type eventResponse struct {
	Type      broadcast.EventType `json:"type"`
	Timestamp time.Time           `json:"timestamp"`
	Bike      bikeResponse        `json:"bike"`
	Location  location.Point      `json:"location"`
}

func toEventResponse(ev broadcast.Event) eventResponse {
	return eventResponse{
		Type:      ev.Type,
		Timestamp: ev.Timestamp,
		Bike:      toBikeResponse(ev.Bike),
		Location:  ev.Location,
	}
}
