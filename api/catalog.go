package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/bikerecovery-backend/location"
	"github.com/semanticallynull/bikerecovery-backend/report"
)

func (a *API) listDepotsHandler(c *gin.Context) {
	depots, err := a.d.Depots.List(c)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]depotResponse, 0, len(depots))
	for _, d := range depots {
		resp = append(resp, toDepotResponse(d))
	}
	c.JSON(http.StatusOK, resp)
}

func (a *API) listManufacturersHandler(c *gin.Context) {
	manufacturers, err := a.d.Manufacturers.List(c)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]manufacturerResponse, 0, len(manufacturers))
	for _, m := range manufacturers {
		resp = append(resp, toManufacturerResponse(m))
	}
	c.JSON(http.StatusOK, resp)
}

type reportRequest struct {
	Make         string          `json:"make"`
	Model        string          `json:"model"`
	SerialNumber string          `json:"serialNumber"`
	TrackerID    string          `json:"trackerId"`
	MemberEmail  string          `json:"memberEmail"`
	LastSeenDate time.Time       `json:"lastSeenDate"`
	MissingSince time.Time       `json:"missingSince"`
	Location     *location.Point `json:"location"`
}

// fileReportHandler registers a stolen bike. Reports can be filed without an
// account, so the bike has no owning user until one claims it.
func (a *API) fileReportHandler(c *gin.Context) {
	var req reportRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	b, mr, err := a.d.Reports.File(c, report.TheftReport{
		Make:         strings.TrimSpace(req.Make),
		Model:        strings.TrimSpace(req.Model),
		SerialNumber: strings.TrimSpace(req.SerialNumber),
		TrackerID:    strings.ToLower(strings.TrimSpace(req.TrackerID)),
		MemberEmail:  strings.TrimSpace(req.MemberEmail),
		LastSeenOn:   req.LastSeenDate,
		MissingSince: req.MissingSince,
		LastKnown:    req.Location,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"bike":          toBikeResponse(b),
		"missingReport": toMissingReportResponse(mr),
	})
}

var errBillingDisabled = errors.New("billing is not configured")

func (a *API) invoiceHandler(c *gin.Context) {
	if a.d.Invoicer == nil {
		writeError(c, errBillingDisabled)
		return
	}

	inv, err := a.d.Invoicer.InvoiceManufacturer(c, c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

