package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/semanticallynull/bikerecovery-backend/attempt"
	"github.com/semanticallynull/bikerecovery-backend/billing"
	"github.com/semanticallynull/bikerecovery-backend/bike"
	"github.com/semanticallynull/bikerecovery-backend/broadcast"
	"github.com/semanticallynull/bikerecovery-backend/depot"
	"github.com/semanticallynull/bikerecovery-backend/internal/auth0"
	"github.com/semanticallynull/bikerecovery-backend/internal/clock"
	"github.com/semanticallynull/bikerecovery-backend/internal/middleware"
	"github.com/semanticallynull/bikerecovery-backend/internal/o11y"
	"github.com/semanticallynull/bikerecovery-backend/location"
	"github.com/semanticallynull/bikerecovery-backend/manufacturer"
	"github.com/semanticallynull/bikerecovery-backend/note"
	"github.com/semanticallynull/bikerecovery-backend/recovery"
	"github.com/semanticallynull/bikerecovery-backend/report"
	"github.com/semanticallynull/bikerecovery-backend/tracking"
)

// Deps are the repositories and services the handlers work with.
type Deps struct {
	Bikes         *bike.Repository
	Locations     *location.Repository
	Attempts      *attempt.Repository
	Depots        *depot.Repository
	Manufacturers *manufacturer.Repository
	Reports       *report.Repository
	Notes         *note.Repository
	Recoveries    *recovery.Repository

	Machine  *recovery.Machine
	Pipeline *tracking.Pipeline
	Broker   *broadcast.Broker
	// Invoicer is nil when billing is not configured.
	Invoicer *billing.Invoicer
	Users    auth0.Client
	Clock    clock.Clock
}

type Options struct {
	// Auth authenticates a request and stores the actor under
	// middleware.UserIDKey.
	Auth gin.HandlerFunc

	// PublicLimiter throttles the unauthenticated write endpoints when set.
	PublicLimiter *middleware.RateLimiter

	Observability   *o11y.Observability
	MetricsUsername string
	MetricsPassword string
}

type API struct {
	r *gin.Engine
	d Deps
}

func New(d Deps, opts Options) *API {
	a := &API{
		r: gin.New(),
		d: d,
	}

	// Handlers pass c as the context; fall back to the request context so
	// cancellation and trace spans reach the repositories.
	a.r.ContextWithFallback = true
	a.r.Use(gin.Recovery())
	if obs := opts.Observability; obs != nil {
		a.r.Use(
			middleware.Tracing("bikerecovery-backend"),
			middleware.Logging(obs.Logger),
			middleware.Metrics(obs.Registry, "/stream"),
		)
		if opts.MetricsUsername != "" {
			a.r.GET("/metrics",
				gin.BasicAuth(gin.Accounts{opts.MetricsUsername: opts.MetricsPassword}),
				gin.WrapH(promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{})),
			)
		}
	}

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	a.r.GET("/depots", a.listDepotsHandler)
	a.r.GET("/manufacturers", a.listManufacturersHandler)
	throttle := func(c *gin.Context) { c.Next() }
	if opts.PublicLimiter != nil {
		throttle = opts.PublicLimiter.Handler()
	}
	a.r.POST("/reports", throttle, a.fileReportHandler)
	a.r.POST("/bikes/:id/positions", throttle, a.enqueuePositionHandler)
	a.r.GET("/stream", a.streamHandler)

	authenticate := opts.Auth
	if authenticate == nil {
		authenticate = func(c *gin.Context) { writeError(c, errUnauthenticated) }
	}

	auth := a.r.Group("/", authenticate)
	{
		auth.GET("/me", a.meHandler)

		auth.GET("/bikes", a.listBikesHandler)
		auth.POST("/bikes/found", a.markFoundBatchHandler)
		auth.GET("/bikes/:id", a.bikeHandler)
		auth.GET("/bikes/:id/locations", a.locationsHandler)
		auth.GET("/bikes/:id/location-history", a.locationHistoryHandler)
		auth.GET("/bikes/:id/missing-report", a.missingReportHandler)
		auth.GET("/bikes/:id/notes", a.listNotesHandler)
		auth.POST("/bikes/:id/notes", a.addNoteHandler)
		auth.POST("/bikes/:id/track", a.trackHandler)

		auth.POST("/bikes/:id/investigate", a.investigateHandler)
		auth.GET("/bikes/:id/attempts", a.listAttemptsHandler)
		auth.POST("/bikes/:id/attempts", a.startAttemptHandler)
		auth.POST("/bikes/:id/attempts/cancel", a.cancelAttemptHandler)
		auth.POST("/bikes/:id/found", a.markFoundHandler)
		auth.POST("/bikes/:id/lost", a.markLostHandler)

		auth.POST("/prioritize", a.prioritizeHandler)
		auth.GET("/statistics", a.statisticsHandler)
		auth.GET("/recoveries", a.recoveriesHandler)
		auth.POST("/manufacturers/:name/invoice", a.invoiceHandler)
	}

	return a
}

func (a *API) Router() *gin.Engine {
	return a.r
}
