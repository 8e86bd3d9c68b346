package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Depado/ginprom"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	sloggin "github.com/samber/slog-gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/database-playground/sqlgrader/lib/exercise"
	"github.com/database-playground/sqlgrader/lib/grader"
	"github.com/database-playground/sqlgrader/lib/sessions"
	"github.com/database-playground/sqlgrader/lib/sqlrunner"
)

var tracer = otel.Tracer("sqlgrader")

const (
	metricVerdicts = "grading_verdicts_total"
	metricDuration = "query_requests_duration_seconds"
)

type GradingService struct {
	p *ginprom.Prometheus

	catalog      *exercise.Catalog
	sessions     *sessions.Registry
	expected     *grader.ExpectedCache
	queryTimeout time.Duration
}

// newRouter wires the HTTP API. Metrics are registered on registry.
func newRouter(s *GradingService, logger *slog.Logger, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(sloggin.New(logger))

	p := ginprom.New(
		ginprom.Engine(r),
		ginprom.Path("/metrics"),
		ginprom.Registry(registry),
		ginprom.Ignore("/healthz"),
	)
	r.Use(p.Instrument())
	r.Use(otelgin.Middleware("sqlgrader"))

	p.AddCustomCounter(metricVerdicts, "The number of graded submissions per verdict.", []string{"verdict"})
	p.AddCustomHistogram(metricDuration, "The duration of each SQL request.", []string{"code"})
	s.p = p

	// Read at scrape time so expiry and capacity eviction are reflected.
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "grading_sessions_active",
		Help: "The number of live grading sessions.",
	}, func() float64 {
		return float64(s.sessions.Len())
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	r.GET("/exercises", s.ListExercises)
	r.GET("/exercises/:id", s.GetExercise)
	r.GET("/exercises/:id/expected", s.GetExpected)
	r.POST("/exercises/:id/sessions", s.StartSession)
	r.POST("/sessions/:id/run", s.RunSession)
	r.DELETE("/sessions/:id", s.DeleteSession)
	r.POST("/query", s.Query)

	return r
}

type ExerciseSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Task         string `json:"task"`
	InitialQuery string `json:"initial_query"`
}

func (s *GradingService) ListExercises(c *gin.Context) {
	defs := s.catalog.List()
	summaries := make([]ExerciseSummary, 0, len(defs))
	for _, def := range defs {
		summaries = append(summaries, ExerciseSummary{
			ID:           def.ID,
			Title:        def.Title,
			Task:         def.Task,
			InitialQuery: def.InitialQuery,
		})
	}

	c.JSON(http.StatusOK, NewSuccessResponse(summaries))
}

func (s *GradingService) GetExercise(c *gin.Context) {
	def, err := s.catalog.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, NewFailedResponse(err))
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse(def))
}

func (s *GradingService) GetExpected(c *gin.Context) {
	now := time.Now()

	ctx, span := tracer.Start(c.Request.Context(), "GradingService.GetExpected")
	defer span.End()

	def, err := s.catalog.Get(c.Param("id"))
	if err != nil {
		s.fail(c, http.StatusNotFound, err, now)
		return
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	outcome, err := s.expected.Expected(queryCtx, def)
	if err != nil {
		span.SetStatus(codes.Error, "expected error")
		span.RecordError(err)

		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		s.fail(c, status, err, now)
		return
	}
	if outcome.Failed() {
		span.SetStatus(codes.Error, "reference unavailable")
		s.fail(c, http.StatusConflict, ReferenceUnavailableError{Parent: outcome.Err}, now)
		return
	}

	s.observe(http.StatusOK, now)
	c.JSON(http.StatusOK, NewSuccessResponse(outcome.Results))
}

type StartSessionResponse struct {
	SessionID          string `json:"session_id"`
	ReferenceAvailable bool   `json:"reference_available"`
	InitialQuery       string `json:"initial_query"`
}

func (s *GradingService) StartSession(c *gin.Context) {
	now := time.Now()

	ctx, span := tracer.Start(c.Request.Context(), "GradingService.StartSession")
	defer span.End()

	def, err := s.catalog.Get(c.Param("id"))
	if err != nil {
		s.fail(c, http.StatusNotFound, err, now)
		return
	}
	span.SetAttributes(attribute.String("exercise.id", def.ID))

	span.AddEvent("session.start")
	id, session, err := s.sessions.Start(ctx, def)
	if err != nil {
		span.SetStatus(codes.Error, "initialization error")
		span.RecordError(err)

		status := http.StatusInternalServerError
		if errors.As(err, &sqlrunner.InitializationError{}) {
			status = http.StatusUnprocessableEntity
		}
		slog.ErrorContext(ctx, "start session", slog.String("exercise", def.ID), slog.Any("error", err))
		s.fail(c, status, err, now)
		return
	}
	s.observe(http.StatusCreated, now)
	span.SetStatus(codes.Ok, "success")
	c.JSON(http.StatusCreated, NewSuccessResponse(StartSessionResponse{
		SessionID:          id,
		ReferenceAvailable: session.ReferenceAvailable(),
		InitialQuery:       def.InitialQuery,
	}))
}

type RunRequest struct {
	Query string `json:"query"`
}

type RunResponse struct {
	Results  []sqlrunner.QueryResult `json:"results"`
	RowCount int                     `json:"row_count"`
	Feedback grader.Feedback         `json:"feedback"`
}

func (s *GradingService) RunSession(c *gin.Context) {
	now := time.Now()

	ctx, span := tracer.Start(c.Request.Context(), "GradingService.RunSession")
	defer span.End()

	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "bad payload")
		span.RecordError(err)
		s.fail(c, http.StatusUnprocessableEntity, BadPayloadError{Parent: err}, now)
		return
	}
	if req.Query == "" {
		span.SetStatus(codes.Error, "bad payload")
		s.fail(c, http.StatusUnprocessableEntity, NewBadPayloadError("Query is required"), now)
		return
	}

	session, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		s.fail(c, http.StatusNotFound, err, now)
		return
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	span.AddEvent("session.run")
	submission, err := session.Run(queryCtx, req.Query)
	if errors.Is(err, grader.ErrSessionClosed) {
		// Evicted between Get and Run.
		s.fail(c, http.StatusNotFound, sessions.ErrSessionNotFound, now)
		return
	}
	if err != nil {
		span.SetStatus(codes.Error, "run error")
		span.RecordError(err)
		s.fail(c, http.StatusInternalServerError, err, now)
		return
	}

	verdict := submission.Feedback.Verdict
	span.SetAttributes(attribute.String("grader.verdict", string(verdict)))
	if err := s.p.IncrementCounterValue(metricVerdicts, []string{string(verdict)}); err != nil {
		slog.WarnContext(ctx, "record verdict", slog.Any("error", err))
	}

	resp := RunResponse{
		Results:  submission.Outcome.Results,
		Feedback: submission.Feedback,
	}
	if resp.Results == nil {
		resp.Results = []sqlrunner.QueryResult{}
	}
	if first, ok := submission.Outcome.First(); ok {
		resp.RowCount = len(first.Rows)
	}

	s.observe(http.StatusOK, now)
	span.SetStatus(codes.Ok, "success")
	c.JSON(http.StatusOK, NewSuccessResponse(resp))
}

func (s *GradingService) DeleteSession(c *gin.Context) {
	if !s.sessions.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, NewFailedResponse(sessions.ErrSessionNotFound))
		return
	}

	c.Status(http.StatusNoContent)
}

type QueryRequest struct {
	Schema string `json:"schema"`
	Seed   string `json:"seed"`
	Query  string `json:"query"`
}

// Query runs a script against a throwaway database built from the
// request's schema and seed. Nothing is graded.
func (s *GradingService) Query(c *gin.Context) {
	now := time.Now()

	ctx, span := tracer.Start(c.Request.Context(), "GradingService.Query")
	defer span.End()

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "bad payload")
		span.RecordError(err)
		s.fail(c, http.StatusUnprocessableEntity, BadPayloadError{Parent: err}, now)
		return
	}

	if req.Schema == "" || req.Query == "" {
		span.SetStatus(codes.Error, "bad payload")
		s.fail(c, http.StatusUnprocessableEntity, NewBadPayloadError("Schema and Query are required"), now)
		return
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	span.AddEvent("sqlrunner.open")
	db, err := sqlrunner.Open(queryCtx, req.Schema, req.Seed)
	if err != nil {
		span.SetStatus(codes.Error, "initialization error")
		span.RecordError(err)

		status := http.StatusInternalServerError
		if errors.As(err, &sqlrunner.InitializationError{}) {
			status = http.StatusBadRequest
		}
		s.fail(c, status, err, now)
		return
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.WarnContext(ctx, "close scratch database", slog.Any("error", err))
		}
	}()

	span.AddEvent("sqlrunner.execute")
	outcome := db.Execute(queryCtx, req.Query)
	if outcome.Failed() {
		span.SetStatus(codes.Error, "query error")
		span.RecordError(outcome.Err)
		s.fail(c, http.StatusBadRequest, outcome.Err, now)
		return
	}

	s.observe(http.StatusOK, now)
	span.SetStatus(codes.Ok, "success")
	c.JSON(http.StatusOK, NewSuccessResponse(outcome.Results))
}

func (s *GradingService) fail(c *gin.Context, status int, err error, started time.Time) {
	s.observe(status, started)
	c.JSON(status, NewFailedResponse(err))
}

func (s *GradingService) observe(status int, started time.Time) {
	if err := s.p.AddCustomHistogramValue(metricDuration, []string{strconv.Itoa(status)}, time.Since(started).Seconds()); err != nil {
		slog.Warn("record request duration", slog.Any("error", err))
	}
}
