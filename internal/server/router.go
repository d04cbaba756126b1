package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tigerroll/gridpulse/internal/analysis"
	"github.com/tigerroll/gridpulse/internal/cluster"
	"github.com/tigerroll/gridpulse/internal/domain/schema"
	"github.com/tigerroll/gridpulse/internal/export"
	"github.com/tigerroll/gridpulse/internal/forecast"
	"github.com/tigerroll/gridpulse/internal/ingest"
	"github.com/tigerroll/gridpulse/internal/repository"
	"github.com/tigerroll/gridpulse/internal/support/logger"
)

// Pipelines bundles the pipelines the trigger endpoints hand off to. The
// exporter piggybacks on the analysis trigger so every refreshed analysis
// table leaves a snapshot behind.
type Pipelines struct {
	Ingest   *ingest.Pipeline
	Analysis *analysis.Pipeline
	Forecast *forecast.Pipeline
	Cluster  *cluster.Pipeline
	Export   *export.Exporter
}

// Handler holds the dependencies of the HTTP API.
type Handler struct {
	measurements repository.MeasurementRepository
	analysis     repository.AnalysisRepository
	predictions  repository.PredictionRepository
	pipelines    Pipelines
	runner       *Runner
	registry     *prometheus.Registry

	now func() time.Time
}

// NewHandler creates the API handler.
func NewHandler(
	measurements repository.MeasurementRepository,
	analysisRepo repository.AnalysisRepository,
	predictions repository.PredictionRepository,
	pipelines Pipelines,
	runner *Runner,
	registry *prometheus.Registry,
) *Handler {
	return &Handler{
		measurements: measurements,
		analysis:     analysisRepo,
		predictions:  predictions,
		pipelines:    pipelines,
		runner:       runner,
		registry:     registry,
		now:          time.Now,
	}
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", h.root)
	router.GET("/measurements", h.getMeasurements)
	router.GET("/analysis", h.getAnalysis)
	router.GET("/analysis/correlations", h.getCorrelations)
	router.GET("/predictions", h.getPredictions)
	router.GET("/status/latest", h.getLatestStatus)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})))

	router.POST("/trigger-ingestion", h.triggerIngestion)
	router.POST("/trigger-analysis", h.trigger("analysis", func(ctx context.Context) error {
		if err := h.pipelines.Analysis.Run(ctx); err != nil {
			return err
		}
		// Snapshot export failure does not undo the completed analysis run.
		if err := h.pipelines.Export.Run(ctx); err != nil {
			logger.Errorf("Analysis snapshot export failed: %v", err)
		}
		return nil
	}))
	router.POST("/trigger-prediction", h.trigger("prediction", func(ctx context.Context) error {
		return h.pipelines.Forecast.Run(ctx)
	}))
	router.POST("/trigger-clustering", h.trigger("clustering", func(ctx context.Context) error {
		return h.pipelines.Cluster.Run(ctx)
	}))

	return router
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "GridPulse electricity analysis API"})
}

// rangeStart maps a range query parameter onto its lookback start time.
func (h *Handler) rangeStart(c *gin.Context, fallback string) time.Time {
	now := h.now().UTC()
	switch c.DefaultQuery("range", fallback) {
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, 0, -30)
	default:
		return now.AddDate(0, 0, -1)
	}
}

type measurementDTO struct {
	Datetime        string  `json:"datetime"`
	Zone            string  `json:"zone"`
	CarbonIntensity float64 `json:"carbon_intensity"`
	SolarMW         float64 `json:"solar_mw"`
	WindMW          float64 `json:"wind_mw"`
	GasMW           float64 `json:"gas_mw"`
	HydroMW         float64 `json:"hydro_mw"`
	UnknownMW       float64 `json:"unknown_mw"`
	ClusterID       *int    `json:"cluster_id,omitempty"`
}

func (h *Handler) getMeasurements(c *gin.Context) {
	since := h.rangeStart(c, "day")
	rows, err := h.measurements.ListSince(c.Request.Context(), since)
	if err != nil {
		logger.Errorf("Failed to list measurements: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	data := make([]measurementDTO, len(rows))
	for i, m := range rows {
		data[i] = measurementDTO{
			Datetime:        m.Timestamp.UTC().Format(time.RFC3339),
			Zone:            m.Zone,
			CarbonIntensity: m.CarbonIntensity,
			SolarMW:         m.SolarMW,
			WindMW:          m.WindMW,
			GasMW:           m.GasMW,
			HydroMW:         m.HydroMW,
			UnknownMW:       m.UnknownMW,
			ClusterID:       m.ClusterID,
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(data), "data": data})
}

type analysisDTO struct {
	Datetime        string  `json:"datetime"`
	SolarMW         float64 `json:"solar_mw"`
	WindMW          float64 `json:"wind_mw"`
	GasMW           float64 `json:"gas_mw"`
	SolarTrend      float64 `json:"solar_trend"`
	SolarSeasonal   float64 `json:"solar_seasonal"`
	SolarResidual   float64 `json:"solar_residual"`
	SolarNormalized float64 `json:"solar_normalized"`
	WindNormalized  float64 `json:"wind_normalized"`
}

func (h *Handler) getAnalysis(c *gin.Context) {
	since := h.rangeStart(c, "day")
	rows, err := h.analysis.ListSince(c.Request.Context(), since)
	if err != nil {
		logger.Errorf("Failed to list analysis rows: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	data := make([]analysisDTO, len(rows))
	for i, r := range rows {
		data[i] = analysisDTO{
			Datetime:        r.Timestamp.UTC().Format(time.RFC3339),
			SolarMW:         r.SolarMW,
			WindMW:          r.WindMW,
			GasMW:           r.GasMW,
			SolarTrend:      r.SolarTrend,
			SolarSeasonal:   r.SolarSeasonal,
			SolarResidual:   r.SolarResidual,
			SolarNormalized: r.SolarNormalized,
			WindNormalized:  r.WindNormalized,
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(data), "data": data})
}

type correlationDTO struct {
	FeatureX         string  `json:"feature_x"`
	FeatureY         string  `json:"feature_y"`
	CorrelationValue float64 `json:"correlation_value"`
	UpdatedAt        string  `json:"updated_at"`
}

func (h *Handler) getCorrelations(c *gin.Context) {
	rows, err := h.analysis.ListCorrelations(c.Request.Context())
	if err != nil {
		logger.Errorf("Failed to list correlations: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	data := make([]correlationDTO, len(rows))
	for i, r := range rows {
		data[i] = correlationDTO{
			FeatureX:         r.FeatureX,
			FeatureY:         r.FeatureY,
			CorrelationValue: r.CorrelationValue,
			UpdatedAt:        r.UpdatedAt.UTC().Format(time.RFC3339),
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(data), "data": data})
}

type predictionDTO struct {
	ID             uint    `json:"id"`
	PredictionTime string  `json:"prediction_time"`
	TargetTime     string  `json:"target_time"`
	PredictedMW    float64 `json:"predicted_solar_mw"`
	ClusterID      *int    `json:"cluster_id,omitempty"`
}

func (h *Handler) getPredictions(c *gin.Context) {
	rows, err := h.predictions.ListUpcoming(c.Request.Context(), h.now().UTC())
	if err != nil {
		logger.Errorf("Failed to list predictions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if len(rows) > schema.ForecastHorizons {
		rows = rows[:schema.ForecastHorizons]
	}

	data := make([]predictionDTO, len(rows))
	for i, r := range rows {
		data[i] = predictionDTO{
			ID:             r.ID,
			PredictionTime: r.PredictionTime.UTC().Format(time.RFC3339),
			TargetTime:     r.TargetTime.UTC().Format(time.RFC3339),
			PredictedMW:    r.PredictedMW,
			ClusterID:      r.ClusterID,
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(data), "data": data})
}

func (h *Handler) getLatestStatus(c *gin.Context) {
	m, err := h.measurements.Latest(c.Request.Context())
	if err != nil {
		logger.Errorf("Failed to load latest measurement: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if m == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": nil, "message": "no measurements recorded yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": measurementDTO{
			Datetime:        m.Timestamp.UTC().Format(time.RFC3339),
			Zone:            m.Zone,
			CarbonIntensity: m.CarbonIntensity,
			SolarMW:         m.SolarMW,
			WindMW:          m.WindMW,
			GasMW:           m.GasMW,
			HydroMW:         m.HydroMW,
			UnknownMW:       m.UnknownMW,
			ClusterID:       m.ClusterID,
		},
	})
}

// triggerRequest is the body of the ingestion trigger. Action selects
// realtime or backfill; start_date forces the backfill start.
type triggerRequest struct {
	Action    string `json:"action"`
	StartDate string `json:"start_date"`
}

func (h *Handler) triggerIngestion(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	if req.Action == "" {
		req.Action = "realtime"
	}

	var forceStart *time.Time
	if req.StartDate != "" {
		ts, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "start_date must be YYYY-MM-DD"})
			return
		}
		forceStart = &ts
	}

	var fn func(ctx context.Context) error
	switch req.Action {
	case "realtime":
		fn = h.pipelines.Ingest.IngestRealtime
	case "backfill":
		fn = func(ctx context.Context) error {
			return h.pipelines.Ingest.IngestBackfill(ctx, forceStart)
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "action must be 'realtime' or 'backfill'"})
		return
	}

	h.launch(c, "ingestion", fn)
}

// trigger builds a handler that launches the named pipeline.
func (h *Handler) trigger(name string, fn func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.launch(c, name, fn)
	}
}

func (h *Handler) launch(c *gin.Context, name string, fn func(ctx context.Context) error) {
	if err := h.runner.Launch(name, fn); err != nil {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "pipeline '" + name + "' is already running"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "pipeline '" + name + "' triggered"})
}
