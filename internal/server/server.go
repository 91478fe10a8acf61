// Package server exposes the prediction pipeline over HTTP: an HTML form for
// people and a JSON API for programs.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Skufu/GlycoRisk/internal/features"
	"github.com/Skufu/GlycoRisk/internal/pipeline"
)

// HealthChecker is satisfied by *pgxpool.Pool.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Predictor is satisfied by *pipeline.Pipeline.
type Predictor interface {
	Run(rec features.Record) (pipeline.Result, error)
}

// UsageNote is shown next to the form.
const UsageNote = "Predictions come from a neural network trained on several health attributes. " +
	"Values are for demonstration only and are not a medical diagnosis."

//go:embed templates/*.html
var templateFS embed.FS

type Options struct {
	Predictor   Predictor
	DB          HealthChecker
	CORSOrigins []string
	MaxBodySize int64
}

type handler struct {
	predictor Predictor
	db        HealthChecker
}

// NewRouter wires middleware and routes.
func NewRouter(opts Options) *gin.Engine {
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 1 << 20
	}

	router := gin.New()
	router.Use(
		gin.Logger(),
		gin.Recovery(),
		limitBodySize(opts.MaxBodySize),
		cors.New(corsConfig(opts.CORSOrigins)),
	)

	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"percent": formatPercent,
	}).ParseFS(templateFS, "templates/*.html"))
	router.SetHTMLTemplate(tmpl)

	h := &handler{predictor: opts.Predictor, db: opts.DB}

	router.GET("/", h.index)
	router.POST("/predict", h.predictForm)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", h.ready)

	api := router.Group("/api/v1")
	{
		api.POST("/predict", h.predictJSON)
		api.GET("/schema", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"columns": features.Columns(),
				"widgets": features.FormWidgets(),
			})
		})
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (h *handler) ready(c *gin.Context) {
	if h.predictor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "model": "not loaded"})
		return
	}
	if h.db == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "model": "loaded", "db": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"model":  "loaded",
			"db":     fmt.Sprintf("unhealthy: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "model": "loaded", "db": "ok"})
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p*100, 'f', 2, 64) + "%"
}
