// Package api provides the REST API server for gridsynth
package api

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/james-see/gridsynth/pkg/config"
	"github.com/james-see/gridsynth/pkg/grid"
	"github.com/james-see/gridsynth/pkg/pitch"
	"github.com/james-see/gridsynth/pkg/render"
)

// @title GridSynth API
// @version 1.0
// @description API for turning painted note grids into MIDI
// @host localhost:8080
// @BasePath /api/v1

// RequestIDHeader carries the per-request ID
const RequestIDHeader = "X-Request-ID"

// GridRequest describes a grid and its painted cells
type GridRequest struct {
	Width       int      `json:"width" binding:"required,min=2,max=4096"`
	Height      int      `json:"height" binding:"required,min=1,max=128"`
	Duration    int      `json:"duration" binding:"omitempty,min=1"`
	StartOctave *int     `json:"startOctave"`
	Tempo       float64  `json:"tempo" binding:"omitempty,gt=0"`
	Cells       [][2]int `json:"cells"`
}

// NotesResponse lists the notes extracted from a grid
type NotesResponse struct {
	Count  int          `json:"count"`
	Events []grid.Event `json:"events"`
}

// Server serves the API
type Server struct {
	defaults *config.Config
	log      *logrus.Logger
}

// NewServer creates a server whose requests fall back to defaults
func NewServer(defaults *config.Config, log *logrus.Logger) *Server {
	return &Server{defaults: defaults, log: log}
}

// Router builds the gin engine
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.accessLog())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/pitch/:name", handlePitch)
		v1.POST("/notes", s.handleNotes)
		v1.POST("/render/midi", s.handleRenderMIDI)
		v1.POST("/render/png", s.handleRenderPNG)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// Handler returns the router wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, "Content-Disposition"},
	})
	return c.Handler(s.Router())
}

// StartServer starts the API server on the specified port
func StartServer(port int, defaults *config.Config, log *logrus.Logger) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewServer(defaults, log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"request_id": c.GetString("requestID"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"elapsed":    time.Since(start),
		}).Info("request")
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "gridsynth",
	})
}

// handlePitch godoc
// @Summary Convert a pitch name to a MIDI note number
// @Tags pitch
// @Produce json
// @Param name path string true "Pitch name, e.g. C#3 (escape # as %23)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/pitch/{name} [get]
func handlePitch(c *gin.Context) {
	name := c.Param("name")
	n, err := pitch.NameToNumber(name)
	if err != nil {
		var perr *pitch.ParseError
		if errors.As(err, &perr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": perr.Error(), "reason": perr.Reason})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "number": n})
}

// handleNotes godoc
// @Summary Extract notes from a grid
// @Tags notes
// @Accept json
// @Produce json
// @Param grid body GridRequest true "Grid and painted cells"
// @Success 200 {object} NotesResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/notes [post]
func (s *Server) handleNotes(c *gin.Context) {
	cfg, g, ok := s.bindGrid(c)
	if !ok {
		return
	}
	events := cfg.Extractor().Extract(g)
	c.JSON(http.StatusOK, NotesResponse{Count: len(events), Events: events})
}

// handleRenderMIDI godoc
// @Summary Render a grid to a MIDI file
// @Tags render
// @Accept json
// @Produce audio/midi
// @Param grid body GridRequest true "Grid and painted cells"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/render/midi [post]
func (s *Server) handleRenderMIDI(c *gin.Context) {
	cfg, g, ok := s.bindGrid(c)
	if !ok {
		return
	}

	data, err := cfg.Converter().GenerateMIDI(cfg.Extractor().Extract(g))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=grid-%s.mid", c.GetString("requestID")))
	c.Data(http.StatusOK, "audio/midi", data)
}

// handleRenderPNG godoc
// @Summary Render a grid to a PNG image
// @Tags render
// @Accept json
// @Produce image/png
// @Param grid body GridRequest true "Grid and painted cells"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/render/png [post]
func (s *Server) handleRenderPNG(c *gin.Context) {
	cfg, g, ok := s.bindGrid(c)
	if !ok {
		return
	}

	img, err := render.Render(g, cfg.StartOctave)
	if errors.Is(err, render.ErrTooLarge) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// bindGrid decodes a GridRequest and paints it onto a new grid. Cells
// outside the paintable area are ignored, as in the editor.
func (s *Server) bindGrid(c *gin.Context) (*config.Config, *grid.Grid, bool) {
	var req GridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, false
	}

	cfg := *s.defaults
	cfg.Width = req.Width
	cfg.Height = req.Height
	if req.Duration > 0 {
		cfg.Duration = req.Duration
	}
	if req.StartOctave != nil {
		cfg.StartOctave = *req.StartOctave
	}
	if req.Tempo > 0 {
		cfg.Tempo = req.Tempo
	}
	if err := cfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, false
	}

	g, err := cfg.NewGrid()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, false
	}
	for _, cell := range req.Cells {
		g.Paint(cell[0], cell[1])
	}
	return &cfg, g, true
}
