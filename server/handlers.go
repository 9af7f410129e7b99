package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spektr-org/tablero/assistant"
	"github.com/spektr-org/tablero/dashboard"
	"github.com/spektr-org/tablero/dataset"
	"github.com/spektr-org/tablero/engine"
	"github.com/spektr-org/tablero/render"
	"github.com/spektr-org/tablero/schema"
	"github.com/spektr-org/tablero/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrInvalidWidget),
		errors.Is(err, assistant.ErrEmptyInput),
		errors.Is(err, assistant.ErrUnknownMode),
		errors.Is(err, render.ErrUnsupportedFormat),
		errors.Is(err, dataset.ErrUnsupportedFormat),
		errors.Is(err, dataset.ErrNoHeader),
		errors.Is(err, engine.ErrUnknownColumn):
		return http.StatusBadRequest
	case errors.Is(err, dataset.ErrUnknownDataset),
		errors.Is(err, dashboard.ErrUnknownChart),
		errors.Is(err, render.ErrEmptyChart):
		return http.StatusNotFound
	case errors.Is(err, assistant.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, assistant.ErrProvider):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("❌ request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// ping handles GET /api/ping
func (s *Server) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// ============================================================================
// DATASETS
// ============================================================================

type datasetSummary struct {
	Name     string    `json:"name"`
	Origin   string    `json:"origin"`
	Rows     int       `json:"rows"`
	Columns  []string  `json:"columns"`
	Skipped  int       `json:"skipped"`
	LoadedAt time.Time `json:"loadedAt"`
}

type datasetDetail struct {
	datasetSummary
	Info   *engine.FrameInfo `json:"info"`
	Schema *schema.Config    `json:"schema,omitempty"`
}

func summarize(e *dataset.Entry) datasetSummary {
	return datasetSummary{
		Name:     e.Name,
		Origin:   e.Origin,
		Rows:     e.Frame.Len(),
		Columns:  e.Frame.Columns,
		Skipped:  e.Skipped,
		LoadedAt: e.LoadedAt,
	}
}

// listDatasets handles GET /api/datasets
func (s *Server) listDatasets(c *gin.Context) {
	out := []datasetSummary{}
	for _, name := range s.registry.Names() {
		entry, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		out = append(out, summarize(entry))
	}
	c.JSON(http.StatusOK, out)
}

// getDataset handles GET /api/datasets/:name
func (s *Server) getDataset(c *gin.Context) {
	entry, err := s.registry.Get(c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, datasetDetail{
		datasetSummary: summarize(entry),
		Info:           engine.Info(entry.Frame),
		Schema:         entry.Schema,
	})
}

// exportDataset handles GET /api/datasets/:name/export.xlsx
func (s *Server) exportDataset(c *gin.Context) {
	entry, err := s.registry.Get(c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := dataset.WriteXLSX(&buf, entry.Name, entry.Frame.ToTable(entry.Name)); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, entry.Name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// importDataset handles POST /api/datasets/:name/import
func (s *Server) importDataset(c *gin.Context) {
	name := c.Param("name")

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error retrieving uploaded file: " + err.Error()})
		return
	}
	defer file.Close()

	s.logger.Info("📥 dataset upload", zap.String("dataset", name), zap.String("file", header.Filename))

	entry, err := s.registry.Import(name, header.Filename, file)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Import successful",
		"dataset": summarize(entry),
	})
}

// ============================================================================
// PAGES
// ============================================================================

// studentsPage handles GET /api/pages/students
func (s *Server) studentsPage(c *gin.Context) {
	page, err := s.dashboard.Students(c.Request.URL.Query())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// casesPage handles GET /api/pages/cases
func (s *Server) casesPage(c *gin.Context) {
	page, err := s.dashboard.Cases(c.Request.URL.Query())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// casesChart handles GET /api/pages/cases/charts/:chart?format=png|svg
func (s *Server) casesChart(c *gin.Context) {
	format, err := render.ParseFormat(c.Query("format"))
	if err != nil {
		s.fail(c, err)
		return
	}

	// format is not a widget; the rest of the query is page state.
	q := c.Request.URL.Query()
	q.Del("format")

	cfg, err := s.dashboard.CasesChart(c.Param("chart"), q)
	if err != nil {
		s.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := render.RenderChart(cfg, format, &buf); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// ============================================================================
// ASSISTANT
// ============================================================================

type generateRequest struct {
	Mode    string               `json:"mode"`
	Input   string               `json:"input"`
	Session string               `json:"session"`
	Plan    *assistant.StudyPlan `json:"plan,omitempty"`
}

type generateResponse struct {
	Reply    *assistant.Reply    `json:"reply"`
	Sections []dashboard.Section `json:"sections"`
}

// generate handles POST /api/assistant
func (s *Server) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	mode := assistant.ModeChat
	if req.Mode != "" {
		m, err := assistant.ParseMode(req.Mode)
		if err != nil {
			s.fail(c, err)
			return
		}
		mode = m
	}

	opts := []assistant.GenerateOption{assistant.ForSession(req.Session)}
	if req.Plan != nil {
		opts = append(opts, assistant.WithStudyPlan(*req.Plan))
	}

	reply, err := s.assistant.Generate(c.Request.Context(), mode, req.Input, opts...)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, generateResponse{Reply: reply, Sections: dashboard.ReplySections(reply)})
}

// history handles GET /api/assistant/history/:session?limit=n
func (s *Server) history(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	entries, err := s.assistant.History(c.Request.Context(), c.Param("session"), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if entries == nil {
		entries = []store.HistoryEntry{}
	}
	c.JSON(http.StatusOK, entries)
}
