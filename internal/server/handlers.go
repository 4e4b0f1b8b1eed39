package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gyeh/billingstats/internal/analysis"
	"github.com/gyeh/billingstats/internal/ingest"
	"github.com/gyeh/billingstats/internal/model"
)

// dataset wraps the episode array of one request section.
type dataset struct {
	Datos json.RawMessage `json:"datos"`
}

type analyzeRequest struct {
	Facturas   *dataset `json:"facturas"`
	Admisiones *dataset `json:"admisiones"`
}

type summaryRequest struct {
	Datos    json.RawMessage `json:"datos"`
	Columnas []string        `json:"columnas"`
	Grupo    string          `json:"grupo"`
	Nivel    float64         `json:"nivel"`
}

// Health reports that the process is serving.
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Analyze serves the invoice and admission dashboard.
func (s *Server) Analyze(c echo.Context) error {
	var req analyzeRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	var invoices, admissions []model.Record
	if req.Facturas != nil {
		recs, err := s.records(c, "facturas.datos", req.Facturas.Datos)
		if err != nil {
			return err
		}
		invoices = recs
	}
	if req.Admisiones != nil {
		recs, err := s.records(c, "admisiones.datos", req.Admisiones.Datos)
		if err != nil {
			return err
		}
		admissions = recs
	}
	if err := expired(c); err != nil {
		return err
	}

	d := analysis.DashboardOf(invoices, admissions)
	if err := expired(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// Summarize serves descriptive, correlation and inference results for the
// requested columns of an episode array.
func (s *Server) Summarize(c echo.Context) error {
	var req summaryRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if len(req.Datos) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "datos is required")
	}
	level := req.Nivel
	if level == 0 {
		level = s.cfg.ConfidenceLevel
	}
	if level <= 0 || level >= 1 {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("nivel must be in (0, 1), got %v", level))
	}

	recs, err := s.records(c, "datos", req.Datos)
	if err != nil {
		return err
	}
	if err := expired(c); err != nil {
		return err
	}

	sum := analysis.SummaryOf(ingest.EpisodeTable(recs), req.Columnas, req.Grupo, level)
	if err := expired(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}

// decodeBody reads a JSON request body into v. Body limit errors keep their
// status; anything else is a 400.
func decodeBody(c echo.Context, v any) error {
	if err := json.NewDecoder(c.Request().Body).Decode(v); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body: "+err.Error())
	}
	return nil
}

// records decodes one episode array, enforcing the configured row cap.
// Rejected entries are logged and skipped.
func (s *Server) records(c echo.Context, field string, raw json.RawMessage) ([]model.Record, error) {
	recs, rejected, err := ingest.DecodeRecords(raw, s.cfg.MaxRows)
	switch {
	case errors.Is(err, ingest.ErrTooManyRecords):
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("%s: %v", field, err))
	case err != nil:
		return nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s: %v", field, err))
	}
	if len(rejected) > 0 {
		s.log.Warn().
			Str("request_id", requestID(c)).
			Str("field", field).
			Int("rejected", len(rejected)).
			Str("first_reason", rejected[0].Reason).
			Msg("records rejected")
	}
	return recs, nil
}

// expired maps a done request context to 503.
func expired(c echo.Context) error {
	if err := c.Request().Context().Err(); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request timed out").SetInternal(err)
	}
	return nil
}
