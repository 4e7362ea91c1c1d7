package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"bizmetrics/app"
	"bizmetrics/domain/core"
	"bizmetrics/domain/metric"
	"bizmetrics/internal/report"

	"github.com/gin-gonic/gin"
)

// listMetrics handles GET /api/v1/metrics?category=
func (s *Server) listMetrics(c *gin.Context) {
	category := metric.Category(strings.ToLower(c.Query("category")))
	defs, err := s.services.Metrics.ListMetrics(category)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": defs, "count": len(defs)})
}

// availableMetrics handles GET /api/v1/metrics/available
func (s *Server) availableMetrics(c *gin.Context) {
	available := s.services.Metrics.Available()
	total := 0
	for _, defs := range available {
		total += len(defs)
	}
	c.JSON(http.StatusOK, gin.H{"categories": available, "total": total})
}

// calculateMetrics handles POST /api/v1/metrics/calculate with a multipart
// upload in "file". Form fields: metrics (comma list or "all"), category,
// period, lifespan_months, cash_balance, funnel_stages, persist and format
// (json, markdown or html).
func (s *Server) calculateMetrics(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	header, err := c.FormFile("file")
	if err != nil {
		s.badRequest(c, "multipart field \"file\" is required")
		return
	}

	req, err := calculateRequest(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	format := strings.ToLower(c.DefaultPostForm("format", "json"))
	if format != "json" && format != "markdown" && format != "html" {
		s.badRequest(c, fmt.Sprintf("unknown format %q", format))
		return
	}

	file, err := header.Open()
	if err != nil {
		s.badRequest(c, "cannot open uploaded file")
		return
	}
	defer file.Close()

	stored, err := s.services.Metrics.CalculateUpload(c.Request.Context(), header.Filename, file, req)
	if err != nil {
		s.respondError(c, err)
		return
	}

	switch format {
	case "markdown":
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(s.services.Metrics.Markdown(stored)))
	case "html":
		page, err := report.Page("Metrics report", s.services.Metrics.Markdown(stored))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", page)
	default:
		c.JSON(http.StatusOK, stored)
	}
}

func calculateRequest(c *gin.Context) (app.CalculateRequest, error) {
	req := app.CalculateRequest{
		Category: metric.Category(strings.ToLower(strings.TrimSpace(c.PostForm("category")))),
		Options: metric.Options{
			Period:       strings.TrimSpace(c.PostForm("period")),
			FunnelStages: splitList(c.PostForm("funnel_stages")),
		},
	}

	names := strings.TrimSpace(c.PostForm("metrics"))
	if names != "" && !strings.EqualFold(names, "all") {
		req.Names = splitList(names)
	}

	if raw := strings.TrimSpace(c.PostForm("lifespan_months")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, core.NewInvalidInputError("lifespan_months", "%q is not an integer", raw)
		}
		req.Options.LifespanMonths = n
	}
	if raw := strings.TrimSpace(c.PostForm("cash_balance")); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, core.NewInvalidInputError("cash_balance", "%q is not a number", raw)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return req, core.NewInvalidInputError("cash_balance", "%q is not a finite number", raw)
		}
		req.Options.CashBalance = &f
	}
	if raw := strings.TrimSpace(c.PostForm("persist")); raw != "" {
		persist, err := strconv.ParseBool(raw)
		if err != nil {
			return req, core.NewInvalidInputError("persist", "%q is not a boolean", raw)
		}
		req.Persist = persist
	}
	return req, nil
}

// listReports handles GET /api/v1/metrics/reports?limit=
func (s *Server) listReports(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	reports, err := s.services.Metrics.ListReports(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// getReport handles GET /api/v1/metrics/reports/:id
func (s *Server) getReport(c *gin.Context) {
	id, err := core.ParseReportID(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	stored, err := s.services.Metrics.GetReport(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stored)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func queryLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, core.NewInvalidInputError("limit", "%q is not a non-negative integer", raw)
	}
	return limit, nil
}
