package api

import (
	"net/http"

	"bizmetrics/app"
	"bizmetrics/domain/core"
	"bizmetrics/domain/experiment"

	"github.com/gin-gonic/gin"
)

type resultsRequest struct {
	Variants []experiment.VariantResult `json:"variants"`
}

// createExperiment handles POST /api/v1/experiments
func (s *Server) createExperiment(c *gin.Context) {
	var req app.CreateExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.invalidBody(c, err)
		return
	}
	exp, err := s.services.Experiments.Create(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exp)
}

// listExperiments handles GET /api/v1/experiments?limit=
func (s *Server) listExperiments(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	exps, err := s.services.Experiments.List(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"experiments": exps, "count": len(exps)})
}

// getExperiment handles GET /api/v1/experiments/:id
func (s *Server) getExperiment(c *gin.Context) {
	id, ok := s.experimentID(c)
	if !ok {
		return
	}
	exp, err := s.services.Experiments.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

// deleteExperiment handles DELETE /api/v1/experiments/:id
func (s *Server) deleteExperiment(c *gin.Context) {
	id, ok := s.experimentID(c)
	if !ok {
		return
	}
	if err := s.services.Experiments.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// submitResults handles PUT /api/v1/experiments/:id/results
func (s *Server) submitResults(c *gin.Context) {
	id, ok := s.experimentID(c)
	if !ok {
		return
	}
	var req resultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.invalidBody(c, err)
		return
	}
	exp, err := s.services.Experiments.SubmitResults(c.Request.Context(), id, req.Variants)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

// experimentReport handles GET /api/v1/experiments/:id/report. HTML by
// default; ?format=markdown returns the source.
func (s *Server) experimentReport(c *gin.Context) {
	id, ok := s.experimentID(c)
	if !ok {
		return
	}
	if c.Query("format") == "markdown" {
		md, err := s.services.Experiments.Report(c.Request.Context(), id)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
		return
	}
	page, err := s.services.Experiments.ReportHTML(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// analyzeExperiment handles POST /api/v1/experiments/analyze. Nothing is stored.
func (s *Server) analyzeExperiment(c *gin.Context) {
	var req app.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.invalidBody(c, err)
		return
	}
	summaries, err := s.services.Experiments.Analyze(req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summaries": summaries})
}

func (s *Server) experimentID(c *gin.Context) (core.ExperimentID, bool) {
	id, err := core.ParseExperimentID(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return "", false
	}
	return id, true
}
