package api

import (
	"net/http"
	"strconv"
	"strings"

	"bizmetrics/app"

	"github.com/gin-gonic/gin"
)

type trendRequest struct {
	Values []float64 `json:"values"`
	app.TrendOverrides
}

// trend handles POST /api/v1/timeseries/trend with a JSON series
func (s *Server) trend(c *gin.Context) {
	var req trendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.invalidBody(c, err)
		return
	}
	res, err := s.services.TimeSeries.Trend(req.Values, req.TrendOverrides)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// growth handles POST /api/v1/timeseries/growth with a multipart upload in
// "file" and form fields date_column, value_column, period, lag and flat_epsilon
func (s *Server) growth(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	header, err := c.FormFile("file")
	if err != nil {
		s.badRequest(c, "multipart field \"file\" is required")
		return
	}

	req := app.GrowthRequest{
		DateColumn:  c.PostForm("date_column"),
		ValueColumn: c.PostForm("value_column"),
		Period:      c.PostForm("period"),
	}
	if raw := strings.TrimSpace(c.PostForm("lag")); raw != "" {
		lag, err := strconv.Atoi(raw)
		if err != nil {
			s.badRequest(c, "lag must be an integer")
			return
		}
		req.Lag = lag
	}
	if raw := strings.TrimSpace(c.PostForm("flat_epsilon")); raw != "" {
		eps, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.badRequest(c, "flat_epsilon must be a number")
			return
		}
		req.FlatEpsilon = &eps
	}

	file, err := header.Open()
	if err != nil {
		s.badRequest(c, "cannot open uploaded file")
		return
	}
	defer file.Close()

	res, err := s.services.TimeSeries.GrowthUpload(c.Request.Context(), header.Filename, file, req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
