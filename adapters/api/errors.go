package api

import (
	"net/http"

	"bizmetrics/internal/errors"

	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// respondError maps err to a status and a structured body. Internal errors
// are logged and their details withheld.
func (s *Server) respondError(c *gin.Context, err error) {
	appErr := errors.FromDomain(err)
	status := errors.HTTPStatus(appErr.Code)
	body := errorBody{Code: appErr.Code, Message: appErr.Error(), Missing: appErr.Missing}
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		body.Message = "internal server error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: body})
}

func (s *Server) badRequest(c *gin.Context, message string) {
	s.respondError(c, errors.InvalidInput(message))
}

// invalidBody answers a JSON body that failed to bind
func (s *Server) invalidBody(c *gin.Context, err error) {
	s.respondError(c, errors.ValidationError("invalid JSON body: "+err.Error()))
}
