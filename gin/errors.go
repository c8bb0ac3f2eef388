package gin

import (
	"context"
	"errors"
	"net/http"

	"github.com/fwojciec/docchat"
	dcjson "github.com/fwojciec/docchat/json"
	"github.com/gin-gonic/gin"
)

// statusOf maps an error raised before streaming to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, docchat.ErrEmptyQuery), errors.Is(err, docchat.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, docchat.ErrNoActiveDocument):
		return http.StatusNotFound
	case errors.Is(err, docchat.ErrUnsupportedDocument):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, docchat.ErrSessionActive):
		return http.StatusConflict
	case errors.Is(err, docchat.ErrUpstreamUnavailable), errors.Is(err, docchat.ErrUpstreamRejected):
		return http.StatusBadGateway
	case errors.Is(err, dcjson.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, dcjson.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// reject answers with a JSON error body. Internal errors are logged, not
// echoed.
func (s *Server) reject(c *gin.Context, err error) {
	status := statusOf(err)
	body := dcjson.NewErrorBody(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	s.metrics.Rejected(body.Code)
	c.AbortWithStatusJSON(status, body)
}

// streamErrorMessage is the in-band description of a failure after the
// stream started.
func streamErrorMessage(err error) string {
	switch {
	case errors.Is(err, docchat.ErrTruncatedStream):
		return "upstream response ended inside a character"
	case errors.Is(err, docchat.ErrUpstreamAborted):
		return "upstream connection lost"
	case errors.Is(err, context.DeadlineExceeded):
		return "upstream timed out"
	default:
		return "stream failed"
	}
}
