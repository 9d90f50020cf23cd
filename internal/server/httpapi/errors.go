package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/labstack/echo/v4"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// ValidationError carries per-field messages keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}

func (e *ValidationError) Unwrap() error {
	return common.ErrorValidation
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, fmt.Sprintf(format, args...))
}

// statusFor maps an error to its HTTP status and the message shown to the
// client. Unknown errors become a generic 500; their text is only logged.
func statusFor(err error) (int, string, map[string]string) {
	var ve *ValidationError
	var he *echo.HTTPError

	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, "validation failed", ve.Fields
	case errors.As(err, &he):
		return he.Code, fmt.Sprint(he.Message), nil
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, err.Error(), nil
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, err.Error(), nil
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, err.Error(), nil
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict, err.Error(), nil
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, err.Error(), nil
	case errors.Is(err, common.ErrorTooManyRequests):
		return http.StatusTooManyRequests, err.Error(), nil
	default:
		return http.StatusInternalServerError, "internal server error", nil
	}
}

// errorHandler is installed as echo's HTTPErrorHandler.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, msg, details := statusFor(err)
	body := errorBody{Error: http.StatusText(code), Message: msg, Details: details}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(code)
	} else {
		werr = c.JSON(code, body)
	}
	if werr != nil {
		s.logger.Error(c.Request().Context(), "write error response", "error", werr)
	}
}
