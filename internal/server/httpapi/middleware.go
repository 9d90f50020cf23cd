package httpapi

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const requestIDHeader = echo.HeaderXRequestID

// recoverPanics turns a handler panic into a 500.
func (s *Server) recoverPanics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error(c.Request().Context(), "panic in handler",
					"panic", r, "stack", string(debug.Stack()), "request_id", requestID(c))
				commitError(c, fmt.Errorf("panic: %v", r))
				err = nil
			}
		}()
		return next(c)
	}
}

// assignRequestID keeps an incoming X-Request-ID or generates one.
func (s *Server) assignRequestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Response().Header().Set(requestIDHeader, id)
		return next(c)
	}
}

// logRequests writes one line per request. The error, if any, is rendered
// here so the logged status matches the response.
func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		commitError(c, next(c))
		err := committedError(c)

		req := c.Request()
		status := c.Response().Status
		args := []any{
			"method", req.Method,
			"route", routeOf(c),
			"path", req.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"request_id", requestID(c),
			"remote_ip", c.RealIP(),
		}
		if err != nil {
			args = append(args, "error", err.Error())
		}

		switch {
		case status >= http.StatusInternalServerError:
			s.logger.Error(req.Context(), "request failed", args...)
		case status >= http.StatusBadRequest:
			s.logger.Warn(req.Context(), "request rejected", args...)
		default:
			s.logger.Info(req.Context(), "request", args...)
		}
		return nil
	}
}

// observe records request count and latency per route template.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		commitError(c, next(c))
		s.metrics.ObserveRequest(c.Request().Method, routeOf(c), c.Response().Status, time.Since(start))
		return nil
	}
}

// authenticate resolves the bearer token into a caller.
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, err := bearerToken(c.Request().Header.Get(common.AuthorizationHeaderName))
		if err != nil {
			return err
		}

		u, err := s.auth.ResolveCaller(c.Request().Context(), token)
		if err != nil {
			return err
		}

		setCaller(c, u)
		return next(c)
	}
}

func bearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", fmt.Errorf("%w: missing bearer token", common.ErrorUnauthorized)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: missing bearer token", common.ErrorUnauthorized)
	}
	return token, nil
}

// commitError renders err through the error handler once and remembers it
// for outer middleware.
func commitError(c echo.Context, err error) {
	if err == nil {
		return
	}
	c.Set(errorKey, err)
	c.Error(err)
}

func committedError(c echo.Context) error {
	err, _ := c.Get(errorKey).(error)
	return err
}

func routeOf(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}
