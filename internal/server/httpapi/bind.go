package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/labstack/echo/v4"
)

const (
	// maxBodyBytes caps request bodies.
	maxBodyBytes = 1 << 20

	// maxPage keeps (page-1)*limit from overflowing int.
	maxPage = math.MaxInt / common.MaxLimit
)

// bindStrict decodes exactly one JSON object into dst, rejecting unknown
// fields, and validates it.
func bindStrict(c echo.Context, dst any) error {
	dec := json.NewDecoder(io.LimitReader(c.Request().Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return badRequest("malformed JSON")
		case errors.As(err, &typeErr):
			return badRequest("field %q has the wrong type", typeErr.Field)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return badRequest("unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		default:
			return badRequest("invalid request body")
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}

	return c.Validate(dst)
}

// pathID reads a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, badRequest("%s must be a positive integer", name)
	}
	return id, nil
}

// pageParams reads the optional page and limit query parameters.
func pageParams(c echo.Context) (models.Page, error) {
	p := models.DefaultPage()

	var err error
	if p.Page, err = positiveQuery(c, "page", p.Page); err != nil {
		return p, err
	}
	if p.Limit, err = positiveQuery(c, "limit", p.Limit); err != nil {
		return p, err
	}
	if p.Limit > common.MaxLimit {
		return p, badRequest("limit must not exceed %d", common.MaxLimit)
	}
	if p.Page > maxPage {
		return p, badRequest("page must not exceed %d", maxPage)
	}
	return p, nil
}

func positiveQuery(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, badRequest("%s must be a positive integer", name)
	}
	return n, nil
}
