package httpapi

import (
	"fmt"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/labstack/echo/v4"
)

const (
	callerKey    = "caller"
	requestIDKey = "request_id"
	errorKey     = "handler_error"
)

func setCaller(c echo.Context, u *models.User) {
	c.Set(callerKey, u)
}

// callerFrom returns the authenticated user. Handlers behind authenticate
// always have one.
func callerFrom(c echo.Context) (*models.User, error) {
	u, ok := c.Get(callerKey).(*models.User)
	if !ok || u == nil {
		return nil, fmt.Errorf("%w: authentication required", common.ErrorUnauthorized)
	}
	return u, nil
}

func requestID(c echo.Context) string {
	id, _ := c.Get(requestIDKey).(string)
	return id
}
