package services

import (
	"fmt"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
)

// assertOwner allows action on a post only for its author. Callers run it
// after the post was loaded (so NotFound wins) and before any write.
func assertOwner(ownerID int64, caller *models.User, action string) error {
	if caller == nil {
		return common.ErrorUnauthorized
	}
	if ownerID != caller.ID {
		return fmt.Errorf("%w: you can only %s your own posts", common.ErrorForbidden, action)
	}
	return nil
}

// assertSelf is the account counterpart of assertOwner.
func assertSelf(userID int64, caller *models.User, action string) error {
	if caller == nil {
		return common.ErrorUnauthorized
	}
	if userID != caller.ID {
		return fmt.Errorf("%w: you can only %s your own account", common.ErrorForbidden, action)
	}
	return nil
}
