// Package services contains server-side business logic: authentication,
// user accounts and posts. Services own transactions; repositories are bound
// to the pool or to a transaction through the RepositoryManager.
package services

import (
	"errors"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/samber/oops"
)

var domainErrors = []error{
	common.ErrorNotFound,
	common.ErrorConflict,
	common.ErrorForbidden,
	common.ErrorUnauthorized,
	common.ErrorValidation,
}

// wrapUnexpected leaves domain errors untouched so the HTTP boundary can
// classify them, and attaches an oops code plus the failing operation to
// everything else.
func wrapUnexpected(err error, code, operation string) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return oops.Code(code).In("services").With("operation", operation).Wrap(err)
}
