package storage

import (
	"fmt"

	"eaglechat-server/internal/common/errors"
)

func errDuplicate(what string) error {
	return errors.ValidationError(fmt.Sprintf("duplicate %s", what)).WithCode("DUPLICATE")
}

func errNotFound(what string) error {
	return errors.NotFoundError(what)
}

func errStoreFailed() error {
	return errors.InternalError("store operation failed", nil)
}
