package client

import (
	"errors"

	"github.com/dmitrijs2005/boatlog/internal/common"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = common.ErrUnauthorized
	ErrNotFound     = common.ErrNotFound
	ErrConflict     = common.ErrAlreadyExists
)
