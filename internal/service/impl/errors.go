package impl

import "errors"

var (
	ErrEmptyPassword = errors.New("empty password")
	ErrNilStore      = errors.New("nil store")
)
