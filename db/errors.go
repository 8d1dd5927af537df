package db

import "errors"

var (
	ErrPessoaNotFound = errors.New("pessoa not found")
	ErrCorruptData    = errors.New("stored pessoas are corrupt")
	ErrNotArray       = errors.New("json document is not an array")
)

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}
