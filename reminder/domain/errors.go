package domain

import "errors"

var (
	ErrNotFound    = errors.New("reminder not found")
	ErrDuplicateID = errors.New("reminder id already exists")
)
