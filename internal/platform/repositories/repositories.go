package repositories

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrPathExists = errors.New("webhook path already exists")
)
