package tasks

import "errors"

var (
	ErrNotFound   = errors.New("task not found")
	ErrEmptyTitle = errors.New("task title is empty")
)
