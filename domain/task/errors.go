package task

import "errors"

// ErrNotFound indicates the task does not exist in the user's collection.
var ErrNotFound = errors.New("task not found")
