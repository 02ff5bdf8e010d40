package models

import "errors"

// ErrNotFound is returned by boundary clients when the backend has no such resource.
var ErrNotFound = errors.New("not found")
