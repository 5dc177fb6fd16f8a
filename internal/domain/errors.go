package domain

import "errors"

// ErrNoIdentity is returned when no local identity has been created yet.
var ErrNoIdentity = errors.New("no identity on disk")
