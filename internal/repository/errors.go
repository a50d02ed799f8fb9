package repository

import "errors"

// ErrDuplicate is returned when a unique key (room per booking) already exists
var ErrDuplicate = errors.New("duplicate key")
