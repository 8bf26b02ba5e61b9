// Package repository implements the MySQL persistence layer: the
// order, history, capacity, tour, user and token repositories plus
// the transactional store the booking engine mutates through.  This
// file defines sentinel error values reused across repositories so
// higher layers such as handlers can distinguish failure scenarios
// without string matching.
package repository

import "errors"

// ErrTourNotFound is returned when the requested tour does not
// exist or is inactive.
var ErrTourNotFound = errors.New("tour not found")
