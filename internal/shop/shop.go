// Package shop defines the domain model for the shop directory and the
// submission validator that gates every mutating request.
package shop

import (
	"errors"
	"time"
)

// Point is a WGS84 coordinate pair in degrees.
type Point struct {
	Lon float64
	Lat float64
}

// Shop is a persisted directory entry. ID and LastEdited are assigned by the
// store on write and never accepted from callers.
type Shop struct {
	ID          int32
	Title       string
	URL         *string
	DonationURL *string
	Location    Point
	LastEdited  time.Time
}

// NewShop is a caller-constructed submission. It is used both to create a row
// and, unchanged, to identify the row to update: the update match key is
// exact equality on (Title, Location), not an ID. Two shops with identical
// title and point are indistinguishable to the update path.
type NewShop struct {
	Title       string
	URL         *string
	DonationURL *string
	Location    Point
}

// Store error kinds, surfaced by the persistence layer and mapped to HTTP
// responses at the handler boundary.
var (
	// ErrNotFound indicates no row matched the update key.
	ErrNotFound = errors.New("no matching shop")

	// ErrConstraint indicates a database-enforced constraint failed.
	ErrConstraint = errors.New("shop violates a constraint")
)
