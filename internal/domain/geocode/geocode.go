package geocode

import (
	"context"
	"errors"
)

// ErrNoResult is returned when a provider answered but had no usable name.
var ErrNoResult = errors.New("no area name for coordinates")

// Resolver reverse-geocodes a coordinate pair into a display name.
type Resolver interface {
	Name() string
	ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error)
}
