package location

import (
	"context"
	"errors"
	"fmt"
)

// ErrGeolocationUnsupported is returned when no coordinate source exists.
var ErrGeolocationUnsupported = errors.New("geolocation is not supported")

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Validate rejects coordinates outside the valid ranges.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", c.Longitude)
	}
	return nil
}

// CoordinateSource yields the client's position, typically after a
// permission prompt on the client side.
type CoordinateSource interface {
	Position(ctx context.Context) (Coordinates, error)
}

// StaticSource is a CoordinateSource for coordinates already in hand,
// such as those a client sent with its request.
type StaticSource Coordinates

func (s StaticSource) Position(context.Context) (Coordinates, error) {
	c := Coordinates(s)
	if err := c.Validate(); err != nil {
		return Coordinates{}, err
	}
	return c, nil
}
