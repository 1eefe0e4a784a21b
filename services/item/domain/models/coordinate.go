package models

import "fmt"

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// NewCoordinate validates the latitude and longitude ranges.
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	if lat < -90 || lat > 90 {
		return Coordinate{}, fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if lng < -180 || lng > 180 {
		return Coordinate{}, fmt.Errorf("longitude %v out of range [-180, 180]", lng)
	}
	return Coordinate{Latitude: lat, Longitude: lng}, nil
}
