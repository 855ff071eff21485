package models

import "math"

// Coordinates represents a geographical point defined by its longitude and latitude.
type Coordinates struct {
	Longitude float64 // Longitude of the geographical point.
	Latitude  float64 // Latitude of the geographical point.
}

// InWGS84Range reports whether the point lies within -90..90 latitude and -180..180 longitude.
func (c Coordinates) InWGS84Range() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Rounded returns the coordinates rounded to the given number of decimal places.
func (c Coordinates) Rounded(places int) Coordinates {
	scale := math.Pow10(places)
	return Coordinates{
		Longitude: math.Round(c.Longitude*scale) / scale,
		Latitude:  math.Round(c.Latitude*scale) / scale,
	}
}
