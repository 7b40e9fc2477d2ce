// Package solar computes an approximate sub-solar point from the wall clock.
// Longitude follows the mean sun at 15 degrees per hour and declination is a
// sinusoid over the year; neither the equation of time nor orbital
// eccentricity is modelled.
package solar

import (
	"fmt"
	"math"
	"time"
)

const (
	AxialTilt      = 23.5 // Earth's axial tilt in degrees
	EquinoxDay     = 81   // Day of year of the March equinox
	DaysPerYear    = 365
	DegreesPerHour = 15.0 // Apparent solar motion
)

// Position is the sub-solar point in degrees. Longitude is left unbounded;
// consumers that only use it through a cosine never need to wrap it.
type Position struct {
	Longitude   float64
	Declination float64
}

// At returns the sub-solar point for the given instant, interpreted in UTC.
func At(t time.Time) Position {
	t = t.UTC()
	return Position{
		Longitude:   Longitude(FractionalHour(t)),
		Declination: Declination(float64(t.YearDay())),
	}
}

// FractionalHour returns the UTC time of day in hours, including the
// sub-second part.
func FractionalHour(t time.Time) float64 {
	t = t.UTC()
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9
	return float64(t.Hour()) + float64(t.Minute())/60.0 + s/3600.0
}

// Longitude is zero at 12:00 UTC and decreases by 15 degrees per hour.
func Longitude(hour float64) float64 {
	return (12 - hour) * DegreesPerHour
}

// Declination accepts fractional days so solstices between whole days can
// be evaluated directly.
func Declination(dayOfYear float64) float64 {
	return AxialTilt * math.Sin(2*math.Pi*(dayOfYear-EquinoxDay)/DaysPerYear)
}

// NormalizedLongitude wraps Longitude into [-180, 180).
func (p Position) NormalizedLongitude() float64 {
	lon := math.Mod(p.Longitude+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// String formats the position as e.g. "12.3°W 4.5°N".
func (p Position) String() string {
	lon := p.NormalizedLongitude()
	ew := "E"
	if lon < 0 {
		ew = "W"
		lon = -lon
	}
	ns := "N"
	lat := p.Declination
	if lat < 0 {
		ns = "S"
		lat = -lat
	}
	return fmt.Sprintf("%.1f°%s %.1f°%s", lon, ew, lat, ns)
}
