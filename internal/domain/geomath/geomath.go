// Package geomath provides the midpoint and great-circle distance
// calculations the recommendation pipeline is built on.
package geomath

import (
	"math"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
)

// earthRadiusM is the mean Earth radius in meters.
const earthRadiusM = 6371008.8

// Point is a coordinate pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// MidpointArithmetic returns the arithmetic mean of the latitudes and of
// the longitudes. This is the canonical midpoint for group searches: it is
// order-independent for any number of points.
func MidpointArithmetic(points []Point) (Point, error) {
	if len(points) == 0 {
		return Point{}, types.ErrEmptyPoints
	}

	var sumLat, sumLng float64
	for _, p := range points {
		sumLat += p.Lat
		sumLng += p.Lng
	}
	n := float64(len(points))
	return Point{Lat: sumLat / n, Lng: sumLng / n}, nil
}

// MidpointHaversine returns the spherical midpoint of two points via
// great-circle bisection. Retained as an alternate algorithm; ranking uses
// MidpointArithmetic so multi-point midpoints stay order-independent.
func MidpointHaversine(p1, p2 Point) Point {
	lat1 := radians(p1.Lat)
	lng1 := radians(p1.Lng)
	lat2 := radians(p2.Lat)
	lng2 := radians(p2.Lng)

	bx := math.Cos(lat2) * math.Cos(lng2-lng1)
	by := math.Cos(lat2) * math.Sin(lng2-lng1)

	midLat := math.Atan2(
		math.Sin(lat1)+math.Sin(lat2),
		math.Sqrt((math.Cos(lat1)+bx)*(math.Cos(lat1)+bx)+by*by),
	)
	midLng := lng1 + math.Atan2(by, math.Cos(lat1)+bx)

	return Point{Lat: degrees(midLat), Lng: degrees(midLng)}
}

// Distance returns the haversine great-circle distance between two points
// in meters.
func Distance(p1, p2 Point) float64 {
	lat1 := radians(p1.Lat)
	lat2 := radians(p2.Lat)
	dLat := radians(p2.Lat - p1.Lat)
	dLng := radians(p2.Lng - p1.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	a := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	return 2 * earthRadiusM * math.Asin(math.Sqrt(a))
}

// MaxPairwiseDistance returns the largest great-circle distance among all
// pairs of the given points, in meters. Zero for fewer than two points.
func MaxPairwiseDistance(points []Point) float64 {
	var maxDist float64
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			if d := Distance(points[i], points[j]); d > maxDist {
				maxDist = d
			}
		}
	}
	return maxDist
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
