// Package geometry holds the small amount of computational geometry the
// extractor needs: great-circle distance, projecting a point onto a
// polyline and slicing a polyline between two projected points.
package geometry

import "math"

const earthRadiusMeters = 6371000

// Point is a WGS84 coordinate. Field order mirrors GeoJSON's [lon, lat].
type Point struct {
	Lon float64
	Lat float64
}

// Coords returns the point as a GeoJSON position.
func (p Point) Coords() []float64 {
	return []float64{p.Lon, p.Lat}
}

// Haversine calculates the distance between two points in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaPhi := (lat2 - lat1) * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Distance is Haversine over two Points.
func Distance(a, b Point) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// Bearing returns the initial bearing from a to b in degrees (0-360)
func Bearing(a, b Point) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	deltaLambda := (b.Lon - a.Lon) * math.Pi / 180

	x := math.Sin(deltaLambda) * math.Cos(phi2)
	y := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLambda)

	bearing := math.Atan2(x, y) * 180 / math.Pi
	return math.Mod(bearing+360, 360)
}

// Interpolate linearly interpolates between two points
func Interpolate(start, end Point, fraction float64) Point {
	return Point{
		Lon: start.Lon + (end.Lon-start.Lon)*fraction,
		Lat: start.Lat + (end.Lat-start.Lat)*fraction,
	}
}

// LineLength calculates the total length of a line in meters
func LineLength(line []Point) float64 {
	var total float64
	for i := 1; i < len(line); i++ {
		total += Distance(line[i-1], line[i])
	}
	return total
}

// Clamp constrains a value between min and max
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
