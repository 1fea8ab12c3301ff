// Package network assembles the in-memory route, trip, stop and shape graph
// from raw GTFS rows, restricted to one route type and to the services that
// run on a reference date.
package network

import "github.com/railfreq/extractor/internal/static/geometry"

// Network is the graph built from one feed. It is constructed once by Build
// and handed by pointer to the later stages; nothing else owns it.
type Network struct {
	Routes map[string]*Route
	Stops  map[string]*Stop
	Shapes map[string][]geometry.Point
	// ParentOf maps a child stop id to its parent station id.
	ParentOf map[string]string
}

// Route is a retained route and its current trips.
type Route struct {
	ID    string
	Name  string
	Type  int
	Trips map[string]*Trip
}

// Trip is a retained trip. Days is copied from its service's calendar entry.
type Trip struct {
	ID        string
	RouteID   string
	ShapeID   string
	Days      []Weekday
	StopTimes []StopTime
}

// StopTime is one call of a trip at a (parent-resolved) stop.
type StopTime struct {
	StopID    string
	Departure string
	// DepartureInt is Departure with the colons removed, e.g. 81500 for
	// "08:15:00". Zero when the departure is missing or not numeric.
	DepartureInt int
	Sequence     int
}

// Stop is a parent or standalone stop.
type Stop struct {
	ID        string
	Name      string
	Lat       float64
	Lon       float64
	HasCoords bool
	Active    bool
}

// Point returns the stop's coordinate.
func (s *Stop) Point() geometry.Point {
	return geometry.Point{Lon: s.Lon, Lat: s.Lat}
}

// ResolveStop returns the parent station id for a child stop, or id itself.
func (n *Network) ResolveStop(id string) string {
	if parent, ok := n.ParentOf[id]; ok {
		return parent
	}
	return id
}

// TripCount returns the number of retained trips across all routes.
func (n *Network) TripCount() int {
	total := 0
	for _, r := range n.Routes {
		total += len(r.Trips)
	}
	return total
}

// ActiveStopCount returns the number of stops referenced by a retained trip.
func (n *Network) ActiveStopCount() int {
	total := 0
	for _, s := range n.Stops {
		if s.Active {
			total++
		}
	}
	return total
}
