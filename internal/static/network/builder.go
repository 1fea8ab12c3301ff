package network

import (
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/railfreq/extractor/internal/static/geometry"
	"github.com/railfreq/extractor/internal/static/gtfs"
)

// Options control which part of the feed is kept.
type Options struct {
	// RouteType is the GTFS route_type to retain (1 = subway/metro).
	RouteType int
	// Today is the reference date as YYYYMMDD.
	Today int
	// ApplyCalendarDates adds services defined only in calendar_dates.
	ApplyCalendarDates bool
}

// Stats counts what each stage kept or dropped.
type Stats struct {
	Routes            int
	ActiveServices    int
	Trips             int
	Stops             int
	ChildStops        int
	StopTimes         int
	SkippedStopTimes  int
	Shapes            int
	SkippedShapePoint int
}

// Build assembles the network. Stages run strictly in order because each
// depends on the state left by the previous one: trips need the calendar,
// stop times need the parent map, and so on.
func Build(data *gtfs.Data, opts Options) (*Network, Stats) {
	var stats Stats
	net := &Network{
		Routes:   make(map[string]*Route),
		Stops:    make(map[string]*Stop),
		Shapes:   make(map[string][]geometry.Point),
		ParentOf: make(map[string]string),
	}

	start := time.Now()
	for _, r := range data.Routes {
		if !r.RouteTypeOK || r.RouteType != opts.RouteType {
			continue
		}
		net.Routes[r.RouteID] = &Route{
			ID:    r.RouteID,
			Name:  r.RouteLongName,
			Type:  r.RouteType,
			Trips: make(map[string]*Trip),
		}
	}
	stats.Routes = len(net.Routes)
	logStage("routes", start)

	start = time.Now()
	calendar := ActiveServices(data.Calendars, opts.Today)
	if opts.ApplyCalendarDates {
		MergeCalendarDates(calendar, data.CalendarDates, opts.Today)
	}
	stats.ActiveServices = len(calendar)
	logStage("calendar", start)

	start = time.Now()
	tripRoute := make(map[string]*Route)
	for _, t := range data.Trips {
		days, ok := calendar[t.ServiceID]
		if !ok {
			continue
		}
		route, ok := net.Routes[t.RouteID]
		if !ok {
			continue
		}
		route.Trips[t.TripID] = &Trip{
			ID:      t.TripID,
			RouteID: t.RouteID,
			ShapeID: t.ShapeID,
			Days:    append([]Weekday(nil), days...),
		}
		tripRoute[t.TripID] = route
	}
	stats.Trips = len(tripRoute)
	logStage("trips", start)

	start = time.Now()
	for _, s := range data.Stops {
		if s.ParentStation != "" {
			net.ParentOf[s.StopID] = s.ParentStation
			stats.ChildStops++
			continue
		}
		net.Stops[s.StopID] = &Stop{
			ID:        s.StopID,
			Name:      s.StopName,
			Lat:       s.StopLat,
			Lon:       s.StopLon,
			HasCoords: s.CoordsOK,
		}
	}
	stats.Stops = len(net.Stops)
	logStage("stops", start)

	start = time.Now()
	for _, st := range data.StopTimes {
		route, ok := tripRoute[st.TripID]
		if !ok {
			continue
		}
		stopID := net.ResolveStop(st.StopID)
		stop, ok := net.Stops[stopID]
		if !ok || !st.SequenceOK {
			stats.SkippedStopTimes++
			continue
		}

		trip := route.Trips[st.TripID]
		trip.StopTimes = append(trip.StopTimes, StopTime{
			StopID:       stopID,
			Departure:    st.DepartureTime,
			DepartureInt: departureInt(st.DepartureTime),
			Sequence:     st.StopSequence,
		})
		stop.Active = true
		stats.StopTimes++
	}
	logStage("stop times", start)

	start = time.Now()
	type seqPoint struct {
		seq int
		pt  geometry.Point
	}
	raw := make(map[string][]seqPoint)
	for _, sp := range data.Shapes {
		if !sp.OK {
			stats.SkippedShapePoint++
			continue
		}
		raw[sp.ShapeID] = append(raw[sp.ShapeID], seqPoint{
			seq: sp.ShapePtSequence,
			pt:  geometry.Point{Lon: sp.ShapePtLon, Lat: sp.ShapePtLat},
		})
	}
	// Feeds are not guaranteed to list shape points in order.
	for shapeID, points := range raw {
		sort.SliceStable(points, func(i, j int) bool { return points[i].seq < points[j].seq })
		line := make([]geometry.Point, len(points))
		for i, p := range points {
			line[i] = p.pt
		}
		net.Shapes[shapeID] = line
	}
	stats.Shapes = len(net.Shapes)
	logStage("shapes", start)

	log.Printf("Network built: %d routes, %d trips, %d stops (%d active), %d child stops, %d stop times (%d skipped), %d shapes",
		stats.Routes, stats.Trips, stats.Stops, net.ActiveStopCount(), stats.ChildStops, stats.StopTimes, stats.SkippedStopTimes, stats.Shapes)

	return net, stats
}

// departureInt strips the colons from an HH:MM:SS time and parses the rest.
func departureInt(departure string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(departure, ":", ""))
	if err != nil {
		return 0
	}
	return n
}

func logStage(name string, start time.Time) {
	log.Printf("Done with %s ingestion in %.2fs", name, time.Since(start).Seconds())
}
