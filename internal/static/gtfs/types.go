package gtfs

// Data represents the raw rows of the GTFS tables the extractor reads.
// Values are kept as they appear in the feed; numeric columns are parsed
// alongside an ok flag so later stages can skip malformed rows.
type Data struct {
	Routes        []Route
	Calendars     []Calendar
	CalendarDates []CalendarDate
	Trips         []Trip
	Stops         []Stop
	StopTimes     []StopTime
	Shapes        []ShapePoint
}

// Route represents a route from routes.txt
type Route struct {
	RouteID        string
	RouteShortName string
	RouteLongName  string
	RouteType      int
	RouteTypeOK    bool
}

// Calendar represents a service from calendar.txt.
// Weekday flags are the raw column values ("1" means active).
type Calendar struct {
	ServiceID string
	Monday    string
	Tuesday   string
	Wednesday string
	Thursday  string
	Friday    string
	Saturday  string
	Sunday    string
	StartDate string
	EndDate   string
}

// CalendarDate represents an exception from calendar_dates.txt
type CalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType int
}

// Trip represents a trip from trips.txt
type Trip struct {
	RouteID   string
	ServiceID string
	TripID    string
	ShapeID   string
}

// Stop represents a stop from stops.txt
type Stop struct {
	StopID        string
	StopName      string
	StopLat       float64
	StopLon       float64
	CoordsOK      bool
	ParentStation string
}

// StopTime represents a stop time from stop_times.txt
type StopTime struct {
	TripID        string
	StopID        string
	DepartureTime string
	StopSequence  int
	SequenceOK    bool
}

// ShapePoint represents a point from shapes.txt
type ShapePoint struct {
	ShapeID         string
	ShapePtLat      float64
	ShapePtLon      float64
	ShapePtSequence int
	OK              bool
}
