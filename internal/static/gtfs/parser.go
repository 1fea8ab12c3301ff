package gtfs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ErrMissingFile is returned when a required table is absent from the archive.
var ErrMissingFile = errors.New("required GTFS file missing")

// requiredFiles lists the tables a run cannot proceed without, in read order.
var requiredFiles = []string{
	"routes.txt",
	"calendar.txt",
	"trips.txt",
	"stops.txt",
	"stop_times.txt",
	"shapes.txt",
}

// Parse reads a GTFS zip file and returns parsed data
func Parse(zipPath string) (*Data, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	return parseArchive(&r.Reader)
}

// ParseReader reads a GTFS archive from an in-memory or file-backed reader.
func ParseReader(ra io.ReaderAt, size int64) (*Data, error) {
	r, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	return parseArchive(r)
}

func parseArchive(r *zip.Reader) (*Data, error) {
	// Build file map for easy lookup. Feeds zipped from a folder carry a
	// directory prefix, so entries are keyed by base name.
	files := make(map[string]*zip.File)
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		files[path.Base(f.Name)] = f
	}

	for _, name := range requiredFiles {
		if _, ok := files[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, name)
		}
	}

	data := &Data{}
	var err error

	if data.Routes, err = parseRoutes(files["routes.txt"]); err != nil {
		return nil, fmt.Errorf("routes.txt: %w", err)
	}
	if data.Calendars, err = parseCalendars(files["calendar.txt"]); err != nil {
		return nil, fmt.Errorf("calendar.txt: %w", err)
	}
	if f, ok := files["calendar_dates.txt"]; ok {
		if data.CalendarDates, err = parseCalendarDates(f); err != nil {
			return nil, fmt.Errorf("calendar_dates.txt: %w", err)
		}
	}
	if data.Trips, err = parseTrips(files["trips.txt"]); err != nil {
		return nil, fmt.Errorf("trips.txt: %w", err)
	}
	if data.Stops, err = parseStops(files["stops.txt"]); err != nil {
		return nil, fmt.Errorf("stops.txt: %w", err)
	}
	if data.StopTimes, err = parseStopTimes(files["stop_times.txt"]); err != nil {
		return nil, fmt.Errorf("stop_times.txt: %w", err)
	}
	if data.Shapes, err = parseShapes(files["shapes.txt"]); err != nil {
		return nil, fmt.Errorf("shapes.txt: %w", err)
	}

	log.Printf("GTFS parsed: %d routes, %d calendars, %d trips, %d stops, %d stop_times, %d shape points",
		len(data.Routes), len(data.Calendars), len(data.Trips), len(data.Stops), len(data.StopTimes), len(data.Shapes))

	return data, nil
}

// forEachRecord streams a CSV table row by row. Rows the CSV reader rejects
// as malformed are skipped. Any other read error, such as a corrupt or
// truncated archive entry, is returned.
func forEachRecord(f *zip.File, fn func(record []string, idx map[string]int)) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	idx := makeIndex(header)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return fmt.Errorf("failed to read record: %w", err)
		}
		fn(record, idx)
	}
}

func parseRoutes(f *zip.File) ([]Route, error) {
	var routes []Route
	err := forEachRecord(f, func(record []string, idx map[string]int) {
		routeType, err := strconv.Atoi(getField(record, idx, "route_type"))
		routes = append(routes, Route{
			RouteID:        getField(record, idx, "route_id"),
			RouteShortName: getField(record, idx, "route_short_name"),
			RouteLongName:  getField(record, idx, "route_long_name"),
			RouteType:      routeType,
			RouteTypeOK:    err == nil,
		})
	})
	return routes, err
}

func parseCalendars(f *zip.File) ([]Calendar, error) {
	var calendars []Calendar
	err := forEachRecord(f, func(record []string, idx map[string]int) {
		calendars = append(calendars, Calendar{
			ServiceID: getField(record, idx, "service_id"),
			Monday:    getField(record, idx, "monday"),
			Tuesday:   getField(record, idx, "tuesday"),
			Wednesday: getField(record, idx, "wednesday"),
			Thursday:  getField(record, idx, "thursday"),
			Friday:    getField(record, idx, "friday"),
			Saturday:  getField(record, idx, "saturday"),
			Sunday:    getField(record, idx, "sunday"),
			StartDate: getField(record, idx, "start_date"),
			EndDate:   getField(record, idx, "end_date"),
		})
	})
	return calendars, err
}

func parseCalendarDates(f *zip.File) ([]CalendarDate, error) {
	var dates []CalendarDate
	err := forEachRecord(f, func(record []string, idx map[string]int) {
		exceptionType, err := strconv.Atoi(getField(record, idx, "exception_type"))
		if err != nil {
			return
		}
		dates = append(dates, CalendarDate{
			ServiceID:     getField(record, idx, "service_id"),
			Date:          getField(record, idx, "date"),
			ExceptionType: exceptionType,
		})
	})
	return dates, err
}

func parseTrips(f *zip.File) ([]Trip, error) {
	var trips []Trip
	err := forEachRecord(f, func(record []string, idx map[string]int) {
		trips = append(trips, Trip{
			RouteID:   getField(record, idx, "route_id"),
			ServiceID: getField(record, idx, "service_id"),
			TripID:    getField(record, idx, "trip_id"),
			ShapeID:   getField(record, idx, "shape_id"),
		})
	})
	return trips, err
}

func parseStops(f *zip.File) ([]Stop, error) {
	var stops []Stop
	err := forEachRecord(f, func(record []string, idx map[string]int) {
		lat, latErr := strconv.ParseFloat(getField(record, idx, "stop_lat"), 64)
		lon, lonErr := strconv.ParseFloat(getField(record, idx, "stop_lon"), 64)
		stops = append(stops, Stop{
			StopID:        getField(record, idx, "stop_id"),
			StopName:      getField(record, idx, "stop_name"),
			StopLat:       lat,
			StopLon:       lon,
			CoordsOK:      latErr == nil && lonErr == nil,
			ParentStation: getField(record, idx, "parent_station"),
		})
	})
	return stops, err
}

func parseStopTimes(f *zip.File) ([]StopTime, error) {
	var stopTimes []StopTime
	err := forEachRecord(f, func(record []string, idx map[string]int) {
		seq, err := strconv.Atoi(getField(record, idx, "stop_sequence"))
		stopTimes = append(stopTimes, StopTime{
			TripID:        getField(record, idx, "trip_id"),
			StopID:        getField(record, idx, "stop_id"),
			DepartureTime: getField(record, idx, "departure_time"),
			StopSequence:  seq,
			SequenceOK:    err == nil,
		})
	})
	return stopTimes, err
}

func parseShapes(f *zip.File) ([]ShapePoint, error) {
	var points []ShapePoint
	err := forEachRecord(f, func(record []string, idx map[string]int) {
		lat, latErr := strconv.ParseFloat(getField(record, idx, "shape_pt_lat"), 64)
		lon, lonErr := strconv.ParseFloat(getField(record, idx, "shape_pt_lon"), 64)
		seq, seqErr := strconv.Atoi(getField(record, idx, "shape_pt_sequence"))
		points = append(points, ShapePoint{
			ShapeID:         getField(record, idx, "shape_id"),
			ShapePtLat:      lat,
			ShapePtLon:      lon,
			ShapePtSequence: seq,
			OK:              latErr == nil && lonErr == nil && seqErr == nil,
		})
	})
	return points, err
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		// Strip a UTF-8 BOM some agencies leave on the first column.
		h = strings.TrimPrefix(h, "\ufeff")
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func getField(record []string, idx map[string]int, field string) string {
	if i, ok := idx[field]; ok && i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}
