package network

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/railfreq/extractor/internal/static/gtfs"
)

// Weekday indexes the fixed Monday-first week used throughout the extractor.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// DaysPerWeek is the number of weekday rows in a frequency table.
const DaysPerWeek = 7

var weekdayNames = [DaysPerWeek]string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// Weekdays returns all weekdays in table order.
func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// String returns the lowercase GTFS column name for the weekday.
func (d Weekday) String() string {
	if d < 0 || int(d) >= DaysPerWeek {
		return "weekday(" + strconv.Itoa(int(d)) + ")"
	}
	return weekdayNames[d]
}

// MarshalJSON encodes the weekday by name.
func (d Weekday) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// FromTime maps a time.Weekday onto the Monday-first week.
func FromTime(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

// DateNum converts a date to its YYYYMMDD integer form.
func DateNum(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// ParseDateNum parses a YYYYMMDD string into a date at midnight UTC.
func ParseDateNum(s string) (time.Time, bool) {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ActiveServices returns the weekdays each service runs on, for services
// whose date range is current on today (YYYYMMDD). A row is current when
// start_date < today <= end_date. Rows with dates that do not parse are
// omitted.
func ActiveServices(calendars []gtfs.Calendar, today int) map[string][]Weekday {
	active := make(map[string][]Weekday)

	for _, c := range calendars {
		startDate, err := strconv.Atoi(c.StartDate)
		if err != nil {
			continue
		}
		endDate, err := strconv.Atoi(c.EndDate)
		if err != nil {
			continue
		}
		if !(startDate < today && endDate >= today) {
			continue
		}

		flags := [DaysPerWeek]string{c.Monday, c.Tuesday, c.Wednesday, c.Thursday, c.Friday, c.Saturday, c.Sunday}
		days := make([]Weekday, 0, DaysPerWeek)
		for i, flag := range flags {
			if flag == "1" {
				days = append(days, Weekday(i))
			}
		}
		active[c.ServiceID] = days
	}

	return active
}

// calendarDatesWindow is how many days from the reference date are scanned
// for added service dates.
const calendarDatesWindow = 7

// MergeCalendarDates adds services that are defined only through
// calendar_dates. A service absent from active gains the weekdays of its
// exception_type=1 dates falling in the week starting at today. Services
// already present are left untouched; removals (exception_type=2) have no
// weekly equivalent and are ignored.
func MergeCalendarDates(active map[string][]Weekday, dates []gtfs.CalendarDate, today int) {
	ref, ok := ParseDateNum(strconv.Itoa(today))
	if !ok {
		return
	}
	windowEnd := ref.AddDate(0, 0, calendarDatesWindow)

	added := make(map[string]map[Weekday]bool)
	for _, cd := range dates {
		if cd.ExceptionType != 1 {
			continue
		}
		if _, ok := active[cd.ServiceID]; ok {
			continue
		}
		date, ok := ParseDateNum(cd.Date)
		if !ok || date.Before(ref) || !date.Before(windowEnd) {
			continue
		}
		if added[cd.ServiceID] == nil {
			added[cd.ServiceID] = make(map[Weekday]bool)
		}
		added[cd.ServiceID][FromTime(date.Weekday())] = true
	}

	for serviceID, set := range added {
		days := make([]Weekday, 0, len(set))
		for d := range set {
			days = append(days, d)
		}
		sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
		active[serviceID] = days
	}
}
