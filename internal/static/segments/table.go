package segments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/railfreq/extractor/internal/static/network"
)

// HoursPerDay is the number of hour columns in a frequency table.
const HoursPerDay = 24

// Table counts departures per weekday and hour. It is always dense: every
// weekday has all 24 hours, and the zero value is a valid all-zero table.
type Table [network.DaysPerWeek][HoursPerDay]int

// HourLabel formats an hour the way it appears in table JSON ("00".."23").
func HourLabel(hour int) string {
	return fmt.Sprintf("%02d", hour)
}

// Total returns the sum of all cells.
func (t *Table) Total() int {
	total := 0
	for d := range t {
		for h := range t[d] {
			total += t[d][h]
		}
	}
	return total
}

// Peak returns the busiest cell. Ties keep the earliest weekday and hour.
func (t *Table) Peak() (network.Weekday, int, int) {
	var day network.Weekday
	hour, best := 0, -1
	for d := range t {
		for h := range t[d] {
			if t[d][h] > best {
				day, hour, best = network.Weekday(d), h, t[d][h]
			}
		}
	}
	return day, hour, best
}

// MarshalJSON writes {"monday":{"00":n,...,"23":n},...} with weekdays in
// week order and hours ascending, so output bytes are stable.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(network.DaysPerWeek * HoursPerDay * 8)
	buf.WriteByte('{')
	for d, day := range network.Weekdays() {
		if d > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(day.String()))
		buf.WriteString(":{")
		for h := 0; h < HoursPerDay; h++ {
			if h > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(HourLabel(h))
			buf.WriteString(`":`)
			buf.WriteString(strconv.Itoa(t[d][h]))
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the format written by MarshalJSON. Unknown weekdays
// and out-of-range hours are rejected.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Table{}
	for dayName, hours := range raw {
		day, ok := weekdayByName(dayName)
		if !ok {
			return fmt.Errorf("unknown weekday %q", dayName)
		}
		for label, count := range hours {
			h, err := strconv.Atoi(label)
			if err != nil || h < 0 || h >= HoursPerDay {
				return fmt.Errorf("invalid hour %q", label)
			}
			t[day][h] = count
		}
	}
	return nil
}

func weekdayByName(name string) (network.Weekday, bool) {
	for _, d := range network.Weekdays() {
		if d.String() == name {
			return d, true
		}
	}
	return 0, false
}
