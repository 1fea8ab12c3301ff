package segments

// Aggregator accumulates departure counts per segment.
type Aggregator struct {
	tables map[Key]*Table
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{tables: make(map[Key]*Table)}
}

// Add counts one event on every day in its pattern. An hour of 24 or more is
// a departure after midnight: it is counted at hour-24 on the day that
// follows each pattern day within the pattern itself (wrapping from the last
// element to the first), not on the next calendar day. Hours outside 0..47
// cannot be placed in the table and are rejected with false.
//
// The segment's table is created on first sight even when the event is
// rejected, so every extracted segment has a table.
func (a *Aggregator) Add(ev Event) bool {
	table := a.Table(ev.Key)

	if ev.Hour < 0 || ev.Hour >= 2*HoursPerDay {
		return false
	}

	days := ev.Days
	for l, day := range days {
		if ev.Hour >= HoursPerDay {
			next := days[(l+1)%len(days)]
			table[next][ev.Hour-HoursPerDay]++
			continue
		}
		table[day][ev.Hour]++
	}
	return true
}

// Table returns the table for key, creating a zeroed one if needed.
func (a *Aggregator) Table(key Key) *Table {
	table, ok := a.tables[key]
	if !ok {
		table = &Table{}
		a.tables[key] = table
	}
	return table
}

// Tables returns all tables keyed by segment.
func (a *Aggregator) Tables() map[Key]*Table {
	return a.tables
}

// Len returns the number of segments seen.
func (a *Aggregator) Len() int {
	return len(a.tables)
}
