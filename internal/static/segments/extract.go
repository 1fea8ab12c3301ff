// Package segments turns trips into directed stop-pair segments, counts
// departures per weekday and hour for each, and slices each segment's
// geometry out of a trip shape.
package segments

import (
	"sort"
	"strconv"
	"strings"

	"github.com/railfreq/extractor/internal/static/network"
)

// KeySeparator joins the origin and destination stop ids in a Key.
const KeySeparator = "_"

// Key identifies a directed stop pair. A_B and B_A are different segments.
type Key string

// NewKey builds the key for travel from origin to destination.
func NewKey(origin, destination string) Key {
	return Key(origin + KeySeparator + destination)
}

// Event is one departure along a segment by one trip.
type Event struct {
	Key         Key
	Origin      string
	Destination string
	// Hour is the hour digits of the origin's departure. GTFS lets it run
	// past 23 for service after midnight.
	Hour    int
	TripID  string
	ShapeID string
	Days    []network.Weekday
}

// ParseHour returns the integer before the first colon of a GTFS time.
func ParseHour(departure string) (int, bool) {
	head, _, _ := strings.Cut(departure, ":")
	head = strings.TrimSpace(head)
	if head == "" {
		return 0, false
	}
	h, err := strconv.Atoi(head)
	if err != nil {
		return 0, false
	}
	return h, true
}

// Extract walks every retained trip and emits one event per adjacent pair
// of stop times. Routes and trips are visited in id order so the first trip
// to reach a segment is the same on every run. Each trip's stop times are
// sorted by sequence in place. Pairs whose origin has no usable hour are
// skipped and counted in the second return value.
func Extract(net *network.Network) ([]Event, int) {
	var events []Event
	skipped := 0

	for _, routeID := range sortedKeys(net.Routes) {
		route := net.Routes[routeID]
		for _, tripID := range sortedKeys(route.Trips) {
			trip := route.Trips[tripID]
			stopTimes := trip.StopTimes
			sort.SliceStable(stopTimes, func(i, j int) bool {
				return stopTimes[i].Sequence < stopTimes[j].Sequence
			})

			for k := 0; k+1 < len(stopTimes); k++ {
				from, to := stopTimes[k], stopTimes[k+1]
				hour, ok := ParseHour(from.Departure)
				if !ok {
					skipped++
					continue
				}
				events = append(events, Event{
					Key:         NewKey(from.StopID, to.StopID),
					Origin:      from.StopID,
					Destination: to.StopID,
					Hour:        hour,
					TripID:      trip.ID,
					ShapeID:     trip.ShapeID,
					Days:        trip.Days,
				})
			}
		}
	}

	return events, skipped
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
