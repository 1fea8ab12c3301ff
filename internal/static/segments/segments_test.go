package segments

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railfreq/extractor/internal/static/geometry"
	"github.com/railfreq/extractor/internal/static/network"
)

// testNetwork has a north-south shape through stops A (41.00), B (41.01) and
// C (41.02) at longitude -87.
func testNetwork() *network.Network {
	shape := []geometry.Point{
		{Lon: -87.0, Lat: 40.995},
		{Lon: -87.0, Lat: 41.00},
		{Lon: -87.0, Lat: 41.005},
		{Lon: -87.0, Lat: 41.01},
		{Lon: -87.0, Lat: 41.015},
		{Lon: -87.0, Lat: 41.02},
	}
	return &network.Network{
		Routes: map[string]*network.Route{
			"RED": {ID: "RED", Name: "Red Line", Type: 1, Trips: map[string]*network.Trip{}},
		},
		Stops: map[string]*network.Stop{
			"A": {ID: "A", Name: "Alpha", Lon: -87.0, Lat: 41.00, HasCoords: true},
			"B": {ID: "B", Name: "Bravo", Lon: -87.0, Lat: 41.01, HasCoords: true},
			"C": {ID: "C", Name: "Charlie", Lon: -87.0, Lat: 41.02, HasCoords: true},
			"X": {ID: "X", Name: "No coords"},
		},
		Shapes:   map[string][]geometry.Point{"S1": shape, "DOT": shape[:1]},
		ParentOf: map[string]string{},
	}
}

func addTrip(net *network.Network, id, shapeID string, days []network.Weekday, calls ...network.StopTime) {
	net.Routes["RED"].Trips[id] = &network.Trip{
		ID:        id,
		RouteID:   "RED",
		ShapeID:   shapeID,
		Days:      days,
		StopTimes: calls,
	}
}

func call(stop, departure string, seq int) network.StopTime {
	return network.StopTime{StopID: stop, Departure: departure, Sequence: seq}
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("A_B"), NewKey("A", "B"))
	assert.NotEqual(t, NewKey("A", "B"), NewKey("B", "A"))
}

func TestParseHour(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"08:15:00", 8, true},
		{"25:01:00", 25, true},
		{" 7:00:00", 7, true},
		{"14", 14, true},
		{"", 0, false},
		{":30:00", 0, false},
		{"xx:00:00", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseHour(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAggregator_SameDayHour(t *testing.T) {
	agg := NewAggregator()
	ok := agg.Add(Event{Key: "A_B", Hour: 8, Days: []network.Weekday{network.Monday, network.Tuesday}})
	require.True(t, ok)
	agg.Add(Event{Key: "A_B", Hour: 8, Days: []network.Weekday{network.Monday}})

	table := agg.Table("A_B")
	assert.Equal(t, 2, table[network.Monday][8])
	assert.Equal(t, 1, table[network.Tuesday][8])
	assert.Equal(t, 3, table.Total())
}

func TestAggregator_RolloverFollowsPatternOrder(t *testing.T) {
	agg := NewAggregator()
	agg.Add(Event{Key: "A_B", Hour: 25, Days: []network.Weekday{network.Monday}})
	agg.Add(Event{Key: "C_D", Hour: 25, Days: []network.Weekday{network.Monday, network.Wednesday, network.Friday}})

	table := agg.Table("C_D")
	assert.Equal(t, 1, table[network.Wednesday][1], "Monday rolls into the next pattern day")
	assert.Equal(t, 0, table[network.Tuesday][1], "not the next calendar day")
	assert.Equal(t, 1, table[network.Friday][1])
	assert.Equal(t, 1, table[network.Monday][1], "Friday wraps to the first pattern day")
	assert.Equal(t, 3, table.Total())
}

func TestAggregator_RolloverSingleDayWraps(t *testing.T) {
	agg := NewAggregator()
	agg.Add(Event{Key: "A_B", Hour: 25, Days: []network.Weekday{network.Friday}})

	table := agg.Table("A_B")
	assert.Equal(t, 1, table[network.Friday][1])
	assert.Equal(t, 0, table[network.Saturday][1])
	assert.Equal(t, 1, table.Total())
}

func TestAggregator_OutOfRangeHours(t *testing.T) {
	agg := NewAggregator()
	days := []network.Weekday{network.Monday}

	assert.False(t, agg.Add(Event{Key: "A_B", Hour: 48, Days: days}))
	assert.False(t, agg.Add(Event{Key: "A_B", Hour: -1, Days: days}))
	assert.True(t, agg.Add(Event{Key: "A_B", Hour: 47, Days: days}))

	table := agg.Table("A_B")
	assert.Equal(t, 1, table[network.Monday][23])
	assert.Equal(t, 1, table.Total())
	assert.Equal(t, 1, agg.Len())
}

func TestAggregator_EmptyPatternCreatesZeroTable(t *testing.T) {
	agg := NewAggregator()
	assert.True(t, agg.Add(Event{Key: "A_B", Hour: 8}))
	assert.Equal(t, 0, agg.Table("A_B").Total())
	assert.Equal(t, 1, agg.Len())
}

func TestTable_JSONIsDenseAndOrdered(t *testing.T) {
	var table Table
	table[network.Monday][8] = 3
	table[network.Sunday][23] = 1

	data, err := json.Marshal(&table)
	require.NoError(t, err)

	var raw map[string]map[string]int
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 7)
	entries := 0
	for _, hours := range raw {
		assert.Len(t, hours, 24)
		entries += len(hours)
	}
	assert.Equal(t, 168, entries)
	assert.Equal(t, 3, raw["monday"]["08"])
	assert.Equal(t, 1, raw["sunday"]["23"])

	s := string(data)
	assert.True(t, strings.HasPrefix(s, `{"monday":{"00":0,"01":0`))
	assert.Less(t, strings.Index(s, `"saturday"`), strings.Index(s, `"sunday"`))

	var back Table
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, table, back)
}

func TestTable_UnmarshalRejectsUnknownKeys(t *testing.T) {
	var table Table
	assert.Error(t, json.Unmarshal([]byte(`{"funday":{"00":1}}`), &table))
	assert.Error(t, json.Unmarshal([]byte(`{"monday":{"24":1}}`), &table))
}

func TestTable_Peak(t *testing.T) {
	var table Table
	table[network.Tuesday][7] = 4
	table[network.Friday][17] = 4
	day, hour, count := table.Peak()
	assert.Equal(t, network.Tuesday, day)
	assert.Equal(t, 7, hour)
	assert.Equal(t, 4, count)
}

func TestExtract_ThreeStopTrip(t *testing.T) {
	net := testNetwork()
	addTrip(net, "T1", "S1", []network.Weekday{network.Monday},
		call("C", "09:00:00", 3),
		call("A", "08:00:00", 1),
		call("B", "08:30:00", 2),
	)

	events, skipped := Extract(net)
	require.Len(t, events, 2)
	assert.Zero(t, skipped)

	assert.Equal(t, Key("A_B"), events[0].Key)
	assert.Equal(t, 8, events[0].Hour)
	assert.Equal(t, Key("B_C"), events[1].Key)
	assert.Equal(t, 8, events[1].Hour, "hour comes from the origin stop time")
}

func TestExtract_SkipsUnparseableOriginHour(t *testing.T) {
	net := testNetwork()
	addTrip(net, "T1", "S1", []network.Weekday{network.Monday},
		call("A", "", 1),
		call("B", "08:30:00", 2),
		call("C", "", 3),
	)

	events, skipped := Extract(net)
	require.Len(t, events, 1)
	assert.Equal(t, Key("B_C"), events[0].Key)
	assert.Equal(t, 1, skipped)
}

func TestBuild_ThreeStopScenario(t *testing.T) {
	net := testNetwork()
	addTrip(net, "T1", "S1", []network.Weekday{network.Monday},
		call("A", "08:00:00", 1),
		call("B", "08:30:00", 2),
		call("C", "09:00:00", 3),
	)

	result, err := Build(context.Background(), net, 2)
	require.NoError(t, err)
	require.Equal(t, []Key{"A_B", "B_C"}, result.Keys)

	ab := result.Segments["A_B"]
	assert.Equal(t, 1, ab.Table[network.Monday][8])
	assert.Equal(t, 1, ab.Table.Total())
	bc := result.Segments["B_C"]
	assert.Equal(t, 1, bc.Table[network.Monday][8])
	assert.Equal(t, 0, bc.Table[network.Monday][9])

	require.True(t, ab.HasGeometry())
	assert.Equal(t, "S1", ab.ShapeID)
	assert.Equal(t, []geometry.Point{
		{Lon: -87.0, Lat: 41.00},
		{Lon: -87.0, Lat: 41.005},
		{Lon: -87.0, Lat: 41.01},
	}, ab.Geometry)
	assert.Equal(t, 2, result.Stats.WithGeometry)
}

func TestBuild_FirstSliceableTripOwnsGeometry(t *testing.T) {
	net := testNetwork()
	net.Shapes["S2"] = []geometry.Point{{Lon: -87.001, Lat: 41.00}, {Lon: -87.001, Lat: 41.01}}

	days := []network.Weekday{network.Tuesday}
	// T0 sorts first but its shape has a single point.
	addTrip(net, "T0", "DOT", days, call("A", "07:00:00", 1), call("B", "07:10:00", 2))
	addTrip(net, "T1", "S1", days, call("A", "08:00:00", 1), call("B", "08:10:00", 2))
	addTrip(net, "T2", "S2", days, call("A", "09:00:00", 1), call("B", "09:10:00", 2))

	result, err := Build(context.Background(), net, 1)
	require.NoError(t, err)

	seg := result.Segments["A_B"]
	assert.Equal(t, "S1", seg.ShapeID)
	assert.Equal(t, 3, seg.Table.Total(), "every trip still counts")
}

func TestBuild_UnsliceableSegmentKeepsTable(t *testing.T) {
	net := testNetwork()
	addTrip(net, "T1", "S1", []network.Weekday{network.Monday}, call("A", "08:00:00", 1), call("X", "08:10:00", 2))
	addTrip(net, "T2", "MISSING", []network.Weekday{network.Monday}, call("B", "08:00:00", 1), call("C", "08:10:00", 2))

	result, err := Build(context.Background(), net, 0)
	require.NoError(t, err)
	require.Len(t, result.Segments, 2)

	for _, seg := range result.Ordered() {
		assert.False(t, seg.HasGeometry(), seg.Key)
		assert.Empty(t, seg.ShapeID)
		assert.Equal(t, 1, seg.Table.Total())
	}
	assert.Equal(t, 2, result.Stats.Unsliceable)
}

func TestBuild_Deterministic(t *testing.T) {
	build := func() []byte {
		net := testNetwork()
		net.Shapes["S2"] = []geometry.Point{{Lon: -87.001, Lat: 41.00}, {Lon: -87.001, Lat: 41.02}}
		days := []network.Weekday{network.Monday, network.Saturday}
		addTrip(net, "T-b", "S2", days, call("A", "24:10:00", 1), call("B", "24:20:00", 2), call("C", "24:30:00", 3))
		addTrip(net, "T-a", "S1", days, call("C", "06:00:00", 1), call("B", "06:10:00", 2), call("A", "06:20:00", 3))
		addTrip(net, "T-c", "S1", days, call("A", "17:00:00", 1), call("B", "17:10:00", 2))

		result, err := Build(context.Background(), net, 4)
		require.NoError(t, err)

		type out struct {
			Key      Key
			ShapeID  string
			Table    *Table
			Geometry []geometry.Point
		}
		var all []out
		for _, seg := range result.Ordered() {
			all = append(all, out{seg.Key, seg.ShapeID, seg.Table, seg.Geometry})
		}
		data, err := json.Marshal(all)
		require.NoError(t, err)
		return data
	}

	first := build()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, build())
	}
}

func TestBuild_CancelledContext(t *testing.T) {
	net := testNetwork()
	addTrip(net, "T1", "S1", []network.Weekday{network.Monday}, call("A", "08:00:00", 1), call("B", "08:10:00", 2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, net, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGeometryCache_Claim(t *testing.T) {
	cache := NewGeometryCache()
	assert.True(t, cache.Claim("A_B", Candidate{ShapeID: "S1"}))
	assert.False(t, cache.Claim("A_B", Candidate{ShapeID: "S2"}))

	cand, ok := cache.Claimed("A_B")
	require.True(t, ok)
	assert.Equal(t, "S1", cand.ShapeID)
	assert.Equal(t, 1, cache.Len())
}

func TestSliceable(t *testing.T) {
	net := testNetwork()
	assert.True(t, Sliceable(net, Candidate{ShapeID: "S1", Origin: "A", Destination: "B"}))
	assert.False(t, Sliceable(net, Candidate{ShapeID: "DOT", Origin: "A", Destination: "B"}))
	assert.False(t, Sliceable(net, Candidate{ShapeID: "S1", Origin: "A", Destination: "X"}))
	assert.False(t, Sliceable(net, Candidate{ShapeID: "S1", Origin: "A", Destination: "GONE"}))
}
