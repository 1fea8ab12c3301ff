// Package geojson writes the extractor's artifacts: segment lines with their
// frequency tables, active stop points, the raw pair table and a manifest.
package geojson

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	geo "github.com/paulmach/go.geojson"
	"github.com/twpayne/go-polyline"

	"github.com/railfreq/extractor/internal/metrics"
	"github.com/railfreq/extractor/internal/static/geometry"
	"github.com/railfreq/extractor/internal/static/network"
	"github.com/railfreq/extractor/internal/static/segments"
)

// Artifact file names inside the output directory.
const (
	LinesFile    = "lines.geojson"
	StopsFile    = "stops.geojson"
	PairsFile    = "pairs.json"
	ManifestFile = "manifest.json"
)

// ErrUnsafeOutputDir is returned when the output directory would remove
// the working directory or the filesystem root.
var ErrUnsafeOutputDir = errors.New("refusing to recreate output directory")

// Meta describes the run that produced the artifacts.
type Meta struct {
	RunID         string
	ReferenceDate int
	RouteType     int
	GeneratedAt   time.Time
}

// Manifest represents the manifest.json structure
type Manifest struct {
	RunID         string          `json:"run_id"`
	ReferenceDate int             `json:"reference_date"`
	RouteType     int             `json:"route_type"`
	GeneratedAt   string          `json:"generated_at"`
	Counts        ManifestCounts  `json:"counts"`
	Files         []ManifestEntry `json:"files"`
}

// ManifestCounts summarises what was written.
type ManifestCounts struct {
	Routes       int `json:"routes"`
	Trips        int `json:"trips"`
	Segments     int `json:"segments"`
	LineFeatures int `json:"line_features"`
	Stops        int `json:"stops"`
	Departures   int `json:"departures"`
}

// ManifestEntry represents a file entry
type ManifestEntry struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
	Bytes    int    `json:"bytes"`
}

// Generate recreates outputDir and writes every artifact into it.
func Generate(result *segments.Result, net *network.Network, outputDir string, meta Meta) (*Manifest, error) {
	if err := recreateDir(outputDir); err != nil {
		return nil, err
	}

	manifest := &Manifest{
		RunID:         meta.RunID,
		ReferenceDate: meta.ReferenceDate,
		RouteType:     meta.RouteType,
		GeneratedAt:   meta.GeneratedAt.UTC().Format(time.RFC3339),
		Counts: ManifestCounts{
			Routes:   len(net.Routes),
			Trips:    net.TripCount(),
			Segments: len(result.Keys),
		},
	}

	lines, n, departures, err := buildLines(result)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", LinesFile, err)
	}
	manifest.Counts.LineFeatures = n
	manifest.Counts.Departures = departures

	stops, n, err := buildStops(net)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", StopsFile, err)
	}
	manifest.Counts.Stops = n

	pairs, err := buildPairs(result)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", PairsFile, err)
	}

	for _, artifact := range []struct {
		name string
		data []byte
	}{
		{LinesFile, lines},
		{StopsFile, stops},
		{PairsFile, pairs},
	} {
		if err := os.WriteFile(filepath.Join(outputDir, artifact.name), artifact.data, 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", artifact.name, err)
		}
		manifest.Files = append(manifest.Files, ManifestEntry{
			Path:     artifact.name,
			Checksum: sha256Sum(artifact.data),
			Bytes:    len(artifact.data),
		})
	}

	if err := writeJSON(filepath.Join(outputDir, ManifestFile), manifest); err != nil {
		return nil, fmt.Errorf("write %s: %w", ManifestFile, err)
	}

	log.Printf("Wrote %d line features, %d stops and %d pairs to %s",
		manifest.Counts.LineFeatures, manifest.Counts.Stops, manifest.Counts.Segments, outputDir)
	return manifest, nil
}

func buildLines(result *segments.Result) ([]byte, int, int, error) {
	fc := geo.NewFeatureCollection()
	departures := 0

	for _, seg := range result.Ordered() {
		total := seg.Table.Total()
		departures += total
		if !seg.HasGeometry() {
			continue
		}

		var stats metrics.WelfordState
		for d := range seg.Table {
			stats.UpdateInts(seg.Table[d][:]...)
		}

		peakDay, peakHour, peakCount := seg.Table.Peak()

		f := geo.NewLineStringFeature(lonLat(seg.Geometry))
		f.SetProperty("segment", string(seg.Key))
		f.SetProperty("timings", seg.Table)
		f.SetProperty("origin", seg.Origin)
		f.SetProperty("destination", seg.Destination)
		f.SetProperty("shape_id", seg.ShapeID)
		f.SetProperty("departures", total)
		f.SetProperty("hourly_mean", stats.Mean())
		f.SetProperty("hourly_stddev", stats.StdDev())
		f.SetProperty("peak", map[string]interface{}{
			"day":        peakDay.String(),
			"hour":       segments.HourLabel(peakHour),
			"departures": peakCount,
		})
		f.SetProperty("length_m", math.Round(geometry.LineLength(seg.Geometry)))
		f.SetProperty("bearing", math.Round(geometry.Bearing(seg.Geometry[0], seg.Geometry[len(seg.Geometry)-1])))
		f.SetProperty("polyline", string(polyline.EncodeCoords(latLon(seg.Geometry))))
		fc.AddFeature(f)
	}

	data, err := fc.MarshalJSON()
	return data, len(fc.Features), departures, err
}

// buildStops emits active stops with coordinates, ordered by id.
func buildStops(net *network.Network) ([]byte, int, error) {
	ids := make([]string, 0, len(net.Stops))
	for id, s := range net.Stops {
		if s.Active && s.HasCoords {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	fc := geo.NewFeatureCollection()
	for _, id := range ids {
		s := net.Stops[id]
		f := geo.NewPointFeature(s.Point().Coords())
		f.SetProperty("name", s.Name)
		f.SetProperty("stopID", s.ID)
		fc.AddFeature(f)
	}

	data, err := fc.MarshalJSON()
	return data, len(ids), err
}

// buildPairs writes every segment table, including those without geometry.
// Map keys are sorted by encoding/json, so the bytes are stable.
func buildPairs(result *segments.Result) ([]byte, error) {
	pairs := make(map[segments.Key]*segments.Table, len(result.Segments))
	for key, seg := range result.Segments {
		pairs[key] = seg.Table
	}
	return json.Marshal(pairs)
}

func lonLat(line []geometry.Point) [][]float64 {
	coords := make([][]float64, len(line))
	for i, p := range line {
		coords[i] = p.Coords()
	}
	return coords
}

// latLon orders coordinates the way the polyline encoding expects.
func latLon(line []geometry.Point) [][]float64 {
	coords := make([][]float64, len(line))
	for i, p := range line {
		coords[i] = []float64{p.Lat, p.Lon}
	}
	return coords
}

func recreateDir(dir string) error {
	clean := filepath.Clean(dir)
	if dir == "" || clean == "." || clean == string(filepath.Separator) {
		return fmt.Errorf("%w: %q", ErrUnsafeOutputDir, dir)
	}
	if err := os.RemoveAll(clean); err != nil {
		return fmt.Errorf("remove output directory: %w", err)
	}
	if err := os.MkdirAll(clean, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func sha256Sum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
