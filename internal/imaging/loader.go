package imaging

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/ironsheep/psi-tools-mcp/internal/cursor"
	"github.com/ironsheep/psi-tools-mcp/internal/psi"
)

// SurveyCache provides thread-safe caching of parsed PSI headers so repeated
// tool calls on the same file skip the header pass.
//
// Entries are keyed by the exact path string. An entry is dropped and the
// file re-parsed when its size or modification time changes on disk.
// Payloads are never cached; every ReadPlane opens its own cursor.
//
// SurveyCache is safe for concurrent use by multiple goroutines.
type SurveyCache struct {
	mu      sync.RWMutex
	entries map[string]surveyEntry
}

type surveyEntry struct {
	rec     *psi.Record
	size    int64
	modTime time.Time
}

// NewSurveyCache creates an empty cache.
func NewSurveyCache() *SurveyCache {
	return &SurveyCache{
		entries: make(map[string]surveyEntry),
	}
}

// Load returns the parsed header of the PSI file at path, from the cache
// when the file is unchanged.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns a *psi.FramingError or *psi.FormatError for files that are not
//     valid PSI containers
func (c *SurveyCache) Load(path string) (*psi.Record, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat survey: %w", err)
	}

	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && e.size == stat.Size() && e.modTime.Equal(stat.ModTime()) {
		return e.rec, nil
	}

	f, err := psi.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec := f.Record()
	// Only cache a record that belongs to the stat it is keyed by.
	if rec.FileLength == stat.Size() {
		c.mu.Lock()
		c.entries[path] = surveyEntry{rec: rec, size: stat.Size(), modTime: stat.ModTime()}
		c.mu.Unlock()
	}

	return rec, nil
}

// Clear removes all entries.
func (c *SurveyCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]surveyEntry)
	c.mu.Unlock()
}

// Evict removes the entry for path, if any.
func (c *SurveyCache) Evict(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Len returns the number of cached headers.
func (c *SurveyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ReadPlane decodes region of the selected image from the file at path.
// A zero region selects the whole image. maxPixels caps the region size;
// zero means no cap.
func (c *SurveyCache) ReadPlane(path string, sel psi.ImageSelector, region psi.Region, maxPixels int) (*Plane, error) {
	rec, err := c.Load(path)
	if err != nil {
		return nil, err
	}

	cur, closer, err := cursor.Open(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// A file replaced after Load is parsed again from the open cursor.
	if cur.Length() != rec.FileLength {
		c.Evict(path)
		if rec, err = psi.Parse(cur); err != nil {
			return nil, err
		}
	}

	layout, err := rec.Layout(sel)
	if err != nil {
		return nil, err
	}
	if region == (psi.Region{}) {
		region = layout.Full()
	}
	if maxPixels > 0 && region.Width*region.Height > maxPixels {
		return nil, fmt.Errorf("region %s has %d samples, limit is %d",
			region, region.Width*region.Height, maxPixels)
	}

	data, err := psi.NewDecoder(cur, rec).ReadPlane(sel, region)
	if err != nil {
		return nil, err
	}
	return &Plane{Layout: layout, Region: region, Data: data}, nil
}

// Number is a header-derived float. NaN and infinities, which a survey
// without a GPS fix can carry, are written to JSON as null.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// PlaneInfo summarises one image of a survey.
type PlaneInfo struct {
	Image     string `json:"image"`
	Present   bool   `json:"present"`
	Decodable bool   `json:"decodable"`
	Width     int    `json:"width"`
	Length    int    `json:"length"`
	BitDepth  int    `json:"bit_depth"`
	Codec     string `json:"codec"`
	Order     string `json:"storage_order"`
	Offset    int64  `json:"offset"`
	DataSize  int64  `json:"data_size"`
	// Millimetres per sample.
	LongitudinalResolution Number `json:"longitudinal_resolution_mm"`
	TransverseResolution   Number `json:"transverse_resolution_mm"`
	VerticalResolution     Number `json:"vertical_resolution_mm,omitempty"`
	// Physical extent in metres.
	WidthM  Number `json:"width_m"`
	LengthM Number `json:"length_m"`
}

// SurveyInfo contains the headline metadata of a PSI file.
type SurveyInfo struct {
	Path            string      `json:"path"`
	Version         string      `json:"version"`
	SoftwareVersion string      `json:"software_version"`
	State           string      `json:"state"`
	Route           string      `json:"route"`
	LaneIndex       int         `json:"lane_index"`
	Heading         Number      `json:"heading"`
	Latitude        Number      `json:"latitude"`
	Longitude       Number      `json:"longitude"`
	DMI             Number      `json:"dmi"`
	Date            string      `json:"date"`
	Time            string      `json:"time"`
	Speed           Number      `json:"speed"`
	Vehicle         string      `json:"vehicle"`
	Operator        string      `json:"operator"`
	Contractor      string      `json:"contractor"`
	SensorSystem    string      `json:"sensor_system"`
	Registered      bool        `json:"registered"`
	Images          []PlaneInfo `json:"images"`
	MetadataSize    int64       `json:"metadata_size"`
	FileSizeBytes   int64       `json:"file_size_bytes"`
}

// LoadSurveyInfo loads the header of the file at path through cache and
// summarises it.
func LoadSurveyInfo(cache *SurveyCache, path string) (*SurveyInfo, error) {
	rec, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	info := &SurveyInfo{
		Path:            path,
		Version:         rec.Version,
		SoftwareVersion: rec.SoftwareVersion,
		State:           rec.State,
		Route:           rec.Route,
		LaneIndex:       int(rec.LaneIndex),
		Heading:         Number(rec.Heading),
		Latitude:        Number(rec.Latitude),
		Longitude:       Number(rec.Longitude),
		DMI:             Number(rec.DMI),
		Date:            rec.Date,
		Time:            rec.Time,
		Speed:           Number(rec.Speed),
		Vehicle:         rec.Vehicle,
		Operator:        rec.Operator,
		Contractor:      rec.Contractor,
		SensorSystem:    rec.SensorSystem,
		Registered:      rec.Image3D.Registration == psi.Registered,
		MetadataSize:    int64(rec.MetadataSize),
		FileSizeBytes:   rec.FileLength,
	}
	for _, sel := range []psi.ImageSelector{psi.Image2D, psi.Image3D} {
		l, err := rec.Layout(sel)
		if err != nil {
			return nil, err
		}
		info.Images = append(info.Images, PlaneInfo{
			Image:                  sel.String(),
			Present:                l.Present(),
			Decodable:              l.Present() && l.Uncompressed,
			Width:                  l.Width,
			Length:                 l.Length,
			BitDepth:               l.BytesPerSample * 8,
			Codec:                  l.Codec,
			Order:                  l.Order.String(),
			Offset:                 l.Offset,
			DataSize:               l.DataSize,
			LongitudinalResolution: Number(l.LongitudinalResolution),
			TransverseResolution:   Number(l.TransverseResolution),
			VerticalResolution:     Number(l.VerticalResolution),
			WidthM:                 Number(float64(l.Width) * l.TransverseResolution / 1000),
			LengthM:                Number(float64(l.Length) * l.LongitudinalResolution / 1000),
		})
	}
	return info, nil
}
