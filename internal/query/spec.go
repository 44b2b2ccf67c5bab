// Package query turns user-supplied search parameters into a validated,
// immutable catalog query.
package query

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/robert-malhotra/landcover/internal/geo"
)

// ErrValidation is returned for malformed or out-of-range user input.
var ErrValidation = errors.New("validation error")

// DateLayout is the calendar date format accepted at the boundary and used in
// scene labels.
const DateLayout = "2006-01-02"

// CloudCoverProperty is the STAC property the cloud-cover predicates apply to.
const CloudCoverProperty = "eo:cloud_cover"

// Allowlist reports whether a collection id may be searched.
type Allowlist interface {
	Has(id string) bool
}

// Params are the raw search inputs, typed but not yet validated.
type Params struct {
	Collection    string
	Start         time.Time
	End           time.Time
	MinCloudCover float64
	MaxCloudCover float64
	Latitude      float64
	Longitude     float64
	Buffer        float64
}

// Spec is a validated search request. The zero value is not a valid Spec;
// use Build.
type Spec struct {
	collection string
	start      time.Time
	end        time.Time
	cloudMin   float64
	cloudMax   float64
	center     orb.Point
	buffer     float64
	bbox       geo.BBox
}

// Build validates p against the allow-list and derives the bounding box.
func Build(p Params, allow Allowlist) (Spec, error) {
	collection := strings.TrimSpace(p.Collection)
	if collection == "" {
		return Spec{}, fmt.Errorf("%w: collection is required", ErrValidation)
	}
	if allow == nil || !allow.Has(collection) {
		return Spec{}, fmt.Errorf("%w: unknown collection %q", ErrValidation, collection)
	}

	if p.Start.IsZero() || p.End.IsZero() {
		return Spec{}, fmt.Errorf("%w: start and end dates are required", ErrValidation)
	}
	start, end := calendarDate(p.Start), calendarDate(p.End)
	if start.After(end) {
		return Spec{}, fmt.Errorf("%w: start date %s is after end date %s",
			ErrValidation, start.Format(DateLayout), end.Format(DateLayout))
	}

	if err := validateCloudCover(p.MinCloudCover, p.MaxCloudCover); err != nil {
		return Spec{}, err
	}

	bbox, err := geo.BuildBBox(p.Latitude, p.Longitude, p.Buffer)
	if err != nil {
		return Spec{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return Spec{
		collection: collection,
		start:      start,
		end:        end,
		cloudMin:   p.MinCloudCover,
		cloudMax:   p.MaxCloudCover,
		center:     orb.Point{p.Longitude, p.Latitude},
		buffer:     p.Buffer,
		bbox:       bbox,
	}, nil
}

func validateCloudCover(min, max float64) error {
	if math.IsNaN(min) || min < 0 || min > 100 {
		return fmt.Errorf("%w: min cloud cover must be between 0 and 100, got %v", ErrValidation, min)
	}
	if math.IsNaN(max) || max < 0 || max > 100 {
		return fmt.Errorf("%w: max cloud cover must be between 0 and 100, got %v", ErrValidation, max)
	}
	if min > max {
		return fmt.Errorf("%w: min cloud cover (%v) must not exceed max cloud cover (%v)", ErrValidation, min, max)
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be formatted YYYY-MM-DD", ErrValidation, s)
	}
	return t, nil
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s Spec) Collection() string     { return s.collection }
func (s Spec) Start() time.Time       { return s.start }
func (s Spec) End() time.Time         { return s.end }
func (s Spec) MinCloudCover() float64 { return s.cloudMin }
func (s Spec) MaxCloudCover() float64 { return s.cloudMax }
func (s Spec) Center() orb.Point      { return s.center }
func (s Spec) Buffer() float64        { return s.buffer }
func (s Spec) BBox() geo.BBox         { return s.bbox }

// Datetime renders the date window as "start/end".
func (s Spec) Datetime() string {
	return s.start.Format(DateLayout) + "/" + s.end.Format(DateLayout)
}

// Predicates renders the cloud-cover bounds as "<field><op><value>" strings,
// upper bound first.
func (s Spec) Predicates() []string {
	return []string{
		CloudCoverProperty + "<" + formatNumber(s.cloudMax),
		CloudCoverProperty + ">" + formatNumber(s.cloudMin),
	}
}

// Summary is a flat, JSON-friendly view of the query for history listings.
type Summary struct {
	Collection    string    `json:"collection"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	MinCloudCover float64   `json:"min_cloud_cover"`
	MaxCloudCover float64   `json:"max_cloud_cover"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Buffer        float64   `json:"buffer"`
	BBox          []float64 `json:"bbox"`
}

// Summary returns the flat view of s.
func (s Spec) Summary() Summary {
	return Summary{
		Collection:    s.collection,
		StartDate:     s.start.Format(DateLayout),
		EndDate:       s.end.Format(DateLayout),
		MinCloudCover: s.cloudMin,
		MaxCloudCover: s.cloudMax,
		Latitude:      s.center.Lat(),
		Longitude:     s.center.Lon(),
		Buffer:        s.buffer,
		BBox:          s.bbox.Slice(),
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
