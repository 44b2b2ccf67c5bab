// Package geo builds and validates the area-of-interest rectangles used to
// query the catalog and to lay out raster grids.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// ErrInvalidGeometry is returned when a point, buffer or bbox cannot describe
// a non-degenerate area.
var ErrInvalidGeometry = errors.New("invalid geometry")

// BBox is a geographic rectangle [min_lon, min_lat, max_lon, max_lat].
type BBox [4]float64

// BuildBBox pads the center point (lat, lon) by buffer degrees on every side.
func BuildBBox(lat, lon, buffer float64) (BBox, error) {
	if err := ValidatePoint(lat, lon); err != nil {
		return BBox{}, err
	}

	if math.IsNaN(buffer) || math.IsInf(buffer, 0) || buffer <= 0 {
		return BBox{}, fmt.Errorf("%w: buffer must be a positive number of degrees, got %v", ErrInvalidGeometry, buffer)
	}

	bbox := BBox{lon - buffer, lat - buffer, lon + buffer, lat + buffer}
	if bbox.IsDegenerate() {
		return BBox{}, fmt.Errorf("%w: buffer %v is too small to form an area around (%v, %v)", ErrInvalidGeometry, buffer, lat, lon)
	}
	if err := bbox.WithinWorld(); err != nil {
		return BBox{}, fmt.Errorf("%w (buffer %v around (%v, %v))", err, buffer, lat, lon)
	}

	return bbox, nil
}

// ValidatePoint checks that lat and lon are finite and inside the valid
// geographic range.
func ValidatePoint(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90, got %v", ErrInvalidGeometry, lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180, got %v", ErrInvalidGeometry, lon)
	}
	return nil
}

// FromSlice converts a STAC-style bbox slice. Both 4 and 6 value forms are
// accepted; elevation is dropped.
func FromSlice(values []float64) (BBox, error) {
	switch len(values) {
	case 4:
		return BBox{values[0], values[1], values[2], values[3]}, nil
	case 6:
		return BBox{values[0], values[1], values[3], values[4]}, nil
	default:
		return BBox{}, fmt.Errorf("%w: bbox must have 4 or 6 values, got %d", ErrInvalidGeometry, len(values))
	}
}

// FromBound converts an orb bound.
func FromBound(b orb.Bound) BBox {
	return BBox{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()}
}

func (b BBox) MinLon() float64 { return b[0] }
func (b BBox) MinLat() float64 { return b[1] }
func (b BBox) MaxLon() float64 { return b[2] }
func (b BBox) MaxLat() float64 { return b[3] }

// Width is the east-west extent in degrees.
func (b BBox) Width() float64 { return b[2] - b[0] }

// Height is the north-south extent in degrees.
func (b BBox) Height() float64 { return b[3] - b[1] }

// IsDegenerate reports whether the box has no area.
func (b BBox) IsDegenerate() bool {
	return !(b[0] < b[2]) || !(b[1] < b[3])
}

// Validate checks the box ordering and that it is not degenerate.
func (b BBox) Validate() error {
	for i, v := range b {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: bbox coordinate %d is not finite", ErrInvalidGeometry, i)
		}
	}
	if !(b[0] < b[2]) {
		return fmt.Errorf("%w: min longitude (%v) must be less than max longitude (%v)", ErrInvalidGeometry, b[0], b[2])
	}
	if !(b[1] < b[3]) {
		return fmt.Errorf("%w: min latitude (%v) must be less than max latitude (%v)", ErrInvalidGeometry, b[1], b[3])
	}
	return nil
}

// WithinWorld checks that every edge lies inside [-180, 180] x [-90, 90].
// Boxes are never clamped so the half-width stays exactly the buffer.
func (b BBox) WithinWorld() error {
	if b[0] < -180 || b[2] > 180 {
		return fmt.Errorf("%w: longitude extent [%v, %v] leaves [-180, 180]", ErrInvalidGeometry, b[0], b[2])
	}
	if b[1] < -90 || b[3] > 90 {
		return fmt.Errorf("%w: latitude extent [%v, %v] leaves [-90, 90]", ErrInvalidGeometry, b[1], b[3])
	}
	return nil
}

// Bound returns the box as an orb.Bound.
func (b BBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b[0], b[1]},
		Max: orb.Point{b[2], b[3]},
	}
}

// Center returns the box midpoint as (lon, lat).
func (b BBox) Center() orb.Point {
	return b.Bound().Center()
}

// Intersects reports whether two boxes share any area or edge.
func (b BBox) Intersects(other BBox) bool {
	return b.Bound().Intersects(other.Bound())
}

// Slice returns the box as a []float64 for JSON request bodies.
func (b BBox) Slice() []float64 {
	return []float64{b[0], b[1], b[2], b[3]}
}

// String renders "min_lon,min_lat,max_lon,max_lat".
func (b BBox) String() string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
