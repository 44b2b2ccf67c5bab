// Package raster materializes STAC items into a time-ordered stack of
// co-registered band rasters.
package raster

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/robert-malhotra/landcover/internal/geo"
)

// Band names read for every scene.
const (
	BandRed   = "red"
	BandGreen = "green"
	BandBlue  = "blue"
	BandSCL   = "scl"
)

// Bands lists the bands materialized for each scene, in read order.
var Bands = []string{BandRed, BandGreen, BandBlue, BandSCL}

// NoData is the fill value for pixels no item covers.
const NoData uint16 = 0

var (
	// ErrEmptyStack is returned when no item yields a time step.
	ErrEmptyStack = errors.New("empty scene stack")

	// ErrLoad is returned when an asset cannot be read.
	ErrLoad = errors.New("raster load failed")
)

// Grid is the output pixel grid shared by every scene in a stack.
// Rows run north to south, columns west to east.
type Grid struct {
	BBox   geo.BBox
	Width  int
	Height int
}

// NewGrid sizes a grid over bbox at resolution degrees per pixel. When the
// grid would exceed maxPixels both dimensions are scaled down evenly.
func NewGrid(bbox geo.BBox, resolution float64, maxPixels int) (Grid, error) {
	if err := bbox.Validate(); err != nil {
		return Grid{}, err
	}
	if resolution <= 0 || math.IsNaN(resolution) || math.IsInf(resolution, 0) {
		return Grid{}, fmt.Errorf("resolution must be positive, got %v", resolution)
	}
	if maxPixels < 1 {
		return Grid{}, fmt.Errorf("max pixels must be at least 1, got %d", maxPixels)
	}

	w := int(math.Ceil(bbox.Width() / resolution))
	h := int(math.Ceil(bbox.Height() / resolution))
	w, h = max(w, 1), max(h, 1)

	if w*h > maxPixels {
		f := math.Sqrt(float64(maxPixels) / float64(w*h))
		w = max(int(float64(w)*f), 1)
		h = max(int(float64(h)*f), 1)
	}

	return Grid{BBox: bbox, Width: w, Height: h}, nil
}

// Size returns the number of pixels in the grid.
func (g Grid) Size() int {
	return g.Width * g.Height
}

// Scene is one time step: the fused bands of every item acquired on the
// same solar day.
type Scene struct {
	Time  time.Time
	Items []string
	Bands map[string][]uint16
}

// Band returns the raster for name.
func (s *Scene) Band(name string) ([]uint16, bool) {
	if s == nil {
		return nil, false
	}
	data, ok := s.Bands[name]
	return data, ok
}

// Stack is a time-ordered series of scenes on one grid.
type Stack struct {
	Grid   Grid
	Scenes []Scene
}

// Len returns the number of time steps.
func (s *Stack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Scenes)
}

// At returns the scene at time index t.
func (s *Stack) At(t int) (*Scene, bool) {
	if s == nil || t < 0 || t >= len(s.Scenes) {
		return nil, false
	}
	return &s.Scenes[t], true
}
