package scene

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sort"

	"github.com/robert-malhotra/landcover/internal/raster"
)

// RGBSlice holds the true-colour bands of one time step.
type RGBSlice struct {
	Width  int
	Height int
	Red    []uint16
	Green  []uint16
	Blue   []uint16
}

// RGB extracts the red, green and blue bands at time step t.
func RGB(stack *raster.Stack, t int) (*RGBSlice, error) {
	scene, ok := stack.At(t)
	if !ok {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, t, stack.Len())
	}

	slice := &RGBSlice{Width: stack.Grid.Width, Height: stack.Grid.Height}
	for _, b := range []struct {
		name string
		dst  *[]uint16
	}{
		{raster.BandRed, &slice.Red},
		{raster.BandGreen, &slice.Green},
		{raster.BandBlue, &slice.Blue},
	} {
		data, ok := scene.Band(b.name)
		if !ok {
			return nil, fmt.Errorf("%w: time step %d has no %s band", ErrLoad, t, b.name)
		}
		if len(data) != stack.Grid.Size() {
			return nil, fmt.Errorf("%w: %s band has %d pixels, grid has %d", ErrLoad, b.name, len(data), stack.Grid.Size())
		}
		*b.dst = data
	}

	return slice, nil
}

// Stretch maps reflectances between two percentiles onto 0..255.
type Stretch struct {
	Low  float64
	High float64
}

// RobustStretch clips at the 2nd and 98th percentiles.
var RobustStretch = Stretch{Low: 2, High: 98}

// Image renders the slice. The percentile bounds are shared by all three
// bands and ignore zero (no-data) values; pixels with no data in any band
// are transparent.
func (s *RGBSlice) Image(stretch Stretch) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, s.Width, s.Height))

	valid := make([]float64, 0, 3*len(s.Red))
	for _, band := range [][]uint16{s.Red, s.Green, s.Blue} {
		for _, v := range band {
			if v != raster.NoData {
				valid = append(valid, float64(v))
			}
		}
	}
	if len(valid) == 0 {
		return img
	}
	sort.Float64s(valid)

	lo := percentile(valid, stretch.Low)
	hi := percentile(valid, stretch.High)
	if hi <= lo {
		hi = lo + 1
	}

	scale := func(v uint16) uint8 {
		f := (float64(v) - lo) / (hi - lo) * 255
		return uint8(math.Round(math.Max(0, math.Min(255, f))))
	}

	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			i := y*s.Width + x
			r, g, b := s.Red[i], s.Green[i], s.Blue[i]
			if r == raster.NoData && g == raster.NoData && b == raster.NoData {
				continue
			}
			img.SetNRGBA(x, y, color.NRGBA{R: scale(r), G: scale(g), B: scale(b), A: 255})
		}
	}

	return img
}

// percentile returns the p-th percentile of sorted values, interpolating
// linearly between closest ranks.
func percentile(sorted []float64, p float64) float64 {
	p = math.Max(0, math.Min(100, p))
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// EncodePNG writes img to w as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
