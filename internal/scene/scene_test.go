package scene

import (
	"time"

	"github.com/robert-malhotra/landcover/internal/geo"
	"github.com/robert-malhotra/landcover/internal/raster"
)

// stackOf builds a stack over a width x height grid with one scene per scl
// raster, a day apart starting at start.
func stackOf(width, height int, start time.Time, scls ...[]uint16) *raster.Stack {
	stack := &raster.Stack{
		Grid: raster.Grid{BBox: geo.BBox{0, 0, 1, 1}, Width: width, Height: height},
	}
	for i, scl := range scls {
		n := len(scl)
		stack.Scenes = append(stack.Scenes, raster.Scene{
			Time: start.Add(time.Duration(i) * 24 * time.Hour),
			Bands: map[string][]uint16{
				raster.BandSCL:   scl,
				raster.BandRed:   make([]uint16, n),
				raster.BandGreen: make([]uint16, n),
				raster.BandBlue:  make([]uint16, n),
			},
		})
	}
	return stack
}

func fill(n int, v uint16) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = v
	}
	return out
}
