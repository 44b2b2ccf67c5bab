package cog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/robert-malhotra/landcover/internal/geo"
	"github.com/robert-malhotra/landcover/internal/raster"
)

func TestVSIPath(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"https://sentinel-cogs.s3.us-west-2.amazonaws.com/B04.tif", "/vsicurl/https://sentinel-cogs.s3.us-west-2.amazonaws.com/B04.tif"},
		{"http://example.com/a.tif", "/vsicurl/http://example.com/a.tif"},
		{"s3://sentinel-cogs/tiles/B04.tif", "/vsis3/sentinel-cogs/tiles/B04.tif"},
		{"/data/local.tif", "/data/local.tif"},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			assert.Equal(t, tt.want, vsiPath(tt.href))
		})
	}
}

func TestWarpSwitches(t *testing.T) {
	grid := raster.Grid{BBox: geo.BBox{-119.76, 37.24, -119.74, 37.26}, Width: 200, Height: 200}

	got := warpSwitches(grid)
	assert.Equal(t, []string{
		"-of", "MEM",
		"-t_srs", "EPSG:4326",
		"-te", "-119.76", "37.24", "-119.74", "37.26",
		"-ts", "200", "200",
		"-r", "near",
		"-ot", "UInt16",
		"-dstnodata", "0",
	}, got)
}
