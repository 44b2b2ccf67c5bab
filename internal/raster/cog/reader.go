// Package cog reads Cloud-Optimized GeoTIFF assets through GDAL.
package cog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/airbusgeo/godal"

	"github.com/robert-malhotra/landcover/internal/raster"
)

// Reader reads Cloud-Optimized GeoTIFF assets over HTTP with GDAL,
// warping each one onto the requested grid in EPSG:4326.
type Reader struct {
	logger *slog.Logger
}

// NewReader registers the GDAL drivers and returns a reader.
func NewReader() *Reader {
	godal.RegisterAll()
	return &Reader{logger: slog.Default()}
}

// WithLogger sets a custom logger for the reader.
func (r *Reader) WithLogger(logger *slog.Logger) *Reader {
	r.logger = logger
	return r
}

// ReadBand implements raster.AssetReader.
func (r *Reader) ReadBand(ctx context.Context, href string, grid raster.Grid) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := godal.Open(vsiPath(href),
		godal.ConfigOption("GDAL_DISABLE_READDIR_ON_OPEN=EMPTY_DIR"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", href, err)
	}
	defer ds.Close()

	warped, err := ds.Warp("", warpSwitches(grid))
	if err != nil {
		return nil, fmt.Errorf("failed to warp %s: %w", href, err)
	}
	defer warped.Close()

	bands := warped.Bands()
	if len(bands) == 0 {
		return nil, fmt.Errorf("asset %s has no bands", href)
	}

	buf := make([]uint16, grid.Size())
	if err := bands[0].Read(0, 0, buf, grid.Width, grid.Height); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", href, err)
	}

	r.logger.DebugContext(ctx, "read asset",
		slog.String("href", href),
		slog.Int("width", grid.Width),
		slog.Int("height", grid.Height),
	)

	return buf, nil
}

// vsiPath routes remote hrefs through GDAL's virtual file systems.
func vsiPath(href string) string {
	switch {
	case strings.HasPrefix(href, "s3://"):
		return "/vsis3/" + strings.TrimPrefix(href, "s3://")
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return "/vsicurl/" + href
	default:
		return href
	}
}

// warpSwitches are gdalwarp arguments producing an in-memory raster that
// exactly covers grid with nearest-neighbour resampling.
func warpSwitches(grid raster.Grid) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		"-of", "MEM",
		"-t_srs", "EPSG:4326",
		"-te", f(grid.BBox.MinLon()), f(grid.BBox.MinLat()), f(grid.BBox.MaxLon()), f(grid.BBox.MaxLat()),
		"-ts", strconv.Itoa(grid.Width), strconv.Itoa(grid.Height),
		"-r", "near",
		"-ot", "UInt16",
		"-dstnodata", "0",
	}
}
