package raster

import "context"

// AssetReader reads one single-band asset resampled onto a grid.
// The returned slice has grid.Size() values in row-major order, with
// NoData where the asset has no coverage.
type AssetReader interface {
	ReadBand(ctx context.Context, href string, grid Grid) ([]uint16, error)
}

// AssetResolver maps band names to item asset keys for a collection.
type AssetResolver interface {
	AssetKeys(collection string) map[string]string
}
