package raster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/landcover/internal/geo"
	"github.com/robert-malhotra/landcover/internal/stac"
)

// Options controls grid sizing and read parallelism.
type Options struct {
	// Resolution is the pixel size in degrees.
	Resolution float64
	// MaxPixels caps Width*Height of the output grid.
	MaxPixels int
	// Concurrency bounds the number of in-flight asset reads.
	Concurrency int
}

// DefaultOptions returns roughly 10 m pixels, a 4 MP cap and 8 readers.
func DefaultOptions() Options {
	return Options{
		Resolution:  0.0001,
		MaxPixels:   4_000_000,
		Concurrency: 8,
	}
}

// Loader turns catalog items into a Stack.
type Loader struct {
	reader AssetReader
	assets AssetResolver
	opts   Options
	logger *slog.Logger
}

// NewLoader creates a loader that reads assets through reader.
func NewLoader(reader AssetReader, opts Options) *Loader {
	defaults := DefaultOptions()
	if opts.Resolution <= 0 {
		opts.Resolution = defaults.Resolution
	}
	if opts.MaxPixels < 1 {
		opts.MaxPixels = defaults.MaxPixels
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = defaults.Concurrency
	}

	return &Loader{
		reader: reader,
		opts:   opts,
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger for the loader.
func (l *Loader) WithLogger(logger *slog.Logger) *Loader {
	l.logger = logger
	return l
}

// WithAssets sets the band to asset key mapping per collection. Without a
// resolver, or for collections it does not know, band names are used as
// asset keys.
func (l *Loader) WithAssets(resolver AssetResolver) *Loader {
	l.assets = resolver
	return l
}

// dayGroup is the set of items sharing one solar day.
type dayGroup struct {
	day   time.Time
	time  time.Time
	items []*stac.Item
}

// bandSlot is one band of one scene and the item assets that fill it,
// in acquisition order.
type bandSlot struct {
	group int
	band  string
	reads []assetRead
}

type assetRead struct {
	item string
	href string
}

// Materialize builds the scene stack for items clipped to bbox. Items are
// grouped by solar day and fused first-valid-wins in acquisition order.
// Any failed read fails the whole call.
func (l *Loader) Materialize(ctx context.Context, items []*stac.Item, bbox geo.BBox) (*Stack, error) {
	grid, err := NewGrid(bbox, l.opts.Resolution, l.opts.MaxPixels)
	if err != nil {
		return nil, fmt.Errorf("failed to size grid: %w", err)
	}

	groups := l.groupBySolarDay(ctx, items, bbox)
	if len(groups) == 0 {
		return nil, ErrEmptyStack
	}

	slots, err := l.planReads(groups)
	if err != nil {
		return nil, err
	}

	l.logger.DebugContext(ctx, "materializing scene stack",
		slog.Int("scenes", len(groups)),
		slog.Int("slots", len(slots)),
		slog.Int("width", grid.Width),
		slog.Int("height", grid.Height),
	)

	stack := &Stack{Grid: grid, Scenes: make([]Scene, len(groups))}
	for i, group := range groups {
		scene := Scene{
			Time:  group.time,
			Items: make([]string, len(group.items)),
			Bands: make(map[string][]uint16, len(Bands)),
		}
		for j, item := range group.items {
			scene.Items[j] = item.Id
		}
		for _, band := range Bands {
			scene.Bands[band] = make([]uint16, grid.Size())
		}
		stack.Scenes[i] = scene
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Concurrency)

	// Each slot owns one band of one scene and reads its items in
	// acquisition order, so at most Concurrency item rasters are live.
	for _, slot := range slots {
		dst := stack.Scenes[slot.group].Bands[slot.band]
		g.Go(func() error {
			for _, read := range slot.reads {
				if err := gctx.Err(); err != nil {
					return err
				}
				data, err := l.reader.ReadBand(gctx, read.href, grid)
				if err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return ctxErr
					}
					return fmt.Errorf("%w: item %s band %s: %w", ErrLoad, read.item, slot.band, err)
				}
				if len(data) != grid.Size() {
					return fmt.Errorf("%w: item %s band %s: got %d pixels, want %d",
						ErrLoad, read.item, slot.band, len(data), grid.Size())
				}
				fuseFirstValid(dst, data)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			l.logger.ErrorContext(ctx, "scene stack load failed", slog.String("error", err.Error()))
		}
		return nil, err
	}

	return stack, nil
}

// groupBySolarDay drops items that miss bbox or have no usable datetime and
// groups the rest by solar day, earliest first.
func (l *Loader) groupBySolarDay(ctx context.Context, items []*stac.Item, bbox geo.BBox) []*dayGroup {
	byDay := make(map[time.Time]*dayGroup)

	for _, item := range items {
		if item == nil {
			continue
		}

		fp, err := Footprint(item)
		if err != nil {
			l.logger.WarnContext(ctx, "dropping item without usable footprint",
				slog.String("item", item.Id),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !fp.Intersects(bbox) {
			l.logger.DebugContext(ctx, "dropping item outside area of interest",
				slog.String("item", item.Id),
			)
			continue
		}

		t, err := stac.ItemTime(item)
		if err != nil {
			l.logger.WarnContext(ctx, "dropping item without usable datetime",
				slog.String("item", item.Id),
				slog.String("error", err.Error()),
			)
			continue
		}

		day := SolarDay(t, fp.Center().Lon())
		group, ok := byDay[day]
		if !ok {
			group = &dayGroup{day: day, time: t}
			byDay[day] = group
		}
		if t.Before(group.time) {
			group.time = t
		}
		group.items = append(group.items, item)
	}

	groups := make([]*dayGroup, 0, len(byDay))
	for _, group := range byDay {
		sort.SliceStable(group.items, func(i, j int) bool {
			ti, _ := stac.ItemTime(group.items[i])
			tj, _ := stac.ItemTime(group.items[j])
			if !ti.Equal(tj) {
				return ti.Before(tj)
			}
			return group.items[i].Id < group.items[j].Id
		})
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].day.Before(groups[j].day)
	})

	return groups
}

// planReads resolves an asset href for every (group, band, item).
func (l *Loader) planReads(groups []*dayGroup) ([]*bandSlot, error) {
	var slots []*bandSlot
	for gi, group := range groups {
		for _, band := range Bands {
			slot := &bandSlot{group: gi, band: band, reads: make([]assetRead, 0, len(group.items))}
			for _, item := range group.items {
				key := l.assetKey(item.Collection, band)
				href := stac.AssetHref(item, key)
				if href == "" {
					return nil, fmt.Errorf("%w: item %s has no %q asset for band %s", ErrLoad, item.Id, key, band)
				}
				slot.reads = append(slot.reads, assetRead{item: item.Id, href: href})
			}
			slots = append(slots, slot)
		}
	}

	return slots, nil
}

func (l *Loader) assetKey(collection, band string) string {
	if l.assets != nil {
		if key := l.assets.AssetKeys(collection)[band]; key != "" {
			return key
		}
	}
	return band
}

// fuseFirstValid fills NoData pixels of dst from src.
func fuseFirstValid(dst, src []uint16) {
	for i, v := range src {
		if dst[i] == NoData && v != NoData {
			dst[i] = v
		}
	}
}

// Footprint returns the item's bounding box, from its bbox member or, when
// absent, from its GeoJSON geometry.
func Footprint(item *stac.Item) (geo.BBox, error) {
	if len(item.Bbox) > 0 {
		bbox, err := geo.FromSlice(item.Bbox)
		if err != nil {
			return geo.BBox{}, err
		}
		return bbox, bbox.Validate()
	}

	if item.Geometry == nil {
		return geo.BBox{}, fmt.Errorf("%w: item has neither bbox nor geometry", geo.ErrInvalidGeometry)
	}

	data, err := json.Marshal(item.Geometry)
	if err != nil {
		return geo.BBox{}, fmt.Errorf("%w: %v", geo.ErrInvalidGeometry, err)
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return geo.BBox{}, fmt.Errorf("%w: %v", geo.ErrInvalidGeometry, err)
	}

	bbox := geo.FromBound(g.Geometry().Bound())
	if bbox.IsDegenerate() {
		// Point footprints still intersect anything that contains them.
		return bbox, nil
	}
	return bbox, bbox.Validate()
}
