package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/landcover/internal/geo"
)

type allowSet map[string]bool

func (a allowSet) Has(id string) bool { return a[id] }

var testAllow = allowSet{"sentinel-2-l2a": true}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func validParams(t *testing.T) Params {
	return Params{
		Collection:    "sentinel-2-l2a",
		Start:         date(t, "2023-06-01"),
		End:           date(t, "2023-06-30"),
		MinCloudCover: 0,
		MaxCloudCover: 10,
		Latitude:      37.25,
		Longitude:     -119.75,
		Buffer:        0.01,
	}
}

func TestBuild(t *testing.T) {
	spec, err := Build(validParams(t), testAllow)
	require.NoError(t, err)

	assert.Equal(t, "sentinel-2-l2a", spec.Collection())
	assert.Equal(t, "2023-06-01/2023-06-30", spec.Datetime())
	assert.Equal(t, []string{"eo:cloud_cover<10", "eo:cloud_cover>0"}, spec.Predicates())
	assert.InDelta(t, -119.76, spec.BBox().MinLon(), 1e-9)
	assert.InDelta(t, 37.26, spec.BBox().MaxLat(), 1e-9)
	assert.Equal(t, 0.01, spec.Buffer())
}

func TestBuild_SameDayWindow(t *testing.T) {
	p := validParams(t)
	p.End = p.Start
	spec, err := Build(p, testAllow)
	require.NoError(t, err)
	assert.Equal(t, "2023-06-01/2023-06-01", spec.Datetime())
}

func TestBuild_TruncatesToCalendarDate(t *testing.T) {
	p := validParams(t)
	p.Start = time.Date(2023, 6, 1, 18, 30, 0, 0, time.UTC)
	p.End = time.Date(2023, 6, 1, 6, 0, 0, 0, time.UTC)

	spec, err := Build(p, testAllow)
	require.NoError(t, err)
	assert.Equal(t, "2023-06-01/2023-06-01", spec.Datetime())
}

func TestBuild_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Params)
		geomErr bool
	}{
		{"unknown collection", func(p *Params) { p.Collection = "landsat-c2-l2" }, false},
		{"empty collection", func(p *Params) { p.Collection = "  " }, false},
		{"start after end", func(p *Params) { p.Start, p.End = p.End, p.Start }, false},
		{"missing start", func(p *Params) { p.Start = time.Time{} }, false},
		{"max cloud cover above 100", func(p *Params) { p.MaxCloudCover = 101 }, false},
		{"max cloud cover negative", func(p *Params) { p.MaxCloudCover = -1 }, false},
		{"min cloud cover above max", func(p *Params) { p.MinCloudCover = 20 }, false},
		{"zero buffer", func(p *Params) { p.Buffer = 0 }, true},
		{"latitude out of range", func(p *Params) { p.Latitude = 95 }, true},
		{"longitude out of range", func(p *Params) { p.Longitude = -181 }, true},
		{"box past the pole", func(p *Params) { p.Latitude, p.Buffer = 89.999, 0.01 }, true},
		{"buffer wider than the world", func(p *Params) { p.Buffer = 500 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams(t)
			tt.mutate(&p)

			_, err := Build(p, testAllow)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			if tt.geomErr {
				assert.ErrorIs(t, err, geo.ErrInvalidGeometry)
			}
		})
	}
}

func TestBuild_StartAfterEndAlwaysFails(t *testing.T) {
	base := date(t, "2020-01-01")
	for offset := 1; offset <= 400; offset += 37 {
		p := validParams(t)
		p.End = base
		p.Start = base.AddDate(0, 0, offset)

		_, err := Build(p, testAllow)
		assert.ErrorIs(t, err, ErrValidation, "offset %d", offset)
	}
}

func TestBuild_NilAllowlist(t *testing.T) {
	_, err := Build(validParams(t), nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPredicates_FractionalBounds(t *testing.T) {
	p := validParams(t)
	p.MinCloudCover = 2.5
	p.MaxCloudCover = 37.75
	spec, err := Build(p, testAllow)
	require.NoError(t, err)
	assert.Equal(t, []string{"eo:cloud_cover<37.75", "eo:cloud_cover>2.5"}, spec.Predicates())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2023-06-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("06/05/2023")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSpec_Summary(t *testing.T) {
	spec, err := Build(validParams(t), testAllow)
	require.NoError(t, err)

	s := spec.Summary()
	assert.Equal(t, "2023-06-01", s.StartDate)
	assert.Equal(t, "2023-06-30", s.EndDate)
	assert.Equal(t, 37.25, s.Latitude)
	assert.Equal(t, -119.75, s.Longitude)
	assert.Len(t, s.BBox, 4)
}
