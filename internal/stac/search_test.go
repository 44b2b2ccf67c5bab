package stac

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePredicate(t *testing.T) {
	tests := []struct {
		input string
		want  Predicate
	}{
		{"eo:cloud_cover<10", Predicate{"eo:cloud_cover", "<", 10}},
		{"eo:cloud_cover>0", Predicate{"eo:cloud_cover", ">", 0}},
		{"eo:cloud_cover<=12.5", Predicate{"eo:cloud_cover", "<=", 12.5}},
		{"view:sun_elevation >= 30", Predicate{"view:sun_elevation", ">=", 30}},
		{"s2:nodata_pixel_percentage!=100", Predicate{"s2:nodata_pixel_percentage", "!=", 100}},
		{"gsd=10", Predicate{"gsd", "=", 10}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePredicate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePredicate_Invalid(t *testing.T) {
	for _, input := range []string{"", "eo:cloud_cover", "<10", "eo:cloud_cover<ten"} {
		_, err := ParsePredicate(input)
		assert.ErrorIs(t, err, ErrInvalidPredicate, "input %q", input)
	}
}

func TestPredicate_StringRoundTrip(t *testing.T) {
	p, err := ParsePredicate("eo:cloud_cover<37.5")
	require.NoError(t, err)
	assert.Equal(t, "eo:cloud_cover<37.5", p.String())
}

func TestQueryExtension(t *testing.T) {
	preds, err := ParsePredicates([]string{"eo:cloud_cover<10", "eo:cloud_cover>0"})
	require.NoError(t, err)

	q := QueryExtension(preds)
	require.Contains(t, q, "eo:cloud_cover")
	assert.Equal(t, map[string]any{"lt": 10.0, "gt": 0.0}, q["eo:cloud_cover"])

	assert.Nil(t, QueryExtension(nil))
}

func TestNewSearchRequest_QueryMode(t *testing.T) {
	req, err := NewSearchRequest(
		[]string{"sentinel-2-l2a"},
		[]float64{-119.76, 37.24, -119.74, 37.26},
		"2023-06-01/2023-06-30",
		[]string{"eo:cloud_cover<10", "eo:cloud_cover>0"},
		100,
		FilterModeQuery,
	)
	require.NoError(t, err)

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))

	assert.Equal(t, "2023-06-01T00:00:00Z/2023-06-30T23:59:59Z", body["datetime"])
	assert.Equal(t, []any{"sentinel-2-l2a"}, body["collections"])
	assert.Equal(t, []any{-119.76, 37.24, -119.74, 37.26}, body["bbox"])
	assert.Equal(t, 100.0, body["limit"])
	assert.Equal(t, map[string]any{"eo:cloud_cover": map[string]any{"lt": 10.0, "gt": 0.0}}, body["query"])
	assert.NotContains(t, body, "filter")
}

func TestNewSearchRequest_CQL2Mode(t *testing.T) {
	req, err := NewSearchRequest(
		[]string{"sentinel-2-l2a"},
		[]float64{-1, -1, 1, 1},
		"2023-06-01/2023-06-30",
		[]string{"eo:cloud_cover<10", "eo:cloud_cover>0"},
		50,
		FilterModeCQL2,
	)
	require.NoError(t, err)
	assert.Nil(t, req.Query)
	assert.Equal(t, FilterLangCQL, req.FilterLang)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"filter-lang":"cql2-json"`)
	assert.Contains(t, string(data), `"op":"and"`)
	assert.Contains(t, string(data), `"property":"eo:cloud_cover"`)
}

func TestNewSearchRequest_BadPredicate(t *testing.T) {
	_, err := NewSearchRequest(nil, nil, "2023-06-01/2023-06-30", []string{"cloudy"}, 10, FilterModeQuery)
	assert.ErrorIs(t, err, ErrInvalidPredicate)
}

func TestParseFilterMode(t *testing.T) {
	m, err := ParseFilterMode("CQL2")
	require.NoError(t, err)
	assert.Equal(t, FilterModeCQL2, m)

	m, err = ParseFilterMode("")
	require.NoError(t, err)
	assert.Equal(t, FilterModeQuery, m)

	_, err = ParseFilterMode("sql")
	assert.Error(t, err)
}

func TestNextBody(t *testing.T) {
	current := map[string]any{"collections": []any{"c"}, "limit": 10.0}

	assert.Equal(t, current, NextBody(current, nil))
	assert.Equal(t, current, NextBody(current, &SearchLink{Rel: "next"}))

	replaced := NextBody(current, &SearchLink{Rel: "next", Body: map[string]any{"next": "tok"}})
	assert.Equal(t, map[string]any{"next": "tok"}, replaced)

	merged := NextBody(current, &SearchLink{Rel: "next", Merge: true, Body: map[string]any{"next": "tok"}})
	assert.Equal(t, "tok", merged["next"])
	assert.Equal(t, 10.0, merged["limit"])
	assert.NotContains(t, current, "next")
}

func TestItemCollection_Next(t *testing.T) {
	ic := &ItemCollection{Links: []*SearchLink{
		{Rel: "self", Href: "http://x/search"},
		{Rel: "next", Href: "http://x/search?next=abc", Method: "GET"},
	}}
	next := ic.Next()
	require.NotNil(t, next)
	assert.Equal(t, "http://x/search?next=abc", next.Href)

	assert.Nil(t, (&ItemCollection{}).Next())
}

func TestAssetHref(t *testing.T) {
	item := &Item{Assets: map[string]*Asset{"red": {Href: "https://example.com/B04.tif"}}}
	assert.Equal(t, "https://example.com/B04.tif", AssetHref(item, "red"))
	assert.Equal(t, "", AssetHref(item, "scl"))
	assert.Equal(t, "", AssetHref(nil, "red"))
}

func TestItemCollection_Matched(t *testing.T) {
	n, m := 42, 7
	assert.Equal(t, &n, (&ItemCollection{NumberMatched: &n, Context: &Context{Matched: &m}}).Matched())
	assert.Equal(t, &m, (&ItemCollection{Context: &Context{Matched: &m}}).Matched())
	assert.Nil(t, (&ItemCollection{}).Matched())
}
