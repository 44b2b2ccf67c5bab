// Package stac provides the STAC API wire types used to talk to a scene
// catalog, wrapping planetlabs/go-stac for the core item types.
package stac

import (
	gostac "github.com/planetlabs/go-stac"
)

// Re-export core types from planetlabs/go-stac for convenience
type (
	Item  = gostac.Item
	Asset = gostac.Asset
	Link  = gostac.Link
)

// Link relations and media types used while paging through search results.
const (
	RelNext       = "next"
	MediaGeoJSON  = "application/geo+json"
	MediaJSON     = "application/json"
	FilterLangCQL = "cql2-json"
)

// SearchLink is a link as returned in an item search page. Unlike the core
// Link it carries the POST body and merge flag that STAC API uses for
// paging POST searches.
type SearchLink struct {
	Rel    string         `json:"rel"`
	Href   string         `json:"href"`
	Type   string         `json:"type,omitempty"`
	Method string         `json:"method,omitempty"`
	Body   map[string]any `json:"body,omitempty"`
	Merge  bool           `json:"merge,omitempty"`
}

// ItemCollection is one page of an item search (a GeoJSON FeatureCollection).
type ItemCollection struct {
	Type           string        `json:"type"`
	Features       []*Item       `json:"features"`
	Links          []*SearchLink `json:"links"`
	NumberMatched  *int          `json:"numberMatched,omitempty"`
	NumberReturned *int          `json:"numberReturned,omitempty"`
	Context        *Context      `json:"context,omitempty"`
}

// Context provides additional metadata about the response (STAC Context extension)
type Context struct {
	Returned int  `json:"returned"`
	Limit    int  `json:"limit,omitempty"`
	Matched  *int `json:"matched,omitempty"`
}

// Next returns the rel=next link of the page, or nil on the last page.
func (ic *ItemCollection) Next() *SearchLink {
	for _, link := range ic.Links {
		if link != nil && link.Rel == RelNext && link.Href != "" {
			return link
		}
	}
	return nil
}

// Matched returns the total number of matching items when the catalog
// reports it.
func (ic *ItemCollection) Matched() *int {
	if ic.NumberMatched != nil {
		return ic.NumberMatched
	}
	if ic.Context != nil {
		return ic.Context.Matched
	}
	return nil
}

// AssetHref returns the href of the named asset, or "" if the item does not
// carry it.
func AssetHref(item *Item, key string) string {
	if item == nil || item.Assets == nil {
		return ""
	}
	asset, ok := item.Assets[key]
	if !ok || asset == nil {
		return ""
	}
	return asset.Href
}
