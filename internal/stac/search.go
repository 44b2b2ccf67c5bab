package stac

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FilterMode selects how property predicates are sent to the catalog.
type FilterMode string

const (
	// FilterModeQuery uses the STAC Query extension ("query" member).
	FilterModeQuery FilterMode = "query"
	// FilterModeCQL2 uses the STAC Filter extension with CQL2-JSON.
	FilterModeCQL2 FilterMode = "cql2"
)

// ParseFilterMode validates a configured filter mode.
func ParseFilterMode(s string) (FilterMode, error) {
	switch FilterMode(strings.ToLower(strings.TrimSpace(s))) {
	case FilterModeQuery, "":
		return FilterModeQuery, nil
	case FilterModeCQL2:
		return FilterModeCQL2, nil
	default:
		return "", fmt.Errorf("unknown filter mode %q, must be one of: query, cql2", s)
	}
}

// SearchRequest represents a STAC item search request body.
type SearchRequest struct {
	BBox        []float64                 `json:"bbox,omitempty"`
	DateTime    string                    `json:"datetime,omitempty"`
	Collections []string                  `json:"collections,omitempty"`
	Limit       int                       `json:"limit,omitempty"`
	Query       map[string]map[string]any `json:"query,omitempty"`
	Filter      any                       `json:"filter,omitempty"`
	FilterLang  string                    `json:"filter-lang,omitempty"`
}

// NewSearchRequest assembles a search body. datetime must be a "start/end"
// interval; calendar dates are expanded to whole-day RFC 3339 bounds.
func NewSearchRequest(collections []string, bbox []float64, datetime string, predicates []string, limit int, mode FilterMode) (*SearchRequest, error) {
	interval, err := ExpandDateInterval(datetime)
	if err != nil {
		return nil, err
	}

	preds, err := ParsePredicates(predicates)
	if err != nil {
		return nil, err
	}

	req := &SearchRequest{
		BBox:        bbox,
		DateTime:    interval,
		Collections: collections,
		Limit:       limit,
	}

	switch mode {
	case FilterModeCQL2:
		if f := CQL2Filter(preds); f != nil {
			req.Filter = f
			req.FilterLang = FilterLangCQL
		}
	default:
		req.Query = QueryExtension(preds)
	}

	return req, nil
}

// Body returns the request as a generic JSON object so that next-link bodies
// can be merged into it.
func (req *SearchRequest) Body() (map[string]any, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("failed to re-read search request: %w", err)
	}
	return body, nil
}

// NextBody computes the body for following a POST next link.
func NextBody(current map[string]any, link *SearchLink) map[string]any {
	if link == nil || link.Body == nil {
		return current
	}
	if !link.Merge {
		return link.Body
	}

	merged := make(map[string]any, len(current)+len(link.Body))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range link.Body {
		merged[k] = v
	}
	return merged
}
