package scene

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/landcover/internal/raster"
)

// NoDataPolicy decides how SCL code 0 pixels are counted.
type NoDataPolicy string

const (
	// NoDataExclude leaves code 0 out of every bucket.
	NoDataExclude NoDataPolicy = "exclude"
	// NoDataDarkBright folds code 0 into Dark/Bright.
	NoDataDarkBright NoDataPolicy = "dark-bright"
	// NoDataBucket counts code 0 in a separate No Data bucket.
	NoDataBucket NoDataPolicy = "bucket"
)

// ParseNoDataPolicy parses a policy name. Empty selects NoDataExclude.
func ParseNoDataPolicy(s string) (NoDataPolicy, error) {
	switch p := NoDataPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return NoDataExclude, nil
	case NoDataExclude, NoDataDarkBright, NoDataBucket:
		return p, nil
	default:
		return "", fmt.Errorf("unknown no-data policy %q", s)
	}
}

// Summary is the land-cover breakdown of one time step.
type Summary struct {
	Counts    map[string]int `json:"counts"`
	Total     int            `json:"total"`
	NoData    int            `json:"nodata"`
	Unknown   int            `json:"unknown"`
	Histogram [NumCodes]int  `json:"histogram"`
	Policy    NoDataPolicy   `json:"nodata_policy"`
}

// BucketCount is one bar of the summary.
type BucketCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Buckets returns the counts in display order.
func (s Summary) Buckets() []BucketCount {
	names := BucketOrder
	if _, ok := s.Counts[BucketNoData]; ok {
		names = append(append([]string(nil), BucketOrder...), BucketNoData)
	}

	out := make([]BucketCount, len(names))
	for i, name := range names {
		out[i] = BucketCount{Name: name, Count: s.Counts[name]}
	}
	return out
}

// Classified returns the number of pixels that landed in a bucket.
func (s Summary) Classified() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// Summarize counts the SCL pixels of time step t into land-cover buckets.
func Summarize(stack *raster.Stack, t int, policy NoDataPolicy) (Summary, error) {
	scene, ok := stack.At(t)
	if !ok {
		return Summary{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, t, stack.Len())
	}

	scl, ok := scene.Band(raster.BandSCL)
	if !ok {
		return Summary{}, fmt.Errorf("%w: time step %d has no %s band", ErrLoad, t, raster.BandSCL)
	}

	if policy == "" {
		policy = NoDataExclude
	}

	s := Summary{
		Counts: make(map[string]int, len(BucketOrder)+1),
		Total:  len(scl),
		Policy: policy,
	}
	for _, name := range BucketOrder {
		s.Counts[name] = 0
	}
	if policy == NoDataBucket {
		s.Counts[BucketNoData] = 0
	}

	for _, v := range scl {
		code := Code(v)
		if int(code) < NumCodes {
			s.Histogram[code]++
		} else {
			s.Unknown++
		}

		if code == CodeNoData {
			s.NoData++
			switch policy {
			case NoDataDarkBright:
				s.Counts[BucketDarkBright]++
			case NoDataBucket:
				s.Counts[BucketNoData]++
			}
			continue
		}
		s.Counts[BucketOf(code)]++
	}

	return s, nil
}
