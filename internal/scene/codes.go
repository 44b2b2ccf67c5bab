// Package scene derives date labels, land-cover summaries and RGB previews
// from a materialized scene stack.
package scene

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange is returned for a time index outside the stack.
	ErrIndexOutOfRange = errors.New("time index out of range")

	// ErrLoad is returned when a stack is missing data a step needs.
	ErrLoad = errors.New("scene data error")
)

// Code is a Sentinel-2 Scene Classification Layer value.
type Code uint16

// SCL vocabulary.
const (
	CodeNoData Code = iota
	CodeSaturated
	CodeDarkArea
	CodeCloudShadow
	CodeVegetation
	CodeBareSoil
	CodeWater
	CodeUnclassified
	CodeCloudMedium
	CodeCloudHigh
	CodeCirrus
	CodeSnow
)

// NumCodes is the size of the SCL vocabulary.
const NumCodes = int(CodeSnow) + 1

var codeNames = [NumCodes]string{
	"no data",
	"saturated or defective",
	"dark area",
	"cloud shadow",
	"vegetation",
	"bare soil",
	"water",
	"unclassified",
	"cloud medium probability",
	"cloud high probability",
	"thin cirrus",
	"snow or ice",
}

func (c Code) String() string {
	if int(c) < NumCodes {
		return codeNames[c]
	}
	return fmt.Sprintf("unknown(%d)", uint16(c))
}

// Bucket names.
const (
	BucketDarkBright = "Dark/Bright"
	BucketVegetation = "Vegetation"
	BucketBareSoil   = "Bare Soil"
	BucketWater      = "Water"
	BucketNoData     = "No Data"
)

// BucketOrder is the display order of the land-cover buckets.
var BucketOrder = []string{BucketDarkBright, BucketVegetation, BucketBareSoil, BucketWater}

// BucketOf returns the land-cover bucket for a non-zero code. Codes
// outside the vocabulary fall into Dark/Bright.
func BucketOf(c Code) string {
	switch c {
	case CodeVegetation:
		return BucketVegetation
	case CodeBareSoil:
		return BucketBareSoil
	case CodeWater:
		return BucketWater
	default:
		return BucketDarkBright
	}
}
