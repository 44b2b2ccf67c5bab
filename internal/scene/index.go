package scene

import (
	"fmt"

	"github.com/robert-malhotra/landcover/internal/raster"
)

// LabelLayout formats scene dates.
const LabelLayout = "2006-01-02"

// DeriveLabels returns one UTC date label per time step, in stack order.
// Labels may repeat.
func DeriveLabels(stack *raster.Stack) ([]string, error) {
	labels := make([]string, stack.Len())
	for i := range labels {
		scene, _ := stack.At(i)
		if _, ok := scene.Band(raster.BandSCL); !ok {
			return nil, fmt.Errorf("%w: time step %d has no %s band", ErrLoad, i, raster.BandSCL)
		}
		if scene.Time.IsZero() {
			return nil, fmt.Errorf("%w: time step %d has no timestamp", ErrLoad, i)
		}
		labels[i] = scene.Time.UTC().Format(LabelLayout)
	}
	return labels, nil
}

// Index maps date labels to time indices.
type Index struct {
	labels []string
	first  map[string]int
}

// NewIndex builds an index over labels. A repeated label resolves to its
// first position.
func NewIndex(labels []string) *Index {
	idx := &Index{
		labels: append([]string(nil), labels...),
		first:  make(map[string]int, len(labels)),
	}
	for i, label := range labels {
		if _, ok := idx.first[label]; !ok {
			idx.first[label] = i
		}
	}
	return idx
}

// Lookup returns the first time index carrying label.
func (idx *Index) Lookup(label string) (int, bool) {
	if idx == nil {
		return 0, false
	}
	i, ok := idx.first[label]
	return i, ok
}

// Label returns the label at time index i.
func (idx *Index) Label(i int) (string, error) {
	if idx == nil || i < 0 || i >= len(idx.labels) {
		return "", fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return idx.labels[i], nil
}

// Labels returns a copy of all labels in order.
func (idx *Index) Labels() []string {
	if idx == nil {
		return nil
	}
	return append([]string(nil), idx.labels...)
}

// Len returns the number of labels.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.labels)
}
