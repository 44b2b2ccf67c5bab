package stac

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/planetlabs/go-ogc/filter"
)

// ErrInvalidPredicate is returned when a "<field><op><value>" string cannot
// be parsed.
var ErrInvalidPredicate = errors.New("invalid predicate")

// Predicate is a single numeric comparison on an item property.
type Predicate struct {
	Field string
	Op    string
	Value float64
}

// operators in match order: two-character operators before their prefixes.
var operators = []string{"<=", ">=", "!=", "<", ">", "="}

// queryOps maps predicate operators to STAC Query extension operator names.
var queryOps = map[string]string{
	"<":  "lt",
	"<=": "lte",
	">":  "gt",
	">=": "gte",
	"=":  "eq",
	"!=": "neq",
}

// cqlOps maps predicate operators to CQL2 comparison operator names.
var cqlOps = map[string]string{
	"<":  filter.LessThan,
	"<=": filter.LessThanOrEquals,
	">":  filter.GreaterThan,
	">=": filter.GreaterThanOrEquals,
	"=":  filter.Equals,
	"!=": filter.NotEquals,
}

// ParsePredicate parses strings like "eo:cloud_cover<10".
func ParsePredicate(s string) (Predicate, error) {
	s = strings.TrimSpace(s)

	for _, op := range operators {
		idx := strings.Index(s, op)
		if idx < 0 {
			continue
		}

		field := strings.TrimSpace(s[:idx])
		raw := strings.TrimSpace(s[idx+len(op):])
		if field == "" {
			return Predicate{}, fmt.Errorf("%w: %q has no field", ErrInvalidPredicate, s)
		}

		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Predicate{}, fmt.Errorf("%w: %q value is not numeric", ErrInvalidPredicate, s)
		}

		return Predicate{Field: field, Op: op, Value: value}, nil
	}

	return Predicate{}, fmt.Errorf("%w: %q has no comparison operator", ErrInvalidPredicate, s)
}

// ParsePredicates parses every string in preds.
func ParsePredicates(preds []string) ([]Predicate, error) {
	parsed := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		pred, err := ParsePredicate(p)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, pred)
	}
	return parsed, nil
}

// String renders the predicate back to "<field><op><value>".
func (p Predicate) String() string {
	return p.Field + p.Op + strconv.FormatFloat(p.Value, 'f', -1, 64)
}

// QueryExtension encodes predicates in the STAC Query extension form,
// e.g. {"eo:cloud_cover": {"lt": 10, "gt": 0}}.
func QueryExtension(preds []Predicate) map[string]map[string]any {
	if len(preds) == 0 {
		return nil
	}

	query := make(map[string]map[string]any)
	for _, p := range preds {
		ops, ok := query[p.Field]
		if !ok {
			ops = make(map[string]any)
			query[p.Field] = ops
		}
		ops[queryOps[p.Op]] = p.Value
	}
	return query
}

// CQL2Filter encodes predicates as a CQL2 conjunction of comparisons.
func CQL2Filter(preds []Predicate) *filter.Filter {
	if len(preds) == 0 {
		return nil
	}

	args := make([]filter.BooleanExpression, 0, len(preds))
	for _, p := range preds {
		args = append(args, &filter.Comparison{
			Name:  cqlOps[p.Op],
			Left:  &filter.Property{Name: p.Field},
			Right: &filter.Number{Value: p.Value},
		})
	}

	if len(args) == 1 {
		return &filter.Filter{Expression: args[0]}
	}
	return &filter.Filter{Expression: &filter.And{Args: args}}
}
