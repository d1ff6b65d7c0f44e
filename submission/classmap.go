// Package submission turns class probabilities into the Otto submission
// table and writes it as CSV.
package submission

import (
	"strconv"

	"github.com/YuminosukeSato/ottoboost/pkg/errors"
)

// NumOttoClasses is the number of product categories in the Otto data.
const NumOttoClasses = 9

// ClassMap is the ordered set of class labels that defines the probability
// columns of a submission.
type ClassMap struct {
	labels []string
	rank   map[string]int
}

// NewClassMap builds a class map from labels in column order.
func NewClassMap(labels []string) (ClassMap, error) {
	if len(labels) == 0 {
		return ClassMap{}, errors.NewValidationError("classes", "must not be empty", labels)
	}
	rank := make(map[string]int, len(labels))
	for i, l := range labels {
		if l == "" {
			return ClassMap{}, errors.NewValidationError("classes", "empty class label at position "+strconv.Itoa(i), l)
		}
		if _, dup := rank[l]; dup {
			return ClassMap{}, errors.NewValidationError("classes", "duplicate class label", l)
		}
		rank[l] = i
	}
	return ClassMap{labels: append([]string(nil), labels...), rank: rank}, nil
}

// DefaultClassMap returns Class_1 .. Class_9.
func DefaultClassMap() ClassMap {
	labels := make([]string, NumOttoClasses)
	for i := range labels {
		labels[i] = "Class_" + strconv.Itoa(i+1)
	}
	cm, _ := NewClassMap(labels)
	return cm
}

// Labels returns the labels in column order.
func (c ClassMap) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Len returns the number of classes.
func (c ClassMap) Len() int {
	return len(c.labels)
}

// Rank returns the column position of label.
func (c ClassMap) Rank(label string) (int, bool) {
	r, ok := c.rank[label]
	return r, ok
}

// Contains reports whether label is a known class.
func (c ClassMap) Contains(label string) bool {
	_, ok := c.rank[label]
	return ok
}
