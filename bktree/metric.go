package bktree

import (
	"fmt"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/hbollon/go-edlib"
)

// Metric computes a non-negative integer dissimilarity between two values.
//
// The tree only prunes correctly when the metric is deterministic, symmetric,
// zero for equal values and satisfies the triangle inequality. Pseudo-metrics
// (distinct values at distance 0) are fine.
type Metric[T any] func(a, b T) int

// Levenshtein is the default string metric: insertions, deletions and
// substitutions each cost 1. Runes, not bytes, are compared.
func Levenshtein(a, b string) int {
	return levenshtein.Distance(a, b, nil)
}

// Damerau is the unrestricted Damerau-Levenshtein distance, which also counts
// an adjacent transposition ("beatles" / "beatels") as a single edit.
func Damerau(a, b string) int {
	return edlib.DamerauLevenshteinDistance(a, b)
}

// MetricByName resolves a configured metric name.
func MetricByName(name string) (Metric[string], error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "levenshtein":
		return Levenshtein, nil
	case "damerau", "damerau-levenshtein":
		return Damerau, nil
	}
	return nil, fmt.Errorf("unknown metric %q (want levenshtein or damerau)", name)
}

// Keyed lifts a metric over keys into a metric over values by projecting
// every value to its key first.
func Keyed[T any, K any](m Metric[K], key func(T) K) Metric[T] {
	return func(a, b T) int {
		return m(key(a), key(b))
	}
}

// CheckAxioms evaluates m over every pair and triple drawn from samples and
// reports the first violation of the metric axioms. Identity is only checked
// in the "m(a, a) == 0" direction so pseudo-metrics pass.
func CheckAxioms[T any](m Metric[T], samples []T) error {
	n := len(samples)
	d := make([][]int, n)
	for i := range samples {
		d[i] = make([]int, n)
		for j := range samples {
			d[i][j] = m(samples[i], samples[j])
		}
	}

	for i := 0; i < n; i++ {
		if d[i][i] != 0 {
			return fmt.Errorf("identity violated: m(%v, %v) = %d", samples[i], samples[i], d[i][i])
		}
		for j := 0; j < n; j++ {
			if d[i][j] < 0 {
				return fmt.Errorf("negative distance: m(%v, %v) = %d", samples[i], samples[j], d[i][j])
			}
			if d[i][j] != d[j][i] {
				return fmt.Errorf("symmetry violated: m(%v, %v) = %d but m(%v, %v) = %d",
					samples[i], samples[j], d[i][j], samples[j], samples[i], d[j][i])
			}
			for k := 0; k < n; k++ {
				if d[i][k] > d[i][j]+d[j][k] {
					return fmt.Errorf("triangle inequality violated: m(%v, %v) = %d > %d + %d",
						samples[i], samples[k], d[i][k], d[i][j], d[j][k])
				}
			}
		}
	}
	return nil
}
