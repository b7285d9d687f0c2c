package validator

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ShannonEntropy returns the entropy of the rune distribution of text in
// bits per rune. Empty and single-symbol texts have zero entropy.
func ShannonEntropy(text string) float64 {
	counts := make(map[rune]int)
	total := 0
	for _, r := range text {
		counts[r]++
		total++
	}
	if len(counts) < 2 {
		return 0
	}

	// Fixed summation order keeps repeated reports bit-identical.
	symbols := make([]rune, 0, len(counts))
	for r := range counts {
		symbols = append(symbols, r)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })

	p := make([]float64, len(symbols))
	for i, r := range symbols {
		p[i] = float64(counts[r]) / float64(total)
	}

	return stat.Entropy(p) / math.Ln2
}
