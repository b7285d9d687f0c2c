package validator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShannonEntropy(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"empty", "", 0},
		{"single symbol", "aaaa", 0},
		{"two symbols", "abab", 1},
		{"four symbols", "abcd", 2},
		{"runes not bytes", "éèéè", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ShannonEntropy(tt.text), 1e-9)
		})
	}
}

func TestShannonEntropyMonotonicUnderNoise(t *testing.T) {
	clean := "var score = 0; score += 1;"
	noise := "Q7#zK!2@Lm^9&Xp*Rv(4)Tb_8+Nc"

	before := ShannonEntropy(clean)
	after := ShannonEntropy(clean + noise)

	assert.Greater(t, after, before)
}

func TestShannonEntropyDeterministic(t *testing.T) {
	text := "function tick() { frame++; draw(frame); }"
	first := ShannonEntropy(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, math.Float64bits(first), math.Float64bits(ShannonEntropy(text)))
	}
}
