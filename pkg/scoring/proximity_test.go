package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizedEditDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"both empty", "", "", 0},
		{"one empty", "", "Cat", 1},
		{"identical", "cat", "cat", 0},
		{"case insensitive", "Skibidi Rizz", "skibidi rizz", 0},
		{"one substitution", "cat", "cut", 1.0 / 3},
		{"insertion", "cat", "cats", 0.25},
		{"unicode code points", "café", "cafe", 0.25},
		{"completely different", "abc", "xyz", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NormalizedEditDistance(tt.a, tt.b), 1e-9)
		})
	}
}

func TestNormalizedEditDistanceIsSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"kitten", "sitting"},
		{"", "abc"},
		{"Flaw", "lawn"},
		{"naïve", "NAIVE"},
		{"Skibidi Rizz", "Skibidi"},
	}

	for _, p := range pairs {
		assert.Equal(t, NormalizedEditDistance(p[0], p[1]), NormalizedEditDistance(p[1], p[0]), "%q vs %q", p[0], p[1])
	}
}

func TestNormalizedEditDistanceZeroOnlyOnMatch(t *testing.T) {
	assert.Zero(t, NormalizedEditDistance("Cat", "cAT"))
	assert.NotZero(t, NormalizedEditDistance("Cat", "Cat "))
	assert.NotZero(t, NormalizedEditDistance("Cat", "Cab"))
}

func TestProximity(t *testing.T) {
	assert.Equal(t, 1.0, Proximity("Skibidi Rizz", "Skibidi Rizz"))
	assert.Equal(t, 1.0, Proximity("skibidi rizz", "Skibidi Rizz"))
	assert.Equal(t, 0.0, Proximity("", "Cat"))

	closer := Proximity("Skibidi Riz", "Skibidi Rizz")
	further := Proximity("Skibidi", "Skibidi Rizz")
	assert.Less(t, further, closer)
	assert.Less(t, closer, 1.0)
}
