package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ratio(v float64) *float64 { return &v }

func TestTokenStatsEfficiency(t *testing.T) {
	assert.Equal(t, 0, TokenStats{}.Efficiency())
	assert.Equal(t, 75, TokenStats{CompressionRatio: ratio(0.25)}.Efficiency())
	assert.Equal(t, 100, TokenStats{CompressionRatio: ratio(0)}.Efficiency())
	assert.Equal(t, 0, TokenStats{CompressionRatio: ratio(1)}.Efficiency())
	// Rounds to nearest integer, also for the negative values a ratio
	// above 1 produces (output larger than input on tiny contexts).
	assert.Equal(t, 67, TokenStats{CompressionRatio: ratio(1.0 / 3.0)}.Efficiency())
	assert.Equal(t, -50, TokenStats{CompressionRatio: ratio(1.5)}.Efficiency())
	assert.Equal(t, -100, TokenStats{CompressionRatio: ratio(2)}.Efficiency())
}

func TestIntegrationTypesOrder(t *testing.T) {
	types := IntegrationTypes()
	assert.Len(t, types, 7)
	assert.Equal(t, IntegrationGitHub, types[0])
	assert.Equal(t, IntegrationZoom, types[6])
}
