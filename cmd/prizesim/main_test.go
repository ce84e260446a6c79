package main

import (
	"testing"

	"finengine/prize"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeights(t *testing.T) {
	prizes, err := parseWeights("1, 3")
	require.NoError(t, err)
	require.Len(t, prizes, 2)
	assert.InDelta(t, 25.0, prizes[0].ChancePercentage, 1e-9)
	assert.InDelta(t, 75.0, prizes[1].ChancePercentage, 1e-9)

	_, err = parseWeights("1,x")
	assert.Error(t, err)

	_, err = parseWeights("0,0")
	assert.Error(t, err)
}

func TestSimulate_SeededRunConverges(t *testing.T) {
	prizes, err := parseWeights("1,3,15,50,80,51")
	require.NoError(t, err)

	ok := simulate(prize.NewSelector(prize.NewSeededSource(42)), prizes, 200000, 0.5)
	assert.True(t, ok)
}
