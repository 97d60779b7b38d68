package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeneratorFixed(t *testing.T) {
	g, err := NewGenerator("fixed:42", rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 42.0, g.Generate())
	assert.Equal(t, 42.0, g.Generate())
}

func TestNewGeneratorZero(t *testing.T) {
	g, err := NewGenerator("0", rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 0.0, g.Generate())
}

func TestNewGeneratorUniformBounds(t *testing.T) {
	g, err := NewGenerator("uniform:10:20", rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		v := g.Generate()
		assert.GreaterOrEqual(t, v, 10.0)
		assert.Less(t, v, 20.0)
	}
}

func TestNewGeneratorNormalClampsNonNegative(t *testing.T) {
	g, err := NewGenerator("normal:0:1", rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		assert.GreaterOrEqual(t, g.Generate(), 0.0)
	}
}

func TestNewGeneratorExponentialRespectsLambda(t *testing.T) {
	g, err := NewGenerator("exponential", rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	lg, ok := g.(Lambda)
	require.True(t, ok)
	lg.SetLambda(1000)
	for i := 0; i < 100; i++ {
		assert.GreaterOrEqual(t, g.Generate(), 0.0)
	}
}

func TestNewGeneratorZipfianWithinUnitInterval(t *testing.T) {
	g, err := NewGenerator("zipfian:0.9", rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		v := g.Generate()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestNewGeneratorRejectsUnknownSpec(t *testing.T) {
	_, err := NewGenerator("bogus:1", rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestKeyGeneratorPadsAndTruncates(t *testing.T) {
	size, _ := NewGenerator("fixed:10", nil)
	kg := NewKeyGenerator(size, 100)
	key := kg.Generate(3)
	assert.Len(t, key, 10)
	assert.Contains(t, key, "key_3")

	tiny, _ := NewGenerator("fixed:2", nil)
	kgTiny := NewKeyGenerator(tiny, 100)
	assert.Len(t, kgTiny.Generate(12345), 2)
}

func TestKeyGeneratorCapsAt255Bytes(t *testing.T) {
	huge, _ := NewGenerator("fixed:10000", nil)
	kg := NewKeyGenerator(huge, 10)
	assert.Len(t, kg.Generate(1), 255)
}
