package common

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNanoToRawExact(t *testing.T) {
	assert := assert.New(t)

	raw, err := NanoToRaw(0.0002)
	assert.NoError(err)

	expected, _ := new(big.Int).SetString("200000000000000000000000000", 10)
	assert.Equal(0, raw.Cmp(expected), "0.0002 must convert without float drift, got %s", raw.String())
}

func TestNanoToRawWhole(t *testing.T) {
	assert := assert.New(t)

	raw, err := NanoToRaw(1)
	assert.NoError(err)

	expected := new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)
	assert.Equal(0, raw.Cmp(expected))
}

func TestNanoToRawRejectsInvalid(t *testing.T) {
	assert := assert.New(t)

	_, err := NanoToRaw(math.NaN())
	assert.Error(err)

	_, err = NanoToRaw(math.Inf(1))
	assert.Error(err)

	_, err = NanoToRaw(-0.1)
	assert.Error(err)
}

func TestRawToNanoRoundTrip(t *testing.T) {
	assert := assert.New(t)

	for _, amount := range []float64{0.0001, 0.0002, 0.0005, 1, 123.456} {
		raw, err := NanoToRaw(amount)
		assert.NoError(err)
		assert.InDelta(amount, RawToNano(raw), 1e-9)
	}
}

func TestParseRaw(t *testing.T) {
	assert := assert.New(t)

	raw, err := ParseRaw("")
	assert.NoError(err)
	assert.Equal(0, raw.Sign())

	raw, err = ParseRaw("500000000000000000000000000")
	assert.NoError(err)
	assert.Equal("500000000000000000000000000", raw.String())

	_, err = ParseRaw("-1")
	assert.Error(err)

	_, err = ParseRaw("bogus")
	assert.Error(err)
}
