package sim

import (
	"errors"
	"testing"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapLengthIsExact(t *testing.T) {
	pool := []float64{1, 2, 3, 4, 5, 6, 7}
	rng := testRNG(1)
	for _, blockLen := range []int{1, 2, 3, 7, 10, 25} {
		for _, m := range []int{0, 1, 5, 6, 7, 13, 100} {
			out, err := Bootstrap(pool, m, blockLen, rng)
			require.NoError(t, err)
			assert.Len(t, out, m, "blockLen=%d m=%d", blockLen, m)
		}
	}
}

func TestBootstrapCopiesContiguousBlocksWithWrap(t *testing.T) {
	pool := []float64{0, 1, 2, 3, 4}
	out, err := Bootstrap(pool, 400, 4, testRNG(2))
	require.NoError(t, err)

	for b := 0; b < len(out); b += 4 {
		for k := 1; k < 4; k++ {
			want := float64((int(out[b]) + k) % len(pool))
			assert.Equal(t, want, out[b+k])
		}
	}
}

func TestBootstrapBlockLongerThanPoolWrapsRepeatedly(t *testing.T) {
	pool := []float64{10, 20, 30}
	out, err := Bootstrap(pool, 8, 8, testRNG(3))
	require.NoError(t, err)
	for i := 1; i < len(out); i++ {
		prev := int(out[i-1]/10) - 1
		assert.Equal(t, pool[(prev+1)%3], out[i])
	}
}

func TestBootstrapErrors(t *testing.T) {
	_, err := Bootstrap(nil, 5, 2, testRNG(4))
	assert.True(t, errors.Is(err, xerrors.ErrEmptyResidualPool))

	_, err = Bootstrap([]float64{1}, -1, 2, testRNG(4))
	assert.True(t, errors.Is(err, xerrors.ErrInvalidSimulationConfig))

	_, err = Bootstrap([]float64{1}, 3, 0, testRNG(4))
	assert.True(t, errors.Is(err, xerrors.ErrInvalidSimulationConfig))
}

func TestBootstrapIsDeterministicPerStream(t *testing.T) {
	pool := gaussianResiduals(50, 0.01, 5)
	a, err := Bootstrap(pool, 60, 6, newStream(42, domainPath, 3))
	require.NoError(t, err)
	b, err := Bootstrap(pool, 60, 6, newStream(42, domainPath, 3))
	require.NoError(t, err)
	c, err := Bootstrap(pool, 60, 6, newStream(42, domainPilot, 3))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
