package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	got, err := ToMinorUnits(123.45)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), got)

	// 19.99 is not exactly representable as a float; the decimal
	// round-trip must still land on 1999, not 1998.
	got, err = ToMinorUnits(19.99)
	require.NoError(t, err)
	assert.Equal(t, int64(1999), got)

	got, err = ToMinorUnits(0.005)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestToMinorUnitsRejectsNonPositive(t *testing.T) {
	_, err := ToMinorUnits(0)
	assert.ErrorIs(t, err, ErrNonPositiveAmount)

	_, err = ToMinorUnits(-5)
	assert.ErrorIs(t, err, ErrNonPositiveAmount)

	_, err = ToMinorUnits(0.001) // rounds to zero cents
	assert.ErrorIs(t, err, ErrNonPositiveAmount)
}

func TestFromMinorUnits(t *testing.T) {
	assert.Equal(t, 123.45, FromMinorUnits(12345))
	assert.Equal(t, 0.01, FromMinorUnits(1))
	assert.Equal(t, 0.0, FromMinorUnits(0))
}
