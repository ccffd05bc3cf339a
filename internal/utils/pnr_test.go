package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPNRShape(t *testing.T) {
	for i := 0; i < 500; i++ {
		pnr, err := NewPNR()
		require.NoError(t, err)
		assert.Len(t, pnr, PNRLength)
		assert.True(t, IsPNR(pnr), "unexpected pnr %q", pnr)
	}
}

func TestNewPNRDistinct(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		pnr, err := NewPNR()
		require.NoError(t, err)
		_, dup := seen[pnr]
		require.False(t, dup, "duplicate pnr %s after %d draws", pnr, i)
		seen[pnr] = struct{}{}
	}
}

func TestIsPNR(t *testing.T) {
	assert.True(t, IsPNR("AB12CD34EF"))
	assert.False(t, IsPNR("ab12cd34ef"))
	assert.False(t, IsPNR("AB12CD34E"))
	assert.False(t, IsPNR("AB12-D34EF"))
}
