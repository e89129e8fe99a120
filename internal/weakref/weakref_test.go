package weakref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpgradeWhileAlive(t *testing.T) {
	target := 42
	w := New(&target)

	v, ok := w.Upgrade()
	require.True(t, ok)
	assert.Equal(t, 42, *v)
}

func TestUpgradeAfterRelease(t *testing.T) {
	target := 42
	w := New(&target)
	w.Release()

	v, ok := w.Upgrade()
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestReleaseIsIdempotent(t *testing.T) {
	target := 1
	w := New(&target)
	w.Release()
	w.Release()

	_, ok := w.Upgrade()
	assert.False(t, ok)
}

func TestMustUpgradePanicsAfterRelease(t *testing.T) {
	target := 1
	w := New(&target)
	w.Release()

	assert.Panics(t, func() {
		w.MustUpgrade()
	})
}

func TestMustUpgradeReturnsTargetWhileAlive(t *testing.T) {
	target := 7
	w := New(&target)
	assert.Equal(t, 7, *w.MustUpgrade())
}
