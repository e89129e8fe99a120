package channel

import (
	"testing"

	"github.com/Gregory-Meyer/srm/internal/abi"
	"github.com/Gregory-Meyer/srm/internal/errs"
	"github.com/Gregory-Meyer/srm/internal/workerpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndRemoveCallback(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Close()

	c := New("topic", 1, pool)
	id, ok := c.InsertCallback(nil, nil)
	require.True(t, ok)
	assert.Equal(t, 1, c.NumCallbacks())

	assert.True(t, c.RemoveCallback(id))
	assert.Equal(t, 0, c.NumCallbacks())
	assert.False(t, c.RemoveCallback(id))
}

func TestBoundedChannelFull(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Close()

	c := NewBounded("topic", 1, 1, pool)

	_, ok := c.InsertCallback(nil, nil)
	require.True(t, ok)

	_, ok = c.InsertCallback(nil, nil)
	assert.False(t, ok, "second subscriber should be rejected once at capacity")
}

func TestPublisherZeroWeakHoldersDisconnected(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Close()

	// Constructed directly, bypassing the Registry: liveInRegistry never
	// becomes true, matching "Publisher with zero weak-holders".
	c := New("topic", 1, pool)
	pub := NewPublisher(c)

	err := pub.Publish(abi.MsgView{}, zerolog.Nop())
	assert.ErrorIs(t, err, errs.ErrChannelDisconnected)
}

func TestRegistryGetOrCreateRecyclesName(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Close()

	reg := NewRegistry(pool)

	ch1, err := reg.GetOrCreate("topic", 1)
	require.NoError(t, err)
	pub := NewPublisher(ch1)

	// still referenced: same channel instance returned
	ch1Again, err := reg.GetOrCreate("topic", 1)
	require.NoError(t, err)
	assert.Same(t, ch1, ch1Again)
	// undo the extra reference GetOrCreate just handed out
	ch1Again.refCount.Add(-1)

	pub.Disconnect()
	assert.Zero(t, ch1.refCount.Load())

	ch2, err := reg.GetOrCreate("topic", 1)
	require.NoError(t, err)
	assert.NotSame(t, ch1, ch2, "a fully-disconnected channel should be recycled")
	assert.False(t, ch1.liveInRegistry.Load())
}

func TestRegistryGetOrCreateTypeDiffers(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Close()

	reg := NewRegistry(pool)
	_, err := reg.GetOrCreate("topic", 1)
	require.NoError(t, err)

	_, err = reg.GetOrCreate("topic", 2)
	assert.ErrorIs(t, err, errs.ErrChannelTypeDiffers)
}
