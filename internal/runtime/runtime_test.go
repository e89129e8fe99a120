package runtime

import (
	"testing"

	"github.com/Gregory-Meyer/srm/internal/errs"
	"github.com/Gregory-Meyer/srm/internal/graph"
	"github.com/Gregory-Meyer/srm/internal/param"
	"github.com/Gregory-Meyer/srm/internal/workerpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	pool := workerpool.New(2)
	t.Cleanup(pool.Close)
	return New([]string{t.TempDir()}, pool, zerolog.Nop())
}

func TestAddNodeNoLibraryFound(t *testing.T) {
	c := newTestController(t)
	err := c.AddNode("a", "nonexistent-type")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrNoLibraryFound)
}

func TestRunWithNoNodesReturnsImmediately(t *testing.T) {
	c := newTestController(t)
	assert.NoError(t, c.Run())
}

func TestStopAndShutdownWithNoNodes(t *testing.T) {
	c := newTestController(t)
	assert.NotPanics(t, c.Stop)
	assert.NotPanics(t, c.Shutdown)
}

func TestRegistryAndParamsAccessible(t *testing.T) {
	c := newTestController(t)
	assert.NotNil(t, c.Registry())
	assert.NotNil(t, c.Params())
}

func TestLoadDescriptionSeedsParamsBeforeFailingOnMissingPlugin(t *testing.T) {
	c := newTestController(t)
	d := &graph.Description{
		Params: []graph.ParamEntry{{Key: ".speed", Kind: param.KindInt, Int: 42}},
		Nodes:  []graph.NodeEntry{{Name: "a", Type: "nonexistent-type"}},
	}

	err := c.LoadDescription(d)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrNoLibraryFound)

	v, err := c.Params().GetInt(".speed")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}
