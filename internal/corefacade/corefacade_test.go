package corefacade

import (
	"testing"

	"github.com/Gregory-Meyer/srm/internal/channel"
	"github.com/Gregory-Meyer/srm/internal/param"
	"github.com/Gregory-Meyer/srm/internal/weakref"
	"github.com/Gregory-Meyer/srm/internal/workerpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	reg    *channel.Registry
	params *param.Store
}

func (f *fakeController) Registry() *channel.Registry { return f.reg }
func (f *fakeController) Params() *param.Store         { return f.params }

func newTestFacade(t *testing.T) (*Facade, *weakref.Weak[Controller]) {
	t.Helper()
	pool := workerpool.New(2)
	t.Cleanup(pool.Close)

	var ctrl Controller = &fakeController{
		reg:    channel.NewRegistry(pool),
		params: param.New(),
	}
	w := weakref.New(&ctrl)
	return New(w, "node-a", zerolog.Nop()), w
}

func TestGetType(t *testing.T) {
	f, _ := newTestFacade(t)
	assert.NotEmpty(t, f.GetType())
}

func TestParamRoundTrip(t *testing.T) {
	f, _ := newTestFacade(t)
	require.Equal(t, 0, f.ParamSetInt(".speed", 7))
	v, code := f.ParamGetInt(".speed")
	require.Equal(t, 0, code)
	assert.Equal(t, int64(7), v)
}

func TestSubscribeThenAdvertiseSameChannel(t *testing.T) {
	f, _ := newTestFacade(t)

	subPtr, code := f.Subscribe(1, "telemetry", nil, nil)
	require.Equal(t, 0, code)
	require.NotNil(t, subPtr)

	pubPtr, code := f.Advertise(1, "telemetry")
	require.Equal(t, 0, code)
	require.NotNil(t, pubPtr)
}

func TestUpgradeAfterReleasePanics(t *testing.T) {
	f, w := newTestFacade(t)
	w.Release()

	assert.Panics(t, func() {
		f.ParamSetInt(".x", 1)
	})
}
