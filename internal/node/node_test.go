package node

import (
	"testing"

	"github.com/Gregory-Meyer/srm/internal/abi"
	"github.com/stretchr/testify/assert"
)

func TestNewIsUnstarted(t *testing.T) {
	n := New(nil, "foo")
	assert.Equal(t, "foo", n.Name())
	assert.Equal(t, Unstarted, State(n.state.Load()))
}

func TestStartTwicePanics(t *testing.T) {
	n := New(nil, "foo")
	n.state.Store(int32(Running))

	assert.Panics(t, func() {
		_ = n.Start(abi.CoreRef{})
	})
}

func TestDestroyNoopWhenNotRunning(t *testing.T) {
	n := New(nil, "foo")
	assert.NotPanics(t, func() {
		n.Destroy()
	})
	assert.Equal(t, Unstarted, State(n.state.Load()))
}

func TestErrorCodeError(t *testing.T) {
	e := &ErrorCode{Code: 4, Msg: "channel has maximum subscribers"}
	assert.Equal(t, "channel has maximum subscribers (4)", e.Error())
}
