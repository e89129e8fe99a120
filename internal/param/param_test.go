package param

import (
	"testing"

	"github.com/Gregory-Meyer/srm/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	s := New()
	require.NoError(t, s.SetInt(".motor.speed", 42))

	v, err := s.GetInt(".motor.speed")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
	assert.Equal(t, KindInt, s.TypeOf(".motor.speed"))
}

func TestGetMissingKeyIsNoSuchParam(t *testing.T) {
	s := New()
	_, err := s.GetInt(".nope")
	assert.ErrorIs(t, err, errs.ErrNoSuchParam)
	assert.Equal(t, KindNone, s.TypeOf(".nope"))
}

func TestTypeFixedAtFirstAssignment(t *testing.T) {
	s := New()
	require.NoError(t, s.SetReal(".gain", 1.5))

	err := s.SetInt(".gain", 3)
	assert.ErrorIs(t, err, errs.ErrParamTypeDiffers)

	_, err = s.GetInt(".gain")
	assert.ErrorIs(t, err, errs.ErrParamTypeDiffers)
}

func TestSwapReturnsPreviousValue(t *testing.T) {
	s := New()
	require.NoError(t, s.SetBool(".enabled", true))

	old, err := s.SwapBool(".enabled", false)
	require.NoError(t, err)
	assert.True(t, old)

	v, err := s.GetBool(".enabled")
	require.NoError(t, err)
	assert.False(t, v)
}

func TestStringRoundTrip(t *testing.T) {
	s := New()
	require.NoError(t, s.SetString(".label", "hello"))

	v, err := s.GetString(".label")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}
