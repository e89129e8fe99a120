package pluginloader

import (
	"runtime"
	"testing"

	"github.com/Gregory-Meyer/srm/internal/errs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeLibName(t *testing.T) {
	got := makeLibName("/plugins", "publisher")
	if runtime.GOOS == "windows" {
		assert.Equal(t, `\plugins\srm-publisher.dll`, got)
	} else {
		assert.Equal(t, "/plugins/libsrm-publisher.so", got)
	}
}

func TestLoadNoLibraryFound(t *testing.T) {
	l := New([]string{t.TempDir()}, zerolog.Nop())

	_, err := l.Load("nonexistent-type")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrNoLibraryFound)
}

func TestLoadCachesByType(t *testing.T) {
	l := New(nil, zerolog.Nop())
	l.plugins["already-loaded"] = &NodePlugin{}

	got, err := l.Load("already-loaded")
	require.NoError(t, err)
	assert.Same(t, l.plugins["already-loaded"], got)
}
