package graph

import (
	"strings"
	"testing"

	"github.com/Gregory-Meyer/srm/internal/errs"
	"github.com/Gregory-Meyer/srm/internal/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromReaderFullDocument(t *testing.T) {
	doc := `
path:
  - /usr/lib/srm
nodes:
  - [talker, libtalker]
  - [listener, liblistener]
params:
  - [.talker.rate, 10]
  - [.talker.enabled, true]
  - [.talker.gain, 1.5]
  - [.talker.label, hello]
`
	d, err := FromReader(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"/usr/lib/srm"}, d.Path)
	require.Len(t, d.Nodes, 2)
	assert.Equal(t, NodeEntry{Name: "talker", Type: "libtalker"}, d.Nodes[0])
	assert.Equal(t, NodeEntry{Name: "listener", Type: "liblistener"}, d.Nodes[1])

	require.Len(t, d.Params, 4)
	assert.Equal(t, param.KindInt, d.Params[0].Kind)
	assert.Equal(t, int64(10), d.Params[0].Int)
	assert.Equal(t, param.KindBool, d.Params[1].Kind)
	assert.True(t, d.Params[1].Bool)
	assert.Equal(t, param.KindReal, d.Params[2].Kind)
	assert.Equal(t, 1.5, d.Params[2].Real)
	assert.Equal(t, param.KindString, d.Params[3].Kind)
	assert.Equal(t, "hello", d.Params[3].Str)
}

func TestFromReaderDuplicateNodeName(t *testing.T) {
	doc := `
nodes:
  - [a, libfoo]
  - [a, libbar]
`
	_, err := FromReader(strings.NewReader(doc))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDuplicateName)
	assert.Contains(t, err.Error(), "input contained duplicate node name 'a'")
}

func TestFromReaderInvalidParamKey(t *testing.T) {
	doc := `
nodes:
  - [a, libfoo]
params:
  - [bad.key, 1]
`
	_, err := FromReader(strings.NewReader(doc))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidParamKey)
}

func TestFromReaderInvalidYAML(t *testing.T) {
	_, err := FromReader(strings.NewReader("nodes: [["))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrGraphDeserialize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/to/graph.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrGraphFile)
}

func TestParamEntryApply(t *testing.T) {
	store := param.New()
	entries := []ParamEntry{
		{Key: ".a", Kind: param.KindInt, Int: 5},
		{Key: ".b", Kind: param.KindBool, Bool: true},
		{Key: ".c", Kind: param.KindReal, Real: 2.0},
		{Key: ".d", Kind: param.KindString, Str: "x"},
	}
	for _, e := range entries {
		require.NoError(t, e.Apply(store))
	}

	v, err := store.GetInt(".a")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}
