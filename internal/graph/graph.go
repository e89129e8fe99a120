// Copyright 2019 Gregory Meyer
//
// Permission is hereby granted, free of charge, to any person
// obtaining a copy of this software and associated documentation
// files (the "Software"), to deal in the Software without
// restriction, including without limitation the rights to use, copy,
// modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS
// BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN
// ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package graph loads a Graph Description (spec.md §6.2): the YAML
// document naming which node plugins to load, what to call each node,
// and what parameters to seed the Parameter Store with before any node
// starts. Grounded on original_source/src/node_graph.rs's NodeGraph and
// spawn_core, generalized to also decode the params field spec.md adds
// (node_graph.rs's NodeGraph has no params field at all).
package graph

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/Gregory-Meyer/srm/internal/errs"
	"github.com/Gregory-Meyer/srm/internal/param"
	"gopkg.in/yaml.v3"
)

// paramKeyPattern is spec.md §6.2's validation rule for a parameter key:
// one or more dot-separated, non-empty segments containing neither '.'
// nor '~'.
var paramKeyPattern = regexp.MustCompile(`^(?:\.[^.~]+)+$`)

// NodeEntry names one node to add to the graph: Name is unique within a
// Description, Type names the plugin library that implements it.
// Decoded from a two-element YAML sequence, e.g. `[talker, libtalker]`.
type NodeEntry struct {
	Name string
	Type string
}

// UnmarshalYAML decodes a [name, type] pair.
func (n *NodeEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode || len(node.Content) != 2 {
		return fmt.Errorf("node entry must be a [name, type] pair")
	}
	if err := node.Content[0].Decode(&n.Name); err != nil {
		return fmt.Errorf("couldn't decode node name: %w", err)
	}
	if err := node.Content[1].Decode(&n.Type); err != nil {
		return fmt.Errorf("couldn't decode node type: %w", err)
	}
	return nil
}

// ParamEntry seeds one key in the Parameter Store before any node runs.
// Value's Go type is discriminated by the YAML scalar's own tag, per
// spec.md §6.2: an integer, boolean, real or string node decodes to the
// matching param.Kind.
type ParamEntry struct {
	Key  string
	Kind param.Kind
	Int  int64
	Bool bool
	Real float64
	Str  string
}

// UnmarshalYAML decodes a [key, value] pair, with value's kind taken
// from its YAML scalar tag.
func (p *ParamEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode || len(node.Content) != 2 {
		return fmt.Errorf("param entry must be a [key, value] pair")
	}
	if err := node.Content[0].Decode(&p.Key); err != nil {
		return fmt.Errorf("couldn't decode param key: %w", err)
	}

	value := node.Content[1]
	switch value.Tag {
	case "!!int":
		p.Kind = param.KindInt
		return value.Decode(&p.Int)
	case "!!bool":
		p.Kind = param.KindBool
		return value.Decode(&p.Bool)
	case "!!float":
		p.Kind = param.KindReal
		return value.Decode(&p.Real)
	default:
		p.Kind = param.KindString
		return value.Decode(&p.Str)
	}
}

// Apply sets p's value in store, dispatching to the typed setter that
// matches p.Kind.
func (p *ParamEntry) Apply(store *param.Store) error {
	switch p.Kind {
	case param.KindInt:
		return store.SetInt(p.Key, p.Int)
	case param.KindBool:
		return store.SetBool(p.Key, p.Bool)
	case param.KindReal:
		return store.SetReal(p.Key, p.Real)
	default:
		return store.SetString(p.Key, p.Str)
	}
}

// Description is a parsed Graph Description: the set of library search
// paths, the nodes to construct, and the parameters to seed ahead of
// time (node_graph.rs's NodeGraph, plus the params field it lacks).
type Description struct {
	Path   []string     `yaml:"path"`
	Nodes  []NodeEntry  `yaml:"nodes"`
	Params []ParamEntry `yaml:"params"`
}

// Load reads a Description from arg, which names a file path, or "-"
// (or the empty string) to read from stdin - spawn_core's own fallback
// when no path argument was given at all.
func Load(arg string) (*Description, error) {
	if arg == "" || arg == "-" {
		return FromReader(os.Stdin)
	}

	f, err := os.Open(arg)
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't open file for reading: %v", errs.ErrGraphFile, err)
	}
	defer f.Close()

	return FromReader(f)
}

// FromReader parses a Description from r and validates it.
func FromReader(r io.Reader) (*Description, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't read from file: %v", errs.ErrGraphInput, err)
	}

	var d Description
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: input wasn't valid YAML: %v", errs.ErrGraphDeserialize, err)
	}

	if err := d.validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Description) validate() error {
	seen := make(map[string]struct{}, len(d.Nodes))
	for _, n := range d.Nodes {
		if _, ok := seen[n.Name]; ok {
			return fmt.Errorf("%w: input contained duplicate node name '%s'", errs.ErrDuplicateName, n.Name)
		}
		seen[n.Name] = struct{}{}
	}

	for _, p := range d.Params {
		if !paramKeyPattern.MatchString(p.Key) {
			return fmt.Errorf("%w: %q", errs.ErrInvalidParamKey, p.Key)
		}
	}

	return nil
}
