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

// Package pluginloader resolves a plugin type name to a validated,
// cached NodePlugin (spec.md §4.1), grounded on
// original_source/src/plugin_loader.rs and node_plugin.rs.
package pluginloader

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/Gregory-Meyer/srm/internal/abi"
	"github.com/Gregory-Meyer/srm/internal/errs"
	"github.com/rs/zerolog"
)

// NodePlugin is a loaded, validated plugin: the opened library (kept
// alive for as long as any node from it exists) and a non-null node
// vtable, shared by reference among every node of this type.
type NodePlugin struct {
	library *abi.Library
	vtbl    *abi.NodeVtbl
}

// Library returns the underlying opened shared library.
func (p *NodePlugin) Library() *abi.Library {
	return p.library
}

// Vtbl returns the validated node vtable.
func (p *NodePlugin) Vtbl() *abi.NodeVtbl {
	return p.vtbl
}

// Loader caches one NodePlugin per type name, trying each search
// directory in order on first load (plugin_loader.rs's PluginLoader).
type Loader struct {
	mu      sync.Mutex
	paths   []string
	plugins map[string]*NodePlugin
	log     zerolog.Logger
}

// New constructs a Loader that searches paths, in order, for each plugin
// type's library.
func New(paths []string, log zerolog.Logger) *Loader {
	return &Loader{
		paths:   paths,
		plugins: make(map[string]*NodePlugin),
		log:     log,
	}
}

// Load returns the cached NodePlugin for typeName, loading it on first
// use. Concurrent calls for distinct type names still serialise on the
// loader's single mutex, matching spec.md §5: "The plugin loader is
// protected by one mutex; held only across the single load call."
func (l *Loader) Load(typeName string) (*NodePlugin, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p, ok := l.plugins[typeName]; ok {
		return p, nil
	}

	p, err := l.doLoad(typeName)
	if err != nil {
		return nil, err
	}

	l.plugins[typeName] = p
	return p, nil
}

func (l *Loader) doLoad(typeName string) (*NodePlugin, error) {
	for _, dir := range l.paths {
		path := makeLibName(dir, typeName)

		lib, err := abi.OpenLibrary(path)
		if err != nil {
			l.log.Warn().Str("path", path).Err(err).Msg("failed to load library")
			continue
		}

		return newNodePlugin(lib)
	}

	return nil, fmt.Errorf("%w: type %q", errs.ErrNoLibraryFound, typeName)
}

func newNodePlugin(lib *abi.Library) (*NodePlugin, error) {
	vtbl, err := lib.LoadNodeVtbl()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrLibraryMissingSymbol, err)
	}
	if vtbl == nil {
		return nil, errs.ErrVtblNull
	}

	if missing := vtbl.MissingSlot(); missing != "" {
		return nil, fmt.Errorf("%w: %q", errs.ErrVtblMissingFunction, missing)
	}

	return &NodePlugin{library: lib, vtbl: vtbl}, nil
}

// makeLibName derives the platform filename convention for a plugin type
// name, matching plugin_loader.rs's make_lib_name exactly.
func makeLibName(dir, name string) string {
	var filename string
	if runtime.GOOS == "windows" {
		filename = fmt.Sprintf("srm-%s.dll", name)
	} else {
		filename = fmt.Sprintf("libsrm-%s.so", name)
	}
	return filepath.Join(dir, filename)
}
