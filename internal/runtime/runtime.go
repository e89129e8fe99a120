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

// Package runtime implements the Runtime Controller (spec.md §4.7):
// loads plugins, starts/stops nodes, and owns the Channel Registry and
// Parameter Store every node's Core Facade shares. Grounded on
// original_source/src/static_core.rs's Core/add_node/Core::run/
// Core::stop.
package runtime

import (
	"fmt"
	"sync"

	"github.com/Gregory-Meyer/srm/internal/abi"
	"github.com/Gregory-Meyer/srm/internal/channel"
	"github.com/Gregory-Meyer/srm/internal/corefacade"
	"github.com/Gregory-Meyer/srm/internal/graph"
	"github.com/Gregory-Meyer/srm/internal/logging"
	"github.com/Gregory-Meyer/srm/internal/node"
	"github.com/Gregory-Meyer/srm/internal/param"
	"github.com/Gregory-Meyer/srm/internal/pluginloader"
	"github.com/Gregory-Meyer/srm/internal/weakref"
	"github.com/Gregory-Meyer/srm/internal/workerpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type nodeEntry struct {
	node *node.Node
	host *abi.HostCore
}

// Controller is the top-level owner of every node, channel and parameter
// in a running graph (static_core.rs's Core). The zero value is not
// usable; construct with New.
type Controller struct {
	mu     sync.RWMutex
	loader *pluginloader.Loader
	reg    *channel.Registry
	params *param.Store
	nodes  map[string]*nodeEntry

	self *weakref.Weak[corefacade.Controller]
	log  zerolog.Logger
}

// New constructs a Controller that searches pluginPaths for node plugin
// libraries and dispatches channel fan-out onto pool.
func New(pluginPaths []string, pool *workerpool.Pool, log zerolog.Logger) *Controller {
	c := &Controller{
		loader: pluginloader.New(pluginPaths, log),
		reg:    channel.NewRegistry(pool),
		params: param.New(),
		nodes:  make(map[string]*nodeEntry),
		log:    log,
	}

	var asController corefacade.Controller = c
	c.self = weakref.New(&asController)
	return c
}

// Registry implements corefacade.Controller.
func (c *Controller) Registry() *channel.Registry { return c.reg }

// Params implements corefacade.Controller.
func (c *Controller) Params() *param.Store { return c.params }

// AddNode loads the plugin registered under typeName (if not already
// loaded), constructs a Core Facade bound weakly back to this Controller,
// and starts the node under name. name must be unique; the graph loader
// is responsible for rejecting duplicates before this is ever called, so
// a collision here indicates a caller bug and panics, matching
// add_node's own assert!(!was_present).
func (c *Controller) AddNode(name, typeName string) error {
	plugin, err := c.loader.Load(typeName)
	if err != nil {
		return fmt.Errorf("couldn't add node %q: %w", name, err)
	}

	n := node.New(plugin, name)
	facade := corefacade.New(c.self, name, logging.Component(name))
	host := abi.NewHostCore(facade)

	if err := n.Start(host.Ref()); err != nil {
		host.Release()
		return fmt.Errorf("couldn't start node %q: %w", name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.nodes[name]; exists {
		panic(fmt.Sprintf("runtime: node %q already present", name))
	}
	c.nodes[name] = &nodeEntry{node: n, host: host}
	return nil
}

// LoadDescription seeds the Parameter Store from d.Params, then adds
// every node d.Nodes names, in order. Params are applied first so that a
// node's create() callback observes its seeded values from the start.
func (c *Controller) LoadDescription(d *graph.Description) error {
	for _, p := range d.Params {
		if err := p.Apply(c.params); err != nil {
			return fmt.Errorf("couldn't seed parameter %q: %w", p.Key, err)
		}
	}

	for _, n := range d.Nodes {
		if err := c.AddNode(n.Name, n.Type); err != nil {
			return err
		}
	}

	return nil
}

// Run launches every added node's Run on its own goroutine and blocks
// until all of them return. A node returning a nonzero result is a fatal
// condition and panics, matching Core::run's node.run().unwrap().
func (c *Controller) Run() error {
	c.mu.RLock()
	entries := c.snapshotLocked()
	c.mu.RUnlock()

	var g errgroup.Group
	for _, e := range entries {
		e := e
		g.Go(func() error {
			if err := e.node.Run(); err != nil {
				panic(fmt.Sprintf("node %q exited with error: %v", e.node.Name(), err))
			}
			return nil
		})
	}
	return g.Wait()
}

// Stop signals every node's non-blocking stop slot. A nonzero result is
// fatal and panics, matching Core::stop's node.stop().unwrap(). Safe to
// call from a signal handler goroutine concurrently with Run.
func (c *Controller) Stop() {
	c.mu.RLock()
	entries := c.snapshotLocked()
	c.mu.RUnlock()

	for _, e := range entries {
		if err := e.node.Stop(); err != nil {
			panic(fmt.Sprintf("couldn't stop node %q: %v", e.node.Name(), err))
		}
	}
}

// Shutdown destroys every node and releases its Core Facade once Run has
// returned. The original relies on Rust's Drop running when the last
// Arc<Core> reference goes out of scope; Go has no equivalent, so this is
// the explicit analogue the CLI entrypoint calls after Run returns.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.nodes {
		e.node.Destroy()
		e.host.Release()
	}
	c.self.Release()
}

func (c *Controller) snapshotLocked() []*nodeEntry {
	entries := make([]*nodeEntry, 0, len(c.nodes))
	for _, e := range c.nodes {
		entries = append(entries, e)
	}
	return entries
}
