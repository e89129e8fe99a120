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

// Command srm loads a graph description, spawns the nodes it names, and
// runs them until SIGINT (spec.md §6, §9). Grounded on
// original_source/src/node_graph.rs's spawn_core and main.rs's top-level
// run/stop/join sequencing, realized as a single-command cobra CLI the
// way the corpus's own CLIs (dittofs, moby) scaffold theirs.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Gregory-Meyer/srm/internal/graph"
	"github.com/Gregory-Meyer/srm/internal/logging"
	"github.com/Gregory-Meyer/srm/internal/runtime"
	"github.com/Gregory-Meyer/srm/internal/workerpool"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "srm [graph-file]",
		Short:        "Run an in-process pub/sub node graph",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logging.Init()

	runID := uuid.New()
	log := logging.Log.With().Str("run_id", runID.String()).Logger()

	graphArg := ""
	if len(args) == 1 {
		graphArg = args[0]
	}

	desc, err := graph.Load(graphArg)
	if err != nil {
		log.Error().Err(err).Msg("couldn't load graph description")
		return fmt.Errorf("couldn't load graph description: %w", err)
	}

	pool := workerpool.New(0)
	defer pool.Close()

	ctrl := runtime.New(desc.Path, pool, log)
	if err := ctrl.LoadDescription(desc); err != nil {
		log.Error().Err(err).Msg("couldn't initialize core from graph")
		return fmt.Errorf("couldn't initialize core from graph: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if _, ok := <-sigCh; ok {
			log.Info().Msg("received shutdown signal, stopping nodes")
			ctrl.Stop()
		}
	}()

	runErr := ctrl.Run()
	signal.Stop(sigCh)

	ctrl.Shutdown()

	if runErr != nil {
		log.Error().Err(runErr).Msg("runtime exited with error")
		return runErr
	}

	log.Info().Msg("shut down cleanly")
	return nil
}
