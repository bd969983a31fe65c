/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package command

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"relopt.io/relopt/go/rel/catalog"
	"relopt.io/relopt/go/rel/log"
	"relopt.io/relopt/go/rel/persist"
	"relopt.io/relopt/go/rel/prepare"
	"relopt.io/relopt/go/rel/relconfig"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/trace"
)

var (
	configFile string
	rootSpan   trace.Span

	// fs is where catalog and plan files are read from.
	fs afero.Fs = afero.NewOsFs()

	// Root is the root command of relopt.
	Root = &cobra.Command{
		Use:   "relopt",
		Short: "relopt optimizes and runs relational algebra plans.",
		Long: "`relopt` reads logical plans in JSON form, optimizes them against a catalog\n" +
			"and either explains or executes the result.\n\n" +
			"The catalog is a YAML or JSON snapshot given with --catalog, or the one\n" +
			"stored by `relopt catalog import`.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := log.Init(cmd.Flags()); err != nil {
				return err
			}
			if err := relconfig.LoadConfigFile(configFile); err != nil {
				return err
			}
			if err := relconfig.BindFlags(cmd.Flags()); err != nil {
				return err
			}
			span, ctx := trace.NewSpan(cmd.Context(), cmd.CommandPath())
			rootSpan = span
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rootSpan != nil {
				rootSpan.Finish()
				rootSpan = nil
			}
			log.Flush()
		},
	}
)

func init() {
	flags := Root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, json or toml) with planner and cache settings")
	log.RegisterFlags(flags)
	prepare.RegisterFlags(flags)
	persist.RegisterFlags(flags)
}

// loadCatalog builds the catalog from path, or from the stored catalog when
// path is empty.
func loadCatalog(path string) (*catalog.Schema, error) {
	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = afero.ReadFile(fs, path)
	} else {
		var p *persist.FilePersister
		if p, err = persist.Configured(); err == nil {
			data, err = p.Read()
		}
	}
	if err != nil {
		return nil, relerrors.Wrap(err, "loading catalog")
	}
	snap, err := catalog.ParseSnapshot(data)
	if err != nil {
		return nil, err
	}
	return snap.Build()
}
