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
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"relopt.io/relopt/go/rel/catalog"
	"relopt.io/relopt/go/rel/persist"
	"relopt.io/relopt/go/rel/relerrors"
)

var (
	// Catalog groups the stored catalog commands.
	Catalog = &cobra.Command{
		Use:   "catalog",
		Short: "Manages the stored catalog.",
		Args:  cobra.NoArgs,
	}
	// CatalogImport stores a catalog snapshot.
	CatalogImport = &cobra.Command{
		Use:                   "import <file>",
		Short:                 "Validates a catalog snapshot and stores it as the default catalog.",
		DisableFlagsInUseLine: true,
		Args:                  cobra.ExactArgs(1),
		RunE:                  commandCatalogImport,
	}
	// CatalogShow lists the tables of the stored catalog.
	CatalogShow = &cobra.Command{
		Use:                   "show",
		Short:                 "Lists the tables of the stored catalog.",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		RunE:                  commandCatalogShow,
	}
	// CatalogDrop removes the stored catalog.
	CatalogDrop = &cobra.Command{
		Use:                   "drop",
		Short:                 "Removes the stored catalog.",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		RunE:                  commandCatalogDrop,
	}
)

func commandCatalogImport(cmd *cobra.Command, args []string) error {
	data, err := afero.ReadFile(fs, cmd.Flags().Arg(0))
	if err != nil {
		return relerrors.Wrap(err, "reading catalog")
	}
	snap, err := catalog.ParseSnapshot(data)
	if err != nil {
		return err
	}
	root, err := snap.Build()
	if err != nil {
		return err
	}
	blob, err := catalog.SnapshotOf(root).Marshal()
	if err != nil {
		return err
	}

	p, err := persist.Configured()
	if err != nil {
		return err
	}
	if err := p.Write(blob); err != nil {
		return err
	}
	tables := 0
	_ = root.Walk(func(catalog.Table) error {
		tables++
		return nil
	})
	fmt.Fprintf(cmd.OutOrStdout(), "stored %d tables (%s) in %s\n", tables, humanize.Bytes(uint64(len(blob))), p.Path())
	return nil
}

func commandCatalogShow(cmd *cobra.Command, args []string) error {
	root, err := loadCatalog("")
	if err != nil {
		return err
	}

	var rows [][]string
	err = root.Walk(func(t catalog.Table) error {
		rows = append(rows, []string{
			strings.Join(t.QualifiedName(), "."),
			humanize.Comma(int64(len(t.RowType().Fields))),
			humanize.Comma(int64(t.Statistic().RowCount)),
		})
		return nil
	})
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Table", "Columns", "Rows")
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func commandCatalogDrop(cmd *cobra.Command, args []string) error {
	p, err := persist.Configured()
	if err != nil {
		return err
	}
	if err := p.Remove(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", p.Path())
	return nil
}

func init() {
	Catalog.AddCommand(CatalogImport)
	Catalog.AddCommand(CatalogShow)
	Catalog.AddCommand(CatalogDrop)
	Root.AddCommand(Catalog)
}
