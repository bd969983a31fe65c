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
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"relopt.io/relopt/go/rel/prepare"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/sqltypes"
)

var (
	// Run executes a plan and prints its rows.
	Run = &cobra.Command{
		Use:   "run --plan <file> [--catalog <file>] [--param [<type>:]<value> ...]",
		Short: "Optimizes and executes the plan in the given file.",
		Long: `Optimizes and executes the plan in the given file and prints the result as a table.

Parameters bind to the plan's dynamic parameters in order. A parameter may
name its type, as in BIGINT:7 or VARCHAR:7. Without a type, integers,
floats, booleans and null are recognized and anything else is a VARCHAR.`,
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		RunE:                  commandRun,
	}
)

var runOptions = struct {
	Catalog string
	Plan    string
	Params  []string
}{}

// parseParam parses a [<type>:]<value> parameter.
func parseParam(s string) (sqltypes.Value, error) {
	if typ, val, ok := strings.Cut(s, ":"); ok {
		if dt, err := reltype.Parse(typ); err == nil {
			return sqltypes.ParseValue(dt.Name, val)
		}
	}
	if strings.EqualFold(s, "null") {
		return sqltypes.NULL, nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return sqltypes.NewInt64(i), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return sqltypes.NewFloat64(f), nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return sqltypes.NewBoolean(b), nil
	}
	return sqltypes.NewVarChar(s), nil
}

func commandRun(cmd *cobra.Command, args []string) error {
	params := make([]sqltypes.Value, len(runOptions.Params))
	for i, s := range runOptions.Params {
		v, err := parseParam(s)
		if err != nil {
			return relerrors.Wrapf(err, "parameter %d", i)
		}
		params[i] = v
	}

	_, logical, err := readPlan(runOptions.Catalog, runOptions.Plan)
	if err != nil {
		return err
	}
	res, err := prepare.New(prepare.DefaultOptions()).Execute(cmd.Context(), logical, params...)
	if err != nil {
		return err
	}
	return printResult(cmd, res)
}

func printResult(cmd *cobra.Command, res *sqltypes.Result) error {
	w := cmd.OutOrStdout()
	if len(res.Fields) == 0 {
		fmt.Fprintf(w, "%d rows affected\n", res.RowsAffected)
		return nil
	}

	header := make([]any, len(res.Fields))
	for i, f := range res.Fields {
		header[i] = f.Name
	}
	rows := make([][]string, len(res.Rows))
	for i, row := range res.Rows {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			if v.IsNull() {
				rows[i][j] = "NULL"
			} else {
				rows[i][j] = v.ToString()
			}
		}
	}

	table := tablewriter.NewWriter(w)
	table.Header(header...)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
	return nil
}

func init() {
	Run.Flags().StringVarP(&runOptions.Catalog, "catalog", "c", "", "catalog snapshot file; the stored catalog is used when empty")
	Run.Flags().StringVarP(&runOptions.Plan, "plan", "p", "", "logical plan file (JSON)")
	Run.Flags().StringArrayVar(&runOptions.Params, "param", nil, "positional parameter, [<type>:]<value>; may be repeated")
	Run.MarkFlagRequired("plan")
	Root.AddCommand(Run)
}
