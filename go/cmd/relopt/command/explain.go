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

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/catalog"
	"relopt.io/relopt/go/rel/externalize"
	"relopt.io/relopt/go/rel/prepare"
	"relopt.io/relopt/go/rel/relerrors"
)

var (
	// Explain prints a plan at one of the prepare phases.
	Explain = &cobra.Command{
		Use:   "explain --plan <file> [--catalog <file>] [--phase logical|normalized|physical] [--format text|json|tree] [--listing]",
		Short: "Prints the plan in the given file after optimization.",
		Long: `Prints the plan in the given file after optimization.

The logical phase prints the plan as read. The normalized phase prints it
after the heuristic rewrites and the physical phase prints the cheapest
executable plan. --listing adds the compiled program of the physical plan.`,
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		RunE:                  commandExplain,
	}
)

var explainOptions = struct {
	Catalog string
	Plan    string
	Phase   string
	Format  string
	Listing bool
}{
	Phase:  "physical",
	Format: "text",
}

// readPlan loads the catalog and the logical plan of a command.
func readPlan(catalogPath, planPath string) (*catalog.Schema, algebra.Node, error) {
	root, err := loadCatalog(catalogPath)
	if err != nil {
		return nil, nil, err
	}
	data, err := afero.ReadFile(fs, planPath)
	if err != nil {
		return nil, nil, relerrors.Wrap(err, "reading plan")
	}
	logical, err := externalize.Read(root, data)
	if err != nil {
		return nil, nil, err
	}
	return root, logical, nil
}

func commandExplain(cmd *cobra.Command, args []string) error {
	_, logical, err := readPlan(explainOptions.Catalog, explainOptions.Plan)
	if err != nil {
		return err
	}

	var (
		n        algebra.Node
		prepared *prepare.Prepared
	)
	p := prepare.New(prepare.DefaultOptions())
	switch explainOptions.Phase {
	case "logical":
		n = logical
	case "normalized":
		if n, err = p.Normalize(logical); err != nil {
			return err
		}
	case "physical":
		if prepared, err = p.Prepare(cmd.Context(), logical); err != nil {
			return err
		}
		n = prepared.Physical
	default:
		return relerrors.Errorf(relerrors.InvalidArgument, "unknown phase %q: want logical, normalized or physical", explainOptions.Phase)
	}

	var out string
	switch explainOptions.Format {
	case "text":
		out = algebra.Explain(n, algebra.ExplainAttributes)
	case "tree":
		out = algebra.ExplainTree(n)
	case "json":
		if out, err = algebra.ExplainJSON(n); err != nil {
			return err
		}
		out += "\n"
	default:
		return relerrors.Errorf(relerrors.InvalidArgument, "unknown format %q: want text, json or tree", explainOptions.Format)
	}
	fmt.Fprint(cmd.OutOrStdout(), out)

	if explainOptions.Listing {
		if prepared == nil {
			return relerrors.Errorf(relerrors.InvalidArgument, "--listing needs the physical phase")
		}
		fmt.Fprintln(cmd.OutOrStdout(), prepared.Plan.Listing())
	}
	return nil
}

func init() {
	Explain.Flags().StringVarP(&explainOptions.Catalog, "catalog", "c", "", "catalog snapshot file; the stored catalog is used when empty")
	Explain.Flags().StringVarP(&explainOptions.Plan, "plan", "p", "", "logical plan file (JSON)")
	Explain.Flags().StringVar(&explainOptions.Phase, "phase", explainOptions.Phase, "plan to print: logical, normalized or physical")
	Explain.Flags().StringVarP(&explainOptions.Format, "format", "f", explainOptions.Format, "output format: text, json or tree")
	Explain.Flags().BoolVar(&explainOptions.Listing, "listing", false, "print the compiled program of the physical plan")
	Explain.MarkFlagRequired("plan")
	Root.AddCommand(Explain)
}
