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

/*
Package command contains the commands of the relopt binary. It is intended
only for use in relopt's main package.

The root command lives in root.go. Subcommands attach themselves to Root in
an init function. Root's pre-run loads the config file, binds the planner
flags and starts a trace span; commands use cmd.Context() so their work is
traced under that span.

Commands keep their logic in a function assigned to RunE, next to the
cobra.Command declaration and its flags. Flag values live in a per-command
options struct so they do not pollute the package namespace. Output goes to
cmd.OutOrStdout() so tests can capture it.
*/
package command
