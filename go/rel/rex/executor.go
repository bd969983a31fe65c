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

package rex

// Executor evaluates constant expressions at planning time. Planners use it
// to fold expressions such as 1 + 2 into literals.
type Executor interface {
	// Reduce evaluates each constant expression in exprs. The result has
	// the same length; entries that could not be reduced are returned
	// unchanged.
	Reduce(exprs []Node) ([]Node, error)
}
