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

package enumerable

import (
	"fmt"
	"strings"

	"relopt.io/relopt/go/rel/linq"
)

// Source opens the rows of a block for one execution.
type Source func(env *Env) (linq.Enumerator, error)

// Block is the compiled form of a subtree: the listing of its statements
// and the source that runs them. Result names the variable holding its
// rows.
type Block struct {
	Lines  []string
	Result string
	Source Source
}

func (b *Block) String() string {
	return strings.Join(b.Lines, "\n") + "\nreturn " + b.Result + "\n"
}

// BlockBuilder accumulates the statements of a block. Variable names are
// unique across the blocks of one Implementor.
type BlockBuilder struct {
	imp   *Implementor
	lines []string
}

// Append splices child into the block and returns its result variable.
func (b *BlockBuilder) Append(child *Block) string {
	b.lines = append(b.lines, child.Lines...)
	return child.Result
}

// Declare adds the statement name = format(args) for a fresh name derived
// from prefix and returns the name.
func (b *BlockBuilder) Declare(prefix, format string, args ...any) string {
	name := b.imp.newName(prefix)
	b.lines = append(b.lines, name+" = "+fmt.Sprintf(format, args...))
	return name
}

// Code adds the listing of a compiled expression under label.
func (b *BlockBuilder) Code(label string, e *Expr) {
	b.lines = append(b.lines, "  "+label+": "+e.String())
	for _, l := range e.Listing() {
		b.lines = append(b.lines, "    "+l)
	}
}

// Build returns the block whose rows are in result and produced by src.
func (b *BlockBuilder) Build(result string, src Source) *Block {
	return &Block{Lines: b.lines, Result: result, Source: src}
}
