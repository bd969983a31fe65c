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

package algebra

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xlab/treeprint"
)

// ExplainLevel selects how much explain prints.
type ExplainLevel int

const (
	// ExplainAttributes prints operators and their terms.
	ExplainAttributes ExplainLevel = iota
	// ExplainNoAttributes prints operator names only.
	ExplainNoAttributes
	// ExplainAllAttributes also prints row counts, cumulative costs and ids.
	ExplainAllAttributes
)

// Explain renders n as indented text, one operator per line:
//
//	LogicalProject(name=[$2])
//	  LogicalFilter(condition=[>($1, 10)])
//	    LogicalTableScan(table=[[hr, emps]])
func Explain(n Node, level ExplainLevel) string {
	var sb strings.Builder
	mq := NewMetadataQuery()
	explainTo(&sb, n, level, mq, 0)
	return sb.String()
}

func explainTo(sb *strings.Builder, n Node, level ExplainLevel, mq *MetadataQuery, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(describeLine(n, level, mq))
	sb.WriteByte('\n')
	for _, in := range n.Inputs() {
		explainTo(sb, Strip(in), level, mq, depth+1)
	}
}

func describeLine(n Node, level ExplainLevel, mq *MetadataQuery) string {
	var sb strings.Builder
	sb.WriteString(n.OpName())
	if level == ExplainNoAttributes {
		return sb.String()
	}
	var terms Terms
	n.ExplainTerms(&terms)
	var parts []string
	for _, item := range terms.items {
		if item.Input != nil {
			continue
		}
		parts = append(parts, item.Name+"=["+item.Value+"]")
	}
	if len(parts) > 0 {
		sb.WriteByte('(')
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteByte(')')
	}
	if level == ExplainAllAttributes {
		fmt.Fprintf(&sb, ": rowcount = %g, cumulative cost = %s, id = %d", mq.RowCount(n), mq.CumulativeCost(n), n.ID())
	}
	return sb.String()
}

// ExplainTree renders n as a tree.
func ExplainTree(n Node) string {
	return asTree(n, nil, NewMetadataQuery()).String()
}

func asTree(n Node, root treeprint.Tree, mq *MetadataQuery) treeprint.Tree {
	txt := describeLine(n, ExplainAttributes, mq)
	var branch treeprint.Tree
	if root == nil {
		branch = treeprint.NewWithRoot(txt)
	} else {
		branch = root.AddBranch(txt)
	}
	for _, in := range n.Inputs() {
		asTree(Strip(in), branch, mq)
	}
	return branch
}

// Description is a serializable description of a plan tree.
type Description struct {
	ID       int               `json:"id"`
	Op       string            `json:"op"`
	Traits   string            `json:"traits"`
	Terms    map[string]string `json:"terms,omitempty"`
	RowType  string            `json:"rowType"`
	RowCount float64           `json:"rowCount"`
	Cost     string            `json:"cumulativeCost"`
	Inputs   []Description     `json:"inputs"`
}

// Describe builds the description tree of n.
func Describe(n Node) Description {
	return describe(Strip(n), NewMetadataQuery())
}

func describe(n Node, mq *MetadataQuery) Description {
	var terms Terms
	n.ExplainTerms(&terms)
	d := Description{
		ID:       n.ID(),
		Op:       n.OpName(),
		Traits:   n.Traits().Key(),
		RowType:  n.RowType().Digest(),
		RowCount: mq.RowCount(n),
		Cost:     mq.CumulativeCost(n).String(),
		Inputs:   []Description{},
	}
	for _, item := range terms.items {
		if item.Input != nil {
			continue
		}
		if d.Terms == nil {
			d.Terms = map[string]string{}
		}
		d.Terms[item.Name] = item.Value
	}
	for _, in := range n.Inputs() {
		d.Inputs = append(d.Inputs, describe(Strip(in), mq))
	}
	return d
}

// ExplainJSON renders the description of n as indented JSON.
func ExplainJSON(n Node) (string, error) {
	out, err := json.MarshalIndent(Describe(n), "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
