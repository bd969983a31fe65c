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

import (
	"strings"

	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/sqltypes"
)

// Program is a projection list plus an optional condition over a fixed
// input row type, in a flattened form where every common sub-expression is
// computed once.
//
// The first InputType.FieldCount() entries of Exprs are the input
// references $0..$n-1. Later entries may reference earlier ones through
// LocalRefs only.
type Program struct {
	InputType  *reltype.DataType
	Exprs      []Node
	Projects   []*LocalRef
	Condition  *LocalRef
	OutputType *reltype.DataType
}

// Identity returns the program that passes every field of rowType through.
func Identity(rowType *reltype.DataType) *Program {
	b := NewProgramBuilder(rowType)
	b.AddIdentity()
	return b.Program()
}

// NewProgramFromProjectAndFilter builds a program from expressions over the
// input row type. condition may be nil.
func NewProgramFromProjectAndFilter(inputType *reltype.DataType, projects []Node, condition Node, names []string) *Program {
	b := NewProgramBuilder(inputType)
	for i, p := range projects {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		b.AddProject(p, name)
	}
	if condition != nil && !IsAlwaysTrue(condition) {
		b.AddCondition(condition)
	}
	return b.Program()
}

// Validate checks the invariants of the program.
func (p *Program) Validate() error {
	n := p.InputType.FieldCount()
	if len(p.Exprs) < n {
		return invalidProgram("program has %d exprs for %d inputs", len(p.Exprs), n)
	}
	for i, e := range p.Exprs {
		if i < n {
			ref, ok := e.(*InputRef)
			if !ok || ref.Index != i || !ref.Type().Equal(p.InputType.Fields[i].Type) {
				return invalidProgram("expr#%d must be input $%d of type %s, got %s", i, i, p.InputType.Fields[i].Type, e)
			}
			continue
		}
		var err error
		Visit(e, func(x Node) bool {
			switch x := x.(type) {
			case *InputRef:
				err = invalidProgram("expr#%d references input %s directly", i, x)
			case *LocalRef:
				if x.Index >= i {
					err = invalidProgram("expr#%d references later expr %s", i, x)
				} else if !x.Type().Equal(p.Exprs[x.Index].Type()) {
					err = invalidProgram("expr#%d: %s has type %s, expected %s", i, x, x.Type(), p.Exprs[x.Index].Type())
				}
			}
			return err == nil
		})
		if err != nil {
			return err
		}
	}
	if len(p.Projects) != p.OutputType.FieldCount() {
		return invalidProgram("%d projects for output type %s", len(p.Projects), p.OutputType)
	}
	for i, ref := range p.Projects {
		if err := p.checkRef(ref); err != nil {
			return err
		}
		if !ref.Type().Equal(p.OutputType.Fields[i].Type) {
			return invalidProgram("project %d has type %s, output field has %s", i, ref.Type(), p.OutputType.Fields[i].Type)
		}
	}
	if p.Condition != nil {
		if err := p.checkRef(p.Condition); err != nil {
			return err
		}
		if p.Condition.Type().Name != sqltypes.Boolean {
			return invalidProgram("condition has type %s", p.Condition.Type())
		}
	}
	return nil
}

func (p *Program) checkRef(ref *LocalRef) error {
	if ref.Index < 0 || ref.Index >= len(p.Exprs) {
		return invalidProgram("%s out of range", ref)
	}
	if !ref.Type().Equal(p.Exprs[ref.Index].Type()) {
		return invalidProgram("%s has type %s, expected %s", ref, ref.Type(), p.Exprs[ref.Index].Type())
	}
	return nil
}

func invalidProgram(format string, args ...any) error {
	return relerrors.NewErrorf(relerrors.Internal, relerrors.InvalidRelExpression, format, args...)
}

// Expand rewrites n, which may contain LocalRefs of this program, in terms
// of input references only.
func (p *Program) Expand(n Node) Node {
	cache := make(map[int]Node)
	var expand func(n Node) Node
	expand = func(n Node) Node {
		return Transform(n, func(x Node) Node {
			ref, ok := x.(*LocalRef)
			if !ok {
				return x
			}
			if e, ok := cache[ref.Index]; ok {
				return e
			}
			e := p.Exprs[ref.Index]
			if _, isInput := e.(*InputRef); !isInput {
				e = expand(e)
			}
			cache[ref.Index] = e
			return e
		})
	}
	return expand(n)
}

// ExpandedProjects returns the projections in terms of the input.
func (p *Program) ExpandedProjects() []Node {
	out := make([]Node, len(p.Projects))
	for i, ref := range p.Projects {
		out[i] = p.Expand(ref)
	}
	return out
}

// ExpandedCondition returns the condition in terms of the input, or nil.
func (p *Program) ExpandedCondition() Node {
	if p.Condition == nil {
		return nil
	}
	return p.Expand(p.Condition)
}

// ProjectsOnlyIdentity returns true if the projections are exactly the
// input fields in order.
func (p *Program) ProjectsOnlyIdentity() bool {
	if len(p.Projects) != p.InputType.FieldCount() {
		return false
	}
	for i, ref := range p.Projects {
		if ref.Index != i {
			return false
		}
	}
	return true
}

// IsTrivial returns true if the program neither filters nor changes rows.
func (p *Program) IsTrivial() bool {
	return p.Condition == nil && p.ProjectsOnlyIdentity()
}

// Normalize rebuilds the program, removing unused and duplicate
// expressions. With simplify set, expressions are also simplified.
func (p *Program) Normalize(simplify bool) *Program {
	projects := p.ExpandedProjects()
	cond := p.ExpandedCondition()
	if simplify {
		for i, e := range projects {
			projects[i] = Simplify(e)
		}
		if cond != nil {
			cond = SimplifyPredicate(cond)
		}
	}
	return NewProgramFromProjectAndFilter(p.InputType, projects, cond, p.OutputType.FieldNames())
}

// Merge returns the program equivalent to applying bottom and then top.
// The input type of top must match the output type of bottom.
func Merge(top, bottom *Program) *Program {
	if !reltype.EqualSansNames(top.InputType, bottom.OutputType) {
		panic(invalidProgram("cannot merge: top input %s does not match bottom output %s", top.InputType, bottom.OutputType))
	}
	bottomProjects := bottom.ExpandedProjects()
	projects := SubstituteAll(top.ExpandedProjects(), bottomProjects)
	var cond Node
	if c := bottom.ExpandedCondition(); c != nil {
		cond = c
	}
	if c := top.ExpandedCondition(); c != nil {
		c = Substitute(c, bottomProjects)
		if cond == nil {
			cond = c
		} else {
			cond = AndOf(cond, c)
		}
	}
	return NewProgramFromProjectAndFilter(bottom.InputType, projects, cond, top.OutputType.FieldNames())
}

// String prints the program in the form
// (expr#0..1=[{inputs}], expr#2=[+($t0, $t1)], a=[$t0], $condition=[$t2]).
func (p *Program) String() string {
	var parts []string
	n := p.InputType.FieldCount()
	switch {
	case n == 1:
		parts = append(parts, "expr#0=[{inputs}]")
	case n > 1:
		parts = append(parts, "expr#0.."+itoa(n-1)+"=[{inputs}]")
	}
	for i := n; i < len(p.Exprs); i++ {
		parts = append(parts, "expr#"+itoa(i)+"=["+p.Exprs[i].Digest()+"]")
	}
	for i, ref := range p.Projects {
		parts = append(parts, p.OutputType.Fields[i].Name+"=["+ref.Digest()+"]")
	}
	if p.Condition != nil {
		parts = append(parts, "$condition=["+p.Condition.Digest()+"]")
	}
	return strings.Join(parts, ", ")
}

// ProgramBuilder assembles a Program, sharing common sub-expressions.
type ProgramBuilder struct {
	inputType *reltype.DataType
	exprs     []Node
	index     map[string]int
	projects  []*LocalRef
	names     []string
	condition *LocalRef
}

// NewProgramBuilder returns a builder over inputType.
func NewProgramBuilder(inputType *reltype.DataType) *ProgramBuilder {
	b := &ProgramBuilder{inputType: inputType, index: make(map[string]int)}
	for i, f := range inputType.Fields {
		b.add(NewInputRef(i, f.Type))
	}
	return b
}

func exprKey(n Node) string {
	return n.Digest() + "|" + n.Type().Digest()
}

func (b *ProgramBuilder) add(n Node) *LocalRef {
	key := exprKey(n)
	if i, ok := b.index[key]; ok {
		return NewLocalRef(i, b.exprs[i].Type())
	}
	b.exprs = append(b.exprs, n)
	b.index[key] = len(b.exprs) - 1
	return NewLocalRef(len(b.exprs)-1, n.Type())
}

// Register adds expr, expressed over the input row (and possibly over
// LocalRefs already handed out by this builder), and returns a reference
// to it.
func (b *ProgramBuilder) Register(expr Node) *LocalRef {
	switch e := expr.(type) {
	case *LocalRef:
		return e
	case *InputRef:
		if e.Index >= b.inputType.FieldCount() {
			panic(invalidRel("input $%d out of range for %s", e.Index, b.inputType))
		}
		if !e.Type().Equal(b.inputType.Fields[e.Index].Type) {
			return b.add(NewCall(Cast, e.Type(), NewLocalRef(e.Index, b.inputType.Fields[e.Index].Type)))
		}
		return NewLocalRef(e.Index, e.Type())
	case *Call:
		operands := make([]Node, len(e.Operands))
		for i, o := range e.Operands {
			operands[i] = b.Register(o)
		}
		return b.add(e.WithOperands(operands))
	case *FieldAccess:
		inner := b.Register(e.Expr)
		return b.add(NewFieldAccess(inner, e.Field.Index))
	}
	return b.add(expr)
}

// AddIdentity projects every input field.
func (b *ProgramBuilder) AddIdentity() {
	for i, f := range b.inputType.Fields {
		b.projects = append(b.projects, NewLocalRef(i, f.Type))
		b.names = append(b.names, f.Name)
	}
}

// AddProject adds a projection. An empty name is generated from the
// position.
func (b *ProgramBuilder) AddProject(expr Node, name string) *LocalRef {
	if name == "" {
		if ref, ok := expr.(*InputRef); ok && ref.Index < b.inputType.FieldCount() {
			name = b.inputType.Fields[ref.Index].Name
		}
	}
	ref := b.Register(expr)
	b.projects = append(b.projects, ref)
	b.names = append(b.names, name)
	return ref
}

// AddCondition ANDs expr with the current condition.
func (b *ProgramBuilder) AddCondition(expr Node) {
	ref := b.Register(expr)
	if b.condition == nil {
		b.condition = ref
		return
	}
	and := MustCall(And, b.condition, ref)
	b.condition = b.add(and)
}

// Program returns the built program, dropping expressions nothing uses.
func (b *ProgramBuilder) Program() *Program {
	n := b.inputType.FieldCount()
	used := make([]bool, len(b.exprs))
	for i := range n {
		used[i] = true
	}
	var mark func(i int)
	mark = func(i int) {
		if used[i] {
			return
		}
		used[i] = true
		Visit(b.exprs[i], func(x Node) bool {
			if ref, ok := x.(*LocalRef); ok {
				mark(ref.Index)
			}
			return true
		})
	}
	for _, p := range b.projects {
		mark(p.Index)
	}
	if b.condition != nil {
		mark(b.condition.Index)
	}

	mapping := make([]int, len(b.exprs))
	var exprs []Node
	for i, e := range b.exprs {
		if !used[i] {
			mapping[i] = -1
			continue
		}
		mapping[i] = len(exprs)
		exprs = append(exprs, Transform(e, func(x Node) Node {
			if ref, ok := x.(*LocalRef); ok {
				return NewLocalRef(mapping[ref.Index], ref.Type())
			}
			return x
		}))
	}
	remap := func(ref *LocalRef) *LocalRef {
		return NewLocalRef(mapping[ref.Index], ref.Type())
	}
	projects := make([]*LocalRef, len(b.projects))
	fields := make([]reltype.Field, len(b.projects))
	seen := map[string]bool{}
	for i, p := range b.projects {
		projects[i] = remap(p)
		name := b.names[i]
		if name == "" {
			name = "$f" + itoa(i)
		}
		fields[i] = reltype.Field{Name: reltype.UniqueName(name, seen), Type: p.Type()}
	}
	var cond *LocalRef
	if b.condition != nil {
		cond = remap(b.condition)
	}
	return &Program{
		InputType:  b.inputType,
		Exprs:      exprs,
		Projects:   projects,
		Condition:  cond,
		OutputType: reltype.Struct(fields...),
	}
}
