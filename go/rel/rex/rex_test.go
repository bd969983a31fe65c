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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/sqltypes"
)

var (
	bigint     = reltype.New(sqltypes.Int64, false)
	nullBigint = reltype.New(sqltypes.Int64, true)
	varchar    = reltype.New(sqltypes.VarChar, true)
	rowType    = reltype.StructOf(
		[]string{"id", "dept", "name", "salary"},
		[]*reltype.DataType{bigint, nullBigint, varchar, reltype.New(sqltypes.Float64, true)},
	)
)

func ref(i int) *InputRef { return InputRefOf(rowType, i) }

func lit(i int64) *Literal { return LiteralOf(sqltypes.NewInt64(i)) }

func TestDigests(t *testing.T) {
	e := MustCall(Plus, ref(0), lit(1))
	assert.Equal(t, "+($0, 1)", e.Digest())
	assert.Equal(t, "BIGINT NOT NULL", e.Type().Digest())

	cond := MustCall(Equals, ref(1), lit(10))
	assert.Equal(t, "=($1, 10)", cond.Digest())
	assert.True(t, cond.Type().Nullable)

	cast := MakeCast(nullBigint, ref(0))
	assert.Equal(t, "CAST($0):BIGINT", cast.Digest())

	assert.Equal(t, "null:BIGINT", NewNullLiteral(bigint).Digest())
	assert.Equal(t, `"x"`, LiteralOf(sqltypes.NewVarChar("x")).Digest())

	cor := NewCorrelVariable(0, rowType)
	fa, err := FieldAccessByName(cor, "name")
	require.NoError(t, err)
	assert.Equal(t, "$cor0.name", fa.Digest())
	assert.True(t, ContainsCorrelation(MustCall(Equals, fa, ref(2))))
}

func TestMakeCallTypeErrors(t *testing.T) {
	_, err := MakeCall(Equals, ref(2), lit(1))
	require.Error(t, err)
	assert.Equal(t, relerrors.TypeMismatch, relerrors.ErrState(err))

	_, err = MakeCall(Plus, ref(0))
	assert.Equal(t, relerrors.WrongParameterCount, relerrors.ErrState(err))

	assert.PanicsWithError(t, "invalid call: =: cannot compare VARCHAR and BIGINT NOT NULL", func() {
		MustCall(Equals, ref(2), lit(1))
	})
}

func TestConjunctions(t *testing.T) {
	a := MustCall(GreaterThan, ref(0), lit(1))
	b := MustCall(LessThan, ref(0), lit(5))
	c := MustCall(IsNotNull, ref(1))

	and := AndOf(a, AndOf(b, c), BoolLiteral(true), a)
	assert.Equal(t, "AND(>($0, 1), <($0, 5), IS NOT NULL($1))", and.Digest())
	assert.Len(t, Conjunctions(and), 3)
	assert.Empty(t, Conjunctions(BoolLiteral(true)))

	assert.True(t, IsLiteralBool(AndOf(a, BoolLiteral(false)), false))
	assert.True(t, IsLiteralBool(AndOf(), true))
	assert.True(t, IsLiteralBool(OrOf(a, BoolLiteral(true)), true))
	assert.Equal(t, a, OrOf(a))
}

func TestShiftPermuteSubstitute(t *testing.T) {
	e := MustCall(Plus, ref(0), MakeCast(bigint, ref(1)))
	assert.Equal(t, "+($2, CAST($3):BIGINT NOT NULL)", Shift(e, 2).Digest())
	assert.Equal(t, bitset.Build(0, 1), InputRefs(e))
	assert.Equal(t, "+($1, CAST($0):BIGINT NOT NULL)", Permute(e, []int{1, 0}).Digest())

	sub := Substitute(e, []Node{MustCall(Multiply, ref(0), lit(2)), ref(1)})
	assert.Equal(t, "+(*($0, 2), CAST($1):BIGINT NOT NULL)", sub.Digest())

	assert.Panics(t, func() { Permute(e, []int{1}) })
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsConstant(MustCall(Plus, lit(1), lit(2))))
	assert.False(t, IsConstant(MustCall(Plus, ref(0), lit(2))))
	assert.False(t, IsConstant(NewDynamicParam(0, bigint)))
	assert.True(t, IsIdentity(InputRefsOf(rowType), rowType))
	assert.False(t, IsIdentity([]Node{ref(1), ref(0), ref(2), ref(3)}, rowType))
	assert.True(t, IsAlwaysFalse(NewNullLiteral(reltype.New(sqltypes.Boolean, true))))
}

func TestSimplify(t *testing.T) {
	gt := MustCall(GreaterThan, ref(0), lit(1))
	nullableCmp := MustCall(Equals, ref(1), lit(3))

	tcases := []struct {
		name string
		in   Node
		want string
	}{
		{"and with true", MustCall(And, gt, BoolLiteral(true)), ">($0, 1)"},
		{"and with false", MustCall(And, nullableCmp, BoolLiteral(false)), "false"},
		{"or with true", MustCall(Or, gt, BoolLiteral(true)), "true"},
		{"double negation", MustCall(Not, MustCall(Not, gt)), ">($0, 1)"},
		{"negated comparison", MustCall(Not, gt), "<=($0, 1)"},
		{"is null on not null", MustCall(IsNull, ref(0)), "false"},
		{"is not null on not null", MustCall(IsNotNull, ref(0)), "true"},
		{"x and not x", MustCall(And, gt, MustCall(Not, gt)), "false"},
		{"duplicate conjuncts", MustCall(And, nullableCmp, nullableCmp), "=($1, 3)"},
		{"case true branch", MustCall(Case, BoolLiteral(false), lit(1), BoolLiteral(true), lit(2), lit(3)), "2"},
		{"case else", MustCall(Case, BoolLiteral(false), lit(1), lit(3)), "3"},
		{"coalesce not null", MustCall(Coalesce, ref(1), ref(0), lit(7)), "COALESCE($1, $0)"},
	}
	for _, tcase := range tcases {
		t.Run(tcase.name, func(t *testing.T) {
			got := Simplify(tcase.in)
			assert.Equal(t, tcase.want, got.Digest())
			assert.True(t, got.Type().Equal(tcase.in.Type()), "type changed: %s -> %s", tcase.in.Type(), got.Type())
		})
	}

	assert.Equal(t, "false", SimplifyPredicate(MustCall(And, nullableCmp, NewNullLiteral(reltype.New(sqltypes.Boolean, true)), BoolLiteral(false))).Digest())
}

func TestProgramBuilderSharesSubexpressions(t *testing.T) {
	sum := MustCall(Plus, ref(0), lit(1))
	b := NewProgramBuilder(rowType)
	b.AddProject(sum, "a")
	b.AddProject(MustCall(Multiply, sum, lit(2)), "b")
	b.AddProject(ref(2), "")
	b.AddCondition(MustCall(GreaterThan, sum, lit(10)))
	p := b.Program()

	require.NoError(t, p.Validate())
	assert.Equal(t,
		"expr#0..3=[{inputs}], expr#4=[1], expr#5=[+($t0, $t4)], expr#6=[2], expr#7=[*($t5, $t6)], expr#8=[10], expr#9=[>($t5, $t8)], a=[$t5], b=[$t7], name=[$t2], $condition=[$t9]",
		p.String())
	assert.Equal(t, []string{"a", "b", "name"}, p.OutputType.FieldNames())
	assert.Equal(t, "*(+($0, 1), 2)", p.ExpandedProjects()[1].Digest())
	assert.Equal(t, ">(+($0, 1), 10)", p.ExpandedCondition().Digest())
	assert.False(t, p.IsTrivial())
}

func TestProgramIdentityAndNormalize(t *testing.T) {
	id := Identity(rowType)
	require.NoError(t, id.Validate())
	assert.True(t, id.IsTrivial())
	assert.True(t, id.OutputType.Equal(rowType))

	p := NewProgramFromProjectAndFilter(rowType, []Node{ref(0)}, MustCall(And, BoolLiteral(true), MustCall(IsNotNull, ref(1))), []string{"id"})
	n := p.Normalize(true)
	require.NoError(t, n.Validate())
	assert.Equal(t, "IS NOT NULL($1)", n.ExpandedCondition().Digest())
}

func TestMergePrograms(t *testing.T) {
	bottom := NewProgramFromProjectAndFilter(rowType,
		[]Node{MustCall(Plus, ref(0), lit(1)), ref(2)},
		MustCall(IsNotNull, ref(1)),
		[]string{"x", "name"})
	topInput := bottom.OutputType
	top := NewProgramFromProjectAndFilter(topInput,
		[]Node{MustCall(Multiply, InputRefOf(topInput, 0), lit(2))},
		MustCall(GreaterThan, InputRefOf(topInput, 0), lit(5)),
		[]string{"y"})

	merged := Merge(top, bottom)
	require.NoError(t, merged.Validate())
	assert.Equal(t, "*(+($0, 1), 2)", merged.ExpandedProjects()[0].Digest())
	assert.Equal(t, "AND(IS NOT NULL($1), >(+($0, 1), 5))", merged.ExpandedCondition().Digest())
	assert.True(t, merged.OutputType.Equal(top.OutputType))
}

func TestProgramValidateRejectsForwardReference(t *testing.T) {
	p := Identity(rowType)
	p.Exprs = append(p.Exprs, MustCall(Plus, NewLocalRef(5, bigint), NewLocalRef(0, bigint)))
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "references later expr")
}

func TestAggReturnTypes(t *testing.T) {
	typ, err := Count.InferReturnType(nil, true, false)
	require.NoError(t, err)
	assert.Equal(t, "BIGINT NOT NULL", typ.Digest())

	typ, err = Sum.InferReturnType([]*reltype.DataType{bigint}, false, false)
	require.NoError(t, err)
	assert.Equal(t, "BIGINT NOT NULL", typ.Digest())

	typ, err = Sum.InferReturnType([]*reltype.DataType{bigint}, true, false)
	require.NoError(t, err)
	assert.Equal(t, "BIGINT", typ.Digest())

	_, err = Sum.InferReturnType([]*reltype.DataType{varchar}, false, false)
	require.Error(t, err)

	f, ok := LookupAggFunction("listagg")
	require.True(t, ok)
	assert.True(t, f.OrderSensitive)
}
