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

	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

type jump struct {
	from, to int
}

func (j *jump) offset() int { return j.to - j.from }

func (j *jump) String() string { return fmt.Sprintf("@%d", j.to) }

type instruction struct {
	format string
	args   []any
}

type assembler struct {
	ins   []frame
	log   []instruction
	stack struct {
		cur int
		max int
	}
}

func (asm *assembler) emit(f frame, format string, args ...any) {
	asm.ins = append(asm.ins, f)
	asm.log = append(asm.log, instruction{format: format, args: args})
}

func (asm *assembler) adjustStack(offset int) {
	asm.stack.cur += offset
	if asm.stack.cur > asm.stack.max {
		asm.stack.max = asm.stack.cur
	}
}

// jumpFrom must be called right before emitting the jumping instruction.
func (asm *assembler) jumpFrom() *jump {
	return &jump{from: len(asm.ins)}
}

func (asm *assembler) jumpDestination(jumps ...*jump) {
	for _, j := range jumps {
		if j != nil {
			j.to = len(asm.ins)
		}
	}
}

func (asm *assembler) listing() []string {
	out := make([]string, len(asm.log))
	for i, in := range asm.log {
		// Jump targets are patched after emission, so format late.
		out[i] = fmt.Sprintf("%3d: ", i) + fmt.Sprintf(in.format, in.args...)
	}
	return out
}

func push(env *Env, v sqltypes.Value) int {
	env.vm.stack[env.vm.sp] = v
	env.vm.sp++
	return 1
}

func (asm *assembler) PushColumn(offset int) {
	asm.adjustStack(1)
	asm.emit(func(env *Env) int {
		return push(env, env.vm.row[offset])
	}, "PUSH $%d", offset)
}

func (asm *assembler) PushLiteral(v sqltypes.Value) {
	asm.adjustStack(1)
	asm.emit(func(env *Env) int {
		return push(env, v)
	}, "PUSH %s", v)
}

func (asm *assembler) PushParam(index int) {
	asm.adjustStack(1)
	asm.emit(func(env *Env) int {
		var v sqltypes.Value
		v, env.vm.err = env.dc.Parameter(index)
		return push(env, v)
	}, "PUSH ?%d", index)
}

func (asm *assembler) PushCorrelField(id rex.CorrelationID, field int) {
	asm.adjustStack(1)
	asm.emit(func(env *Env) int {
		row, ok := env.correls[id]
		if !ok {
			env.vm.err = relerrors.Errorf(relerrors.Internal, "correlation variable %s is not bound", id)
			return 1
		}
		return push(env, row[field])
	}, "PUSH %s.%d", id, field)
}

// NullCheck replaces the top n values with NULL and jumps to j when any of
// them is NULL.
func (asm *assembler) NullCheck(n int, j *jump) {
	asm.emit(func(env *Env) int {
		vm := &env.vm
		for _, v := range vm.stack[vm.sp-n : vm.sp] {
			if v.IsNull() {
				vm.stack[vm.sp-n] = sqltypes.NULL
				vm.sp -= n - 1
				return j.offset()
			}
		}
		return 1
	}, "NULLCHECK%d %s", n, j)
}

func (asm *assembler) Fn(name string, fn function, n int) {
	asm.adjustStack(1 - n)
	asm.emit(func(env *Env) int {
		vm := &env.vm
		v, err := fn(vm.stack[vm.sp-n : vm.sp])
		if err != nil {
			vm.err = err
			return 1
		}
		vm.stack[vm.sp-n] = v
		vm.sp -= n - 1
		return 1
	}, "CALL %s/%d", name, n)
}

func (asm *assembler) Not() {
	asm.emit(func(env *Env) int {
		vm := &env.vm
		v := vm.stack[vm.sp-1]
		if !v.IsNull() {
			vm.stack[vm.sp-1] = sqltypes.NewBoolean(!isTrue(v))
		}
		return 1
	}, "NOT")
}

// Logical folds the top value into the accumulator below it. A FALSE
// operand of AND, or a TRUE operand of OR, decides the result and jumps to
// j.
func (asm *assembler) Logical(and bool, j *jump) {
	asm.adjustStack(-1)
	name := "OR"
	if and {
		name = "AND"
	}
	asm.emit(func(env *Env) int {
		vm := &env.vm
		v := vm.stack[vm.sp-1]
		vm.sp--
		switch {
		case v.IsNull():
			vm.stack[vm.sp-1] = sqltypes.NULL
		case isTrue(v) != and:
			vm.stack[vm.sp-1] = sqltypes.NewBoolean(!and)
			return j.offset()
		}
		return 1
	}, "%s %s", name, j)
}

func (asm *assembler) JumpIfNotTrue(j *jump) {
	asm.adjustStack(-1)
	asm.emit(func(env *Env) int {
		vm := &env.vm
		vm.sp--
		if isTrue(vm.stack[vm.sp]) {
			return 1
		}
		return j.offset()
	}, "JUMP_IF_NOT_TRUE %s", j)
}

// JumpIfNotNull keeps the top value and jumps to j when it is not NULL,
// and pops it otherwise.
func (asm *assembler) JumpIfNotNull(j *jump) {
	asm.adjustStack(-1)
	asm.emit(func(env *Env) int {
		vm := &env.vm
		if !vm.stack[vm.sp-1].IsNull() {
			return j.offset()
		}
		vm.sp--
		return 1
	}, "JUMP_IF_NOT_NULL %s", j)
}

func (asm *assembler) Jump(j *jump) {
	asm.emit(func(*Env) int {
		return j.offset()
	}, "JUMP %s", j)
}

func (asm *assembler) Convert(typ sqltypes.Type) {
	asm.emit(func(env *Env) int {
		vm := &env.vm
		vm.stack[vm.sp-1], vm.err = sqltypes.Cast(vm.stack[vm.sp-1], typ)
		return 1
	}, "CONVERT %s", typ)
}

type compiler struct {
	asm       assembler
	inputType *reltype.DataType
}

func (c *compiler) unsupported(n rex.Node) error {
	return relerrors.NewErrorf(relerrors.Unimplemented, relerrors.CodeGenFailure, "unsupported compilation for expression '%s'", n)
}

// CompileExpr compiles e, whose input references are fields of inputType.
// inputType may be nil when e has no input references.
func CompileExpr(e rex.Node, inputType *reltype.DataType) (*Expr, error) {
	c := &compiler{inputType: inputType}
	if err := c.compile(e); err != nil {
		return nil, err
	}
	if c.asm.stack.cur != 1 {
		return nil, relerrors.NewErrorf(relerrors.Internal, relerrors.CodeGenFailure, "bad compilation: stack pointer at %d after compilation", c.asm.stack.cur)
	}
	return &Expr{
		code:     c.asm.ins,
		stack:    c.asm.stack.max,
		listing:  c.asm.listing(),
		typ:      e.Type(),
		original: e,
	}, nil
}

func (c *compiler) compile(n rex.Node) error {
	switch n := n.(type) {
	case *rex.InputRef:
		if c.inputType == nil || n.Index >= c.inputType.FieldCount() {
			return relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.BadFieldReference, "input reference %s out of range", n)
		}
		c.asm.PushColumn(n.Index)
	case *rex.Literal:
		c.asm.PushLiteral(n.Value)
	case *rex.DynamicParam:
		c.asm.PushParam(n.Index)
	case *rex.FieldAccess:
		v, ok := n.Expr.(*rex.CorrelVariable)
		if !ok {
			return c.unsupported(n)
		}
		c.asm.PushCorrelField(v.ID, n.Field.Index)
	case *rex.Call:
		return c.compileCall(n)
	default:
		return c.unsupported(n)
	}
	return nil
}

func (c *compiler) compileCall(call *rex.Call) error {
	switch call.Kind() {
	case rex.KindAnd:
		return c.compileLogical(call, true)
	case rex.KindOr:
		return c.compileLogical(call, false)
	case rex.KindNot:
		if err := c.compile(call.Operands[0]); err != nil {
			return err
		}
		c.asm.Not()
		return nil
	case rex.KindCase:
		return c.compileCase(call)
	case rex.KindCoalesce:
		return c.compileCoalesce(call)
	}

	var fn function
	if call.Kind() == rex.KindCast {
		fn = castTo(call.Type().Name)
	} else {
		var ok bool
		if fn, ok = functions[call.Kind()]; !ok {
			return c.unsupported(call)
		}
	}
	for _, op := range call.Operands {
		if err := c.compile(op); err != nil {
			return err
		}
	}
	var skip *jump
	if NullPolicyOf(call.Kind()).HoistsNullCheck() && anyNullable(call.Operands) {
		skip = c.asm.jumpFrom()
		c.asm.NullCheck(len(call.Operands), skip)
	}
	c.asm.Fn(call.Op.Name, fn, len(call.Operands))
	c.asm.jumpDestination(skip)
	return nil
}

func anyNullable(nodes []rex.Node) bool {
	for _, n := range nodes {
		if n.Type().Nullable {
			return true
		}
	}
	return false
}

func (c *compiler) compileLogical(call *rex.Call, and bool) error {
	c.asm.PushLiteral(sqltypes.NewBoolean(and))
	var done []*jump
	for _, op := range call.Operands {
		if err := c.compile(op); err != nil {
			return err
		}
		j := c.asm.jumpFrom()
		c.asm.Logical(and, j)
		done = append(done, j)
	}
	c.asm.jumpDestination(done...)
	return nil
}

func (c *compiler) compileCase(call *rex.Call) error {
	ops := call.Operands
	var done []*jump
	i := 0
	for ; i+1 < len(ops); i += 2 {
		if err := c.compile(ops[i]); err != nil {
			return err
		}
		next := c.asm.jumpFrom()
		c.asm.JumpIfNotTrue(next)
		if err := c.compile(ops[i+1]); err != nil {
			return err
		}
		end := c.asm.jumpFrom()
		c.asm.Jump(end)
		done = append(done, end)
		c.asm.adjustStack(-1)
		c.asm.jumpDestination(next)
	}
	if i < len(ops) {
		if err := c.compile(ops[i]); err != nil {
			return err
		}
	} else {
		c.asm.PushLiteral(sqltypes.NULL)
	}
	c.asm.jumpDestination(done...)
	c.convertResult(call, ops)
	return nil
}

func (c *compiler) compileCoalesce(call *rex.Call) error {
	ops := call.Operands
	var done []*jump
	for _, op := range ops[:len(ops)-1] {
		if err := c.compile(op); err != nil {
			return err
		}
		j := c.asm.jumpFrom()
		c.asm.JumpIfNotNull(j)
		done = append(done, j)
	}
	if err := c.compile(ops[len(ops)-1]); err != nil {
		return err
	}
	c.asm.jumpDestination(done...)
	c.convertResult(call, ops)
	return nil
}

// convertResult casts the result of a branching call to the call type when
// a branch may produce a value of another type.
func (c *compiler) convertResult(call *rex.Call, branches []rex.Node) {
	want := call.Type().Name
	if want == sqltypes.Any || want == sqltypes.Null {
		return
	}
	for _, b := range branches {
		if t := b.Type().Name; t != want && t != sqltypes.Null && t != sqltypes.Boolean {
			c.asm.Convert(want)
			return
		}
	}
}
