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
	"strings"
	"unicode/utf8"

	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

// function is the runtime implementation of an operator. It receives the
// evaluated operands and must not retain the slice.
type function func(args []sqltypes.Value) (sqltypes.Value, error)

var functions = map[rex.Kind]function{
	rex.KindEquals:             comparison(func(c int) bool { return c == 0 }),
	rex.KindNotEquals:          comparison(func(c int) bool { return c != 0 }),
	rex.KindLessThan:           comparison(func(c int) bool { return c < 0 }),
	rex.KindLessThanOrEqual:    comparison(func(c int) bool { return c <= 0 }),
	rex.KindGreaterThan:        comparison(func(c int) bool { return c > 0 }),
	rex.KindGreaterThanOrEqual: comparison(func(c int) bool { return c >= 0 }),

	rex.KindIsDistinctFrom:    distinctFrom(true),
	rex.KindIsNotDistinctFrom: distinctFrom(false),

	rex.KindIsNull:     predicate(func(v sqltypes.Value) bool { return v.IsNull() }),
	rex.KindIsNotNull:  predicate(func(v sqltypes.Value) bool { return !v.IsNull() }),
	rex.KindIsTrue:     predicate(isTrue),
	rex.KindIsFalse:    predicate(isFalse),
	rex.KindIsNotTrue:  predicate(func(v sqltypes.Value) bool { return !isTrue(v) }),
	rex.KindIsNotFalse: predicate(func(v sqltypes.Value) bool { return !isFalse(v) }),

	rex.KindPlus:   binary(sqltypes.Add),
	rex.KindMinus:  binary(sqltypes.Subtract),
	rex.KindTimes:  binary(sqltypes.Multiply),
	rex.KindDivide: binary(sqltypes.Divide),
	rex.KindMod:    binary(sqltypes.Mod),

	rex.KindMinusPrefix: strict(func(args []sqltypes.Value) (sqltypes.Value, error) {
		return sqltypes.Negate(args[0])
	}),
	rex.KindAbs: strict(func(args []sqltypes.Value) (sqltypes.Value, error) {
		c, err := sqltypes.Compare(args[0], sqltypes.NewInt64(0))
		if err != nil || c >= 0 {
			return args[0], err
		}
		return sqltypes.Negate(args[0])
	}),
	rex.KindUpper: strict(func(args []sqltypes.Value) (sqltypes.Value, error) {
		return sqltypes.NewVarChar(strings.ToUpper(args[0].ToString())), nil
	}),
	rex.KindLower: strict(func(args []sqltypes.Value) (sqltypes.Value, error) {
		return sqltypes.NewVarChar(strings.ToLower(args[0].ToString())), nil
	}),
	rex.KindConcat: strict(func(args []sqltypes.Value) (sqltypes.Value, error) {
		return sqltypes.NewVarChar(args[0].ToString() + args[1].ToString()), nil
	}),
	rex.KindLike: strict(func(args []sqltypes.Value) (sqltypes.Value, error) {
		return sqltypes.NewBoolean(like(args[0].ToString(), args[1].ToString())), nil
	}),
}

// strict wraps fn to return NULL when an operand is NULL. The compiler
// usually checks before the call; operands typed NOT NULL may still bind
// NULL parameters.
func strict(fn function) function {
	return func(args []sqltypes.Value) (sqltypes.Value, error) {
		for _, a := range args {
			if a.IsNull() {
				return sqltypes.NULL, nil
			}
		}
		return fn(args)
	}
}

func comparison(cond func(int) bool) function {
	return strict(func(args []sqltypes.Value) (sqltypes.Value, error) {
		c, err := sqltypes.Compare(args[0], args[1])
		if err != nil {
			return sqltypes.NULL, err
		}
		return sqltypes.NewBoolean(cond(c)), nil
	})
}

func distinctFrom(want bool) function {
	return func(args []sqltypes.Value) (sqltypes.Value, error) {
		return sqltypes.NewBoolean((sqltypes.NullsafeCompare(args[0], args[1]) != 0) == want), nil
	}
}

func predicate(pred func(sqltypes.Value) bool) function {
	return func(args []sqltypes.Value) (sqltypes.Value, error) {
		return sqltypes.NewBoolean(pred(args[0])), nil
	}
}

func binary(op func(v1, v2 sqltypes.Value) (sqltypes.Value, error)) function {
	return func(args []sqltypes.Value) (sqltypes.Value, error) {
		return op(args[0], args[1])
	}
}

func castTo(typ sqltypes.Type) function {
	return func(args []sqltypes.Value) (sqltypes.Value, error) {
		return sqltypes.Cast(args[0], typ)
	}
}

// like matches s against a SQL LIKE pattern, where % matches any sequence
// and _ any single character.
func like(s, pattern string) bool {
	// Backtrack to the last % on mismatch; positions are byte offsets.
	star, mark := -1, 0
	si, pi := 0, 0
	for si < len(s) {
		if pi < len(pattern) {
			switch pattern[pi] {
			case '%':
				star, mark = pi, si
				pi++
				continue
			case '_':
				_, w := utf8.DecodeRuneInString(s[si:])
				si += w
				pi++
				continue
			default:
				if s[si] == pattern[pi] {
					si++
					pi++
					continue
				}
			}
		}
		if star < 0 {
			return false
		}
		_, w := utf8.DecodeRuneInString(s[mark:])
		mark += w
		si, pi = mark, star+1
	}
	for pi < len(pattern) && pattern[pi] == '%' {
		pi++
	}
	return pi == len(pattern)
}
