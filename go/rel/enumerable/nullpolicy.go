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
	"relopt.io/relopt/go/rel/rex"
)

// NullPolicy describes how an operator treats NULL operands, which decides
// whether the compiler checks for nulls before calling it.
type NullPolicy int

const (
	// Strict operators return NULL if and only if an operand is NULL.
	Strict NullPolicy = iota
	// SemiStrict operators return NULL if an operand is NULL, and may
	// return NULL otherwise.
	SemiStrict
	// Any operators return NULL if any operand is NULL.
	Any
	// And is the three-valued conjunction.
	And
	// Or is the three-valued disjunction.
	Or
	// Not returns NULL for NULL and negates otherwise.
	Not
	// None operators look at NULL operands themselves.
	None
)

var nullPolicyNames = [...]string{"STRICT", "SEMI_STRICT", "ANY", "AND", "OR", "NOT", "NONE"}

func (p NullPolicy) String() string { return nullPolicyNames[p] }

// HoistsNullCheck reports whether a NULL operand short-circuits the call
// to a NULL result.
func (p NullPolicy) HoistsNullCheck() bool {
	return p == Strict || p == SemiStrict || p == Any
}

var nullPolicies = map[rex.Kind]NullPolicy{
	rex.KindAnd: And,
	rex.KindOr:  Or,
	rex.KindNot: Not,

	rex.KindEquals:             Strict,
	rex.KindNotEquals:          Strict,
	rex.KindLessThan:           Strict,
	rex.KindLessThanOrEqual:    Strict,
	rex.KindGreaterThan:        Strict,
	rex.KindGreaterThanOrEqual: Strict,
	rex.KindPlus:               Strict,
	rex.KindMinus:              Strict,
	rex.KindTimes:              Strict,
	rex.KindMinusPrefix:        Strict,
	rex.KindAbs:                Strict,
	rex.KindUpper:              Strict,
	rex.KindLower:              Strict,
	rex.KindLike:               Strict,

	rex.KindDivide: SemiStrict,
	rex.KindMod:    SemiStrict,
	rex.KindCast:   SemiStrict,

	rex.KindConcat: Any,

	rex.KindIsNull:            None,
	rex.KindIsNotNull:         None,
	rex.KindIsTrue:            None,
	rex.KindIsFalse:           None,
	rex.KindIsNotTrue:         None,
	rex.KindIsNotFalse:        None,
	rex.KindIsDistinctFrom:    None,
	rex.KindIsNotDistinctFrom: None,
	rex.KindCase:              None,
	rex.KindCoalesce:          None,
}

// NullPolicyOf returns the null policy of operators of kind k.
func NullPolicyOf(k rex.Kind) NullPolicy {
	if p, ok := nullPolicies[k]; ok {
		return p
	}
	return None
}
