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

// Kind classifies expression nodes and the operators of calls.
type Kind int

// Node kinds. Leaf nodes have their own kind; calls take the kind of their
// operator.
const (
	KindOther Kind = iota
	KindInputRef
	KindLocalRef
	KindLiteral
	KindCorrelVariable
	KindFieldAccess
	KindDynamicParam

	KindAnd
	KindOr
	KindNot

	KindEquals
	KindNotEquals
	KindLessThan
	KindLessThanOrEqual
	KindGreaterThan
	KindGreaterThanOrEqual
	KindIsDistinctFrom
	KindIsNotDistinctFrom

	KindIsNull
	KindIsNotNull
	KindIsTrue
	KindIsFalse
	KindIsNotTrue
	KindIsNotFalse

	KindPlus
	KindMinus
	KindTimes
	KindDivide
	KindMod
	KindMinusPrefix

	KindCase
	KindCast
	KindCoalesce
	KindLike
	KindUpper
	KindLower
	KindConcat
	KindAbs
)

var kindNames = map[Kind]string{
	KindOther:              "OTHER",
	KindInputRef:           "INPUT_REF",
	KindLocalRef:           "LOCAL_REF",
	KindLiteral:            "LITERAL",
	KindCorrelVariable:     "CORREL_VARIABLE",
	KindFieldAccess:        "FIELD_ACCESS",
	KindDynamicParam:       "DYNAMIC_PARAM",
	KindAnd:                "AND",
	KindOr:                 "OR",
	KindNot:                "NOT",
	KindEquals:             "EQUALS",
	KindNotEquals:          "NOT_EQUALS",
	KindLessThan:           "LESS_THAN",
	KindLessThanOrEqual:    "LESS_THAN_OR_EQUAL",
	KindGreaterThan:        "GREATER_THAN",
	KindGreaterThanOrEqual: "GREATER_THAN_OR_EQUAL",
	KindIsDistinctFrom:     "IS_DISTINCT_FROM",
	KindIsNotDistinctFrom:  "IS_NOT_DISTINCT_FROM",
	KindIsNull:             "IS_NULL",
	KindIsNotNull:          "IS_NOT_NULL",
	KindIsTrue:             "IS_TRUE",
	KindIsFalse:            "IS_FALSE",
	KindIsNotTrue:          "IS_NOT_TRUE",
	KindIsNotFalse:         "IS_NOT_FALSE",
	KindPlus:               "PLUS",
	KindMinus:              "MINUS",
	KindTimes:              "TIMES",
	KindDivide:             "DIVIDE",
	KindMod:                "MOD",
	KindMinusPrefix:        "MINUS_PREFIX",
	KindCase:               "CASE",
	KindCast:               "CAST",
	KindCoalesce:           "COALESCE",
	KindLike:               "LIKE",
	KindUpper:              "UPPER",
	KindLower:              "LOWER",
	KindConcat:             "CONCAT",
	KindAbs:                "ABS",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// IsComparison returns true for the binary comparison kinds.
func (k Kind) IsComparison() bool {
	switch k {
	case KindEquals, KindNotEquals, KindLessThan, KindLessThanOrEqual, KindGreaterThan, KindGreaterThanOrEqual,
		KindIsDistinctFrom, KindIsNotDistinctFrom:
		return true
	}
	return false
}

// Reverse returns the kind of the comparison with its operands swapped,
// e.g. LESS_THAN becomes GREATER_THAN.
func (k Kind) Reverse() Kind {
	switch k {
	case KindLessThan:
		return KindGreaterThan
	case KindLessThanOrEqual:
		return KindGreaterThanOrEqual
	case KindGreaterThan:
		return KindLessThan
	case KindGreaterThanOrEqual:
		return KindLessThanOrEqual
	}
	return k
}

// Negate returns the kind whose result is the logical negation of k, for
// the kinds where that negation is exact under three-valued logic.
func (k Kind) Negate() (Kind, bool) {
	switch k {
	case KindEquals:
		return KindNotEquals, true
	case KindNotEquals:
		return KindEquals, true
	case KindLessThan:
		return KindGreaterThanOrEqual, true
	case KindLessThanOrEqual:
		return KindGreaterThan, true
	case KindGreaterThan:
		return KindLessThanOrEqual, true
	case KindGreaterThanOrEqual:
		return KindLessThan, true
	case KindIsNull:
		return KindIsNotNull, true
	case KindIsNotNull:
		return KindIsNull, true
	case KindIsTrue:
		return KindIsNotTrue, true
	case KindIsNotTrue:
		return KindIsTrue, true
	case KindIsFalse:
		return KindIsNotFalse, true
	case KindIsNotFalse:
		return KindIsFalse, true
	case KindIsDistinctFrom:
		return KindIsNotDistinctFrom, true
	case KindIsNotDistinctFrom:
		return KindIsDistinctFrom, true
	}
	return k, false
}
