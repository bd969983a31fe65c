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

// Simplify applies local algebraic simplifications that need no evaluation
// of values:
//
//   - TRUE/FALSE folding in AND, OR and NOT, and duplicate removal
//   - double negation and negation of comparisons
//   - IS [NOT] NULL over non-nullable operands
//   - CASE branches with constant conditions
//   - COALESCE with a non-nullable leading operand
//
// The result has the same type as n.
func Simplify(n Node) Node {
	out := Transform(n, simplifyNode)
	return ensureType(n, out)
}

// SimplifyPredicate simplifies n knowing it is used as a filter condition,
// where NULL and FALSE are interchangeable.
func SimplifyPredicate(n Node) Node {
	out := Transform(n, simplifyNode)
	if IsNullLiteral(out) {
		return BoolLiteral(false)
	}
	return out
}

func ensureType(orig, n Node) Node {
	if n.Type().Equal(orig.Type()) {
		return n
	}
	return MakeCast(orig.Type(), n)
}

func simplifyNode(n Node) Node {
	c, ok := n.(*Call)
	if !ok {
		return n
	}
	switch c.Op.Kind {
	case KindAnd:
		return ensureType(c, simplifyAnd(c.Operands))
	case KindOr:
		return ensureType(c, simplifyOr(c.Operands))
	case KindNot:
		return ensureType(c, MakeNot(c.Operands[0]))
	case KindIsNull:
		if !c.Operands[0].Type().Nullable {
			return BoolLiteral(false)
		}
		if lit, ok := c.Operands[0].(*Literal); ok {
			return BoolLiteral(lit.IsNull())
		}
	case KindIsNotNull:
		if !c.Operands[0].Type().Nullable {
			return BoolLiteral(true)
		}
		if lit, ok := c.Operands[0].(*Literal); ok {
			return BoolLiteral(!lit.IsNull())
		}
	case KindIsTrue, KindIsNotFalse:
		// On a non-nullable operand these are the operand itself.
		if o := c.Operands[0]; !o.Type().Nullable {
			return o
		}
	case KindIsFalse, KindIsNotTrue:
		if o := c.Operands[0]; !o.Type().Nullable {
			return MakeNot(o)
		}
	case KindCase:
		return ensureType(c, simplifyCase(c))
	case KindCoalesce:
		for i, o := range c.Operands {
			if !o.Type().Nullable {
				if i == 0 {
					return ensureType(c, o)
				}
				return c.WithOperands(c.Operands[:i+1])
			}
		}
	}
	return c
}

func simplifyAnd(operands []Node) Node {
	var terms []Node
	hasNull := false
	for _, o := range operands {
		for _, t := range flatten(o, KindAnd, true) {
			if IsLiteralBool(t, false) {
				return BoolLiteral(false)
			}
			if IsNullLiteral(t) {
				hasNull = true
				continue
			}
			terms = append(terms, t)
		}
	}
	// x AND NOT x is FALSE when x is not nullable.
	digests := map[string]bool{}
	for _, t := range terms {
		digests[t.Digest()] = true
	}
	for _, t := range terms {
		if t.Type().Nullable {
			continue
		}
		if neg := MakeNot(t); digests[neg.Digest()] && neg.Digest() != t.Digest() {
			return BoolLiteral(false)
		}
	}
	if hasNull {
		terms = append(terms, NewNullLiteral(boolean))
	}
	return AndOf(terms...)
}

func simplifyOr(operands []Node) Node {
	var terms []Node
	hasNull := false
	for _, o := range operands {
		for _, t := range flatten(o, KindOr, false) {
			if IsLiteralBool(t, true) {
				return BoolLiteral(true)
			}
			if IsNullLiteral(t) {
				hasNull = true
				continue
			}
			terms = append(terms, t)
		}
	}
	if hasNull {
		terms = append(terms, NewNullLiteral(boolean))
	}
	return OrOf(terms...)
}

func simplifyCase(c *Call) Node {
	ops := c.Operands
	var kept []Node
	for i := 0; i < len(ops)-1; i += 2 {
		cond, value := ops[i], ops[i+1]
		if IsAlwaysFalse(cond) {
			continue
		}
		if IsLiteralBool(cond, true) {
			if len(kept) == 0 {
				return value
			}
			kept = append(kept, value)
			return NewCall(Case, c.Type(), kept...)
		}
		kept = append(kept, cond, value)
	}
	elseValue := ops[len(ops)-1]
	if len(kept) == 0 {
		return elseValue
	}
	if len(kept) == len(ops)-1 {
		return c
	}
	kept = append(kept, elseValue)
	return NewCall(Case, c.Type(), kept...)
}
