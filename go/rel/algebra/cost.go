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
	"fmt"
	"math"
)

// Cost is the estimated cost of evaluating a node.
type Cost struct {
	Rows float64
	CPU  float64
	IO   float64
}

var (
	// ZeroCost costs nothing.
	ZeroCost = Cost{}
	// TinyCost is the smallest non-zero cost.
	TinyCost = Cost{Rows: 1, CPU: 1}
	// InfiniteCost is the cost of a node that cannot be implemented.
	InfiniteCost = Cost{Rows: math.Inf(1), CPU: math.Inf(1), IO: math.Inf(1)}
)

// Value collapses the cost into one number.
func (c Cost) Value() float64 {
	return c.Rows + c.CPU + c.IO
}

// IsInfinite reports whether any component is infinite.
func (c Cost) IsInfinite() bool {
	return math.IsInf(c.Rows, 1) || math.IsInf(c.CPU, 1) || math.IsInf(c.IO, 1)
}

// Plus adds two costs.
func (c Cost) Plus(o Cost) Cost {
	return Cost{Rows: c.Rows + o.Rows, CPU: c.CPU + o.CPU, IO: c.IO + o.IO}
}

// Multiply scales a cost.
func (c Cost) Multiply(f float64) Cost {
	return Cost{Rows: c.Rows * f, CPU: c.CPU * f, IO: c.IO * f}
}

// Less orders costs by Value, breaking ties by rows, then cpu, then io.
func (c Cost) Less(o Cost) bool {
	if c.IsInfinite() || o.IsInfinite() {
		return !c.IsInfinite() && o.IsInfinite()
	}
	if cv, ov := c.Value(), o.Value(); cv != ov {
		return cv < ov
	}
	if c.Rows != o.Rows {
		return c.Rows < o.Rows
	}
	if c.CPU != o.CPU {
		return c.CPU < o.CPU
	}
	return c.IO < o.IO
}

func (c Cost) String() string {
	if c.IsInfinite() {
		return "{inf}"
	}
	return fmt.Sprintf("{%g rows, %g cpu, %g io}", c.Rows, c.CPU, c.IO)
}
