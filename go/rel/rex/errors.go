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
	"strconv"

	"relopt.io/relopt/go/rel/relerrors"
)

// invalidRel returns the error planners treat as a declined rewrite.
func invalidRel(format string, args ...any) error {
	return relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.InvalidRelExpression, format, args...)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
