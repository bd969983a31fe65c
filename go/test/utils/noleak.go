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

package utils

import (
	"context"
	"testing"

	"go.uber.org/goleak"
)

// background lists goroutines that libraries keep running for the life of
// the process.
var background = []goleak.Option{
	goleak.IgnoreTopFunction("github.com/golang/glog.(*fileSink).flushDaemon"),
	goleak.IgnoreTopFunction("github.com/golang/glog.(*loggingT).flushDaemon"),
	goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
}

// VerifyTestMain runs the tests of a package and fails the run when
// goroutines outlive them.
func VerifyTestMain(m *testing.M) {
	goleak.VerifyTestMain(m, background...)
}

// LeakCheckContext returns a context that is canceled when t ends. A test
// that passed is then checked for goroutines it started and left running.
func LeakCheckContext(t testing.TB) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	opts := append([]goleak.Option{goleak.IgnoreCurrent()}, background...)
	t.Cleanup(func() {
		cancel()
		if t.Failed() {
			return
		}
		if err := goleak.Find(opts...); err != nil {
			t.Fatal(err)
		}
	})
	return ctx
}
