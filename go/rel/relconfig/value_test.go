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

package relconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestConfigureDefaults(t *testing.T) {
	iters := Configure("test.defaults.iterations", Options[int]{Default: 42})
	ttl := Configure("test.defaults.ttl", Options[time.Duration]{Default: time.Minute})
	enabled := Configure("test.defaults.enabled", Options[bool]{Default: true})

	require.Equal(t, 42, iters.Get())
	require.Equal(t, time.Minute, ttl.Get())
	require.True(t, enabled.Get())
	require.Equal(t, "test.defaults.iterations", iters.Key())
}

func TestBindFlags(t *testing.T) {
	val := Configure("test.flags.limit", Options[int]{FlagName: "test-flags-limit", Default: 10})

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("test-flags-limit", val.Default(), "limit")
	require.NoError(t, BindFlags(fs))
	require.NoError(t, fs.Parse([]string{"--test-flags-limit=25"}))

	require.Equal(t, 25, val.Get())
}

func TestLoadConfigFile(t *testing.T) {
	val := Configure("testfile.name", Options[string]{Default: "none"})

	path := filepath.Join(t.TempDir(), "relopt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("testfile:\n  name: loaded\n"), 0o600))
	require.NoError(t, LoadConfigFile(path))

	require.Equal(t, "loaded", val.Get())
	require.Error(t, LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestOverride(t *testing.T) {
	val := Configure("test.override.volcano", Options[bool]{Default: true})
	restore := Override(val, false)
	require.False(t, val.Get())
	restore()
	require.True(t, val.Get())
}
