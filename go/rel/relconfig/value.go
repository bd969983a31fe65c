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

// Package relconfig provides typed configuration values backed by viper.
//
// A value is declared once with Configure, usually as a package-level
// variable next to the code that reads it:
//
//	maxIterations = relconfig.Configure("planner.max-iterations", relconfig.Options[int]{
//		FlagName: "planner-max-iterations",
//		Default:  1000,
//	})
//
// Values read, in order of precedence, an explicit Set, a bound flag, the
// loaded config file and finally the default.
package relconfig

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	mu       sync.Mutex
	registry = viper.New()
	bindable []binder
)

// Options configures a Value.
type Options[T any] struct {
	// FlagName is the name of the pflag bound to this value, if any.
	FlagName string
	// Default is returned when nothing else sets the value.
	Default T
	// GetFunc overrides the viper getter used for this value's type.
	GetFunc func(v *viper.Viper) func(key string) T
}

// Value is a typed configuration value.
type Value[T any] interface {
	Key() string
	Get() T
	Set(v T)
	Default() T
	FlagName() string
}

type binder interface {
	Key() string
	FlagName() string
}

type value[T any] struct {
	key  string
	opts Options[T]
	get  func(key string) T
}

// Configure registers a value under key and returns it.
func Configure[T any](key string, opts Options[T]) Value[T] {
	mu.Lock()
	defer mu.Unlock()

	registry.SetDefault(key, opts.Default)
	getFunc := opts.GetFunc
	if getFunc == nil {
		getFunc = getFuncFor[T]()
	}
	val := &value[T]{key: key, opts: opts, get: getFunc(registry)}
	bindable = append(bindable, val)
	return val
}

func (val *value[T]) Key() string      { return val.key }
func (val *value[T]) Default() T       { return val.opts.Default }
func (val *value[T]) FlagName() string { return val.opts.FlagName }

func (val *value[T]) Get() T {
	mu.Lock()
	defer mu.Unlock()
	return val.get(val.key)
}

func (val *value[T]) Set(v T) {
	mu.Lock()
	defer mu.Unlock()
	registry.Set(val.key, v)
}

// BindFlags binds every configured value that declares a FlagName to the
// matching flag in fs. Values whose flag is not defined in fs are skipped.
func BindFlags(fs *pflag.FlagSet) error {
	mu.Lock()
	defer mu.Unlock()

	for _, b := range bindable {
		if b.FlagName() == "" {
			continue
		}
		flag := fs.Lookup(b.FlagName())
		if flag == nil {
			continue
		}
		if err := registry.BindPFlag(b.Key(), flag); err != nil {
			return err
		}
	}
	return nil
}

// LoadConfigFile reads the given config file into the registry. Any format
// viper understands (yaml, json, toml) is accepted.
func LoadConfigFile(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if path == "" {
		return nil
	}
	registry.SetConfigFile(path)
	if err := registry.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

// AllSettings returns the merged configuration, for debugging.
func AllSettings() map[string]any {
	mu.Lock()
	defer mu.Unlock()
	return registry.AllSettings()
}

func getFuncFor[T any]() func(v *viper.Viper) func(key string) T {
	var zero T
	var f any
	switch any(zero).(type) {
	case int:
		f = func(v *viper.Viper) func(string) int { return v.GetInt }
	case int64:
		f = func(v *viper.Viper) func(string) int64 { return v.GetInt64 }
	case float64:
		f = func(v *viper.Viper) func(string) float64 { return v.GetFloat64 }
	case bool:
		f = func(v *viper.Viper) func(string) bool { return v.GetBool }
	case string:
		f = func(v *viper.Viper) func(string) string { return v.GetString }
	case time.Duration:
		f = func(v *viper.Viper) func(string) time.Duration { return v.GetDuration }
	case []string:
		f = func(v *viper.Viper) func(string) []string { return v.GetStringSlice }
	default:
		panic(fmt.Sprintf("relconfig: no default getter for %T; set Options.GetFunc", zero))
	}
	return f.(func(v *viper.Viper) func(string) T)
}

// Override sets val to v and returns a function restoring the previous
// value. Used by tests.
func Override[T any](val Value[T], v T) (restore func()) {
	prev := val.Get()
	val.Set(v)
	return func() { val.Set(prev) }
}
