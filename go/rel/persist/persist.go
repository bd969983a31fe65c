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

// Package persist stores one opaque blob, the serialized catalog, in a
// fixed file under a home directory.
package persist

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"relopt.io/relopt/go/rel/log"
	"relopt.io/relopt/go/rel/relconfig"
	"relopt.io/relopt/go/rel/relerrors"
)

const (
	// Dir is the directory created under the home directory.
	Dir = ".relopt"
	// FileName is the name of the blob file inside Dir.
	FileName = "catalog.zst"
)

var (
	home = relconfig.Configure("catalog.home", relconfig.Options[string]{
		FlagName: "catalog-home",
	})

	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
)

// FilePersister reads and writes <home>/.relopt/catalog.zst. The blob is
// zstd-compressed on disk. Calls are synchronous and serialized.
type FilePersister struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

// New returns a persister rooted at home on fs.
func New(fs afero.Fs, home string) *FilePersister {
	return &FilePersister{fs: fs, path: filepath.Join(home, Dir, FileName)}
}

// NewOS returns a persister on the real file system. An empty home uses
// the user's home directory.
func NewOS(home string) (*FilePersister, error) {
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, relerrors.Wrap(err, "locating home directory")
		}
		home = h
	}
	return New(afero.NewOsFs(), home), nil
}

// RegisterFlags defines the persistence flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(home.FlagName(), home.Default(), "directory holding .relopt/catalog.zst (defaults to the user's home directory)")
}

// Configured returns a persister on the real file system rooted at the
// configured catalog home.
func Configured() (*FilePersister, error) {
	return NewOS(home.Get())
}

// Path returns the blob file path.
func (p *FilePersister) Path() string { return p.path }

// Exists reports whether a blob has been written.
func (p *FilePersister) Exists() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	ok, err := afero.Exists(p.fs, p.path)
	return err == nil && ok
}

// Read returns the stored blob. It fails with NOT_FOUND when nothing has
// been written yet.
func (p *FilePersister) Read() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := afero.ReadFile(p.fs, p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, relerrors.Errorf(relerrors.NotFound, "no catalog stored at %s", p.path)
		}
		return nil, relerrors.Wrapf(err, "reading %s", p.path)
	}
	blob, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, relerrors.Wrapf(relerrors.Errorf(relerrors.DataLoss, "%s", err), "decompressing %s", p.path)
	}
	return blob, nil
}

// Write replaces the stored blob. The file is written next to its final
// name and renamed into place.
func (p *FilePersister) Write(blob []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.fs.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return relerrors.Wrapf(err, "creating %s", filepath.Dir(p.path))
	}
	tmp := p.path + ".tmp"
	if err := afero.WriteFile(p.fs, tmp, encoder.EncodeAll(blob, nil), 0o644); err != nil {
		return relerrors.Wrapf(err, "writing %s", tmp)
	}
	if err := p.fs.Rename(tmp, p.path); err != nil {
		_ = p.fs.Remove(tmp)
		return relerrors.Wrapf(err, "renaming %s", tmp)
	}
	log.DebugS("catalog persisted", "path", p.path, "bytes", len(blob))
	return nil
}

// Remove deletes the stored blob, if any.
func (p *FilePersister) Remove() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fs.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return relerrors.Wrapf(err, "removing %s", p.path)
	}
	return nil
}
