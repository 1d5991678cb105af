// Copyright 2026 The Hegel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hegel-dev/hegel/pkg/herr"
)

// EnvStateDir is the environment variable that overrides the resolved
// state directory.
const EnvStateDir = "HEGEL_STATE_DIR"

// MarkerDirName is the ancestor-search marker: a directory with this name
// anywhere above the current working directory is treated as the project's
// state directory root.
const MarkerDirName = ".hegel"

// ResolveDir resolves the state directory root: explicit flag wins, then
// the environment variable, then an ancestor walk looking for a ".hegel"
// directory, and finally an error.
func ResolveDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvStateDir); env != "" {
		return filepath.Abs(env)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", herr.New(herr.KindStorageIO, "getwd", err)
	}
	dir := wd
	for {
		candidate := filepath.Join(dir, MarkerDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", herr.New(herr.KindStorageIO, fmt.Sprintf("no %s directory found above %s and no override set", MarkerDirName, wd), nil)
}

// Store is a handle on a resolved state directory.
type Store struct {
	Dir string
}

// Open returns a Store rooted at dir as given, creating the directory if it
// does not exist. It does no ResolveDir lookup of its own.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, herr.New(herr.KindStorageIO, "mkdir state dir", err)
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) path(name string) string { return filepath.Join(s.Dir, name) }

// ArchiveDir returns the archive/ subdirectory path, creating it on demand.
func (s *Store) ArchiveDir() (string, error) {
	dir := s.path("archive")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", herr.New(herr.KindStorageIO, "mkdir archive dir", err)
	}
	return dir, nil
}

// StashDir returns the stashes/ subdirectory path, creating it on demand.
func (s *Store) StashDir() (string, error) {
	dir := s.path("stashes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", herr.New(herr.KindStorageIO, "mkdir stash dir", err)
	}
	return dir, nil
}

// ResolveFilePath implements the spec's resolve_file_path: if p does not
// exist, try p + ".md"; otherwise error.
func ResolveFilePath(p string) (string, error) {
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	alt := p + ".md"
	if _, err := os.Stat(alt); err == nil {
		return alt, nil
	}
	return "", herr.New(herr.KindStorageIO, fmt.Sprintf("neither %s nor %s exists", p, alt), nil)
}
