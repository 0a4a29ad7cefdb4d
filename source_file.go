// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/actforgood/xerr"
)

// BackendFile is the "type" of the file based backend.
const BackendFile = "file"

// FileSource serves configuration from files under a root directory.
// An environment "project/profile" is resolved to the files
// <root>/<project>/<profile>/<file>, merged in the listed order (a later file
// overwrites an earlier one's keys).
// A partition whose files do not exist is empty.
type FileSource struct {
	root        string
	files       []string
	cache       partitionCache
	loaders     map[string]Loader // per partition, keeps the file caches alive across reloads.
	mu          sync.Mutex        // serializes partitions loading.
	initialized atomic.Bool
}

// NewFileSource instantiates a new FileSource.
func NewFileSource(root string, files []string) *FileSource {
	return &FileSource{
		root:    root,
		files:   append([]string(nil), files...),
		loaders: make(map[string]Loader),
	}
}

// Initialize checks the root directory is accessible.
func (src *FileSource) Initialize(_ context.Context) error {
	if err := src.checkRoot(); err != nil {
		return err
	}
	src.initialized.Store(true)

	return nil
}

// Fetch returns environment's configuration, loading its files if they were
// not loaded before.
func (src *FileSource) Fetch(env Environment) (map[string]string, error) {
	if !src.initialized.Load() {
		return nil, ErrNotInitialized
	}
	if err := env.validatePath(); err != nil {
		return nil, err
	}
	partition := env.String()
	if snapshot, found := src.cache.get(partition); found {
		return cloneSnapshot(snapshot), nil
	}

	src.mu.Lock()
	defer src.mu.Unlock()
	if snapshot, found := src.cache.get(partition); found { // loaded meanwhile.
		return cloneSnapshot(snapshot), nil
	}
	snapshot, err := src.load(partition)
	if err != nil {
		return nil, err
	}
	src.cache.put(partition, snapshot)

	return cloneSnapshot(snapshot), nil
}

// Reload re-reads the files of every partition served so far.
// On any error, the previous data is kept. A root which is no longer
// accessible is an error, not a set of empty partitions.
func (src *FileSource) Reload(ctx context.Context) error {
	if !src.initialized.Load() {
		return ErrNotInitialized
	}
	if err := src.checkRoot(); err != nil {
		return err
	}

	src.mu.Lock()
	defer src.mu.Unlock()

	var (
		partitions = src.cache.keys()
		fresh      = make(map[string]map[string]string, len(partitions))
		mErr       *xerr.MultiError
	)
	for _, partition := range partitions {
		if err := ctx.Err(); err != nil {
			return err
		}
		snapshot, err := src.load(partition)
		if err != nil {
			mErr = mErr.Add(err)

			continue
		}
		fresh[partition] = snapshot
	}
	if err := mErr.ErrOrNil(); err != nil {
		return err
	}
	src.cache.replace(fresh)

	return nil
}

// checkRoot returns a [BackendUnavailableError] if root is not an accessible directory.
func (src *FileSource) checkRoot() error {
	fInfo, err := os.Stat(src.root)
	if err != nil {
		return NewBackendUnavailableError(BackendFile, err)
	}
	if !fInfo.IsDir() {
		return NewBackendUnavailableError(BackendFile, errors.New(src.root+" is not a directory"))
	}

	return nil
}

// load reads a partition's files. Caller must hold mu.
func (src *FileSource) load(partition string) (map[string]string, error) {
	loader, found := src.loaders[partition]
	if !found {
		dir := filepath.Join(src.root, filepath.FromSlash(partition))
		filePaths := make([]string, len(src.files))
		for idx, file := range src.files {
			filePaths[idx] = filepath.Join(dir, filepath.FromSlash(file))
		}
		loader = snapshotLoader(filePaths, true)
		src.loaders[partition] = loader
	}

	return loadSnapshot(loader)
}
