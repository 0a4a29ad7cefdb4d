// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// BackendGit is the "type" of the git repository based backend.
const BackendGit = "git"

const gitRemoteName = "origin"

// GitSource serves configuration from files of a remote git repository.
// The environment's profile names the branch to read, [DefaultProfile] meaning
// the remote's default branch. The repository is cloned into a local working
// copy, owned exclusively by the source.
type GitSource struct {
	uri           string
	project       string
	dir           string
	files         []string
	removeDir     bool // working copy was created by us, in a temp dir.
	repo          *git.Repository
	defaultBranch string
	cache         partitionCache // branch => snapshot
	mu            sync.Mutex     // guards the working copy.
	initialized   atomic.Bool
}

// NewGitSource instantiates a new GitSource.
// If dir is empty, the repository is cloned into a temporary directory which
// is removed on Close.
func NewGitSource(uri, dir string, files []string, opts ...GitSourceOption) *GitSource {
	src := &GitSource{
		uri:   uri,
		dir:   dir,
		files: append([]string(nil), files...),
	}

	// apply options, if any.
	for _, opt := range opts {
		opt(src)
	}

	return src
}

// Initialize clones the repository (or opens an existing working copy of it,
// fetching the latest changes).
func (src *GitSource) Initialize(ctx context.Context) error {
	src.mu.Lock()
	defer src.mu.Unlock()

	if src.initialized.Load() {
		return nil
	}

	if src.dir == "" {
		dir, err := os.MkdirTemp("", "xcfg-git-*")
		if err != nil {
			return NewBackendUnavailableError(BackendGit, err)
		}
		src.dir = dir
		src.removeDir = true
	}

	repo, err := git.PlainCloneContext(ctx, src.dir, false, &git.CloneOptions{
		URL:        src.uri,
		RemoteName: gitRemoteName,
	})
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		if repo, err = git.PlainOpen(src.dir); err == nil {
			err = src.fetch(ctx, repo)
		}
	}
	if err != nil {
		return NewBackendUnavailableError(BackendGit, err)
	}

	head, err := repo.Head()
	if err != nil {
		return NewBackendUnavailableError(BackendGit, err)
	}
	src.repo = repo
	src.defaultBranch = head.Name().Short()
	src.initialized.Store(true)

	return nil
}

// Fetch returns the configuration of the branch named by env's profile.
// Any branch name is accepted, slashes included.
// A branch which does not exist yields an empty configuration.
// If the source is bound to a project, an environment of another project is not resolvable.
func (src *GitSource) Fetch(env Environment) (map[string]string, error) {
	if !src.initialized.Load() {
		return nil, ErrNotInitialized
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	if src.project != "" && env.Project() != src.project {
		return nil, fmt.Errorf("%w: project %q is not served by this source", ErrUnknownEnvironment, env.Project())
	}
	branch := src.branch(env)
	if snapshot, found := src.cache.get(branch); found {
		return cloneSnapshot(snapshot), nil
	}

	src.mu.Lock()
	defer src.mu.Unlock()
	if snapshot, found := src.cache.get(branch); found {
		return cloneSnapshot(snapshot), nil
	}
	snapshot, err := src.readBranch(branch)
	if err != nil {
		return nil, err
	}
	src.cache.put(branch, snapshot)

	return cloneSnapshot(snapshot), nil
}

// Reload fetches the remote and re-reads every branch served so far.
// On any error, the previous data is kept.
func (src *GitSource) Reload(ctx context.Context) error {
	if !src.initialized.Load() {
		return ErrNotInitialized
	}

	src.mu.Lock()
	defer src.mu.Unlock()

	if err := src.fetch(ctx, src.repo); err != nil {
		return NewBackendUnavailableError(BackendGit, err)
	}

	branches := src.cache.keys()
	fresh := make(map[string]map[string]string, len(branches))
	for _, branch := range branches {
		snapshot, err := src.readBranch(branch)
		if err != nil {
			return err
		}
		fresh[branch] = snapshot
	}
	src.cache.replace(fresh)

	return nil
}

// Close removes the working copy if it was created in a temporary directory.
func (src *GitSource) Close() error {
	src.mu.Lock()
	defer src.mu.Unlock()

	if src.removeDir && src.dir != "" {
		err := os.RemoveAll(src.dir)
		src.dir = ""
		src.initialized.Store(false)

		return err
	}

	return nil
}

// WorkingDir returns the local working copy directory.
func (src *GitSource) WorkingDir() string {
	src.mu.Lock()
	defer src.mu.Unlock()

	return src.dir
}

func (src *GitSource) branch(env Environment) string {
	if env.Profile() == DefaultProfile {
		return src.defaultBranch
	}

	return env.Profile()
}

// fetch updates remote tracking branches.
func (src *GitSource) fetch(ctx context.Context, repo *git.Repository) error {
	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: gitRemoteName,
		RefSpecs:   []gitconfig.RefSpec{"+refs/heads/*:refs/remotes/" + gitRemoteName + "/*"},
		Force:      true,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}

	return err
}

// readBranch checks out the branch in the working copy and parses the files.
// Caller must hold mu.
func (src *GitSource) readBranch(branch string) (map[string]string, error) {
	ref, err := src.repo.Reference(plumbing.NewRemoteReferenceName(gitRemoteName, branch), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	worktree, err := src.repo.Worktree()
	if err != nil {
		return nil, err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: ref.Hash(), Force: true}); err != nil {
		return nil, err
	}

	filePaths := make([]string, len(src.files))
	for idx, file := range src.files {
		filePaths[idx] = filepath.Join(src.dir, filepath.FromSlash(file))
	}

	return loadSnapshot(snapshotLoader(filePaths, false))
}

// gitProjectName returns the repository name of a clone URI,
// "https://example.com/org/shop-config.git" and "git@example.com:org/shop-config.git"
// both being named "shop-config".
func gitProjectName(uri string) string {
	name := strings.TrimRight(strings.TrimSpace(uri), "/")
	if idx := strings.LastIndex(name, ":"); idx >= 0 && !strings.Contains(name[idx:], "/") {
		name = name[idx+1:] // "host:repo.git"
	}
	name = strings.TrimSuffix(path.Base(filepath.ToSlash(name)), ".git")
	if name == "." || name == "/" {
		return ""
	}

	return name
}

// GitSourceOption defines optional function for configuring a GitSource.
type GitSourceOption func(*GitSource)

// GitSourceWithProject binds the source to a project:
// Fetch of another project's environment returns [ErrUnknownEnvironment].
// By default, the repository serves any project.
func GitSourceWithProject(project string) GitSourceOption {
	return func(src *GitSource) {
		src.project = project
	}
}
