// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/actforgood/xlog"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/cast"
)

// BackendConsul is the "type" of the consul backend, which is recognized but not supported.
const BackendConsul = "consul"

// SourceConstructor builds a backend's Source and the Environment to serve
// out of a bootstrap store.
// It returns a [ConstructionError] if required parameters are missing or invalid.
type SourceConstructor func(raw RawConfigStore) (Source, Environment, error)

// SourceRegistry maps backend types to their constructors.
type SourceRegistry struct {
	constructors map[string]SourceConstructor
	mu           sync.RWMutex
}

// NewSourceRegistry instantiates a new SourceRegistry holding the built-in
// file, git, database and etcd backends.
func NewSourceRegistry() *SourceRegistry {
	registry := &SourceRegistry{
		constructors: make(map[string]SourceConstructor, 4),
	}
	registry.Register(BackendFile, NewFileSourceFromStore)
	registry.Register(BackendGit, NewGitSourceFromStore)
	registry.Register(BackendDatabase, NewDatabaseSourceFromStore)
	registry.Register(BackendEtcd, NewEtcdSourceFromStore)

	return registry
}

// Register adds (or replaces) a backend type's constructor.
func (registry *SourceRegistry) Register(backend string, constructor SourceConstructor) {
	registry.mu.Lock()
	registry.constructors[normalizeBackend(backend)] = constructor
	registry.mu.Unlock()
}

// Lookup returns a backend type's constructor.
func (registry *SourceRegistry) Lookup(backend string) (SourceConstructor, bool) {
	registry.mu.RLock()
	constructor, found := registry.constructors[normalizeBackend(backend)]
	registry.mu.RUnlock()

	return constructor, found
}

// Backends returns the sorted list of registered backend types.
func (registry *SourceRegistry) Backends() []string {
	registry.mu.RLock()
	backends := make([]string, 0, len(registry.constructors))
	for backend := range registry.constructors {
		backends = append(backends, backend)
	}
	registry.mu.RUnlock()
	sort.Strings(backends)

	return backends
}

func normalizeBackend(backend string) string {
	return strings.ToLower(strings.TrimSpace(backend))
}

// environmentFromStore returns the environment given by "project" and "profile" keys.
func environmentFromStore(raw RawConfigStore) Environment {
	project, _ := raw.Get(KeyProject)
	profile, _ := raw.Get(KeyProfile)

	return NewEnvironment(project, profile)
}

func filesFromStore(raw RawConfigStore) []string {
	return splitList(raw.GetOrDefault(KeyFiles, DefaultFiles))
}

// NewFileSourceFromStore is the [SourceConstructor] of the file backend.
func NewFileSourceFromStore(raw RawConfigStore) (Source, Environment, error) {
	env := environmentFromStore(raw)
	descriptor := FileDescriptor{
		Root:    raw.GetOrDefault(KeyFileRoot, "."),
		Files:   filesFromStore(raw),
		Project: env.Project(),
	}
	if err := descriptor.Validate(); err != nil {
		return nil, env, NewConstructionError(BackendFile, err)
	}

	return NewFileSource(descriptor.Root, descriptor.Files), env, nil
}

// NewGitSourceFromStore is the [SourceConstructor] of the git backend.
// Without "git.uri", the "project" value is the repository URI, and the
// served environment's project is the repository name.
func NewGitSourceFromStore(raw RawConfigStore) (Source, Environment, error) {
	env := environmentFromStore(raw)
	uri, found := raw.Get(KeyGitURI)
	if !found {
		uri = env.Project()
		env = NewEnvironment(gitProjectName(uri), env.Profile())
	}
	dir, _ := raw.Get(KeyGitDir)
	descriptor := GitDescriptor{
		URI:     uri,
		Dir:     dir,
		Files:   filesFromStore(raw),
		Project: env.Project(),
	}
	if err := descriptor.Validate(); err != nil {
		return nil, env, NewConstructionError(BackendGit, err)
	}

	return NewGitSource(
		descriptor.URI,
		descriptor.Dir,
		descriptor.Files,
		GitSourceWithProject(descriptor.Project),
	), env, nil
}

// NewDatabaseSourceFromStore is the [SourceConstructor] of the database backend.
func NewDatabaseSourceFromStore(raw RawConfigStore) (Source, Environment, error) {
	env := environmentFromStore(raw)
	descriptor := DatabaseDescriptor{
		Table:   raw.GetOrDefault(KeyDBTable, DefaultDBTable),
		Project: env.Project(),
	}
	descriptor.Driver, _ = raw.Get(KeyDBDriver)
	descriptor.URL, _ = raw.Get(KeyDBURL)
	descriptor.User, _ = raw.Get(KeyDBUser)
	descriptor.Password, _ = raw.Get(KeyDBPassword)

	src, err := NewDatabaseSource(descriptor)
	if err != nil {
		return nil, env, err
	}

	return src, env, nil
}

// NewEtcdSourceFromStore is the [SourceConstructor] of the etcd backend.
func NewEtcdSourceFromStore(raw RawConfigStore) (Source, Environment, error) {
	env := environmentFromStore(raw)
	descriptor := EtcdDescriptor{
		Endpoints: splitList(raw.GetOrDefault(KeyEtcdEndpoints, "")),
		Project:   env.Project(),
	}
	descriptor.Prefix, _ = raw.Get(KeyEtcdPrefix)
	descriptor.Format, _ = raw.Get(KeyEtcdFormat)

	src, err := NewEtcdSource(descriptor)
	if err != nil {
		return nil, env, err
	}

	return src, env, nil
}

// ProviderFactory builds a [Provider] out of a bootstrap [RawConfigStore].
// It is the single place where the backend is chosen (by the "type" key); all
// backends share the same notifying source, provider and reload strategy wiring.
type ProviderFactory struct {
	registry *SourceRegistry
	mirror   *PropertyMirror
	hooks    []ReloadHook
	logger   xlog.Logger
	strategy ReloadStrategy
}

// NewProviderFactory instantiates a new ProviderFactory.
func NewProviderFactory(opts ...ProviderFactoryOption) *ProviderFactory {
	factory := &ProviderFactory{
		logger: xlog.NopLogger{},
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.registry == nil {
		factory.registry = NewSourceRegistry()
	}

	return factory
}

// Create builds, initializes and starts reloading a new Provider.
// Each call creates a fresh Source, providers never share one.
//
// It returns a [ConstructionError] for missing / invalid parameters,
// an [UnsupportedBackendError] for an unknown "type", or the error of
// source's Initialize / first Fetch. No reload is scheduled in any of these cases.
func (factory *ProviderFactory) Create(ctx context.Context, raw RawConfigStore) (*Provider, error) {
	backend := normalizeBackend(raw.GetOrDefault(KeyType, ""))
	if err := validation.Validate(backend, validation.Required); err != nil {
		return nil, NewConstructionError(backend, validation.Errors{KeyType: err})
	}
	constructor, found := factory.registry.Lookup(backend)
	if !found {
		return nil, NewUnsupportedBackendError(backend)
	}

	src, env, err := constructor(raw)
	if err != nil {
		return nil, err
	}
	if err := env.validate(); err != nil {
		closeSource(src)

		return nil, NewConstructionError(backend, err)
	}
	strategy, ownStrategy, err := factory.reloadStrategy(raw)
	if err != nil {
		closeSource(src)

		return nil, NewConstructionError(backend, err)
	}

	hooks := make([]ReloadHook, 0, len(factory.hooks)+1)
	if factory.mirror != nil {
		hooks = append(hooks, factory.mirror.Update)
	}
	hooks = append(hooks, factory.hooks...)

	provider, err := NewProvider(
		ctx,
		NewNotifyingSource(src, env, hooks...),
		env,
		ProviderWithReloadStrategy(strategy),
		providerWithOwnedReloadStrategy(ownStrategy),
		ProviderWithLogger(factory.logger),
	)
	if err != nil {
		if ownStrategy {
			_ = strategy.Close()
		}
		factory.logger.Error(
			xlog.MessageKey, "[xcfg] could not create configuration provider",
			xlog.ErrorKey, err,
			"backend", backend,
			"env", env.String(),
		)

		return nil, err
	}
	if factory.mirror != nil {
		factory.mirror.Update(provider.AllConfigurationAsMap())
	}
	factory.logger.Info(
		xlog.MessageKey, "[xcfg] configuration provider created",
		"backend", backend,
		"env", env.String(),
		"bootstrap", raw.String(),
	)

	return provider, nil
}

// reloadStrategy returns the configured strategy, or a new one built from
// "reload.interval" (a duration like "30s", or a number of seconds; 0 means manual).
func (factory *ProviderFactory) reloadStrategy(raw RawConfigStore) (ReloadStrategy, bool, error) {
	if factory.strategy != nil {
		return factory.strategy, false, nil
	}

	interval := DefaultReloadInterval
	if value, found := raw.Get(KeyReloadInterval); found {
		var err error
		if interval, err = parseInterval(value); err != nil {
			return nil, false, validation.Errors{KeyReloadInterval: err}
		}
	}
	if interval == 0 {
		return NewManualReloadStrategy(), true, nil
	}
	logger := factory.logger

	return NewPeriodicReloadStrategy(
		interval,
		PeriodicReloadStrategyWithErrorHandler(LogErrorHandler(func() xlog.Logger { return logger })),
	), true, nil
}

func parseInterval(value string) (time.Duration, error) {
	var (
		interval time.Duration
		err      error
	)
	if seconds, intErr := cast.ToInt64E(value); intErr == nil {
		interval = time.Duration(seconds) * time.Second
	} else if interval, err = cast.ToDurationE(value); err != nil {
		return 0, err
	}
	if interval < 0 {
		return 0, errors.New("must not be negative")
	}

	return interval, nil
}

// ProviderFactoryOption defines optional function for configuring a ProviderFactory.
type ProviderFactoryOption func(*ProviderFactory)

// FactoryWithRegistry sets the backends registry.
// By default, [NewSourceRegistry] is used.
func FactoryWithRegistry(registry *SourceRegistry) ProviderFactoryOption {
	return func(factory *ProviderFactory) {
		factory.registry = registry
	}
}

// FactoryWithMirror sets a mirror to be kept up to date with created providers' configuration.
func FactoryWithMirror(mirror *PropertyMirror) ProviderFactoryOption {
	return func(factory *ProviderFactory) {
		factory.mirror = mirror
	}
}

// FactoryWithReloadHook adds a hook to be called after each successful reload.
func FactoryWithReloadHook(hook ReloadHook) ProviderFactoryOption {
	return func(factory *ProviderFactory) {
		factory.hooks = append(factory.hooks, hook)
	}
}

// FactoryWithLogger sets the logger.
// By default, a no-op logger is used.
func FactoryWithLogger(logger xlog.Logger) ProviderFactoryOption {
	return func(factory *ProviderFactory) {
		factory.logger = logger
	}
}

// FactoryWithReloadStrategy sets a strategy shared by all created providers,
// taking precedence over "reload.interval". The factory does not close it.
func FactoryWithReloadStrategy(strategy ReloadStrategy) ProviderFactoryOption {
	return func(factory *ProviderFactory) {
		factory.strategy = strategy
	}
}
