// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/actforgood/xlog"
	"github.com/spf13/cast"
)

// errUnsupportedType is the cause of a TypeConversionError for a type
// GetProperty cannot convert to.
var errUnsupportedType = errors.New("unsupported type")

// Config provides prototype for returning configurations.
type Config interface {
	// Get returns a configuration value for a given key.
	// The first parameter is the key to return the value for.
	// The second parameter is optional, and represents a default
	// value in case key is not found. It also has a role in inferring
	// the type of key's value (if it exists) and thus key's value
	// will be casted to default's value type.
	Get(key string, def ...any) any
}

// PropertyGetter provides raw string properties.
// It returns a [PropertyNotFoundError] for a missing key.
type PropertyGetter interface {
	Property(key string) (string, error)
}

// ProviderObserver gets called to notify about changed keys on Provider reload.
type ProviderObserver func(config Config, changedKeys ...string)

// Provider serves the configuration of one environment, read from a Source.
// Reads never block: they see the latest successfully loaded snapshot, which is
// replaced atomically on each reload. A failed reload keeps the previous snapshot.
//
// It implements io.Closer interface and thus Close should be called at
// your application shutdown in order to release the reload goroutine and the source.
type Provider struct {
	*provider // so we can use finalizer
}

type provider struct {
	source Source
	env    Environment
	// snapshot is the current key-value configuration.
	snapshot atomic.Pointer[map[string]string]
	// strategy schedules reloads.
	strategy ReloadStrategy
	// ownStrategy tells whether strategy was created for this provider alone.
	ownStrategy bool
	logger      xlog.Logger
	// observers contain the list of registered observers for changed keys.
	observers []ProviderObserver
	// reloadMu serializes reloads.
	reloadMu sync.Mutex
	// obsMu guards observers.
	obsMu     sync.RWMutex
	closeOnce sync.Once
}

// NewProvider initializes source, loads env's configuration and registers
// the provider with the reload strategy.
//
// By default, a [PeriodicReloadStrategy] with [DefaultReloadInterval] is used,
// reload errors being logged.
func NewProvider(
	ctx context.Context,
	source Source,
	env Environment,
	opts ...ProviderOption,
) (*Provider, error) {
	prov := &Provider{&provider{
		source: source,
		env:    env,
		logger: xlog.NopLogger{},
	}}

	// apply options, if any.
	for _, opt := range opts {
		opt(prov)
	}

	if err := source.Initialize(ctx); err != nil {
		closeSource(source)

		return nil, err
	}
	snapshot, err := source.Fetch(env)
	if err != nil {
		closeSource(source)

		return nil, err
	}
	prov.snapshot.Store(&snapshot)

	if prov.strategy == nil {
		logger := prov.logger
		prov.strategy = NewPeriodicReloadStrategy(
			DefaultReloadInterval,
			PeriodicReloadStrategyWithErrorHandler(LogErrorHandler(func() xlog.Logger { return logger })),
		)
		prov.ownStrategy = true
	}
	// the inner object is registered, so the outer one can be garbage collected.
	prov.strategy.Register(prov.provider)
	// register also a finalizer, just in case, user forgets to call Close().
	// Note: user should do not rely on this, it's recommended to explicitly call Close().
	runtime.SetFinalizer(prov, (*Provider).Close)

	return prov, nil
}

// Environment returns the environment the provider serves.
func (p *provider) Environment() Environment {
	return p.env
}

// Property returns the raw value of a key, or a [PropertyNotFoundError].
func (p *provider) Property(key string) (string, error) {
	value, found := (*p.snapshot.Load())[key]
	if !found {
		return "", NewPropertyNotFoundError(key)
	}

	return value, nil
}

// Get returns a configuration value for a given key.
// The second parameter is optional, and represents a default
// value in case key is not found. It also has a role in inferring
// the type of key's value (if it exists) and thus key's value
// will be casted to default's value type.
// Only basic types (string, bool, int, uint, float, and their flavours),
// time.Duration, time.Time, []int, []string are covered.
// If a cast error occurs, the defaultValue is returned.
func (p *provider) Get(key string, def ...any) any {
	value, found := (*p.snapshot.Load())[key]
	if len(def) > 0 {
		defaultValue := def[0]
		if !found {
			return defaultValue
		}
		if defaultValue != nil {
			return castValueByDefault(value, defaultValue)
		}
	}
	if !found {
		return nil
	}

	return value
}

// AllConfigurationAsMap returns a copy of the current configuration.
func (p *provider) AllConfigurationAsMap() map[string]string {
	return cloneSnapshot(*p.snapshot.Load())
}

// Reload reloads the source and replaces the snapshot with env's fresh configuration.
// On error, the previous snapshot stays active.
func (p *provider) Reload(ctx context.Context) error {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	if err := p.source.Reload(ctx); err != nil {
		return err
	}
	newSnapshot, err := p.source.Fetch(p.env)
	if err != nil {
		return err
	}
	oldSnapshot := p.snapshot.Swap(&newSnapshot)
	changedKeys := diffSnapshots(*oldSnapshot, newSnapshot)
	if len(changedKeys) > 0 {
		p.logger.Debug(
			xlog.MessageKey, "[xcfg] configuration changed",
			"env", p.env.String(),
			"changedKeys", strings.Join(changedKeys, ","),
		)
		p.notifyObservers(changedKeys)
	}

	return nil
}

// RegisterObserver adds a new observer that will get notified of keys changes.
func (p *provider) RegisterObserver(observer ProviderObserver) {
	p.obsMu.Lock()
	p.observers = append(p.observers, observer)
	p.obsMu.Unlock()
}

func (p *provider) notifyObservers(changedKeys []string) {
	p.obsMu.RLock()
	defer p.obsMu.RUnlock()

	for _, notifyObserver := range p.observers {
		notifyObserver(p, changedKeys...)
	}
}

// close stops the reloads (waiting for an in-flight one) and closes the source.
func (p *provider) close() error {
	var err error
	p.closeOnce.Do(func() {
		p.strategy.Deregister(p)
		if p.ownStrategy {
			_ = p.strategy.Close()
		}
		if closer, ok := p.source.(io.Closer); ok {
			err = closer.Close()
		}
	})

	return err
}

// Close stops the reloads and releases the source.
// It should be called at your application shutdown.
func (prov *Provider) Close() error {
	if prov == nil || prov.provider == nil {
		return nil
	}
	runtime.SetFinalizer(prov, nil)

	return prov.close()
}

// closeSource releases a source which could not serve a provider.
func closeSource(source Source) {
	if closer, ok := source.(io.Closer); ok {
		_ = closer.Close()
	}
}

// diffSnapshots computes updated/deleted/new keys, sorted.
func diffSnapshots(oldSnapshot, newSnapshot map[string]string) []string {
	var changedKeys []string
	for oldKey, oldValue := range oldSnapshot { // updated/deleted keys
		if newValue, found := newSnapshot[oldKey]; !found || newValue != oldValue {
			changedKeys = append(changedKeys, oldKey)
		}
	}
	for newKey := range newSnapshot { // new keys
		if _, found := oldSnapshot[newKey]; !found {
			changedKeys = append(changedKeys, newKey)
		}
	}
	sort.Strings(changedKeys)

	return changedKeys
}

// GetProperty returns key's value converted to T.
// If key is missing, the optional default is returned, or a [PropertyNotFoundError] otherwise.
// A value that cannot be converted results in a [TypeConversionError].
// Only basic types (string, bool, int, uint, float, and their flavours),
// time.Duration, time.Time, []int, []string are covered.
// Lists are expected to be comma separated.
func GetProperty[T any](props PropertyGetter, key string, def ...T) (T, error) {
	var zero T
	value, err := props.Property(key)
	if err != nil {
		var notFoundErr PropertyNotFoundError
		if errors.As(err, &notFoundErr) && len(def) > 0 {
			return def[0], nil
		}

		return zero, err
	}

	target := fmt.Sprintf("%T", zero)
	castValue, err := castValue(value, zero)
	if err != nil {
		return zero, NewTypeConversionError(key, value, target, err)
	}
	typedValue, ok := castValue.(T)
	if !ok {
		return zero, NewTypeConversionError(key, value, target, errUnsupportedType)
	}

	return typedValue, nil
}

// castValue converts a raw value to target's type.
func castValue(value string, target any) (any, error) {
	switch target.(type) {
	case string:
		return value, nil
	case int:
		return cast.ToIntE(value)
	case uint:
		return cast.ToUintE(value)
	case float64:
		return cast.ToFloat64E(value)
	case bool:
		return cast.ToBoolE(value)
	case time.Duration:
		return cast.ToDurationE(value)
	case int64:
		return cast.ToInt64E(value)
	case int32:
		return cast.ToInt32E(value)
	case int16:
		return cast.ToInt16E(value)
	case int8:
		return cast.ToInt8E(value)
	case uint64:
		return cast.ToUint64E(value)
	case uint32:
		return cast.ToUint32E(value)
	case uint16:
		return cast.ToUint16E(value)
	case uint8:
		return cast.ToUint8E(value)
	case float32:
		return cast.ToFloat32E(value)
	case time.Time:
		return cast.ToTimeE(value)
	case []string:
		return splitListValue(value), nil
	case []int:
		return cast.ToIntSliceE(splitListValue(value))
	}

	return nil, errUnsupportedType
}

// castValueByDefault casts a key's value to provided default value's type.
// If a cast error occurs, or the type is not supported, the defaultValue is returned.
func castValueByDefault(value string, defaultValue any) any {
	castValue, err := castValue(value, defaultValue)
	if err != nil {
		return defaultValue
	}

	return castValue
}

// splitListValue splits a comma separated value, trimming the items.
func splitListValue(value string) []string {
	if strings.TrimSpace(value) == "" {
		return []string{}
	}
	items := strings.Split(value, ",")
	for idx := range items {
		items[idx] = strings.TrimSpace(items[idx])
	}

	return items
}

// ProviderOption defines optional function for configuring a Provider.
type ProviderOption func(*Provider)

// ProviderWithReloadStrategy sets the reload strategy.
// The strategy is not closed by the provider, only the provider is deregistered from it.
//
// Usage example:
//
//	// reload configuration every 5 minutes:
//	strategy := xcfg.NewPeriodicReloadStrategy(5 * time.Minute)
//	provider, err := xcfg.NewProvider(ctx, source, env, xcfg.ProviderWithReloadStrategy(strategy))
func ProviderWithReloadStrategy(strategy ReloadStrategy) ProviderOption {
	return func(prov *Provider) {
		prov.strategy = strategy
		prov.ownStrategy = false
	}
}

// ProviderWithLogger sets the logger.
// By default, a no-op logger is used.
func ProviderWithLogger(logger xlog.Logger) ProviderOption {
	return func(prov *Provider) {
		prov.logger = logger
	}
}

// ProviderWithObserver registers an observer from start.
func ProviderWithObserver(observer ProviderObserver) ProviderOption {
	return func(prov *Provider) {
		prov.observers = append(prov.observers, observer)
	}
}

// providerWithOwnedReloadStrategy marks the strategy as created for the provider alone,
// to be closed together with it. It must follow ProviderWithReloadStrategy.
func providerWithOwnedReloadStrategy(owned bool) ProviderOption {
	return func(prov *Provider) {
		prov.ownStrategy = owned
	}
}
