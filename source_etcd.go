// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Note: Etcd API ver was 3.5 at the time this code was written.
// API ref: https://etcd.io/docs/v3.5/learning/api/ .

// BackendEtcd is the "type" of the etcd based backend.
const BackendEtcd = "etcd"

const (
	etcdDefaultEndpoint = "127.0.0.1:2379"
	// etcdEndpointsEnvName defines an environment variable name which sets
	// the Etcd endpoints, comma separated.
	etcdEndpointsEnvName = "ETCD_ENDPOINTS"
	// DefaultEtcdPrefix is the key prefix used when "etcd.prefix" is missing.
	DefaultEtcdPrefix = "/config"

	etcdDefaultRequestTimeout = 5 * time.Second
)

// EtcdSource serves configuration from etcd keys laid out as
// <prefix>/<project>/<profile>/<key>.
//
// With [RemoteValuePlain] format, the key path after the profile becomes the
// property name ("/" replaced by "."). With [RemoteValueJSON] / [RemoteValueYAML]
// formats, each key holds a document which is flattened into the profile, documents
// being merged in key order.
type EtcdSource struct {
	clientCfg      clientv3.Config
	prefix         string
	format         string
	project        string
	requestTimeout time.Duration
	client         *clientv3.Client
	cache          partitionCache // profile => snapshot
	mu             sync.Mutex     // serializes reloads.
	initialized    atomic.Bool
}

// NewEtcdSource instantiates a new EtcdSource.
// Missing endpoints are taken from ETCD_ENDPOINTS env, defaulting to "127.0.0.1:2379",
// a missing prefix defaults to [DefaultEtcdPrefix] and a missing format to [RemoteValuePlain].
func NewEtcdSource(descriptor EtcdDescriptor, opts ...EtcdSourceOption) (*EtcdSource, error) {
	if len(descriptor.Endpoints) == 0 {
		descriptor.Endpoints = getDefaultEtcdEndpoints()
	}
	if descriptor.Prefix == "" {
		descriptor.Prefix = DefaultEtcdPrefix
	}
	if descriptor.Format == "" {
		descriptor.Format = RemoteValuePlain
	}
	if err := descriptor.Validate(); err != nil {
		return nil, NewConstructionError(BackendEtcd, err)
	}

	src := &EtcdSource{
		clientCfg: clientv3.Config{
			Endpoints:   descriptor.Endpoints,
			DialTimeout: 10 * time.Second,
		},
		prefix:         strings.TrimRight(descriptor.Prefix, "/"),
		format:         descriptor.Format,
		project:        descriptor.Project,
		requestTimeout: etcdDefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(src)
	}

	return src, nil
}

// Initialize creates the etcd client and loads the project's keys.
func (src *EtcdSource) Initialize(ctx context.Context) error {
	src.mu.Lock()
	defer src.mu.Unlock()

	if src.initialized.Load() {
		return nil
	}

	client, err := clientv3.New(src.clientCfg)
	if err != nil {
		return NewBackendUnavailableError(BackendEtcd, err)
	}
	src.client = client

	profiles, err := src.loadProfiles(ctx)
	if err != nil {
		src.client = nil
		_ = client.Close()

		return err
	}
	src.cache.replace(profiles)
	src.initialized.Store(true)

	return nil
}

// Fetch returns the configuration of env's profile.
// An unknown profile yields an empty configuration.
// An environment of another project than the source's one is not resolvable.
func (src *EtcdSource) Fetch(env Environment) (map[string]string, error) {
	if !src.initialized.Load() {
		return nil, ErrNotInitialized
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	if env.Project() != src.project {
		return nil, fmt.Errorf("%w: project %q is not served by this source", ErrUnknownEnvironment, env.Project())
	}
	snapshot, _ := src.cache.get(env.Profile())

	return cloneSnapshot(snapshot), nil
}

// Reload reads again the project's keys and replaces all the profiles at once.
func (src *EtcdSource) Reload(ctx context.Context) error {
	if !src.initialized.Load() {
		return ErrNotInitialized
	}

	src.mu.Lock()
	defer src.mu.Unlock()

	profiles, err := src.loadProfiles(ctx)
	if err != nil {
		return err
	}
	src.cache.replace(profiles)

	return nil
}

// Close closes the etcd client.
func (src *EtcdSource) Close() error {
	src.mu.Lock()
	defer src.mu.Unlock()

	if src.client == nil {
		return nil
	}
	err := src.client.Close()
	src.client = nil
	src.initialized.Store(false)

	return err
}

// loadProfiles reads all the keys of the project, grouped by profile.
// Caller must hold mu.
func (src *EtcdSource) loadProfiles(ctx context.Context) (map[string]map[string]string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, src.requestTimeout)
	defer cancel()

	projectPrefix := src.prefix + "/" + src.project + "/"
	resp, err := src.client.Get(reqCtx, projectPrefix, clientv3.WithPrefix())
	if err != nil {
		return nil, NewBackendUnavailableError(BackendEtcd, err)
	}

	configMaps := make(map[string]map[string]any)
	for _, kv := range resp.Kvs { // sorted by key.
		profile, propertyPath, _ := strings.Cut(strings.TrimPrefix(string(kv.Key), projectPrefix), "/")
		if profile == "" {
			continue
		}
		propertyKey := strings.ReplaceAll(strings.Trim(propertyPath, "/"), "/", ".")
		if src.format == RemoteValuePlain && propertyKey == "" {
			continue
		}
		kvConfigMap, err := remoteKVPairConfigMap(propertyKey, kv.Value, src.format)
		if err != nil {
			return nil, NewMalformedFileError(string(kv.Key), err)
		}
		kvLoader := stringValuesLoader(string(kv.Key), NewFlattenLoader(PlainLoader(kvConfigMap)))
		flatConfigMap, err := kvLoader.Load()
		if err != nil {
			return nil, err
		}

		configMap, found := configMaps[profile]
		if !found {
			configMap = make(map[string]any)
			configMaps[profile] = configMap
		}
		for key, value := range flatConfigMap {
			configMap[key] = value
		}
	}

	profiles := make(map[string]map[string]string, len(configMaps))
	for profile, configMap := range configMaps {
		snapshot, err := toSnapshot(configMap)
		if err != nil {
			return nil, err
		}
		profiles[profile] = snapshot
	}

	return profiles, nil
}

// getDefaultEtcdEndpoints tries to get etcd endpoints from ENV.
// It defaults on localhost address.
func getDefaultEtcdEndpoints() []string {
	endpoints := []string{etcdDefaultEndpoint}
	if eps := os.Getenv(etcdEndpointsEnvName); eps != "" {
		endpoints = splitList(eps)
	}

	return endpoints
}

// EtcdSourceOption defines optional function for configuring an EtcdSource.
type EtcdSourceOption func(*EtcdSource)

// EtcdSourceWithDialTimeout sets the client's dial timeout.
// By default, is set to 10s.
func EtcdSourceWithDialTimeout(timeout time.Duration) EtcdSourceOption {
	return func(src *EtcdSource) {
		src.clientCfg.DialTimeout = timeout
	}
}

// EtcdSourceWithRequestTimeout sets the timeout of a keys read request.
// By default, is set to 5s.
func EtcdSourceWithRequestTimeout(timeout time.Duration) EtcdSourceOption {
	return func(src *EtcdSource) {
		if timeout > 0 {
			src.requestTimeout = timeout
		}
	}
}
