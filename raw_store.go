// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"sort"
	"strings"
)

// Bootstrap keys recognized by [ProviderFactory].
const (
	KeyType           = "type"
	KeyProject        = "project"
	KeyProfile        = "profile"
	KeyFiles          = "files"
	KeyFileRoot       = "file.root"
	KeyGitURI         = "git.uri"
	KeyGitDir         = "git.dir"
	KeyDBDriver       = "db.driver"
	KeyDBURL          = "db.url"
	KeyDBUser         = "db.user"
	KeyDBPassword     = "db.password"
	KeyDBTable        = "db.table"
	KeyEtcdEndpoints  = "etcd.endpoints"
	KeyEtcdPrefix     = "etcd.prefix"
	KeyEtcdFormat     = "etcd.format"
	KeyReloadInterval = "reload.interval"
)

// DefaultFiles is the files list used when the "files" key is missing.
const DefaultFiles = "config.properties"

// RawConfigStore is the immutable bootstrap key-value store a provider is
// built from. It is loaded once and never reloaded.
type RawConfigStore struct {
	values map[string]string
}

// NewRawConfigStore loads the store once from given loader.
// Nested structures are flattened into dotted keys.
// Compose bootstrap inputs with a [MultiLoader], for example:
//
//	xcfg.NewRawConfigStore(xcfg.NewMultiLoader(
//		true,
//		xcfg.PropertiesFileLoader("bootstrap.properties"),
//		xcfg.EnvLoader("XCFG_"),
//	))
func NewRawConfigStore(loader Loader) (RawConfigStore, error) {
	snapshot, err := loadSnapshot(NewFlattenLoader(loader))
	if err != nil {
		return RawConfigStore{}, err
	}

	return RawConfigStore{values: snapshot}, nil
}

// NewRawConfigStoreFromMap builds a store from given key-values.
func NewRawConfigStoreFromMap(values map[string]string) RawConfigStore {
	return RawConfigStore{values: cloneSnapshot(values)}
}

// Get returns the trimmed value of a key and whether it is present (and not blank).
func (store RawConfigStore) Get(key string) (string, bool) {
	value := strings.TrimSpace(store.values[key])

	return value, value != ""
}

// GetOrDefault returns key's value, or def if key is missing or blank.
func (store RawConfigStore) GetOrDefault(key, def string) string {
	if value, found := store.Get(key); found {
		return value
	}

	return def
}

// Keys returns the sorted list of keys.
func (store RawConfigStore) Keys() []string {
	keys := make([]string, 0, len(store.values))
	for key := range store.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

// String returns a loggable representation, with secrets masked.
func (store RawConfigStore) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for idx, key := range store.Keys() {
		if idx > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(key)
		sb.WriteByte('=')
		if isSecretKey(key) {
			sb.WriteString("******")
		} else {
			sb.WriteString(store.values[key])
		}
	}
	sb.WriteByte('}')

	return sb.String()
}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)

	return strings.Contains(key, "password") || strings.Contains(key, "secret")
}

// splitList splits a "," / ";" separated list, dropping blank items.
func splitList(list string) []string {
	items := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ';'
	})
	result := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}

	return result
}
