// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// BackendDatabase is the "type" of the relational table based backend.
const BackendDatabase = "database"

// DefaultDBTable is the table used when "db.table" is missing.
const DefaultDBTable = "TB_CONFIG"

// DatabaseSource serves configuration from a table with the columns
// (project, profile, key, value). All the rows of a project are loaded at once
// and grouped by profile; the environment's profile selects the group.
//
// The table layout is a fixed external contract, it is not created nor migrated.
// The database driver must be registered by the application (blank import).
type DatabaseSource struct {
	driver      string
	dsn         string
	project     string
	query       string
	db          *sql.DB
	cache       partitionCache // profile => snapshot
	mu          sync.Mutex     // serializes reloads.
	initialized atomic.Bool
}

// NewDatabaseSource instantiates a new DatabaseSource from a (valid) descriptor.
// No connection is made until Initialize.
func NewDatabaseSource(descriptor DatabaseDescriptor) (*DatabaseSource, error) {
	if err := descriptor.Validate(); err != nil {
		return nil, NewConstructionError(BackendDatabase, err)
	}

	return &DatabaseSource{
		driver:  descriptor.Driver,
		dsn:     descriptor.DSN(),
		project: descriptor.Project,
		query:   buildConfigQuery(descriptor.Driver, descriptor.Table),
	}, nil
}

// Initialize opens the connection pool and loads the project's rows.
func (src *DatabaseSource) Initialize(ctx context.Context) error {
	src.mu.Lock()
	defer src.mu.Unlock()

	if src.initialized.Load() {
		return nil
	}

	db, err := sql.Open(src.driver, src.dsn)
	if err != nil {
		return NewBackendUnavailableError(BackendDatabase, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return NewBackendUnavailableError(BackendDatabase, err)
	}
	src.db = db

	profiles, err := src.loadProfiles(ctx)
	if err != nil {
		src.db = nil
		_ = db.Close()

		return err
	}
	src.cache.replace(profiles)
	src.initialized.Store(true)

	return nil
}

// Fetch returns the configuration of env's profile.
// An unknown profile yields an empty configuration.
// An environment of another project than the source's one is not resolvable.
func (src *DatabaseSource) Fetch(env Environment) (map[string]string, error) {
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

// Reload re-runs the query and replaces all the profiles at once.
func (src *DatabaseSource) Reload(ctx context.Context) error {
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

// Close closes the connection pool.
func (src *DatabaseSource) Close() error {
	src.mu.Lock()
	defer src.mu.Unlock()

	if src.db == nil {
		return nil
	}
	err := src.db.Close()
	src.db = nil
	src.initialized.Store(false)

	return err
}

// loadProfiles reads project's rows grouped by profile. Caller must hold mu.
func (src *DatabaseSource) loadProfiles(ctx context.Context) (map[string]map[string]string, error) {
	rows, err := src.db.QueryContext(ctx, src.query, src.project)
	if err != nil {
		return nil, NewBackendUnavailableError(BackendDatabase, err)
	}
	defer rows.Close()

	profiles := make(map[string]map[string]string)
	for rows.Next() {
		var (
			profile, key string
			value        sql.NullString
		)
		if err := rows.Scan(&profile, &key, &value); err != nil {
			return nil, NewBackendUnavailableError(BackendDatabase, err)
		}
		snapshot, found := profiles[profile]
		if !found {
			snapshot = make(map[string]string)
			profiles[profile] = snapshot
		}
		snapshot[key] = value.String
	}
	if err := rows.Err(); err != nil {
		return nil, NewBackendUnavailableError(BackendDatabase, err)
	}

	return profiles, nil
}

// buildConfigQuery returns the select statement for given driver's SQL dialect.
// "key" and "value" are reserved words in some dialects, so columns are quoted.
func buildConfigQuery(driver, table string) string {
	quote, placeholder := `"`, "?"
	switch strings.ToLower(driver) {
	case "mysql":
		quote = "`"
	case "postgres", "pgx", "pgx/v5", "cloudsqlpostgres":
		placeholder = "$1"
	}
	column := func(name string) string {
		return quote + name + quote
	}

	return fmt.Sprintf(
		"SELECT %s, %s, %s FROM %s WHERE %s = %s",
		column("profile"), column("key"), column("value"),
		table,
		column("project"), placeholder,
	)
}
