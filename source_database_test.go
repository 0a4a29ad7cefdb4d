// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/actforgood/xcfg"
)

const configQuery = `SELECT "profile", "key", "value" FROM TB_CONFIG WHERE "project" = ?`

func TestDatabaseSource(t *testing.T) {
	t.Parallel()

	t.Run("success - rows are partitioned by profile", testDatabaseSourcePartitions)
	t.Run("success - reload replaces all profiles", testDatabaseSourceReload)
	t.Run("success - reload is idempotent", testDatabaseSourceReloadIsIdempotent)
	t.Run("error - reload failure keeps previous data", testDatabaseSourceReloadFailureKeepsPreviousData)
	t.Run("error - query fails on initialize", testDatabaseSourceInitializeQueryErr)
	t.Run("error - driver is not registered", testDatabaseSourceInitializeUnknownDriver)
	t.Run("error - another project", testDatabaseSourceAnotherProject)
	t.Run("error - not initialized", testDatabaseSourceNotInitialized)
	t.Run("error - missing parameters", testDatabaseSourceMissingParameters)
}

// newSQLMock registers a mocked database under a dsn unique to the test.
func newSQLMock(t *testing.T) (string, sqlmock.Sqlmock) {
	t.Helper()

	dsn := "sqlmock_xcfg_" + strings.ReplaceAll(t.Name(), "/", "_")
	_, mock, err := sqlmock.NewWithDSN(dsn, sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	requireNil(t, err)

	return dsn, mock
}

func newDatabaseSource(t *testing.T, dsn string) *xcfg.DatabaseSource {
	t.Helper()

	subject, err := xcfg.NewDatabaseSource(xcfg.DatabaseDescriptor{
		Driver:   "sqlmock",
		URL:      dsn,
		User:     "shop",
		Password: "secret",
		Table:    xcfg.DefaultDBTable,
		Project:  "shop",
	})
	requireNil(t, err)

	return subject
}

func shopRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"profile", "key", "value"}).
		AddRow("dev", "databasePool.url", "jdbc:mysql://dev-db:3306/shop").
		AddRow("dev", "feature.enabled", "true").
		AddRow("dev", "empty.value", nil).
		AddRow("prod", "databasePool.url", "jdbc:mysql://prod-db:3306/shop")
}

func testDatabaseSourcePartitions(t *testing.T) {
	t.Parallel()

	// arrange
	dsn, mock := newSQLMock(t)
	mock.ExpectQuery(configQuery).WithArgs("shop").WillReturnRows(shopRows())
	mock.ExpectClose()
	subject := newDatabaseSource(t, dsn)
	requireNil(t, subject.Initialize(context.Background()))

	// act
	devConfig, errDev := subject.Fetch(xcfg.NewEnvironment("shop", "dev"))
	prodConfig, errProd := subject.Fetch(xcfg.NewEnvironment("shop", "prod"))
	unknownConfig, errUnknown := subject.Fetch(xcfg.NewEnvironment("shop", "qa"))

	// assert
	assertNil(t, errDev)
	assertNil(t, errProd)
	assertNil(t, errUnknown)
	assertEqual(
		t,
		map[string]string{
			"databasePool.url": "jdbc:mysql://dev-db:3306/shop",
			"feature.enabled":  "true",
			"empty.value":      "",
		},
		devConfig,
	)
	assertEqual(t, map[string]string{"databasePool.url": "jdbc:mysql://prod-db:3306/shop"}, prodConfig)
	assertEqual(t, map[string]string{}, unknownConfig)
	assertNil(t, subject.Close())
	assertNil(t, mock.ExpectationsWereMet())
}

func testDatabaseSourceReload(t *testing.T) {
	t.Parallel()

	// arrange
	dsn, mock := newSQLMock(t)
	mock.ExpectQuery(configQuery).WithArgs("shop").WillReturnRows(shopRows())
	mock.ExpectQuery(configQuery).WithArgs("shop").WillReturnRows(
		sqlmock.NewRows([]string{"profile", "key", "value"}).
			AddRow("prod", "databasePool.url", "jdbc:mysql://new-prod-db:3306/shop"),
	)
	subject := newDatabaseSource(t, dsn)
	requireNil(t, subject.Initialize(context.Background()))

	// act
	err := subject.Reload(context.Background())

	// assert
	assertNil(t, err)
	devConfig, err := subject.Fetch(xcfg.NewEnvironment("shop", "dev"))
	assertNil(t, err)
	assertEqual(t, map[string]string{}, devConfig)
	prodConfig, err := subject.Fetch(xcfg.NewEnvironment("shop", "prod"))
	assertNil(t, err)
	assertEqual(t, map[string]string{"databasePool.url": "jdbc:mysql://new-prod-db:3306/shop"}, prodConfig)
	assertNil(t, mock.ExpectationsWereMet())
}

func testDatabaseSourceReloadIsIdempotent(t *testing.T) {
	t.Parallel()

	// arrange
	dsn, mock := newSQLMock(t)
	for i := 0; i < 3; i++ {
		mock.ExpectQuery(configQuery).WithArgs("shop").WillReturnRows(shopRows())
	}
	subject := newDatabaseSource(t, dsn)
	requireNil(t, subject.Initialize(context.Background()))
	env := xcfg.NewEnvironment("shop", "dev")
	before, err := subject.Fetch(env)
	requireNil(t, err)

	// act
	assertNil(t, subject.Reload(context.Background()))
	assertNil(t, subject.Reload(context.Background()))
	after, err := subject.Fetch(env)

	// assert
	assertNil(t, err)
	assertEqual(t, before, after)
	assertNil(t, mock.ExpectationsWereMet())
}

func testDatabaseSourceReloadFailureKeepsPreviousData(t *testing.T) {
	t.Parallel()

	// arrange
	dsn, mock := newSQLMock(t)
	expectedErr := errors.New("intentionally triggered connection reset")
	mock.ExpectQuery(configQuery).WithArgs("shop").WillReturnRows(shopRows())
	mock.ExpectQuery(configQuery).WithArgs("shop").WillReturnError(expectedErr)
	subject := newDatabaseSource(t, dsn)
	requireNil(t, subject.Initialize(context.Background()))
	env := xcfg.NewEnvironment("shop", "prod")

	// act
	err := subject.Reload(context.Background())

	// assert
	var unavailableErr xcfg.BackendUnavailableError
	assertTrue(t, errors.As(err, &unavailableErr))
	assertTrue(t, errors.Is(err, expectedErr))
	config, err := subject.Fetch(env)
	assertNil(t, err)
	assertEqual(t, map[string]string{"databasePool.url": "jdbc:mysql://prod-db:3306/shop"}, config)
	assertNil(t, mock.ExpectationsWereMet())
}

func testDatabaseSourceInitializeQueryErr(t *testing.T) {
	t.Parallel()

	// arrange
	dsn, mock := newSQLMock(t)
	expectedErr := errors.New("intentionally triggered table does not exist")
	mock.ExpectQuery(configQuery).WithArgs("shop").WillReturnError(expectedErr)
	subject := newDatabaseSource(t, dsn)

	// act
	err := subject.Initialize(context.Background())

	// assert
	var unavailableErr xcfg.BackendUnavailableError
	assertTrue(t, errors.As(err, &unavailableErr))
	assertTrue(t, errors.Is(err, expectedErr))
	_, err = subject.Fetch(xcfg.NewEnvironment("shop", "dev"))
	assertTrue(t, errors.Is(err, xcfg.ErrNotInitialized))
}

func testDatabaseSourceInitializeUnknownDriver(t *testing.T) {
	t.Parallel()

	// arrange
	subject, err := xcfg.NewDatabaseSource(xcfg.DatabaseDescriptor{
		Driver:   "this-driver-is-not-registered",
		URL:      "whatever",
		User:     "shop",
		Password: "secret",
		Table:    xcfg.DefaultDBTable,
		Project:  "shop",
	})
	requireNil(t, err)

	// act
	err = subject.Initialize(context.Background())

	// assert
	var unavailableErr xcfg.BackendUnavailableError
	assertTrue(t, errors.As(err, &unavailableErr))
}

func testDatabaseSourceAnotherProject(t *testing.T) {
	t.Parallel()

	// arrange
	dsn, mock := newSQLMock(t)
	mock.ExpectQuery(configQuery).WithArgs("shop").WillReturnRows(shopRows())
	subject := newDatabaseSource(t, dsn)
	requireNil(t, subject.Initialize(context.Background()))

	// act
	config, err := subject.Fetch(xcfg.NewEnvironment("blog", "dev"))

	// assert
	assertNil(t, config)
	assertTrue(t, errors.Is(err, xcfg.ErrUnknownEnvironment))
}

func testDatabaseSourceNotInitialized(t *testing.T) {
	t.Parallel()

	// arrange
	subject := newDatabaseSource(t, "sqlmock_xcfg_not_initialized")

	// act
	config, errFetch := subject.Fetch(xcfg.NewEnvironment("shop", "dev"))
	errReload := subject.Reload(context.Background())

	// assert
	assertNil(t, config)
	assertTrue(t, errors.Is(errFetch, xcfg.ErrNotInitialized))
	assertTrue(t, errors.Is(errReload, xcfg.ErrNotInitialized))
	assertNil(t, subject.Close())
}

func testDatabaseSourceMissingParameters(t *testing.T) {
	t.Parallel()

	tests := [...]struct {
		name       string
		descriptor xcfg.DatabaseDescriptor
	}{
		{
			name: "missing url",
			descriptor: xcfg.DatabaseDescriptor{
				Driver: "sqlmock", User: "shop", Password: "secret", Table: "TB_CONFIG", Project: "shop",
			},
		},
		{
			name: "missing driver",
			descriptor: xcfg.DatabaseDescriptor{
				URL: "dsn", User: "shop", Password: "secret", Table: "TB_CONFIG", Project: "shop",
			},
		},
		{
			name: "invalid table",
			descriptor: xcfg.DatabaseDescriptor{
				Driver: "sqlmock", URL: "dsn", User: "shop", Password: "secret",
				Table: "TB_CONFIG; DROP TABLE users", Project: "shop",
			},
		},
	}

	for _, test := range tests {
		test := test // capture range variable
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			// act
			subject, err := xcfg.NewDatabaseSource(test.descriptor)

			// assert
			assertNil(t, subject)
			var constructionErr xcfg.ConstructionError
			assertTrue(t, errors.As(err, &constructionErr))
		})
	}
}

func TestDatabaseDescriptor_DSN(t *testing.T) {
	t.Parallel()

	// arrange
	subject := xcfg.DatabaseDescriptor{
		URL:      "{user}:{password}@tcp(127.0.0.1:3306)/shop",
		User:     "shop",
		Password: "s3cr3t",
	}

	// act
	result := subject.DSN()

	// assert
	assertEqual(t, "shop:s3cr3t@tcp(127.0.0.1:3306)/shop", result)
}
