// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"context"
	"sync"
	"sync/atomic"
)

// MockSource is a mock for xcfg.Source contract, to be used in UT.
// It also implements io.Closer.
type MockSource struct {
	partitions     map[string]map[string]string
	initErr        error
	reloadErr      error
	fetchErr       error
	initCallsCnt   uint32
	reloadCallsCnt uint32
	fetchCallsCnt  uint32
	closeCallsCnt  uint32
	reloadCallback func(ctx context.Context)
	fetchCallback  func(env Environment)
	mu             sync.Mutex
}

// NewMockSource instantiates new mocked Source, with no data.
func NewMockSource() *MockSource {
	return &MockSource{
		partitions: make(map[string]map[string]string),
	}
}

// Initialize mock logic.
func (mock *MockSource) Initialize(_ context.Context) error {
	atomic.AddUint32(&mock.initCallsCnt, 1)
	mock.mu.Lock()
	defer mock.mu.Unlock()

	return mock.initErr
}

// Reload mock logic.
func (mock *MockSource) Reload(ctx context.Context) error {
	atomic.AddUint32(&mock.reloadCallsCnt, 1)
	mock.mu.Lock()
	callback, err := mock.reloadCallback, mock.reloadErr
	mock.mu.Unlock()
	if callback != nil {
		callback(ctx)
	}

	return err
}

// Fetch mock logic. It returns a copy of env's key-values set with SetKeyValues.
func (mock *MockSource) Fetch(env Environment) (map[string]string, error) {
	atomic.AddUint32(&mock.fetchCallsCnt, 1)
	mock.mu.Lock()
	callback, err := mock.fetchCallback, mock.fetchErr
	snapshot := cloneSnapshot(mock.partitions[env.String()])
	mock.mu.Unlock()
	if callback != nil {
		callback(env)
	}
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// Close mock logic.
func (mock *MockSource) Close() error {
	atomic.AddUint32(&mock.closeCallsCnt, 1)

	return nil
}

// SetKeyValues sets/resets given key-values for an environment.
// Make sure you pass an even number of elements.
// Usage example:
//
//	mock.SetKeyValues(
//		xcfg.NewEnvironment("shop", "dev"),
//		"foo", "bar",
//		"year", "2022",
//	)
func (mock *MockSource) SetKeyValues(env Environment, kv ...string) {
	kvLen := len(kv)
	if kvLen%2 == 1 {
		kvLen-- // skip last element
	}
	mock.mu.Lock()
	snapshot := cloneSnapshot(mock.partitions[env.String()])
	for i := 0; i < kvLen; i += 2 {
		snapshot[kv[i]] = kv[i+1]
	}
	mock.partitions[env.String()] = snapshot
	mock.mu.Unlock()
}

// SetInitializeErr sets the error returned by Initialize.
func (mock *MockSource) SetInitializeErr(err error) {
	mock.mu.Lock()
	mock.initErr = err
	mock.mu.Unlock()
}

// SetReloadErr sets the error returned by Reload.
func (mock *MockSource) SetReloadErr(err error) {
	mock.mu.Lock()
	mock.reloadErr = err
	mock.mu.Unlock()
}

// SetFetchErr sets the error returned by Fetch.
func (mock *MockSource) SetFetchErr(err error) {
	mock.mu.Lock()
	mock.fetchErr = err
	mock.mu.Unlock()
}

// SetReloadCallback sets the given callback to be executed inside Reload() method.
// You can inject yourself to make assertions upon passed parameter(s) this way,
// or block a reload.
func (mock *MockSource) SetReloadCallback(callback func(ctx context.Context)) {
	mock.mu.Lock()
	mock.reloadCallback = callback
	mock.mu.Unlock()
}

// SetFetchCallback sets the given callback to be executed inside Fetch() method.
func (mock *MockSource) SetFetchCallback(callback func(env Environment)) {
	mock.mu.Lock()
	mock.fetchCallback = callback
	mock.mu.Unlock()
}

// InitializeCallsCount returns the no. of times Initialize() method was called.
func (mock *MockSource) InitializeCallsCount() int {
	return int(atomic.LoadUint32(&mock.initCallsCnt))
}

// ReloadCallsCount returns the no. of times Reload() method was called.
func (mock *MockSource) ReloadCallsCount() int {
	return int(atomic.LoadUint32(&mock.reloadCallsCnt))
}

// FetchCallsCount returns the no. of times Fetch() method was called.
func (mock *MockSource) FetchCallsCount() int {
	return int(atomic.LoadUint32(&mock.fetchCallsCnt))
}

// CloseCallsCount returns the no. of times Close() method was called.
func (mock *MockSource) CloseCallsCount() int {
	return int(atomic.LoadUint32(&mock.closeCallsCnt))
}
