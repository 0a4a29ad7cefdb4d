// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"context"
	"sync"
	"time"

	"github.com/actforgood/xerr"
)

// DefaultReloadInterval is the reload interval used when "reload.interval" is missing.
const DefaultReloadInterval = 15 * time.Second

// Reloadable is something that can refresh its data, like a [Provider].
// Implementations must be comparable (pointers, usually).
type Reloadable interface {
	Reload(ctx context.Context) error
}

// ReloadStrategy schedules reloads of registered targets.
type ReloadStrategy interface {
	// Register starts scheduling target's reloads.
	Register(target Reloadable)
	// Deregister stops scheduling target's reloads.
	// An in-flight reload is waited for.
	Deregister(target Reloadable)
	// Close deregisters all targets.
	// It implements io.Closer interface, and the returned error can be disregarded.
	Close() error
}

// PeriodicReloadStrategy reloads each registered target at a fixed interval,
// from a dedicated goroutine.
// A failed reload is passed to the error handler and retried at the next tick,
// the target keeping its previous data.
type PeriodicReloadStrategy struct {
	interval   time.Duration
	errHandler func(error)
	loops      map[Reloadable]*reloadLoop
	closed     bool
	mu         sync.Mutex
}

// reloadLoop is a target's reload goroutine state.
type reloadLoop struct {
	target Reloadable
	ticker *time.Ticker
	wg     sync.WaitGroup
	closed chan struct{}
}

// NewPeriodicReloadStrategy instantiates a new PeriodicReloadStrategy.
// A non-positive interval is replaced with [DefaultReloadInterval].
func NewPeriodicReloadStrategy(interval time.Duration, opts ...PeriodicReloadStrategyOption) *PeriodicReloadStrategy {
	if interval <= 0 {
		interval = DefaultReloadInterval
	}
	strategy := &PeriodicReloadStrategy{
		interval: interval,
		loops:    make(map[Reloadable]*reloadLoop),
	}
	for _, opt := range opts {
		opt(strategy)
	}

	return strategy
}

// Interval returns the reload interval.
func (strategy *PeriodicReloadStrategy) Interval() time.Duration {
	return strategy.interval
}

// Register starts target's reload goroutine.
// Registering a target twice, or after Close, does nothing.
func (strategy *PeriodicReloadStrategy) Register(target Reloadable) {
	strategy.mu.Lock()
	defer strategy.mu.Unlock()

	if strategy.closed {
		return
	}
	if _, found := strategy.loops[target]; found {
		return
	}

	loop := &reloadLoop{
		target: target,
		ticker: time.NewTicker(strategy.interval),
		closed: make(chan struct{}),
	}
	loop.wg.Add(1)
	go loop.run(strategy.errHandler)
	strategy.loops[target] = loop
}

// Deregister stops target's reload goroutine, waiting for an in-flight reload.
func (strategy *PeriodicReloadStrategy) Deregister(target Reloadable) {
	strategy.mu.Lock()
	loop, found := strategy.loops[target]
	delete(strategy.loops, target)
	strategy.mu.Unlock()

	if found {
		loop.stop()
	}
}

// Close stops all the reload goroutines.
func (strategy *PeriodicReloadStrategy) Close() error {
	strategy.mu.Lock()
	loops := strategy.loops
	strategy.loops = make(map[Reloadable]*reloadLoop)
	strategy.closed = true
	strategy.mu.Unlock()

	for _, loop := range loops {
		loop.stop()
	}

	return nil
}

// run reloads the target at each tick, until stop is called.
func (loop *reloadLoop) run(errHandler func(error)) {
	defer loop.wg.Done()

	for {
		select {
		case <-loop.closed:
			loop.ticker.Stop()

			return
		case <-loop.ticker.C:
			if err := loop.target.Reload(context.Background()); err != nil && errHandler != nil {
				errHandler(err)
			}
		}
	}
}

func (loop *reloadLoop) stop() {
	close(loop.closed)
	loop.wg.Wait()
}

// PeriodicReloadStrategyOption defines optional function for configuring
// a PeriodicReloadStrategy.
type PeriodicReloadStrategyOption func(*PeriodicReloadStrategy)

// PeriodicReloadStrategyWithErrorHandler sets the handler for errors that may occur
// during reloading. If reload fails, previous configuration stays active.
//
// You can choose to log the error, for example, see [LogErrorHandler].
//
// By default, error is simply ignored.
func PeriodicReloadStrategyWithErrorHandler(errHandler func(error)) PeriodicReloadStrategyOption {
	return func(strategy *PeriodicReloadStrategy) {
		strategy.errHandler = errHandler
	}
}

// ManualReloadStrategy reloads registered targets only when Trigger is called.
type ManualReloadStrategy struct {
	targets []Reloadable
	mu      sync.Mutex
}

// NewManualReloadStrategy instantiates a new ManualReloadStrategy.
func NewManualReloadStrategy() *ManualReloadStrategy {
	return &ManualReloadStrategy{}
}

// Register adds a target.
func (strategy *ManualReloadStrategy) Register(target Reloadable) {
	strategy.mu.Lock()
	defer strategy.mu.Unlock()

	for _, registered := range strategy.targets {
		if registered == target {
			return
		}
	}
	strategy.targets = append(strategy.targets, target)
}

// Deregister removes a target.
func (strategy *ManualReloadStrategy) Deregister(target Reloadable) {
	strategy.mu.Lock()
	defer strategy.mu.Unlock()

	for idx, registered := range strategy.targets {
		if registered == target {
			strategy.targets = append(strategy.targets[:idx:idx], strategy.targets[idx+1:]...)

			return
		}
	}
}

// Close removes all targets.
func (strategy *ManualReloadStrategy) Close() error {
	strategy.mu.Lock()
	strategy.targets = nil
	strategy.mu.Unlock()

	return nil
}

// Trigger reloads all registered targets synchronously.
// Errors are aggregated, a failing target does not prevent the others from reloading.
func (strategy *ManualReloadStrategy) Trigger(ctx context.Context) error {
	strategy.mu.Lock()
	targets := append([]Reloadable(nil), strategy.targets...)
	strategy.mu.Unlock()

	var mErr *xerr.MultiError
	for _, target := range targets {
		if err := target.Reload(ctx); err != nil {
			mErr = mErr.Add(err)
		}
	}

	return mErr.ErrOrNil()
}
