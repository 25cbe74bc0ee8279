package summary

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mvp-joe/workbench-context/internal/workbench"
)

// DefaultDebounce is the quiet period used when UpdaterOptions.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// ContextExtractor builds items from a snapshot.
type ContextExtractor interface {
	Extract(snap workbench.Snapshot) []Item
}

// UpdaterOptions configures an Updater.
type UpdaterOptions struct {
	Debounce time.Duration      // quiet period before a refresh runs
	OnUpdate func(items []Item) // called after every successful refresh with a copy of the list
	Logger   *zap.Logger
}

// watchKey is the part of a snapshot whose change schedules a refresh.
type watchKey struct {
	selected string
	entries  int
}

func keyOf(snap workbench.Snapshot) watchKey {
	return watchKey{selected: snap.Selected, entries: snap.Len()}
}

// Updater keeps a context list in sync with a workbench store. Changes to
// the selection or to the number of table entries (re)arm a single debounce
// timer; when the store has been quiet for the debounce period the extractor
// runs once against the latest snapshot.
type Updater struct {
	store     workbench.Store
	extractor ContextExtractor
	debounce  time.Duration
	onUpdate  func([]Item)
	log       *zap.Logger

	mu            sync.RWMutex // Protects items, analyzing, lastRefreshed
	items         []Item
	analyzing     bool
	lastRefreshed time.Time

	refreshMu sync.Mutex // Serializes refresh executions

	// Owned by the loop goroutine
	lastKey    watchKey
	generation uint64

	timerMu       sync.Mutex // Protects debounce timer
	debounceTimer *time.Timer

	changeCh    chan struct{}
	refreshCh   chan uint64
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	startOnce   sync.Once
	stopOnce    sync.Once
	doneCh      chan struct{}
}

// NewUpdater creates an updater. Call Start to begin watching.
func NewUpdater(store workbench.Store, extractor ContextExtractor, opts UpdaterOptions) *Updater {
	u := &Updater{
		store:     store,
		extractor: extractor,
		debounce:  opts.Debounce,
		onUpdate:  opts.OnUpdate,
		log:       opts.Logger,
		changeCh:  make(chan struct{}, 1),
		refreshCh: make(chan uint64),
		doneCh:    make(chan struct{}),
	}
	if u.debounce <= 0 {
		u.debounce = DefaultDebounce
	}
	if u.log == nil {
		u.log = zap.NewNop()
	}
	return u
}

// Start subscribes to the store and schedules the initial refresh.
// Calling Start more than once has no further effect.
func (u *Updater) Start(ctx context.Context) {
	u.startOnce.Do(func() {
		u.ctx, u.cancel = context.WithCancel(ctx)
		u.unsubscribe = u.store.Subscribe(u.notifyChange)

		u.lastKey = keyOf(u.store.Snapshot())
		u.generation++
		u.resetDebounceTimer(u.generation)

		go u.loop()
	})
}

// Stop cancels any pending refresh and unsubscribes from the store. A
// refresh already executing is allowed to finish.
func (u *Updater) Stop() {
	u.stopOnce.Do(func() {
		started := false
		u.startOnce.Do(func() {}) // Prevent a later Start
		if u.cancel != nil {
			started = true
			u.cancel()
			<-u.doneCh
		}
		if u.unsubscribe != nil {
			u.unsubscribe()
		}
		u.stopDebounceTimer()
		if !started {
			close(u.doneCh)
		}
	})
}

// Items returns a copy of the current context list.
func (u *Updater) Items() []Item {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return cloneItems(u.items)
}

// Analyzing reports whether a refresh is executing.
func (u *Updater) Analyzing() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.analyzing
}

// LastRefreshed returns when the list was last replaced, or the zero time.
func (u *Updater) LastRefreshed() time.Time {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.lastRefreshed
}

// Refresh runs the extractor immediately against the current snapshot,
// bypassing the debounce. The stored list is left untouched when extraction
// fails. Refresh must not be called from OnUpdate.
func (u *Updater) Refresh(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u.refreshMu.Lock()
	defer u.refreshMu.Unlock()

	u.setAnalyzing(true)
	defer u.setAnalyzing(false)

	start := time.Now()
	items, err := u.extract(u.store.Snapshot())
	if err != nil {
		u.log.Error("context refresh failed", zap.Error(err))
		return nil, err
	}

	u.mu.Lock()
	u.items = items
	u.lastRefreshed = time.Now()
	u.mu.Unlock()

	u.log.Debug("context refreshed",
		zap.Int("items", len(items)),
		zap.Duration("elapsed", time.Since(start)))

	if u.onUpdate != nil {
		u.onUpdate(cloneItems(items))
	}

	return cloneItems(items), nil
}

// notifyChange is the store subscription; it must not block the store.
func (u *Updater) notifyChange() {
	select {
	case u.changeCh <- struct{}{}:
	default:
	}
}

// loop is the updater's event loop.
func (u *Updater) loop() {
	defer close(u.doneCh)

	for {
		select {
		case <-u.ctx.Done():
			u.stopDebounceTimer()
			return

		case <-u.changeCh:
			key := keyOf(u.store.Snapshot())
			if key == u.lastKey {
				continue
			}
			u.lastKey = key
			u.generation++
			u.resetDebounceTimer(u.generation)

		case gen := <-u.refreshCh:
			// A timer replaced after it already fired can still deliver
			if gen != u.generation {
				continue
			}
			if _, err := u.Refresh(u.ctx); err != nil && !errors.Is(err, context.Canceled) {
				u.log.Warn("scheduled refresh did not publish", zap.Error(err))
			}
		}
	}
}

// resetDebounceTimer replaces the pending refresh with one for gen.
func (u *Updater) resetDebounceTimer(gen uint64) {
	u.timerMu.Lock()
	defer u.timerMu.Unlock()

	if u.debounceTimer != nil {
		u.debounceTimer.Stop()
	}

	ctx := u.ctx
	u.debounceTimer = time.AfterFunc(u.debounce, func() {
		select {
		case u.refreshCh <- gen:
		case <-ctx.Done():
		}
	})
}

// stopDebounceTimer cancels the pending refresh, if any.
func (u *Updater) stopDebounceTimer() {
	u.timerMu.Lock()
	defer u.timerMu.Unlock()

	if u.debounceTimer != nil {
		u.debounceTimer.Stop()
		u.debounceTimer = nil
	}
}

func (u *Updater) setAnalyzing(v bool) {
	u.mu.Lock()
	u.analyzing = v
	u.mu.Unlock()
}

// extract runs the extractor, converting a panic into an error.
func (u *Updater) extract(snap workbench.Snapshot) (items []Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panicked: %v", r)
		}
	}()
	return u.extractor.Extract(snap), nil
}
