package session

import (
	"context"
	"sync"
	"time"
)

// watcher is the single background ticker owned by a Manager.
type watcher struct {
	interval time.Duration
	reset    chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
}

func (w *watcher) rearm() {
	select {
	case w.reset <- struct{}{}:
	default:
	}
}

func (w *watcher) stop() {
	w.once.Do(func() {
		w.cancel()
		<-w.done
	})
}

// Watch re-evaluates the verification clock every interval until ctx is
// cancelled or the returned stop func is called. onExpire receives the
// verification path once per boundary crossing. A later Watch call replaces
// the running watcher.
func (m *Manager) Watch(ctx context.Context, interval time.Duration, onExpire func(path string)) (stop func()) {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	watchCtx, cancel := context.WithCancel(ctx)
	w := &watcher{
		interval: interval,
		reset:    make(chan struct{}, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	m.mu.Lock()
	previous := m.watch
	m.watch = w
	m.mu.Unlock()
	if previous != nil {
		previous.stop()
	}

	go m.runWatcher(watchCtx, w, onExpire)

	return func() {
		w.stop()
		m.mu.Lock()
		if m.watch == w {
			m.watch = nil
		}
		m.mu.Unlock()
	}
}

func (m *Manager) runWatcher(ctx context.Context, w *watcher, onExpire func(path string)) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.reset:
			ticker.Reset(w.interval)
		case <-ticker.C:
			if !m.Refresh() {
				continue
			}
			if onExpire != nil {
				onExpire(VerifyPath(m.State().User.Method()))
			}
		}
	}
}
