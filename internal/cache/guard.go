package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zjrosen/hlcache/internal/log"
)

var ErrLockInconsistency = errors.New("cache lock inconsistency")

// LockError reports a critical section that panicked, or an acquisition that
// found the lock poisoned by such a panic.
type LockError struct {
	Lock  string
	Panic any
}

func (e *LockError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("%s lock: panic in critical section: %v", e.Lock, e.Panic)
	}
	return fmt.Sprintf("%s lock poisoned by an earlier panic", e.Lock)
}

func (e *LockError) Is(target error) bool {
	return target == ErrLockInconsistency
}

// guard is a mutex that survives a panic in its critical section. The
// panicking call and the next acquirer both fail with *LockError; the poison
// is cleared by that next acquirer.
type guard struct {
	mu       sync.Mutex
	name     string
	poisoned bool
}

func (g *guard) do(fn func()) (err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.poisoned {
		g.poisoned = false
		log.Warn(log.CatCache, "Clearing poisoned lock", "lock", g.name)
		return &LockError{Lock: g.name}
	}

	defer func() {
		if r := recover(); r != nil {
			g.poisoned = true
			log.Error(log.CatCache, "Panic while holding lock", "lock", g.name, "panic", r)
			err = &LockError{Lock: g.name, Panic: r}
		}
	}()

	fn()
	return nil
}
