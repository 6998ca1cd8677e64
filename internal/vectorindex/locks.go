package vectorindex

import (
	"sync"

	"github.com/cloo-solutions/biorag/internal/domain"
)

// scopeLocks hands out one RWMutex per scope, created on first use.
type scopeLocks struct {
	mu    sync.Mutex
	locks map[domain.Scope]*sync.RWMutex
}

func newScopeLocks() *scopeLocks {
	return &scopeLocks{locks: make(map[domain.Scope]*sync.RWMutex)}
}

func (l *scopeLocks) get(scope domain.Scope) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[scope]
	if !ok {
		lock = &sync.RWMutex{}
		l.locks[scope] = lock
	}
	return lock
}
