package session

import "sync"

var locks sync.Map

type sessionLock struct {
	mu sync.Mutex
}

// Lock serializes actions on one session. Call the returned func to release.
func Lock(id string) func() {
	l, _ := locks.LoadOrStore(id, &sessionLock{})
	lock := l.(*sessionLock)
	lock.mu.Lock()
	return lock.mu.Unlock
}

// forget drops the lock entry for a session that no longer exists.
func forget(id string) {
	locks.Delete(id)
}
