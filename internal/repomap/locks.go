package repomap

import "sync"

// keyedLocks hands out one mutex per repository path, so at most one
// generation runs per repository while different repositories proceed in
// parallel. Mutexes are never discarded; the set of repositories a process
// touches is small.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// lock acquires the mutex for key, creating it on first use, and returns
// the matching release function.
func (k *keyedLocks) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
