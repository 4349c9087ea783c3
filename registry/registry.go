// Package registry tracks which usernames currently hold a live
// authenticated session, so a name can be logged in at most once.
package registry

import "sync"

// Registry is a mutex-guarded set of active usernames. The zero value is
// not usable; construct with New.
type Registry struct {
	mu    sync.Mutex
	users map[string]struct{}
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{users: make(map[string]struct{})}
}

// TryAcquire claims username for a session. It reports false if another
// session already holds it; the check and the insert are a single atomic
// step.
func (r *Registry) TryAcquire(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.users[username]; taken {
		return false
	}
	r.users[username] = struct{}{}
	return true
}

// Release frees username for reuse. Releasing a name that is not held is a
// no-op, so every session teardown path may call it unconditionally.
func (r *Registry) Release(username string) {
	r.mu.Lock()
	delete(r.users, username)
	r.mu.Unlock()
}
