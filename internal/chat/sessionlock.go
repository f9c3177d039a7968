package chat

import "sync"

// sessionLocks serializes requests per sessionID so two simultaneous
// messages to the same session cannot interleave their read-modify-write
// of the transcript. Different sessions stay fully parallel.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// acquire blocks until the session's lock is held and returns its release
// function. Entries are reference-counted and removed when unused, so the
// map does not grow with the total number of sessions ever seen.
func (s *sessionLocks) acquire(sessionID string) (release func()) {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}
