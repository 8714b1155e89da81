package service

import "sync"

// roomLocks hands out one mutex per game code and forgets it once no
// caller holds or waits for it.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*roomLock)}
}

// lock blocks until the code's mutex is held and returns its release func.
func (l *roomLocks) lock(code string) (unlock func()) {
	l.mu.Lock()
	rl, ok := l.locks[code]
	if !ok {
		rl = &roomLock{}
		l.locks[code] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()

		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, code)
		}
		l.mu.Unlock()
	}
}

func (l *roomLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
