package server

import (
	"sync"
	"time"

	gsp "github.com/richinsley/goshaderplayground"
	"github.com/richinsley/goshaderplayground/playground"
)

// Session limits used when Config leaves them zero.
const (
	DefaultIdleTimeout = 30 * time.Minute
	DefaultMaxSessions = 64
)

type storedSession struct {
	pg       *playground.Playground
	lastUsed time.Time
}

// sessionStore owns the open playgrounds. Sessions idle for longer than
// idle are expired by sweep; beyond max, the least recently used one is
// evicted. Removed playgrounds are returned so callers close them
// outside the lock.
type sessionStore struct {
	mu   sync.Mutex
	m    map[string]*storedSession
	idle time.Duration
	max  int
	now  func() time.Time
}

func newSessionStore(idle time.Duration, max int) *sessionStore {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	if max <= 0 {
		max = DefaultMaxSessions
	}
	return &sessionStore{m: make(map[string]*storedSession), idle: idle, max: max, now: time.Now}
}

func (st *sessionStore) add(id string, pg *playground.Playground) []*playground.Playground {
	st.mu.Lock()
	defer st.mu.Unlock()
	var evicted []*playground.Playground
	for len(st.m) >= st.max {
		oldest := ""
		for k, v := range st.m {
			if oldest == "" || v.lastUsed.Before(st.m[oldest].lastUsed) {
				oldest = k
			}
		}
		gsp.Logger().Info("session evicted", "id", oldest, "open", len(st.m))
		evicted = append(evicted, st.m[oldest].pg)
		delete(st.m, oldest)
	}
	st.m[id] = &storedSession{pg: pg, lastUsed: st.now()}
	return evicted
}

// get returns the session and marks it used.
func (st *sessionStore) get(id string) (*playground.Playground, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.m[id]
	if !ok {
		return nil, false
	}
	e.lastUsed = st.now()
	return e.pg, true
}

func (st *sessionStore) remove(id string) (*playground.Playground, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.m[id]
	if !ok {
		return nil, false
	}
	delete(st.m, id)
	return e.pg, true
}

func (st *sessionStore) expire() []*playground.Playground {
	st.mu.Lock()
	defer st.mu.Unlock()
	cutoff := st.now().Add(-st.idle)
	var expired []*playground.Playground
	for id, e := range st.m {
		if e.lastUsed.Before(cutoff) {
			gsp.Logger().Info("session expired", "id", id, "idle", st.idle)
			expired = append(expired, e.pg)
			delete(st.m, id)
		}
	}
	return expired
}

func (st *sessionStore) drain() []*playground.Playground {
	st.mu.Lock()
	defer st.mu.Unlock()
	all := make([]*playground.Playground, 0, len(st.m))
	for _, e := range st.m {
		all = append(all, e.pg)
	}
	st.m = make(map[string]*storedSession)
	return all
}

func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.m)
}

func closeAll(pgs []*playground.Playground) {
	for _, pg := range pgs {
		if err := pg.Close(); err != nil {
			gsp.Logger().Warn("closing session", "err", err)
		}
	}
}
